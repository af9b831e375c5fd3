package main

import (
	"flag"
	"fmt"
	"math"
	"math/cmplx"
	"os"

	algofft "github.com/cwbudde/algo-fft"
	"github.com/cwbudde/algo-guitar/analysis"
	"github.com/cwbudde/algo-guitar/guitar"
	"github.com/cwbudde/algo-guitar/internal/fitcommon"
	"github.com/cwbudde/algo-guitar/preset"
)

type band struct {
	name string
	loHz float64
	hiHz float64
}

type timeWindow struct {
	name    string
	startMs float64
	endMs   float64
}

var bands = []band{
	{"fundamental (70-350Hz)", 70, 350},
	{"low-mid (350-1kHz)", 350, 1000},
	{"mid (1-3kHz)", 1000, 3000},
	{"presence (3-6kHz)", 3000, 6000},
	{"high (6-12kHz)", 6000, 12000},
	{"air (12-20kHz)", 12000, 20000},
}

var windows = []timeWindow{
	{"pick (0-20ms)", 0, 20},
	{"attack (20-100ms)", 20, 100},
	{"body (100-500ms)", 100, 500},
	{"sustain (0.5-2s)", 500, 2000},
	{"tail (2-4s)", 2000, 4000},
}

type bandResult struct {
	band   band
	rmseDB float64
	refDB  float64
	candDB float64
}

type windowResult struct {
	window timeWindow
	frames int
	bands  []bandResult
}

func main() {
	refPath := flag.String("reference", "reference/e2.wav", "Reference WAV")
	presetPath := flag.String("preset", "", "Preset to render (default: built-in params)")
	note := flag.Int("note", 40, "MIDI note")
	velocity := flag.Int("velocity", 100, "MIDI velocity")
	releaseAfter := flag.Float64("release-after", 3.0, "Release after seconds")
	sampleRate := flag.Int("sample-rate", 48000, "Sample rate")
	fftSize := flag.Int("fft-size", 4096, "STFT size (power of two)")
	flag.Parse()

	sr := *sampleRate
	ref, err := fitcommon.ReadReference(*refPath, sr)
	if err != nil {
		die("ref: %v", err)
	}
	fmt.Printf("Reference: %d frames @ %d Hz (%.2fs)\n", len(ref), sr, float64(len(ref))/float64(sr))

	params := guitar.NewDefaultParams()
	if *presetPath != "" {
		if params, err = preset.LoadJSON(*presetPath); err != nil {
			die("preset: %v", err)
		}
	}
	opts := fitcommon.DefaultRenderOptions()
	opts.MaxDuration = 8
	rendered, err := fitcommon.RenderNote(params, sr, *note, *velocity, *releaseAfter, opts)
	if err != nil {
		die("render: %v", err)
	}
	cand := fitcommon.ToFloat64(rendered)
	fmt.Printf("Candidate: %d frames @ %d Hz (%.2fs)\n\n", len(cand), sr, float64(len(cand))/float64(sr))

	refPeak, refPeakPos := peak(ref)
	candPeak, candPeakPos := peak(cand)
	fmt.Printf("Peak levels: ref=%.4f (%.1f dB)  cand=%.4f (%.1f dB)  ratio=%.1fdB\n",
		refPeak, toDB(refPeak), candPeak, toDB(candPeak), toDB(candPeak)-toDB(refPeak))

	lag := candPeakPos - refPeakPos
	fmt.Printf("Peak positions: ref=%d (%.1fms)  cand=%d (%.1fms)  lag=%d (%.1fms)\n",
		refPeakPos, float64(refPeakPos)/float64(sr)*1000,
		candPeakPos, float64(candPeakPos)/float64(sr)*1000,
		lag, float64(lag)/float64(sr)*1000)
	ref, cand = alignPeaks(ref, cand, lag)
	fmt.Println()

	results, err := compareWindows(ref, cand, sr, *fftSize)
	if err != nil {
		die("%v", err)
	}
	for _, wr := range results {
		fmt.Printf("--- %s (%d STFT frames) ---\n", wr.window.name, wr.frames)
		for _, b := range wr.bands {
			marker := ""
			if b.rmseDB > 15 {
				marker = " <<<"
			}
			if b.rmseDB > 25 {
				marker = " <<< !!!"
			}
			fmt.Printf("  %-24s RMSE=%5.1fdB  ref=%6.1fdB  cand=%6.1fdB  diff=%+5.1fdB%s\n",
				b.band.name, b.rmseDB, b.refDB, b.candDB, b.candDB-b.refDB, marker)
		}
		fmt.Println()
	}

	f0 := float64(params.ReferencePitch) * math.Pow(2, float64(*note-69)/12)
	tm, err := analysis.CompareTone(ref, cand, sr, f0, 12)
	if err != nil {
		fmt.Fprintf(os.Stderr, "partials: %v\n", err)
		return
	}
	fmt.Printf("Partials: f0 ref=%.2fHz cand=%.2fHz (%+.1f cents)  partial cents RMSE=%.1f  level RMSE=%.1fdB\n",
		tm.RefFundamentalHz, tm.CandFundamentalHz, tm.PitchErrorCents, tm.PartialCentsRMSE, tm.PartialLevelRMSEDB)
	fmt.Printf("Overall: score=%.4f similarity=%.1f%% decay ref=%.1f cand=%.1f dB/s\n",
		tm.Score, tm.Similarity*100, tm.RefDecayDBPerS, tm.CandDecayDBPerS)
}

// compareWindows averages STFT magnitudes per time window and reports the
// per-band log-spectral distance.
func compareWindows(ref, cand []float64, sr, fftSize int) ([]windowResult, error) {
	if fftSize < 2 || fftSize&(fftSize-1) != 0 {
		return nil, fmt.Errorf("fft size must be a power of two: %d", fftSize)
	}
	plan, err := algofft.NewPlanReal64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("fft plan: %w", err)
	}
	n := min(len(ref), len(cand))
	hop := fftSize / 2
	nBins := fftSize / 2
	binHz := float64(sr) / float64(fftSize)

	hann := make([]float64, fftSize)
	for i := range hann {
		hann[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(fftSize-1))
	}
	specRef := make([]complex128, fftSize/2+1)
	specCand := make([]complex128, fftSize/2+1)
	bufRef := make([]float64, fftSize)
	bufCand := make([]float64, fftSize)

	accumulate := func(avgRef, avgCand []float64, pos, length int) error {
		for i := range bufRef {
			bufRef[i], bufCand[i] = 0, 0
		}
		for i := 0; i < length; i++ {
			bufRef[i] = ref[pos+i] * hann[i]
			bufCand[i] = cand[pos+i] * hann[i]
		}
		if err := plan.Forward(specRef, bufRef); err != nil {
			return err
		}
		if err := plan.Forward(specCand, bufCand); err != nil {
			return err
		}
		for k := 1; k < nBins; k++ {
			avgRef[k] += cmplx.Abs(specRef[k])
			avgCand[k] += cmplx.Abs(specCand[k])
		}
		return nil
	}

	var out []windowResult
	for _, tw := range windows {
		startSamp := int(tw.startMs / 1000.0 * float64(sr))
		endSamp := min(int(tw.endMs/1000.0*float64(sr)), n)
		if startSamp >= endSamp {
			continue
		}

		avgRef := make([]float64, nBins)
		avgCand := make([]float64, nBins)
		frames := 0
		for pos := startSamp; pos+fftSize <= endSamp; pos += hop {
			if err := accumulate(avgRef, avgCand, pos, fftSize); err != nil {
				return nil, err
			}
			frames++
		}
		if frames == 0 {
			// Window shorter than one frame: zero-padded single frame.
			if err := accumulate(avgRef, avgCand, startSamp, min(endSamp-startSamp, fftSize)); err != nil {
				return nil, err
			}
			frames = 1
		}
		scale := 1.0 / float64(frames)
		for k := range avgRef {
			avgRef[k] *= scale
			avgCand[k] *= scale
		}

		wr := windowResult{window: tw, frames: frames}
		for _, b := range bands {
			loK := max(int(b.loHz/binHz), 1)
			hiK := min(int(b.hiHz/binHz), nBins-1)
			if loK > hiK {
				continue
			}
			var sumSq, refPow, candPow float64
			cnt := 0
			for k := loK; k <= hiK; k++ {
				d := toDB(avgRef[k]) - toDB(avgCand[k])
				sumSq += d * d
				refPow += avgRef[k] * avgRef[k]
				candPow += avgCand[k] * avgCand[k]
				cnt++
			}
			wr.bands = append(wr.bands, bandResult{
				band:   b,
				rmseDB: math.Sqrt(sumSq / float64(cnt)),
				refDB:  10 * math.Log10(math.Max(refPow/float64(cnt), 1e-24)),
				candDB: 10 * math.Log10(math.Max(candPow/float64(cnt), 1e-24)),
			})
		}
		out = append(out, wr)
	}
	return out, nil
}

func alignPeaks(ref, cand []float64, lag int) ([]float64, []float64) {
	if lag > 0 && lag < len(cand) {
		fmt.Printf("Aligned: shifted candidate by %d samples\n", lag)
		return ref, cand[lag:]
	}
	if lag < 0 && -lag < len(ref) {
		fmt.Printf("Aligned: shifted reference by %d samples\n", -lag)
		return ref[-lag:], cand
	}
	return ref, cand
}

func peak(x []float64) (float64, int) {
	best, pos := 0.0, 0
	for i, v := range x {
		if a := math.Abs(v); a > best {
			best, pos = a, i
		}
	}
	return best, pos
}

func toDB(x float64) float64 {
	return 20 * math.Log10(math.Max(x, 1e-12))
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
