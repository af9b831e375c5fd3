package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/cwbudde/algo-guitar/analysis"
	"github.com/cwbudde/algo-guitar/guitar"
	"github.com/cwbudde/algo-guitar/internal/fitcommon"
	"github.com/cwbudde/algo-guitar/preset"
)

type report struct {
	analysis.ToneMetrics
	Note int `json:"note"`
}

func main() {
	referencePath := flag.String("reference", "reference/e2.wav", "Reference WAV path")
	candidatePath := flag.String("candidate", "", "Candidate WAV path; if empty, render candidate from the guitar model")
	presetPath := flag.String("preset", "", "Preset JSON path for rendered candidate (default: built-in params)")
	note := flag.Int("note", 40, "MIDI note (sets the expected fundamental)")
	velocity := flag.Int("velocity", 100, "MIDI velocity for rendered candidate")
	sampleRate := flag.Int("sample-rate", 48000, "Analysis sample rate in Hz")
	decayDBFS := flag.Float64("decay-dbfs", -90.0, "Auto-stop threshold in dBFS for rendered candidate")
	decayHoldBlocks := flag.Int("decay-hold-blocks", 6, "Consecutive below-threshold blocks required for stop")
	minDuration := flag.Float64("min-duration", 2.0, "Minimum rendered duration in seconds")
	maxDuration := flag.Float64("max-duration", 12.0, "Maximum rendered duration in seconds")
	releaseAfter := flag.Float64("release-after", 2.0, "Note hold time before NoteOff for rendered candidate")
	partials := flag.Int("partials", 12, "Harmonics compared by the tone metrics (0 disables)")
	writeCandidate := flag.String("write-candidate", "", "Optional path to write rendered candidate WAV")
	jsonOut := flag.Bool("json", false, "Print metrics as JSON")
	flag.Parse()

	ref, err := fitcommon.ReadReference(*referencePath, *sampleRate)
	if err != nil {
		die("failed to read reference: %v", err)
	}

	params := guitar.NewDefaultParams()
	if *presetPath != "" {
		if params, err = preset.LoadJSON(*presetPath); err != nil {
			die("failed to load preset: %v", err)
		}
	}

	var cand []float64
	if *candidatePath != "" {
		if cand, err = fitcommon.ReadReference(*candidatePath, *sampleRate); err != nil {
			die("failed to read candidate: %v", err)
		}
	} else {
		opts := fitcommon.RenderOptions{
			DecayDBFS:       *decayDBFS,
			DecayHoldBlocks: *decayHoldBlocks,
			MinDuration:     *minDuration,
			MaxDuration:     *maxDuration,
		}
		mono, err := fitcommon.RenderNote(params, *sampleRate, *note, *velocity, *releaseAfter, opts)
		if err != nil {
			die("failed to render candidate: %v", err)
		}
		if *writeCandidate != "" {
			if err := fitcommon.WriteMonoWAV(*writeCandidate, mono, *sampleRate); err != nil {
				die("failed to write candidate wav: %v", err)
			}
		}
		cand = fitcommon.ToFloat64(mono)
	}

	r, err := measure(ref, cand, *sampleRate, noteHz(params, *note), *partials)
	if err != nil {
		die("%v", err)
	}
	r.Note = *note
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			die("json encode failed: %v", err)
		}
		return
	}
	printReport(os.Stdout, r)
}

// measure compares the two plucks. Tone metrics are skipped when the
// fundamental is too low to resolve.
func measure(ref, cand []float64, sampleRate int, f0 float64, partials int) (report, error) {
	if partials <= 0 {
		return report{ToneMetrics: analysis.ToneMetrics{Metrics: analysis.Compare(ref, cand, sampleRate)}}, nil
	}
	tm, err := analysis.CompareTone(ref, cand, sampleRate, f0, partials)
	if err != nil {
		return report{}, fmt.Errorf("tone metrics: %w", err)
	}
	return report{ToneMetrics: tm}, nil
}

func noteHz(p *guitar.Params, note int) float64 {
	return float64(p.ReferencePitch) * math.Pow(2, float64(note-69)/12)
}

func printReport(w io.Writer, r report) {
	m := r.Metrics
	fmt.Fprintf(w, "Reference frames: %d\n", m.ReferenceFrames)
	fmt.Fprintf(w, "Candidate frames: %d\n", m.CandidateFrames)
	fmt.Fprintf(w, "Aligned frames:   %d\n", m.AlignedFrames)
	lagMs := 0.0
	if m.SampleRate > 0 {
		lagMs = 1000.0 * float64(m.LagSamples) / float64(m.SampleRate)
	}
	fmt.Fprintf(w, "Lag:              %d samples (%.3f ms)\n", m.LagSamples, lagMs)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Component        Raw          Norm   Weight  Contribution\n")
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	printComp := func(name string, raw string, norm, weight float64, dominant bool) {
		marker := ""
		if dominant {
			marker = " ◄"
		}
		fmt.Fprintf(w, "%-16s %-12s %5.1f%%  ×%.2f   → %.4f%s\n", name, raw, norm*100, weight, norm*weight, marker)
	}
	printComp("Time RMSE", fmt.Sprintf("%.6f", m.TimeRMSE), m.TimeNorm, analysis.WeightTime, m.Dominant == "time")
	printComp("Envelope RMSE", fmt.Sprintf("%.1f dB", m.EnvelopeRMSEDB), m.EnvelopeNorm, analysis.WeightEnvelope, m.Dominant == "envelope")
	printComp("Spectral RMSE", fmt.Sprintf("%.1f dB", m.SpectralRMSEDB), m.SpectralNorm, analysis.WeightSpectral, m.Dominant == "spectral")
	printComp("Decay diff", fmt.Sprintf("%.1f dB/s", m.DecayDiffDBPerS), m.DecayNorm, analysis.WeightDecay, m.Dominant == "decay")
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Score:            %.4f  (0 best, 1 worst)\n", m.Score)
	fmt.Fprintf(w, "Similarity:       %.2f%%\n", m.Similarity*100.0)
	fmt.Fprintf(w, "Dominant factor:  %s\n", m.Dominant)
	fmt.Fprintf(w, "\nDecay slopes: ref=%.1f dB/s  cand=%.1f dB/s\n", m.RefDecayDBPerS, m.CandDecayDBPerS)
	if r.Partials > 0 {
		fmt.Fprintf(w, "Pitch: ref=%.2f Hz  cand=%.2f Hz  error=%+.1f cents\n", r.RefFundamentalHz, r.CandFundamentalHz, r.PitchErrorCents)
		fmt.Fprintf(w, "Partials (%d): cents RMSE=%.1f  level RMSE=%.1f dB\n", r.Partials, r.PartialCentsRMSE, r.PartialLevelRMSEDB)
	}
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
