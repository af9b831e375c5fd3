package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cwbudde/algo-guitar/guitar"
	"github.com/cwbudde/algo-guitar/internal/fitcommon"
	"github.com/cwbudde/algo-guitar/preset"
	"golang.org/x/sync/errgroup"
)

func main() {
	note := flag.Int("note", 64, "MIDI note number (64 = E4, high E string)")
	velocity := flag.Int("velocity", 100, "MIDI velocity (1-127)")
	duration := flag.Float64("duration", 3.0, "Duration in seconds (fixed-length mode)")
	decayDBFS := flag.Float64("decay-dbfs", math.Inf(1), "Auto-stop when block RMS falls below this dBFS (e.g. -90). Disabled by default")
	decayHoldBlocks := flag.Int("decay-hold-blocks", 6, "Consecutive below-threshold blocks required to stop in auto-decay mode")
	minDuration := flag.Float64("min-duration", 0.5, "Minimum render duration in seconds when using -decay-dbfs")
	maxDuration := flag.Float64("max-duration", 20.0, "Maximum render duration in seconds when using -decay-dbfs")
	releaseAfter := flag.Float64("release-after", 1.5, "Release each note this many seconds after its pluck (negative keeps notes held)")
	sampleRate := flag.Int("sample-rate", 48000, "Render sample rate in Hz")
	presetPath := flag.String("preset", "", "Preset JSON file path (default: built-in params)")
	model := flag.String("model", "", "String model override: modal|oscillator")
	cabinet := flag.String("cabinet", "", "Cabinet IR WAV path override (optional)")
	strum := flag.String("strum", "", "Comma separated notes to strum, e.g. 40,45,50,55,59,64")
	strumSpacing := flag.Float64("strum-spacing", 0.025, "Seconds between strummed strings")
	midiPath := flag.String("midi", "", "Render a standard MIDI file instead of single notes")
	midiChannel := flag.Int("midi-channel", -1, "MIDI channel filter (0-15, -1 = all)")
	split := flag.Bool("split", false, "Write one WAV per note, rendered in parallel")
	output := flag.String("output", "output.wav", "Output WAV file path")
	flag.Parse()

	params, err := loadParams(*presetPath, *model, *cabinet)
	if err != nil {
		die("%v", err)
	}

	opts := fitcommon.RenderOptions{
		BlockSize:       128,
		DecayDBFS:       *decayDBFS,
		DecayHoldBlocks: *decayHoldBlocks,
		MinDuration:     *minDuration,
		MaxDuration:     *maxDuration,
	}

	var events []fitcommon.Event
	switch {
	case *midiPath != "":
		f, err := os.Open(*midiPath)
		if err != nil {
			die("open midi: %v", err)
		}
		events, err = fitcommon.ReadMIDIEvents(f, *midiChannel)
		f.Close()
		if err != nil {
			die("%v", err)
		}
		if len(events) == 0 {
			die("no note events in %s", *midiPath)
		}
		fmt.Printf("Rendering %s (%d events, %.2fs) at %d Hz...\n", *midiPath, len(events), fitcommon.EventsDuration(events), *sampleRate)
	case *strum != "":
		notes, err := fitcommon.ParseNotes(*strum)
		if err != nil {
			die("invalid -strum: %v", err)
		}
		events = fitcommon.PluckEvents(notes, *velocity, *strumSpacing, *releaseAfter)
		fmt.Printf("Strumming %v, velocity %d, spacing %.3fs at %d Hz...\n", notes, *velocity, *strumSpacing, *sampleRate)
	default:
		events = fitcommon.PluckEvents([]int{*note}, *velocity, 0, *releaseAfter)
		fmt.Printf("Rendering note %d, velocity %d at %d Hz (model: %s)...\n", *note, *velocity, *sampleRate, params.Model)
	}

	if math.IsInf(opts.DecayDBFS, 1) {
		// Fixed-length mode covers the whole performance.
		opts.MaxDuration = math.Max(*duration, fitcommon.EventsDuration(events)+0.5)
		opts.MinDuration = 0
	}

	if *split {
		if err := renderSplit(params, *sampleRate, events, opts, *output); err != nil {
			die("%v", err)
		}
		return
	}

	g, err := guitar.NewGuitar(*sampleRate, 0, params)
	if err != nil {
		die("create guitar: %v", err)
	}
	samples := fitcommon.Render(g, events, opts)
	if err := fitcommon.WriteMonoWAV(*output, samples, *sampleRate); err != nil {
		die("write wav: %v", err)
	}
	fmt.Printf("Successfully wrote %s (%d frames, %.3fs)\n", *output, len(samples), float64(len(samples))/float64(*sampleRate))
}

func loadParams(presetPath, model, cabinet string) (*guitar.Params, error) {
	params := guitar.NewDefaultParams()
	if presetPath != "" {
		p, err := preset.LoadJSON(presetPath)
		if err != nil {
			return nil, fmt.Errorf("load preset %q: %w", presetPath, err)
		}
		params = p
	}
	if model != "" {
		params.Model = strings.ToLower(strings.TrimSpace(model))
	}
	if cabinet != "" {
		params.CabinetIRWavPath = cabinet
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return params, nil
}

// renderSplit renders every distinct note of the performance on its own
// engine and writes <output>-<note>.wav for each.
func renderSplit(params *guitar.Params, sampleRate int, events []fitcommon.Event, opts fitcommon.RenderOptions, output string) error {
	byNote := splitByNote(events)
	notes := make([]int, 0, len(byNote))
	for n := range byNote {
		notes = append(notes, n)
	}
	sort.Ints(notes)

	var eg errgroup.Group
	for _, n := range notes {
		path := stemPath(output, n)
		stem := byNote[n]
		eg.Go(func() error {
			g, err := guitar.NewGuitar(sampleRate, 0, params.Clone())
			if err != nil {
				return fmt.Errorf("note %d: %w", n, err)
			}
			samples := fitcommon.Render(g, stem, opts)
			if err := fitcommon.WriteMonoWAV(path, samples, sampleRate); err != nil {
				return fmt.Errorf("note %d: %w", n, err)
			}
			fmt.Printf("Wrote %s (%d frames)\n", path, len(samples))
			return nil
		})
	}
	return eg.Wait()
}

// splitByNote groups note events per note; pitch bends go to every stem.
func splitByNote(events []fitcommon.Event) map[int][]fitcommon.Event {
	out := make(map[int][]fitcommon.Event)
	var bends []fitcommon.Event
	for _, e := range events {
		if e.Kind == fitcommon.EventPitchBend {
			bends = append(bends, e)
			continue
		}
		out[e.Note] = append(out[e.Note], e)
	}
	for n := range out {
		out[n] = append(out[n], bends...)
	}
	return out
}

func stemPath(output string, note int) string {
	ext := filepath.Ext(output)
	if ext == "" {
		ext = ".wav"
	}
	return fmt.Sprintf("%s-%03d%s", strings.TrimSuffix(output, filepath.Ext(output)), note, ext)
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
