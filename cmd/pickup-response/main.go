package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-guitar/guitar"
)

type responseRow struct {
	preset   guitar.PickupPreset
	tone     float32
	centerHz float32
	q        float32
	stable   bool
	combLen  float32
	levelsDB []float64
}

func main() {
	sampleRate := flag.Int("sample-rate", 48000, "Sample rate")
	note := flag.Int("note", 40, "MIDI note used to tune the comb")
	position := flag.Float64("position", 0.25, "Pickup position as fraction of string length")
	presetName := flag.String("preset", "", "Pickup preset (default: all built-in presets)")
	tones := flag.String("tones", "0,0.5,1", "Comma-separated tone values")
	freqs := flag.String("freqs", "100,250,500,1000,2000,3000,4000,6000,8000", "Comma-separated probe frequencies in Hz")
	withComb := flag.Bool("comb", false, "Include the comb in the reported levels")
	flag.Parse()

	toneValues, err := parseFloats(*tones)
	if err != nil {
		die("tones: %v", err)
	}
	probe, err := parseFloats(*freqs)
	if err != nil {
		die("freqs: %v", err)
	}
	presets := []guitar.PickupPreset{guitar.PickupBrightSingleCoil, guitar.PickupWarmSingleCoil, guitar.PickupBass}
	if *presetName != "" {
		p, err := guitar.ParsePickupPreset(*presetName)
		if err != nil {
			die("%v", err)
		}
		presets = []guitar.PickupPreset{p}
	}

	f0 := 440 * math.Pow(2, float64(*note-69)/12)
	rows, err := responseTable(*sampleRate, f0, float32(*position), presets, toneValues, probe, *withComb)
	if err != nil {
		die("%v", err)
	}

	fmt.Printf("Pickup response @ %d Hz, note %d (%.2f Hz), position %.3f\n\n", *sampleRate, *note, f0, *position)
	fmt.Printf("%-20s %5s %8s %5s %6s %8s", "preset", "tone", "fc", "q", "stable", "comb")
	for _, f := range probe {
		fmt.Printf(" %7s", formatHz(f))
	}
	fmt.Println()
	for _, r := range rows {
		fmt.Printf("%-20s %5.2f %8.1f %5.2f %6t %8.2f", r.preset, r.tone, r.centerHz, r.q, r.stable, r.combLen)
		for _, db := range r.levelsDB {
			fmt.Printf(" %7.1f", db)
		}
		fmt.Println()
	}
}

// responseTable evaluates one row per preset and tone.
func responseTable(sampleRate int, f0 float64, position float32, presets []guitar.PickupPreset, tones, freqs []float64, withComb bool) ([]responseRow, error) {
	pickup, err := guitar.NewPickupFilter(sampleRate)
	if err != nil {
		return nil, err
	}
	pickup.SetPosition(position)
	pickup.SetFrequency(float32(f0))

	rows := make([]responseRow, 0, len(presets)*len(tones))
	for _, preset := range presets {
		for _, tone := range tones {
			pickup.SetResponse(0, 0, preset, float32(tone))
			fc, q := pickup.Resonance()
			r := responseRow{
				preset:   preset,
				tone:     float32(tone),
				centerHz: fc,
				q:        q,
				stable:   pickup.Stable(),
				combLen:  pickup.CombDelay(),
				levelsDB: make([]float64, len(freqs)),
			}
			for i, f := range freqs {
				db := pickup.ResponseDB(f)
				if withComb {
					db += combDB(f, float64(r.combLen), float64(sampleRate))
				}
				r.levelsDB[i] = db
			}
			rows = append(rows, r)
		}
	}
	return rows, nil
}

// combDB is the magnitude of 1 - z^-D at freq.
func combDB(freq, delay, sampleRate float64) float64 {
	w := 2 * math.Pi * freq / sampleRate
	mag := 2 * math.Abs(math.Sin(w*delay/2))
	return 20 * math.Log10(math.Max(mag, 1e-12))
}

func parseFloats(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q", p)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no values")
	}
	return out, nil
}

func formatHz(f float64) string {
	if f >= 1000 {
		return strconv.FormatFloat(f/1000, 'g', 3, 64) + "k"
	}
	return strconv.FormatFloat(f, 'g', 4, 64)
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
