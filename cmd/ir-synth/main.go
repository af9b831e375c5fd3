package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/cwbudde/algo-guitar/internal/fitcommon"
	"github.com/cwbudde/algo-guitar/irsynth"
)

func main() {
	cfg := irsynth.DefaultCabinetConfig()

	output := flag.String("output", "assets/ir/cab_1x12_48k.wav", "Output WAV path")
	flag.IntVar(&cfg.SampleRate, "sample-rate", cfg.SampleRate, "Output sample rate")
	flag.Float64Var(&cfg.DurationS, "duration", cfg.DurationS, "IR length in seconds")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed")
	flag.Float64Var(&cfg.DirectLevel, "direct", cfg.DirectLevel, "Direct impulse level")
	flag.Float64Var(&cfg.SpeakerHz, "speaker-hz", cfg.SpeakerHz, "Cone resonance (Hz)")
	flag.Float64Var(&cfg.SpeakerQ, "speaker-q", cfg.SpeakerQ, "Cone resonance Q")
	flag.IntVar(&cfg.BreakupModes, "breakup-modes", cfg.BreakupModes, "Number of cone breakup modes")
	flag.Float64Var(&cfg.BreakupLowHz, "breakup-low", cfg.BreakupLowHz, "Lowest breakup mode (Hz)")
	flag.Float64Var(&cfg.BreakupHighHz, "breakup-high", cfg.BreakupHighHz, "Highest breakup mode (Hz)")
	flag.Float64Var(&cfg.BreakupDecayS, "breakup-decay", cfg.BreakupDecayS, "Breakup mode decay time (s)")
	flag.Float64Var(&cfg.Brightness, "brightness", cfg.Brightness, "Breakup brightness (>0)")
	flag.Float64Var(&cfg.BaffleDelayMs, "baffle-delay", cfg.BaffleDelayMs, "Back panel reflection delay (ms)")
	flag.Float64Var(&cfg.BaffleLevel, "baffle-level", cfg.BaffleLevel, "Back panel reflection level")
	flag.Float64Var(&cfg.HighpassHz, "highpass", cfg.HighpassHz, "Low cut (Hz)")
	flag.Float64Var(&cfg.LowpassHz, "lowpass", cfg.LowpassHz, "High cut (Hz)")
	flag.Float64Var(&cfg.FadeOutS, "fade-out", cfg.FadeOutS, "Cosine fade-out length (s)")
	flag.Float64Var(&cfg.NormalizePeak, "normalize", cfg.NormalizePeak, "Peak normalization target")
	flag.Parse()

	ir, err := irsynth.GenerateCabinet(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ir-synth error: %v\n", err)
		os.Exit(1)
	}

	if err := fitcommon.WriteMonoWAV(*output, ir, cfg.SampleRate); err != nil {
		fmt.Fprintf(os.Stderr, "wav write error: %v\n", err)
		os.Exit(1)
	}

	peak, rms := stats(ir)
	fmt.Printf("Wrote %s\n", *output)
	fmt.Printf("SampleRate: %d Hz, Duration: %.3f s, Samples: %d\n", cfg.SampleRate, cfg.DurationS, len(ir))
	fmt.Printf("Peak: %.6f, RMS: %.6f\n", peak, rms)
}

func stats(x []float32) (peak float64, rms float64) {
	if len(x) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range x {
		a := math.Abs(float64(v))
		if a > peak {
			peak = a
		}
		sum += float64(v) * float64(v)
	}
	return peak, math.Sqrt(sum / float64(len(x)))
}
