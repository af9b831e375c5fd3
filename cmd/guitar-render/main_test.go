package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/algo-guitar/guitar"
	"github.com/cwbudde/algo-guitar/internal/fitcommon"
)

func TestStemPath(t *testing.T) {
	tests := map[string]string{
		"out.wav":          "out-040.wav",
		"renders/take.WAV": "renders/take-040.WAV",
		"noext":            "noext-040.wav",
	}
	for in, want := range tests {
		if got := stemPath(in, 40); got != want {
			t.Fatalf("stemPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSplitByNoteSharesBends(t *testing.T) {
	events := []fitcommon.Event{
		{At: 0, Kind: fitcommon.EventNoteOn, Note: 40, Velocity: 100},
		{At: 0.1, Kind: fitcommon.EventPitchBend, Bend: 9000},
		{At: 0.2, Kind: fitcommon.EventNoteOn, Note: 45, Velocity: 100},
		{At: 0.5, Kind: fitcommon.EventNoteOff, Note: 40},
	}
	got := splitByNote(events)
	if len(got) != 2 {
		t.Fatalf("expected 2 stems, got %d", len(got))
	}
	if len(got[40]) != 3 || len(got[45]) != 2 {
		t.Fatalf("unexpected stem sizes: 40=%d 45=%d", len(got[40]), len(got[45]))
	}
}

func TestLoadParamsOverrides(t *testing.T) {
	p, err := loadParams("", " Oscillator ", "")
	if err != nil {
		t.Fatalf("loadParams: %v", err)
	}
	if p.Model != guitar.ModelOscillator {
		t.Fatalf("model override lost: %q", p.Model)
	}
	if _, err := loadParams("", "waveguide", ""); err == nil {
		t.Fatalf("expected error for unknown model")
	}
	if _, err := loadParams(filepath.Join(t.TempDir(), "missing.json"), "", ""); err == nil {
		t.Fatalf("expected error for missing preset")
	}
}

func TestRenderSplitWritesStems(t *testing.T) {
	out := filepath.Join(t.TempDir(), "strum.wav")
	opts := fitcommon.DefaultRenderOptions()
	opts.MaxDuration = 0.1
	events := fitcommon.PluckEvents([]int{40, 45, 50}, 100, 0.01, -1)
	if err := renderSplit(guitar.NewDefaultParams(), 48000, events, opts, out); err != nil {
		t.Fatalf("renderSplit: %v", err)
	}
	for _, n := range []int{40, 45, 50} {
		if _, err := os.Stat(stemPath(out, n)); err != nil {
			t.Fatalf("missing stem for note %d: %v", n, err)
		}
	}
}
