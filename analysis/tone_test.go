package analysis

import (
	"math"
	"testing"
)

func TestCompareToneIdentical(t *testing.T) {
	sr := 48000
	x := makeStretchedTone(sr, 196, 0, 8)
	tm, err := CompareTone(x, x, sr, 196, 8)
	if err != nil {
		t.Fatalf("CompareTone: %v", err)
	}
	if tm.Partials != 8 {
		t.Fatalf("expected 8 partials, got %d", tm.Partials)
	}
	if tm.PitchErrorCents != 0 || tm.PartialCentsRMSE != 0 || tm.PartialLevelRMSEDB != 0 {
		t.Fatalf("identical tones must match exactly: %+v", tm)
	}
}

func TestCompareToneDetuned(t *testing.T) {
	sr := 48000
	ref := makeStretchedTone(sr, 196, 0, 6)
	cand := makeStretchedTone(sr, 196*math.Pow(2, 10.0/1200), 0, 6)
	tm, err := CompareTone(ref, cand, sr, 196, 6)
	if err != nil {
		t.Fatalf("CompareTone: %v", err)
	}
	if math.Abs(tm.PitchErrorCents-10) > 1 {
		t.Fatalf("pitch error = %f cents, want 10", tm.PitchErrorCents)
	}
	if math.Abs(tm.PartialCentsRMSE-10) > 1 {
		t.Fatalf("partial cents rmse = %f, want 10", tm.PartialCentsRMSE)
	}
	if tm.PartialLevelRMSEDB > 1 {
		t.Fatalf("relative partial levels should agree, got %f dB", tm.PartialLevelRMSEDB)
	}
}

func TestCompareToneRejectsLowFundamental(t *testing.T) {
	x := makeDecaySine(48000, 440, 0.5, 0.3)
	if _, err := CompareTone(x, x, 48000, 2, 4); err == nil {
		t.Fatalf("expected error for a fundamental below the analysis resolution")
	}
	if _, err := CompareTone(x, x, 48000, 0, 4); err == nil {
		t.Fatalf("expected error for zero fundamental")
	}
}
