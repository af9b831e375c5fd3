package main

import (
	"math"
	"testing"
)

func tone(sr int, seconds float64, freq float64, amp float64) []float64 {
	out := make([]float64, int(float64(sr)*seconds))
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(sr))
	}
	return out
}

func TestCompareWindowsIdenticalSignals(t *testing.T) {
	x := tone(48000, 1.0, 220, 0.5)
	res, err := compareWindows(x, x, 48000, 4096)
	if err != nil {
		t.Fatalf("compareWindows: %v", err)
	}
	// The 1 s signal covers pick, attack, body and part of sustain.
	if len(res) != 4 {
		t.Fatalf("expected 4 windows, got %d", len(res))
	}
	for _, wr := range res {
		for _, b := range wr.bands {
			if b.rmseDB != 0 || b.refDB != b.candDB {
				t.Fatalf("%s/%s: identical signals differ: %+v", wr.window.name, b.band.name, b)
			}
		}
	}
	if res[0].frames != 1 {
		t.Fatalf("short pick window must use one padded frame, got %d", res[0].frames)
	}
}

func TestCompareWindowsDetectsLevelOffset(t *testing.T) {
	ref := tone(48000, 1.0, 220, 0.5)
	cand := tone(48000, 1.0, 220, 0.25)
	res, err := compareWindows(ref, cand, 48000, 4096)
	if err != nil {
		t.Fatalf("compareWindows: %v", err)
	}
	fund := res[2].bands[0]
	if math.Abs((fund.candDB-fund.refDB)+6.02) > 0.1 {
		t.Fatalf("expected -6 dB in the fundamental band, got %+.2f", fund.candDB-fund.refDB)
	}
}

func TestCompareWindowsRejectsBadFFTSize(t *testing.T) {
	x := tone(48000, 0.1, 220, 0.5)
	if _, err := compareWindows(x, x, 48000, 1000); err == nil {
		t.Fatalf("expected error for non power-of-two fft size")
	}
}

func TestPeakAndAlign(t *testing.T) {
	ref := []float64{0, 0, 1, 0.5, 0}
	cand := []float64{0, 0, 0, 0, -2, 0.5}
	rp, rpos := peak(ref)
	cp, cpos := peak(cand)
	if rp != 1 || rpos != 2 || cp != 2 || cpos != 4 {
		t.Fatalf("peak: ref=(%f,%d) cand=(%f,%d)", rp, rpos, cp, cpos)
	}
	r, c := alignPeaks(ref, cand, cpos-rpos)
	if c[2] != -2 || len(r) != len(ref) {
		t.Fatalf("alignment failed: %v %v", r, c)
	}
}
