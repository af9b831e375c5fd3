package main

import (
	"math"
	"testing"
)

func TestStats(t *testing.T) {
	peak, rms := stats([]float32{0.5, -1, 0.5, 0})
	if peak != 1 {
		t.Fatalf("peak=%f want 1", peak)
	}
	if math.Abs(rms-math.Sqrt(1.5/4)) > 1e-9 {
		t.Fatalf("rms=%f", rms)
	}
	if p, r := stats(nil); p != 0 || r != 0 {
		t.Fatalf("empty input: peak=%f rms=%f", p, r)
	}
}
