package analysis

import (
	"math"
	"math/rand"
	"testing"
)

func TestCompareIdenticalSignalsHasLowDistance(t *testing.T) {
	sr := 48000
	x := makeDecaySine(sr, 440.0, 1.5, 0.7)
	m := Compare(x, x, sr)
	if m.Score > 0.05 {
		t.Fatalf("expected very low score for identical signals, got %f", m.Score)
	}
	if m.Similarity < 0.85 {
		t.Fatalf("expected high similarity for identical signals, got %f", m.Similarity)
	}
}

func TestCompareDifferentSignalsHasHigherDistance(t *testing.T) {
	sr := 48000
	a := makeDecaySine(sr, 261.63, 1.8, 0.8)
	b := makeDecaySine(sr, 330.0, 0.8, 0.25)
	m := Compare(a, b, sr)
	if m.Score < 0.25 {
		t.Fatalf("expected higher score for different signals, got %f", m.Score)
	}
}

func TestEstimateLagFindsPositiveShift(t *testing.T) {
	const (
		n      = 8192
		shift  = 237
		maxLag = 600
	)
	ref := randomSignal(n, 7)
	cand := make([]float64, n)
	copy(cand, ref[shift:])

	got := estimateLag(ref, cand, maxLag)
	if got != shift {
		t.Fatalf("estimateLag() = %d, want %d", got, shift)
	}
}

func TestEstimateLagFindsNegativeShift(t *testing.T) {
	const (
		n      = 8192
		shift  = -191
		maxLag = 600
	)
	ref := randomSignal(n, 11)
	cand := make([]float64, n)
	copy(cand[-shift:], ref)

	got := estimateLag(ref, cand, maxLag)
	if got != shift {
		t.Fatalf("estimateLag() = %d, want %d", got, shift)
	}
}

func TestEstimateLagMatchesExhaustive(t *testing.T) {
	const (
		n      = 16000
		shift  = 443
		maxLag = 1000
	)
	ref := randomSignal(n, 23)
	cand := make([]float64, n)
	copy(cand, ref[shift:])

	got := estimateLag(ref, cand, maxLag)
	want := estimateLagExhaustive(ref, cand, maxLag)
	if got != want {
		t.Fatalf("estimateLag() = %d, exhaustive = %d", got, want)
	}
}

func TestDecaySlopeMatchesExponential(t *testing.T) {
	sr := 48000
	x := makeDecaySine(sr, 440.0, 2.0, 0.5)
	env := RMSEnvelope(x, 256, 128)
	got := DecaySlopeDBPerS(env, 128.0/float64(sr))
	want := -20.0 / (0.5 * math.Ln10)
	if math.Abs(got-want) > 0.05*math.Abs(want) {
		t.Fatalf("DecaySlopeDBPerS() = %f, want %f", got, want)
	}
	if v := DecaySlopeDBPerS(env[:5], 0.01); !math.IsNaN(v) {
		t.Fatalf("expected NaN for a short envelope, got %f", v)
	}
}

func TestCompareDegenerateInputs(t *testing.T) {
	x := makeDecaySine(48000, 440.0, 0.5, 0.2)
	for name, m := range map[string]Metrics{
		"empty":     Compare(nil, x, 48000),
		"rate":      Compare(x, x, 0),
		"silent":    Compare(make([]float64, 1000), x, 48000),
		"too short": Compare(x[:100], x[:100], 48000),
	} {
		if m.Score != 1 || m.Similarity != 0 {
			t.Fatalf("%s: expected worst score, got score=%f similarity=%f", name, m.Score, m.Similarity)
		}
	}
}

func makeDecaySine(sr int, freq float64, durationSec float64, decaySec float64) []float64 {
	n := int(float64(sr) * durationSec)
	if n < 1 {
		n = 1
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(sr)
		env := math.Exp(-t / decaySec)
		out[i] = env * math.Sin(2*math.Pi*freq*t)
	}
	return out
}

func randomSignal(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.Float64()*2 - 1
	}
	return out
}

func TestCompareScoreIsWeightedSumOfComponents(t *testing.T) {
	sr := 48000
	a := makeDecaySine(sr, 261.63, 1.8, 0.8)
	b := makeDecaySine(sr, 330.0, 0.8, 0.25)
	m := Compare(a, b, sr)
	want := WeightTime*m.TimeNorm + WeightEnvelope*m.EnvelopeNorm + WeightSpectral*m.SpectralNorm + WeightDecay*m.DecayNorm
	if math.Abs(m.Score-clamp01(want)) > 1e-12 {
		t.Fatalf("score=%f want %f", m.Score, want)
	}
	if m.Dominant == "" {
		t.Fatalf("expected a dominant component for different signals")
	}
	if same := Compare(a, a, sr); same.Dominant != "" && same.Score == 0 {
		t.Fatalf("zero score must not name a dominant component, got %q", same.Dominant)
	}
}
