package analysis

import (
	"math"
	"testing"
)

func TestMagnitudeSpectrumRejectsBadSizes(t *testing.T) {
	x := make([]float64, 100)
	if _, err := MagnitudeSpectrum(x, 48000, 1000); err == nil {
		t.Fatalf("expected error for non power-of-two size")
	}
	if _, err := MagnitudeSpectrum(x, 0, 1024); err == nil {
		t.Fatalf("expected error for zero sample rate")
	}
}

func TestPeakNearInterpolatesSine(t *testing.T) {
	sr := 48000
	for _, freq := range []float64{110.0, 440.0, 1234.5} {
		x := makeDecaySine(sr, freq, 0.5, 10)
		s, err := MagnitudeSpectrum(x, sr, 1<<14)
		if err != nil {
			t.Fatalf("MagnitudeSpectrum: %v", err)
		}
		got, mag := s.PeakNear(freq, 20)
		if math.Abs(got-freq) > 0.5 {
			t.Fatalf("PeakNear(%f) = %f", freq, got)
		}
		if mag <= 0 {
			t.Fatalf("expected positive peak magnitude, got %f", mag)
		}
	}
}

func TestPartialsAndInharmonicity(t *testing.T) {
	sr := 48000
	const f0 = 110.0

	harmonic := makeStretchedTone(sr, f0, 0, 6)
	s, err := MagnitudeSpectrum(harmonic, sr, 1<<14)
	if err != nil {
		t.Fatalf("MagnitudeSpectrum: %v", err)
	}
	ps := s.Partials(f0, 6)
	if len(ps) != 6 {
		t.Fatalf("expected 6 partials, got %d", len(ps))
	}
	for _, p := range ps {
		if c := CentsBetween(f0*float64(p.Number), p.Frequency); math.Abs(c) > 1 {
			t.Fatalf("partial %d off by %f cents", p.Number, c)
		}
	}
	if b := Inharmonicity(ps); math.Abs(b) > 1e-4 {
		t.Fatalf("expected near-zero inharmonicity, got %g", b)
	}

	const B = 1e-3
	stretched := makeStretchedTone(sr, f0, B, 6)
	s, err = MagnitudeSpectrum(stretched, sr, 1<<14)
	if err != nil {
		t.Fatalf("MagnitudeSpectrum: %v", err)
	}
	got := Inharmonicity(s.Partials(f0*math.Sqrt(1+B), 6))
	want := B / (1 + B)
	if math.Abs(got-want) > 0.1*want {
		t.Fatalf("Inharmonicity() = %g, want about %g", got, want)
	}
}

func TestPartialsStopAtNyquist(t *testing.T) {
	s := Spectrum{SampleRate: 8000, FFTSize: 1024, Magnitude: make([]float64, 513)}
	if got := len(s.Partials(1000, 10)); got != 3 {
		t.Fatalf("expected 3 partials below 4 kHz, got %d", got)
	}
	if s.Partials(0, 4) != nil {
		t.Fatalf("expected nil partials for zero fundamental")
	}
}

// makeStretchedTone sums partials f_n = n*f0*sqrt(1+B*n^2) with 1/n levels.
func makeStretchedTone(sr int, f0 float64, b float64, count int) []float64 {
	out := make([]float64, sr/2)
	for n := 1; n <= count; n++ {
		fn := float64(n) * f0 * math.Sqrt(1+b*float64(n*n))
		for i := range out {
			out[i] += math.Sin(2*math.Pi*fn*float64(i)/float64(sr)) / float64(n)
		}
	}
	return out
}
