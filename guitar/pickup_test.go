package guitar

import (
	"fmt"
	"math"
	"testing"
)

func newTestPickup(t *testing.T, sampleRate int) *PickupFilter {
	t.Helper()
	p, err := NewPickupFilter(sampleRate)
	if err != nil {
		t.Fatalf("NewPickupFilter: %v", err)
	}
	return p
}

func TestNewPickupFilterRejectsInvalidRate(t *testing.T) {
	if _, err := NewPickupFilter(0); err == nil {
		t.Fatalf("expected error for zero sample rate")
	}
}

func TestPickupPresetResonance(t *testing.T) {
	tests := []struct {
		preset PickupPreset
		tone   float32
		freq   float32
		q      float32
	}{
		{PickupBrightSingleCoil, 0, 1300, 3.7},
		{PickupBrightSingleCoil, 1, 3700, 3.7},
		{PickupWarmSingleCoil, 0.5, 2950, 6.3},
		{PickupWarmSingleCoil, 1, 4400, 6.3},
		{PickupBass, 0.25, 1400, 5.4},
		{PickupCustom, 0.9, 2500, 0.9},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("%s/tone=%.2f", tc.preset, tc.tone), func(t *testing.T) {
			p := newTestPickup(t, 48000)
			p.SetResponse(2500, 0.9, tc.preset, tc.tone)
			freq, q := p.Resonance()
			if math.Abs(float64(freq-tc.freq)) > 1e-3 || math.Abs(float64(q-tc.q)) > 1e-6 {
				t.Fatalf("resonance: got %f Hz Q %f want %f Hz Q %f", freq, q, tc.freq, tc.q)
			}
		})
	}
}

func TestPickupCoefficients(t *testing.T) {
	const sr = 44100.0
	p := newTestPickup(t, sr)
	p.SetResponse(0, 0, PickupWarmSingleCoil, 0.3)

	f := 1500 + 2900*0.3
	w0 := 2 * math.Pi * f / sr
	alpha := math.Sin(w0) / (2 * 6.3)
	b0 := (1 - math.Cos(w0)) / 2
	want := []float64{b0, 2 * b0, b0, 1 + alpha, -2 * math.Cos(w0) * w0, 1 - alpha}

	c := p.Coefficients()
	got := []float32{c.B0, c.B1, c.B2, c.A0, c.A1, c.A2}
	for i := range want {
		if math.Abs(float64(got[i])-want[i]) > 1e-5 {
			t.Fatalf("coefficient %d: got %g want %g", i, got[i], want[i])
		}
	}
}

func TestPickupResponseDBMatchesCoefficients(t *testing.T) {
	const sr = 48000.0
	p := newTestPickup(t, sr)
	p.SetResponse(0, 0, PickupBass, 1)
	c := p.Coefficients()

	for _, f := range []float64{0, 220, 1000, 2900, 8000} {
		w := 2 * math.Pi * f / sr
		z1 := complex(math.Cos(w), -math.Sin(w))
		z2 := z1 * z1
		num := complex(float64(c.B0), 0) + complex(float64(c.B1), 0)*z1 + complex(float64(c.B2), 0)*z2
		den := complex(float64(c.A0), 0) + complex(float64(c.A1), 0)*z1 + complex(float64(c.A2), 0)*z2
		mag := math.Hypot(real(num/den), imag(num/den))
		want := 20 * math.Log10(mag)
		if got := p.ResponseDB(f); math.Abs(got-want) > 1e-3 {
			t.Fatalf("%g Hz: got %f dB want %f dB", f, got, want)
		}
	}
}

func TestPickupPresetsAreStable(t *testing.T) {
	for _, sr := range []int{44100, 48000, 96000} {
		for _, preset := range []PickupPreset{PickupBrightSingleCoil, PickupWarmSingleCoil, PickupBass} {
			for _, tone := range []float32{0, 0.5, 1} {
				p := newTestPickup(t, sr)
				p.SetResponse(0, 0, preset, tone)
				if !p.Stable() {
					t.Fatalf("%s tone %.1f at %d Hz is unstable", preset, tone, sr)
				}
			}
		}
	}
}

func TestPickupCustomNearNyquistIsUnstable(t *testing.T) {
	p := newTestPickup(t, 48000)
	p.SetResponse(20000, 0.707, PickupCustom, 0)
	if p.Stable() {
		t.Fatalf("expected a custom 20 kHz resonance to be flagged unstable")
	}
}

func TestPickupCombDelayFollowsFrequency(t *testing.T) {
	p := newTestPickup(t, 48000)
	p.SetPosition(0.25)
	if got := p.CombDelay(); got != 0 {
		t.Fatalf("position must not apply before SetFrequency, delay %f", got)
	}
	p.SetFrequency(220)
	want := 0.25 / 220.0 * 48000
	if got := float64(p.CombDelay()); math.Abs(got-want) > 1e-3 {
		t.Fatalf("comb delay: got %f want %f", got, want)
	}
	p.SetFrequency(0.1)
	if got := p.CombDelay(); got != 47999 {
		t.Fatalf("comb delay must clamp to the buffer, got %f", got)
	}
}

// steadyGain feeds a sinusoid and returns the output/input amplitude ratio
// after the transient.
func steadyGain(p *PickupFilter, sampleRate int, freq float64) float64 {
	const n = 12000
	const skip = 4000
	in := make([]float32, 0, n-skip)
	out := make([]float32, 0, n-skip)
	for i := 0; i < n; i++ {
		x := float32(math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate)))
		y := p.Process(x)
		if i >= skip {
			in = append(in, x)
			out = append(out, y)
		}
	}
	return windowRMS(out) / windowRMS(in)
}

func TestPickupCombNotchesAtPickupHarmonic(t *testing.T) {
	const sr = 48000
	const f0 = 220.0
	const position = 0.25

	measure := func(freq float64) float64 {
		p := newTestPickup(t, sr)
		p.SetPosition(position)
		p.SetFrequency(f0)
		p.SetResponse(0, 0, PickupWarmSingleCoil, 1)
		resonance := math.Pow(10, p.ResponseDB(freq)/20)
		return steadyGain(p, sr, freq) / resonance
	}

	// The comb delay is position/f0 seconds: a full cycle at f0/position.
	notch := f0 / position
	if g := measure(notch); g > 0.05 {
		t.Fatalf("expected a notch at %.0f Hz, comb gain %f", notch, g)
	}
	if g := measure(notch / 2); math.Abs(g-2) > 0.05 {
		t.Fatalf("expected comb gain 2 at %.0f Hz, got %f", notch/2, g)
	}
}

func TestPickupResetClearsHistory(t *testing.T) {
	p := newTestPickup(t, 48000)
	p.SetPosition(0.3)
	p.SetFrequency(196)
	p.SetResponse(0, 0, PickupBrightSingleCoil, 0.5)
	for i := 0; i < 500; i++ {
		_ = p.Process(float32(i%5) - 2)
	}
	p.Reset()
	for i := 0; i < 500; i++ {
		if y := p.Process(0); y != 0 {
			t.Fatalf("expected silence after Reset at %d, got %g", i, y)
		}
	}
}

func TestParsePickupPreset(t *testing.T) {
	for _, preset := range []PickupPreset{PickupCustom, PickupBrightSingleCoil, PickupWarmSingleCoil, PickupBass} {
		got, err := ParsePickupPreset(" " + preset.String() + " ")
		if err != nil || got != preset {
			t.Fatalf("ParsePickupPreset(%q) = %v, %v", preset.String(), got, err)
		}
	}
	if _, err := ParsePickupPreset("humbucker"); err == nil {
		t.Fatalf("expected error for unknown preset")
	}
	if PickupPreset(9).Valid() {
		t.Fatalf("out-of-range preset reported valid")
	}
}
