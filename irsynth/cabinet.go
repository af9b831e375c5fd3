package irsynth

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
)

// CabinetConfig controls synthetic speaker-cabinet IR generation.
//
// The IR is a direct impulse plus the cone's low resonance, a set of
// cone breakup modes in the upper mids and a polarity-inverted reflection
// from the back panel. The result is band-limited by a 2nd-order Butterworth
// highpass and a 4th-order Butterworth lowpass.
type CabinetConfig struct {
	SampleRate int
	DurationS  float64 // typically 0.02-0.2s
	Seed       int64

	DirectLevel float64
	SpeakerHz   float64 // cone resonance
	SpeakerQ    float64

	BreakupModes  int
	BreakupLowHz  float64
	BreakupHighHz float64
	BreakupDecayS float64
	Brightness    float64

	BaffleDelayMs float64
	BaffleLevel   float64

	HighpassHz float64
	LowpassHz  float64
	FadeOutS   float64 // cosine fade-out at the end; 0 = no fade

	NormalizePeak float64
}

// DefaultCabinetConfig returns a closed-back 1x12 style cabinet.
func DefaultCabinetConfig() CabinetConfig {
	return CabinetConfig{
		SampleRate:    48000,
		DurationS:     0.06,
		Seed:          1,
		DirectLevel:   0.8,
		SpeakerHz:     110,
		SpeakerQ:      2.0,
		BreakupModes:  12,
		BreakupLowHz:  1500,
		BreakupHighHz: 5000,
		BreakupDecayS: 0.004,
		Brightness:    1.0,
		BaffleDelayMs: 1.2,
		BaffleLevel:   0.35,
		HighpassHz:    70,
		LowpassHz:     5500,
		FadeOutS:      0.005,
		NormalizePeak: 0.9,
	}
}

func (c *CabinetConfig) Validate() error {
	if c.SampleRate < 8000 {
		return fmt.Errorf("sample rate too low: %d", c.SampleRate)
	}
	if c.DurationS <= 0 {
		return fmt.Errorf("duration must be > 0")
	}
	nyquist := float64(c.SampleRate) / 2
	if c.DirectLevel < 0 {
		return fmt.Errorf("direct level must be >= 0")
	}
	if c.SpeakerHz <= 0 || c.SpeakerHz >= nyquist {
		return fmt.Errorf("speaker resonance must be in (0,%g): %g", nyquist, c.SpeakerHz)
	}
	if c.SpeakerQ <= 0 {
		return fmt.Errorf("speaker Q must be > 0")
	}
	if c.BreakupModes < 0 {
		return fmt.Errorf("breakup modes must be >= 0")
	}
	if c.BreakupModes > 0 {
		if c.BreakupLowHz <= 0 || c.BreakupHighHz < c.BreakupLowHz || c.BreakupHighHz >= nyquist {
			return fmt.Errorf("breakup range must satisfy 0 < low <= high < %g", nyquist)
		}
		if c.BreakupDecayS <= 0 {
			return fmt.Errorf("breakup decay must be > 0")
		}
	}
	if c.Brightness <= 0 {
		return fmt.Errorf("brightness must be > 0")
	}
	if c.BaffleDelayMs < 0 || c.BaffleLevel < 0 {
		return fmt.Errorf("baffle delay and level must be >= 0")
	}
	if c.HighpassHz <= 0 || c.LowpassHz <= c.HighpassHz || c.LowpassHz >= nyquist {
		return fmt.Errorf("band limits must satisfy 0 < highpass < lowpass < %g", nyquist)
	}
	if c.FadeOutS < 0 {
		return fmt.Errorf("fade-out must be >= 0")
	}
	if c.NormalizePeak <= 0 {
		return fmt.Errorf("normalize peak must be > 0")
	}
	return nil
}

// GenerateCabinet synthesizes a mono cabinet IR according to cfg.
func GenerateCabinet(cfg CabinetConfig) ([]float32, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	n := max(int(math.Round(cfg.DurationS*float64(cfg.SampleRate))), 1)
	buf := make([]float64, n)
	sr := float64(cfg.SampleRate)

	rng := rand.New(rand.NewSource(cfg.Seed))

	buf[0] += cfg.DirectLevel

	// Cone resonance: tau = Q / (pi f). A damped cosine of amplitude a peaks
	// at a*tau*sr/2 in the spectrum, so the bump sits about 6 dB above the
	// direct path.
	tau := cfg.SpeakerQ / (math.Pi * cfg.SpeakerHz)
	addModeRec(buf, 2*cfg.DirectLevel/(tau*sr), cfg.SpeakerHz, 0, math.Exp(-1/(tau*sr)), cfg.SampleRate)

	// Breakup modes are log-spaced with small frequency jitter; RNG only
	// touches jitter and phase.
	breakupDecay := math.Exp(-1 / (cfg.BreakupDecayS * sr))
	for m := 0; m < cfg.BreakupModes; m++ {
		pos := (float64(m) + 0.5) / float64(cfg.BreakupModes)
		f := cfg.BreakupLowHz * math.Pow(cfg.BreakupHighHz/cfg.BreakupLowHz, pos)
		f *= 1 + 0.03*(rng.Float64()*2-1)
		amp := 1.2 * cfg.DirectLevel / (cfg.BreakupDecayS * sr)
		amp *= math.Pow(cfg.BreakupLowHz/f, 1/cfg.Brightness)
		amp *= 0.7 + 0.6*rng.Float64()
		phi := rng.Float64() * 2 * math.Pi
		addModeRec(buf, amp, f, phi, breakupDecay, cfg.SampleRate)
	}

	if idx := int(math.Round(cfg.BaffleDelayMs / 1000 * sr)); idx > 0 && idx < n {
		buf[idx] -= cfg.BaffleLevel * cfg.DirectLevel
	}

	sections := design.ButterworthHP(cfg.HighpassHz, 2, sr)
	sections = append(sections, design.ButterworthLP(cfg.LowpassHz, 4, sr)...)
	biquad.NewChain(sections).ProcessBlock(buf)

	applyFadeOut(buf, cfg.FadeOutS, cfg.SampleRate)

	peak := maxAbs(buf)
	if peak < 1e-12 {
		peak = 1e-12
	}
	s := cfg.NormalizePeak / peak
	out := make([]float32, n)
	for i := range buf {
		out[i] = float32(buf[i] * s)
	}
	return out, nil
}

func addModeRec(out []float64, amp float64, freq float64, phase float64, decay float64, sampleRate int) {
	if len(out) == 0 {
		return
	}
	w := 2.0 * math.Pi * freq / float64(sampleRate)
	cw := math.Cos(w)
	x0 := math.Cos(phase)
	x1 := math.Cos(phase + w)
	env := 1.0

	out[0] += amp * env * x0
	env *= decay
	if len(out) == 1 {
		return
	}
	out[1] += amp * env * x1
	env *= decay
	for i := 2; i < len(out); i++ {
		x2 := 2.0*cw*x1 - x0
		x0 = x1
		x1 = x2
		out[i] += amp * env * x2
		env *= decay
	}
}

func maxAbs(x []float64) float64 {
	m := 0.0
	for _, v := range x {
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	return m
}

// applyFadeOut applies a cosine fade-out to the last fadeS seconds of buf.
func applyFadeOut(buf []float64, fadeS float64, sampleRate int) {
	if fadeS <= 0 || len(buf) == 0 {
		return
	}
	fadeSamples := min(int(math.Round(fadeS*float64(sampleRate))), len(buf))
	start := len(buf) - fadeSamples
	for i := 0; i < fadeSamples; i++ {
		t := float64(i) / float64(fadeSamples)
		buf[start+i] *= 0.5 * (1.0 + math.Cos(t*math.Pi))
	}
}
