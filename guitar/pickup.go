package guitar

import (
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"

	"github.com/cwbudde/algo-guitar/dsp"
)

// PickupPreset selects the resonance voicing of a PickupFilter.
type PickupPreset int

const (
	// PickupCustom uses the frequency and Q passed to SetResponse.
	PickupCustom PickupPreset = iota
	PickupBrightSingleCoil
	PickupWarmSingleCoil
	PickupBass
)

var pickupPresetNames = [...]string{
	PickupCustom:           "custom",
	PickupBrightSingleCoil: "bright-single-coil",
	PickupWarmSingleCoil:   "warm-single-coil",
	PickupBass:             "bass",
}

type pickupVoicing struct {
	baseHz   float32
	spreadHz float32
	q        float32
}

// Resonance center is baseHz + spreadHz*tone.
var pickupVoicings = [...]pickupVoicing{
	PickupBrightSingleCoil: {baseHz: 1300, spreadHz: 2400, q: 3.7},
	PickupWarmSingleCoil:   {baseHz: 1500, spreadHz: 2900, q: 6.3},
	PickupBass:             {baseHz: 900, spreadHz: 2000, q: 5.4},
}

// Valid reports whether p is one of the defined presets.
func (p PickupPreset) Valid() bool {
	return p >= PickupCustom && int(p) < len(pickupPresetNames)
}

func (p PickupPreset) String() string {
	if !p.Valid() {
		return fmt.Sprintf("PickupPreset(%d)", int(p))
	}
	return pickupPresetNames[p]
}

// ParsePickupPreset resolves a preset name as produced by String.
func ParsePickupPreset(name string) (PickupPreset, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, s := range pickupPresetNames {
		if s == n {
			return PickupPreset(i), nil
		}
	}
	return PickupCustom, fmt.Errorf("unknown pickup preset %q", name)
}

// PickupCoefficients are the unnormalized resonance coefficients.
type PickupCoefficients struct {
	B0, B1, B2 float32
	A0, A1, A2 float32
}

// PickupFilter models a magnetic pickup: a comb at the pickup's fraction of
// the string period followed by a lowpass resonance.
type PickupFilter struct {
	sampleRate float32
	position   float32
	frequency  float32

	delay     *dsp.AllpassDelay
	resonance dsp.Biquad
	coeffs    PickupCoefficients
	centerHz  float32
	q         float32
}

// NewPickupFilter creates a pickup whose delay line holds one second.
// The resonance starts as a pass-through until SetResponse is called.
func NewPickupFilter(sampleRate int) (*PickupFilter, error) {
	delay, err := dsp.NewAllpassDelay(sampleRate)
	if err != nil {
		return nil, fmt.Errorf("pickup delay: %w", err)
	}
	p := &PickupFilter{
		sampleRate: float32(sampleRate),
		delay:      delay,
	}
	p.setCoefficients(PickupCoefficients{B0: 1, A0: 1})
	return p, nil
}

// SetPosition sets the pickup location as a fraction of the string length.
// It takes effect at the next SetFrequency.
func (p *PickupFilter) SetPosition(position float32) {
	p.position = position
}

// SetFrequency retunes the comb for a string fundamental of f0 Hz. The delay
// is position/f0 seconds. Interpolation state is kept.
func (p *PickupFilter) SetFrequency(f0 float32) {
	p.frequency = f0
	if f0 <= 0 {
		p.delay.SetDelay(0)
		return
	}
	length := (1 / f0) * p.position * p.sampleRate
	if limit := float32(p.delay.Len() - 1); length > limit {
		length = limit
	}
	p.delay.SetDelay(length)
}

// CombDelay returns the current comb delay in samples.
func (p *PickupFilter) CombDelay() float32 {
	return p.delay.Delay()
}

// SetResponse recomputes the resonance. For PickupCustom freq and q are
// used as given; the other presets derive them from tone in [0,1] and
// ignore freq and q. q must be > 0.
func (p *PickupFilter) SetResponse(freq, q float32, preset PickupPreset, tone float32) {
	if preset != PickupCustom && preset.Valid() {
		v := pickupVoicings[preset]
		freq = v.baseHz + v.spreadHz*tone
		q = v.q
	}
	p.centerHz = freq
	p.q = q

	w0 := 2 * math.Pi * float64(freq) / float64(p.sampleRate)
	cosW := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * float64(q))

	b0 := (1 - cosW) / 2
	p.setCoefficients(PickupCoefficients{
		B0: float32(b0),
		B1: float32(2 * b0),
		B2: float32(b0),
		A0: float32(1 + alpha),
		A1: float32(-2 * cosW * w0),
		A2: float32(1 - alpha),
	})
}

func (p *PickupFilter) setCoefficients(c PickupCoefficients) {
	p.coeffs = c
	p.resonance.SetCoefficients(c.B0, c.B1, c.B2, c.A0, c.A1, c.A2)
}

// Coefficients returns the current unnormalized resonance coefficients.
func (p *PickupFilter) Coefficients() PickupCoefficients {
	return p.coeffs
}

// Resonance returns the resonance center in Hz and its Q.
func (p *PickupFilter) Resonance() (float32, float32) {
	return p.centerHz, p.q
}

// Process filters one sample.
func (p *PickupFilter) Process(x float32) float32 {
	p.delay.Write(x)
	comb := x - p.delay.Read()
	return p.resonance.Process(comb)
}

// ResponseDB returns the magnitude of the resonance stage alone at freqHz.
func (p *PickupFilter) ResponseDB(freqHz float64) float64 {
	c := p.normalized()
	return c.MagnitudeDB(freqHz, float64(p.sampleRate))
}

// Stable reports whether both resonance poles lie inside the unit circle,
// using the stability triangle of z^2 + a1*z + a2.
func (p *PickupFilter) Stable() bool {
	c := p.normalized()
	return math.Abs(c.A2) < 1 && math.Abs(c.A1) < 1+c.A2
}

func (p *PickupFilter) normalized() biquad.Coefficients {
	b0, b1, b2, a1, a2 := p.resonance.Coefficients()
	return biquad.Coefficients{
		B0: float64(b0),
		B1: float64(b1),
		B2: float64(b2),
		A1: float64(a1),
		A2: float64(a2),
	}
}

// ResetInterpolation clears the comb's allpass memory.
func (p *PickupFilter) ResetInterpolation() {
	p.delay.ResetInterpolation()
}

// Reset clears the comb buffer and the resonance history.
func (p *PickupFilter) Reset() {
	p.delay.Reset()
	p.resonance.Reset()
}
