package guitar

import "math"

const (
	// MaxModes is the number of modes synthesized in standard quality.
	MaxModes = 32
	// MaxModesHQ is the number of modes synthesized in high quality.
	MaxModesHQ = 64

	nylonStiffness = 0.0043196
	steelStiffness = 0.1570795

	decayScale   = 8
	dampingScale = 0.005
	widthScale   = 0.1

	audibleCeilingHz = 20000
	outputScale      = 0.1
)

// StringModel is a single plucked string driven by the voice layer.
// Setters only record the request; Update commits it.
type StringModel interface {
	SetMaterial(material float32)
	SetPosition(position float32)
	SetDecay(decay float32)
	SetDamping(damping float32)
	SetWidth(width float32)
	SetFrequency(freq float32)
	SetHarmonics(enabled bool)
	SetHighQuality(enabled bool)
	HighQuality() bool

	Dirty() bool
	Update()
	NoteOn(velocity float32)
	NoteOff()
	Releasing() bool
	Process() float32
	Reset()
}

// stringConfig carries the physical parameters shared by every string model
// and the dirty flag guarding their recomputation.
type stringConfig struct {
	stiffness float32
	position  float32
	decay     float32
	damping   float32
	width     float32
	frequency float32

	harmonics   bool
	highQuality bool
	dirty       bool
}

func newStringConfig(referencePitch float32) stringConfig {
	c := stringConfig{frequency: referencePitch, dirty: true}
	c.SetMaterial(1)
	c.SetPosition(0.23)
	c.SetDecay(0.04)
	c.SetDamping(0.08)
	c.SetWidth(0.5)
	return c
}

// SetMaterial maps 0 (nylon) .. 1 (steel) onto the stiffness constant.
func (c *stringConfig) SetMaterial(material float32) {
	c.stiffness = nylonStiffness + (steelStiffness-nylonStiffness)*material
	c.dirty = true
}

// SetPosition sets the pluck position as a fraction of the string length.
func (c *stringConfig) SetPosition(position float32) {
	c.position = position
	c.dirty = true
}

func (c *stringConfig) SetDecay(decay float32) {
	c.decay = decay * decayScale
	c.dirty = true
}

func (c *stringConfig) SetDamping(damping float32) {
	c.damping = damping * dampingScale
	c.dirty = true
}

func (c *stringConfig) SetWidth(width float32) {
	c.width = width * widthScale
	c.dirty = true
}

// SetFrequency sets the fundamental in Hz.
func (c *stringConfig) SetFrequency(freq float32) {
	c.frequency = freq
	c.dirty = true
}

// SetHarmonics toggles the flageolet mask.
func (c *stringConfig) SetHarmonics(enabled bool) {
	c.harmonics = enabled
	c.dirty = true
}

// Dirty reports whether a parameter changed since the last Update.
func (c *stringConfig) Dirty() bool {
	return c.dirty
}

// HighQuality reports whether MaxModesHQ modes are rendered.
func (c *stringConfig) HighQuality() bool {
	return c.highQuality
}

func (c *stringConfig) modeCount() int {
	if c.highQuality {
		return MaxModesHQ
	}
	return MaxModes
}

// muted reports whether mode index i is silenced by the harmonics mask.
func (c *stringConfig) muted(i int) bool {
	return c.harmonics && (i+1)%2 == 0
}

type modeDesign struct {
	freq   float64
	amp    float64
	radius float64
	omega  float64
}

// designMode computes mode index i (harmonic number i+1). ok is false once
// the mode reaches Nyquist or the audible ceiling; freq is filled either way.
func (c *stringConfig) designMode(i int, sampleRate float64) (m modeDesign, ok bool) {
	f0 := float64(c.frequency)
	n := float64(i + 1)

	stiff := float64(c.stiffness) / (4 * f0 * f0) * math.Pi * math.Pi
	m.freq = math.Sqrt(1+stiff*stiff*n*n) * f0 * n
	if m.freq >= sampleRate/2 || m.freq >= audibleCeilingHz {
		return m, false
	}

	p := float64(c.position)
	m.amp = 2 / (math.Pi * math.Pi * n * n * p * (1 - p)) * math.Sin(math.Pi*n*p)
	width := float64(c.width)
	if n >= 2/(math.Pi*width) {
		m.amp *= 2 / (math.Pi * width * n)
	}

	m.radius = math.Exp(-(float64(c.decay) + float64(c.damping)*m.freq*2*math.Pi) / sampleRate)
	m.omega = 2 * math.Pi * m.freq / sampleRate
	return m, true
}

// toneBlend is the velocity-dependent brightness stage shared by the string
// models: a one-pole lowpass at the fundamental crossfaded with the dry sum.
type toneBlend struct {
	coeff float32
	y     float32
}

func (t *toneBlend) tune(fundamental, sampleRate float64) {
	t.coeff = float32(math.Exp(-2 * math.Pi * fundamental / sampleRate))
}

func (t *toneBlend) process(x, velocity float32) float32 {
	t.y = (1-t.coeff)*x + t.coeff*t.y
	t.y = flush(t.y)
	blended := x*velocity + (1-velocity)*math.Sqrt2*t.y
	return blended * velocity
}

func (t *toneBlend) reset() {
	t.y = 0
}
