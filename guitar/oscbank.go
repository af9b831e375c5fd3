package guitar

import "github.com/cwbudde/algo-guitar/dsp"

type oscMode struct {
	main    dsp.SineTable
	partner dsp.SineTable
	amp     float32
	radius  float32
	env     float32
}

// OscillatorBank is the wavetable rendition of the same modal string: each
// mode is a pair of slightly detuned table oscillators under an exponential
// envelope. The detuned partner adds the slow beating of coupled strings.
type OscillatorBank struct {
	stringConfig

	sampleRate     float32
	referencePitch float32

	modes  [MaxModesHQ]oscMode
	active int

	detuneCents float32
	coupling    float32

	excitation float32
	velocity   float32
	releasing  bool
	tone       toneBlend
}

// NewOscillatorBank creates an oscillator bank for the given sample rate and
// A4 reference pitch.
func NewOscillatorBank(sampleRate int, referencePitch float32) *OscillatorBank {
	if referencePitch <= 0 {
		referencePitch = 440
	}
	b := &OscillatorBank{
		stringConfig:   newStringConfig(referencePitch),
		sampleRate:     float32(sampleRate),
		referencePitch: referencePitch,
		detuneCents:    1.5,
		coupling:       0.35,
		velocity:       1,
	}
	for i := range b.modes {
		b.modes[i].main.Init(sampleRate)
		b.modes[i].partner.Init(sampleRate)
	}
	b.Update()
	return b
}

// SetCoupling sets the partner detune in cents and its mix gain.
func (b *OscillatorBank) SetCoupling(detuneCents, gain float32) {
	if gain < 0 {
		gain = 0
	}
	b.detuneCents = detuneCents
	b.coupling = gain
	b.dirty = true
}

// SetHighQuality switches the mode count and clears all envelopes.
func (b *OscillatorBank) SetHighQuality(enabled bool) {
	b.highQuality = enabled
	b.dirty = true
	b.clearModes()
}

// ActiveModes returns the number of modes rendered after the last Update.
func (b *OscillatorBank) ActiveModes() int {
	return b.active
}

// Update retunes the oscillators if a parameter changed.
func (b *OscillatorBank) Update() {
	if !b.dirty {
		return
	}
	sr := float64(b.sampleRate)
	ratio := centsToRatio(b.detuneCents)
	modes := b.modeCount()
	b.active = 0
	for i := 0; i < modes; i++ {
		m, ok := b.designMode(i, sr)
		if !ok {
			break
		}
		mode := &b.modes[i]
		mode.main.SetFrequency(float32(m.freq))
		mode.partner.SetFrequency(float32(m.freq) * ratio)
		mode.amp = float32(m.amp)
		mode.radius = float32(m.radius)
		b.active = i + 1
	}
	// Modes pushed out of range by a retune stop sounding.
	for i := b.active; i < MaxModesHQ; i++ {
		b.modes[i].env = 0
	}
	b.tone.tune(float64(b.frequency), sr)
	b.dirty = false
}

// NoteOn adds one pluck worth of amplitude to every mode at the next sample.
func (b *OscillatorBank) NoteOn(velocity float32) {
	b.excitation = 1
	b.velocity = velocity
	b.releasing = false
}

func (b *OscillatorBank) NoteOff() {
	b.releasing = true
}

func (b *OscillatorBank) Releasing() bool {
	return b.releasing
}

// Process renders one sample.
func (b *OscillatorBank) Process() float32 {
	modes := b.active
	if limit := b.modeCount(); modes > limit {
		modes = limit
	}

	exc := b.excitation
	norm := 1 / (1 + b.coupling)
	var sum float32
	for i := 0; i < modes; i++ {
		m := &b.modes[i]
		m.env = flush((m.env + exc*m.amp) * m.radius)
		s := (m.main.Process() + b.coupling*m.partner.Process()) * norm
		if b.muted(i) {
			continue
		}
		sum += m.env * s
	}
	b.excitation = 0

	return b.tone.process(outputScale*sum, b.velocity)
}

func (b *OscillatorBank) Reset() {
	b.clearModes()
	b.tone.reset()
	b.excitation = 0
	b.releasing = false
}

func (b *OscillatorBank) clearModes() {
	for i := range b.modes {
		b.modes[i].env = 0
		b.modes[i].main.Reset()
		b.modes[i].partner.Reset()
	}
}
