package guitar

import "math"

// ModeState is a read-only snapshot of one resonator mode.
type ModeState struct {
	Frequency float32
	Amplitude float32
	Gain      float32
	Feedback1 float32
	Feedback2 float32
}

// ResonatorBank renders a plucked stiff string as a bank of two-pole
// resonators, one per harmonic, all excited by a shared unit impulse.
// Process is allocation-free; parameter changes take effect at Update.
type ResonatorBank struct {
	stringConfig

	sampleRate     float32
	referencePitch float32

	freqs [MaxModesHQ]float32
	amps  [MaxModesHQ]float32
	gain  [MaxModesHQ]float32
	fb1   [MaxModesHQ]float32
	fb2   [MaxModesHQ]float32
	y1    [MaxModesHQ]float32
	y2    [MaxModesHQ]float32

	active int

	excitation float32
	velocity   float32
	releasing  bool
	tone       toneBlend
}

// NewResonatorBank creates a bank for the given sample rate. referencePitch
// is the A4 tuning in Hz and doubles as the initial fundamental.
func NewResonatorBank(sampleRate int, referencePitch float32) *ResonatorBank {
	if referencePitch <= 0 {
		referencePitch = 440
	}
	b := &ResonatorBank{
		stringConfig:   newStringConfig(referencePitch),
		sampleRate:     float32(sampleRate),
		referencePitch: referencePitch,
		velocity:       1,
	}
	b.Update()
	return b
}

// ReferencePitch returns the A4 tuning in Hz.
func (b *ResonatorBank) ReferencePitch() float32 {
	return b.referencePitch
}

// SetHighQuality switches between MaxModes and MaxModesHQ modes. All mode
// histories are cleared.
func (b *ResonatorBank) SetHighQuality(enabled bool) {
	b.highQuality = enabled
	b.dirty = true
	b.clearModes()
}

// ActiveModes returns the number of modes below Nyquist and the audible
// ceiling as of the last Update.
func (b *ResonatorBank) ActiveModes() int {
	return b.active
}

// Mode returns the committed state of mode index i.
func (b *ResonatorBank) Mode(i int) ModeState {
	if i < 0 || i >= MaxModesHQ {
		return ModeState{}
	}
	return ModeState{
		Frequency: b.freqs[i],
		Amplitude: b.amps[i],
		Gain:      b.gain[i],
		Feedback1: b.fb1[i],
		Feedback2: b.fb2[i],
	}
}

// Update recomputes the mode coefficients. It does nothing unless a setter
// ran since the previous call.
func (b *ResonatorBank) Update() {
	if !b.dirty {
		return
	}
	sr := float64(b.sampleRate)
	modes := b.modeCount()
	b.active = 0
	designed := 0
	for i := 0; i < modes; i++ {
		m, ok := b.designMode(i, sr)
		b.freqs[i] = float32(m.freq)
		designed = i + 1
		if !ok {
			break
		}
		r := m.radius
		b.amps[i] = float32(m.amp)
		b.gain[i] = float32(m.amp * r * math.Sin(m.omega))
		b.fb1[i] = float32(-2 * r * math.Cos(m.omega))
		b.fb2[i] = float32(r * r)
		b.active = i + 1
	}
	// Excluded modes report zero coefficients; only the first one keeps its
	// frequency so callers can see where the band limit cut in.
	clear(b.freqs[designed:])
	clear(b.amps[b.active:])
	clear(b.gain[b.active:])
	clear(b.fb1[b.active:])
	clear(b.fb2[b.active:])
	b.tone.tune(float64(b.frequency), sr)
	b.dirty = false
}

// NoteOn schedules the unit impulse for the next processed sample.
// velocity is in [0,1] and sets loudness and brightness.
func (b *ResonatorBank) NoteOn(velocity float32) {
	b.excitation = 1
	b.velocity = velocity
	b.releasing = false
}

// NoteOff only marks the string as releasing; the modes ring out naturally.
func (b *ResonatorBank) NoteOff() {
	b.releasing = true
}

// Releasing reports whether NoteOff was called since the last NoteOn.
func (b *ResonatorBank) Releasing() bool {
	return b.releasing
}

// Process renders one sample.
func (b *ResonatorBank) Process() float32 {
	modes := b.active
	if limit := b.modeCount(); modes > limit {
		modes = limit
	}

	exc := b.excitation
	var sum float32
	for i := 0; i < modes; i++ {
		y := exc*b.gain[i] - b.fb1[i]*b.y1[i] - b.fb2[i]*b.y2[i]
		y = flush(y)
		b.y2[i] = b.y1[i]
		b.y1[i] = y
		if b.muted(i) {
			continue
		}
		sum += y
	}
	b.excitation = 0

	return b.tone.process(outputScale*sum, b.velocity)
}

// Reset silences the bank without touching its parameters.
func (b *ResonatorBank) Reset() {
	b.clearModes()
	b.tone.reset()
	b.excitation = 0
	b.releasing = false
}

func (b *ResonatorBank) clearModes() {
	for i := range b.y1 {
		b.y1[i] = 0
		b.y2[i] = 0
	}
}
