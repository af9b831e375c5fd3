package guitar

import (
	"fmt"
	"strings"
)

// silenceThreshold ends a released voice once both its output and its gain
// fall to or below it.
const silenceThreshold = 1e-7

// Voice plays one note: a string model feeding a pickup, under a linear
// attack/release gain ramp.
type Voice struct {
	sampleRate int
	model      StringModel
	modelName  string
	pickup     *PickupFilter

	note           int
	velocity       float32
	bend           float32
	referencePitch float32
	cleanRetune    bool

	gain        float32
	attackStep  float32
	releaseStep float32

	active   bool
	released bool
	started  uint64
}

// NewVoice creates an idle voice configured from params.
func NewVoice(sampleRate int, params *Params) (*Voice, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be > 0: %d", sampleRate)
	}
	if params == nil {
		params = NewDefaultParams()
	}
	pickup, err := NewPickupFilter(sampleRate)
	if err != nil {
		return nil, err
	}
	v := &Voice{
		sampleRate:  sampleRate,
		pickup:      pickup,
		attackStep:  1 / (float32(sampleRate) / 40),
		releaseStep: 1 / (float32(sampleRate) / 5),
	}
	v.Apply(params)
	return v, nil
}

func newStringModel(name string, sampleRate int, referencePitch float32) StringModel {
	if strings.EqualFold(name, ModelOscillator) {
		return NewOscillatorBank(sampleRate, referencePitch)
	}
	return NewResonatorBank(sampleRate, referencePitch)
}

func normalizeModel(name string) string {
	if strings.EqualFold(name, ModelOscillator) {
		return ModelOscillator
	}
	return ModelModal
}

// Apply pushes params into the string and pickup and commits them.
// Switching Model replaces the string, silencing any ringing note.
func (v *Voice) Apply(p *Params) {
	name := normalizeModel(p.Model)
	v.referencePitch = p.ReferencePitch
	if v.model == nil || name != v.modelName {
		v.model = newStringModel(name, v.sampleRate, p.ReferencePitch)
		v.modelName = name
		v.active = false
		v.released = false
		v.gain = 0
	}

	m := v.model
	m.SetMaterial(p.Material)
	m.SetPosition(p.PluckPosition)
	m.SetDecay(p.Decay)
	m.SetDamping(p.Damping)
	m.SetWidth(p.PluckWidth)
	m.SetHarmonics(p.Harmonics)
	if osc, ok := m.(*OscillatorBank); ok {
		osc.SetCoupling(p.CouplingDetuneCents, p.CouplingGain)
	}
	if m.HighQuality() != p.HighQuality {
		m.SetHighQuality(p.HighQuality)
	}
	if v.active {
		m.SetFrequency(v.frequency())
	}
	m.Update()

	v.cleanRetune = p.CleanRetune
	v.pickup.SetPosition(p.PickupPosition)
	v.pickup.SetResponse(p.PickupFrequency, p.PickupQ, p.PickupPreset, p.PickupTone)
	if v.active {
		v.pickup.SetFrequency(v.frequency())
	}
}

func (v *Voice) frequency() float32 {
	return midiNoteToFreq(v.note, v.referencePitch, v.bend)
}

// NoteOn starts note with velocity in [0,1]. A voice still sounding is
// re-plucked: the envelope restarts from zero and its modes keep ringing
// underneath the new impulse.
func (v *Voice) NoteOn(note int, velocity float32) {
	v.note = note
	v.velocity = clamp01(velocity)
	v.released = false
	v.active = true
	v.gain = 0

	f := v.frequency()
	v.model.SetFrequency(f)
	v.model.Update()
	v.pickup.SetFrequency(f)
	if v.cleanRetune {
		v.pickup.ResetInterpolation()
	}
	v.model.NoteOn(v.velocity)
}

// Release starts the release ramp.
func (v *Voice) Release() {
	if !v.active {
		return
	}
	v.released = true
	v.model.NoteOff()
}

// SetPitchBend retunes a sounding note by semitones.
func (v *Voice) SetPitchBend(semitones float32) {
	if semitones == v.bend {
		return
	}
	v.bend = semitones
	if !v.active {
		return
	}
	f := v.frequency()
	v.model.SetFrequency(f)
	v.model.Update()
	v.pickup.SetFrequency(f)
}

// IsActive reports whether the voice still produces sound.
func (v *Voice) IsActive() bool {
	return v.active
}

// Released reports whether the note was released.
func (v *Voice) Released() bool {
	return v.released
}

// Note returns the current MIDI note.
func (v *Voice) Note() int {
	return v.note
}

// Gain returns the current envelope gain.
func (v *Voice) Gain() float32 {
	return v.gain
}

// ProcessTo adds the voice output to dst.
func (v *Voice) ProcessTo(dst []float32) {
	if !v.active {
		return
	}
	for i := range dst {
		sample := v.pickup.Process(v.model.Process()) * v.gain
		dst[i] += sample

		if !v.released {
			if v.gain < 1 {
				v.gain += v.attackStep
				if v.gain > 1 {
					v.gain = 1
				}
			}
			continue
		}
		if v.gain > 0 {
			v.gain -= v.releaseStep
			if v.gain < 0 {
				v.gain = 0
			}
		}
		if absf(sample) <= silenceThreshold && v.gain <= silenceThreshold {
			v.stop()
			return
		}
	}
}

func (v *Voice) stop() {
	v.active = false
	v.released = false
	v.gain = 0
	v.model.Reset()
	v.pickup.Reset()
}
