package guitar

import "fmt"

// DefaultPolyphony is the voice count used when neither the constructor nor
// Params asks for one.
const DefaultPolyphony = 6

const pitchBendCenter = 8192

// Guitar is the polyphonic engine: a fixed pool of voices, a shared
// parameter set and an optional cabinet stage.
type Guitar struct {
	sampleRate int
	params     *Params
	pending    *Params

	voices  []*Voice
	cabinet *CabinetConvolver
	useCab  bool

	bend  float32
	clock uint64
}

// NewGuitar creates an engine. polyphony <= 0 falls back to
// params.Polyphony, then DefaultPolyphony.
func NewGuitar(sampleRate int, polyphony int, params *Params) (*Guitar, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be > 0: %d", sampleRate)
	}
	params = params.Clone()
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if polyphony <= 0 {
		polyphony = params.Polyphony
	}
	if polyphony <= 0 {
		polyphony = DefaultPolyphony
	}

	g := &Guitar{
		sampleRate: sampleRate,
		params:     params,
		voices:     make([]*Voice, 0, polyphony),
		cabinet:    NewCabinetConvolver(sampleRate),
	}
	for i := 0; i < polyphony; i++ {
		v, err := NewVoice(sampleRate, params)
		if err != nil {
			return nil, err
		}
		g.voices = append(g.voices, v)
	}
	if params.CabinetIRWavPath != "" {
		if err := g.cabinet.SetIRFromWAV(params.CabinetIRWavPath); err != nil {
			return nil, fmt.Errorf("load cabinet IR: %w", err)
		}
		g.useCab = true
	}
	return g, nil
}

// SampleRate returns the engine sample rate.
func (g *Guitar) SampleRate() int {
	return g.sampleRate
}

// Params returns a copy of the parameters currently in effect.
func (g *Guitar) Params() *Params {
	return g.params.Clone()
}

// Polyphony returns the size of the voice pool.
func (g *Guitar) Polyphony() int {
	return len(g.voices)
}

// SetParams schedules p for the start of the next block. The cabinet IR
// path is not reloaded; use SetCabinetIR for that.
func (g *Guitar) SetParams(p *Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	g.pending = p.Clone()
	return nil
}

// SetCabinetIR replaces the cabinet impulse response. A nil IR bypasses the
// cabinet stage.
func (g *Guitar) SetCabinetIR(ir []float32) error {
	if len(ir) == 0 {
		g.useCab = false
		return g.cabinet.SetIR(nil)
	}
	if err := g.cabinet.SetIR(ir); err != nil {
		return err
	}
	g.useCab = true
	return nil
}

// SetCabinetIRFromWAV loads the cabinet impulse response from a WAV file.
func (g *Guitar) SetCabinetIRFromWAV(path string) error {
	if err := g.cabinet.SetIRFromWAV(path); err != nil {
		return err
	}
	g.useCab = true
	return nil
}

// NoteOn plucks note with MIDI velocity 0..127. Velocity 0 is a note-off.
// A sounding voice on the same note is re-plucked; otherwise a free voice is
// taken, and failing that the oldest voice is stolen.
func (g *Guitar) NoteOn(note int, velocity int) {
	if velocity <= 0 {
		g.NoteOff(note)
		return
	}
	if velocity > 127 {
		velocity = 127
	}
	v := g.allocate(note)
	g.clock++
	v.started = g.clock
	v.SetPitchBend(g.bend)
	v.NoteOn(note, float32(velocity)/127)
}

func (g *Guitar) allocate(note int) *Voice {
	for _, v := range g.voices {
		if v.IsActive() && v.Note() == note {
			return v
		}
	}
	for _, v := range g.voices {
		if !v.IsActive() {
			return v
		}
	}
	oldest := g.voices[0]
	for _, v := range g.voices[1:] {
		if v.started < oldest.started {
			oldest = v
		}
	}
	return oldest
}

// NoteOff releases every held voice playing note.
func (g *Guitar) NoteOff(note int) {
	for _, v := range g.voices {
		if v.IsActive() && !v.Released() && v.Note() == note {
			v.Release()
		}
	}
}

// AllNotesOff releases every voice.
func (g *Guitar) AllNotesOff() {
	for _, v := range g.voices {
		v.Release()
	}
}

// PitchBend applies a 14-bit MIDI pitch wheel value (0..16383, centre 8192)
// scaled to Params.PitchBendRange semitones.
func (g *Guitar) PitchBend(value int) {
	if value < 0 {
		value = 0
	}
	if value > 16383 {
		value = 16383
	}
	g.SetPitchBendSemitones(float32(value-pitchBendCenter) / pitchBendCenter * g.params.PitchBendRange)
}

// SetPitchBendSemitones retunes all voices by a bend in semitones.
func (g *Guitar) SetPitchBendSemitones(semitones float32) {
	g.bend = semitones
	for _, v := range g.voices {
		v.SetPitchBend(semitones)
	}
}

// ActiveVoices counts voices that still produce sound.
func (g *Guitar) ActiveVoices() int {
	n := 0
	for _, v := range g.voices {
		if v.IsActive() {
			n++
		}
	}
	return n
}

// Process renders numFrames mono samples into a new slice.
func (g *Guitar) Process(numFrames int) []float32 {
	out := make([]float32, numFrames)
	g.ProcessTo(out)
	return out
}

// ProcessTo overwrites dst with the next len(dst) mono samples.
func (g *Guitar) ProcessTo(dst []float32) {
	if g.pending != nil {
		g.params = g.pending
		g.pending = nil
		for _, v := range g.voices {
			v.Apply(g.params)
		}
	}

	for i := range dst {
		dst[i] = 0
	}
	for _, v := range g.voices {
		v.ProcessTo(dst)
	}

	gain := g.params.OutputGain
	for i := range dst {
		dst[i] *= gain
	}
	if g.useCab {
		g.cabinet.ProcessInPlace(dst)
	}
}

// Reset silences every voice and clears the cabinet tail.
func (g *Guitar) Reset() {
	for _, v := range g.voices {
		if v.IsActive() {
			v.stop()
		}
	}
	g.cabinet.Reset()
}
