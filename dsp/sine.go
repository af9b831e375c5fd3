package dsp

import "math"

// SineTableSize is the number of points in one stored sine cycle.
const SineTableSize = 2048

var sineTable = func() [SineTableSize + 1]float32 {
	var t [SineTableSize + 1]float32
	for i := range t {
		t[i] = float32(math.Sin(2 * math.Pi * float64(i) / SineTableSize))
	}
	return t
}()

// SineTable is a phase-accumulating wavetable sine oscillator with linear
// interpolation. The table is shared; an oscillator only holds its phase.
type SineTable struct {
	sampleRate float32
	freq       float32
	step       float32
	pos        float32
}

// NewSineTable creates an oscillator for the given sample rate.
func NewSineTable(sampleRate int) *SineTable {
	s := &SineTable{}
	s.Init(sampleRate)
	return s
}

// Init prepares a zero-valued oscillator in place.
func (s *SineTable) Init(sampleRate int) {
	s.sampleRate = float32(sampleRate)
	s.pos = 0
	s.SetFrequency(s.freq)
}

// SetFrequency sets the oscillator frequency in Hz; the phase is kept.
func (s *SineTable) SetFrequency(freq float32) {
	s.freq = freq
	if s.sampleRate <= 0 {
		s.step = 0
		return
	}
	s.step = freq * SineTableSize / s.sampleRate
}

// Frequency returns the current frequency in Hz.
func (s *SineTable) Frequency() float32 {
	return s.freq
}

// Reset rewinds the phase to zero.
func (s *SineTable) Reset() {
	s.pos = 0
}

// Process returns the current sample and advances the phase.
func (s *SineTable) Process() float32 {
	i := int(s.pos)
	frac := s.pos - float32(i)
	out := sineTable[i] + frac*(sineTable[i+1]-sineTable[i])

	s.pos += s.step
	for s.pos >= SineTableSize {
		s.pos -= SineTableSize
	}
	for s.pos < 0 {
		s.pos += SineTableSize
	}
	return out
}
