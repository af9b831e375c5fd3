package guitar

import (
	"fmt"
	"strings"
)

// Model names accepted by Params.Model.
const (
	ModelModal      = "modal"
	ModelOscillator = "oscillator"
)

// Params holds the instrument parameters shared by every voice.
type Params struct {
	Material      float32 // 0 = nylon, 1 = steel
	PluckPosition float32 // fraction of string length, strictly inside (0,1)
	Decay         float32
	Damping       float32
	PluckWidth    float32
	Harmonics     bool
	HighQuality   bool

	PickupPosition  float32 // fraction of string length
	PickupPreset    PickupPreset
	PickupTone      float32
	PickupFrequency float32 // custom preset only
	PickupQ         float32 // custom preset only

	ReferencePitch float32 // A4 in Hz
	PitchBendRange float32 // semitones at full wheel deflection
	OutputGain     float32
	Polyphony      int

	// Model selects the string strategy: ModelModal or ModelOscillator.
	Model string
	// Detune and coupling of the oscillator model's partner partials.
	CouplingDetuneCents float32
	CouplingGain        float32

	// CleanRetune clears the pickup's interpolation memory on every note-on.
	CleanRetune bool

	CabinetIRWavPath string
}

// NewDefaultParams creates default parameters.
func NewDefaultParams() *Params {
	return &Params{
		Material:            1.0,
		PluckPosition:       0.23,
		Decay:               0.04,
		Damping:             0.08,
		PluckWidth:          0.5,
		Harmonics:           false,
		HighQuality:         false,
		PickupPosition:      6.375 / 25.5,
		PickupPreset:        PickupWarmSingleCoil,
		PickupTone:          1.0,
		PickupFrequency:     5000,
		PickupQ:             0.707,
		ReferencePitch:      440,
		PitchBendRange:      2,
		OutputGain:          1.0,
		Polyphony:           6,
		Model:               ModelModal,
		CouplingDetuneCents: 1.5,
		CouplingGain:        0.35,
		CleanRetune:         false,
		CabinetIRWavPath:    "",
	}
}

// Clone returns an independent copy.
func (p *Params) Clone() *Params {
	if p == nil {
		return NewDefaultParams()
	}
	c := *p
	return &c
}

// Validate reports parameter values that would break the synthesis
// preconditions. It is meant for the host boundary, not the audio path.
func (p *Params) Validate() error {
	if p == nil {
		return fmt.Errorf("nil params")
	}
	if p.Material < 0 || p.Material > 1 {
		return fmt.Errorf("material must be in [0,1]")
	}
	if p.PluckPosition <= 0 || p.PluckPosition >= 1 {
		return fmt.Errorf("pluck_position must be in (0,1)")
	}
	if p.Decay < 0 {
		return fmt.Errorf("decay must be >= 0")
	}
	if p.Damping < 0 {
		return fmt.Errorf("damping must be >= 0")
	}
	if p.PluckWidth <= 0 {
		return fmt.Errorf("pluck_width must be > 0")
	}
	if p.PickupPosition < 0 || p.PickupPosition >= 1 {
		return fmt.Errorf("pickup_position must be in [0,1)")
	}
	if !p.PickupPreset.Valid() {
		return fmt.Errorf("unknown pickup preset %d", int(p.PickupPreset))
	}
	if p.PickupPreset == PickupCustom {
		if p.PickupFrequency <= 0 {
			return fmt.Errorf("pickup_frequency must be > 0")
		}
		if p.PickupQ <= 0 {
			return fmt.Errorf("pickup_q must be > 0")
		}
	}
	if p.ReferencePitch <= 0 {
		return fmt.Errorf("reference_pitch must be > 0")
	}
	if p.PitchBendRange < 0 {
		return fmt.Errorf("pitch_bend_range must be >= 0")
	}
	if p.OutputGain <= 0 {
		return fmt.Errorf("output_gain must be > 0")
	}
	if p.Polyphony < 0 {
		return fmt.Errorf("polyphony must be >= 0")
	}
	switch strings.ToLower(p.Model) {
	case "", ModelModal, ModelOscillator:
	default:
		return fmt.Errorf("unknown model %q", p.Model)
	}
	if p.CouplingGain < 0 {
		return fmt.Errorf("coupling_gain must be >= 0")
	}
	return nil
}
