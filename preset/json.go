package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwbudde/algo-guitar/guitar"
)

// File is the JSON schema for guitar presets. Absent fields keep the
// defaults.
type File struct {
	Material      *float32 `json:"material,omitempty"`
	PluckPosition *float32 `json:"pluck_position,omitempty"`
	Decay         *float32 `json:"decay,omitempty"`
	Damping       *float32 `json:"damping,omitempty"`
	PluckWidth    *float32 `json:"pluck_width,omitempty"`
	Harmonics     *bool    `json:"harmonics,omitempty"`
	HighQuality   *bool    `json:"high_quality,omitempty"`

	PickupPosition  *float32 `json:"pickup_position,omitempty"`
	PickupPreset    string   `json:"pickup_preset,omitempty"`
	PickupTone      *float32 `json:"pickup_tone,omitempty"`
	PickupFrequency *float32 `json:"pickup_frequency,omitempty"`
	PickupQ         *float32 `json:"pickup_q,omitempty"`

	ReferencePitch *float32 `json:"reference_pitch,omitempty"`
	PitchBendRange *float32 `json:"pitch_bend_range,omitempty"`
	OutputGain     *float32 `json:"output_gain,omitempty"`
	Polyphony      *int     `json:"polyphony,omitempty"`

	Model               string   `json:"model,omitempty"`
	CouplingDetuneCents *float32 `json:"coupling_detune_cents,omitempty"`
	CouplingGain        *float32 `json:"coupling_gain,omitempty"`
	CleanRetune         *bool    `json:"clean_retune,omitempty"`

	CabinetIRWavPath string `json:"cabinet_ir_wav_path,omitempty"`
}

// LoadJSON loads a preset JSON file and applies it on top of default params.
func LoadJSON(path string) (*guitar.Params, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	p := guitar.NewDefaultParams()
	if err := ApplyFile(p, &f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if p.CabinetIRWavPath != "" && !filepath.IsAbs(p.CabinetIRWavPath) {
		base := filepath.Dir(path)
		p.CabinetIRWavPath = filepath.Clean(filepath.Join(base, p.CabinetIRWavPath))
	}
	return p, nil
}

// ApplyFile applies a parsed preset file onto an existing params object and
// validates the result.
func ApplyFile(dst *guitar.Params, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination params")
	}
	if f == nil {
		return nil
	}

	setf := func(dst *float32, src *float32) {
		if src != nil {
			*dst = *src
		}
	}
	setb := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}

	setf(&dst.Material, f.Material)
	setf(&dst.PluckPosition, f.PluckPosition)
	setf(&dst.Decay, f.Decay)
	setf(&dst.Damping, f.Damping)
	setf(&dst.PluckWidth, f.PluckWidth)
	setb(&dst.Harmonics, f.Harmonics)
	setb(&dst.HighQuality, f.HighQuality)

	setf(&dst.PickupPosition, f.PickupPosition)
	if f.PickupPreset != "" {
		preset, err := guitar.ParsePickupPreset(f.PickupPreset)
		if err != nil {
			return err
		}
		dst.PickupPreset = preset
	}
	setf(&dst.PickupTone, f.PickupTone)
	setf(&dst.PickupFrequency, f.PickupFrequency)
	setf(&dst.PickupQ, f.PickupQ)

	setf(&dst.ReferencePitch, f.ReferencePitch)
	setf(&dst.PitchBendRange, f.PitchBendRange)
	setf(&dst.OutputGain, f.OutputGain)
	if f.Polyphony != nil {
		dst.Polyphony = *f.Polyphony
	}

	if f.Model != "" {
		dst.Model = strings.ToLower(strings.TrimSpace(f.Model))
	}
	setf(&dst.CouplingDetuneCents, f.CouplingDetuneCents)
	setf(&dst.CouplingGain, f.CouplingGain)
	setb(&dst.CleanRetune, f.CleanRetune)

	if f.CabinetIRWavPath != "" {
		dst.CabinetIRWavPath = strings.TrimSpace(f.CabinetIRWavPath)
	}

	return dst.Validate()
}

// FromParams builds a fully populated preset file from params.
func FromParams(p *guitar.Params) *File {
	f32 := func(v float32) *float32 { return &v }
	b := func(v bool) *bool { return &v }
	poly := p.Polyphony
	return &File{
		Material:            f32(p.Material),
		PluckPosition:       f32(p.PluckPosition),
		Decay:               f32(p.Decay),
		Damping:             f32(p.Damping),
		PluckWidth:          f32(p.PluckWidth),
		Harmonics:           b(p.Harmonics),
		HighQuality:         b(p.HighQuality),
		PickupPosition:      f32(p.PickupPosition),
		PickupPreset:        p.PickupPreset.String(),
		PickupTone:          f32(p.PickupTone),
		PickupFrequency:     f32(p.PickupFrequency),
		PickupQ:             f32(p.PickupQ),
		ReferencePitch:      f32(p.ReferencePitch),
		PitchBendRange:      f32(p.PitchBendRange),
		OutputGain:          f32(p.OutputGain),
		Polyphony:           &poly,
		Model:               p.Model,
		CouplingDetuneCents: f32(p.CouplingDetuneCents),
		CouplingGain:        f32(p.CouplingGain),
		CleanRetune:         b(p.CleanRetune),
		CabinetIRWavPath:    p.CabinetIRWavPath,
	}
}

// SaveJSON writes params as an indented preset file.
func SaveJSON(path string, p *guitar.Params) error {
	if p == nil {
		return fmt.Errorf("nil params")
	}
	b, err := json.MarshalIndent(FromParams(p), "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, b, 0o644)
}
