package guitar

import "testing"

func TestDefaultParamsAreValid(t *testing.T) {
	p := NewDefaultParams()
	if err := p.Validate(); err != nil {
		t.Fatalf("default params invalid: %v", err)
	}
	if p.PickupPosition != 0.25 {
		t.Fatalf("unexpected default pickup position %f", p.PickupPosition)
	}
}

func TestParamsValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Params)
	}{
		{"material", func(p *Params) { p.Material = 1.5 }},
		{"pluck at bridge", func(p *Params) { p.PluckPosition = 0 }},
		{"negative decay", func(p *Params) { p.Decay = -1 }},
		{"negative damping", func(p *Params) { p.Damping = -0.1 }},
		{"zero width", func(p *Params) { p.PluckWidth = 0 }},
		{"pickup position", func(p *Params) { p.PickupPosition = 1 }},
		{"preset", func(p *Params) { p.PickupPreset = PickupPreset(-1) }},
		{"custom q", func(p *Params) { p.PickupPreset = PickupCustom; p.PickupQ = 0 }},
		{"custom freq", func(p *Params) { p.PickupPreset = PickupCustom; p.PickupFrequency = -5 }},
		{"reference pitch", func(p *Params) { p.ReferencePitch = 0 }},
		{"output gain", func(p *Params) { p.OutputGain = 0 }},
		{"polyphony", func(p *Params) { p.Polyphony = -2 }},
		{"model", func(p *Params) { p.Model = "waveguide" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := NewDefaultParams()
			tc.mutate(p)
			if err := p.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
	var nilParams *Params
	if err := nilParams.Validate(); err == nil {
		t.Fatalf("expected error for nil params")
	}
}

func TestParamsCloneIsIndependent(t *testing.T) {
	p := NewDefaultParams()
	c := p.Clone()
	c.Decay = 0.9
	if p.Decay == c.Decay {
		t.Fatalf("clone shares state with the original")
	}
}
