package main

import (
	"encoding/json"
	"errors"
	"math"
	"os"

	"github.com/cwbudde/algo-guitar/guitar"
	"github.com/cwbudde/algo-guitar/internal/fitcommon"
)

type knobDef struct {
	Name  string
	Min   float64
	Max   float64
	IsInt bool
}

type candidate struct {
	Vals []float64
}

const (
	defaultVelocity     = 100
	defaultReleaseAfter = 2.0
)

func knobDefs() []knobDef {
	return []knobDef{
		{Name: "output_gain", Min: 0.2, Max: 2.0},
		{Name: "material", Min: 0.0, Max: 1.0},
		{Name: "pluck_position", Min: 0.05, Max: 0.5},
		{Name: "decay", Min: 0.0, Max: 1.0},
		{Name: "damping", Min: 0.0, Max: 1.0},
		{Name: "pluck_width", Min: 0.05, Max: 1.0},
		{Name: "pickup_position", Min: 0.02, Max: 0.5},
		{Name: "pickup_tone", Min: 0.0, Max: 1.0},
		{Name: "render.release_after", Min: 0.2, Max: 4.0},
		{Name: "render.velocity", Min: 40, Max: 127, IsInt: true},
	}
}

func initCandidate(base *guitar.Params) ([]knobDef, candidate) {
	if base == nil {
		base = guitar.NewDefaultParams()
	}
	defs := knobDefs()
	vals := []float64{
		float64(base.OutputGain),
		float64(base.Material),
		float64(base.PluckPosition),
		float64(base.Decay),
		float64(base.Damping),
		float64(base.PluckWidth),
		float64(base.PickupPosition),
		float64(base.PickupTone),
		defaultReleaseAfter,
		defaultVelocity,
	}
	for i := range vals {
		vals[i] = fitcommon.Clamp(vals[i], defs[i].Min, defs[i].Max)
	}
	return defs, candidate{Vals: vals}
}

// applyCandidate maps knob values onto a copy of base and returns the
// render velocity and release time alongside it.
func applyCandidate(base *guitar.Params, defs []knobDef, c candidate) (*guitar.Params, int, float64) {
	p := base.Clone()
	velocity := defaultVelocity
	releaseAfter := defaultReleaseAfter

	for i, def := range defs {
		v := c.Vals[i]
		switch def.Name {
		case "output_gain":
			p.OutputGain = float32(v)
		case "material":
			p.Material = float32(v)
		case "pluck_position":
			p.PluckPosition = float32(v)
		case "decay":
			p.Decay = float32(v)
		case "damping":
			p.Damping = float32(v)
		case "pluck_width":
			p.PluckWidth = float32(v)
		case "pickup_position":
			p.PickupPosition = float32(v)
		case "pickup_tone":
			p.PickupTone = float32(v)
		case "render.release_after":
			releaseAfter = v
		case "render.velocity":
			velocity = int(math.Round(v))
		}
	}

	velocity = min(max(velocity, 1), 127)
	releaseAfter = math.Max(releaseAfter, 0.05)
	return p, velocity, releaseAfter
}

func fromNormalized(pos []float64, defs []knobDef) candidate {
	vals := make([]float64, len(defs))
	for i := range defs {
		x := 0.0
		if i < len(pos) {
			x = fitcommon.Clamp(pos[i], 0, 1)
		}
		v := defs[i].Min + x*(defs[i].Max-defs[i].Min)
		if defs[i].IsInt {
			v = math.Round(v)
		}
		vals[i] = v
	}
	return candidate{Vals: vals}
}

func cloneCandidate(c candidate) candidate {
	vals := make([]float64, len(c.Vals))
	copy(vals, c.Vals)
	return candidate{Vals: vals}
}

func loadCandidateFromReport(path string, defs []knobDef, fallback candidate) (candidate, bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fallback, false, nil
		}
		return fallback, false, err
	}
	var rep runReport
	if err := json.Unmarshal(b, &rep); err != nil {
		return fallback, false, err
	}
	if len(rep.BestKnobs) == 0 {
		return fallback, false, nil
	}

	vals := make([]float64, len(fallback.Vals))
	copy(vals, fallback.Vals)
	updated := false
	for i, d := range defs {
		if v, ok := rep.BestKnobs[d.Name]; ok {
			vals[i] = fitcommon.Clamp(v, d.Min, d.Max)
			if d.IsInt {
				vals[i] = math.Round(vals[i])
			}
			updated = true
		}
	}
	if !updated {
		return fallback, false, nil
	}
	return candidate{Vals: vals}, true, nil
}
