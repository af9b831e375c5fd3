package analysis

import (
	"fmt"
	"math"
)

// ToneMetrics extends Metrics with per-partial pitch and level errors of a
// plucked tone with a known fundamental.
type ToneMetrics struct {
	Metrics

	FundamentalHz      float64 `json:"fundamental_hz"`
	RefFundamentalHz   float64 `json:"ref_fundamental_hz"`
	CandFundamentalHz  float64 `json:"cand_fundamental_hz"`
	PitchErrorCents    float64 `json:"pitch_error_cents"`
	PartialCentsRMSE   float64 `json:"partial_cents_rmse"`
	PartialLevelRMSEDB float64 `json:"partial_level_rmse_db"`
	Partials           int     `json:"partials"`
}

// CompareTone runs Compare and additionally measures the first partials of
// both signals around f0.
func CompareTone(reference []float64, candidate []float64, sampleRate int, f0 float64, partials int) (ToneMetrics, error) {
	tm := ToneMetrics{Metrics: Compare(reference, candidate, sampleRate), FundamentalHz: f0}
	if f0 <= 0 {
		return tm, fmt.Errorf("fundamental must be > 0: %f", f0)
	}
	if partials <= 0 {
		partials = 8
	}

	fftSize := 1 << 14
	if float64(sampleRate)/float64(fftSize) > f0/8 {
		return tm, fmt.Errorf("fundamental %.2f Hz too low for analysis at %d Hz", f0, sampleRate)
	}
	ref := trimLeadingSilence(reference, 1e-6)
	cand := trimLeadingSilence(candidate, 1e-6)
	rs, err := MagnitudeSpectrum(ref, sampleRate, fftSize)
	if err != nil {
		return tm, err
	}
	cs, err := MagnitudeSpectrum(cand, sampleRate, fftSize)
	if err != nil {
		return tm, err
	}

	rp := rs.Partials(f0, partials)
	cp := cs.Partials(f0, partials)
	n := minInt(len(rp), len(cp))
	if n == 0 {
		return tm, nil
	}
	tm.RefFundamentalHz = rp[0].Frequency
	tm.CandFundamentalHz = cp[0].Frequency
	tm.PitchErrorCents = CentsBetween(rp[0].Frequency, cp[0].Frequency)

	// Levels are relative to each fundamental so overall gain cancels.
	refBase := linToDB(rp[0].Magnitude)
	candBase := linToDB(cp[0].Magnitude)
	var sumCents, sumDB float64
	counted := 0
	for i := 0; i < n; i++ {
		c := CentsBetween(rp[i].Frequency, cp[i].Frequency)
		if !isFinite(c) {
			continue
		}
		d := (linToDB(rp[i].Magnitude) - refBase) - (linToDB(cp[i].Magnitude) - candBase)
		sumCents += c * c
		sumDB += d * d
		counted++
	}
	if counted > 0 {
		tm.PartialCentsRMSE = math.Sqrt(sumCents / float64(counted))
		tm.PartialLevelRMSEDB = math.Sqrt(sumDB / float64(counted))
	}
	tm.Partials = counted
	return tm, nil
}

// Inharmonicity estimates the stretch coefficient B of f_n = n*f0*sqrt(1+B*n^2)
// from measured partials by least squares on (f_n/(n*f1))^2 - 1 ~ B*(n^2-1).
func Inharmonicity(partials []Partial) float64 {
	if len(partials) < 2 || partials[0].Frequency <= 0 {
		return 0
	}
	f1 := partials[0].Frequency
	var num, den float64
	for _, p := range partials[1:] {
		if p.Frequency <= 0 {
			continue
		}
		n := float64(p.Number)
		r := p.Frequency / (n * f1)
		x := n*n - 1
		num += x * (r*r - 1)
		den += x * x
	}
	if den == 0 {
		return 0
	}
	return num / den
}
