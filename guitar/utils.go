package guitar

import (
	"math"

	"github.com/cwbudde/algo-approx"
	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
)

// midiNoteToFreq converts a MIDI note plus a pitch bend in semitones to Hz,
// tuned so that note 69 sounds at reference.
func midiNoteToFreq(note int, reference float32, bendSemitones float32) float32 {
	const a4Note = 69
	exponent := (float32(note-a4Note) + bendSemitones) / 12.0
	return reference * pow2Approx(exponent)
}

func pow2Approx(x float32) float32 {
	const ln2 = 0.69314718055994530942
	return approx.FastExp(x * ln2)
}

func centsToRatio(cents float32) float32 {
	return pow2Approx(cents / 1200.0)
}

func isFinite(x float32) bool {
	return !math.IsNaN(float64(x)) && !math.IsInf(float64(x), 0)
}

func clamp01(x float32) float32 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

func flush(x float32) float32 {
	return float32(dspcore.FlushDenormals(float64(x)))
}
