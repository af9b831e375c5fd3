package analysis

import (
	"fmt"
	"math"
	"math/cmplx"

	algofft "github.com/cwbudde/algo-fft"
)

// Spectrum is a single-frame magnitude spectrum of a Hann-windowed segment.
type Spectrum struct {
	SampleRate int
	FFTSize    int
	Magnitude  []float64 // bins 0..FFTSize/2
}

// BinHz returns the width of one bin in Hz.
func (s Spectrum) BinHz() float64 {
	return float64(s.SampleRate) / float64(s.FFTSize)
}

// MagnitudeSpectrum analyzes the first fftSize samples of x (zero-padded when
// shorter). fftSize must be a power of two.
func MagnitudeSpectrum(x []float64, sampleRate int, fftSize int) (Spectrum, error) {
	if sampleRate <= 0 {
		return Spectrum{}, fmt.Errorf("sample rate must be > 0: %d", sampleRate)
	}
	if fftSize < 2 || fftSize&(fftSize-1) != 0 {
		return Spectrum{}, fmt.Errorf("fft size must be a power of two: %d", fftSize)
	}
	plan, err := algofft.NewPlanReal64(fftSize)
	if err != nil {
		return Spectrum{}, fmt.Errorf("fft plan: %w", err)
	}

	n := len(x)
	if n > fftSize {
		n = fftSize
	}
	buf := make([]float64, fftSize)
	for i := 0; i < n; i++ {
		w := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(fftSize-1))
		buf[i] = x[i] * w
	}
	spec := make([]complex128, fftSize/2+1)
	if err := plan.Forward(spec, buf); err != nil {
		return Spectrum{}, fmt.Errorf("fft: %w", err)
	}

	mag := make([]float64, len(spec))
	for k, c := range spec {
		mag[k] = cmplx.Abs(c)
	}
	return Spectrum{SampleRate: sampleRate, FFTSize: fftSize, Magnitude: mag}, nil
}

// PeakNear returns the interpolated frequency and magnitude of the strongest
// bin within spanHz of centerHz.
func (s Spectrum) PeakNear(centerHz, spanHz float64) (float64, float64) {
	binHz := s.BinHz()
	lo := int(math.Floor((centerHz - spanHz) / binHz))
	hi := int(math.Ceil((centerHz + spanHz) / binHz))
	if lo < 1 {
		lo = 1
	}
	if hi > len(s.Magnitude)-2 {
		hi = len(s.Magnitude) - 2
	}
	if lo > hi {
		return 0, 0
	}

	best := lo
	for k := lo + 1; k <= hi; k++ {
		if s.Magnitude[k] > s.Magnitude[best] {
			best = k
		}
	}

	// Parabolic interpolation on log magnitudes.
	a := linToDB(s.Magnitude[best-1])
	b := linToDB(s.Magnitude[best])
	c := linToDB(s.Magnitude[best+1])
	offset := 0.0
	if den := a - 2*b + c; den < 0 {
		offset = 0.5 * (a - c) / den
	}
	return (float64(best) + offset) * binHz, s.Magnitude[best]
}

// Partial is one measured harmonic of a tone.
type Partial struct {
	Number    int
	Frequency float64
	Magnitude float64
}

// Partials locates harmonics 1..count of a tone with fundamental f0, each
// searched within a quarter of f0 around its ideal position. Harmonics above
// Nyquist are omitted.
func (s Spectrum) Partials(f0 float64, count int) []Partial {
	if f0 <= 0 || count <= 0 {
		return nil
	}
	nyquist := float64(s.SampleRate) / 2
	out := make([]Partial, 0, count)
	for n := 1; n <= count; n++ {
		target := f0 * float64(n)
		if target >= nyquist {
			break
		}
		freq, mag := s.PeakNear(target, f0/4)
		out = append(out, Partial{Number: n, Frequency: freq, Magnitude: mag})
	}
	return out
}

// CentsBetween returns the interval from a to b in cents.
func CentsBetween(a, b float64) float64 {
	if a <= 0 || b <= 0 {
		return math.NaN()
	}
	return 1200 * math.Log2(b/a)
}
