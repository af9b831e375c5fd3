package guitar

import (
	"fmt"
	"os"

	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"
	algofft "github.com/cwbudde/algo-fft"
	"github.com/cwbudde/wav"
)

const cabinetPartSize = 128

// CabinetConvolver applies a mono speaker-cabinet impulse response with
// partitioned overlap-add convolution. Input is buffered into fixed
// partitions, so output lags input by Latency() samples. Processing does
// not allocate.
type CabinetConvolver struct {
	sampleRate int
	partSize   int
	irLen      int

	ola *overlapAdd

	in   []float32
	out  []float32
	fill int
}

// NewCabinetConvolver creates a convolver holding an identity IR.
func NewCabinetConvolver(sampleRate int) *CabinetConvolver {
	c := &CabinetConvolver{
		sampleRate: sampleRate,
		partSize:   cabinetPartSize,
		in:         make([]float32, cabinetPartSize),
		out:        make([]float32, cabinetPartSize),
	}
	_ = c.SetIR([]float32{1.0})
	return c
}

// Latency returns the fixed delay in samples introduced by the partition
// buffer.
func (c *CabinetConvolver) Latency() int {
	return c.partSize
}

// IRLen returns the length of the active impulse response.
func (c *CabinetConvolver) IRLen() int {
	return c.irLen
}

// ProcessInPlace convolves buf with the IR, overwriting it.
func (c *CabinetConvolver) ProcessInPlace(buf []float32) {
	for i, x := range buf {
		c.in[c.fill] = x
		buf[i] = c.out[c.fill]
		c.fill++
		if c.fill < c.partSize {
			continue
		}
		c.fill = 0
		if err := c.ola.processBlock(c.out, c.in); err != nil {
			// Pass the block through rather than drop it.
			copy(c.out, c.in)
		}
	}
}

// Process returns the convolved copy of input.
func (c *CabinetConvolver) Process(input []float32) []float32 {
	out := make([]float32, len(input))
	copy(out, input)
	c.ProcessInPlace(out)
	return out
}

// SetIR replaces the impulse response. An empty IR restores the identity.
func (c *CabinetConvolver) SetIR(ir []float32) error {
	if len(ir) == 0 {
		ir = []float32{1.0}
	}
	ola, err := newOverlapAdd(ir, c.partSize)
	if err != nil {
		return fmt.Errorf("cabinet convolver: %w", err)
	}
	c.ola = ola
	c.irLen = len(ir)
	c.Reset()
	return nil
}

// SetIRFromWAV loads an IR from a WAV file, downmixing to mono and
// resampling to the engine rate when needed.
func (c *CabinetConvolver) SetIRFromWAV(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return fmt.Errorf("invalid wav file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return err
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return fmt.Errorf("invalid wav buffer: %s", path)
	}

	numCh := buf.Format.NumChannels
	srcRate := buf.Format.SampleRate
	if srcRate <= 0 {
		return fmt.Errorf("invalid wav sample-rate: %d", srcRate)
	}
	frames := len(buf.Data) / numCh
	if frames == 0 {
		return fmt.Errorf("empty wav data: %s", path)
	}

	mono := make([]float64, frames)
	for i := range frames {
		var sum float64
		for ch := 0; ch < numCh; ch++ {
			sum += float64(buf.Data[i*numCh+ch])
		}
		mono[i] = sum / float64(numCh)
	}

	if srcRate != c.sampleRate {
		r, err := dspresample.NewForRates(
			float64(srcRate),
			float64(c.sampleRate),
			dspresample.WithQuality(dspresample.QualityBest),
		)
		if err != nil {
			return err
		}
		mono = r.Process(mono)
	}

	ir := make([]float32, len(mono))
	for i, v := range mono {
		ir[i] = float32(v)
	}
	return c.SetIR(ir)
}

// Reset clears the partition buffers and the convolution tail.
func (c *CabinetConvolver) Reset() {
	if c.ola != nil {
		clear(c.ola.tail)
	}
	for i := range c.in {
		c.in[i] = 0
		c.out[i] = 0
	}
	c.fill = 0
}

// overlapAdd is a block convolver carrying the kernel tail across calls.
type overlapAdd struct {
	plan      *algofft.Plan[complex64]
	kernelFFT []complex64
	scratch   []complex64
	tail      []float32
	blockSize int
}

func newOverlapAdd(kernel []float32, blockSize int) (*overlapAdd, error) {
	if len(kernel) == 0 || blockSize <= 0 {
		return nil, fmt.Errorf("overlap-add: kernel %d samples, block %d", len(kernel), blockSize)
	}
	fftSize := 1
	for fftSize < blockSize+len(kernel)-1 {
		fftSize <<= 1
	}
	plan, err := algofft.NewPlan32(fftSize)
	if err != nil {
		return nil, fmt.Errorf("overlap-add plan: %w", err)
	}
	o := &overlapAdd{
		plan:      plan,
		kernelFFT: make([]complex64, fftSize),
		scratch:   make([]complex64, fftSize),
		tail:      make([]float32, fftSize-blockSize),
		blockSize: blockSize,
	}
	for i, v := range kernel {
		o.scratch[i] = complex(v, 0)
	}
	if err := plan.Forward(o.kernelFFT, o.scratch); err != nil {
		return nil, fmt.Errorf("overlap-add kernel: %w", err)
	}
	return o, nil
}

// processBlock convolves one block of blockSize samples into out.
func (o *overlapAdd) processBlock(out, in []float32) error {
	if len(in) != o.blockSize || len(out) != o.blockSize {
		return fmt.Errorf("overlap-add: block of %d/%d samples, want %d", len(in), len(out), o.blockSize)
	}
	for i := range o.scratch {
		o.scratch[i] = 0
	}
	for i, x := range in {
		o.scratch[i] = complex(x, 0)
	}
	if err := o.plan.Forward(o.scratch, o.scratch); err != nil {
		return err
	}
	for i := range o.scratch {
		o.scratch[i] *= o.kernelFFT[i]
	}
	if err := o.plan.Inverse(o.scratch, o.scratch); err != nil {
		return err
	}

	n := o.blockSize
	for i := range out {
		out[i] = real(o.scratch[i])
		if i < len(o.tail) {
			out[i] += o.tail[i]
		}
	}
	// Shift the remaining tail forward and add this block's overhang.
	for i := range o.tail {
		var prev float32
		if i+n < len(o.tail) {
			prev = o.tail[i+n]
		}
		o.tail[i] = prev + real(o.scratch[n+i])
	}
	return nil
}
