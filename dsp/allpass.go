package dsp

import (
	"fmt"
	"math"
)

// AllpassDelay is a circular delay line with a settable, non-integer
// length. The integer part moves the read cursor; the fractional part is
// realized by a first-order allpass interpolator.
//
// Exactly one Write followed by one Read per sample yields a causal delay
// of Delay() samples.
type AllpassDelay struct {
	buffer   []float32
	writePos int
	readPos  int

	delay float32
	frac  float32

	prevInput  float32
	prevOutput float32
}

// NewAllpassDelay allocates a zero-initialized delay line holding capacity
// samples. The longest usable delay is capacity-1 samples.
func NewAllpassDelay(capacity int) (*AllpassDelay, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("delay capacity must be > 0: %d", capacity)
	}
	return &AllpassDelay{buffer: make([]float32, capacity)}, nil
}

// Len returns the buffer capacity in samples.
func (d *AllpassDelay) Len() int {
	return len(d.buffer)
}

// Delay returns the currently requested delay length in samples.
func (d *AllpassDelay) Delay() float32 {
	return d.delay
}

// SetDelay sets the delay length in samples (length >= 0). The allpass
// state is left untouched; see ResetInterpolation.
func (d *AllpassDelay) SetDelay(length float32) {
	if length < 0 {
		length = 0
	}
	whole := math.Floor(float64(length))
	intDelay := int(whole)
	size := len(d.buffer)

	d.readPos = (d.writePos - intDelay) % size
	if d.readPos < 0 {
		d.readPos += size
	}
	d.delay = length
	d.frac = length - float32(whole)
}

// ResetInterpolation clears the allpass memory. Callers that retune by a
// large step and prefer a clean onset over a continuous glide call this
// right after SetDelay.
func (d *AllpassDelay) ResetInterpolation() {
	d.prevInput = 0
	d.prevOutput = 0
}

// Write stores one sample and advances the write cursor.
func (d *AllpassDelay) Write(sample float32) {
	d.buffer[d.writePos] = sample
	d.writePos++
	if d.writePos >= len(d.buffer) {
		d.writePos = 0
	}
}

// Read returns the next delayed, allpass-interpolated sample.
func (d *AllpassDelay) Read() float32 {
	val := d.buffer[d.readPos]
	d.readPos++
	if d.readPos >= len(d.buffer) {
		d.readPos = 0
	}

	coeff := (1 - d.frac) / (1 + d.frac)
	output := coeff*val + d.prevInput - coeff*d.prevOutput
	d.prevInput = val
	d.prevOutput = output
	return output
}

// Reset clears the buffer, cursors and interpolation state.
func (d *AllpassDelay) Reset() {
	for i := range d.buffer {
		d.buffer[i] = 0
	}
	d.writePos = 0
	d.readPos = 0
	d.ResetInterpolation()
	d.SetDelay(d.delay)
}
