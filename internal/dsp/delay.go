// SPDX-License-Identifier: MIT
package dsp

import "math"

// maxDelaySeconds bounds the phase-offset delay (360 degrees).
const maxDelaySeconds = 0.01

// DelayLine is a circular buffer that delays one channel by a fractional
// number of samples. The cursor pos marks where the next block is written;
// reads are taken relative to it.
type DelayLine struct {
	buffer     []float32
	pos        int
	blockSize  int
	sampleRate float64
}

// MaxDelaySamples is the delay-line headroom needed at sampleRate.
func MaxDelaySamples(sampleRate float64) int {
	return int(math.Round(sampleRate * maxDelaySeconds))
}

// requiredLength is the minimum buffer length for blocks of blockSize.
func requiredLength(blockSize int, sampleRate float64) int {
	return 2*blockSize + MaxDelaySamples(sampleRate)
}

// Resize makes room for blocks of blockSize at sampleRate. The buffer is
// reallocated and cleared, and the cursor reset, only when the block no
// longer fits or the sample rate changed. Returns true if it reallocated.
// Not real-time safe when it reallocates.
func (d *DelayLine) Resize(blockSize int, sampleRate float64) bool {
	if blockSize < 1 {
		blockSize = 1
	}
	need := requiredLength(blockSize, sampleRate)
	if d.buffer != nil && need <= len(d.buffer) && sampleRate == d.sampleRate {
		if blockSize > d.blockSize {
			d.blockSize = blockSize
		}
		return false
	}

	d.buffer = make([]float32, need)
	d.pos = 0
	d.blockSize = blockSize
	d.sampleRate = sampleRate
	return true
}

// Fits reports whether a block of n samples can be processed without a resize.
func (d *DelayLine) Fits(n int) bool {
	return d.buffer != nil && requiredLength(n, d.sampleRate) <= len(d.buffer)
}

// Len returns the buffer length in samples.
func (d *DelayLine) Len() int {
	return len(d.buffer)
}

// Pos returns the current write cursor.
func (d *DelayLine) Pos() int {
	return d.pos
}

// Reset clears the buffer contents and rewinds the cursor.
func (d *DelayLine) Reset() {
	clear(d.buffer)
	d.pos = 0
}

// Write copies src into the buffer starting at the cursor, wrapping at the
// end. The cursor itself does not move; call Advance after reading.
func (d *DelayLine) Write(src []float32) {
	size := len(d.buffer)
	idx := d.pos
	for _, s := range src {
		d.buffer[idx] = flushDenormal(s)
		idx++
		if idx == size {
			idx = 0
		}
	}
}

// ReadFractional fills dst with the signal delayed by delay samples relative
// to the block written at the cursor. Fractional delays interpolate linearly
// between the two nearest integer taps.
func (d *DelayLine) ReadFractional(dst []float32, delay float64) {
	size := len(d.buffer)
	if size == 0 {
		clear(dst)
		return
	}
	if delay < 0 {
		delay = 0
	}

	whole := math.Floor(delay)
	frac := float32(delay - whole)
	lag := int(whole) % size

	idx0 := d.pos - lag
	if idx0 < 0 {
		idx0 += size
	}
	idx1 := idx0 - 1
	if idx1 < 0 {
		idx1 += size
	}

	for i := range dst {
		s0 := d.buffer[idx0]
		s1 := d.buffer[idx1]
		dst[i] = s0 + frac*(s1-s0)

		idx0++
		if idx0 == size {
			idx0 = 0
		}
		idx1++
		if idx1 == size {
			idx1 = 0
		}
	}
}

// Advance moves the cursor forward by n samples, modulo the buffer length.
func (d *DelayLine) Advance(n int) {
	if len(d.buffer) == 0 {
		return
	}
	d.pos = (d.pos + n) % len(d.buffer)
}
