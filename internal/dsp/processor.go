// SPDX-License-Identifier: MIT
/*
Package dsp implements the stereo conditioning chain that runs inside the
audio callback:

  - mid/side rebalancing
  - fractional phase-offset delay on the right channel
  - per-channel phase inversion
  - gain staging
  - per-block peak level measurement

Real-Time Safety:
  - Process never allocates once Prepare has sized the delay line
  - No locks; parameters arrive as a value snapshot
  - Non-finite samples are flushed at the gain stage
*/
package dsp

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfig is returned by Prepare when it had to clamp its inputs.
var ErrInvalidConfig = errors.New("invalid processor configuration")

// Stream format limits accepted by Prepare.
const (
	MinSampleRate = 8000
	MaxSampleRate = 192000
	MaxBlockSize  = 8192
)

const (
	left  = 0
	right = 1
)

// Processor is the signal processor. One instance per stream; Prepare and
// Process must never run concurrently.
type Processor struct {
	sampleRate   float64
	maxBlockSize int

	delay DelayLine

	// rawLeft/rawRight keep the last unclamped normalized levels so a caller
	// can detect clipping (> 1).
	rawLeft  float32
	rawRight float32
}

// NewProcessor returns a processor prepared for sampleRate and maxBlockSize.
func NewProcessor(sampleRate float64, maxBlockSize int) (*Processor, error) {
	p := &Processor{}
	err := p.Prepare(sampleRate, maxBlockSize)
	return p, err
}

// Prepare (re)initializes the processor for a stream format and clears all
// internal state. Out-of-range values are clamped to the nearest safe value
// and reported with ErrInvalidConfig; the processor stays usable either way.
// Not real-time safe.
func (p *Processor) Prepare(sampleRate float64, maxBlockSize int) error {
	var errs []error

	switch {
	case math.IsNaN(sampleRate) || sampleRate < MinSampleRate:
		errs = append(errs, fmt.Errorf("sample rate %v below %d Hz", sampleRate, MinSampleRate))
		sampleRate = MinSampleRate
	case sampleRate > MaxSampleRate:
		errs = append(errs, fmt.Errorf("sample rate %v above %d Hz", sampleRate, MaxSampleRate))
		sampleRate = MaxSampleRate
	}

	switch {
	case maxBlockSize < 1:
		errs = append(errs, fmt.Errorf("block size %d must be positive", maxBlockSize))
		maxBlockSize = 1
	case maxBlockSize > MaxBlockSize:
		errs = append(errs, fmt.Errorf("block size %d above %d", maxBlockSize, MaxBlockSize))
		maxBlockSize = MaxBlockSize
	}

	p.sampleRate = sampleRate
	p.maxBlockSize = maxBlockSize
	p.delay.Resize(maxBlockSize, sampleRate)
	p.delay.Reset()
	p.rawLeft, p.rawRight = 0, 0

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// SampleRate returns the prepared sample rate.
func (p *Processor) SampleRate() float64 {
	return p.sampleRate
}

// MaxBlockSize returns the largest block processed without a resize.
func (p *Processor) MaxBlockSize() int {
	return p.maxBlockSize
}

// DelayLine exposes the right-channel delay line for inspection.
func (p *Processor) DelayLine() *DelayLine {
	return &p.delay
}

// RawLevels returns the last unclamped normalized levels. Values above 1
// mean the gained signal exceeded full scale.
func (p *Processor) RawLevels() (left, right float32) {
	return p.rawLeft, p.rawRight
}

// Process transforms numSamples of buf in place and returns the normalized
// left and right levels in [0, 1]. buf holds one slice per channel; only the
// first two channels are touched.
//
// The step order is fixed: mid/side, phase offset, inversion, gain. Mid/side
// reconstruction assumes pre-gain, pre-inversion input.
func (p *Processor) Process(buf [][]float32, numSamples int, params ParameterSet) (leftLevel, rightLevel float32) {
	channels := min(len(buf), 2)
	for ch := range channels {
		numSamples = min(numSamples, len(buf[ch]))
	}
	if channels == 0 || numSamples <= 0 || params.Bypass {
		p.rawLeft, p.rawRight = 0, 0
		return 0, 0
	}

	l := buf[left][:numSamples]
	var r []float32
	if channels > 1 {
		r = buf[right][:numSamples]
	}

	if r != nil && params.MidSide {
		midSide(l, r, params.MidGain, params.SideGain)
	}

	if r != nil && params.PhaseOffsetDegrees > phaseOffsetThreshold {
		if !p.delay.Fits(numSamples) {
			// Block size changed outside Prepare; the host should not do
			// this on the hot path, but stay correct if it does.
			p.delay.Resize(numSamples, p.sampleRate)
			p.maxBlockSize = max(p.maxBlockSize, numSamples)
		}
		delay := PhaseOffsetSamples(params.PhaseOffsetDegrees, p.sampleRate)
		p.delay.Write(r)
		p.delay.ReadFractional(r, delay)
		p.delay.Advance(numSamples)
	}

	p.rawLeft = conditionChannel(l, params.InvertLeft, params.LeftGain*params.MasterGain)
	p.rawRight = 0
	if r != nil {
		p.rawRight = conditionChannel(r, params.InvertRight, params.RightGain*params.MasterGain)
	}

	return Clamp01(p.rawLeft), Clamp01(p.rawRight)
}

// midSide rebalances center and width. With unity gains it reproduces the
// input to floating-point tolerance.
func midSide(l, r []float32, midGain, sideGain float32) {
	for i := range l {
		mid := (l[i] + r[i]) * 0.5 * midGain
		side := (r[i] - l[i]) * 0.5 * sideGain
		l[i] = mid - side
		r[i] = mid + side
	}
}

// conditionChannel applies inversion and gain in place and returns the
// unclamped normalized peak level of the result.
func conditionChannel(samples []float32, invert bool, gain float32) float32 {
	if invert {
		gain = -gain
	}
	var peak float32
	for i, s := range samples {
		s *= gain
		if s-s != 0 {
			// NaN or Inf.
			s = 0
		}
		samples[i] = s
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return NormalizedLevel(peak)
}
