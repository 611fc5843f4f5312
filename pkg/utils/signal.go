// SPDX-License-Identifier: MIT

// Package utils holds signal generators and helpers shared by tests and the
// offline render path.
package utils

import "math"

// GenerateSineWave returns size samples of a sine at frequency Hz with the
// given peak amplitude.
func GenerateSineWave(size int, sampleRate, frequency float64, amplitude float32) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = float32(math.Sin(2*math.Pi*frequency*t)) * amplitude
	}
	return buffer
}

// GenerateComplexWave returns a 440 Hz fundamental with two harmonics,
// peaking below full scale.
func GenerateComplexWave(size int, sampleRate float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
		buffer[i] = float32(signal * 0.9)
	}
	return buffer
}

// GenerateImpulse returns size samples of silence with a unit impulse at index at.
func GenerateImpulse(size, at int) []float32 {
	buffer := make([]float32, size)
	if at >= 0 && at < size {
		buffer[at] = 1
	}
	return buffer
}

// GenerateNoise returns deterministic white noise in [-amplitude, amplitude].
// The same seed always yields the same sequence.
func GenerateNoise(size int, seed uint32, amplitude float32) []float32 {
	buffer := make([]float32, size)
	state := seed | 1
	for i := range buffer {
		// xorshift32
		state ^= state << 13
		state ^= state >> 17
		state ^= state << 5
		buffer[i] = (float32(state)/math.MaxUint32*2 - 1) * amplitude
	}
	return buffer
}

// PeakIndex returns the index of the sample with the largest magnitude in
// samples[start:end+1]. Out-of-range bounds are clamped.
func PeakIndex(samples []float32, start, end int) int {
	if len(samples) == 0 {
		return 0
	}
	if start < 0 {
		start = 0
	}
	if end >= len(samples) {
		end = len(samples) - 1
	}

	peak := start
	peakValue := abs32(samples[start])
	for i := start + 1; i <= end; i++ {
		if v := abs32(samples[i]); v > peakValue {
			peakValue = v
			peak = i
		}
	}
	return peak
}

// Deinterleave splits interleaved frames into one slice per channel.
func Deinterleave(interleaved []float32, channels int) [][]float32 {
	if channels < 1 {
		return nil
	}
	frames := len(interleaved) / channels
	out := make([][]float32, channels)
	for ch := range out {
		out[ch] = make([]float32, frames)
	}
	for i := range frames {
		for ch := range channels {
			out[ch][i] = interleaved[i*channels+ch]
		}
	}
	return out
}

// Interleave writes per-channel slices into dst as interleaved frames and
// returns the number of samples written.
func Interleave(dst []float32, channels [][]float32) int {
	if len(channels) == 0 {
		return 0
	}
	frames := len(channels[0])
	for _, ch := range channels[1:] {
		frames = min(frames, len(ch))
	}
	frames = min(frames, len(dst)/len(channels))

	n := 0
	for i := range frames {
		for _, ch := range channels {
			dst[n] = ch[i]
			n++
		}
	}
	return n
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
