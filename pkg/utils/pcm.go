// SPDX-License-Identifier: MIT
package utils

// PCMScale returns the largest positive integer sample at bitDepth.
func PCMScale(bitDepth int) float64 {
	return float64(int(1)<<(bitDepth-1) - 1)
}

// FloatToPCM converts samples in [-1, 1] to integers at bitDepth, clamping
// anything outside. Returns the number of samples converted.
func FloatToPCM(dst []int, src []float32, bitDepth int) int {
	n := min(len(dst), len(src))
	scale := PCMScale(bitDepth)
	for i, s := range src[:n] {
		v := float64(s)
		switch {
		case v > 1:
			v = 1
		case v < -1:
			v = -1
		case v != v:
			v = 0
		}
		dst[i] = int(v * scale)
	}
	return n
}

// PCMToFloat converts integer samples at bitDepth to floats. The most
// negative integer maps to exactly -1.
func PCMToFloat(dst []float32, src []int, bitDepth int) int {
	n := min(len(dst), len(src))
	inv := 1 / float64(int(1)<<(bitDepth-1))
	for i, s := range src[:n] {
		dst[i] = float32(float64(s) * inv)
	}
	return n
}
