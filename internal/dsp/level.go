// SPDX-License-Identifier: MIT
package dsp

import "math"

const (
	// FloorDB is the measurement floor. Zero amplitude maps here instead of -Inf.
	FloorDB = -60.0

	// denormalThreshold is the magnitude below which samples are flushed to zero.
	denormalThreshold = 1e-30
)

// GainToDB converts a linear amplitude to decibels, never returning a value
// below floorDB. Zero, negative and NaN amplitudes map to floorDB.
func GainToDB(gain, floorDB float64) float64 {
	if !(gain > 0) {
		return floorDB
	}
	return math.Max(20*math.Log10(gain), floorDB)
}

// DBToGain converts decibels to a linear amplitude. Anything at or below
// floorDB maps to exactly zero.
func DBToGain(db, floorDB float64) float64 {
	if db <= floorDB || math.IsNaN(db) {
		return 0
	}
	return math.Pow(10, db/20)
}

// NormalizedLevel maps a linear peak amplitude onto the display scale:
// FloorDB..0 dBFS becomes 0..1. Amplitudes above full scale map above 1 so
// clipping stays detectable; the result is not clamped.
func NormalizedLevel(amplitude float32) float32 {
	db := GainToDB(float64(amplitude), FloorDB)
	return float32((db - FloorDB) / -FloorDB)
}

// Clamp01 limits v to [0, 1]. NaN maps to 0.
func Clamp01(v float32) float32 {
	if !(v > 0) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// flushDenormal converts tiny values to exact zero so recirculating buffers
// never hold subnormal floats.
func flushDenormal(x float32) float32 {
	if x > -denormalThreshold && x < denormalThreshold {
		return 0
	}
	return x
}
