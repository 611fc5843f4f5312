// SPDX-License-Identifier: MIT
package meter

const (
	doubleInversionIntensity = 0.8
	silentIntensity          = 0.2
	minIntensity             = 0.1
)

// Placement describes where the signal sits between the speakers.
type Placement struct {
	// Position runs from 0 (hard left) through 0.5 (centre) to 1 (hard right).
	Position float32 `json:"position"`
	// Intensity in [0, 1] scales the indicator.
	Intensity float32 `json:"intensity"`
}

// Place computes the stereo placement of a level pair. A single inverted
// channel biases the position toward the other side; inverting both
// channels dims the indicator.
func Place(left, right float32, invertLeft, invertRight bool) Placement {
	left, right = clamp01(left), clamp01(right)
	sum := left + right
	if sum <= 0 {
		return Placement{Position: 0.5, Intensity: minIntensity * silentIntensity}
	}

	pos := right / sum
	switch {
	case invertLeft && !invertRight:
		pos = 1 - pos*0.5
	case invertRight && !invertLeft:
		pos *= 0.5
	}

	multiplier := float32(1)
	if invertLeft && invertRight {
		multiplier = doubleInversionIntensity
	}

	return Placement{
		Position:  pos,
		Intensity: min(max(sum, minIntensity), 1) * multiplier,
	}
}
