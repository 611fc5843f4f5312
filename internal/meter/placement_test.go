// SPDX-License-Identifier: MIT
package meter

import (
	"math"
	"testing"
)

func TestPlace(t *testing.T) {
	tests := []struct {
		name          string
		left, right   float32
		invL, invR    bool
		wantPosition  float32
		wantIntensity float32
	}{
		{"Silence", 0, 0, false, false, 0.5, 0.02},
		{"Centre", 0.5, 0.5, false, false, 0.5, 1},
		{"Hard left", 0.6, 0, false, false, 0, 0.6},
		{"Hard right", 0, 0.3, false, false, 1, 0.3},
		{"Quiet floor", 0.02, 0.02, false, false, 0.5, 0.1},
		{"Left inverted", 0.5, 0.5, true, false, 0.75, 1},
		{"Right inverted", 0.5, 0.5, false, true, 0.25, 1},
		{"Both inverted", 0.4, 0.4, true, true, 0.5, 0.64},
		{"Clamped inputs", 2, -1, false, false, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Place(tt.left, tt.right, tt.invL, tt.invR)
			if math.Abs(float64(got.Position-tt.wantPosition)) > 1e-6 {
				t.Errorf("Position = %v, want %v", got.Position, tt.wantPosition)
			}
			if math.Abs(float64(got.Intensity-tt.wantIntensity)) > 1e-6 {
				t.Errorf("Intensity = %v, want %v", got.Intensity, tt.wantIntensity)
			}
		})
	}
}
