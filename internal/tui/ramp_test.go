// SPDX-License-Identifier: MIT
package tui

import "testing"

func TestRampEndpoints(t *testing.T) {
	r := DefaultRamp()

	tests := []struct {
		name  string
		level float32
		want  string
	}{
		{"silence", 0, "#00dcdc"},
		{"below range", -0.5, "#00dcdc"},
		{"split", 0.6, "#9effff"},
		{"full scale", 1, "#ff3b96"},
		{"above range", 2, "#ff3b96"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.At(tt.level).Hex(); got != tt.want {
				t.Errorf("At(%v) = %s, want %s", tt.level, got, tt.want)
			}
		})
	}
}

func TestRampMovesTowardHigh(t *testing.T) {
	r := DefaultRamp()
	prev := r.At(0.6).R
	for _, lvl := range []float32{0.7, 0.8, 0.9, 1.0} {
		c := r.At(lvl)
		if c.R < prev {
			t.Errorf("red channel fell at %v: %v < %v", lvl, c.R, prev)
		}
		prev = c.R
	}
}
