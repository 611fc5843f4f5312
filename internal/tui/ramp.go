// SPDX-License-Identifier: MIT
package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

// Ramp maps a meter level to a colour: Low to Mid below Split, Mid to High
// above it.
type Ramp struct {
	Low, Mid, High colorful.Color
	Split          float64
}

// DefaultRamp is cyan through pale cyan to pink, split at 0.6.
func DefaultRamp() Ramp {
	return Ramp{
		Low:   mustHex("#00DCDC"),
		Mid:   mustHex("#9EFFFF"),
		High:  mustHex("#FF3B96"),
		Split: 0.6,
	}
}

// At returns the colour for level in [0, 1].
func (r Ramp) At(level float32) colorful.Color {
	v := min(max(float64(level), 0), 1)
	if v < r.Split {
		return r.Low.BlendRgb(r.Mid, v/r.Split).Clamped()
	}
	return r.Mid.BlendRgb(r.High, (v-r.Split)/(1-r.Split)).Clamped()
}

// Style returns a foreground style for level.
func (r Ramp) Style(level float32) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(r.At(level).Hex()))
}

// PeakStyle is the level colour brightened halfway to white.
func (r Ramp) PeakStyle(level float32) lipgloss.Style {
	c := r.At(level).BlendRgb(colorful.Color{R: 1, G: 1, B: 1}, 0.5)
	return lipgloss.NewStyle().Foreground(lipgloss.Color(c.Hex()))
}

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}
