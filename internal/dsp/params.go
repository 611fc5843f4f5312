// SPDX-License-Identifier: MIT
package dsp

import (
	"fmt"
	"math"
)

const (
	// MaxGain is +10 dB as a linear amplitude.
	MaxGain = 3.16227766017

	// UnityGain leaves a signal unchanged.
	UnityGain = 1.0

	// GainSkew shapes the gain range so equal control steps feel even.
	GainSkew = 0.3

	// MaxPhaseOffsetDegrees is exclusive; 360 degrees wraps to 0.
	MaxPhaseOffsetDegrees = 360.0

	// phaseOffsetThreshold is the smallest offset that engages the delay line.
	phaseOffsetThreshold = 0.001
)

// ParameterSet is a snapshot of the user-facing controls. The processor reads
// one per block and never mutates it, so it is passed by value.
type ParameterSet struct {
	MasterGain float32 `yaml:"master_gain" json:"master_gain" validate:"gte=0,lte=3.1623"`
	LeftGain   float32 `yaml:"left_gain" json:"left_gain" validate:"gte=0,lte=3.1623"`
	RightGain  float32 `yaml:"right_gain" json:"right_gain" validate:"gte=0,lte=3.1623"`
	MidGain    float32 `yaml:"mid_gain" json:"mid_gain" validate:"gte=0,lte=3.1623"`
	SideGain   float32 `yaml:"side_gain" json:"side_gain" validate:"gte=0,lte=3.1623"`

	InvertLeft  bool `yaml:"invert_left" json:"invert_left"`
	InvertRight bool `yaml:"invert_right" json:"invert_right"`

	PhaseOffsetDegrees float32 `yaml:"phase_offset_degrees" json:"phase_offset_degrees" validate:"gte=0,lt=360"`

	MidSide bool `yaml:"mid_side" json:"mid_side"`
	Bypass  bool `yaml:"bypass" json:"bypass"`
}

// DefaultParameterSet returns unity gains with every switch off.
func DefaultParameterSet() ParameterSet {
	return ParameterSet{
		MasterGain: UnityGain,
		LeftGain:   UnityGain,
		RightGain:  UnityGain,
		MidGain:    UnityGain,
		SideGain:   UnityGain,
	}
}

// Sanitize returns a copy with every field forced into its domain. Non-finite
// gains fall back to unity, non-finite offsets to zero.
func (p ParameterSet) Sanitize() ParameterSet {
	p.MasterGain = sanitizeGain(p.MasterGain)
	p.LeftGain = sanitizeGain(p.LeftGain)
	p.RightGain = sanitizeGain(p.RightGain)
	p.MidGain = sanitizeGain(p.MidGain)
	p.SideGain = sanitizeGain(p.SideGain)

	deg := float64(p.PhaseOffsetDegrees)
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		deg = 0
	}
	deg = math.Mod(deg, MaxPhaseOffsetDegrees)
	if deg < 0 {
		deg += MaxPhaseOffsetDegrees
	}
	p.PhaseOffsetDegrees = float32(deg)
	return p
}

func sanitizeGain(g float32) float32 {
	v := float64(g)
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return UnityGain
	case v < 0:
		return 0
	case v > MaxGain:
		return MaxGain
	}
	return g
}

// PhaseOffsetSamples converts an offset in degrees to a fractional delay.
// 360 degrees corresponds to 10 ms regardless of program frequency.
func PhaseOffsetSamples(degrees float32, sampleRate float64) float64 {
	return float64(degrees) / MaxPhaseOffsetDegrees * (sampleRate / 100)
}

// GainRange maps linear gain onto a skewed 0..1 control position.
type GainRange struct {
	Min  float64
	Max  float64
	Skew float64
}

// DefaultGainRange is the ±10 dB range shared by every gain control.
var DefaultGainRange = GainRange{Min: 0, Max: MaxGain, Skew: GainSkew}

// Normalize returns the control position for a linear gain.
func (r GainRange) Normalize(v float64) float64 {
	if r.Max <= r.Min {
		return 0
	}
	p := (v - r.Min) / (r.Max - r.Min)
	if !(p > 0) {
		return 0
	}
	if p >= 1 {
		return 1
	}
	if r.Skew == 1 || r.Skew <= 0 {
		return p
	}
	return math.Pow(p, r.Skew)
}

// Denormalize returns the linear gain for a control position.
func (r GainRange) Denormalize(p float64) float64 {
	if !(p > 0) {
		return r.Min
	}
	if p >= 1 {
		return r.Max
	}
	if r.Skew != 1 && r.Skew > 0 {
		p = math.Exp(math.Log(p) / r.Skew)
	}
	return r.Min + (r.Max-r.Min)*p
}

// FormatGain renders a linear gain the way the control labels show it.
func FormatGain(v float64) string {
	switch {
	case math.Abs(v-UnityGain) < 0.01:
		return "0.0 dB"
	case v <= 0.001:
		return "-inf dB"
	}
	return fmt.Sprintf("%.1f dB", 20*math.Log10(v))
}

// FormatPhase renders a phase offset in degrees.
func FormatPhase(deg float64) string {
	return fmt.Sprintf("%.1f°", deg)
}
