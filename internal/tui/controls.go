// SPDX-License-Identifier: MIT
package tui

import (
	"math"

	"sculptor/internal/dsp"
)

// Control identifies one adjustable parameter.
type Control int

const (
	MasterGain Control = iota
	LeftGain
	RightGain
	MidGain
	SideGain
	PhaseOffset
	InvertLeft
	InvertRight
	MidSide
	LinkGains
	Bypass

	numControls
)

// Step sizes. Gains move in control-position units on the skewed range.
const (
	gainStep       = 0.02
	gainFineStep   = 0.005
	phaseStep      = 5.0
	phaseFineStep  = 0.5
	unitySnapRange = 0.01
)

var controlLabels = [numControls]string{
	MasterGain:  "Master",
	LeftGain:    "Left",
	RightGain:   "Right",
	MidGain:     "Mid",
	SideGain:    "Side",
	PhaseOffset: "Phase offset",
	InvertLeft:  "Invert L",
	InvertRight: "Invert R",
	MidSide:     "Mid/side",
	LinkGains:   "Link L/R",
	Bypass:      "Bypass",
}

func (c Control) String() string {
	if c < 0 || c >= numControls {
		return "?"
	}
	return controlLabels[c]
}

// IsToggle reports whether the control is on/off.
func (c Control) IsToggle() bool {
	return c >= InvertLeft
}

// Controls is the parameter editor state. Linking is a UI concern: it keeps
// the left and right gains equal but is not part of the parameter set.
type Controls struct {
	Selected Control
	Linked   bool
}

// Next moves the selection by delta, wrapping.
func (c *Controls) Next(delta int) {
	n := int(numControls)
	c.Selected = Control(((int(c.Selected)+delta)%n + n) % n)
}

// Adjust moves the selected control by steps and returns the new set.
// Toggles flip on any non-zero step.
func (c *Controls) Adjust(p dsp.ParameterSet, steps int, fine bool) dsp.ParameterSet {
	if steps == 0 {
		return p
	}

	gs, ps := gainStep, phaseStep
	if fine {
		gs, ps = gainFineStep, phaseFineStep
	}

	switch c.Selected {
	case MasterGain:
		p.MasterGain = stepGain(p.MasterGain, steps, gs)
	case LeftGain:
		p.LeftGain = stepGain(p.LeftGain, steps, gs)
		if c.Linked {
			p.RightGain = p.LeftGain
		}
	case RightGain:
		p.RightGain = stepGain(p.RightGain, steps, gs)
		if c.Linked {
			p.LeftGain = p.RightGain
		}
	case MidGain:
		p.MidGain = stepGain(p.MidGain, steps, gs)
	case SideGain:
		p.SideGain = stepGain(p.SideGain, steps, gs)
	case PhaseOffset:
		deg := float64(p.PhaseOffsetDegrees) + float64(steps)*ps
		deg = math.Mod(deg, dsp.MaxPhaseOffsetDegrees)
		if deg < 0 {
			deg += dsp.MaxPhaseOffsetDegrees
		}
		p.PhaseOffsetDegrees = float32(deg)
	default:
		return c.Toggle(p)
	}
	return p
}

// Toggle flips the selected switch. Non-toggle controls are unchanged.
func (c *Controls) Toggle(p dsp.ParameterSet) dsp.ParameterSet {
	switch c.Selected {
	case InvertLeft:
		p.InvertLeft = !p.InvertLeft
	case InvertRight:
		p.InvertRight = !p.InvertRight
	case MidSide:
		p.MidSide = !p.MidSide
	case Bypass:
		p.Bypass = !p.Bypass
	case LinkGains:
		c.Linked = !c.Linked
		if c.Linked {
			p.RightGain = p.LeftGain
		}
	}
	return p
}

// Reset returns the selected control to its default.
func (c *Controls) Reset(p dsp.ParameterSet) dsp.ParameterSet {
	d := dsp.DefaultParameterSet()
	switch c.Selected {
	case MasterGain:
		p.MasterGain = d.MasterGain
	case LeftGain, RightGain:
		if c.Linked || c.Selected == LeftGain {
			p.LeftGain = d.LeftGain
		}
		if c.Linked || c.Selected == RightGain {
			p.RightGain = d.RightGain
		}
	case MidGain:
		p.MidGain = d.MidGain
	case SideGain:
		p.SideGain = d.SideGain
	case PhaseOffset:
		p.PhaseOffsetDegrees = d.PhaseOffsetDegrees
	case InvertLeft:
		p.InvertLeft = d.InvertLeft
	case InvertRight:
		p.InvertRight = d.InvertRight
	case MidSide:
		p.MidSide = d.MidSide
	case Bypass:
		p.Bypass = d.Bypass
	case LinkGains:
		c.Linked = false
	}
	return p
}

// Value renders the control's current setting.
func (c *Controls) Value(p dsp.ParameterSet, ctl Control) string {
	switch ctl {
	case MasterGain:
		return dsp.FormatGain(float64(p.MasterGain))
	case LeftGain:
		return dsp.FormatGain(float64(p.LeftGain))
	case RightGain:
		return dsp.FormatGain(float64(p.RightGain))
	case MidGain:
		return dsp.FormatGain(float64(p.MidGain))
	case SideGain:
		return dsp.FormatGain(float64(p.SideGain))
	case PhaseOffset:
		return dsp.FormatPhase(float64(p.PhaseOffsetDegrees))
	case InvertLeft:
		return onOff(p.InvertLeft)
	case InvertRight:
		return onOff(p.InvertRight)
	case MidSide:
		return onOff(p.MidSide)
	case LinkGains:
		return onOff(c.Linked)
	case Bypass:
		return onOff(p.Bypass)
	}
	return ""
}

// stepGain moves a gain along the skewed control range, snapping to unity
// when it lands close to it.
func stepGain(g float32, steps int, size float64) float32 {
	r := dsp.DefaultGainRange
	pos := r.Normalize(float64(g)) + float64(steps)*size
	v := r.Denormalize(min(max(pos, 0), 1))
	if math.Abs(v-dsp.UnityGain) < unitySnapRange {
		v = dsp.UnityGain
	}
	return float32(v)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
