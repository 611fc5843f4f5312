// SPDX-License-Identifier: MIT
package meter

import "time"

// MuteThreshold is the master gain below which the meters are forced to zero.
const MuteThreshold = 1e-4

// Reading is one channel as the display sees it.
type Reading struct {
	Level    float32 `json:"level"`
	Peak     float32 `json:"peak"`
	Clipping bool    `json:"clipping"`
}

// StereoMeter pairs a left and right LevelMeter.
type StereoMeter struct {
	Left  *LevelMeter
	Right *LevelMeter
}

// NewStereo returns two meters built with the same options.
func NewStereo(opts ...Option) *StereoMeter {
	return &StereoMeter{
		Left:  New(opts...),
		Right: New(opts...),
	}
}

// Update feeds one polled level pair. A master gain at or near -inf is a
// hard mute and resets both meters instead.
func (s *StereoMeter) Update(left, right, masterGain float32, now time.Time) {
	if masterGain < MuteThreshold {
		s.Left.Reset()
		s.Right.Reset()
	} else {
		s.Left.SetLevel(left)
		s.Right.SetLevel(right)
	}
	s.Left.Tick(now)
	s.Right.Tick(now)
}

// Tick decays both meters without a new measurement.
func (s *StereoMeter) Tick(now time.Time) {
	s.Left.Tick(now)
	s.Right.Tick(now)
}

// Reset zeroes both meters.
func (s *StereoMeter) Reset() {
	s.Left.Reset()
	s.Right.Reset()
}

// Readings returns the current left and right values.
func (s *StereoMeter) Readings() (left, right Reading) {
	return s.Left.Reading(), s.Right.Reading()
}

// Reading returns the meter's current values.
func (m *LevelMeter) Reading() Reading {
	return Reading{Level: m.displayed, Peak: m.peak, Clipping: m.wasClipping}
}
