// SPDX-License-Identifier: MIT
/*
Package meter turns raw block levels into display ballistics.

A LevelMeter holds two values per channel: the displayed level, which
follows new measurements instantly and falls back in the dB domain, and a
peak-hold marker that decays more slowly. Both live in [0, 1].

Threading:
  - A LevelMeter is owned by the display loop; it is not safe for
    concurrent use.
  - DisplayedLevel and PeakLevel have no side effects.
*/
package meter

import (
	"math"
	"time"
)

const (
	clipThreshold     = 0.99
	clipRecoveryPeak  = 0.98
	ceilingThreshold  = 0.95
	lowLevelThreshold = 0.01
	silenceThreshold  = 1e-4

	dropRatio     = 0.5
	dropMinimum   = 0.1
	dropPeakScale = 1.2
)

// Ballistics configures how fast the meter falls.
type Ballistics struct {
	LevelDecayDBPerSec float64 `yaml:"level_decay_db_per_sec" validate:"gt=0"`
	PeakDecayDBPerSec  float64 `yaml:"peak_decay_db_per_sec" validate:"gt=0"`

	// ClipDecayMultiplier speeds up peak decay while the peak sits near full scale.
	ClipDecayMultiplier float64 `yaml:"clip_decay_multiplier" validate:"gte=1"`

	// LowLevelDecayMultiplier speeds up peak decay once the signal is almost gone.
	LowLevelDecayMultiplier float64 `yaml:"low_level_decay_multiplier" validate:"gte=1"`

	// CeilingPullDown is applied to a near-ceiling peak on every tick.
	CeilingPullDown float64 `yaml:"ceiling_pull_down" validate:"gt=0,lte=1"`

	// MaxElapsed caps a single decay step, e.g. after the process was suspended.
	MaxElapsed time.Duration `yaml:"max_elapsed" validate:"gt=0"`

	// FloorDB is where the displayed level snaps to zero.
	FloorDB float64 `yaml:"floor_db" validate:"lt=0"`
}

// DefaultBallistics returns the standard meter behaviour.
func DefaultBallistics() Ballistics {
	return Ballistics{
		LevelDecayDBPerSec:      12,
		PeakDecayDBPerSec:       3,
		ClipDecayMultiplier:     4,
		LowLevelDecayMultiplier: 2,
		CeilingPullDown:         0.995,
		MaxElapsed:              50 * time.Millisecond,
		FloorDB:                 -70,
	}
}

// Option configures a LevelMeter.
type Option func(*LevelMeter)

// WithBallistics replaces the default decay settings.
func WithBallistics(b Ballistics) Option {
	return func(m *LevelMeter) {
		m.ballistics = b
	}
}

// WithClock injects the time source used by Decay and New.
func WithClock(now func() time.Time) Option {
	return func(m *LevelMeter) {
		if now != nil {
			m.now = now
		}
	}
}

// LevelMeter is the per-channel ballistics state machine.
type LevelMeter struct {
	ballistics Ballistics
	now        func() time.Time

	displayed  float32
	peak       float32
	lastUpdate time.Time

	wasClipping bool
	// updated is set by SetLevel and cleared by each decay step.
	updated bool
}

// New returns a silent meter.
func New(opts ...Option) *LevelMeter {
	m := &LevelMeter{
		ballistics: DefaultBallistics(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.lastUpdate = m.now()
	return m
}

// SetLevel feeds a new measurement. The displayed level jumps to it; the
// peak rises with it and is pulled down when the input collapses.
func (m *LevelMeter) SetLevel(level float32) {
	level = clamp01(level)
	old := m.displayed
	m.displayed = level

	if level > m.peak {
		m.peak = level
	}

	clipping := level > clipThreshold
	if m.wasClipping && !clipping {
		m.peak = min(m.peak, clipRecoveryPeak)
	}
	m.wasClipping = clipping

	if level < dropRatio*old && old-level > dropMinimum {
		m.peak = min(m.peak, max(level*dropPeakScale, m.peak*dropRatio))
	}

	if level < silenceThreshold {
		m.peak = level
	}

	m.updated = true
}

// UpdateDecay advances the ballistics by elapsed. The displayed level only
// falls when no SetLevel happened since the previous step.
func (m *LevelMeter) UpdateDecay(elapsed time.Duration) {
	b := m.ballistics
	if elapsed > b.MaxElapsed {
		elapsed = b.MaxElapsed
	}
	if elapsed <= 0 {
		m.updated = false
		return
	}
	sec := elapsed.Seconds()

	if !m.updated {
		m.displayed = decayDB(m.displayed, b.LevelDecayDBPerSec*sec, b.FloorDB)
	}

	nearCeiling := m.peak >= ceilingThreshold
	rate := b.PeakDecayDBPerSec
	if nearCeiling {
		rate *= b.ClipDecayMultiplier
	}
	if m.displayed < lowLevelThreshold {
		rate *= b.LowLevelDecayMultiplier
	}
	m.peak = decayDB(m.peak, rate*sec, b.FloorDB)

	if nearCeiling {
		m.peak *= float32(b.CeilingPullDown)
	}
	// Away from the ceiling, and for as long as the input keeps clipping,
	// the marker never sits inside the bar. The tick after clip recovery
	// is the one exception.
	if (!nearCeiling || m.wasClipping) && m.peak < m.displayed {
		m.peak = m.displayed
	}

	m.updated = false
}

// Tick runs one decay step for the time passed since the previous tick.
func (m *LevelMeter) Tick(now time.Time) {
	elapsed := now.Sub(m.lastUpdate)
	m.lastUpdate = now
	m.UpdateDecay(max(elapsed, 0))
}

// Decay is Tick at the meter's own clock.
func (m *LevelMeter) Decay() {
	m.Tick(m.now())
}

// Reset drops both values to zero at once.
func (m *LevelMeter) Reset() {
	m.displayed = 0
	m.peak = 0
	m.wasClipping = false
	m.updated = false
}

// DisplayedLevel returns the current level in [0, 1].
func (m *LevelMeter) DisplayedLevel() float32 {
	return m.displayed
}

// PeakLevel returns the peak-hold level in [0, 1].
func (m *LevelMeter) PeakLevel() float32 {
	return m.peak
}

// Clipping reports whether the last measurement was at full scale.
func (m *LevelMeter) Clipping() bool {
	return m.wasClipping
}

// Ballistics returns the active decay settings.
func (m *LevelMeter) Ballistics() Ballistics {
	return m.ballistics
}

// decayDB lowers a linear level by db decibels and snaps to zero below floorDB.
func decayDB(level float32, db, floorDB float64) float32 {
	if level <= 0 {
		return 0
	}
	v := 20*math.Log10(float64(level)) - db
	if v < floorDB {
		return 0
	}
	return float32(math.Pow(10, v/20))
}

func clamp01(v float32) float32 {
	if !(v > 0) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
