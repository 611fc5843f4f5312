// SPDX-License-Identifier: MIT

// Package monitor owns the display side of metering. It polls the level pair
// published by the audio thread, runs the meter ballistics and fans the
// resulting frames out to sinks. Everything here runs on one goroutine.
package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"sculptor/internal/dsp"
	"sculptor/internal/log"
	"sculptor/internal/meter"
)

// Source is the audio side as the monitor sees it.
type Source interface {
	Levels() (left, right float32, fresh bool)
	Params() dsp.ParameterSet
	TakeClipped() bool
}

// Sink receives every frame. Send must not block; slow sinks drop frames.
type Sink interface {
	Send(frame Frame) error
}

// Frame is one display update.
type Frame struct {
	Seq       uint32           `json:"seq"`
	Time      time.Time        `json:"time"`
	Left      meter.Reading    `json:"left"`
	Right     meter.Reading    `json:"right"`
	Placement meter.Placement  `json:"placement"`
	Params    dsp.ParameterSet `json:"params"`
	// Clipped is set when any block since the previous frame exceeded full
	// scale, even if the meters have already recovered.
	Clipped bool `json:"clipped"`
	// Stale is set when the audio thread published nothing since the
	// previous frame.
	Stale bool `json:"stale"`
}

// Values returns the frame's numeric payload in wire order: left level and
// peak, right level and peak, placement position and intensity.
func (f Frame) Values() [6]float32 {
	return [6]float32{
		f.Left.Level, f.Left.Peak,
		f.Right.Level, f.Right.Peak,
		f.Placement.Position, f.Placement.Intensity,
	}
}

// Monitor turns published levels into meter frames.
type Monitor struct {
	source Source
	meters *meter.StereoMeter
	log    log.Logger

	mu    sync.Mutex
	sinks []Sink
	last  Frame
	seq   uint32
}

// New returns a monitor reading from source. Meter options apply to both
// channels.
func New(source Source, opts ...meter.Option) *Monitor {
	return &Monitor{
		source: source,
		meters: meter.NewStereo(opts...),
		log:    log.With("monitor"),
	}
}

// AddSink registers a sink for every subsequent frame.
func (m *Monitor) AddSink(s Sink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinks = append(m.sinks, s)
}

// Poll runs one display tick at now and returns the resulting frame.
func (m *Monitor) Poll(now time.Time) Frame {
	left, right, fresh := m.source.Levels()
	params := m.source.Params()

	switch {
	case fresh:
		m.meters.Update(left, right, params.MasterGain, now)
	case params.MasterGain < meter.MuteThreshold:
		m.meters.Reset()
		m.meters.Tick(now)
	default:
		m.meters.Tick(now)
	}

	l, r := m.meters.Readings()

	m.mu.Lock()
	m.seq++
	frame := Frame{
		Seq:       m.seq,
		Time:      now,
		Left:      l,
		Right:     r,
		Placement: meter.Place(l.Level, r.Level, params.InvertLeft, params.InvertRight),
		Params:    params,
		Clipped:   m.source.TakeClipped() || l.Clipping || r.Clipping,
		Stale:     !fresh,
	}
	m.last = frame
	sinks := m.sinks
	m.mu.Unlock()

	for _, s := range sinks {
		if err := s.Send(frame); err != nil {
			m.log.Debugf("sink %T: %v", s, err)
		}
	}
	return frame
}

// Last returns the most recent frame.
func (m *Monitor) Last() Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Reset clears both meters, e.g. after the stream restarts.
func (m *Monitor) Reset() {
	m.meters.Reset()
}

// Run polls every interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("monitor interval must be positive")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.log.Debugf("polling every %s", interval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			m.Poll(now)
		}
	}
}
