// SPDX-License-Identifier: MIT
package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sculptor/internal/dsp"
	"sculptor/internal/meter"
)

// fakeSource replays queued level pairs; an empty queue reads as stale.
type fakeSource struct {
	mu      sync.Mutex
	levels  [][2]float32
	params  dsp.ParameterSet
	clipped bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{params: dsp.DefaultParameterSet()}
}

func (s *fakeSource) push(l, r float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.levels = append(s.levels, [2]float32{l, r})
}

func (s *fakeSource) Levels() (float32, float32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.levels) == 0 {
		return 0, 0, false
	}
	v := s.levels[0]
	s.levels = s.levels[1:]
	return v[0], v[1], true
}

func (s *fakeSource) Params() dsp.ParameterSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

func (s *fakeSource) TakeClipped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.clipped
	s.clipped = false
	return c
}

type recordingSink struct {
	mu     sync.Mutex
	frames []Frame
	err    error
}

func (s *recordingSink) Send(f Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, f)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

const tick = time.Second / 60

var epoch = time.Unix(1700000000, 0)

func newTestMonitor(src Source) *Monitor {
	return New(src, meter.WithClock(func() time.Time { return epoch }))
}

func TestPollFreshLevels(t *testing.T) {
	src := newFakeSource()
	m := newTestMonitor(src)

	src.push(0.5, 0.25)
	f := m.Poll(epoch.Add(tick))

	if f.Seq != 1 || f.Stale {
		t.Errorf("Seq = %d, Stale = %v", f.Seq, f.Stale)
	}
	if f.Left.Level != 0.5 || f.Right.Level != 0.25 {
		t.Errorf("levels = (%v, %v), want (0.5, 0.25)", f.Left.Level, f.Right.Level)
	}
	if f.Left.Peak != 0.5 || f.Right.Peak != 0.25 {
		t.Errorf("peaks = (%v, %v)", f.Left.Peak, f.Right.Peak)
	}
	if want := float32(0.25 / 0.75); f.Placement.Position != want {
		t.Errorf("Position = %v, want %v", f.Placement.Position, want)
	}
}

func TestPollStaleDecays(t *testing.T) {
	src := newFakeSource()
	m := newTestMonitor(src)

	src.push(0.8, 0.8)
	now := epoch.Add(tick)
	first := m.Poll(now)

	prev := first.Left.Level
	for range 30 {
		now = now.Add(tick)
		f := m.Poll(now)
		if !f.Stale {
			t.Fatal("frame without a published level not marked stale")
		}
		if f.Left.Level >= prev {
			t.Fatalf("level did not decay: %v -> %v", prev, f.Left.Level)
		}
		prev = f.Left.Level
	}
}

func TestPollMasterMute(t *testing.T) {
	src := newFakeSource()
	m := newTestMonitor(src)

	src.push(0.9, 0.9)
	m.Poll(epoch.Add(tick))

	src.params.MasterGain = 0
	f := m.Poll(epoch.Add(2 * tick))
	if f.Left.Level != 0 || f.Left.Peak != 0 || f.Right.Level != 0 {
		t.Errorf("muted frame = %+v", f)
	}

	// Muting resets even when fresh levels arrive.
	src.push(0.9, 0.9)
	f = m.Poll(epoch.Add(3 * tick))
	if f.Left.Level != 0 || f.Right.Peak != 0 {
		t.Errorf("muted fresh frame = %+v", f)
	}
}

func TestPollClipped(t *testing.T) {
	src := newFakeSource()
	m := newTestMonitor(src)

	src.clipped = true
	src.push(0.5, 0.5)
	if f := m.Poll(epoch.Add(tick)); !f.Clipped {
		t.Error("source clip not reported")
	}
	src.push(0.5, 0.5)
	if f := m.Poll(epoch.Add(2 * tick)); f.Clipped {
		t.Error("clip flag persisted")
	}
	src.push(1, 0.5)
	if f := m.Poll(epoch.Add(3 * tick)); !f.Clipped || !f.Left.Clipping || f.Right.Clipping {
		t.Errorf("meter clip not reported: %+v", f)
	}
}

func TestPollPlacementInversion(t *testing.T) {
	src := newFakeSource()
	src.params.InvertRight = true
	m := newTestMonitor(src)

	src.push(0.5, 0.5)
	f := m.Poll(epoch.Add(tick))
	if f.Placement.Position != 0.25 {
		t.Errorf("Position = %v, want 0.25", f.Placement.Position)
	}
	if !f.Params.InvertRight {
		t.Error("frame does not carry params")
	}
}

func TestSinks(t *testing.T) {
	src := newFakeSource()
	m := newTestMonitor(src)

	ok := &recordingSink{}
	failing := &recordingSink{err: errors.New("full")}
	m.AddSink(ok)
	m.AddSink(failing)

	for i := range 3 {
		src.push(0.1, 0.1)
		m.Poll(epoch.Add(time.Duration(i+1) * tick))
	}

	if ok.count() != 3 || failing.count() != 3 {
		t.Errorf("sink counts = %d, %d, want 3, 3", ok.count(), failing.count())
	}
	if ok.frames[2].Seq != 3 {
		t.Errorf("last Seq = %d, want 3", ok.frames[2].Seq)
	}
	if m.Last().Seq != 3 {
		t.Errorf("Last().Seq = %d", m.Last().Seq)
	}
}

func TestFrameValues(t *testing.T) {
	f := Frame{
		Left:      meter.Reading{Level: 0.1, Peak: 0.2},
		Right:     meter.Reading{Level: 0.3, Peak: 0.4},
		Placement: meter.Placement{Position: 0.5, Intensity: 0.6},
	}
	want := [6]float32{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}
	if got := f.Values(); got != want {
		t.Errorf("Values() = %v, want %v", got, want)
	}
}

func TestRun(t *testing.T) {
	src := newFakeSource()
	m := New(src)
	sink := &recordingSink{}
	m.AddSink(sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, time.Millisecond) }()

	deadline := time.After(2 * time.Second)
	for sink.count() < 3 {
		select {
		case <-deadline:
			t.Fatal("Run produced no frames")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	if err := <-done; err != nil {
		t.Errorf("Run returned %v", err)
	}
}

func TestRunInvalidInterval(t *testing.T) {
	if err := New(newFakeSource()).Run(context.Background(), 0); err == nil {
		t.Error("expected error for zero interval")
	}
}
