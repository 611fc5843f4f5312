// SPDX-License-Identifier: MIT
package dsp

import "sync/atomic"

// Level words pack both channels into a single uint64 so a reader never sees
// a torn pair:
//
//	bit 63      unread flag
//	bits 32-62  left level, 31-bit fixed point
//	bits 0-30   right level, 31-bit fixed point
const (
	levelScale    = 1 << 30
	levelMask     = 1<<31 - 1
	unreadFlag    = uint64(1) << 63
	leftShift     = 32
	maxFixedLevel = levelMask
)

// LevelPublisher hands the level pair from the audio thread to the display
// thread. One writer and one reader; neither side ever blocks.
//
// While a published pair is unread, later publications are max-merged into
// it, so a transient that lands between two display polls is not lost.
type LevelPublisher struct {
	word atomic.Uint64
}

// Publish merges a level pair into the slot. Real-time safe.
func (p *LevelPublisher) Publish(left, right float32) {
	l, r := toFixed(left), toFixed(right)
	for {
		old := p.word.Load()
		nl, nr := l, r
		if old&unreadFlag != 0 {
			ol, or := unpack(old)
			nl = max(nl, ol)
			nr = max(nr, or)
		}
		if p.word.CompareAndSwap(old, pack(nl, nr)|unreadFlag) {
			return
		}
	}
}

// Reset overwrites the slot with zero levels, discarding anything unread.
func (p *LevelPublisher) Reset() {
	p.word.Store(unreadFlag)
}

// Read returns the latest pair and marks it consumed. fresh is false when
// nothing was published since the previous Read; the values are then the
// last pair seen.
func (p *LevelPublisher) Read() (left, right float32, fresh bool) {
	old := p.word.And(^unreadFlag)
	l, r := unpack(old)
	return fromFixed(l), fromFixed(r), old&unreadFlag != 0
}

// Peek returns the latest pair without consuming it.
func (p *LevelPublisher) Peek() (left, right float32) {
	l, r := unpack(p.word.Load())
	return fromFixed(l), fromFixed(r)
}

func pack(l, r uint32) uint64 {
	return uint64(l)<<leftShift | uint64(r)
}

func unpack(w uint64) (l, r uint32) {
	return uint32(w>>leftShift) & levelMask, uint32(w) & levelMask
}

func toFixed(v float32) uint32 {
	v = Clamp01(v)
	f := uint32(float64(v)*levelScale + 0.5)
	if f > maxFixedLevel {
		f = maxFixedLevel
	}
	return f
}

func fromFixed(f uint32) float32 {
	return float32(float64(f) / levelScale)
}
