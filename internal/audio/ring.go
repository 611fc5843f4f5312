// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"sync/atomic"

	"sculptor/pkg/bitint"
)

// ErrRingOverrun is returned when a block does not fit in the ring.
var ErrRingOverrun = errors.New("sample ring overrun")

// SampleRing is a lock-free single-producer single-consumer ring of
// interleaved float32 samples. The audio callback writes, one goroutine reads.
type SampleRing struct {
	data []float32
	mask uint64

	writePos atomic.Uint64
	readPos  atomic.Uint64
	overruns atomic.Uint64
}

// NewSampleRing returns a ring holding at least minSize samples. The
// capacity is rounded up to a power of two.
func NewSampleRing(minSize int) *SampleRing {
	size := bitint.NextPowerOfTwo(minSize)
	mask, _ := bitint.Mask(size)
	return &SampleRing{
		data: make([]float32, size),
		mask: mask,
	}
}

// Cap returns the ring capacity in samples.
func (r *SampleRing) Cap() int {
	return len(r.data)
}

// Len returns the number of unread samples.
func (r *SampleRing) Len() int {
	return int(r.writePos.Load() - r.readPos.Load())
}

// Overruns returns how many blocks were dropped for lack of space.
func (r *SampleRing) Overruns() uint64 {
	return r.overruns.Load()
}

// WriteInterleaved interleaves the first frames samples of each channel into
// the ring. The whole block is dropped if it does not fit. Real-time safe.
func (r *SampleRing) WriteInterleaved(channels [][]float32, frames int) error {
	if len(channels) == 0 || frames <= 0 {
		return nil
	}
	for _, ch := range channels {
		frames = min(frames, len(ch))
	}

	w := r.writePos.Load()
	free := uint64(len(r.data)) - (w - r.readPos.Load())
	if uint64(frames*len(channels)) > free {
		r.overruns.Add(1)
		return ErrRingOverrun
	}

	for i := range frames {
		for _, ch := range channels {
			r.data[w&r.mask] = ch[i]
			w++
		}
	}
	r.writePos.Store(w)
	return nil
}

// Read copies up to len(dst) unread samples into dst and returns the count.
func (r *SampleRing) Read(dst []float32) int {
	rd := r.readPos.Load()
	n := min(int(r.writePos.Load()-rd), len(dst))

	for i := range n {
		dst[i] = r.data[rd&r.mask]
		rd++
	}
	r.readPos.Store(rd)
	return n
}
