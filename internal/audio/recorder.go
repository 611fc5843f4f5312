// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"sculptor/internal/log"
	"sculptor/pkg/utils"
)

// ErrAlreadyRecording is returned by StartRecording while a recording runs.
var ErrAlreadyRecording = errors.New("already recording")

// drainInterval is how often the writer empties the ring.
const drainInterval = 10 * time.Millisecond

// wavFormatPCM is the RIFF audio format tag for integer PCM.
const wavFormatPCM = 1

// RecorderOptions describes the file a Recorder produces.
type RecorderOptions struct {
	SampleRate     float64
	Channels       int
	BitDepth       int
	RingSeconds    float64
	MaxWriteErrors int
}

// Recorder captures processed audio to a WAV file. The audio callback hands
// blocks over through a SampleRing; a writer goroutine encodes them, so the
// callback never touches the file.
type Recorder struct {
	path     string
	opts     RecorderOptions
	ring     *SampleRing
	file     *os.File
	encoder  *wav.Encoder
	buf      *audio.IntBuffer
	scratch  []float32
	log      log.Logger
	failures int

	closed  atomic.Bool
	samples atomic.Uint64

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	errMu    sync.Mutex
	err      error
}

// NewRecorder creates path and starts the writer goroutine.
func NewRecorder(path string, opts RecorderOptions) (*Recorder, error) {
	if opts.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid recording sample rate %v", opts.SampleRate)
	}
	if opts.Channels < 1 {
		return nil, fmt.Errorf("recorder needs at least one channel, got %d", opts.Channels)
	}
	if opts.BitDepth != 16 && opts.BitDepth != 24 {
		return nil, fmt.Errorf("unsupported bit depth %d", opts.BitDepth)
	}
	if opts.RingSeconds <= 0 {
		opts.RingSeconds = 1
	}
	if opts.MaxWriteErrors < 1 {
		opts.MaxWriteErrors = 1
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording: %w", err)
	}

	sampleRate := int(opts.SampleRate)
	chunk := int(opts.SampleRate*drainInterval.Seconds()) * opts.Channels * 2
	r := &Recorder{
		path:    path,
		opts:    opts,
		ring:    NewSampleRing(int(opts.SampleRate*opts.RingSeconds) * opts.Channels),
		file:    file,
		encoder: wav.NewEncoder(file, sampleRate, opts.BitDepth, opts.Channels, wavFormatPCM),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: opts.Channels, SampleRate: sampleRate},
			Data:           make([]int, chunk),
			SourceBitDepth: opts.BitDepth,
		},
		scratch: make([]float32, chunk),
		log:     log.With("recorder"),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	go r.run()
	return r, nil
}

// Path returns the file being written.
func (r *Recorder) Path() string {
	return r.path
}

// Write queues one block. Real-time safe; a full ring drops the block and
// counts an overrun.
func (r *Recorder) Write(channels [][]float32, frames int) {
	if r.closed.Load() {
		return
	}
	// Overruns are counted by the ring and reported through Dropped.
	_ = r.ring.WriteInterleaved(channels, frames)
}

// Dropped returns the number of blocks lost to ring overruns.
func (r *Recorder) Dropped() uint64 {
	return r.ring.Overruns()
}

// Frames returns the number of frames written to the file so far.
func (r *Recorder) Frames() uint64 {
	return r.samples.Load() / uint64(r.opts.Channels)
}

// Duration returns the recorded length.
func (r *Recorder) Duration() time.Duration {
	return time.Duration(float64(r.Frames()) / r.opts.SampleRate * float64(time.Second))
}

// Close stops accepting blocks, flushes everything queued and finalizes the
// file. Safe to call more than once.
func (r *Recorder) Close() error {
	r.stopOnce.Do(func() {
		r.closed.Store(true)
		close(r.stop)
	})
	<-r.done
	return r.Err()
}

// Err returns the first error the writer hit.
func (r *Recorder) Err() error {
	r.errMu.Lock()
	defer r.errMu.Unlock()
	return r.err
}

func (r *Recorder) setErr(err error) {
	r.errMu.Lock()
	defer r.errMu.Unlock()
	if r.err == nil {
		r.err = err
	}
}

func (r *Recorder) run() {
	defer close(r.done)

	ticker := time.NewTicker(drainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			r.drain()
			r.finish()
			return
		case <-ticker.C:
			r.drain()
		}
	}
}

// drain encodes everything currently in the ring.
func (r *Recorder) drain() {
	for {
		n := r.ring.Read(r.scratch)
		if n == 0 {
			return
		}
		if r.failures >= r.opts.MaxWriteErrors {
			// Keep the ring moving so the callback is not starved.
			continue
		}

		data := r.buf.Data[:n]
		utils.FloatToPCM(data, r.scratch[:n], r.opts.BitDepth)
		r.buf.Data = data

		if err := r.encoder.Write(r.buf); err != nil {
			r.failures++
			r.log.Errorf("write failed (%d/%d): %v", r.failures, r.opts.MaxWriteErrors, err)
			if r.failures >= r.opts.MaxWriteErrors {
				r.setErr(fmt.Errorf("recording stopped after %d write errors: %w", r.failures, err))
			}
			continue
		}
		r.failures = 0
		r.samples.Add(uint64(n))
	}
}

func (r *Recorder) finish() {
	if err := r.encoder.Close(); err != nil {
		r.setErr(fmt.Errorf("failed to finalize recording: %w", err))
	}
	if err := r.file.Close(); err != nil {
		r.setErr(fmt.Errorf("failed to close recording: %w", err))
	}
	if dropped := r.Dropped(); dropped > 0 {
		r.log.Warnf("%s: %d blocks dropped", r.path, dropped)
	}
	r.log.Infof("%s: %s recorded", r.path, r.Duration().Round(time.Millisecond))
}
