// SPDX-License-Identifier: MIT
/*
Package audio runs the signal processor on a live PortAudio duplex stream:
- Lock-free parameter hand-off into the callback
- Level publication to the display thread
- WAV recording of the processed output through a lock-free ring

Thread Safety:
- The callback reads parameters through an atomic pointer
- Buffers are pre-allocated; the callback does not allocate
- Locks OS thread during audio processing
*/
package audio

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"

	"sculptor/internal/config"
	"sculptor/internal/dsp"
	"sculptor/internal/log"
)

// outputChannels is fixed: the processor is stereo.
const outputChannels = 2

type Engine struct {
	// Core configuration and state.
	config    *config.Config
	log       log.Logger
	processor *dsp.Processor

	// Control thread to callback.
	params atomic.Pointer[dsp.ParameterSet]

	// Callback to display thread.
	levels  dsp.LevelPublisher
	clipped atomic.Bool
	blocks  atomic.Uint64

	// Devices and stream.
	inputDevice   *portaudio.DeviceInfo
	outputDevice  *portaudio.DeviceInfo
	inputLatency  time.Duration
	outputLatency time.Duration
	stream        *portaudio.Stream

	// Recording state. recMu serializes Start/StopRecording; the callback
	// only loads the pointer.
	recorder atomic.Pointer[Recorder]
	recMu    sync.Mutex
}

// NewEngine resolves the configured devices and prepares the processor.
func NewEngine(cfg *config.Config) (*Engine, error) {
	inputDevice, err := InputDevice(cfg.Audio.InputDevice)
	if err != nil {
		return nil, err
	}
	outputDevice, err := OutputDevice(cfg.Audio.OutputDevice)
	if err != nil {
		return nil, err
	}

	engine, err := newEngine(cfg)
	if err != nil {
		return nil, err
	}
	engine.inputDevice = inputDevice
	engine.outputDevice = outputDevice

	if cfg.Audio.LowLatency {
		engine.inputLatency = inputDevice.DefaultLowInputLatency
		engine.outputLatency = outputDevice.DefaultLowOutputLatency
	} else {
		engine.inputLatency = inputDevice.DefaultHighInputLatency
		engine.outputLatency = outputDevice.DefaultHighOutputLatency
	}

	return engine, nil
}

// newEngine builds everything that does not need PortAudio.
func newEngine(cfg *config.Config) (*Engine, error) {
	processor, err := dsp.NewProcessor(cfg.Audio.SampleRate, cfg.Audio.FramesPerBuffer)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare processor: %w", err)
	}

	e := &Engine{
		config:    cfg,
		log:       log.With("audio"),
		processor: processor,
	}
	e.SetParams(cfg.Params)
	return e, nil
}

// SetParams publishes a new parameter snapshot. The callback picks it up on
// its next block. Safe from any goroutine.
func (e *Engine) SetParams(p dsp.ParameterSet) {
	p = p.Sanitize()
	e.params.Store(&p)
}

// Params returns the snapshot the callback is using.
func (e *Engine) Params() dsp.ParameterSet {
	return *e.params.Load()
}

// Levels returns the newest published level pair; fresh is false when no
// block completed since the previous call.
func (e *Engine) Levels() (left, right float32, fresh bool) {
	return e.levels.Read()
}

// TakeClipped reports whether any block exceeded full scale since the last
// call, and clears the flag.
func (e *Engine) TakeClipped() bool {
	return e.clipped.Swap(false)
}

// Blocks returns the number of blocks processed.
func (e *Engine) Blocks() uint64 {
	return e.blocks.Load()
}

// SampleRate returns the stream rate.
func (e *Engine) SampleRate() float64 {
	return e.processor.SampleRate()
}

// Start opens and starts the duplex stream.
func (e *Engine) Start() error {
	inChannels := min(e.config.Audio.Channels, e.inputDevice.MaxInputChannels)
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   e.inputDevice,
			Channels: inChannels,
			Latency:  e.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Device:   e.outputDevice,
			Channels: outputChannels,
			Latency:  e.outputLatency,
		},
		FramesPerBuffer: e.config.Audio.FramesPerBuffer,
		SampleRate:      e.config.Audio.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processStream)
	if err != nil {
		return fmt.Errorf("failed to open stream: %w", err)
	}
	e.stream = stream

	if err := e.stream.Start(); err != nil {
		e.stream.Close()
		e.stream = nil
		return fmt.Errorf("failed to start stream: %w", err)
	}

	e.log.Infof("stream started: %s -> %s, %.0f Hz, %d frames, %d in / %d out",
		e.inputDevice.Name, e.outputDevice.Name, params.SampleRate,
		params.FramesPerBuffer, inChannels, outputChannels)
	return nil
}

// Stop stops and closes the stream.
func (e *Engine) Stop() error {
	if e.stream == nil {
		return nil
	}
	if err := e.stream.Stop(); err != nil {
		return err
	}
	if err := e.stream.Close(); err != nil {
		return err
	}
	e.stream = nil
	return nil
}

// processStream is the PortAudio callback.
// Performance Critical:
// - Runs in a dedicated OS thread (LockOSThread)
// - Uses pre-allocated buffers only
// - No dynamic allocations in the hot path
func (e *Engine) processStream(in, out [][]float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	e.processBlock(in, out)
}

// processBlock routes input to output, conditions it in place and hands the
// result to the meters and the recorder.
func (e *Engine) processBlock(in, out [][]float32) {
	frames := routeInput(in, out)
	params := e.params.Load()

	left, right := e.processor.Process(out, frames, *params)
	if params.Bypass {
		e.levels.Reset()
	} else {
		e.levels.Publish(left, right)
		if rawL, rawR := e.processor.RawLevels(); rawL > 1 || rawR > 1 {
			e.clipped.Store(true)
		}
	}

	if rec := e.recorder.Load(); rec != nil {
		rec.Write(out, frames)
	}
	e.blocks.Add(1)
}

// routeInput copies input channels onto the output buffers. A mono input
// feeds both outputs; missing input is silence. Returns the frame count.
func routeInput(in, out [][]float32) int {
	if len(out) == 0 {
		return 0
	}
	frames := len(out[0])
	for _, ch := range out[1:] {
		frames = min(frames, len(ch))
	}

	for ch := range out {
		dst := out[ch][:frames]
		if len(in) == 0 {
			clear(dst)
			continue
		}
		n := copy(dst, in[min(ch, len(in)-1)])
		clear(dst[n:])
	}
	return frames
}
