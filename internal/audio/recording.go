// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
)

// StartRecording begins capturing the processed output to filename.
func (e *Engine) StartRecording(filename string) error {
	e.recMu.Lock()
	defer e.recMu.Unlock()

	if e.recorder.Load() != nil {
		return ErrAlreadyRecording
	}

	rec, err := NewRecorder(filename, RecorderOptions{
		SampleRate:     e.processor.SampleRate(),
		Channels:       outputChannels,
		BitDepth:       e.config.Recording.BitDepth,
		RingSeconds:    e.config.Recording.RingSeconds,
		MaxWriteErrors: e.config.Recording.MaxWriteErrors,
	})
	if err != nil {
		return err
	}

	e.recorder.Store(rec)
	e.log.Infof("recording to %s", filename)
	return nil
}

// StopRecording finalizes the current recording, if any.
func (e *Engine) StopRecording() error {
	e.recMu.Lock()
	defer e.recMu.Unlock()

	rec := e.recorder.Swap(nil)
	if rec == nil {
		return nil
	}
	if err := rec.Close(); err != nil {
		return fmt.Errorf("recording %s: %w", rec.Path(), err)
	}
	return nil
}

// Recording returns the active recorder or nil.
func (e *Engine) Recording() *Recorder {
	return e.recorder.Load()
}

// Close stops recording and the stream.
func (e *Engine) Close() error {
	if err := e.StopRecording(); err != nil {
		return err
	}
	return e.Stop()
}
