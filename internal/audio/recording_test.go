// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"

	"sculptor/pkg/utils"
)

func decodeWAV(t *testing.T, path string) (*wav.Decoder, []int) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		t.Fatalf("%s is not a valid WAV file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return dec, buf.Data
}

func TestRecordingStartStop(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "test_recording.wav")
	engine := newTestEngine(t)

	if err := engine.StartRecording(filename); err != nil {
		t.Fatalf("Failed to start recording: %v", err)
	}
	if engine.Recording() == nil {
		t.Fatal("Engine should be in recording state")
	}

	in := [][]float32{
		utils.GenerateSineWave(testFrameSize, testSampleRate, 1000, 0.5),
		utils.GenerateSineWave(testFrameSize, testSampleRate, 1000, 0.25),
	}
	const blocks = 10
	for range blocks {
		engine.processBlock(in, stereoOut())
	}

	if err := engine.StopRecording(); err != nil {
		t.Fatalf("Failed to stop recording: %v", err)
	}
	if engine.Recording() != nil {
		t.Error("Engine should not be in recording state after stopping")
	}

	dec, data := decodeWAV(t, filename)
	if dec.NumChans != 2 || dec.SampleRate != testSampleRate || dec.BitDepth != 16 {
		t.Errorf("format = %d ch, %d Hz, %d bit", dec.NumChans, dec.SampleRate, dec.BitDepth)
	}
	if len(data) != blocks*testFrameSize*2 {
		t.Fatalf("recorded %d samples, want %d", len(data), blocks*testFrameSize*2)
	}

	// Interleaved: left at even indices, right at odd.
	peakL, peakR := 0, 0
	for i := 0; i < len(data); i += 2 {
		peakL = max(peakL, abs(data[i]))
		peakR = max(peakR, abs(data[i+1]))
	}
	if peakL < 16000 || peakL > 16500 || peakR < 8000 || peakR > 8300 {
		t.Errorf("peaks = (%d, %d), want about (16383, 8191)", peakL, peakR)
	}
}

func TestRecordingErrorCases(t *testing.T) {
	dir := t.TempDir()

	t.Run("Already recording", func(t *testing.T) {
		engine := newTestEngine(t)
		if err := engine.StartRecording(filepath.Join(dir, "a.wav")); err != nil {
			t.Fatal(err)
		}
		defer engine.StopRecording()
		if err := engine.StartRecording(filepath.Join(dir, "b.wav")); !errors.Is(err, ErrAlreadyRecording) {
			t.Errorf("expected ErrAlreadyRecording, got %v", err)
		}
	})

	t.Run("Invalid path", func(t *testing.T) {
		engine := newTestEngine(t)
		if err := engine.StartRecording("/nonexistent/path/file.wav"); err == nil {
			t.Error("Expected error but got none")
		}
		if engine.Recording() != nil {
			t.Error("failed start left a recorder behind")
		}
	})

	t.Run("Stop when not recording", func(t *testing.T) {
		engine := newTestEngine(t)
		if err := engine.StopRecording(); err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
	})

	t.Run("Unsupported bit depth", func(t *testing.T) {
		_, err := NewRecorder(filepath.Join(dir, "c.wav"), RecorderOptions{SampleRate: 48000, Channels: 2, BitDepth: 12})
		if err == nil {
			t.Error("expected bit depth error")
		}
	})
}

func TestCloseEngineWithRecording(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "test_close_engine.wav")
	engine := newTestEngine(t)

	if err := engine.StartRecording(filename); err != nil {
		t.Fatalf("Failed to start recording: %v", err)
	}
	if err := engine.Close(); err != nil {
		t.Fatalf("Failed to close engine: %v", err)
	}
	if engine.Recording() != nil {
		t.Error("Engine should not be in recording state after Close()")
	}
	if _, err := os.Stat(filename); err != nil {
		t.Errorf("Recording file was not created: %v", err)
	}
}

func TestRecorderDropsWhenFull(t *testing.T) {
	rec, err := NewRecorder(filepath.Join(t.TempDir(), "full.wav"), RecorderOptions{
		SampleRate:  8000,
		Channels:    2,
		BitDepth:    24,
		RingSeconds: 0.01, // 160 samples, rounded to 256
	})
	if err != nil {
		t.Fatal(err)
	}

	block := [][]float32{make([]float32, 100), make([]float32, 100)}
	rec.Write(block, 100) // 200 samples fit
	rec.Write(block, 100) // dropped unless the writer already drained
	if err := rec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if rec.Frames()+100*rec.Dropped() != 200 {
		t.Errorf("frames %d + dropped %d blocks do not account for both writes", rec.Frames(), rec.Dropped())
	}

	// Writes after Close are ignored.
	rec.Write(block, 100)
	if err := rec.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestRecordingNoAllocsHotPath(t *testing.T) {
	engine := newTestEngine(t)
	if err := engine.StartRecording(filepath.Join(t.TempDir(), "test_alloc.wav")); err != nil {
		t.Fatalf("Failed to start recording: %v", err)
	}
	defer engine.StopRecording()

	in := [][]float32{
		utils.GenerateSineWave(testFrameSize, testSampleRate, 440, 0.5),
		utils.GenerateSineWave(testFrameSize, testSampleRate, 440, 0.5),
	}
	out := stereoOut()

	allocs := testing.AllocsPerRun(100, func() {
		engine.processBlock(in, out)
	})
	if allocs > 0 {
		t.Errorf("Recording hot path allocated memory: got %.1f allocs, want 0", allocs)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
