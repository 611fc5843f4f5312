// SPDX-License-Identifier: MIT

// Package render runs the signal processor over a WAV file offline. It uses
// the same processor and meters as the live engine, driven by audio time
// instead of the wall clock, and reports what the meters saw.
package render

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"sculptor/internal/analysis"
	"sculptor/internal/dsp"
	"sculptor/internal/log"
	"sculptor/internal/meter"
	"sculptor/pkg/utils"
)

const (
	DefaultBlockSize       = 512
	DefaultTraceInterval   = 100 * time.Millisecond
	DefaultAnalysisSeconds = 1.0

	outputChannels = 2
	wavFormatPCM   = 1
)

// ErrUnsupportedFormat is returned for WAV files the decoder cannot convert.
var ErrUnsupportedFormat = errors.New("unsupported WAV format")

// Options controls a render.
type Options struct {
	Params     dsp.ParameterSet
	Ballistics meter.Ballistics
	BlockSize  int
	// BitDepth of the output; 0 keeps the input depth (24 for 32-bit input).
	BitDepth int
	// TraceInterval is the audio time between meter trace points; 0 disables
	// the trace.
	TraceInterval time.Duration
	// AnalysisSeconds of output feed the correlation analysis.
	AnalysisSeconds float64
}

// DefaultOptions processes with default parameters.
func DefaultOptions() Options {
	return Options{
		Params:          dsp.DefaultParameterSet(),
		Ballistics:      meter.DefaultBallistics(),
		BlockSize:       DefaultBlockSize,
		TraceInterval:   DefaultTraceInterval,
		AnalysisSeconds: DefaultAnalysisSeconds,
	}
}

// TracePoint is the meter state at one moment of audio time.
type TracePoint struct {
	Time  time.Duration `yaml:"time" json:"time"`
	Left  meter.Reading `yaml:"left" json:"left"`
	Right meter.Reading `yaml:"right" json:"right"`
}

// Report summarizes a render.
type Report struct {
	Input         string        `yaml:"input,omitempty" json:"input,omitempty"`
	Output        string        `yaml:"output,omitempty" json:"output,omitempty"`
	SampleRate    int           `yaml:"sample_rate" json:"sample_rate"`
	InputChannels int           `yaml:"input_channels" json:"input_channels"`
	InputBitDepth int           `yaml:"input_bit_depth" json:"input_bit_depth"`
	BitDepth      int           `yaml:"bit_depth" json:"bit_depth"`
	Frames        int           `yaml:"frames" json:"frames"`
	Duration      time.Duration `yaml:"duration" json:"duration"`
	Blocks        int           `yaml:"blocks" json:"blocks"`
	ClippedBlocks int           `yaml:"clipped_blocks" json:"clipped_blocks"`

	// Highest normalized levels returned by the processor.
	MaxLeft  float32 `yaml:"max_left" json:"max_left"`
	MaxRight float32 `yaml:"max_right" json:"max_right"`
	// Highest peak-hold values the meters reached.
	PeakLeft  float32 `yaml:"peak_left" json:"peak_left"`
	PeakRight float32 `yaml:"peak_right" json:"peak_right"`

	// Correlation is the zero-lag phase correlation of the output channels.
	Correlation float64 `yaml:"correlation" json:"correlation"`
	// Lag is how far the output right channel trails the left. Only
	// meaningful when the channels share material (LagCoefficient well
	// away from 0).
	LagSamples     float64 `yaml:"lag_samples" json:"lag_samples"`
	LagCoefficient float64 `yaml:"lag_coefficient" json:"lag_coefficient"`

	Params dsp.ParameterSet `yaml:"params" json:"params"`
	Trace  []TracePoint     `yaml:"trace,omitempty" json:"trace,omitempty"`
}

// File renders inPath into outPath.
func File(inPath, outPath string, opts Options) (*Report, error) {
	in, err := os.Open(inPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer in.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create output: %w", err)
	}

	report, err := Stream(in, out, opts)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close output: %w", cerr)
	}
	if err != nil {
		os.Remove(outPath)
		return nil, err
	}

	report.Input = inPath
	report.Output = outPath
	return report, nil
}

// Stream renders WAV data from r into w.
func Stream(r io.ReadSeeker, w io.WriteSeeker, opts Options) (*Report, error) {
	logger := log.With("render")
	opts = withDefaults(opts)

	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		if err := dec.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
		}
		return nil, fmt.Errorf("%w: not a WAV file", ErrUnsupportedFormat)
	}

	inDepth := int(dec.BitDepth)
	if dec.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: audio format %d, only integer PCM", ErrUnsupportedFormat, dec.WavAudioFormat)
	}
	if inDepth != 16 && inDepth != 24 && inDepth != 32 {
		return nil, fmt.Errorf("%w: %d-bit samples", ErrUnsupportedFormat, inDepth)
	}
	inChannels := int(dec.NumChans)
	if inChannels < 1 {
		return nil, fmt.Errorf("%w: no channels", ErrUnsupportedFormat)
	}
	sampleRate := int(dec.SampleRate)

	outDepth := opts.BitDepth
	if outDepth == 0 {
		outDepth = min(inDepth, 24)
	}
	if outDepth != 16 && outDepth != 24 {
		return nil, fmt.Errorf("unsupported output bit depth %d", outDepth)
	}

	params := opts.Params.Sanitize()
	proc, err := dsp.NewProcessor(float64(sampleRate), opts.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("cannot process %d Hz audio: %w", sampleRate, err)
	}

	// Meters run on audio time starting at the epoch.
	var epoch time.Time
	meters := meter.NewStereo(
		meter.WithBallistics(opts.Ballistics),
		meter.WithClock(func() time.Time { return epoch }),
	)

	block := opts.BlockSize
	raw := make([]int, block*inChannels)
	inBuf := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: inChannels, SampleRate: sampleRate},
	}
	interleaved := make([]float32, block*inChannels)
	channels := [][]float32{make([]float32, block), make([]float32, block)}
	outFloat := make([]float32, block*outputChannels)
	outBuf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: outputChannels, SampleRate: sampleRate},
		Data:           make([]int, block*outputChannels),
		SourceBitDepth: outDepth,
	}

	analysisFrames := int(opts.AnalysisSeconds * float64(sampleRate))
	anaLeft := make([]float32, 0, analysisFrames)
	anaRight := make([]float32, 0, analysisFrames)

	enc := wav.NewEncoder(w, sampleRate, outDepth, outputChannels, wavFormatPCM)
	report := &Report{
		SampleRate:    sampleRate,
		InputChannels: inChannels,
		InputBitDepth: inDepth,
		BitDepth:      outDepth,
		Params:        params,
	}

	var nextTrace time.Duration
	// carry holds samples of a frame split across two reads.
	carry := 0
	for {
		inBuf.Data = raw[carry:]
		n, err := dec.PCMBuffer(inBuf)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to decode: %w", err)
		}
		if n == 0 {
			break
		}
		total := carry + n
		frames := total / inChannels
		carry = total - frames*inChannels
		if frames == 0 {
			continue
		}

		utils.PCMToFloat(interleaved, raw[:frames*inChannels], inDepth)
		copy(raw, raw[frames*inChannels:total])
		splitChannels(channels, interleaved[:frames*inChannels], inChannels)

		left, right := proc.Process(channels, frames, params)
		rawL, rawR := proc.RawLevels()
		if rawL > 1 || rawR > 1 {
			report.ClippedBlocks++
		}
		report.MaxLeft = max(report.MaxLeft, left)
		report.MaxRight = max(report.MaxRight, right)

		report.Frames += frames
		report.Blocks++
		now := audioTime(report.Frames, sampleRate)
		epochNow := epoch.Add(now)
		if params.Bypass {
			meters.Reset()
			meters.Tick(epochNow)
		} else {
			meters.Update(left, right, params.MasterGain, epochNow)
		}
		readL, readR := meters.Readings()
		report.PeakLeft = max(report.PeakLeft, readL.Peak)
		report.PeakRight = max(report.PeakRight, readR.Peak)
		if opts.TraceInterval > 0 && now >= nextTrace {
			report.Trace = append(report.Trace, TracePoint{Time: now, Left: readL, Right: readR})
			nextTrace += opts.TraceInterval
		}

		if room := analysisFrames - len(anaLeft); room > 0 {
			take := min(room, frames)
			anaLeft = append(anaLeft, channels[0][:take]...)
			anaRight = append(anaRight, channels[1][:take]...)
		}

		ns := utils.Interleave(outFloat, [][]float32{channels[0][:frames], channels[1][:frames]})
		outBuf.Data = outBuf.Data[:ns]
		utils.FloatToPCM(outBuf.Data, outFloat[:ns], outDepth)
		if err := enc.Write(outBuf); err != nil {
			return nil, fmt.Errorf("failed to encode: %w", err)
		}
	}

	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize output: %w", err)
	}
	report.Duration = audioTime(report.Frames, sampleRate)

	if len(anaLeft) >= 2 {
		if err := analyse(report, anaLeft, anaRight, float64(sampleRate)); err != nil {
			logger.Debugf("analysis skipped: %v", err)
		}
	}

	logger.Infof("%d frames, %d blocks, %d clipped", report.Frames, report.Blocks, report.ClippedBlocks)
	return report, nil
}

func withDefaults(o Options) Options {
	if o.BlockSize <= 0 {
		o.BlockSize = DefaultBlockSize
	}
	if o.Ballistics == (meter.Ballistics{}) {
		o.Ballistics = meter.DefaultBallistics()
	}
	if o.AnalysisSeconds <= 0 {
		o.AnalysisSeconds = DefaultAnalysisSeconds
	}
	return o
}

// splitChannels deinterleaves into the two processor channels. Mono feeds
// both; channels past the second are ignored.
func splitChannels(dst [][]float32, interleaved []float32, channels int) {
	frames := len(interleaved) / channels
	for i := range frames {
		frame := interleaved[i*channels:]
		dst[0][i] = frame[0]
		dst[1][i] = frame[min(1, channels-1)]
	}
}

func audioTime(frames, sampleRate int) time.Duration {
	return time.Duration(float64(frames) / float64(sampleRate) * float64(time.Second))
}

// analyse fills the correlation fields from the first seconds of output.
func analyse(report *Report, left, right []float32, sampleRate float64) error {
	c, err := analysis.NewCorrelator(len(left), analysis.Rectangular)
	if err != nil {
		return err
	}
	report.Correlation = c.Correlation(left, right)

	// Search one sample past the largest phase offset.
	maxLag := int(dsp.PhaseOffsetSamples(dsp.MaxPhaseOffsetDegrees, sampleRate)) + 1
	lag, err := c.Lag(left, right, maxLag)
	if err != nil {
		return err
	}
	report.LagSamples = lag.Samples
	report.LagCoefficient = lag.Coefficient
	return nil
}
