// SPDX-License-Identifier: MIT
package config

import (
	"path/filepath"
	"time"

	"sculptor/internal/dsp"
	"sculptor/internal/meter"
)

// Core configuration constants that define the boundaries and defaults
// for the engine.
const (
	DefaultDeviceID        = MinDeviceID // System default device
	DefaultChannels        = 2           // The processor is stereo
	DefaultFramesPerBuffer = 512         // Balanced latency/performance
	DefaultLowLatency      = false
	DefaultSampleRate      = 48000
	DefaultLogLevel        = "info"
	DefaultRefreshHz       = 60 // Display and meter polling rate

	DefaultWebSocketAddress = "127.0.0.1:8080"
	DefaultWebSocketPath    = "/meters"
	DefaultUDPAddress       = "127.0.0.1:9090"
	DefaultUDPInterval      = 33 * time.Millisecond // ~30Hz

	DefaultRecordingDir   = "./recordings"
	DefaultBitDepth       = 16
	DefaultRingSeconds    = 2.0
	DefaultMaxWriteErrors = 5 // Consecutive failures before recording stops

	// Hardware and processing limits
	MinDeviceID     = -1 // -1 represents system default device
	MinSampleRate   = dsp.MinSampleRate
	MaxSampleRate   = dsp.MaxSampleRate
	MaxBufferFrames = dsp.MaxBlockSize
)

// Config is the complete runtime configuration, loaded from YAML and
// overridden by environment variables and command line flags.
type Config struct {
	LogLevel  string           `yaml:"log_level" validate:"oneof=debug info warn warning error"`
	Audio     AudioConfig      `yaml:"audio"`
	Params    dsp.ParameterSet `yaml:"params"`
	Meter     meter.Ballistics `yaml:"meter"`
	Display   DisplayConfig    `yaml:"display"`
	Transport TransportConfig  `yaml:"transport"`
	Recording RecordingConfig  `yaml:"recording"`
}

// AudioConfig holds settings for the duplex stream.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device" validate:"gte=-1"`  // PortAudio device index, -1 for default.
	OutputDevice    int     `yaml:"output_device" validate:"gte=-1"` // PortAudio device index, -1 for default.
	SampleRate      float64 `yaml:"sample_rate" validate:"gte=8000,lte=192000"`
	FramesPerBuffer int     `yaml:"frames_per_buffer" validate:"gte=16,lte=8192"`
	LowLatency      bool    `yaml:"low_latency"`
	Channels        int     `yaml:"channels" validate:"oneof=1 2"`
}

// DisplayConfig controls the meter polling loop.
type DisplayConfig struct {
	RefreshHz float64 `yaml:"refresh_hz" validate:"gt=0,lte=240"`
	TUI       bool    `yaml:"tui"`
}

// Interval returns the polling period.
func (d DisplayConfig) Interval() time.Duration {
	return time.Duration(float64(time.Second) / d.RefreshHz)
}

// TransportConfig selects where meter frames are published.
type TransportConfig struct {
	WebSocket WebSocketConfig `yaml:"websocket"`
	UDP       UDPConfig       `yaml:"udp"`
}

// WebSocketConfig serves meter frames as JSON to browser clients.
type WebSocketConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address" validate:"required"`
	Path    string `yaml:"path" validate:"required,startswith=/"`
}

// UDPConfig sends meter frames as binary packets.
type UDPConfig struct {
	Enabled       bool          `yaml:"enabled"`
	TargetAddress string        `yaml:"target_address" validate:"hostname_port"`
	SendInterval  time.Duration `yaml:"send_interval" validate:"gt=0"`
}

// RecordingConfig controls capture of the processed output.
type RecordingConfig struct {
	Enabled        bool    `yaml:"enabled"`
	OutputDir      string  `yaml:"output_dir" validate:"required"`
	OutputFile     string  `yaml:"output_file"` // Empty picks a timestamped name.
	BitDepth       int     `yaml:"bit_depth" validate:"oneof=16 24"`
	RingSeconds    float64 `yaml:"ring_seconds" validate:"gt=0,lte=30"`
	MaxWriteErrors int     `yaml:"max_write_errors" validate:"gte=1"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			OutputDevice:    DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      DefaultLowLatency,
			Channels:        DefaultChannels,
		},
		Params: dsp.DefaultParameterSet(),
		Meter:  meter.DefaultBallistics(),
		Display: DisplayConfig{
			RefreshHz: DefaultRefreshHz,
			TUI:       true,
		},
		Transport: TransportConfig{
			WebSocket: WebSocketConfig{
				Address: DefaultWebSocketAddress,
				Path:    DefaultWebSocketPath,
			},
			UDP: UDPConfig{
				TargetAddress: DefaultUDPAddress,
				SendInterval:  DefaultUDPInterval,
			},
		},
		Recording: RecordingConfig{
			OutputDir:      DefaultRecordingDir,
			BitDepth:       DefaultBitDepth,
			RingSeconds:    DefaultRingSeconds,
			MaxWriteErrors: DefaultMaxWriteErrors,
		},
	}
}

// RecordingPath returns the file the recorder writes to, generating a
// timestamped name when none is configured.
func (c *Config) RecordingPath(now time.Time) string {
	name := c.Recording.OutputFile
	if name == "" {
		name = "recording-" + now.UTC().Format("02-01-2006-150405") + ".wav"
	}
	if c.Recording.OutputDir == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Recording.OutputDir, name)
}
