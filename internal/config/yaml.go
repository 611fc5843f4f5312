// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"sculptor/internal/log"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SCULPTOR_"

// DefaultPath is searched when LoadConfig is given an empty path.
const DefaultPath = "config.yaml"

// LoadConfig loads configuration from a YAML file specified by path. If path
// is empty, it tries DefaultPath and falls back to built-in defaults when that
// does not exist. Environment overrides are applied last, then the result is
// validated.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultPath); err != nil {
			cfg.applyEnvOverrides(os.LookupEnv)
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return cfg, nil
		}
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Marshal renders the configuration as YAML, e.g. to seed a config file.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// lookupFunc matches os.LookupEnv.
type lookupFunc func(key string) (string, bool)

// applyEnvOverrides applies SCULPTOR_* variables on top of the file values.
// Unparseable values are logged and ignored.
func (c *Config) applyEnvOverrides(lookup lookupFunc) {
	str := func(name string, dst *string) {
		if val, ok := lookup(EnvPrefix + name); ok {
			*dst = val
			log.Debugf("configuration: overriding %s from env: %s", name, val)
		}
	}
	boolean := func(name string, dst *bool) {
		if val, ok := lookup(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(val)
			if err != nil {
				log.Warnf("configuration: ignoring %s%s=%q: %v", EnvPrefix, name, val, err)
				return
			}
			*dst = b
			log.Debugf("configuration: overriding %s from env: %v", name, b)
		}
	}
	integer := func(name string, dst *int) {
		if val, ok := lookup(EnvPrefix + name); ok {
			n, err := strconv.Atoi(val)
			if err != nil {
				log.Warnf("configuration: ignoring %s%s=%q: %v", EnvPrefix, name, val, err)
				return
			}
			*dst = n
			log.Debugf("configuration: overriding %s from env: %d", name, n)
		}
	}
	float := func(name string, dst *float64) {
		if val, ok := lookup(EnvPrefix + name); ok {
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				log.Warnf("configuration: ignoring %s%s=%q: %v", EnvPrefix, name, val, err)
				return
			}
			*dst = f
			log.Debugf("configuration: overriding %s from env: %v", name, f)
		}
	}
	duration := func(name string, dst *time.Duration) {
		if val, ok := lookup(EnvPrefix + name); ok {
			d, err := time.ParseDuration(val)
			if err != nil {
				log.Warnf("configuration: ignoring %s%s=%q: %v", EnvPrefix, name, val, err)
				return
			}
			*dst = d
			log.Debugf("configuration: overriding %s from env: %s", name, d)
		}
	}

	str("LOG_LEVEL", &c.LogLevel)

	integer("INPUT_DEVICE", &c.Audio.InputDevice)
	integer("OUTPUT_DEVICE", &c.Audio.OutputDevice)
	float("SAMPLE_RATE", &c.Audio.SampleRate)
	integer("FRAMES_PER_BUFFER", &c.Audio.FramesPerBuffer)
	boolean("LOW_LATENCY", &c.Audio.LowLatency)

	boolean("BYPASS", &c.Params.Bypass)
	boolean("MID_SIDE", &c.Params.MidSide)

	float("REFRESH_HZ", &c.Display.RefreshHz)
	boolean("TUI", &c.Display.TUI)

	boolean("WS_ENABLED", &c.Transport.WebSocket.Enabled)
	str("WS_ADDRESS", &c.Transport.WebSocket.Address)
	boolean("UDP_ENABLED", &c.Transport.UDP.Enabled)
	str("UDP_TARGET_ADDRESS", &c.Transport.UDP.TargetAddress)
	duration("UDP_SEND_INTERVAL", &c.Transport.UDP.SendInterval)

	boolean("RECORDING_ENABLED", &c.Recording.Enabled)
	str("RECORDING_DIR", &c.Recording.OutputDir)
}
