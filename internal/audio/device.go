// SPDX-License-Identifier: MIT
package audio

import "github.com/gordonklaus/portaudio"

// Device is a host audio device as shown by the list command.
type Device struct {
	ID                int
	Name              string
	HostAPI           string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	LowInputLatency   float64 // milliseconds
	HighInputLatency  float64 // milliseconds
	LowOutputLatency  float64 // milliseconds
}

// Type describes the device direction.
func (d Device) Type() string {
	switch {
	case d.MaxInputChannels > 0 && d.MaxOutputChannels > 0:
		return "Input/Output"
	case d.MaxInputChannels > 0:
		return "Input"
	case d.MaxOutputChannels > 0:
		return "Output"
	default:
		return "Unavailable"
	}
}

// Duplex reports whether the device can run the processor on its own.
func (d Device) Duplex() bool {
	return d.MaxInputChannels > 0 && d.MaxOutputChannels >= 2
}

func deviceFromInfo(id int, info *portaudio.DeviceInfo) Device {
	d := Device{
		ID:                id,
		Name:              info.Name,
		MaxInputChannels:  info.MaxInputChannels,
		MaxOutputChannels: info.MaxOutputChannels,
		DefaultSampleRate: info.DefaultSampleRate,
		LowInputLatency:   info.DefaultLowInputLatency.Seconds() * 1000,
		HighInputLatency:  info.DefaultHighInputLatency.Seconds() * 1000,
		LowOutputLatency:  info.DefaultLowOutputLatency.Seconds() * 1000,
	}
	if info.HostApi != nil {
		d.HostAPI = info.HostApi.Name
	}
	return d
}
