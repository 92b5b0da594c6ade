// SPDX-License-Identifier: MIT
package audio

import "time"

// Device describes one PortAudio device.
type Device struct {
	ID                int
	Name              string
	HostAPI           string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	LowInputLatency   time.Duration
	LowOutputLatency  time.Duration
}

// Kind returns "Input", "Output", "Input/Output" or "" for a device that
// carries no channels.
func (d Device) Kind() string {
	switch {
	case d.MaxInputChannels > 0 && d.MaxOutputChannels > 0:
		return "Input/Output"
	case d.MaxInputChannels > 0:
		return "Input"
	case d.MaxOutputChannels > 0:
		return "Output"
	}
	return ""
}

// Duplex reports whether the device can both capture and play channels.
func (d Device) Duplex(channels int) bool {
	return d.MaxInputChannels >= channels && d.MaxOutputChannels >= channels
}
