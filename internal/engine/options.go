// SPDX-License-Identifier: MIT
package engine

import (
	"datawave/internal/codec"
	"datawave/internal/spectral"
	"errors"
	"fmt"
)

// Limits on the number of independent streams an engine carries.
const (
	MinChannels = 1
	MaxChannels = 2
)

var (
	ErrChannels = errors.New("engine: channel count out of range")
	ErrClosed   = errors.New("engine: closed")
)

// Options describe everything an Engine allocates at construction.
type Options struct {
	BlockSize       int           // Ring and transform length N.
	FramesPerBuffer int           // Host block length n; must divide N and be at most N/2.
	Channels        int           // Independent streams sharing one codec.
	SampleRate      float64       // Used only to derive the callback deadline; 0 disables overrun accounting.
	Codec           codec.Options // Impulse pair; Size is taken from BlockSize.
	Backend         string        // Preferred spectral backend.
	Tuning          spectral.Mode
	Wisdom          *spectral.Wisdom
}

// DefaultOptions returns mono options for ring size n fed in quarter-ring blocks.
func DefaultOptions(n int) Options {
	return Options{
		BlockSize:       n,
		FramesPerBuffer: n / 4,
		Channels:        1,
		Codec:           codec.DefaultOptions(n),
		Backend:         spectral.GonumName,
		Tuning:          spectral.ModeEstimate,
	}
}

func (o Options) validate() error {
	if o.Channels < MinChannels || o.Channels > MaxChannels {
		return fmt.Errorf("%w: %d (want %d-%d)", ErrChannels, o.Channels, MinChannels, MaxChannels)
	}
	if o.SampleRate < 0 {
		return fmt.Errorf("engine: sample rate must not be negative, got %g", o.SampleRate)
	}
	return nil
}
