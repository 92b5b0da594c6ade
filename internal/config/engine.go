// SPDX-License-Identifier: MIT
package config

import (
	"datawave/internal/engine"
	"datawave/internal/spectral"
	"datawave/internal/transfer"
	"strings"
)

// EngineOptions translates the validated configuration into engine options.
// w may be nil when no tuning cache is used.
func (c *Config) EngineOptions(w *spectral.Wisdom) (engine.Options, error) {
	mode, err := spectral.ParseMode(c.Engine.Tuning)
	if err != nil {
		return engine.Options{}, err
	}
	return engine.Options{
		BlockSize:       c.Engine.BlockSize,
		FramesPerBuffer: c.Audio.FramesPerBuffer,
		Channels:        c.Audio.Channels,
		SampleRate:      c.Audio.SampleRate,
		Codec:           c.Engine.CodecOptions(),
		Backend:         strings.ToLower(c.Engine.Backend),
		Tuning:          mode,
		Wisdom:          w,
	}, nil
}

// Stage builds the configured transfer stage.
func (c *Config) Stage() (transfer.Stage, error) {
	return transfer.Parse(c.Engine.Transfer)
}
