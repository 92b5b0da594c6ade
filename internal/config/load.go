// SPDX-License-Identifier: MIT
package config

import (
	"datawave/internal/codec"
	"datawave/internal/log"
	"datawave/internal/spectral"
	"datawave/internal/transfer"
	"datawave/pkg/bitint"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("invalid configuration")

// LoadConfig loads configuration from a YAML file specified by path, applies
// environment overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads configuration like LoadConfig but does not validate it, so callers
// can merge further overrides first. If path is empty, it searches the default
// locations ("config.yaml", "datawave.yaml"). If no file is found, it uses the
// built-in defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		for _, candidate := range []string{"config.yaml", "datawave.yaml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		log.Debugf("Config: loaded %s", path)
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()
	return cfg, nil
}

// Validate checks every field that would otherwise fail later during startup.
func (c *Config) Validate() error {
	e := c.Engine
	if e.BlockSize < MinBlockSize || e.BlockSize > MaxBlockSize || !bitint.IsPowerOfTwo(e.BlockSize) {
		return invalid("engine.block_size %d must be a power of two in [%d, %d]", e.BlockSize, MinBlockSize, MaxBlockSize)
	}
	if _, err := codec.ParseNormalization(e.Normalize); err != nil {
		return invalid("engine.normalize: %v", err)
	}
	if _, err := codec.ParseDecodePolicy(e.Decode); err != nil {
		return invalid("engine.decode: %v", err)
	}
	if !(e.Width > 0) {
		return invalid("engine.width must be positive, got %g", e.Width)
	}
	if !(e.Epsilon > 0 && e.Epsilon < 1) {
		return invalid("engine.epsilon must be in (0, 1), got %g", e.Epsilon)
	}
	if _, err := transfer.Parse(e.Transfer); err != nil {
		return invalid("engine.transfer: %v", err)
	}
	if !slices.Contains(spectral.Backends(), strings.ToLower(e.Backend)) {
		return invalid("engine.backend %q is not one of %v", e.Backend, spectral.Backends())
	}
	if _, err := spectral.ParseMode(e.Tuning); err != nil {
		return invalid("engine.tuning: %v", err)
	}

	a := c.Audio
	if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		return invalid("audio.sample_rate %g outside [%d, %d]", a.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if a.FramesPerBuffer > MaxBufferFrames || a.FramesPerBuffer > e.BlockSize/2 || !bitint.Divides(a.FramesPerBuffer, e.BlockSize) {
		return invalid("audio.frames_per_buffer %d must divide engine.block_size %d and be at most %d",
			a.FramesPerBuffer, e.BlockSize, min(MaxBufferFrames, e.BlockSize/2))
	}
	if a.Channels < 1 || a.Channels > MaxChannels {
		return invalid("audio.channels %d must be 1 or 2", a.Channels)
	}
	if a.InputDevice < MinDeviceID || a.OutputDevice < MinDeviceID {
		return invalid("audio device ids must be >= %d", MinDeviceID)
	}

	if r := c.Recording; r.Enabled {
		if r.OutputDir == "" {
			return invalid("recording.output_dir must be set when recording is enabled")
		}
		if r.BitDepth != 16 && r.BitDepth != 24 && r.BitDepth != 32 {
			return invalid("recording.bit_depth %d must be 16, 24 or 32", r.BitDepth)
		}
	}

	if m := c.Monitor; m.Enabled {
		if m.Size < 2 || !bitint.IsPowerOfTwo(m.Size) {
			return invalid("monitor.size %d must be a power of two", m.Size)
		}
		if m.UDPEnabled {
			if !strings.Contains(m.UDPTargetAddress, ":") {
				return invalid("monitor.udp_target_address %q appears invalid (missing port?)", m.UDPTargetAddress)
			}
			if m.UDPSendInterval <= 0 {
				return invalid("monitor.udp_send_interval must be positive when UDP is enabled")
			}
		}
		for i, b := range m.Bands {
			if b.Name == "" {
				return invalid("monitor.bands[%d] needs a name", i)
			}
			if b.LowHz < 0 || b.HighHz <= b.LowHz {
				return invalid("monitor.bands[%d] %q range %g-%g Hz is empty", i, b.Name, b.LowHz, b.HighHz)
			}
		}
	}

	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		return invalid("log_level %q is not recognized", c.LogLevel)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// applyEnvOverrides applies ENV_* variables on top of the file values. Values that
// fail to parse are ignored with a warning.
func (c *Config) applyEnvOverrides() {
	str := func(key string, dst *string) {
		if val, ok := os.LookupEnv(key); ok {
			*dst = val
			log.Debugf("Config: overriding %s from env: %s", key, val)
		}
	}
	integer := func(key string, dst *int) {
		if val, ok := os.LookupEnv(key); ok {
			n, err := strconv.Atoi(val)
			if err != nil {
				log.Warnf("Config: ignoring %s=%q: %v", key, val, err)
				return
			}
			*dst = n
			log.Debugf("Config: overriding %s from env: %d", key, n)
		}
	}
	boolean := func(key string, dst *bool) {
		if val, ok := os.LookupEnv(key); ok {
			b, err := strconv.ParseBool(val)
			if err != nil {
				log.Warnf("Config: ignoring %s=%q: %v", key, val, err)
				return
			}
			*dst = b
			log.Debugf("Config: overriding %s from env: %v", key, b)
		}
	}

	// ENV_{...}
	// These are general overrides.
	str("ENV_LOG_LEVEL", &c.LogLevel)
	str("ENV_LOG_FILE", &c.LogFile)

	// ENV_ENGINE_{...}
	integer("ENV_ENGINE_BLOCK_SIZE", &c.Engine.BlockSize)
	str("ENV_ENGINE_DECODE", &c.Engine.Decode)
	str("ENV_ENGINE_NORMALIZE", &c.Engine.Normalize)
	str("ENV_ENGINE_TRANSFER", &c.Engine.Transfer)
	str("ENV_ENGINE_BACKEND", &c.Engine.Backend)
	str("ENV_ENGINE_TUNING", &c.Engine.Tuning)
	str("ENV_ENGINE_WISDOM_FILE", &c.Engine.WisdomFile)

	// ENV_AUDIO_{...}
	integer("ENV_AUDIO_FRAMES_PER_BUFFER", &c.Audio.FramesPerBuffer)
	integer("ENV_AUDIO_CHANNELS", &c.Audio.Channels)

	// ENV_UDP_{...}
	// These are specific to the monitor transports.
	boolean("ENV_UDP_ENABLED", &c.Monitor.UDPEnabled)
	str("ENV_UDP_TARGET_ADDRESS", &c.Monitor.UDPTargetAddress)
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			c.Monitor.UDPSendInterval = dur
			log.Debugf("Config: overriding ENV_UDP_SEND_INTERVAL from env: %s", dur)
		} else {
			log.Warnf("Config: ignoring ENV_UDP_SEND_INTERVAL=%q: %v", val, err)
		}
	}
}

// CodecOptions converts the engine section into codec options.
func (e EngineConfig) CodecOptions() codec.Options {
	return codec.Options{
		Size:      e.BlockSize,
		Width:     e.Width,
		Seed:      e.Seed,
		Normalize: codec.Normalization(strings.ToLower(e.Normalize)),
		Decode:    codec.DecodePolicy(strings.ToLower(e.Decode)),
		Epsilon:   e.Epsilon,
		GainIn:    e.GainIn,
		GainOut:   e.GainOut,
	}
}
