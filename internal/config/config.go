// SPDX-License-Identifier: MIT
package config

import "time"

// Core configuration constants that define the boundaries and defaults
// for the engine and its audio host.
const (
	// Engine defaults
	DefaultBlockSize = 4096          // Ring and transform length N.
	DefaultWidth     = 64.0          // Impulse envelope width in samples.
	DefaultSeed      = 1             // Impulse noise seed.
	DefaultNormalize = "energy"      // Zero-lag autocorrelation of 1.
	DefaultDecode    = "reciprocal"  // Exact spectral inverse with clamping.
	DefaultEpsilon   = 1e-6          // Clamp floor relative to the spectral peak.
	DefaultTransfer  = "identity"    // Pass the decoded data through.
	DefaultBackend   = "gonum"       // gonum dsp/fourier.
	DefaultTuning    = "estimate"    // No measurement at startup.
	DefaultWisdom    = "wisdom.yaml" // Tuning cache location.

	// Audio defaults
	DefaultDeviceID        = MinDeviceID // System default device.
	DefaultSampleRate      = 48000       // Sample rate in Hz.
	DefaultFramesPerBuffer = 512         // Host block length n.
	DefaultChannels        = 1           // Mono.
	DefaultLowLatency      = false       // Standard latency mode.

	// Monitor defaults
	DefaultWebSocketAddr    = ":8080"
	DefaultUDPTargetAddress = "127.0.0.1:9090"
	DefaultUDPSendInterval  = 33 * time.Millisecond // ~30Hz.
	DefaultMonitorSize      = 1024
	DefaultMonitorWindow    = "Hann"

	// Hardware and processing limits
	MinDeviceID     = -1     // -1 represents the system default device.
	MinSampleRate   = 8000   // Minimum usable sample rate (Hz).
	MaxSampleRate   = 192000 // Maximum supported sample rate (Hz).
	MinBlockSize    = 64     // Smallest ring that still spreads the impulse.
	MaxBlockSize    = 1 << 20
	MaxBufferFrames = 8192 // Maximum frames per buffer (power of 2).
	MaxChannels     = 2
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	LogLevel  string          `yaml:"log_level"` // Logging level (e.g., "debug", "info", "warn", "error").
	LogFile   string          `yaml:"log_file"`  // Append logs to this file instead of stderr.
	Engine    EngineConfig    `yaml:"engine"`    // Spectral codec engine.
	Audio     AudioConfig     `yaml:"audio"`     // Audio host settings.
	Recording RecordingConfig `yaml:"recording"` // Output recording.
	Monitor   MonitorConfig   `yaml:"monitor"`   // Spectrum monitor and transports.
}

// EngineConfig holds the block length, impulse pair and transform settings.
type EngineConfig struct {
	BlockSize  int     `yaml:"block_size"`  // Ring and transform length N (power of two).
	Width      float64 `yaml:"width"`       // Gaussian envelope width of the impulse.
	Seed       uint64  `yaml:"seed"`        // Impulse noise seed.
	Normalize  string  `yaml:"normalize"`   // "energy" or "peak".
	Decode     string  `yaml:"decode"`      // "reciprocal" or "phase".
	Epsilon    float64 `yaml:"epsilon"`     // Reciprocal clamp floor, relative to max |E|.
	GainIn     float64 `yaml:"gain_in"`     // Gain applied while decoding.
	GainOut    float64 `yaml:"gain_out"`    // Gain applied while encoding.
	Transfer   string  `yaml:"transfer"`    // Transfer stage, e.g. "softclip:0.5,2|amplify:0.8".
	Backend    string  `yaml:"backend"`     // Preferred spectral backend ("gonum", "algofft").
	Tuning     string  `yaml:"tuning"`      // "estimate", "measure" or "wisdom-only".
	WisdomFile string  `yaml:"wisdom_file"` // Tuning cache path; empty disables the cache.
}

// AudioConfig holds settings related to audio input/output.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index for input (-1 for default).
	OutputDevice    int     `yaml:"output_device"`     // PortAudio device index for output (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Sample rate in Hz (e.g., 44100, 48000).
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Host block length; must divide block_size and be at most half of it.
	Channels        int     `yaml:"channels"`          // Streams carried by the engine (1 or 2).
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency settings from PortAudio devices.
}

// RecordingConfig holds settings related to recording the output stream.
type RecordingConfig struct {
	Enabled   bool   `yaml:"enabled"`    // Record the engine output to a WAV file.
	OutputDir string `yaml:"output_dir"` // Directory to save recordings.
	BitDepth  int    `yaml:"bit_depth"`  // 16, 24 or 32.
}

// MonitorConfig holds settings for the spectrum monitor and its transports.
type MonitorConfig struct {
	Enabled          bool          `yaml:"enabled"`            // Run the monitor goroutine.
	Size             int           `yaml:"size"`               // Analysis FFT size (power of two).
	Window           string        `yaml:"window"`             // Window function name (e.g., "Hann", "Hamming").
	WebSocketAddr    string        `yaml:"websocket_addr"`     // Listen address for /spectrum and /metrics; empty disables.
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Send spectrum packets over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address and port for UDP packets.
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Interval between UDP packets.
	Bands            []BandConfig  `yaml:"bands"`              // Energy bands; empty uses the built-in set.
}

// BandConfig names a frequency range reported by the monitor.
type BandConfig struct {
	Name   string  `yaml:"name"`
	LowHz  float64 `yaml:"low_hz"`
	HighHz float64 `yaml:"high_hz"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Engine: EngineConfig{
			BlockSize:  DefaultBlockSize,
			Width:      DefaultWidth,
			Seed:       DefaultSeed,
			Normalize:  DefaultNormalize,
			Decode:     DefaultDecode,
			Epsilon:    DefaultEpsilon,
			GainIn:     1,
			GainOut:    1,
			Transfer:   DefaultTransfer,
			Backend:    DefaultBackend,
			Tuning:     DefaultTuning,
			WisdomFile: DefaultWisdom,
		},
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			OutputDevice:    DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			Channels:        DefaultChannels,
			LowLatency:      DefaultLowLatency,
		},
		Recording: RecordingConfig{
			Enabled:   false,
			OutputDir: "./recordings",
			BitDepth:  16,
		},
		Monitor: MonitorConfig{
			Enabled:          false,
			Size:             DefaultMonitorSize,
			Window:           DefaultMonitorWindow,
			WebSocketAddr:    DefaultWebSocketAddr,
			UDPEnabled:       false,
			UDPTargetAddress: DefaultUDPTargetAddress,
			UDPSendInterval:  DefaultUDPSendInterval,
		},
	}
}
