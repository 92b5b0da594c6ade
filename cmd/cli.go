// SPDX-License-Identifier: MIT
package cmd

import (
	"datawave/internal/config"
	"datawave/internal/log"
	"datawave/pkg/build"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Command names the action main should run.
type Command string

const (
	CommandRun    Command = "run"
	CommandList   Command = "list"
	CommandRender Command = "render"
	CommandProbe  Command = "probe"
	CommandTune   Command = "tune"
)

// Invocation is the parsed command line.
type Invocation struct {
	Command Command
	Config  *config.Config

	Input  string // render source file
	Output string // render or probe destination file

	Align       bool // render: compensate the engine latency
	ProbeFrames int  // probe: frames to render, 0 means two rings
	BitDepth    int  // render and probe output bit depth

	TuneSize   int // tune: transform size, 0 means engine.block_size
	TuneRounds int
}

// flagValues holds every flag before it is merged into the loaded config.
type flagValues struct {
	configPath string
	verbose    bool
	logFile    string

	blockSize int
	width     float64
	seed      uint64
	normalize string
	decode    string
	epsilon   float64
	gainIn    float64
	gainOut   float64
	transfer  string
	backend   string
	tuning    string
	wisdom    string

	inputDevice     int
	outputDevice    int
	sampleRate      float64
	framesPerBuffer int
	channels        int
	lowLatency      bool

	record  bool
	monitor bool
	udp     bool
}

// ParseArgs parses args (without the program name), loads the configuration
// file and applies every flag the user set on top of it. It returns a nil
// Invocation when cobra printed help or version output instead.
func ParseArgs(args []string) (*Invocation, error) {
	buildInfo := build.GetBuildFlags()
	inv := &Invocation{Align: true, BitDepth: 16}
	var fv flagValues

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			inv.Command = CommandRun
			return nil
		},
	}
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
	rootCmd.SetArgs(args)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inv.Command = CommandList
			return nil
		},
	})

	renderCmd := &cobra.Command{
		Use:   "render IN OUT",
		Short: "Process an audio file (wav, mp3, ogg) offline and write a WAV file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv.Command = CommandRender
			inv.Input, inv.Output = args[0], args[1]
			return nil
		},
	}
	renderCmd.Flags().BoolVar(&inv.Align, "align", true,
		"Remove the engine latency so the output lines up with the input")
	renderCmd.Flags().IntVar(&inv.BitDepth, "bit-depth", 16, "Output bit depth (16, 24 or 32)")
	rootCmd.AddCommand(renderCmd)

	probeCmd := &cobra.Command{
		Use:   "probe OUT",
		Short: "Write the codec round-trip impulse response as a WAV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv.Command = CommandProbe
			inv.Output = args[0]
			return nil
		},
	}
	probeCmd.Flags().IntVar(&inv.ProbeFrames, "frames", 0, "Frames to render (default two ring lengths)")
	probeCmd.Flags().IntVar(&inv.BitDepth, "bit-depth", 32, "Output bit depth (16, 24 or 32)")
	rootCmd.AddCommand(probeCmd)

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "Measure the spectral backends and write the tuning cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inv.Command = CommandTune
			return nil
		},
	}
	tuneCmd.Flags().IntVar(&inv.TuneSize, "size", 0, "Transform size to measure (default engine block size)")
	tuneCmd.Flags().IntVar(&inv.TuneRounds, "rounds", 0, "Forward+inverse pairs timed per backend")
	rootCmd.AddCommand(tuneCmd)

	registerFlags(rootCmd.PersistentFlags(), &fv)

	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	if inv.Command == "" {
		// Help or version output was printed instead of running a command.
		return nil, nil
	}

	log.Configure("", fv.verbose)
	cfg, err := config.Load(fv.configPath)
	if err != nil {
		return nil, err
	}
	applyFlags(rootCmd.PersistentFlags(), &fv, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Configure(cfg.LogLevel, fv.verbose)

	if inv.Command == CommandTune && inv.TuneSize == 0 {
		inv.TuneSize = cfg.Engine.BlockSize
	}
	if inv.Command == CommandProbe && inv.ProbeFrames == 0 {
		inv.ProbeFrames = 2 * cfg.Engine.BlockSize
	}
	inv.Config = cfg
	return inv, nil
}

func registerFlags(fs *pflag.FlagSet, fv *flagValues) {
	d := config.Default()

	fs.StringVarP(&fv.configPath, "config", "C", "", "Configuration file (default config.yaml or datawave.yaml if present)")
	fs.BoolVarP(&fv.verbose, "verbose", "v", false, "Show verbose output")
	fs.StringVar(&fv.logFile, "log-file", "", "Append logs to this file instead of stderr")

	// Engine
	fs.IntVarP(&fv.blockSize, "block-size", "n", d.Engine.BlockSize, "Ring and transform length N (power of two)")
	fs.Float64Var(&fv.width, "width", d.Engine.Width, "Impulse envelope width in samples")
	fs.Uint64Var(&fv.seed, "seed", d.Engine.Seed, "Impulse noise seed")
	fs.StringVar(&fv.normalize, "normalize", d.Engine.Normalize, "Impulse normalization (energy, peak)")
	fs.StringVar(&fv.decode, "decode", d.Engine.Decode, "Decode policy (reciprocal, phase)")
	fs.Float64Var(&fv.epsilon, "epsilon", d.Engine.Epsilon, "Reciprocal clamp floor relative to the spectral peak")
	fs.Float64Var(&fv.gainIn, "gain-in", d.Engine.GainIn, "Gain applied while decoding")
	fs.Float64Var(&fv.gainOut, "gain-out", d.Engine.GainOut, "Gain applied while encoding")
	fs.StringVarP(&fv.transfer, "transfer", "t", d.Engine.Transfer, "Transfer stage chain, e.g. softclip:0.5,2|amplify:0.8")
	fs.StringVar(&fv.backend, "backend", d.Engine.Backend, "Preferred spectral backend (gonum, algofft)")
	fs.StringVar(&fv.tuning, "tuning", d.Engine.Tuning, "Backend selection (estimate, measure, wisdom-only)")
	fs.StringVar(&fv.wisdom, "wisdom", d.Engine.WisdomFile, "Tuning cache file; empty disables it")

	// Audio
	fs.IntVarP(&fv.inputDevice, "input-device", "d", d.Audio.InputDevice,
		"Input device ID. Use 'list' command to see available devices.")
	fs.IntVarP(&fv.outputDevice, "output-device", "D", d.Audio.OutputDevice, "Output device ID")
	fs.Float64VarP(&fv.sampleRate, "sample-rate", "s", d.Audio.SampleRate, "Sample rate, measured in Hertz (Hz)")
	fs.IntVarP(&fv.framesPerBuffer, "frames-per-buffer", "b", d.Audio.FramesPerBuffer,
		"Frames per callback; must divide the block size and be at most half of it")
	fs.IntVarP(&fv.channels, "channels", "c", d.Audio.Channels, "Number of channels (1=mono, 2=stereo)")
	fs.BoolVarP(&fv.lowLatency, "low-latency", "l", d.Audio.LowLatency, "Request low device latency")

	// Outputs
	fs.BoolVarP(&fv.record, "record", "r", d.Recording.Enabled, "Record the engine output to a WAV file")
	fs.BoolVarP(&fv.monitor, "monitor", "m", d.Monitor.Enabled, "Serve the spectrum monitor")
	fs.BoolVar(&fv.udp, "udp", d.Monitor.UDPEnabled, "Send spectrum packets over UDP (implies --monitor)")
}

// applyFlags copies every flag the user set explicitly over the file values.
func applyFlags(fs *pflag.FlagSet, fv *flagValues, cfg *config.Config) {
	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}
	set("block-size", func() { cfg.Engine.BlockSize = fv.blockSize })
	set("width", func() { cfg.Engine.Width = fv.width })
	set("seed", func() { cfg.Engine.Seed = fv.seed })
	set("normalize", func() { cfg.Engine.Normalize = fv.normalize })
	set("decode", func() { cfg.Engine.Decode = fv.decode })
	set("epsilon", func() { cfg.Engine.Epsilon = fv.epsilon })
	set("gain-in", func() { cfg.Engine.GainIn = fv.gainIn })
	set("gain-out", func() { cfg.Engine.GainOut = fv.gainOut })
	set("transfer", func() { cfg.Engine.Transfer = fv.transfer })
	set("backend", func() { cfg.Engine.Backend = fv.backend })
	set("tuning", func() { cfg.Engine.Tuning = fv.tuning })
	set("wisdom", func() { cfg.Engine.WisdomFile = fv.wisdom })

	set("input-device", func() { cfg.Audio.InputDevice = fv.inputDevice })
	set("output-device", func() { cfg.Audio.OutputDevice = fv.outputDevice })
	set("sample-rate", func() { cfg.Audio.SampleRate = fv.sampleRate })
	set("frames-per-buffer", func() { cfg.Audio.FramesPerBuffer = fv.framesPerBuffer })
	set("channels", func() { cfg.Audio.Channels = fv.channels })
	set("low-latency", func() { cfg.Audio.LowLatency = fv.lowLatency })

	set("record", func() { cfg.Recording.Enabled = fv.record })
	set("monitor", func() { cfg.Monitor.Enabled = fv.monitor })
	set("udp", func() {
		cfg.Monitor.UDPEnabled = fv.udp
		if fv.udp {
			cfg.Monitor.Enabled = true
		}
	})
	set("log-file", func() { cfg.LogFile = fv.logFile })
	if fv.verbose {
		cfg.LogLevel = log.LevelDebug.String()
	}
}

// Usage returns a one-line hint for error messages.
func Usage() string {
	return fmt.Sprintf("run '%s --help' for usage", build.GetBuildFlags().Name)
}
