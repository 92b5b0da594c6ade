// SPDX-License-Identifier: MIT
package cmd

import (
	"datawave/internal/config"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseArgsCommands(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Command
	}{
		{"run", nil, CommandRun},
		{"list", []string{"list"}, CommandList},
		{"render", []string{"render", "in.wav", "out.wav"}, CommandRender},
		{"probe", []string{"probe", "probe.wav"}, CommandProbe},
		{"tune", []string{"tune"}, CommandTune},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := ParseArgs(tt.args)
			if err != nil {
				t.Fatalf("ParseArgs(%v) error = %v", tt.args, err)
			}
			if inv.Command != tt.want {
				t.Errorf("Command = %q, want %q", inv.Command, tt.want)
			}
			if inv.Config == nil {
				t.Fatal("Config = nil")
			}
		})
	}
}

func TestParseArgsRenderAndProbe(t *testing.T) {
	inv, err := ParseArgs([]string{"render", "--align=false", "--bit-depth", "24", "song.mp3", "out.wav"})
	if err != nil {
		t.Fatal(err)
	}
	if inv.Input != "song.mp3" || inv.Output != "out.wav" || inv.Align || inv.BitDepth != 24 {
		t.Errorf("render invocation = %+v", inv)
	}

	inv, err = ParseArgs([]string{"probe", "-n", "1024", "-b", "256", "p.wav"})
	if err != nil {
		t.Fatal(err)
	}
	if inv.ProbeFrames != 2048 || inv.BitDepth != 32 {
		t.Errorf("probe frames/bits = %d/%d, want 2048/32", inv.ProbeFrames, inv.BitDepth)
	}

	inv, err = ParseArgs([]string{"tune", "--size", "512"})
	if err != nil {
		t.Fatal(err)
	}
	if inv.TuneSize != 512 {
		t.Errorf("TuneSize = %d, want 512", inv.TuneSize)
	}

	if _, err := ParseArgs([]string{"render", "only-one"}); err == nil {
		t.Error("render with one argument accepted")
	}
}

func TestParseArgsFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datawave.yaml")
	content := `
engine:
  block_size: 2048
  decode: phase
  gain_out: 0.5
audio:
  frames_per_buffer: 256
  channels: 2
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	inv, err := ParseArgs([]string{"--config", path, "--gain-out", "0.25", "-t", "softclip|amplify:0.5", "--udp", "--log-file", "dw.log"})
	if err != nil {
		t.Fatalf("ParseArgs() error = %v", err)
	}
	cfg := inv.Config
	if cfg.Engine.BlockSize != 2048 || cfg.Engine.Decode != "phase" || cfg.Audio.Channels != 2 {
		t.Errorf("file values lost: %+v", cfg.Engine)
	}
	if cfg.Engine.GainOut != 0.25 {
		t.Errorf("GainOut = %v, want flag value 0.25", cfg.Engine.GainOut)
	}
	if cfg.Engine.Transfer != "softclip|amplify:0.5" {
		t.Errorf("Transfer = %q", cfg.Engine.Transfer)
	}
	if cfg.LogFile != "dw.log" {
		t.Errorf("LogFile = %q, want dw.log", cfg.LogFile)
	}
	if !cfg.Monitor.Enabled || !cfg.Monitor.UDPEnabled {
		t.Error("--udp must enable the monitor and UDP")
	}
}

func TestParseArgsFlagsRepairFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datawave.yaml")
	content := "engine:\n  block_size: 512\naudio:\n  frames_per_buffer: 512\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := ParseArgs([]string{"--config", path}); !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("ParseArgs() without -b error = %v, want ErrInvalid", err)
	}

	inv, err := ParseArgs([]string{"--config", path, "-b", "256"})
	if err != nil {
		t.Fatalf("ParseArgs(-b 256) error = %v", err)
	}
	if inv.Config.Engine.BlockSize != 512 || inv.Config.Audio.FramesPerBuffer != 256 {
		t.Errorf("block/frames = %d/%d, want 512/256", inv.Config.Engine.BlockSize, inv.Config.Audio.FramesPerBuffer)
	}
}

func TestParseArgsInvalid(t *testing.T) {
	tests := [][]string{
		{"-n", "1000"},
		{"-n", "1024", "-b", "1024"},
		{"--decode", "guess"},
		{"--transfer", "reverb"},
		{"--backend", "fftw"},
		{"--unknown-flag"},
	}
	for _, args := range tests {
		if _, err := ParseArgs(args); err == nil {
			t.Errorf("ParseArgs(%v) error = nil, want error", args)
		}
	}

	_, err := ParseArgs([]string{"-c", "3"})
	if !errors.Is(err, config.ErrInvalid) {
		t.Errorf("ParseArgs(-c 3) error = %v, want ErrInvalid", err)
	}
}

func TestParseArgsHelp(t *testing.T) {
	devnull, err := os.Open(os.DevNull)
	if err != nil {
		t.Fatal(err)
	}
	defer devnull.Close()
	stdout := os.Stdout
	os.Stdout = devnull
	defer func() { os.Stdout = stdout }()

	inv, err := ParseArgs([]string{"--help"})
	if err != nil || inv != nil {
		t.Errorf("ParseArgs(--help) = %v, %v, want nil, nil", inv, err)
	}
}
