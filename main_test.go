// SPDX-License-Identifier: MIT
package main

import (
	"datawave/cmd"
	"datawave/internal/audio"
	"datawave/internal/config"
	"datawave/internal/metrics"
	"datawave/internal/spectral"
	"errors"
	"math"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Engine.BlockSize = 512
	cfg.Engine.Width = 16
	cfg.Engine.WisdomFile = filepath.Join(t.TempDir(), "wisdom.yaml")
	cfg.Audio.FramesPerBuffer = 128
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	return cfg
}

func TestRenderCommand(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "in.wav")
	out := filepath.Join(dir, "out.wav")

	clip := audio.NewClip(48000, 1, 3000)
	for i := range clip.Data[0] {
		clip.Data[0][i] = float32(0.5 * math.Sin(2*math.Pi*float64(i)/64))
	}
	if err := audio.WriteWAV(in, clip, 32); err != nil {
		t.Fatal(err)
	}

	inv := &cmd.Invocation{Command: cmd.CommandRender, Config: cfg, Input: in, Output: out, Align: true, BitDepth: 32}
	if err := render(inv); err != nil {
		t.Fatalf("render() error = %v", err)
	}

	got, err := audio.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if got.Frames() != clip.Frames() {
		t.Fatalf("rendered %d frames, want %d", got.Frames(), clip.Frames())
	}
	for i := range clip.Data[0] {
		if d := math.Abs(float64(got.Data[0][i] - clip.Data[0][i])); d > 1e-3 {
			t.Fatalf("sample %d: got %v, want %v", i, got.Data[0][i], clip.Data[0][i])
		}
	}
}

func TestProbeCommand(t *testing.T) {
	cfg := testConfig(t)
	out := filepath.Join(t.TempDir(), "probe.wav")
	inv := &cmd.Invocation{Command: cmd.CommandProbe, Config: cfg, Output: out, ProbeFrames: 1024, BitDepth: 32}
	if err := probe(inv); err != nil {
		t.Fatalf("probe() error = %v", err)
	}
	got, err := audio.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if got.Frames() != 1024 {
		t.Errorf("probe frames = %d, want 1024", got.Frames())
	}
}

func TestTuneCommand(t *testing.T) {
	cfg := testConfig(t)
	inv := &cmd.Invocation{Command: cmd.CommandTune, Config: cfg, TuneSize: 256, TuneRounds: 4}
	if err := tune(inv); err != nil {
		t.Fatalf("tune() error = %v", err)
	}

	w, err := spectral.LoadWisdom(cfg.Engine.WisdomFile, 256)
	if err != nil {
		t.Fatal(err)
	}
	e, ok := w.Lookup(256)
	if !ok || e.Backend == "" {
		t.Fatalf("no entry for 256 after tune: %+v", e)
	}

	// wisdom-only now succeeds for the tuned size.
	cfg.Engine.BlockSize = 256
	cfg.Audio.FramesPerBuffer = 64
	cfg.Engine.Tuning = string(spectral.ModeWisdomOnly)
	eng, wisdom, err := buildEngine(cfg, nil)
	if err != nil {
		t.Fatalf("buildEngine() error = %v", err)
	}
	if eng.Backend() != e.Backend {
		t.Errorf("Backend() = %q, want %q", eng.Backend(), e.Backend)
	}
	closeEngine(eng, wisdom)

	inv.Config.Engine.WisdomFile = ""
	if err := tune(inv); err == nil {
		t.Error("tune() without a cache path succeeded")
	}
}

func TestBuildEngineMeasureSavesWisdom(t *testing.T) {
	cfg := testConfig(t)
	cfg.Engine.Tuning = string(spectral.ModeMeasure)

	eng, wisdom, err := buildEngine(cfg, nil)
	if err != nil {
		t.Fatalf("buildEngine() error = %v", err)
	}
	if !wisdom.Dirty() {
		t.Fatal("measure mode did not record a decision")
	}
	closeEngine(eng, wisdom)

	w, err := spectral.LoadWisdom(cfg.Engine.WisdomFile, cfg.Engine.BlockSize)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := w.Lookup(cfg.Engine.BlockSize); !ok {
		t.Error("tuning cache was not saved on close")
	}
}

func TestOutputsWiring(t *testing.T) {
	cfg := testConfig(t)
	cfg.Monitor.Enabled = true
	cfg.Monitor.WebSocketAddr = "127.0.0.1:0"
	cfg.Recording.Enabled = true
	cfg.Recording.OutputDir = t.TempDir()

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	o, err := newOutputs(cfg, reg, m)
	if err != nil {
		t.Fatalf("newOutputs() error = %v", err)
	}
	if o.monitor == nil || o.recorder == nil || o.transport == nil {
		t.Fatalf("outputs = %+v, want monitor, recorder and transport", o)
	}

	eng, wisdom, err := buildEngine(cfg, nil, append(o.observers(), m)...)
	if err != nil {
		t.Fatal(err)
	}
	stop, err := o.start(cfg)
	if err != nil {
		t.Fatal(err)
	}

	n := cfg.Audio.FramesPerBuffer
	in := [][]float32{make([]float32, n)}
	out := [][]float32{make([]float32, n)}
	for range 8 {
		if err := eng.Process(in, out); err != nil {
			t.Fatal(err)
		}
	}

	stop()
	o.monitor.Poll()
	o.close()
	closeEngine(eng, wisdom)

	if got := o.recorder.Frames(); got != int64(8*n) {
		t.Errorf("recorded %d frames, want %d", got, 8*n)
	}
}

func TestMonitorBands(t *testing.T) {
	if got := monitorBands(nil); got != nil {
		t.Errorf("monitorBands(nil) = %v, want nil", got)
	}
	got := monitorBands([]config.BandConfig{{Name: "hum", LowHz: 45, HighHz: 65}})
	if len(got) != 1 || got[0].Name != "hum" || got[0].LowHz != 45 || got[0].HighHz != 65 {
		t.Errorf("monitorBands() = %+v", got)
	}
}

type fakeHost struct {
	errs     chan error
	startErr error
	started  bool
	stopped  bool
}

func newFakeHost() *fakeHost { return &fakeHost{errs: make(chan error, 1)} }

func (f *fakeHost) Start() error {
	f.started = true
	return f.startErr
}

func (f *fakeHost) Stop() error {
	f.stopped = true
	return nil
}

func (f *fakeHost) Err() <-chan error { return f.errs }

func TestServeStopsOnSignal(t *testing.T) {
	h := newFakeHost()
	done := make(chan os.Signal, 1)
	done <- syscall.SIGTERM

	if err := serve(h, done); err != nil {
		t.Fatalf("serve() error = %v", err)
	}
	if !h.started || !h.stopped {
		t.Errorf("started=%v stopped=%v, want both", h.started, h.stopped)
	}
}

func TestServeFailsOnStreamError(t *testing.T) {
	h := newFakeHost()
	h.errs <- audio.ErrEngineFailing

	err := serve(h, make(chan os.Signal))
	if !errors.Is(err, audio.ErrEngineFailing) {
		t.Fatalf("serve() error = %v, want ErrEngineFailing", err)
	}
	if !h.stopped {
		t.Error("stream was not stopped after a failure")
	}
}

func TestServeStartError(t *testing.T) {
	h := newFakeHost()
	h.startErr = errors.New("device busy")

	if err := serve(h, make(chan os.Signal)); !errors.Is(err, h.startErr) {
		t.Errorf("serve() error = %v, want start error", err)
	}
	if h.stopped {
		t.Error("Stop called after a failed Start")
	}
}
