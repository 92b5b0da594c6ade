// SPDX-License-Identifier: MIT
package main

import (
	"datawave/cmd"
	"datawave/internal/audio"
	"datawave/internal/config"
	"datawave/internal/engine"
	"datawave/internal/log"
	"datawave/internal/spectral"
	"datawave/internal/transfer"
	"fmt"
	"io"
	"math"
	"time"
)

// buildEngine loads the tuning cache and constructs the engine. stage
// overrides the configured transfer stage when non-nil.
func buildEngine(cfg *config.Config, stage transfer.Stage, observers ...engine.Observer) (*engine.Engine, *spectral.Wisdom, error) {
	wisdom, err := spectral.LoadWisdom(cfg.Engine.WisdomFile, cfg.Engine.BlockSize)
	if err != nil {
		return nil, nil, err
	}
	opts, err := cfg.EngineOptions(wisdom)
	if err != nil {
		return nil, nil, err
	}
	if stage == nil {
		if stage, err = cfg.Stage(); err != nil {
			return nil, nil, err
		}
	}
	eng, err := engine.New(opts, stage, observers...)
	if err != nil {
		return nil, nil, err
	}
	return eng, wisdom, nil
}

// closeEngine closes eng and saves the tuning cache if a measurement added to it.
func closeEngine(eng *engine.Engine, wisdom *spectral.Wisdom) {
	if err := eng.Close(); err != nil {
		log.Errorf("Engine: close: %v", err)
	}
	if wisdom == nil || !wisdom.Dirty() {
		return
	}
	if err := wisdom.Save(); err != nil {
		log.Errorf("Spectral: saving tuning cache: %v", err)
		return
	}
	log.Infof("Spectral: tuning cache saved to %s", wisdom.Path())
}

func listDevices(w io.Writer) error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()
	return audio.ListDevices(w)
}

// tune times every backend at the requested size and stores the fastest.
func tune(inv *cmd.Invocation) error {
	path := inv.Config.Engine.WisdomFile
	if path == "" {
		return fmt.Errorf("no tuning cache file configured (use --wisdom)")
	}
	wisdom, err := spectral.LoadWisdom(path, inv.TuneSize)
	if err != nil {
		return err
	}

	results, err := spectral.Measure(inv.TuneSize, inv.TuneRounds)
	if err != nil {
		return err
	}
	for _, m := range results {
		log.Infof("Spectral: %-8s %10.0f ns per forward+inverse at N=%d", m.Backend, m.NsPerOp, inv.TuneSize)
	}
	best := results[0]
	wisdom.Record(inv.TuneSize, spectral.Entry{
		Backend:    best.Backend,
		NsPerOp:    best.NsPerOp,
		MeasuredAt: time.Now().UTC(),
	})
	if err := wisdom.Save(); err != nil {
		return err
	}
	log.Infof("Spectral: %s selected for N=%d, saved to %s", best.Backend, inv.TuneSize, path)
	return nil
}

// render processes a file offline through the configured engine.
func render(inv *cmd.Invocation) error {
	clip, err := audio.ReadFile(inv.Input)
	if err != nil {
		return err
	}
	cfg := inv.Config
	if float64(clip.SampleRate) != cfg.Audio.SampleRate {
		log.Warnf("Render: %s is %d Hz, configured rate is %.0f Hz; output keeps the file rate",
			inv.Input, clip.SampleRate, cfg.Audio.SampleRate)
	}

	eng, wisdom, err := buildEngine(cfg, nil)
	if err != nil {
		return err
	}
	defer closeEngine(eng, wisdom)

	start := time.Now()
	out, err := audio.Render(eng, clip, audio.RenderOptions{Align: inv.Align})
	if err != nil {
		return err
	}
	if err := audio.WriteWAV(inv.Output, out, inv.BitDepth); err != nil {
		return err
	}

	st := eng.Stats()
	log.Infof("Render: %d frames x %d ch in %s (%d blocks, max callback %s), latency %d samples, peak %.3f",
		out.Frames(), out.Channels(), time.Since(start).Round(time.Millisecond),
		st.Blocks, st.MaxDuration, eng.Latency(), peak(out))
	return nil
}

// probe writes the codec round-trip response: the engine runs with a delta
// transfer so every block plays the encoding impulse.
func probe(inv *cmd.Invocation) error {
	eng, wisdom, err := buildEngine(inv.Config, transfer.Delta{})
	if err != nil {
		return err
	}
	defer closeEngine(eng, wisdom)

	clip, err := audio.Probe(eng, int(inv.Config.Audio.SampleRate), inv.ProbeFrames)
	if err != nil {
		return err
	}
	if err := audio.WriteWAV(inv.Output, clip, inv.BitDepth); err != nil {
		return err
	}
	k := eng.Codec().Kernel()
	log.Infof("Probe: wrote %d frames to %s (reference %.6g, %d clamped bins)",
		clip.Frames(), inv.Output, k.Reference, k.Clamped)
	return nil
}

func peak(c *audio.Clip) float64 {
	var p float64
	for _, ch := range c.Data {
		for _, v := range ch {
			p = math.Max(p, math.Abs(float64(v)))
		}
	}
	return p
}
