// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"datawave/internal/analysis"
	"datawave/internal/audio"
	"datawave/internal/config"
	"datawave/internal/engine"
	"datawave/internal/log"
	"datawave/internal/metrics"
	"datawave/internal/transport"
	"datawave/internal/transport/udp"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// outputs are the goroutine-side consumers of the engine: monitor, transports,
// UDP publisher and recorder. All of them are optional.
type outputs struct {
	monitor   *analysis.Monitor
	transport transport.Transport
	publisher *udp.UDPPublisher
	recorder  *audio.Recorder
}

// newOutputs builds everything the configuration enables. The monitor exists
// whenever something consumes the tap.
func newOutputs(cfg *config.Config, reg *prometheus.Registry, m *metrics.Metrics) (*outputs, error) {
	o := &outputs{}
	mc := cfg.Monitor
	if !mc.Enabled && !cfg.Recording.Enabled {
		return o, nil
	}

	var sinks []analysis.SampleSink
	if cfg.Recording.Enabled {
		rec, err := audio.NewRecorder(audio.RecordingFormat{
			SampleRate: int(cfg.Audio.SampleRate),
			Channels:   cfg.Audio.Channels,
			BitDepth:   cfg.Recording.BitDepth,
		})
		if err != nil {
			return nil, err
		}
		o.recorder = rec
		sinks = append(sinks, rec)
	}

	if mc.Enabled {
		var fan transport.Fanout
		if mc.WebSocketAddr != "" {
			ws, err := transport.NewWebSocketTransport(transport.WebSocketOptions{
				Addr:      mc.WebSocketAddr,
				Gatherer:  reg,
				OnClients: m.SetClients,
			})
			if err != nil {
				return nil, fmt.Errorf("monitor websocket: %w", err)
			}
			fan = append(fan, ws)
		} else {
			fan = append(fan, transport.NewLoggingTransport())
		}
		o.transport = fan
	}

	window, err := analysis.ParseWindowFunc(mc.Window)
	if err != nil {
		log.Warnf("Monitor: %v, using %s", err, window)
	}
	size := mc.Size
	if size == 0 {
		size = config.DefaultMonitorSize
	}
	o.monitor, err = analysis.NewMonitor(analysis.MonitorOptions{
		Size:       size,
		SampleRate: cfg.Audio.SampleRate,
		Window:     window,
		Channels:   cfg.Audio.Channels,
		MaxFrames:  cfg.Audio.FramesPerBuffer,
		Bands:      monitorBands(mc.Bands),
	}, o.transport, m, sinks...)
	if err != nil {
		o.close()
		return nil, err
	}

	if mc.Enabled && mc.UDPEnabled {
		sender, err := udp.NewUDPSender(mc.UDPTargetAddress)
		if err != nil {
			// Non-fatal: the rest of the monitor keeps running.
			log.Errorf("Monitor: UDP disabled: %v", err)
		} else {
			o.publisher, err = udp.NewUDPPublisher(mc.UDPSendInterval, sender, o.monitor.Spectrum(),
				func(error) { m.RecordTransportError("udp") })
			if err != nil {
				sender.Close()
				log.Errorf("Monitor: UDP disabled: %v", err)
			}
		}
	}
	return o, nil
}

// observers returns the engine observers contributed by the outputs.
func (o *outputs) observers() []engine.Observer {
	if o.monitor == nil {
		return nil
	}
	return []engine.Observer{o.monitor}
}

// start launches the goroutines and returns a function that stops them.
func (o *outputs) start(cfg *config.Config) (stop func(), err error) {
	if o.recorder != nil {
		path := audio.RecordingPath(cfg.Recording.OutputDir, time.Now())
		if err := o.recorder.StartRecording(path); err != nil {
			return nil, fmt.Errorf("recording: %w", err)
		}
		log.Infof("Recording: writing engine output to %s", path)
	}
	if o.publisher != nil {
		o.publisher.Start()
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	if o.monitor != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := o.monitor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Errorf("Monitor: %v", err)
			}
		}()
	}
	return func() {
		cancel()
		wg.Wait()
	}, nil
}

func (o *outputs) close() {
	if o.publisher != nil {
		if err := o.publisher.Close(); err != nil {
			log.Errorf("Monitor: closing UDP publisher: %v", err)
		}
	}
	if o.transport != nil {
		if err := o.transport.Close(); err != nil {
			log.Errorf("Monitor: closing transports: %v", err)
		}
	}
	if o.recorder != nil && o.recorder.Recording() {
		frames := o.recorder.Frames()
		if err := o.recorder.StopRecording(); err != nil {
			log.Errorf("Recording: %v", err)
		} else {
			log.Infof("Recording: saved %d frames", frames)
		}
	}
}

// run processes live audio until a termination signal arrives.
func run(cfg *config.Config) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)

	out, err := newOutputs(cfg, reg, m)
	if err != nil {
		return err
	}
	defer out.close()

	eng, wisdom, err := buildEngine(cfg, nil, append(out.observers(), m)...)
	if err != nil {
		return err
	}
	defer closeEngine(eng, wisdom)
	m.SetLatency(eng.Latency())

	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	host, err := audio.NewHost(audio.HostOptions{
		InputDevice:     cfg.Audio.InputDevice,
		OutputDevice:    cfg.Audio.OutputDevice,
		SampleRate:      cfg.Audio.SampleRate,
		FramesPerBuffer: cfg.Audio.FramesPerBuffer,
		Channels:        cfg.Audio.Channels,
		LowLatency:      cfg.Audio.LowLatency,
	}, eng)
	if err != nil {
		return err
	}

	stopOutputs, err := out.start(cfg)
	if err != nil {
		return err
	}
	defer stopOutputs()

	// Setup signal handling for graceful shutdown.
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT)
	defer signal.Stop(done)

	err = serve(host, done)

	st := eng.Stats()
	log.WithFields(map[string]any{
		"blocks":       st.Blocks,
		"overruns":     st.Overruns,
		"rejected":     st.Rejected,
		"max_callback": st.MaxDuration,
	}).Info("Engine stopped")
	return err
}

// streamHost is the part of audio.Host the live loop drives.
type streamHost interface {
	Start() error
	Stop() error
	Err() <-chan error
}

// serve starts h and blocks until a signal arrives or the stream reports an
// unrecoverable error. The stream is stopped either way and a stream failure
// is returned, so the process exits non-zero.
func serve(h streamHost, done <-chan os.Signal) error {
	// ==================== CONCURRENT PHASE (Hot Path) ====================

	// From here PortAudio calls engine.Process on its own thread.
	if err := h.Start(); err != nil {
		return err
	}

	var failure error
	select {
	case sig := <-done:
		log.Infof("Received %s, shutting down", sig)
	case err := <-h.Err():
		log.Errorf("Stream failed: %v, shutting down", err)
		failure = fmt.Errorf("stream: %w", err)
	}

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	if err := h.Stop(); err != nil {
		return errors.Join(failure, fmt.Errorf("stream: %w", err))
	}
	return failure
}

// monitorBands returns nil for an empty list so the monitor falls back to its defaults.
func monitorBands(cfg []config.BandConfig) []analysis.Band {
	if len(cfg) == 0 {
		return nil
	}
	bands := make([]analysis.Band, len(cfg))
	for i, b := range cfg {
		bands[i] = analysis.Band{Name: b.Name, LowHz: b.LowHz, HighHz: b.HighHz}
	}
	return bands
}
