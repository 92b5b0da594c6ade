// SPDX-License-Identifier: MIT
/*
Package audio connects the engine to the outside world: a PortAudio duplex
host for live processing, device discovery, WAV recording of the output, and
file decoding plus offline rendering.

Thread safety of the live host:
  - The PortAudio callback runs engine.Process on a locked OS thread
  - Buffers are allocated before the stream starts
  - The callback never logs, locks or allocates; failures are counted
  - Unrecoverable failures are reported once on Err without blocking
*/
package audio

import (
	"datawave/internal/engine"
	"datawave/internal/log"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/sirupsen/logrus"
)

var (
	ErrStreamRunning = errors.New("audio: stream already running")
	// ErrEngineFailing is reported when the engine rejects too many blocks in a row.
	ErrEngineFailing = errors.New("audio: engine rejected consecutive blocks")
	// ErrStreamStalled is reported when the stream stops calling back.
	ErrStreamStalled = errors.New("audio: stream stopped delivering callbacks")
)

const (
	DefaultMaxFailures  = 32
	DefaultStallTimeout = 2 * time.Second
)

// HostOptions selects devices and stream parameters.
type HostOptions struct {
	InputDevice     int
	OutputDevice    int
	SampleRate      float64
	FramesPerBuffer int
	Channels        int
	LowLatency      bool
	MaxFailures     int           // Consecutive rejected blocks before the host fails.
	StallTimeout    time.Duration // Callback silence before the host fails.
}

// Host runs an engine inside a PortAudio duplex stream.
type Host struct {
	opts   HostOptions
	engine *engine.Engine
	entry  *logrus.Entry

	inputDevice   *portaudio.DeviceInfo
	outputDevice  *portaudio.DeviceInfo
	inputLatency  time.Duration
	outputLatency time.Duration

	mu     sync.Mutex
	stream *portaudio.Stream
	stop   chan struct{}
	wg     sync.WaitGroup

	callbacks atomic.Uint64
	failures  atomic.Uint64
	streak    int // Consecutive failures; callback thread only.
	reported  atomic.Bool
	errs      chan error
}

// NewHost resolves the devices. PortAudio must already be initialized.
func NewHost(opts HostOptions, eng *engine.Engine) (*Host, error) {
	if eng == nil {
		return nil, errors.New("audio: nil engine")
	}
	eo := eng.Options()
	if opts.FramesPerBuffer != eo.FramesPerBuffer || opts.Channels != eo.Channels {
		return nil, fmt.Errorf("audio: host %d frames x %d channels does not match engine %d x %d",
			opts.FramesPerBuffer, opts.Channels, eo.FramesPerBuffer, eo.Channels)
	}

	in, err := InputDevice(opts.InputDevice)
	if err != nil {
		return nil, fmt.Errorf("input device: %w", err)
	}
	out, err := OutputDevice(opts.OutputDevice)
	if err != nil {
		return nil, fmt.Errorf("output device: %w", err)
	}
	if in.MaxInputChannels < opts.Channels {
		return nil, fmt.Errorf("input device %s has %d channels, need %d", in.Name, in.MaxInputChannels, opts.Channels)
	}
	if out.MaxOutputChannels < opts.Channels {
		return nil, fmt.Errorf("output device %s has %d channels, need %d", out.Name, out.MaxOutputChannels, opts.Channels)
	}

	if opts.MaxFailures <= 0 {
		opts.MaxFailures = DefaultMaxFailures
	}
	if opts.StallTimeout <= 0 {
		opts.StallTimeout = DefaultStallTimeout
	}

	h := &Host{
		opts:         opts,
		engine:       eng,
		entry:        log.With("component", "host"),
		inputDevice:  in,
		outputDevice: out,
		errs:         make(chan error, 1),
	}
	if opts.LowLatency {
		h.inputLatency = in.DefaultLowInputLatency
		h.outputLatency = out.DefaultLowOutputLatency
	} else {
		h.inputLatency = in.DefaultHighInputLatency
		h.outputLatency = out.DefaultHighOutputLatency
	}
	return h, nil
}

// Start opens and starts the duplex stream.
func (h *Host) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stream != nil {
		return ErrStreamRunning
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   h.inputDevice,
			Channels: h.opts.Channels,
			Latency:  h.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Device:   h.outputDevice,
			Channels: h.opts.Channels,
			Latency:  h.outputLatency,
		},
		SampleRate:      h.opts.SampleRate,
		FramesPerBuffer: h.opts.FramesPerBuffer,
	}

	stream, err := portaudio.OpenStream(params, h.process)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("start stream: %w", err)
	}
	h.stream = stream
	h.stop = make(chan struct{})
	h.wg.Add(1)
	go h.watch(h.stop, h.opts.StallTimeout)

	info := stream.Info()
	h.entry.Infof("stream started: in=%q out=%q %.0f Hz, %d frames, %d ch, latency in=%s out=%s, engine latency %d samples",
		h.inputDevice.Name, h.outputDevice.Name, info.SampleRate, h.opts.FramesPerBuffer, h.opts.Channels,
		info.InputLatency, info.OutputLatency, h.engine.Latency())
	return nil
}

// process is the PortAudio callback. It must not block or allocate.
func (h *Host) process(in, out [][]float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	h.callbacks.Add(1)
	err := h.engine.Process(in, out)
	if err == nil {
		h.streak = 0
		return
	}
	h.failures.Add(1)
	h.streak++
	switch {
	case errors.Is(err, engine.ErrClosed):
		h.fail(err)
	case h.streak >= h.opts.MaxFailures:
		h.fail(ErrEngineFailing)
	}
}

// fail reports the first unrecoverable error. It never blocks.
func (h *Host) fail(err error) {
	if !h.reported.CompareAndSwap(false, true) {
		return
	}
	select {
	case h.errs <- err:
	default:
	}
}

// watch reports a stall when no callback arrives for a whole timeout.
func (h *Host) watch(stop <-chan struct{}, timeout time.Duration) {
	defer h.wg.Done()
	ticker := time.NewTicker(timeout)
	defer ticker.Stop()

	last := h.callbacks.Load()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			n := h.callbacks.Load()
			if n == last {
				h.fail(ErrStreamStalled)
				return
			}
			last = n
		}
	}
}

// Err delivers at most one unrecoverable stream error. The stream keeps
// running until Stop is called.
func (h *Host) Err() <-chan error { return h.errs }

// Stop stops and closes the stream. It is safe to call when not running.
func (h *Host) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stream == nil {
		return nil
	}
	stream := h.stream
	h.stream = nil
	close(h.stop)
	h.wg.Wait()

	stopErr := stream.Stop()
	closeErr := stream.Close()
	h.entry.Infof("stream stopped after %d callbacks (%d failed)", h.callbacks.Load(), h.failures.Load())
	return errors.Join(stopErr, closeErr)
}

// Running reports whether a stream is open.
func (h *Host) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stream != nil
}

// Failures returns the number of callbacks the engine refused.
func (h *Host) Failures() uint64 { return h.failures.Load() }
