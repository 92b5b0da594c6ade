// SPDX-License-Identifier: MIT
package engine

import (
	"datawave/internal/codec"
	"datawave/internal/convcorr"
	"datawave/internal/log"
	"datawave/internal/ring"
	"datawave/internal/spectral"
	"datawave/internal/transfer"
	"fmt"
	"sync/atomic"
	"time"
)

// Engine is the explicit context of one running pipeline: the shared phase, one
// ring buffer per channel, the codec and the transfer stage. All buffers and
// plans are allocated by New; Process allocates nothing.
type Engine struct {
	opts      Options
	phase     *ring.PhaseTracker
	streams   []*ring.Buffer
	proc      *convcorr.Processor
	codec     *codec.Codec
	stage     transfer.Stage
	work      []float64
	budget    time.Duration
	observers []Observer
	stats     counters
	closed    atomic.Bool
}

// New builds an engine. It fails if the options are inconsistent, no backend
// satisfies the tuning mode, or the codec cannot be built.
func New(opts Options, stage transfer.Stage, observers ...Observer) (*Engine, error) {
	if stage == nil {
		panic("engine: nil transfer stage")
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	phase, err := ring.NewPhaseTracker(opts.BlockSize, opts.FramesPerBuffer)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	tuner := spectral.Tuner{Mode: opts.Tuning, Preferred: opts.Backend, Wisdom: opts.Wisdom}
	backend, err := tuner.Select(opts.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("engine: select spectral backend: %w", err)
	}

	proc, err := convcorr.New(backend)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	opts.Codec.Size = opts.BlockSize
	c, err := codec.New(proc, opts.Codec)
	if err != nil {
		return nil, fmt.Errorf("engine: build codec: %w", err)
	}

	e := &Engine{
		opts:      opts,
		phase:     phase,
		streams:   make([]*ring.Buffer, opts.Channels),
		proc:      proc,
		codec:     c,
		stage:     stage,
		work:      make([]float64, opts.BlockSize),
		observers: observers,
	}
	for i := range e.streams {
		e.streams[i] = ring.NewBuffer(phase)
	}
	if opts.SampleRate > 0 {
		e.budget = time.Duration(float64(opts.FramesPerBuffer) / opts.SampleRate * float64(time.Second))
	}

	log.With("component", "engine").Infof("ready: N=%d n=%d channels=%d backend=%s stage=%s latency=%d samples",
		opts.BlockSize, opts.FramesPerBuffer, opts.Channels, backend.Name(), stage.Name(), phase.Latency())
	return e, nil
}

// Process runs one callback. in and out hold one non-interleaved slice per channel;
// in may carry fewer channels than out, missing inputs are treated as silence.
// On a rejected block every output channel is silenced and the phase does not move.
func (e *Engine) Process(in, out [][]float32) error {
	start := time.Now()

	if e.closed.Load() {
		silence(out)
		return ErrClosed
	}
	if len(out) != len(e.streams) {
		silence(out)
		return e.reject(ErrChannels)
	}
	// All channels share one phase, so they must carry the same number of frames.
	for _, ch := range out[1:] {
		if len(ch) != len(out[0]) {
			silence(out)
			return e.reject(ring.ErrBlockMismatch)
		}
	}

	for ch, stream := range e.streams {
		var src []float32
		if ch < len(in) {
			src = in[ch]
		}
		if err := stream.Exchange(src, out[ch]); err != nil {
			silence(out)
			return e.reject(err)
		}
	}

	frames := len(out[0])
	e.phase.Advance(frames)

	for _, stream := range e.streams {
		e.codec.Decode(e.work, stream.Input())
		e.stage.Apply(e.work)
		e.codec.Encode(stream.Output(), e.work)
	}

	elapsed := time.Since(start)
	overrun := e.budget > 0 && elapsed > e.budget
	e.stats.record(frames, elapsed, overrun)
	for _, o := range e.observers {
		o.BlockProcessed(out, elapsed, overrun)
	}
	return nil
}

func (e *Engine) reject(err error) error {
	e.stats.rejected.Add(1)
	for _, o := range e.observers {
		o.BlockRejected(err)
	}
	return err
}

func silence(out [][]float32) {
	for _, ch := range out {
		clear(ch)
	}
}

// Stats returns a snapshot of the callback accounting. Safe to call concurrently with Process.
func (e *Engine) Stats() Stats { return e.stats.snapshot() }

// Latency returns the fixed input-to-output delay in samples.
func (e *Engine) Latency() int { return e.phase.Latency() }

// Codec returns the engine's impulse pair.
func (e *Engine) Codec() *codec.Codec { return e.codec }

// Options returns the options the engine was built with.
func (e *Engine) Options() Options { return e.opts }

// Backend returns the name of the spectral backend in use.
func (e *Engine) Backend() string { return e.proc.Backend().Name() }

// Reset silences every stream and rewinds the phase. It must not run concurrently with Process.
func (e *Engine) Reset() {
	for _, s := range e.streams {
		s.Reset()
	}
	e.phase.Reset()
}

// Close marks the engine closed and releases its buffers. Later calls to Process
// return ErrClosed. Close is idempotent.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	s := e.stats.snapshot()
	log.With("component", "engine").Infof("closed after %d blocks (%d overruns, %d rejected, max %v)",
		s.Blocks, s.Overruns, s.Rejected, s.MaxDuration)
	e.streams = nil
	e.work = nil
	return nil
}
