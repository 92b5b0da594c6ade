// SPDX-License-Identifier: MIT
package analysis

import (
	"context"
	"datawave/internal/engine"
	"datawave/internal/log"
	"datawave/internal/transport"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultPollInterval = 20 * time.Millisecond
	defaultTapBlocks    = 16
)

// Recorder receives monitor accounting. metrics.Metrics implements it.
type Recorder interface {
	RecordPublished()
	RecordDropped()
	RecordTransportError(transport string)
}

// SampleSink consumes the interleaved engine output on the monitor goroutine.
type SampleSink interface {
	WriteFrames(interleaved []float32) error
}

// MonitorOptions configures a Monitor.
type MonitorOptions struct {
	Size         int // Analysis frame length, a power of two.
	SampleRate   float64
	Window       WindowFunc
	Channels     int
	MaxFrames    int           // Largest block the engine hands to BlockProcessed.
	PollInterval time.Duration // 0 uses DefaultPollInterval.
	Bands        []Band        // nil uses DefaultBands.
}

// Monitor observes the engine output from the audio thread and publishes
// spectrum frames from its own goroutine. BlockProcessed copies the block
// into a lock-free tap; Run drains the tap, feeds sinks, analyzes the first
// channel and sends a transport.Frame whenever new audio arrived.
type Monitor struct {
	opts      MonitorOptions
	tap       *Tap
	spectrum  *Spectrum
	bands     *BandEnergy
	transport transport.Transport
	recorder  Recorder
	sinks     []SampleSink
	entry     *logrus.Entry

	// Audio thread only.
	interleave []float32
	oversized  atomic.Uint64

	// Monitor goroutine only.
	chunk    []float32
	frame    []float32
	mags     []float64
	energies []float64
	seq      uint64
	dropped  uint64
	running  atomic.Bool
}

var _ engine.Observer = (*Monitor)(nil)

// NewMonitor builds a monitor. t and rec may be nil.
func NewMonitor(opts MonitorOptions, t transport.Transport, rec Recorder, sinks ...SampleSink) (*Monitor, error) {
	if opts.Channels < 1 {
		return nil, fmt.Errorf("monitor: channels must be positive, got %d", opts.Channels)
	}
	if opts.MaxFrames < 1 {
		return nil, fmt.Errorf("monitor: max frames must be positive, got %d", opts.MaxFrames)
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Bands == nil {
		opts.Bands = DefaultBands(opts.SampleRate)
	}
	spec, err := NewSpectrum(opts.Size, opts.SampleRate, opts.Window)
	if err != nil {
		return nil, err
	}

	block := opts.MaxFrames * opts.Channels
	m := &Monitor{
		opts:       opts,
		tap:        NewTap(max(block*defaultTapBlocks, opts.Size*opts.Channels)),
		spectrum:   spec,
		bands:      NewBandEnergy(opts.Bands, opts.Size, opts.SampleRate),
		transport:  t,
		recorder:   rec,
		sinks:      sinks,
		entry:      log.With("component", "monitor"),
		interleave: make([]float32, block),
		frame:      make([]float32, opts.Size),
		mags:       make([]float64, spec.Bins()),
		energies:   make([]float64, len(opts.Bands)),
	}
	m.chunk = make([]float32, m.tap.Cap())
	return m, nil
}

// BlockProcessed implements engine.Observer. It runs on the audio thread and
// neither blocks nor allocates.
func (m *Monitor) BlockProcessed(out [][]float32, _ time.Duration, _ bool) {
	if len(out) != m.opts.Channels || len(out) == 0 {
		return
	}
	frames := len(out[0])
	if frames*m.opts.Channels > len(m.interleave) {
		m.oversized.Add(1)
		return
	}
	buf := m.interleave[:frames*m.opts.Channels]
	if m.opts.Channels == 1 {
		copy(buf, out[0])
	} else {
		for i := range frames {
			for c, ch := range out {
				buf[i*m.opts.Channels+c] = ch[i]
			}
		}
	}
	m.tap.Write(buf)
}

// BlockRejected implements engine.Observer.
func (m *Monitor) BlockRejected(error) {}

// Spectrum returns the analyzer whose magnitudes are published.
func (m *Monitor) Spectrum() *Spectrum { return m.spectrum }

// Run drains the tap until ctx is cancelled. It returns ctx.Err().
func (m *Monitor) Run(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return errors.New("monitor: already running")
	}
	defer m.running.Store(false)

	m.entry.Infof("analysing %d-point frames at %.0f Hz (%s window)", m.opts.Size, m.opts.SampleRate, m.opts.Window)
	ticker := time.NewTicker(m.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.Poll()
			return ctx.Err()
		case <-ticker.C:
			m.Poll()
		}
	}
}

// Poll drains the tap once and publishes a frame if anything arrived. It
// reports whether a frame was published. Run calls it on every tick.
func (m *Monitor) Poll() bool {
	m.accountDrops()

	got := 0
	for {
		n := m.tap.Read(m.chunk)
		if n == 0 {
			break
		}
		got += n
		m.consume(m.chunk[:n])
	}
	if got == 0 {
		return false
	}

	m.spectrum.Analyze(m.frame)
	if err := m.spectrum.GetMagnitudesInto(m.mags); err != nil {
		m.entry.Errorf("reading magnitudes: %v", err)
		return false
	}
	m.bands.Compute(m.energies, m.mags)
	m.publish()
	return true
}

func (m *Monitor) accountDrops() {
	d := m.tap.Dropped()
	for ; m.dropped < d; m.dropped++ {
		if m.recorder != nil {
			m.recorder.RecordDropped()
		}
	}
	if o := m.oversized.Swap(0); o > 0 {
		m.entry.Warnf("%d blocks larger than %d frames were not monitored", o, m.opts.MaxFrames)
	}
}

// consume forwards interleaved samples to the sinks and slides the first
// channel into the analysis frame.
func (m *Monitor) consume(samples []float32) {
	for _, s := range m.sinks {
		if err := s.WriteFrames(samples); err != nil {
			m.entry.Errorf("sink: %v", err)
		}
	}

	ch := m.opts.Channels
	frames := len(samples) / ch
	if frames >= len(m.frame) {
		start := frames - len(m.frame)
		for i := range m.frame {
			m.frame[i] = samples[(start+i)*ch]
		}
		return
	}
	copy(m.frame, m.frame[frames:])
	tail := m.frame[len(m.frame)-frames:]
	for i := range tail {
		tail[i] = samples[i*ch]
	}
}

func (m *Monitor) publish() {
	if m.transport == nil {
		return
	}
	m.seq++
	f := &transport.Frame{
		Type:      transport.FrameType,
		Seq:       m.seq,
		Timestamp: time.Now().UnixNano(),
		RMS:       math.Sqrt(m.spectrum.MeanSquare()),
		PeakHz:    m.spectrum.GetFrequencyForBin(peakBin(m.mags)),
		Bands:     make(map[string]float64, len(m.energies)),
	}
	for i, b := range m.bands.Bands() {
		f.Bands[b.Name] = m.energies[i]
	}

	if err := m.transport.Send(f); err != nil {
		m.entry.Debugf("send frame %d: %v", f.Seq, err)
		if m.recorder != nil {
			m.recordSendError(err)
		}
		return
	}
	if m.recorder != nil {
		m.recorder.RecordPublished()
	}
}

// recordSendError attributes joined fanout errors to each failing transport.
func (m *Monitor) recordSendError(err error) {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			m.recordSendError(e)
		}
		return
	}
	name := m.transport.Name()
	var named *transport.SendError
	if errors.As(err, &named) {
		name = named.Transport
	}
	m.recorder.RecordTransportError(name)
}

func peakBin(mags []float64) int {
	best := 0
	for i := 1; i < len(mags); i++ {
		if mags[i] > mags[best] {
			best = i
		}
	}
	return best
}
