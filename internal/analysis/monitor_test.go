// SPDX-License-Identifier: MIT
package analysis

import (
	"context"
	"datawave/internal/transport"
	"datawave/pkg/utils"
	"errors"
	"sync"
	"testing"
	"time"
)

type countingRecorder struct {
	mu        sync.Mutex
	published int
	dropped   int
	errors    map[string]int
}

func (r *countingRecorder) RecordPublished() {
	r.mu.Lock()
	r.published++
	r.mu.Unlock()
}

func (r *countingRecorder) RecordDropped() {
	r.mu.Lock()
	r.dropped++
	r.mu.Unlock()
}

func (r *countingRecorder) RecordTransportError(name string) {
	r.mu.Lock()
	if r.errors == nil {
		r.errors = make(map[string]int)
	}
	r.errors[name]++
	r.mu.Unlock()
}

type captureSink struct {
	samples []float32
}

func (s *captureSink) WriteFrames(interleaved []float32) error {
	s.samples = append(s.samples, interleaved...)
	return nil
}

func newTestMonitor(t *testing.T, channels int, tr transport.Transport, rec Recorder, sinks ...SampleSink) *Monitor {
	t.Helper()
	m, err := NewMonitor(MonitorOptions{
		Size:       testSize,
		SampleRate: testRate,
		Window:     Hann,
		Channels:   channels,
		MaxFrames:  256,
	}, tr, rec, sinks...)
	if err != nil {
		t.Fatalf("NewMonitor() error = %v", err)
	}
	return m
}

// feed splits signal into 256-frame blocks and hands them to the monitor the
// way the engine does.
func feed(m *Monitor, channels [][]float32) {
	for start := 0; start < len(channels[0]); start += 256 {
		block := make([][]float32, len(channels))
		for c := range channels {
			block[c] = channels[c][start : start+256]
		}
		m.BlockProcessed(block, time.Millisecond, false)
	}
}

func TestMonitorPublishesSpectrum(t *testing.T) {
	mock := &utils.MockTransport{}
	rec := &countingRecorder{}
	m := newTestMonitor(t, 1, mock, rec)

	if m.Poll() {
		t.Fatal("Poll() on an empty tap should not publish")
	}

	feed(m, [][]float32{utils.ToFloat32(utils.GenerateSineWave(testSize, testRate, testHz))})
	if !m.Poll() {
		t.Fatal("Poll() = false after feeding audio")
	}

	f, ok := mock.Last().(*transport.Frame)
	if !ok {
		t.Fatalf("last message is %T, want *transport.Frame", mock.Last())
	}
	if f.Type != transport.FrameType || f.Seq != 1 {
		t.Errorf("frame header = %q/%d, want %q/1", f.Type, f.Seq, transport.FrameType)
	}
	if f.PeakHz != testHz {
		t.Errorf("PeakHz = %v, want %v", f.PeakHz, testHz)
	}
	if f.RMS < 0.6 || f.RMS > 0.66 {
		t.Errorf("RMS = %v, want about 0.636", f.RMS)
	}
	for name, v := range f.Bands {
		if name != "mid" && v >= f.Bands["mid"] {
			t.Errorf("band %s = %v louder than mid = %v", name, v, f.Bands["mid"])
		}
	}
	if rec.published != 1 {
		t.Errorf("published = %d, want 1", rec.published)
	}
}

func TestMonitorStereoSink(t *testing.T) {
	sink := &captureSink{}
	m := newTestMonitor(t, 2, nil, nil, sink)

	left := make([]float32, 512)
	right := make([]float32, 512)
	for i := range left {
		left[i] = float32(i)
		right[i] = -float32(i)
	}
	feed(m, [][]float32{left, right})
	m.Poll()

	if len(sink.samples) != 1024 {
		t.Fatalf("sink got %d samples, want 1024", len(sink.samples))
	}
	for i := range 512 {
		if sink.samples[2*i] != left[i] || sink.samples[2*i+1] != right[i] {
			t.Fatalf("frame %d = (%v, %v), want (%v, %v)",
				i, sink.samples[2*i], sink.samples[2*i+1], left[i], right[i])
		}
	}
	// The analysis frame follows the first channel only.
	if got := m.frame[len(m.frame)-1]; got != 511 {
		t.Errorf("last analysed sample = %v, want 511", got)
	}
}

func TestMonitorCountsDrops(t *testing.T) {
	rec := &countingRecorder{}
	m := newTestMonitor(t, 1, nil, rec)

	capBlocks := m.tap.Cap() / 256
	feed(m, [][]float32{make([]float32, 256*(capBlocks+3))})
	m.Poll()

	if rec.dropped != 3 {
		t.Errorf("dropped = %d, want 3", rec.dropped)
	}
}

func TestMonitorTransportErrors(t *testing.T) {
	rec := &countingRecorder{}
	fan := transport.Fanout{
		&utils.MockTransport{ID: "ok"},
		&utils.MockTransport{ID: "broken", Err: transport.ErrQueueFull},
	}
	m := newTestMonitor(t, 1, fan, rec)

	feed(m, [][]float32{make([]float32, 256)})
	m.Poll()

	if rec.errors["broken"] != 1 {
		t.Errorf("errors = %v, want broken:1", rec.errors)
	}
	if rec.published != 0 {
		t.Errorf("published = %d, want 0 when a transport fails", rec.published)
	}
}

func TestMonitorRun(t *testing.T) {
	mock := &utils.MockTransport{}
	m, err := NewMonitor(MonitorOptions{
		Size:         testSize,
		SampleRate:   testRate,
		Channels:     1,
		MaxFrames:    256,
		PollInterval: time.Millisecond,
	}, mock, nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	feed(m, [][]float32{make([]float32, 256)})
	deadline := time.Now().Add(2 * time.Second)
	for mock.Count() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if mock.Count() == 0 {
		t.Error("Run() published nothing")
	}
}

func TestMonitorValidation(t *testing.T) {
	tests := []struct {
		name string
		opts MonitorOptions
	}{
		{"no channels", MonitorOptions{Size: 1024, SampleRate: 48000, MaxFrames: 256}},
		{"no frames", MonitorOptions{Size: 1024, SampleRate: 48000, Channels: 1}},
		{"bad size", MonitorOptions{Size: 1000, SampleRate: 48000, Channels: 1, MaxFrames: 256}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewMonitor(tt.opts, nil, nil); err == nil {
				t.Error("NewMonitor() error = nil, want error")
			}
		})
	}
}

func TestMonitorBlockProcessedZeroAllocs(t *testing.T) {
	m := newTestMonitor(t, 2, nil, nil)
	out := [][]float32{make([]float32, 256), make([]float32, 256)}
	allocs := testing.AllocsPerRun(100, func() {
		m.BlockProcessed(out, time.Millisecond, false)
		m.tap.Read(m.chunk)
	})
	if allocs != 0 {
		t.Errorf("BlockProcessed allocs = %v, want 0", allocs)
	}
}
