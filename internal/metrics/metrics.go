// SPDX-License-Identifier: MIT
package metrics

import (
	"datawave/internal/engine"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus metrics for the engine and its monitor.
type Metrics struct {
	// Audio callback metrics
	Blocks           prometheus.Counter
	Samples          prometheus.Counter
	Overruns         prometheus.Counter
	Rejected         prometheus.Counter
	CallbackDuration prometheus.Histogram

	// Monitor metrics
	FramesPublished prometheus.Counter
	FramesDropped   prometheus.Counter
	TransportErrors *prometheus.CounterVec
	Clients         prometheus.Gauge

	// Static engine information
	Latency prometheus.Gauge
}

var _ engine.Observer = (*Metrics)(nil)

// NewMetrics creates the metrics and registers them with reg. A nil reg uses the
// default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		Blocks: f.NewCounter(prometheus.CounterOpts{
			Name: "datawave_blocks_total",
			Help: "Total number of audio blocks processed",
		}),
		Samples: f.NewCounter(prometheus.CounterOpts{
			Name: "datawave_samples_total",
			Help: "Total number of frames processed per channel",
		}),
		Overruns: f.NewCounter(prometheus.CounterOpts{
			Name: "datawave_overruns_total",
			Help: "Callbacks that took longer than one block period",
		}),
		Rejected: f.NewCounter(prometheus.CounterOpts{
			Name: "datawave_rejected_blocks_total",
			Help: "Blocks refused because their length does not fit the ring",
		}),
		CallbackDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "datawave_callback_duration_seconds",
			Help:    "Wall time spent in the audio callback",
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 14), // 10µs to ~80ms
		}),
		FramesPublished: f.NewCounter(prometheus.CounterOpts{
			Name: "datawave_monitor_frames_published_total",
			Help: "Spectrum frames handed to transports",
		}),
		FramesDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "datawave_monitor_frames_dropped_total",
			Help: "Output blocks dropped because the monitor tap was full",
		}),
		TransportErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "datawave_transport_errors_total",
			Help: "Errors returned by monitor transports",
		}, []string{"transport"}),
		Clients: f.NewGauge(prometheus.GaugeOpts{
			Name: "datawave_websocket_clients",
			Help: "Connected spectrum WebSocket clients",
		}),
		Latency: f.NewGauge(prometheus.GaugeOpts{
			Name: "datawave_latency_samples",
			Help: "Fixed input-to-output delay of the engine in samples",
		}),
	}
}

// BlockProcessed records one successful callback.
func (m *Metrics) BlockProcessed(out [][]float32, elapsed time.Duration, overrun bool) {
	m.Blocks.Inc()
	if len(out) > 0 {
		m.Samples.Add(float64(len(out[0])))
	}
	if overrun {
		m.Overruns.Inc()
	}
	m.CallbackDuration.Observe(elapsed.Seconds())
}

// BlockRejected records one refused callback.
func (m *Metrics) BlockRejected(error) {
	m.Rejected.Inc()
}

// RecordPublished increments the published frames counter.
func (m *Metrics) RecordPublished() {
	m.FramesPublished.Inc()
}

// RecordDropped increments the dropped frames counter.
func (m *Metrics) RecordDropped() {
	m.FramesDropped.Inc()
}

// RecordTransportError increments the error counter of the named transport.
func (m *Metrics) RecordTransportError(transport string) {
	m.TransportErrors.WithLabelValues(transport).Inc()
}

// SetClients sets the number of connected WebSocket clients.
func (m *Metrics) SetClients(n int) {
	m.Clients.Set(float64(n))
}

// SetLatency records the engine latency in samples.
func (m *Metrics) SetLatency(samples int) {
	m.Latency.Set(float64(samples))
}
