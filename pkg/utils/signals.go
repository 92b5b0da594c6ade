// SPDX-License-Identifier: MIT
package utils

import (
	"math"
	"sync"
)

// MockTransport implements the transport interface for testing. It keeps a
// copy of every message it receives.
type MockTransport struct {
	mu       sync.Mutex
	Messages []any
	Closed   bool
	Err      error // Returned by Send when set; the message is not stored.
	ID       string
}

// Send stores the data for later inspection instead of transmitting.
func (m *MockTransport) Send(data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if v, ok := data.([]float64); ok {
		data = append([]float64(nil), v...)
	}
	m.Messages = append(m.Messages, data)
	return nil
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	m.Closed = true
	m.mu.Unlock()
	return nil
}

// Name returns ID, or "mock" when unset.
func (m *MockTransport) Name() string {
	if m.ID == "" {
		return "mock"
	}
	return m.ID
}

// Last returns the most recent message, or nil.
func (m *MockTransport) Last() any {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Messages) == 0 {
		return nil
	}
	return m.Messages[len(m.Messages)-1]
}

// Count returns the number of messages received so far.
func (m *MockTransport) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Messages)
}

// GenerateSine returns sin(2π·i/period) for i in [0, size).
func GenerateSine(size int, period float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		buffer[i] = math.Sin(2 * math.Pi * float64(i) / period)
	}
	return buffer
}

// GenerateSineWave returns a sine of the given frequency sampled at sampleRate,
// scaled to 0.9 full scale.
func GenerateSineWave(size int, sampleRate, frequency float64) []float64 {
	return scaled(GenerateSine(size, sampleRate/frequency), 0.9)
}

// GenerateComplexWave returns a 440Hz fundamental plus two harmonics.
func GenerateComplexWave(size int, sampleRate float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		buffer[i] = 0.9 * (math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2)
	}
	return buffer
}

// GenerateImpulse returns a buffer of zeros with a single 1 at position at.
func GenerateImpulse(size, at int) []float64 {
	buffer := make([]float64, size)
	if at >= 0 && at < size {
		buffer[at] = 1
	}
	return buffer
}

// ToFloat32 converts samples to the host sample format.
func ToFloat32(samples []float64) []float32 {
	out := make([]float32, len(samples))
	for i, v := range samples {
		out[i] = float32(v)
	}
	return out
}

// MaxAbsDiff returns the largest absolute elementwise difference between a
// and b over their common length.
func MaxAbsDiff(a, b []float64) float64 {
	n := min(len(a), len(b))
	var worst float64
	for i := range n {
		worst = math.Max(worst, math.Abs(a[i]-b[i]))
	}
	return worst
}

// FindPeakBin returns the index of the largest value in values[startBin:endBin+1].
func FindPeakBin(values []float64, startBin, endBin int) int {
	if len(values) == 0 {
		return 0
	}
	if startBin < 0 {
		startBin = 0
	}
	if endBin >= len(values) {
		endBin = len(values) - 1
	}

	peakBin := startBin
	peakValue := values[startBin]
	for bin := startBin + 1; bin <= endBin; bin++ {
		if values[bin] > peakValue {
			peakValue = values[bin]
			peakBin = bin
		}
	}
	return peakBin
}

// FindPeakAbs returns the index of the sample with the largest magnitude.
func FindPeakAbs(values []float64) int {
	peak := 0
	for i, v := range values {
		if math.Abs(v) > math.Abs(values[peak]) {
			peak = i
		}
	}
	return peak
}

func scaled(buffer []float64, gain float64) []float64 {
	for i := range buffer {
		buffer[i] *= gain
	}
	return buffer
}
