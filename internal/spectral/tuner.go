// SPDX-License-Identifier: MIT
package spectral

import (
	"datawave/internal/log"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Mode controls how a Tuner picks a backend for a transform size.
type Mode string

const (
	// ModeEstimate uses the configured backend without measuring.
	ModeEstimate Mode = "estimate"
	// ModeMeasure reuses a cached decision or times every backend and records the fastest.
	ModeMeasure Mode = "measure"
	// ModeWisdomOnly requires a cached decision and fails without one.
	ModeWisdomOnly Mode = "wisdom-only"
)

// ParseMode converts a textual mode name (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeEstimate, ModeMeasure, ModeWisdomOnly:
		return m, nil
	case "":
		return ModeEstimate, nil
	default:
		return "", fmt.Errorf("spectral: unknown tuning mode %q (want estimate, measure or wisdom-only)", s)
	}
}

// DefaultRounds is the number of forward+inverse pairs timed per backend.
const DefaultRounds = 64

// Measurement is the timing of one backend at one size.
type Measurement struct {
	Backend string
	NsPerOp float64
}

// Tuner selects a backend for a transform size according to Mode.
type Tuner struct {
	Mode      Mode
	Preferred string
	Wisdom    *Wisdom
	Rounds    int
}

// Select returns a verified backend for size n.
func (t *Tuner) Select(n int) (Backend, error) {
	logger := log.With("component", "spectral")

	switch t.Mode {
	case ModeEstimate, "":
		return NewBackend(t.preferred(), n)

	case ModeWisdomOnly:
		e, ok := t.lookup(n)
		if !ok {
			return nil, fmt.Errorf("%w: size %d (run: datawave tune --size %d)", ErrNoWisdom, n, n)
		}
		logger.Debugf("using cached backend %s for size %d", e.Backend, n)
		return NewBackend(e.Backend, n)

	case ModeMeasure:
		if e, ok := t.lookup(n); ok {
			logger.Debugf("using cached backend %s for size %d", e.Backend, n)
			return NewBackend(e.Backend, n)
		}
		results, err := Measure(n, t.rounds())
		if err != nil {
			return nil, err
		}
		best := results[0]
		logger.Infof("measured %d backends at size %d, fastest is %s (%.0f ns/op)", len(results), n, best.Backend, best.NsPerOp)
		if t.Wisdom != nil {
			t.Wisdom.Record(n, Entry{Backend: best.Backend, NsPerOp: best.NsPerOp, MeasuredAt: time.Now().UTC()})
		}
		return NewBackend(best.Backend, n)

	default:
		return nil, fmt.Errorf("spectral: unknown tuning mode %q", t.Mode)
	}
}

func (t *Tuner) preferred() string {
	if t.Preferred == "" {
		return GonumName
	}
	return t.Preferred
}

func (t *Tuner) rounds() int {
	if t.Rounds <= 0 {
		return DefaultRounds
	}
	return t.Rounds
}

func (t *Tuner) lookup(n int) (Entry, bool) {
	if t.Wisdom == nil {
		return Entry{}, false
	}
	return t.Wisdom.Lookup(n)
}

// Measure times every registered backend at size n and returns the results
// fastest first. Backends that fail their self-check are skipped with a warning.
func Measure(n, rounds int) ([]Measurement, error) {
	if rounds <= 0 {
		rounds = DefaultRounds
	}

	var results []Measurement
	for _, name := range Backends() {
		b, err := NewBackend(name, n)
		if err != nil {
			log.Warnf("Spectral: skipping backend %s: %v", name, err)
			continue
		}
		results = append(results, Measurement{Backend: name, NsPerOp: timeBackend(b, rounds)})
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: no usable backend for size %d", ErrBackendContract, n)
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].NsPerOp < results[j].NsPerOp })
	return results, nil
}

func timeBackend(b Backend, rounds int) float64 {
	n := b.Size()
	x := make([]float64, n)
	for i := range x {
		x[i] = math.Sin(float64(i))
	}
	freq := make([]complex128, n/2+1)

	// Warm up caches and any lazily built twiddles.
	b.Forward(freq, x)
	b.Inverse(x, freq)

	start := time.Now()
	for range rounds {
		b.Forward(freq, x)
		b.Inverse(x, freq)
		// Keep values bounded across rounds.
		scale := 1 / float64(n)
		for i := range x {
			x[i] *= scale
		}
	}
	return float64(time.Since(start).Nanoseconds()) / float64(rounds)
}
