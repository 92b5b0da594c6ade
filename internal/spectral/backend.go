// SPDX-License-Identifier: MIT
package spectral

import (
	"datawave/pkg/bitint"
	"errors"
	"fmt"
	"math"
	"sort"
)

// Backend is a real-to-complex / complex-to-real transform pair over a fixed size N.
//
// The pair is unnormalized: Inverse(Forward(x)) yields N·x. Frequency slices hold the
// N/2+1 non-redundant bins of a real signal. Calling either method with slices of the
// wrong length is a programming error and panics.
type Backend interface {
	Forward(dst []complex128, src []float64)
	Inverse(dst []float64, src []complex128)
	Size() int
	Name() string
}

// Errors returned while building backends, plans and tuning decisions.
var (
	ErrSize            = errors.New("spectral: size must be a power of two >= 2")
	ErrLength          = errors.New("spectral: buffer length does not match plan size")
	ErrUnknownBackend  = errors.New("spectral: unknown backend")
	ErrBackendContract = errors.New("spectral: backend violates the unnormalized round-trip contract")
	ErrNoWisdom        = errors.New("spectral: no tuning entry for this size")
)

// contractTolerance bounds the relative error of the construction-time round trip.
const contractTolerance = 1e-3

type constructor func(n int) (Backend, error)

var registry = map[string]constructor{
	GonumName:   newGonumBackend,
	AlgoFFTName: newAlgoFFTBackend,
}

// Backends returns the registered backend names in sorted order.
func Backends() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewBackend constructs the named backend for size n and verifies it against the
// unnormalized contract before returning it.
func NewBackend(name string, n int) (Backend, error) {
	if n < 2 || !bitint.IsPowerOfTwo(n) {
		return nil, fmt.Errorf("%w: got %d", ErrSize, n)
	}
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownBackend, name, Backends())
	}
	b, err := ctor(n)
	if err != nil {
		return nil, fmt.Errorf("spectral: build %s backend: %w", name, err)
	}
	if err := SelfCheck(b); err != nil {
		return nil, err
	}
	return b, nil
}

// SelfCheck runs a round trip of a deterministic test signal through b and reports
// ErrBackendContract when the result differs from N·x by more than the tolerance.
func SelfCheck(b Backend) error {
	n := b.Size()
	x := make([]float64, n)
	for i := range x {
		x[i] = math.Sin(2*math.Pi*3*float64(i)/float64(n)) + 0.25*math.Cos(2*math.Pi*float64(i*i%n)/float64(n))
	}
	x[1] += 1

	freq := make([]complex128, n/2+1)
	back := make([]float64, n)
	b.Forward(freq, x)
	b.Inverse(back, freq)

	var peak, worst float64
	for i, v := range x {
		want := float64(n) * v
		peak = math.Max(peak, math.Abs(want))
		worst = math.Max(worst, math.Abs(back[i]-want))
	}
	if peak == 0 || worst/peak > contractTolerance {
		return fmt.Errorf("%w: %s at size %d (relative error %.3g)", ErrBackendContract, b.Name(), n, worst/peak)
	}
	return nil
}
