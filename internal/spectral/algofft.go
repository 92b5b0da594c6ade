// SPDX-License-Identifier: MIT
package spectral

import (
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
)

// AlgoFFTName identifies the algo-fft real-plan backend.
const AlgoFFTName = "algofft"

// algoBackend runs a float32 real plan through pre-allocated conversion buffers.
// The library's own scaling convention is measured once at construction and folded
// into fwdScale and invScale.
type algoBackend struct {
	n    int
	plan *algofft.PlanRealT[float32, complex64]

	time32 []float32
	freq64 []complex64

	fwdScale float64
	invScale float64
}

var _ Backend = (*algoBackend)(nil)

func newAlgoFFTBackend(n int) (Backend, error) {
	plan, err := algofft.NewPlanReal32(n)
	if err != nil {
		return nil, fmt.Errorf("failed to create FFT plan for size %d: %w", n, err)
	}

	b := &algoBackend{
		n:        n,
		plan:     plan,
		time32:   make([]float32, n),
		freq64:   make([]complex64, n/2+1),
		fwdScale: 1,
		invScale: 1,
	}
	if err := b.measureScale(); err != nil {
		return nil, err
	}
	return b, nil
}

// measureScale transforms a unit impulse both ways and derives the factors that make
// the pair unnormalized: forward(delta) must be all ones, inverse(ones) must be N·delta.
func (b *algoBackend) measureScale() error {
	clear(b.time32)
	b.time32[0] = 1
	if err := b.plan.Forward(b.freq64, b.time32); err != nil {
		return fmt.Errorf("forward FFT failed: %w", err)
	}
	dc := float64(real(b.freq64[0]))
	if dc == 0 {
		return fmt.Errorf("%w: %s forward transform of an impulse has no DC", ErrBackendContract, AlgoFFTName)
	}
	b.fwdScale = 1 / dc

	for i := range b.freq64 {
		b.freq64[i] = 1
	}
	if err := b.plan.Inverse(b.time32, b.freq64); err != nil {
		return fmt.Errorf("inverse FFT failed: %w", err)
	}
	peak := float64(b.time32[0])
	if peak == 0 {
		return fmt.Errorf("%w: %s inverse transform collapsed to zero", ErrBackendContract, AlgoFFTName)
	}
	b.invScale = float64(b.n) / peak
	return nil
}

func (b *algoBackend) Forward(dst []complex128, src []float64) {
	if len(dst) != b.n/2+1 || len(src) != b.n {
		panic(fmt.Sprintf("spectral: %s forward length mismatch (%d, %d) for size %d", AlgoFFTName, len(dst), len(src), b.n))
	}
	for i, v := range src {
		b.time32[i] = float32(v)
	}
	if err := b.plan.Forward(b.freq64, b.time32); err != nil {
		panic(err)
	}
	for i, c := range b.freq64 {
		dst[i] = complex(float64(real(c))*b.fwdScale, float64(imag(c))*b.fwdScale)
	}
}

func (b *algoBackend) Inverse(dst []float64, src []complex128) {
	if len(dst) != b.n || len(src) != b.n/2+1 {
		panic(fmt.Sprintf("spectral: %s inverse length mismatch (%d, %d) for size %d", AlgoFFTName, len(dst), len(src), b.n))
	}
	for i, c := range src {
		b.freq64[i] = complex64(c)
	}
	if err := b.plan.Inverse(b.time32, b.freq64); err != nil {
		panic(err)
	}
	for i, v := range b.time32 {
		dst[i] = float64(v) * b.invScale
	}
}

func (b *algoBackend) Size() int { return b.n }
func (b *algoBackend) Name() string { return AlgoFFTName }
