// SPDX-License-Identifier: MIT
package spectral

import "gonum.org/v1/gonum/dsp/fourier"

// GonumName identifies the gonum dsp/fourier backend.
const GonumName = "gonum"

// gonumBackend wraps a reusable fourier.FFT. Coefficients and Sequence are already
// unnormalized, so no scaling is applied.
type gonumBackend struct {
	n   int
	fft *fourier.FFT
}

var _ Backend = (*gonumBackend)(nil)

func newGonumBackend(n int) (Backend, error) {
	return &gonumBackend{n: n, fft: fourier.NewFFT(n)}, nil
}

func (g *gonumBackend) Forward(dst []complex128, src []float64) {
	g.fft.Coefficients(dst, src)
}

func (g *gonumBackend) Inverse(dst []float64, src []complex128) {
	g.fft.Sequence(dst, src)
}

func (g *gonumBackend) Size() int { return g.n }
func (g *gonumBackend) Name() string { return GonumName }
