// SPDX-License-Identifier: MIT
package convcorr

import (
	"datawave/internal/spectral"
	"fmt"
)

// Processor performs circular convolution and correlation of N-sample blocks
// against precomputed N/2+1-bin kernels. It owns one Scratch and the two plans
// bound to it, so it is not safe for concurrent use. No method allocates.
type Processor struct {
	n       int
	invN    float64
	scratch *Scratch
	forward *spectral.Plan
	inverse *spectral.Plan
	backend spectral.Backend
}

// New binds a forward and inverse plan from b to a fresh scratch arena.
func New(b spectral.Backend) (*Processor, error) {
	n := b.Size()
	s := NewScratch(n)

	forward, err := spectral.NewPlan(b, spectral.Forward, s.time, s.freq)
	if err != nil {
		return nil, fmt.Errorf("convcorr: forward plan: %w", err)
	}
	inverse, err := spectral.NewPlan(b, spectral.Inverse, s.time, s.freq)
	if err != nil {
		return nil, fmt.Errorf("convcorr: inverse plan: %w", err)
	}

	return &Processor{
		n:       n,
		invN:    1 / float64(n),
		scratch: s,
		forward: forward,
		inverse: inverse,
		backend: b,
	}, nil
}

// Size returns the block length N.
func (p *Processor) Size() int { return p.n }

// Backend returns the transform backend the plans were built from.
func (p *Processor) Backend() spectral.Backend { return p.backend }

// Spectrum writes the unnormalized forward transform of src into dst.
func (p *Processor) Spectrum(dst []complex128, src []float64) {
	p.checkTime(src)
	p.checkFreq(dst)
	p.load(src)
	copy(dst, p.scratch.Freq())
	p.scratch.Activate(TimeView)
}

// Convolution writes the circular convolution of src with the kernel spectrum to dst.
// dst and src may alias.
func (p *Processor) Convolution(dst, src []float64, kernel []complex128) {
	p.ConvolutionGain(dst, src, kernel, 1)
}

// ConvolutionGain is Convolution with the result scaled by gain in the same pass.
func (p *Processor) ConvolutionGain(dst, src []float64, kernel []complex128, gain float64) {
	p.checkFreq(kernel)
	p.load(src)
	freq := p.scratch.Freq()
	for k, c := range kernel {
		freq[k] *= c
	}
	p.store(dst, gain)
}

// Correlation writes the circular cross-correlation of src with the kernel spectrum
// (multiplication by the kernel's conjugate) to dst. dst and src may alias.
func (p *Processor) Correlation(dst, src []float64, kernel []complex128) {
	p.CorrelationGain(dst, src, kernel, 1)
}

// CorrelationGain is Correlation with the result scaled by gain in the same pass.
func (p *Processor) CorrelationGain(dst, src []float64, kernel []complex128, gain float64) {
	p.checkFreq(kernel)
	p.load(src)
	freq := p.scratch.Freq()
	for k, c := range kernel {
		freq[k] *= complex(real(c), -imag(c))
	}
	p.store(dst, gain)
}

// Autocorrelation writes the circular autocorrelation of src to dst.
func (p *Processor) Autocorrelation(dst, src []float64) {
	p.power(src)
	p.store(dst, 1)
}

// Energy returns the zero-lag autocorrelation of src, the sum of its squares.
func (p *Processor) Energy(src []float64) float64 {
	p.power(src)
	p.inverse.Execute()
	p.scratch.Activate(TimeView)
	return p.scratch.Time()[0] * p.invN
}

func (p *Processor) power(src []float64) {
	p.load(src)
	freq := p.scratch.Freq()
	for k, c := range freq {
		freq[k] = complex(real(c)*real(c)+imag(c)*imag(c), 0)
	}
}

// load copies src into the time view and leaves its spectrum in the frequency view.
func (p *Processor) load(src []float64) {
	p.checkTime(src)
	p.scratch.Activate(TimeView)
	copy(p.scratch.Time(), src)
	p.forward.Execute()
	p.scratch.Activate(FreqView)
}

// store inverts the frequency view and writes it to dst scaled by gain/N.
func (p *Processor) store(dst []float64, gain float64) {
	p.checkTime(dst)
	p.inverse.Execute()
	p.scratch.Activate(TimeView)
	scale := gain * p.invN
	for i, v := range p.scratch.Time() {
		dst[i] = v * scale
	}
}

func (p *Processor) checkTime(buf []float64) {
	if len(buf) != p.n {
		panic(fmt.Sprintf("convcorr: time buffer has %d samples, want %d", len(buf), p.n))
	}
}

func (p *Processor) checkFreq(buf []complex128) {
	if len(buf) != p.n/2+1 {
		panic(fmt.Sprintf("convcorr: spectrum has %d bins, want %d", len(buf), p.n/2+1))
	}
}
