// SPDX-License-Identifier: MIT
package codec

import (
	"datawave/internal/convcorr"
	"datawave/internal/log"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/floats"
)

// Kernel is the precomputed impulse pair. It is immutable once built.
type Kernel struct {
	Impulse   []float64    // Time-domain impulse, N samples.
	Spectrum  []complex128 // Forward transform of Impulse, used to encode.
	Inverse   []complex128 // Decode kernel selected by the decode policy.
	Reference float64      // Zero-lag autocorrelation of Impulse.
	Clamped   int          // Bins whose decode kernel was clamped.
}

// Codec decodes blocks out of the impulse domain and encodes them back.
// It shares the caller's Processor and is therefore single-threaded.
type Codec struct {
	opts        Options
	kernel      Kernel
	proc        *convcorr.Processor
	decodeScale float64
	encodeScale float64
}

// New generates the seeded impulse described by opts and builds its codec.
func New(proc *convcorr.Processor, opts Options) (*Codec, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return build(proc, GenerateImpulse(opts.Size, opts.Width, opts.Seed), opts, true)
}

// NewFromImpulse builds a codec around an explicit impulse. The impulse is copied
// and used as given: no normalization is applied.
func NewFromImpulse(proc *convcorr.Processor, impulse []float64, opts Options) (*Codec, error) {
	opts.Size = len(impulse)
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return build(proc, append([]float64(nil), impulse...), opts, false)
}

func build(proc *convcorr.Processor, impulse []float64, opts Options, normalize bool) (*Codec, error) {
	n := opts.Size
	if proc.Size() != n {
		return nil, fmt.Errorf("%w: processor size %d does not match impulse size %d", ErrOptions, proc.Size(), n)
	}

	energy := proc.Energy(impulse)
	if energy <= 0 || math.IsNaN(energy) {
		return nil, ErrDegenerateKernel
	}

	if normalize {
		switch opts.Normalize {
		case NormalizeEnergy:
			floats.Scale(math.Sqrt(1/energy), impulse)
		case NormalizePeak:
			peakNormalize(impulse)
		}
	}

	k := Kernel{
		Impulse:  impulse,
		Spectrum: make([]complex128, n/2+1),
		Inverse:  make([]complex128, n/2+1),
	}
	proc.Spectrum(k.Spectrum, impulse)
	k.Reference = proc.Energy(impulse)
	if k.Reference <= 0 {
		return nil, ErrDegenerateKernel
	}

	floor := opts.Epsilon * maxAbs(k.Spectrum)
	switch opts.Decode {
	case DecodeReciprocal:
		k.Clamped = reciprocal(k.Inverse, k.Spectrum, floor)
	case DecodePhase:
		k.Clamped = allpass(k.Inverse, k.Spectrum, floor)
	}

	logger := log.With("component", "codec")
	if k.Clamped > 0 {
		logger.Warnf("%d of %d bins below %.3g, decode kernel clamped", k.Clamped, len(k.Spectrum), floor)
	}
	logger.Debugf("impulse ready: size=%d width=%g seed=%d normalize=%s decode=%s reference=%.6g",
		n, opts.Width, opts.Seed, opts.Normalize, opts.Decode, k.Reference)

	return &Codec{
		opts:        opts,
		kernel:      k,
		proc:        proc,
		decodeScale: opts.GainIn / k.Reference,
		encodeScale: opts.GainOut * k.Reference,
	}, nil
}

// reciprocal writes 1/E. Bins below floor keep the phase of 1/E with magnitude 1/floor.
func reciprocal(dst, spec []complex128, floor float64) int {
	clamped := 0
	for k, e := range spec {
		mag := cmplx.Abs(e)
		switch {
		case mag >= floor:
			dst[k] = 1 / e
		case mag == 0:
			dst[k] = complex(1/floor, 0)
			clamped++
		default:
			dst[k] = cmplx.Conj(e) / complex(mag*floor, 0)
			clamped++
		}
	}
	return clamped
}

// allpass writes E/|E|. Bins below floor pass unchanged.
func allpass(dst, spec []complex128, floor float64) int {
	clamped := 0
	for k, e := range spec {
		mag := cmplx.Abs(e)
		if mag < floor || mag == 0 {
			dst[k] = 1
			clamped++
			continue
		}
		dst[k] = e / complex(mag, 0)
	}
	return clamped
}

func maxAbs(spec []complex128) float64 {
	var peak float64
	for _, c := range spec {
		peak = math.Max(peak, cmplx.Abs(c))
	}
	return peak
}

// Decode undoes the impulse on an N-sample block and applies the input gain.
// dst and src may alias.
func (c *Codec) Decode(dst, src []float64) {
	if c.opts.Decode == DecodePhase {
		c.proc.CorrelationGain(dst, src, c.kernel.Inverse, c.decodeScale)
		return
	}
	c.proc.ConvolutionGain(dst, src, c.kernel.Inverse, c.decodeScale)
}

// Encode applies the impulse to an N-sample block with the output gain.
// dst and src may alias.
func (c *Codec) Encode(dst, src []float64) {
	if c.opts.Decode == DecodePhase {
		c.proc.ConvolutionGain(dst, src, c.kernel.Inverse, c.encodeScale)
		return
	}
	c.proc.ConvolutionGain(dst, src, c.kernel.Spectrum, c.encodeScale)
}

// Kernel returns the precomputed impulse pair. Callers must not modify it.
func (c *Codec) Kernel() *Kernel { return &c.kernel }

// Options returns the options the codec was built with.
func (c *Codec) Options() Options { return c.opts }

// Gain returns the gain of a decode followed by an encode.
func (c *Codec) Gain() float64 { return c.opts.GainIn * c.opts.GainOut }
