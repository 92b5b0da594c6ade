// SPDX-License-Identifier: MIT
package codec

import (
	"datawave/internal/convcorr"
	"datawave/internal/spectral"
	"datawave/pkg/utils"
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"gonum.org/v1/gonum/floats"
)

const testSize = 256

func newProcessor(t *testing.T, backend string, n int) *convcorr.Processor {
	t.Helper()
	b, err := spectral.NewBackend(backend, n)
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}
	p, err := convcorr.New(b)
	if err != nil {
		t.Fatalf("convcorr.New() error = %v", err)
	}
	return p
}

// roundTrip returns encode(decode(x)).
func roundTrip(c *Codec, x []float64) []float64 {
	mid := make([]float64, len(x))
	out := make([]float64, len(x))
	c.Decode(mid, x)
	c.Encode(out, mid)
	return out
}

// reverseTrip returns decode(encode(x)).
func reverseTrip(c *Codec, x []float64) []float64 {
	mid := make([]float64, len(x))
	out := make([]float64, len(x))
	c.Encode(mid, x)
	c.Decode(out, mid)
	return out
}

// nearNyquistNull is [1, 1-1e-9, 0, ...]: every bin is well above the clamp
// floor except Nyquist, where |E| = 1e-9 is small but not zero.
func nearNyquistNull() []float64 {
	impulse := make([]float64, testSize)
	impulse[0], impulse[1] = 1, 1-1e-9
	return impulse
}

func TestRoundTripIdentity(t *testing.T) {
	signals := map[string][]float64{
		"impulse": utils.GenerateImpulse(testSize, 17),
		"sine":    utils.GenerateSine(testSize, 16),
		"complex": utils.GenerateComplexWave(testSize, 8000),
	}

	for _, backend := range spectral.Backends() {
		for _, decode := range []DecodePolicy{DecodeReciprocal, DecodePhase} {
			for _, norm := range []Normalization{NormalizeEnergy, NormalizePeak} {
				opts := DefaultOptions(testSize)
				opts.Width = 16
				opts.Decode = decode
				opts.Normalize = norm

				c, err := New(newProcessor(t, backend, testSize), opts)
				if err != nil {
					t.Fatalf("New(%s, %s, %s) error = %v", backend, decode, norm, err)
				}

				tol := 1e-9
				if backend == spectral.AlgoFFTName {
					tol = 1e-3
				}
				for name, x := range signals {
					if d := utils.MaxAbsDiff(roundTrip(c, x), x); d > tol {
						t.Errorf("%s/%s/%s/%s: encode(decode(x)) differs by %g", backend, decode, norm, name, d)
					}
					if d := utils.MaxAbsDiff(reverseTrip(c, x), x); d > tol {
						t.Errorf("%s/%s/%s/%s: decode(encode(x)) differs by %g", backend, decode, norm, name, d)
					}
				}
			}
		}
	}
}

func TestRoundTripGain(t *testing.T) {
	opts := DefaultOptions(testSize)
	opts.GainIn = 2
	opts.GainOut = 0.25

	c, err := New(newProcessor(t, spectral.GonumName, testSize), opts)
	if err != nil {
		t.Fatal(err)
	}
	if c.Gain() != 0.5 {
		t.Errorf("Gain() = %g, want 0.5", c.Gain())
	}

	x := utils.GenerateSine(testSize, 32)
	want := floats.ScaleTo(make([]float64, testSize), 0.5, x)
	if got := roundTrip(c, x); !floats.EqualApprox(got, want, 1e-9) {
		t.Errorf("round trip gain mismatch (max diff %g)", utils.MaxAbsDiff(got, want))
	}
}

func TestEnergyNormalization(t *testing.T) {
	c, err := New(newProcessor(t, spectral.GonumName, testSize), DefaultOptions(testSize))
	if err != nil {
		t.Fatal(err)
	}
	k := c.Kernel()
	if math.Abs(k.Reference-1) > 1e-9 {
		t.Errorf("Reference = %g, want 1", k.Reference)
	}
	if e := floats.Dot(k.Impulse, k.Impulse); math.Abs(e-1) > 1e-9 {
		t.Errorf("impulse energy = %g, want 1", e)
	}
}

func TestPeakNormalization(t *testing.T) {
	opts := DefaultOptions(testSize)
	opts.Normalize = NormalizePeak
	c, err := New(newProcessor(t, spectral.GonumName, testSize), opts)
	if err != nil {
		t.Fatal(err)
	}
	k := c.Kernel()
	peak := math.Abs(k.Impulse[utils.FindPeakAbs(k.Impulse)])
	if math.Abs(peak-1) > 1e-12 {
		t.Errorf("peak magnitude = %g, want 1", peak)
	}
	if math.Abs(k.Reference-floats.Dot(k.Impulse, k.Impulse)) > 1e-9 {
		t.Errorf("Reference = %g does not match impulse energy", k.Reference)
	}
}

func TestGenerateImpulseDeterministic(t *testing.T) {
	a := GenerateImpulse(testSize, 16, 42)
	b := GenerateImpulse(testSize, 16, 42)
	c := GenerateImpulse(testSize, 16, 43)

	if !floats.Equal(a, b) {
		t.Error("equal seeds produced different impulses")
	}
	if floats.Equal(a, c) {
		t.Error("different seeds produced the same impulse")
	}
	for i, v := range a {
		x := float64(i)
		if i >= testSize/2 {
			x = float64(i - testSize)
		}
		if bound := math.Exp(-(x * x) / 256); math.Abs(v) > bound+1e-15 {
			t.Fatalf("sample %d = %g exceeds envelope %g", i, v, bound)
		}
	}
}

func TestClampedReciprocal(t *testing.T) {
	// [1, 1, 0, ...] has an exact zero at the Nyquist bin.
	impulse := make([]float64, testSize)
	impulse[0], impulse[1] = 1, 1

	c, err := NewFromImpulse(newProcessor(t, spectral.GonumName, testSize), impulse, DefaultOptions(testSize))
	if err != nil {
		t.Fatalf("NewFromImpulse() error = %v", err)
	}
	k := c.Kernel()
	if k.Clamped != 1 {
		t.Errorf("Clamped = %d, want 1", k.Clamped)
	}

	floor := DefaultEpsilon * 2
	for i, r := range k.Inverse {
		if cmplx.IsNaN(r) || cmplx.IsInf(r) {
			t.Fatalf("decode bin %d is not finite: %v", i, r)
		}
		if cmplx.Abs(r) > 1/floor*(1+1e-9) {
			t.Errorf("decode bin %d magnitude %g exceeds 1/floor", i, cmplx.Abs(r))
		}
	}

	// Content away from the clamped bin survives the round trip.
	x := utils.GenerateSine(testSize, 32)
	if got := roundTrip(c, x); !floats.EqualApprox(got, x, 1e-8) {
		t.Errorf("low-frequency round trip differs by %g", utils.MaxAbsDiff(got, x))
	}
}

func TestClampedReciprocalKeepsPhase(t *testing.T) {
	c, err := NewFromImpulse(newProcessor(t, spectral.GonumName, testSize), nearNyquistNull(), DefaultOptions(testSize))
	if err != nil {
		t.Fatalf("NewFromImpulse() error = %v", err)
	}
	k := c.Kernel()
	if k.Clamped != 1 {
		t.Fatalf("Clamped = %d, want 1", k.Clamped)
	}

	nyquist := testSize / 2
	e, r := k.Spectrum[nyquist], k.Inverse[nyquist]
	floor := DefaultEpsilon * maxAbs(k.Spectrum)
	if mag := cmplx.Abs(e); mag == 0 || mag >= floor {
		t.Fatalf("|E| at Nyquist = %g, want nonzero and below floor %g", mag, floor)
	}
	if got, want := cmplx.Abs(r), 1/floor; math.Abs(got-want) > want*1e-9 {
		t.Errorf("|R| at Nyquist = %g, want 1/floor = %g", got, want)
	}
	if d := cmplx.Phase(r * e); math.Abs(d) > 1e-9 {
		t.Errorf("arg R + arg E = %g, want 0", d)
	}

	// Bins above the floor take the exact reciprocal.
	for i, v := range k.Inverse {
		if i == nyquist {
			continue
		}
		if got := v * k.Spectrum[i]; cmplx.Abs(got-1) > 1e-9 {
			t.Fatalf("bin %d: R*E = %v, want 1", i, got)
		}
	}

	x := utils.GenerateSine(testSize, 32)
	if got := roundTrip(c, x); !floats.EqualApprox(got, x, 1e-8) {
		t.Errorf("encode(decode(x)) differs by %g", utils.MaxAbsDiff(got, x))
	}
	if got := reverseTrip(c, x); !floats.EqualApprox(got, x, 1e-8) {
		t.Errorf("decode(encode(x)) differs by %g", utils.MaxAbsDiff(got, x))
	}
}

func TestClampedPhasePassesBin(t *testing.T) {
	opts := DefaultOptions(testSize)
	opts.Decode = DecodePhase
	c, err := NewFromImpulse(newProcessor(t, spectral.GonumName, testSize), nearNyquistNull(), opts)
	if err != nil {
		t.Fatalf("NewFromImpulse() error = %v", err)
	}
	k := c.Kernel()
	if k.Clamped != 1 {
		t.Fatalf("Clamped = %d, want 1", k.Clamped)
	}
	if p := k.Inverse[testSize/2]; p != 1 {
		t.Errorf("P at Nyquist = %v, want 1", p)
	}
	for i, p := range k.Inverse {
		if math.Abs(cmplx.Abs(p)-1) > 1e-12 {
			t.Fatalf("bin %d magnitude %g, want 1", i, cmplx.Abs(p))
		}
	}

	x := utils.GenerateSine(testSize, 32)
	if got := roundTrip(c, x); !floats.EqualApprox(got, x, 1e-9) {
		t.Errorf("encode(decode(x)) differs by %g", utils.MaxAbsDiff(got, x))
	}
	if got := reverseTrip(c, x); !floats.EqualApprox(got, x, 1e-9) {
		t.Errorf("decode(encode(x)) differs by %g", utils.MaxAbsDiff(got, x))
	}
}

func TestPhaseDecodeIsAllPass(t *testing.T) {
	opts := DefaultOptions(testSize)
	opts.Decode = DecodePhase
	c, err := New(newProcessor(t, spectral.GonumName, testSize), opts)
	if err != nil {
		t.Fatal(err)
	}
	for i, p := range c.Kernel().Inverse {
		if math.Abs(cmplx.Abs(p)-1) > 1e-12 {
			t.Fatalf("bin %d magnitude %g, want 1", i, cmplx.Abs(p))
		}
	}
}

func TestDegenerateKernel(t *testing.T) {
	_, err := NewFromImpulse(newProcessor(t, spectral.GonumName, testSize), make([]float64, testSize), DefaultOptions(testSize))
	if !errors.Is(err, ErrDegenerateKernel) {
		t.Errorf("NewFromImpulse(zeros) error = %v, want ErrDegenerateKernel", err)
	}
}

func TestInvalidOptions(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
	}{
		{"size", func(o *Options) { o.Size = 300 }},
		{"width", func(o *Options) { o.Width = 0 }},
		{"epsilon", func(o *Options) { o.Epsilon = 1 }},
		{"normalize", func(o *Options) { o.Normalize = "loud" }},
		{"decode", func(o *Options) { o.Decode = "magic" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions(testSize)
			tt.modify(&opts)
			if err := opts.Validate(); !errors.Is(err, ErrOptions) {
				t.Errorf("Validate() error = %v, want ErrOptions", err)
			}
		})
	}
}

func TestProcessorSizeMismatch(t *testing.T) {
	_, err := New(newProcessor(t, spectral.GonumName, 128), DefaultOptions(testSize))
	if !errors.Is(err, ErrOptions) {
		t.Errorf("New() error = %v, want ErrOptions", err)
	}
}

func TestParsePolicies(t *testing.T) {
	if n, err := ParseNormalization("PEAK"); err != nil || n != NormalizePeak {
		t.Errorf("ParseNormalization(PEAK) = (%q, %v)", n, err)
	}
	if d, err := ParseDecodePolicy("Phase"); err != nil || d != DecodePhase {
		t.Errorf("ParseDecodePolicy(Phase) = (%q, %v)", d, err)
	}
}
