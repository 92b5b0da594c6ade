// SPDX-License-Identifier: MIT
package codec

import (
	"datawave/pkg/bitint"
	"errors"
	"fmt"
	"strings"
)

// Normalization selects how the generated impulse is scaled.
type Normalization string

const (
	// NormalizeEnergy scales the impulse so its zero-lag autocorrelation is 1.
	NormalizeEnergy Normalization = "energy"
	// NormalizePeak scales the impulse so its largest sample magnitude is 1.
	NormalizePeak Normalization = "peak"
)

// DecodePolicy selects the kernel used to undo the impulse.
type DecodePolicy string

const (
	// DecodeReciprocal deconvolves with 1/E, clamping near-zero bins.
	DecodeReciprocal DecodePolicy = "reciprocal"
	// DecodePhase correlates with the all-pass E/|E|, keeping only phase.
	DecodePhase DecodePolicy = "phase"
)

// Defaults for the impulse pair.
const (
	DefaultWidth   = 64.0
	DefaultSeed    = 1
	DefaultEpsilon = 1e-6
)

var (
	ErrOptions          = errors.New("codec: invalid options")
	ErrDegenerateKernel = errors.New("codec: impulse has no energy")
)

// Options configure the impulse pair.
type Options struct {
	Size      int           // Block length N, a power of two.
	Width     float64       // Gaussian envelope width in samples.
	Seed      uint64        // Noise generator seed.
	Normalize Normalization // Impulse scaling policy.
	Decode    DecodePolicy  // Decode kernel policy.
	Epsilon   float64       // Clamp floor relative to the largest spectral magnitude.
	GainIn    float64       // Gain applied on decode.
	GainOut   float64       // Gain applied on encode.
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions(size int) Options {
	return Options{
		Size:      size,
		Width:     DefaultWidth,
		Seed:      DefaultSeed,
		Normalize: NormalizeEnergy,
		Decode:    DecodeReciprocal,
		Epsilon:   DefaultEpsilon,
		GainIn:    1,
		GainOut:   1,
	}
}

// Validate reports the first invalid field.
func (o Options) Validate() error {
	if o.Size < 2 || !bitint.IsPowerOfTwo(o.Size) {
		return fmt.Errorf("%w: size %d is not a power of two", ErrOptions, o.Size)
	}
	if !(o.Width > 0) {
		return fmt.Errorf("%w: width must be positive, got %g", ErrOptions, o.Width)
	}
	if !(o.Epsilon > 0 && o.Epsilon < 1) {
		return fmt.Errorf("%w: epsilon must be in (0, 1), got %g", ErrOptions, o.Epsilon)
	}
	if _, err := ParseNormalization(string(o.Normalize)); err != nil {
		return err
	}
	if _, err := ParseDecodePolicy(string(o.Decode)); err != nil {
		return err
	}
	return nil
}

// ParseNormalization converts a textual policy name (case-insensitive).
func ParseNormalization(s string) (Normalization, error) {
	switch n := Normalization(strings.ToLower(s)); n {
	case NormalizeEnergy, NormalizePeak:
		return n, nil
	default:
		return "", fmt.Errorf("%w: unknown normalization %q (want energy or peak)", ErrOptions, s)
	}
}

// ParseDecodePolicy converts a textual policy name (case-insensitive).
func ParseDecodePolicy(s string) (DecodePolicy, error) {
	switch d := DecodePolicy(strings.ToLower(s)); d {
	case DecodeReciprocal, DecodePhase:
		return d, nil
	default:
		return "", fmt.Errorf("%w: unknown decode policy %q (want reciprocal or phase)", ErrOptions, s)
	}
}
