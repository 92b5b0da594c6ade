// SPDX-License-Identifier: MIT
package codec

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// GenerateImpulse fills a new N-sample buffer with uniform noise in [-1, 1)
// shaped by a circular Gaussian centred on sample 0. Equal seeds give equal impulses.
func GenerateImpulse(size int, width float64, seed uint64) []float64 {
	noise := distuv.Uniform{Min: -1, Max: 1, Src: rand.NewPCG(seed, 0)}
	impulse := make([]float64, size)
	half := size / 2
	w2 := width * width
	for i := range impulse {
		x := float64(i)
		if i >= half {
			x = float64(i - size)
		}
		impulse[i] = noise.Rand() * math.Exp(-(x*x)/w2)
	}
	return impulse
}

// peakNormalize divides x by its largest magnitude and returns the factor applied.
func peakNormalize(x []float64) float64 {
	peak := math.Max(floats.Max(x), -floats.Min(x))
	if peak == 0 {
		return 0
	}
	scale := 1 / peak
	floats.Scale(scale, x)
	return scale
}
