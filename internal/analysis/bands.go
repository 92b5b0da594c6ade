// SPDX-License-Identifier: MIT
package analysis

import "math"

// Band is a named frequency range [LowHz, HighHz).
type Band struct {
	Name   string
	LowHz  float64
	HighHz float64
}

// DefaultBands returns the monitor's band layout for the given sample rate.
// The top band extends to Nyquist.
func DefaultBands(sampleRate float64) []Band {
	return []Band{
		{Name: "sub", LowHz: 20, HighHz: 60},
		{Name: "bass", LowHz: 60, HighHz: 250},
		{Name: "lowMid", LowHz: 250, HighHz: 500},
		{Name: "mid", LowHz: 500, HighHz: 2000},
		{Name: "highMid", LowHz: 2000, HighHz: 4000},
		{Name: "treble", LowHz: 4000, HighHz: sampleRate / 2},
	}
}

// BandEnergy averages spectral power over fixed bands. The bin-to-band map
// is computed once so Compute is a single pass over the magnitudes.
type BandEnergy struct {
	bands  []Band
	binMap []int // band index per bin, -1 when the bin falls outside every band
	counts []int
}

// NewBandEnergy prepares a band map for a spectrum with the given geometry.
func NewBandEnergy(bands []Band, spectrumSize int, sampleRate float64) *BandEnergy {
	bins := spectrumSize/2 + 1
	b := &BandEnergy{
		bands:  bands,
		binMap: make([]int, bins),
		counts: make([]int, len(bands)),
	}
	res := sampleRate / float64(spectrumSize)
	for i := range b.binMap {
		b.binMap[i] = -1
		freq := float64(i) * res
		for j, band := range bands {
			if freq >= band.LowHz && freq < band.HighHz {
				b.binMap[i] = j
				b.counts[j]++
				break
			}
		}
	}
	return b
}

// Bands returns the configured bands.
func (b *BandEnergy) Bands() []Band { return b.bands }

// Compute writes the RMS magnitude of every band into dst, which must hold
// one value per band. Bands without bins read 0.
func (b *BandEnergy) Compute(dst, magnitudes []float64) {
	clear(dst)
	for i, m := range magnitudes {
		if i >= len(b.binMap) {
			break
		}
		if j := b.binMap[i]; j >= 0 {
			dst[j] += m * m
		}
	}
	for j := range dst {
		if b.counts[j] > 0 {
			dst[j] = math.Sqrt(dst[j] / float64(b.counts[j]))
		}
	}
}
