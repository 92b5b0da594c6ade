// SPDX-License-Identifier: MIT
package analysis

import (
	"datawave/pkg/bitint"
	"errors"
	"fmt"
	"math/cmplx"
	"strings"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

var (
	ErrSize       = errors.New("analysis: size must be a power of two")
	ErrSampleRate = errors.New("analysis: sample rate must be positive")
	ErrWindow     = errors.New("analysis: unknown window function")
	ErrLength     = errors.New("analysis: destination length mismatch")
)

// WindowFunc selects the analysis window applied before the transform.
type WindowFunc int

const (
	BartlettHann WindowFunc = iota
	Blackman
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
)

var windowNames = [...]string{
	BartlettHann:    "BartlettHann",
	Blackman:        "Blackman",
	BlackmanNuttall: "BlackmanNuttall",
	Hann:            "Hann",
	Hamming:         "Hamming",
	Lanczos:         "Lanczos",
	Nuttall:         "Nuttall",
}

func (w WindowFunc) String() string {
	if w < 0 || int(w) >= len(windowNames) {
		return fmt.Sprintf("WindowFunc(%d)", int(w))
	}
	return windowNames[w]
}

// ParseWindowFunc converts a case-insensitive window name into a WindowFunc.
// Unknown names return Hann together with ErrWindow.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(name) {
	case "bartletthann":
		return BartlettHann, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "hann", "hanning", "":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	default:
		return Hann, fmt.Errorf("%w: %q", ErrWindow, name)
	}
}

// Spectrum computes windowed magnitude spectra of the engine output for the
// monitor. It is not used on the audio path: the monitor goroutine calls
// Analyze while transports read the latest result concurrently.
type Spectrum struct {
	fft        *fourier.FFT
	size       int
	sampleRate float64
	window     []float64
	input      []float64
	coeffs     []complex128

	mu        sync.RWMutex
	magnitude []float64
	rms       float64
}

// NewSpectrum creates an analyzer for frames of size samples.
func NewSpectrum(size int, sampleRate float64, w WindowFunc) (*Spectrum, error) {
	if size < 2 || !bitint.IsPowerOfTwo(size) {
		return nil, fmt.Errorf("%w: got %d", ErrSize, size)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: got %g", ErrSampleRate, sampleRate)
	}

	coeffs := make([]float64, size)
	fillWindow(coeffs, w)

	bins := size/2 + 1
	return &Spectrum{
		fft:        fourier.NewFFT(size),
		size:       size,
		sampleRate: sampleRate,
		window:     coeffs,
		input:      make([]float64, size),
		coeffs:     make([]complex128, bins),
		magnitude:  make([]float64, bins),
	}, nil
}

// Analyze windows frame, transforms it and stores the normalized magnitudes.
// Frames shorter than the analyzer are zero padded.
func (s *Spectrum) Analyze(frame []float32) {
	var sum float64
	for i := range s.input {
		var v float64
		if i < len(frame) {
			v = float64(frame[i])
		}
		sum += v * v
		s.input[i] = v * s.window[i]
	}
	s.fft.Coefficients(s.coeffs, s.input)

	// Single-sided amplitude scaling.
	scale := 2 / float64(s.size)

	s.mu.Lock()
	for i, c := range s.coeffs {
		s.magnitude[i] = cmplx.Abs(c) * scale
	}
	s.rms = sum / float64(s.size)
	s.mu.Unlock()
}

// GetMagnitudes returns a copy of the latest magnitudes.
func (s *Spectrum) GetMagnitudes() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]float64, len(s.magnitude))
	copy(out, s.magnitude)
	return out
}

// GetMagnitudesInto copies the latest magnitudes into dst without allocating.
func (s *Spectrum) GetMagnitudesInto(dst []float64) error {
	if len(dst) != len(s.magnitude) {
		return fmt.Errorf("%w: want %d, got %d", ErrLength, len(s.magnitude), len(dst))
	}
	s.mu.RLock()
	copy(dst, s.magnitude)
	s.mu.RUnlock()
	return nil
}

// MeanSquare returns the mean square of the last analyzed frame before windowing.
func (s *Spectrum) MeanSquare() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rms
}

// GetFrequencyForBin returns the center frequency of bin in Hz, or 0 when
// bin is out of range.
func (s *Spectrum) GetFrequencyForBin(bin int) float64 {
	if bin < 0 || bin >= len(s.magnitude) {
		return 0
	}
	return float64(bin) * s.sampleRate / float64(s.size)
}

func (s *Spectrum) GetFFTSize() int { return s.size }

func (s *Spectrum) GetSampleRate() float64 { return s.sampleRate }

// Bins returns the number of magnitude bins, size/2+1.
func (s *Spectrum) Bins() int { return len(s.magnitude) }

func fillWindow(coeffs []float64, w WindowFunc) {
	for i := range coeffs {
		coeffs[i] = 1
	}
	switch w {
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	default:
		window.Hann(coeffs)
	}
}
