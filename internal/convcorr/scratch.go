// SPDX-License-Identifier: MIT
package convcorr

import "fmt"

// View names the interpretation of the scratch arena that is currently valid.
type View uint8

const (
	// TimeView exposes N real samples.
	TimeView View = iota
	// FreqView exposes N/2+1 complex bins.
	FreqView
)

func (v View) String() string {
	switch v {
	case TimeView:
		return "time"
	case FreqView:
		return "frequency"
	default:
		return fmt.Sprintf("view(%d)", uint8(v))
	}
}

// Scratch is the transform working area shared by every convolution and
// correlation of a Processor. Exactly one view is active at a time; asking for
// the other one is a programming error and panics.
type Scratch struct {
	time   []float64
	freq   []complex128
	active View
}

// NewScratch allocates a scratch arena for transform size n with the time view active.
func NewScratch(n int) *Scratch {
	return &Scratch{
		time:   make([]float64, n),
		freq:   make([]complex128, n/2+1),
		active: TimeView,
	}
}

// Activate switches the valid view. The contents of the newly active view are
// whatever the last transform left there.
func (s *Scratch) Activate(v View) {
	s.active = v
}

// Active reports the currently valid view.
func (s *Scratch) Active() View {
	return s.active
}

// Time returns the time view. It panics unless TimeView is active.
func (s *Scratch) Time() []float64 {
	if s.active != TimeView {
		panic("convcorr: time view used while " + s.active.String() + " view is active")
	}
	return s.time
}

// Freq returns the frequency view. It panics unless FreqView is active.
func (s *Scratch) Freq() []complex128 {
	if s.active != FreqView {
		panic("convcorr: frequency view used while " + s.active.String() + " view is active")
	}
	return s.freq
}

// Size returns the transform size N.
func (s *Scratch) Size() int {
	return len(s.time)
}
