// SPDX-License-Identifier: MIT
package spectral

import "fmt"

// Direction selects which half of the transform pair a Plan executes.
type Direction int

const (
	// Forward transforms the plan's time buffer into its frequency buffer.
	Forward Direction = iota
	// Inverse transforms the plan's frequency buffer back into its time buffer.
	Inverse
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Inverse:
		return "inverse"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// Plan is a transform bound to a fixed pair of buffers. Plans are created once
// at initialization and executed on every block without further checks.
type Plan struct {
	backend Backend
	dir     Direction
	time    []float64
	freq    []complex128
}

// NewPlan binds b to the given buffers. time must hold N samples and freq N/2+1 bins.
func NewPlan(b Backend, dir Direction, time []float64, freq []complex128) (*Plan, error) {
	n := b.Size()
	if len(time) != n {
		return nil, fmt.Errorf("%w: time buffer has %d samples, want %d", ErrLength, len(time), n)
	}
	if len(freq) != n/2+1 {
		return nil, fmt.Errorf("%w: frequency buffer has %d bins, want %d", ErrLength, len(freq), n/2+1)
	}
	if dir != Forward && dir != Inverse {
		return nil, fmt.Errorf("spectral: invalid plan direction %v", dir)
	}
	return &Plan{backend: b, dir: dir, time: time, freq: freq}, nil
}

// Execute runs the transform in place over the bound buffers.
func (p *Plan) Execute() {
	if p.dir == Forward {
		p.backend.Forward(p.freq, p.time)
		return
	}
	p.backend.Inverse(p.time, p.freq)
}

func (p *Plan) Direction() Direction { return p.dir }
func (p *Plan) Size() int { return p.backend.Size() }
