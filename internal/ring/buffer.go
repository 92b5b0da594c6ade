// SPDX-License-Identifier: MIT
package ring

import "datawave/pkg/bitint"

// Buffer is one stream's pair of N-sample windows. The input window collects host
// samples at the write phase; the output window holds the last reconstructed block
// and is played back from the read phase.
type Buffer struct {
	phase  *PhaseTracker
	input  []float64
	output []float64
}

// NewBuffer allocates both windows for the tracker's ring size.
func NewBuffer(phase *PhaseTracker) *Buffer {
	return &Buffer{
		phase:  phase,
		input:  make([]float64, phase.size),
		output: make([]float64, phase.size),
	}
}

// Exchange stores in at the write phase and fills out from the read phase.
// The caller advances the shared tracker once every stream has exchanged.
//
// A block whose length does not tile the ring, or whose in and out lengths differ,
// is not stored: out is zero-filled and ErrBlockMismatch is returned. A nil in
// writes silence.
func (b *Buffer) Exchange(in, out []float32) error {
	n := len(out)
	if (in != nil && len(in) != n) || !b.phase.Accepts(n) {
		clear(out)
		return ErrBlockMismatch
	}

	w, r, size := b.phase.Write(), b.phase.Read(), b.phase.size
	for i := range n {
		if in != nil {
			b.input[bitint.Wrap(w+i, size)] = float64(in[i])
		} else {
			b.input[bitint.Wrap(w+i, size)] = 0
		}
		out[i] = float32(b.output[bitint.Wrap(r+i, size)])
	}
	return nil
}

// Input returns the N-sample input window.
func (b *Buffer) Input() []float64 { return b.input }

// Output returns the N-sample output window that the next exchanges read from.
func (b *Buffer) Output() []float64 { return b.output }

// Reset silences both windows.
func (b *Buffer) Reset() {
	clear(b.input)
	clear(b.output)
}
