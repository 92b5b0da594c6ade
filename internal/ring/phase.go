// SPDX-License-Identifier: MIT
package ring

import (
	"datawave/pkg/bitint"
	"errors"
	"fmt"
)

var (
	// ErrBlockSize is returned at construction when the block size cannot tile the ring.
	ErrBlockSize = errors.New("ring: block size must divide the ring size and be at most half of it")
	// ErrBlockMismatch is returned per call when a host block has an unusable length.
	ErrBlockMismatch = errors.New("ring: block length does not fit the ring")
)

// PhaseTracker holds the write position shared by every stream of an engine.
// The read position trails the write position by half the ring, which is the
// fixed latency of the pipeline.
type PhaseTracker struct {
	size   int
	block  int
	write  int
	blocks uint64
}

// NewPhaseTracker returns a tracker for a ring of size samples fed in blocks of block samples.
func NewPhaseTracker(size, block int) (*PhaseTracker, error) {
	if size < 2 || !bitint.IsPowerOfTwo(size) {
		return nil, fmt.Errorf("%w: ring size %d is not a power of two", ErrBlockSize, size)
	}
	if !validBlock(block, size) {
		return nil, fmt.Errorf("%w: block %d, ring %d", ErrBlockSize, block, size)
	}
	return &PhaseTracker{size: size, block: block}, nil
}

func validBlock(block, size int) bool {
	return block > 0 && block <= size/2 && bitint.Divides(block, size)
}

// Write returns the index at which the next block starts.
func (p *PhaseTracker) Write() int { return p.write }

// Read returns the index the next output block is read from.
func (p *PhaseTracker) Read() int { return bitint.Wrap(p.write+p.size/2, p.size) }

// Advance moves the write position past a block of n samples.
func (p *PhaseTracker) Advance(n int) {
	p.write = bitint.Wrap(p.write+n, p.size)
	p.blocks++
}

// Blocks returns the number of blocks processed since construction or Reset.
func (p *PhaseTracker) Blocks() uint64 { return p.blocks }

// Size returns the ring length N.
func (p *PhaseTracker) Size() int { return p.size }

// Block returns the configured block length.
func (p *PhaseTracker) Block() int { return p.block }

// Latency returns the delay in samples between a block going in and coming out.
func (p *PhaseTracker) Latency() int { return p.size / 2 }

// Accepts reports whether a block of n samples keeps the phase invariants.
func (p *PhaseTracker) Accepts(n int) bool { return validBlock(n, p.size) }

// Reset rewinds the tracker to phase zero.
func (p *PhaseTracker) Reset() {
	p.write = 0
	p.blocks = 0
}
