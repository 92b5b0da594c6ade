// SPDX-License-Identifier: MIT
package analysis

import (
	"datawave/pkg/bitint"
	"sync/atomic"
)

// Tap is a lock-free single-producer, single-consumer sample ring. The audio
// callback writes into it and the monitor goroutine drains it. Writes never
// block and are all or nothing: a write that does not fit is dropped whole
// and counted, so interleaved frames stay aligned.
//
// Thread assignment:
//   - Write: producer (audio callback) only
//   - Read, Available: consumer (monitor) only
type Tap struct {
	// Separate cache lines so producer and consumer do not share one.
	writePos atomic.Uint64
	_pad1    [56]byte
	readPos  atomic.Uint64
	_pad2    [56]byte

	dropped atomic.Uint64
	buf     []float32
	mask    uint64
}

// NewTap creates a tap with capacity rounded up to the next power of two.
func NewTap(minSize int) *Tap {
	size := bitint.NextPowerOfTwo(max(minSize, 1))
	return &Tap{
		buf:  make([]float32, size),
		mask: uint64(size - 1),
	}
}

// Write copies p into the tap and reports whether it fit.
func (t *Tap) Write(p []float32) bool {
	w := t.writePos.Load()
	r := t.readPos.Load()

	n := uint64(len(p))
	if n > uint64(len(t.buf))-(w-r) {
		t.dropped.Add(1)
		return false
	}
	if n == 0 {
		return true
	}

	pos := w & t.mask
	// Copy in one or two segments depending on wrap-around.
	first := uint64(len(t.buf)) - pos
	if first >= n {
		copy(t.buf[pos:pos+n], p[:n])
	} else {
		copy(t.buf[pos:], p[:first])
		copy(t.buf[:n-first], p[first:n])
	}

	t.writePos.Store(w + n)
	return true
}

// Read copies up to len(p) samples out of the tap and returns the count.
func (t *Tap) Read(p []float32) int {
	r := t.readPos.Load()
	w := t.writePos.Load()

	n := min(uint64(len(p)), w-r)
	if n == 0 {
		return 0
	}

	pos := r & t.mask
	first := uint64(len(t.buf)) - pos
	if first >= n {
		copy(p[:n], t.buf[pos:pos+n])
	} else {
		copy(p[:first], t.buf[pos:])
		copy(p[first:n], t.buf[:n-first])
	}

	t.readPos.Store(r + n)
	return int(n)
}

// Available returns the number of samples waiting to be read.
func (t *Tap) Available() int {
	return int(t.writePos.Load() - t.readPos.Load())
}

// Dropped returns the number of writes discarded because the tap was full.
func (t *Tap) Dropped() uint64 {
	return t.dropped.Load()
}

// Cap returns the tap capacity in samples.
func (t *Tap) Cap() int {
	return len(t.buf)
}
