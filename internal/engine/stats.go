// SPDX-License-Identifier: MIT
package engine

import (
	"sync/atomic"
	"time"
)

// Stats is a snapshot of the engine's per-callback accounting.
type Stats struct {
	Blocks       uint64        // Blocks processed.
	Samples      uint64        // Frames processed per channel.
	Overruns     uint64        // Callbacks that took longer than one block period.
	Rejected     uint64        // Blocks refused for an unusable length.
	LastDuration time.Duration // Wall time of the most recent callback.
	MaxDuration  time.Duration // Longest callback so far.
}

// counters are written by the audio thread and read from anywhere.
type counters struct {
	blocks   atomic.Uint64
	samples  atomic.Uint64
	overruns atomic.Uint64
	rejected atomic.Uint64
	last     atomic.Int64
	max      atomic.Int64
}

func (c *counters) record(frames int, elapsed time.Duration, overrun bool) {
	c.blocks.Add(1)
	c.samples.Add(uint64(frames))
	if overrun {
		c.overruns.Add(1)
	}
	c.last.Store(int64(elapsed))
	if int64(elapsed) > c.max.Load() {
		c.max.Store(int64(elapsed))
	}
}

func (c *counters) snapshot() Stats {
	return Stats{
		Blocks:       c.blocks.Load(),
		Samples:      c.samples.Load(),
		Overruns:     c.overruns.Load(),
		Rejected:     c.rejected.Load(),
		LastDuration: time.Duration(c.last.Load()),
		MaxDuration:  time.Duration(c.max.Load()),
	}
}

// Observer receives per-callback notifications on the audio thread. Implementations
// must return quickly and must not allocate or block.
type Observer interface {
	BlockProcessed(out [][]float32, elapsed time.Duration, overrun bool)
	BlockRejected(err error)
}
