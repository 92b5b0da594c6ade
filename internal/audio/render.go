// SPDX-License-Identifier: MIT
package audio

import (
	"datawave/internal/engine"
	"fmt"
)

// RenderOptions controls offline rendering.
type RenderOptions struct {
	// Align drops the engine latency from the head of the output and flushes
	// the tail, so sample i of the result corresponds to sample i of the input.
	Align bool
}

// Render runs clip through eng block by block, exactly as the live host
// would, and returns the output. The clip is remixed to the engine's channel
// count. The engine is reset first.
func Render(eng *engine.Engine, clip *Clip, opts RenderOptions) (*Clip, error) {
	eo := eng.Options()
	src := clip.Remix(eo.Channels)
	block := eo.FramesPerBuffer
	latency := eng.Latency()

	total := src.Frames()
	if opts.Align {
		total += latency
	}
	blocks := (total + block - 1) / block

	eng.Reset()
	out := NewClip(src.SampleRate, eo.Channels, blocks*block)
	in := make([][]float32, eo.Channels)
	zero := make([]float32, block)
	dst := make([][]float32, eo.Channels)

	for b := range blocks {
		start := b * block
		for c := range in {
			in[c] = zero
			if start+block <= src.Frames() {
				in[c] = src.Data[c][start : start+block]
			} else if start < src.Frames() {
				// Last partial block, padded with silence.
				in[c] = make([]float32, block)
				copy(in[c], src.Data[c][start:])
			}
			dst[c] = out.Data[c][start : start+block]
		}
		if err := eng.Process(in, dst); err != nil {
			return nil, fmt.Errorf("render block %d: %w", b, err)
		}
	}

	if opts.Align {
		for c := range out.Data {
			out.Data[c] = out.Data[c][latency : latency+src.Frames()]
		}
	}
	return out, nil
}

// Probe renders frames of silence through eng. With a transfer.Delta stage
// the output is the encoding impulse scaled by the output gain, repeating
// once per block: the codec's round-trip response.
func Probe(eng *engine.Engine, sampleRate, frames int) (*Clip, error) {
	silent := NewClip(sampleRate, eng.Options().Channels, frames)
	return Render(eng, silent, RenderOptions{})
}
