// SPDX-License-Identifier: MIT
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

var ErrFormat = errors.New("unsupported audio file format")

// wavFormatFloat is the WAVE_FORMAT_IEEE_FLOAT format tag.
const wavFormatFloat = 3

// Clip is decoded audio held as one float32 slice per channel.
type Clip struct {
	SampleRate int
	Data       [][]float32
}

// NewClip allocates a silent clip.
func NewClip(sampleRate, channels, frames int) *Clip {
	c := &Clip{SampleRate: sampleRate, Data: make([][]float32, channels)}
	for i := range c.Data {
		c.Data[i] = make([]float32, frames)
	}
	return c
}

// Channels returns the number of channels.
func (c *Clip) Channels() int { return len(c.Data) }

// Frames returns the length of the clip in frames.
func (c *Clip) Frames() int {
	if len(c.Data) == 0 {
		return 0
	}
	return len(c.Data[0])
}

// Interleaved returns the samples frame by frame.
func (c *Clip) Interleaved() []float32 {
	ch := c.Channels()
	out := make([]float32, c.Frames()*ch)
	for f := range c.Frames() {
		for i := range ch {
			out[f*ch+i] = c.Data[i][f]
		}
	}
	return out
}

// Remix returns a clip with exactly channels channels. Extra source
// channels are averaged into the result; missing ones repeat the last source
// channel.
func (c *Clip) Remix(channels int) *Clip {
	if channels == c.Channels() {
		return c
	}
	out := NewClip(c.SampleRate, channels, c.Frames())
	if channels == 1 {
		for _, src := range c.Data {
			for f, v := range src {
				out.Data[0][f] += v / float32(len(c.Data))
			}
		}
		return out
	}
	for i := range channels {
		copy(out.Data[i], c.Data[min(i, len(c.Data)-1)])
	}
	return out
}

func deinterleave(samples []float32, channels, sampleRate int) *Clip {
	frames := len(samples) / channels
	c := NewClip(sampleRate, channels, frames)
	for f := range frames {
		for i := range channels {
			c.Data[i][f] = samples[f*channels+i]
		}
	}
	return c
}

// ReadFile decodes a WAV, MP3 or Ogg Vorbis file, chosen by extension.
func ReadFile(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return DecodeWAV(f)
	case ".mp3":
		return DecodeMP3(f)
	case ".ogg", ".oga":
		return DecodeOgg(f)
	}
	return nil, fmt.Errorf("%w: %s", ErrFormat, path)
}

// DecodeWAV reads an integer PCM or 32-bit IEEE float WAV stream.
func DecodeWAV(r io.ReadSeeker) (*Clip, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%w: invalid wav", ErrFormat)
	}
	if d.WavAudioFormat == wavFormatFloat && d.BitDepth != 32 {
		return nil, fmt.Errorf("%w: %d-bit float wav", ErrFormat, d.BitDepth)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	channels := buf.Format.NumChannels
	if channels < 1 {
		return nil, fmt.Errorf("%w: wav without channels", ErrFormat)
	}
	bits := int(d.BitDepth)
	if bits == 0 {
		bits = buf.SourceBitDepth
	}
	if d.WavAudioFormat == wavFormatFloat {
		// The decoder hands back the raw IEEE 754 bit patterns as integers.
		samples := make([]float32, len(buf.Data))
		for i, v := range buf.Data {
			samples[i] = math.Float32frombits(uint32(int32(v)))
		}
		return deinterleave(samples, channels, buf.Format.SampleRate), nil
	}
	if bits < 8 || bits > 32 {
		return nil, fmt.Errorf("%w: %d-bit wav", ErrFormat, bits)
	}
	scale := 1 / float32(int64(1)<<(bits-1))

	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		if bits == 8 {
			// 8-bit WAV is unsigned.
			v -= 128
		}
		samples[i] = float32(v) * scale
	}
	return deinterleave(samples, channels, buf.Format.SampleRate), nil
}

// DecodeMP3 reads an MP3 stream. The decoder always produces 16-bit stereo.
func DecodeMP3(r io.Reader) (*Clip, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}
	raw, err := io.ReadAll(d)
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}

	pcm := make([]int16, len(raw)/2)
	if err := binary.Read(bytes.NewReader(raw[:len(pcm)*2]), binary.LittleEndian, pcm); err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}
	samples := make([]float32, len(pcm))
	for i, v := range pcm {
		samples[i] = float32(v) / 32768
	}
	if len(samples) < 2 {
		return nil, fmt.Errorf("%w: empty mp3", ErrFormat)
	}
	return deinterleave(samples, 2, d.SampleRate()), nil
}

// DecodeOgg reads an Ogg Vorbis stream.
func DecodeOgg(r io.Reader) (*Clip, error) {
	samples, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decode ogg: %w", err)
	}
	if format.Channels < 1 || len(samples) == 0 {
		return nil, fmt.Errorf("%w: empty ogg", ErrFormat)
	}
	return deinterleave(samples, format.Channels, format.SampleRate), nil
}

// WriteWAV writes clip to path as PCM with the given bit depth.
func WriteWAV(path string, clip *Clip, bitDepth int) error {
	rec, err := NewRecorder(RecordingFormat{
		SampleRate: clip.SampleRate,
		Channels:   clip.Channels(),
		BitDepth:   bitDepth,
	})
	if err != nil {
		return err
	}
	if err := rec.StartRecording(path); err != nil {
		return err
	}
	if err := rec.WriteFrames(clip.Interleaved()); err != nil {
		rec.StopRecording()
		return err
	}
	return rec.StopRecording()
}
