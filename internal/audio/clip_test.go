// SPDX-License-Identifier: MIT
package audio

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func TestClipRemix(t *testing.T) {
	stereo := NewClip(testSampleRate, 2, 3)
	copy(stereo.Data[0], []float32{1, 0, -1})
	copy(stereo.Data[1], []float32{0, 1, -1})

	mono := stereo.Remix(1)
	want := []float32{0.5, 0.5, -1}
	for i, v := range want {
		if mono.Data[0][i] != v {
			t.Errorf("mono[%d] = %v, want %v", i, mono.Data[0][i], v)
		}
	}

	up := mono.Remix(2)
	for i := range want {
		if up.Data[0][i] != up.Data[1][i] {
			t.Errorf("upmix frame %d differs between channels", i)
		}
	}
	if stereo.Remix(2) != stereo {
		t.Error("Remix to the same layout should return the clip itself")
	}
}

func TestClipInterleaved(t *testing.T) {
	c := NewClip(testSampleRate, 2, 2)
	copy(c.Data[0], []float32{1, 2})
	copy(c.Data[1], []float32{-1, -2})
	got := c.Interleaved()
	want := []float32{1, -1, 2, -2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Interleaved() = %v, want %v", got, want)
		}
	}
	back := deinterleave(got, 2, testSampleRate)
	if back.Data[1][1] != -2 {
		t.Errorf("deinterleave mismatch: %v", back.Data)
	}
}

func TestReadFileErrors(t *testing.T) {
	dir := t.TempDir()
	garbage := []byte("definitely not audio data")

	tests := []struct {
		name string
		want error
	}{
		{"clip.flac", ErrFormat},
		{"clip.wav", ErrFormat},
		{"clip.mp3", nil},
		{"clip.ogg", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			if err := os.WriteFile(path, garbage, 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := ReadFile(path)
			if err == nil {
				t.Fatal("ReadFile() error = nil for garbage input")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("ReadFile() error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := ReadFile(filepath.Join(dir, "missing.wav")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ReadFile(missing) error = %v, want not exist", err)
	}
}

func TestDecodeOggRejectsGarbage(t *testing.T) {
	if _, err := DecodeOgg(bytes.NewReader([]byte("OggS"))); err == nil {
		t.Error("DecodeOgg() accepted a truncated stream")
	}
}

// writeWAVFile encodes raw sample words with the given format tag.
func writeWAVFile(t *testing.T, bits, format int, words []int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, testSampleRate, bits, 2, format)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: testSampleRate},
		Data:           words,
		SourceBitDepth: bits,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDecodeFloatWAV(t *testing.T) {
	want := []float32{0.25, -0.5, 0.75, -1, 0.125, 0}
	words := make([]int, len(want))
	for i, v := range want {
		words[i] = int(int32(math.Float32bits(v)))
	}

	clip, err := ReadFile(writeWAVFile(t, 32, wavFormatFloat, words))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if clip.Channels() != 2 || clip.Frames() != 3 || clip.SampleRate != testSampleRate {
		t.Fatalf("clip = %d ch x %d frames @ %d", clip.Channels(), clip.Frames(), clip.SampleRate)
	}
	for i, v := range clip.Interleaved() {
		if v != want[i] {
			t.Errorf("sample %d = %v, want %v", i, v, want[i])
		}
	}
}

func TestDecodeFloatWAVRejectsDepth(t *testing.T) {
	path := writeWAVFile(t, 16, wavFormatFloat, []int{1, 2, 3, 4})
	if _, err := ReadFile(path); !errors.Is(err, ErrFormat) {
		t.Errorf("ReadFile(16-bit float) error = %v, want ErrFormat", err)
	}
}
