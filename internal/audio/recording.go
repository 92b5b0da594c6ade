// SPDX-License-Identifier: MIT
package audio

import (
	"datawave/internal/analysis"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var (
	ErrRecording = errors.New("already recording")
	ErrBitDepth  = errors.New("bit depth must be 16, 24 or 32")
)

// RecordingFormat describes the WAV file a Recorder writes.
type RecordingFormat struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// Recorder writes interleaved float frames to a PCM WAV file. It runs on the
// monitor goroutine, never on the audio thread.
type Recorder struct {
	format RecordingFormat
	scale  float64

	mu          sync.Mutex
	isRecording int32
	outputFile  *os.File
	wavEncoder  *wav.Encoder
	sampleBuf   *audio.IntBuffer
	frames      int64
}

var _ analysis.SampleSink = (*Recorder)(nil)

// NewRecorder validates the format.
func NewRecorder(format RecordingFormat) (*Recorder, error) {
	switch format.BitDepth {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w, got %d", ErrBitDepth, format.BitDepth)
	}
	if format.Channels < 1 || format.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid recording format %+v", format)
	}
	return &Recorder{
		format: format,
		scale:  float64(int64(1)<<(format.BitDepth-1) - 1),
	}, nil
}

// RecordingPath returns a timestamped file name inside dir.
func RecordingPath(dir string, now time.Time) string {
	return filepath.Join(dir, "datawave_"+now.Format("20060102_150405")+".wav")
}

// StartRecording creates filename and starts accepting frames.
func (r *Recorder) StartRecording(filename string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if atomic.LoadInt32(&r.isRecording) == 1 {
		return ErrRecording
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	r.outputFile = file
	r.wavEncoder = wav.NewEncoder(file, r.format.SampleRate, r.format.BitDepth, r.format.Channels, 1)
	r.sampleBuf = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: r.format.Channels,
			SampleRate:  r.format.SampleRate,
		},
		SourceBitDepth: r.format.BitDepth,
	}
	r.frames = 0
	atomic.StoreInt32(&r.isRecording, 1)
	return nil
}

// WriteFrames converts and appends interleaved samples. Samples outside
// [-1, 1] are clipped. Calls while not recording are ignored.
func (r *Recorder) WriteFrames(interleaved []float32) error {
	if atomic.LoadInt32(&r.isRecording) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.wavEncoder == nil {
		return nil
	}

	if cap(r.sampleBuf.Data) < len(interleaved) {
		r.sampleBuf.Data = make([]int, len(interleaved))
	}
	data := r.sampleBuf.Data[:len(interleaved)]
	for i, v := range interleaved {
		data[i] = int(min(max(float64(v), -1), 1) * r.scale)
	}
	r.sampleBuf.Data = data

	if err := r.wavEncoder.Write(r.sampleBuf); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	r.frames += int64(len(interleaved) / r.format.Channels)
	return nil
}

// StopRecording finalizes the header and closes the file.
func (r *Recorder) StopRecording() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if atomic.LoadInt32(&r.isRecording) == 0 {
		return nil
	}
	atomic.StoreInt32(&r.isRecording, 0)

	var errs []error
	if r.wavEncoder != nil {
		errs = append(errs, r.wavEncoder.Close())
		r.wavEncoder = nil
	}
	if r.outputFile != nil {
		errs = append(errs, r.outputFile.Close())
		r.outputFile = nil
	}
	return errors.Join(errs...)
}

// Recording reports whether frames are currently being written.
func (r *Recorder) Recording() bool { return atomic.LoadInt32(&r.isRecording) == 1 }

// Frames returns the number of frames written to the current or last file.
func (r *Recorder) Frames() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Close stops any recording in progress.
func (r *Recorder) Close() error { return r.StopRecording() }
