// SPDX-License-Identifier: MIT
package transport

import "errors"

var (
	ErrQueueFull = errors.New("transport: queue full, frame dropped")
	ErrClosed    = errors.New("transport: closed")
)

// Transport delivers monitor frames to an outside consumer. Implementations
// must be safe for concurrent use and must not block the caller for long.
type Transport interface {
	Send(data any) error
	Close() error
	Name() string
}

// Frame is one monitor update of the engine output.
type Frame struct {
	Type      string             `json:"type"`
	Seq       uint64             `json:"seq"`
	Timestamp int64              `json:"ts"`
	RMS       float64            `json:"rms"`
	PeakHz    float64            `json:"peak_hz"`
	Bands     map[string]float64 `json:"bands"`
}

// FrameType is the Type of every spectrum frame.
const FrameType = "spectrum"

// SendError names the transport that failed.
type SendError struct {
	Transport string
	Err       error
}

func (e *SendError) Error() string { return e.Transport + ": " + e.Err.Error() }

func (e *SendError) Unwrap() error { return e.Err }

// Fanout sends to every transport in order and reports each failure.
type Fanout []Transport

// Send returns the joined *SendError of every failing transport.
func (f Fanout) Send(data any) error {
	var errs []error
	for _, t := range f {
		if err := t.Send(data); err != nil {
			errs = append(errs, &SendError{Transport: t.Name(), Err: err})
		}
	}
	return errors.Join(errs...)
}

// Close closes every transport and joins the errors.
func (f Fanout) Close() error {
	var errs []error
	for _, t := range f {
		if err := t.Close(); err != nil {
			errs = append(errs, &SendError{Transport: t.Name(), Err: err})
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) Name() string { return "fanout" }

var _ Transport = Fanout(nil)
