// SPDX-License-Identifier: MIT
package transport

import (
	"datawave/internal/log"

	"github.com/sirupsen/logrus"
)

// LoggingTransport writes frames to the debug log. It is the fallback when no
// network transport is enabled.
type LoggingTransport struct {
	entry *logrus.Entry
}

func NewLoggingTransport() *LoggingTransport {
	entry := log.With("component", "transport")
	entry.Info("using logging transport")
	return &LoggingTransport{entry: entry}
}

func (lt *LoggingTransport) Send(data any) error {
	if f, ok := data.(*Frame); ok {
		lt.entry.WithFields(logrus.Fields{
			"seq":     f.Seq,
			"rms":     f.RMS,
			"peak_hz": f.PeakHz,
		}).Debug("frame")
		return nil
	}
	lt.entry.Debugf("frame %+v", data)
	return nil
}

func (lt *LoggingTransport) Close() error { return nil }

func (lt *LoggingTransport) Name() string { return "log" }

var _ Transport = (*LoggingTransport)(nil)
