// SPDX-License-Identifier: MIT
package transport

import (
	"sculptor/internal/log"
	"sculptor/internal/monitor"
)

// LoggingTransport writes frames to the debug log. Useful in headless runs
// with no client attached.
type LoggingTransport struct {
	log   log.Logger
	every uint32
}

// NewLoggingTransport logs one frame out of every n (at least 1).
func NewLoggingTransport(every int) *LoggingTransport {
	lt := &LoggingTransport{
		log:   log.With("transport/log"),
		every: uint32(max(every, 1)),
	}
	lt.log.Infof("logging every %d frames", lt.every)
	return lt
}

// Send logs the frame if its sequence number is due.
func (lt *LoggingTransport) Send(f monitor.Frame) error {
	if f.Seq%lt.every != 0 {
		return nil
	}
	lt.log.Debugf("#%d L %.3f/%.3f R %.3f/%.3f pos %.2f clip %v",
		f.Seq, f.Left.Level, f.Left.Peak, f.Right.Level, f.Right.Peak,
		f.Placement.Position, f.Clipped)
	return nil
}

// Close is a no-op.
func (lt *LoggingTransport) Close() error {
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
