// SPDX-License-Identifier: MIT

// Package transport publishes meter frames to clients outside the process.
package transport

import "sculptor/internal/monitor"

// Transport is a monitor sink that owns network resources.
// Implementations must be safe for concurrent use and Send must not block.
type Transport interface {
	Send(frame monitor.Frame) error
	Close() error
}
