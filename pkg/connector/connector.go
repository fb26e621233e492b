// Package connector defines how the companion reaches a keyboard. Subpackages implement it over
// BLE (ble) and WebSockets (ws).
package connector

import (
	"context"
	"errors"
)

// BufferSize is the number of inbound notifications that can be queued.
const BufferSize = 5

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("connector: connection closed")

// Connector sends raw writes to a keyboard and receives its notifications.
type Connector interface {
	// Receive returns a read-only channel of notifications sent by the keyboard. The channel is
	// closed when the link drops.
	//
	// Implementations must be thread safe.
	Receive() <-chan []byte

	// Send delivers buffer as a single write. The keyboard never acknowledges writes; a nil error
	// only means the link accepted the buffer.
	//
	// Implementations must be thread safe.
	Send(ctx context.Context, buffer []byte) error

	// Close terminates the connection. Repeated calls must be idempotent.
	Close()
}
