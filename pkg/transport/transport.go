/*
Package transport defines the boundary between the encrypted command channel and the link that
carries it. A link delivers connection events and writes to a [Handler], and accepts notifications
through a [Peripheral].

Subpackages provide a BLE GATT peripheral (gatt) and a WebSocket development transport (ws).
*/
package transport

import (
	"context"
	"errors"
)

// MaxWriteLength is the largest write a transport delivers to its Handler. Larger writes are
// rejected by the transport.
const MaxWriteLength = 512

var (
	// ErrNotConnected is returned by Notify when no peer is connected.
	ErrNotConnected = errors.New("transport: no peer connected")
	// ErrBusy is returned to a second peer while one is connected.
	ErrBusy = errors.New("transport: a peer is already connected")
)

// Handler receives events from a transport. A transport delivers events for one connection at a
// time and never calls OnWrite outside OnConnect/OnDisconnect.
type Handler interface {
	OnConnect()
	OnDisconnect(reason error)
	// OnWrite delivers a single write. buf is only valid for the duration of the call.
	OnWrite(buf []byte)
}

// Peripheral sends notifications to the connected peer.
type Peripheral interface {
	// Notify sends buf to the connected peer. Implementations copy buf before returning.
	Notify(ctx context.Context, buf []byte) error
	// StartDiscoverable makes the device discoverable to new peers.
	StartDiscoverable(ctx context.Context) error
}

// Server is a Peripheral that also runs the link, delivering events to a Handler until ctx is
// done.
type Server interface {
	Peripheral
	Serve(ctx context.Context, h Handler) error
}
