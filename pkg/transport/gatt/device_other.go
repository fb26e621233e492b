//go:build !linux

package gatt

import (
	"errors"

	"github.com/go-ble/ble"
)

// ErrUnsupportedPlatform is returned by NewDevice on platforms without a BlueZ HCI socket.
var ErrUnsupportedPlatform = errors.New("gatt: peripheral mode requires linux")

func NewDevice(id int, events *Events) (ble.Device, error) {
	return nil, ErrUnsupportedPlatform
}
