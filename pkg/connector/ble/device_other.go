//go:build !linux

package ble

import (
	"errors"

	"github.com/go-ble/ble"
)

func NewDevice(_ int) (ble.Device, error) {
	return nil, errors.New("ble: not supported on this platform")
}
