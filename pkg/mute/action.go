// Package mute implements the configurable "mute" button that companion applications trigger over
// the encrypted channel.
package mute

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Kind identifies the type of a mute Action on the wire.
type Kind uint8

const (
	KindConsumerControl  Kind = 0
	KindKeyboardShortcut Kind = 1
	KindMacro            Kind = 2
)

// DefaultUsageID is the HID consumer control usage for Mute.
const DefaultUsageID uint16 = 0x00E2

const encodedSize = 3

var (
	ErrTooShort    = errors.New("mute: configuration too short")
	ErrUnsupported = errors.New("mute: macro actions are not supported")
	ErrUnknownKind = errors.New("mute: unknown action kind")
)

// Action is what the device does when asked to toggle mute. It is either a ConsumerControl or a
// KeyboardShortcut.
type Action interface {
	Kind() Kind
	// Encode returns the three-byte wire form.
	Encode() []byte
	String() string
}

// ConsumerControl presses a single consumer control usage.
type ConsumerControl struct {
	UsageID uint16
}

func (ConsumerControl) Kind() Kind { return KindConsumerControl }

func (c ConsumerControl) Encode() []byte {
	buf := []byte{byte(KindConsumerControl), 0, 0}
	binary.LittleEndian.PutUint16(buf[1:], c.UsageID)
	return buf
}

func (c ConsumerControl) String() string {
	return fmt.Sprintf("consumer control 0x%04X", c.UsageID)
}

// KeyboardShortcut presses a modifier and key together.
type KeyboardShortcut struct {
	Modifier uint8
	Keycode  uint8
}

func (KeyboardShortcut) Kind() Kind { return KindKeyboardShortcut }

func (k KeyboardShortcut) Encode() []byte {
	return []byte{byte(KindKeyboardShortcut), k.Modifier, k.Keycode}
}

func (k KeyboardShortcut) String() string {
	return fmt.Sprintf("shortcut mod=0x%02X key=0x%02X", k.Modifier, k.Keycode)
}

// Default returns the action used until one is configured.
func Default() Action {
	return ConsumerControl{UsageID: DefaultUsageID}
}

// Parse decodes a configuration payload: byte 0 is the Kind and bytes 1 and 2 hold either a
// little-endian usage ID or a modifier and keycode. Trailing bytes are ignored.
func Parse(payload []byte) (Action, error) {
	if len(payload) < 1 {
		return nil, ErrTooShort
	}
	switch Kind(payload[0]) {
	case KindConsumerControl:
		if len(payload) < encodedSize {
			return nil, ErrTooShort
		}
		return ConsumerControl{UsageID: binary.LittleEndian.Uint16(payload[1:])}, nil
	case KindKeyboardShortcut:
		if len(payload) < encodedSize {
			return nil, ErrTooShort
		}
		return KeyboardShortcut{Modifier: payload[1], Keycode: payload[2]}, nil
	case KindMacro:
		return nil, ErrUnsupported
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownKind, payload[0])
}
