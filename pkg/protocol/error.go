package protocol

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Decode and encode failures. All of them are recoverable: the receiver discards the offending
// packet and keeps the link up. Returned errors wrap one of these values, so test with errors.Is.
var (
	// ErrTruncated indicates a varint or length-delimited field runs past the end of the input.
	ErrTruncated = errors.New("protocol: truncated input")
	// ErrBadLength indicates a fixed-size field (iv, tag) is missing or has the wrong length.
	ErrBadLength = errors.New("protocol: bad field length")
	// ErrUnsupportedWireType indicates a field uses a wire type other than varint (0) or
	// length-delimited (2).
	ErrUnsupportedWireType = errors.New("protocol: unsupported wire type")
	// ErrBufferTooSmall indicates the destination cannot hold the encoded message.
	ErrBufferTooSmall = errors.New("protocol: destination buffer too small")
)

// IsDecodeError returns true if err was produced while decoding a malformed message.
func IsDecodeError(err error) bool {
	return errors.Is(err, ErrTruncated) ||
		errors.Is(err, ErrBadLength) ||
		errors.Is(err, ErrUnsupportedWireType)
}

func truncated(num protowire.Number) error {
	return fmt.Errorf("%w: field %d", ErrTruncated, num)
}

func badLength(name string, want, got int) error {
	return fmt.Errorf("%w: %s must be %d bytes, got %d", ErrBadLength, name, want, got)
}
