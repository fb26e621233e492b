package protocol

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// field is one decoded tag/value pair. Bytes is a view into the buffer passed to walkFields.
type field struct {
	Number protowire.Number
	Type   protowire.Type
	Varint uint64
	Bytes  []byte
}

// walkFields decodes buf as a sequence of fields and calls fn for each one in wire order.
//
// Only varint and length-delimited fields are accepted. Fields are not interpreted here, so
// callers silently skip numbers they do not recognize.
func walkFields(buf []byte, fn func(f *field) error) error {
	var f field
	for len(buf) > 0 {
		// The tag is read as a plain varint (rather than protowire.ConsumeTag) so that field number
		// zero is skipped like any other unknown field instead of being rejected.
		tag, n := consumeVarint(buf)
		if n < 0 {
			return fmt.Errorf("%w: tag", ErrTruncated)
		}
		buf = buf[n:]

		f = field{}
		f.Number, f.Type = protowire.DecodeTag(tag)
		switch f.Type {
		case protowire.VarintType:
			f.Varint, n = consumeVarint(buf)
		case protowire.BytesType:
			f.Bytes, n = consumeBytes(buf)
		default:
			return fmt.Errorf("%w: type %d on field %d", ErrUnsupportedWireType, f.Type, f.Number)
		}
		if n < 0 {
			return truncated(f.Number)
		}
		buf = buf[n:]

		if err := fn(&f); err != nil {
			return err
		}
	}
	return nil
}

// maxVarintLen is the longest varint accepted. Bits of the tenth byte beyond 64 are dropped.
const maxVarintLen = 10

// consumeVarint parses a varint from the start of b and returns it with its length. The length is
// negative if b ends first or the tenth byte has its continuation bit set.
func consumeVarint(b []byte) (uint64, int) {
	var v uint64
	for i := 0; i < maxVarintLen; i++ {
		if i >= len(b) {
			return 0, -1
		}
		v |= uint64(b[i]&0x7f) << (7 * i)
		if b[i] < 0x80 {
			return v, i + 1
		}
	}
	return 0, -1
}

// consumeBytes parses a length-prefixed value from the start of b.
func consumeBytes(b []byte) ([]byte, int) {
	m, n := consumeVarint(b)
	if n < 0 || m > uint64(len(b)-n) {
		return nil, -1
	}
	return b[n : n+int(m)], n + int(m)
}

func (f *field) is(num protowire.Number, typ protowire.Type) bool {
	return f.Number == num && f.Type == typ
}
