package protocol

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// ResponseKind is the kind field of a ResponsePacket.
type ResponseKind uint32

const (
	ResponseKeepalive  ResponseKind = 0
	ResponsePeerStatus ResponseKind = 1
)

func (k ResponseKind) String() string {
	switch k {
	case ResponseKeepalive:
		return "Keepalive"
	case ResponsePeerStatus:
		return "PeerStatus"
	}
	return fmt.Sprintf("ResponseKind(%d)", uint32(k))
}

// PeerStatus tells the peer whether the device holds a key for it.
type PeerStatus uint32

const (
	PeerUnknown PeerStatus = 0
	PeerKnown   PeerStatus = 1
)

func (s PeerStatus) String() string {
	switch s {
	case PeerUnknown:
		return "Unknown"
	case PeerKnown:
		return "Known"
	}
	return fmt.Sprintf("PeerStatus(%d)", uint32(s))
}

// ResponsePacket is sent from the device to the peer as a notification.
//
// When decoded with DecodeResponsePacket, Payload borrows from the decoded buffer.
type ResponsePacket struct {
	Kind       ResponseKind
	PeerStatus PeerStatus
	Payload    []byte
}

// ResponsePacketSize returns the encoded length of a ResponsePacket.
func ResponsePacketSize(kind ResponseKind, status PeerStatus, payload []byte) int {
	size := protowire.SizeTag(1) + protowire.SizeVarint(uint64(kind)) +
		protowire.SizeTag(2) + protowire.SizeVarint(uint64(status))
	if len(payload) > 0 {
		size += protowire.SizeTag(3) + protowire.SizeBytes(len(payload))
	}
	return size
}

// AppendResponsePacket appends an encoded ResponsePacket to dst and returns the extended buffer.
//
// Fields are written in ascending order. The payload field is omitted when payload is empty.
func AppendResponsePacket(dst []byte, kind ResponseKind, status PeerStatus, payload []byte) []byte {
	dst = protowire.AppendTag(dst, 1, protowire.VarintType)
	dst = protowire.AppendVarint(dst, uint64(kind))
	dst = protowire.AppendTag(dst, 2, protowire.VarintType)
	dst = protowire.AppendVarint(dst, uint64(status))
	if len(payload) > 0 {
		dst = protowire.AppendTag(dst, 3, protowire.BytesType)
		dst = protowire.AppendBytes(dst, payload)
	}
	return dst
}

// EncodeResponsePacket writes an encoded ResponsePacket to the start of dst and returns the number
// of bytes written. It never grows dst; if dst is too short it returns ErrBufferTooSmall and dst
// is left untouched.
func EncodeResponsePacket(dst []byte, kind ResponseKind, status PeerStatus, payload []byte) (int, error) {
	size := ResponsePacketSize(kind, status, payload)
	if size > len(dst) {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrBufferTooSmall, size, len(dst))
	}
	return len(AppendResponsePacket(dst[:0], kind, status, payload)), nil
}

// DecodeResponsePacket decodes a ResponsePacket. The device never receives these; the companion
// client and tests do.
func DecodeResponsePacket(buf []byte) (*ResponsePacket, error) {
	var rsp ResponsePacket
	err := walkFields(buf, func(f *field) error {
		switch {
		case f.is(1, protowire.VarintType):
			rsp.Kind = ResponseKind(f.Varint)
		case f.is(2, protowire.VarintType):
			rsp.PeerStatus = PeerStatus(f.Varint)
		case f.is(3, protowire.BytesType):
			rsp.Payload = f.Bytes
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rsp, nil
}
