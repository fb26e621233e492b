/*
Package protocol implements the wire format spoken between the companion application and the
keyboard device.

Messages use the protobuf wire grammar restricted to varint and length-delimited fields:

	DataPacket      1=iv (12 bytes)  2=tag (16 bytes)  3=encrypted payload  4=sequence number
	EncryptedData   1=keyboard packet  2=command kind  3=command payload
	KeyboardPacket  1=message  2=declared length
	ResponsePacket  1=kind  2=peer status  3=payload

A pairing request is not a framed message: it is the peer's raw 33-byte compressed P-256 public
key (see [IsPairingRequest]).

Decoders do not copy byte fields. Every []byte in a decoded value is a view into the buffer that
was passed to the decoder, so the buffer must not be modified or reused while the value is in use.
Use bytes.Clone to retain a field beyond that.
*/
package protocol

import (
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	// IVLength is the AES-GCM nonce length carried in a DataPacket.
	IVLength = 12
	// TagLength is the AES-GCM authentication tag length carried in a DataPacket.
	TagLength = 16
	// PublicKeyLength is the length of a compressed P-256 point.
	PublicKeyLength = 33
)

// CommandKind selects the meaning of an EncryptedData message.
type CommandKind = uint32

const (
	CommandText          CommandKind = 0
	CommandMuteToggle    CommandKind = 1
	CommandMuteConfigure CommandKind = 2
)

// DataPacket is the outer envelope of an encrypted command.
//
// EncryptedPayload borrows from the decoded buffer. SequenceNumber is advisory.
type DataPacket struct {
	IV               [IVLength]byte
	Tag              [TagLength]byte
	EncryptedPayload []byte
	SequenceNumber   uint32
}

// EncryptedData is the plaintext of a DataPacket.
//
// When CommandKind is CommandText, KeyboardPayload holds an encoded KeyboardPacket and
// HasKeyboardPayload reports whether field 1 was present at all. Otherwise CommandPayload holds
// command-specific bytes. Both slices borrow from the decoded buffer.
type EncryptedData struct {
	KeyboardPayload    []byte
	HasKeyboardPayload bool
	CommandKind        CommandKind
	CommandPayload     []byte
}

// KeyboardPacket carries text to type. DeclaredLength is informational; len(Message) is
// authoritative. Message borrows from the decoded buffer.
type KeyboardPacket struct {
	Message        []byte
	DeclaredLength uint32
}

// IsPairingRequest returns true if buf has the shape of a pairing request: exactly 33 bytes
// starting with a compressed-point prefix (0x02 or 0x03).
func IsPairingRequest(buf []byte) bool {
	return len(buf) == PublicKeyLength && (buf[0] == 0x02 || buf[0] == 0x03)
}

// DecodeDataPacket decodes a DataPacket. Both iv and tag must be present with their exact lengths.
func DecodeDataPacket(buf []byte) (*DataPacket, error) {
	var pkt DataPacket
	var haveIV, haveTag bool
	err := walkFields(buf, func(f *field) error {
		switch {
		case f.is(1, protowire.BytesType):
			if len(f.Bytes) != IVLength {
				return badLength("iv", IVLength, len(f.Bytes))
			}
			copy(pkt.IV[:], f.Bytes)
			haveIV = true
		case f.is(2, protowire.BytesType):
			if len(f.Bytes) != TagLength {
				return badLength("tag", TagLength, len(f.Bytes))
			}
			copy(pkt.Tag[:], f.Bytes)
			haveTag = true
		case f.is(3, protowire.BytesType):
			pkt.EncryptedPayload = f.Bytes
		case f.is(4, protowire.VarintType):
			pkt.SequenceNumber = uint32(f.Varint)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !haveIV {
		return nil, badLength("iv", IVLength, 0)
	}
	if !haveTag {
		return nil, badLength("tag", TagLength, 0)
	}
	return &pkt, nil
}

// DecodeEncryptedData decodes the plaintext wrapper of a DataPacket.
func DecodeEncryptedData(buf []byte) (*EncryptedData, error) {
	var data EncryptedData
	err := walkFields(buf, func(f *field) error {
		switch {
		case f.is(1, protowire.BytesType):
			data.KeyboardPayload = f.Bytes
			data.HasKeyboardPayload = true
		case f.is(2, protowire.VarintType):
			data.CommandKind = CommandKind(f.Varint)
		case f.is(3, protowire.BytesType):
			data.CommandPayload = f.Bytes
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &data, nil
}

// DecodeKeyboardPacket decodes a KeyboardPacket.
func DecodeKeyboardPacket(buf []byte) (*KeyboardPacket, error) {
	var pkt KeyboardPacket
	err := walkFields(buf, func(f *field) error {
		switch {
		case f.is(1, protowire.BytesType):
			pkt.Message = f.Bytes
		case f.is(2, protowire.VarintType):
			pkt.DeclaredLength = uint32(f.Varint)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &pkt, nil
}
