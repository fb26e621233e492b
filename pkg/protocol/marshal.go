package protocol

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// The encoders below produce the messages the companion application sends. The device only
// decodes them, but keeping both directions in one package keeps field numbers in one place.

// MarshalKeyboardPacket encodes text as a KeyboardPacket. The declared length is len(message).
func MarshalKeyboardPacket(message []byte) []byte {
	buf := make([]byte, 0, protowire.SizeTag(1)+protowire.SizeBytes(len(message))+
		protowire.SizeTag(2)+protowire.SizeVarint(uint64(len(message))))
	buf = protowire.AppendTag(buf, 1, protowire.BytesType)
	buf = protowire.AppendBytes(buf, message)
	buf = protowire.AppendTag(buf, 2, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(len(message)))
	return buf
}

// MarshalEncryptedData wraps an encoded KeyboardPacket. The command kind is left at its default
// (CommandText) and therefore not written.
func MarshalEncryptedData(keyboardPacket []byte) []byte {
	buf := protowire.AppendTag(nil, 1, protowire.BytesType)
	return protowire.AppendBytes(buf, keyboardPacket)
}

// MarshalCommand encodes a non-text command as EncryptedData.
func MarshalCommand(kind CommandKind, payload []byte) []byte {
	buf := protowire.AppendTag(nil, 2, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(kind))
	if len(payload) > 0 {
		buf = protowire.AppendTag(buf, 3, protowire.BytesType)
		buf = protowire.AppendBytes(buf, payload)
	}
	return buf
}

// MarshalDataPacket encodes the outer envelope of an encrypted command.
func MarshalDataPacket(iv, tag, encrypted []byte, sequence uint32) ([]byte, error) {
	if len(iv) != IVLength {
		return nil, badLength("iv", IVLength, len(iv))
	}
	if len(tag) != TagLength {
		return nil, badLength("tag", TagLength, len(tag))
	}
	var buf []byte
	buf = protowire.AppendTag(buf, 1, protowire.BytesType)
	buf = protowire.AppendBytes(buf, iv)
	buf = protowire.AppendTag(buf, 2, protowire.BytesType)
	buf = protowire.AppendBytes(buf, tag)
	buf = protowire.AppendTag(buf, 3, protowire.BytesType)
	buf = protowire.AppendBytes(buf, encrypted)
	buf = protowire.AppendTag(buf, 4, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(sequence))
	return buf, nil
}
