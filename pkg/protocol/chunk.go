package protocol

import "unicode/utf8"

// MaxPayloadBytes is the largest text chunk that fits in one write once KeyboardPacket,
// EncryptedData and DataPacket framing plus the GCM tag are added to a 253-byte ATT payload.
const MaxPayloadBytes = 213

// ChunkText splits text into pieces of at most maxBytes bytes. It prefers to split after a space
// and never splits a UTF-8 sequence. Concatenating the chunks yields text. Returns nil for empty
// text.
func ChunkText(text string, maxBytes int) []string {
	if len(text) == 0 || maxBytes <= 0 {
		return nil
	}

	var chunks []string
	for len(text) > maxBytes {
		split := maxBytes
		for split > 0 && !utf8.RuneStart(text[split]) {
			split--
		}
		for i := split; i > 0; i-- {
			if text[i-1] == ' ' {
				split = i
				break
			}
		}
		if split == 0 {
			// A single rune wider than maxBytes; emit it whole rather than loop forever.
			_, size := utf8.DecodeRuneInString(text)
			split = size
		}
		chunks = append(chunks, text[:split])
		text = text[split:]
	}
	return append(chunks, text)
}
