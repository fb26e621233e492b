package authentication

import (
	"crypto/aes"
	"crypto/cipher"
	"io"
)

const (
	// NonceSize is the length of the AES-GCM initialisation vector.
	NonceSize = 12
	// TagSize is the length of the AES-GCM authentication tag.
	TagSize = 16
)

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plaintext under key with a random IV and no associated data. The tag and
// ciphertext are returned separately, matching the layout of a DataPacket.
func Encrypt(key, plaintext []byte, rng io.Reader) (iv, ciphertext, tag []byte, err error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, nil, nil, err
	}
	iv = make([]byte, NonceSize)
	if _, err = io.ReadFull(rng, iv); err != nil {
		return nil, nil, nil, newError(errCodeRandomSource, err.Error())
	}
	sealed := gcm.Seal(nil, iv, plaintext, nil)
	length := len(plaintext)
	return iv, sealed[:length:length], sealed[length:], nil
}

// open authenticates and decrypts. Any failure, including malformed lengths, is reported as
// ErrAuthenticationFailed.
func open(key, iv, tag, ciphertext []byte) ([]byte, error) {
	if len(iv) != NonceSize || len(tag) != TagSize {
		return nil, ErrAuthenticationFailed
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)
	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}
