package authentication

import (
	"crypto/ecdh"
	"crypto/elliptic"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// KeySize is the length of the AES-256 key derived from the shared secret.
	KeySize = 32
	// CompressedPublicKeySize is the length of a SEC1 compressed P-256 point.
	CompressedPublicKeySize = 33

	coordinateSize = 32
	kdfInfo        = "toothpaste"
)

// GenerateKeyPair returns a fresh P-256 key pair drawn from rng.
func GenerateKeyPair(rng io.Reader) (*ecdh.PrivateKey, error) {
	return ecdh.P256().GenerateKey(rng)
}

// CompressPublicKey returns the 33-byte SEC1 compressed encoding of pub.
func CompressPublicKey(pub *ecdh.PublicKey) []byte {
	// 0x04 || X || Y
	uncompressed := pub.Bytes()
	compressed := make([]byte, CompressedPublicKeySize)
	compressed[0] = 0x02 | (uncompressed[len(uncompressed)-1] & 1)
	copy(compressed[1:], uncompressed[1:1+coordinateSize])
	return compressed
}

// ParseCompressedPublicKey decodes a compressed point and checks that it lies on P-256.
func ParseCompressedPublicKey(compressed []byte) (*ecdh.PublicKey, error) {
	if len(compressed) != CompressedPublicKeySize {
		return nil, ErrInvalidPublicKey
	}
	x, y := elliptic.UnmarshalCompressed(elliptic.P256(), compressed)
	if x == nil {
		return nil, ErrInvalidPublicKey
	}
	uncompressed := make([]byte, 1+2*coordinateSize)
	uncompressed[0] = 0x04
	x.FillBytes(uncompressed[1 : 1+coordinateSize])
	y.FillBytes(uncompressed[1+coordinateSize:])
	pub, err := ecdh.P256().NewPublicKey(uncompressed)
	if err != nil {
		return nil, ErrInvalidPublicKey
	}
	return pub, nil
}

// DeriveKey computes the ECDH shared secret between local and remote and expands it with
// HKDF-SHA-256 (empty salt, info "toothpaste") into a KeySize-byte key. The intermediate
// shared secret is zeroed before returning.
func DeriveKey(local *ecdh.PrivateKey, remote *ecdh.PublicKey) ([]byte, error) {
	secret, err := local.ECDH(remote)
	if err != nil {
		return nil, err
	}
	defer clear(secret)

	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(kdfInfo)), key); err != nil {
		clear(key)
		return nil, err
	}
	return key, nil
}
