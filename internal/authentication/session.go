/*
Package authentication implements the device side of pairing and packet decryption.

A peer pairs by sending its compressed P-256 public key. The device answers with a fresh
compressed public key of its own, and both sides derive a 32-byte AES-256-GCM key from the ECDH
shared secret using HKDF-SHA-256 with an empty salt and the info string "toothpaste". Subsequent
packets are sealed with AES-256-GCM without associated data.

The symmetric key and the peer's public key are persisted in a [store.Store] so that pairing
survives restarts. Private scalars are ephemeral and never stored.
*/
package authentication

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/chaz8081/gostt-kbd/internal/log"
	"github.com/chaz8081/gostt-kbd/pkg/store"
)

var logger = log.New("crypto")

// Session holds the device's pairing state. It is safe for concurrent use.
type Session struct {
	lock    sync.Mutex
	store   store.Store
	rng     io.Reader
	key     []byte
	peerKey []byte
}

// NewSession loads any persisted key material from st. Missing or malformed material leaves the
// session without a key; only an unusable random source is an error. A nil rng selects
// crypto/rand.
func NewSession(st store.Store, rng io.Reader) (*Session, error) {
	if rng == nil {
		rng = rand.Reader
	}
	var sample [16]byte
	if _, err := io.ReadFull(rng, sample[:]); err != nil {
		return nil, newError(errCodeRandomSource, err.Error())
	}

	s := &Session{store: st, rng: rng}
	s.key = s.load(store.KeySymmetricKey, KeySize)
	s.peerKey = s.load(store.KeyPeerPublicKey, CompressedPublicKeySize)
	if s.key != nil {
		logger.Info("loaded persisted session key")
	} else {
		logger.Info("no persisted session key")
	}
	return s, nil
}

func (s *Session) load(key string, size int) []byte {
	value, err := s.store.Get(key)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		logger.Warning("failed to read %s: %s", key, err)
		return nil
	}
	if len(value) != size {
		logger.Warning("ignoring %s with length %d (expected %d)", key, len(value), size)
		clear(value)
		return nil
	}
	return value
}

// Pair performs the device side of a key exchange with a peer whose compressed public key is
// peerCompressed, and returns the device's own compressed public key. On success the derived key
// replaces any previous key. On failure the session is unchanged and the error matches
// ErrPairingFailed.
//
// Failing to persist the new key is logged but not returned; the key remains usable until restart.
func (s *Session) Pair(peerCompressed []byte) ([]byte, error) {
	peer, err := ParseCompressedPublicKey(peerCompressed)
	if err != nil {
		return nil, newError(errCodePairingFailed, err.Error())
	}
	local, err := GenerateKeyPair(s.rng)
	if err != nil {
		return nil, newError(errCodePairingFailed, fmt.Sprintf("key generation: %s", err))
	}
	ownPublic := CompressPublicKey(local.PublicKey())
	key, err := DeriveKey(local, peer)
	if err != nil {
		return nil, newError(errCodePairingFailed, fmt.Sprintf("key agreement: %s", err))
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	clear(s.key)
	clear(s.peerKey)
	s.key = key
	s.peerKey = bytes.Clone(peerCompressed)

	if err := s.persist(); err != nil {
		logger.Warning("paired, but key material was not persisted: %s", err)
	} else {
		logger.Info("paired with new peer")
	}
	return ownPublic, nil
}

// persist saves the peer key before the symmetric key. Stores such as the OS keyring make each Set
// durable on its own, so if the symmetric key cannot be saved both entries are erased rather than
// leaving a new peer key beside an old symmetric key.
func (s *Session) persist() error {
	err := s.store.Set(store.KeyPeerPublicKey, s.peerKey)
	if err == nil {
		err = s.store.Set(store.KeySymmetricKey, s.key)
	}
	if err != nil {
		s.discardPersisted()
		return err
	}
	return s.store.Commit()
}

func (s *Session) discardPersisted() {
	errs := []error{
		s.store.Erase(store.KeySymmetricKey),
		s.store.Erase(store.KeyPeerPublicKey),
		s.store.Commit(),
	}
	if err := errors.Join(errs...); err != nil {
		logger.Warning("failed to discard partially persisted key material: %s", err)
	}
}

// Decrypt authenticates and decrypts ciphertext. It returns ErrNoKey if the session has not been
// paired, and ErrAuthenticationFailed for any failure to verify. No plaintext is returned on
// failure.
func (s *Session) Decrypt(iv, tag, ciphertext []byte) ([]byte, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.key == nil {
		return nil, ErrNoKey
	}
	return open(s.key, iv, tag, ciphertext)
}

// Erase zeroes the in-memory key material and removes the symmetric key, peer public key and mute
// configuration from the store. It is idempotent. Memory is always cleared; store failures are
// reported afterwards as ErrPersistenceFailed.
func (s *Session) Erase() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	clear(s.key)
	clear(s.peerKey)
	s.key = nil
	s.peerKey = nil

	var errs []error
	for _, key := range []string{store.KeySymmetricKey, store.KeyPeerPublicKey, store.KeyMuteConfig} {
		if err := s.store.Erase(key); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.store.Commit(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		logger.Warning("failed to erase persisted key material: %s", err)
		return newError(errCodePersistenceFailed, err.Error())
	}
	logger.Info("key material erased")
	return nil
}

// HasKey reports whether a symmetric key is installed.
func (s *Session) HasKey() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.key != nil
}

// PeerPublicKey returns a copy of the paired peer's compressed public key, or nil.
func (s *Session) PeerPublicKey() []byte {
	s.lock.Lock()
	defer s.lock.Unlock()
	return bytes.Clone(s.peerKey)
}
