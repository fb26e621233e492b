package store

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"

	"github.com/99designs/keyring"
)

// Keyring is a Store whose values live in an OS credential store. Each key is saved as its own
// item named "gostt_kbd.<key>". The credential store persists on every Set, so Commit is a no-op.
type Keyring struct {
	ring keyring.Keyring
}

// NewKeyring wraps an open keyring.
func NewKeyring(ring keyring.Keyring) *Keyring {
	return &Keyring{ring: ring}
}

// OpenKeyring opens a keyring using config and wraps it.
func OpenKeyring(config keyring.Config) (*Keyring, error) {
	ring, err := keyring.Open(config)
	if err != nil {
		return nil, err
	}
	return NewKeyring(ring), nil
}

func itemName(key string) string {
	return Namespace + "." + key
}

func (k *Keyring) Get(key string) ([]byte, error) {
	item, err := k.ring.Get(itemName(key))
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not load %s: %w", key, err)
	}
	return bytes.Clone(item.Data), nil
}

func (k *Keyring) Set(key string, value []byte) error {
	err := k.ring.Set(keyring.Item{
		Key:         itemName(key),
		Data:        bytes.Clone(value),
		Label:       "gostt-kbd " + key,
		Description: "gostt-kbd pairing material",
	})
	if err != nil {
		return fmt.Errorf("failed to save %s in keyring: %w", key, err)
	}
	return nil
}

// Erase removes key. The file and pass backends report a missing item with the error from
// os.Remove rather than keyring.ErrKeyNotFound; both count as already erased.
func (k *Keyring) Erase(key string) error {
	err := k.ring.Remove(itemName(key))
	if err == nil || errors.Is(err, keyring.ErrKeyNotFound) || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to remove %s from keyring: %w", key, err)
}

func (k *Keyring) Commit() error {
	return nil
}
