/*
Package store defines the small key/value contract the device uses for pairing material and
configuration, along with three backends:

  - [Memory] keeps values in RAM and is used by tests and ephemeral runs.
  - [File] keeps a JSON document on disk and only rewrites it on [File.Commit].
  - [Keyring] stores each value as an item in an OS credential store using [keyring].

Values written with Set are not guaranteed to survive a restart until Commit returns nil.
*/
package store

import "errors"

// Keys used by the device.
const (
	KeySymmetricKey  = "aes_key"
	KeyPeerPublicKey = "peer_pub"
	KeyMuteConfig    = "mute_cfg"
)

// Namespace prefixes every key in backends that share a flat namespace with other applications.
const Namespace = "gostt_kbd"

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("store: key not found")

// Store is a persistent key/value store.
type Store interface {
	// Get returns a copy of the value stored under key, or ErrNotFound.
	Get(key string) ([]byte, error)
	// Set stages value under key.
	Set(key string, value []byte) error
	// Erase removes key. Erasing an absent key is not an error.
	Erase(key string) error
	// Commit flushes staged changes to durable storage.
	Commit() error
}
