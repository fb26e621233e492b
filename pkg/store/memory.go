package store

import (
	"bytes"
	"sync"
)

// Memory is a Store that never touches disk. The zero value is ready to use.
type Memory struct {
	lock    sync.Mutex
	values  map[string][]byte
	commits int
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string][]byte)}
}

func (m *Memory) Get(key string) ([]byte, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	value, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(value), nil
}

func (m *Memory) Set(key string, value []byte) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.values == nil {
		m.values = make(map[string][]byte)
	}
	m.values[key] = bytes.Clone(value)
	return nil
}

func (m *Memory) Erase(key string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.values, key)
	return nil
}

func (m *Memory) Commit() error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.commits++
	return nil
}

// Commits returns the number of times Commit has been called.
func (m *Memory) Commits() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.commits
}
