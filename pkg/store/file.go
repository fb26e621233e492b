package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// File is a Store backed by a single JSON document. Changes are staged in memory and written
// to disk atomically by Commit.
type File struct {
	filename string
	lock     sync.Mutex
	Values   map[string][]byte `json:"values"`
}

// OpenFile loads the store at filename. A missing file yields an empty store.
func OpenFile(filename string) (*File, error) {
	f := &File{filename: filename, Values: make(map[string][]byte)}
	file, err := os.Open(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if err := f.Import(file); err != nil {
		return nil, err
	}
	return f, nil
}

// Import replaces the staged contents of f with data previously written by Export.
func (f *File) Import(r io.Reader) error {
	var doc struct {
		Values map[string][]byte `json:"values"`
	}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return err
	}
	if doc.Values == nil {
		doc.Values = make(map[string][]byte)
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	f.Values = doc.Values
	return nil
}

// Export writes the staged contents of f to w.
func (f *File) Export(w io.Writer) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	return json.NewEncoder(w).Encode(f)
}

func (f *File) Get(key string) ([]byte, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	value, ok := f.Values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(value), nil
}

func (f *File) Set(key string, value []byte) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.Values[key] = bytes.Clone(value)
	return nil
}

func (f *File) Erase(key string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	delete(f.Values, key)
	return nil
}

// Commit writes the document to a temporary file and renames it over the old one.
func (f *File) Commit() error {
	var buf bytes.Buffer
	if err := f.Export(&buf); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.filename), filepath.Base(f.filename)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.filename)
}
