package store

import (
	"fmt"
	"io/fs"
	"slices"
	"sync"
	"time"

	"cemetery-go/internal/cemetery"
)

type memoryDocument struct {
	data    []byte
	modTime time.Time
}

// MemoryStore keeps documents in memory. Useful for tests and for
// throwaway runs. This implementation is safe for concurrent use.
type MemoryStore struct {
	clock cemetery.Clock
	docs  map[string]memoryDocument
	mu    sync.RWMutex
}

// NewMemoryStore creates an empty store. Modification times come from clock.
func NewMemoryStore(clock cemetery.Clock) *MemoryStore {
	if clock == nil {
		clock = cemetery.RealClock{}
	}
	return &MemoryStore{clock: clock, docs: make(map[string]memoryDocument)}
}

func notExist(name string) error {
	return &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

// Read returns a copy of the named document.
func (m *MemoryStore) Read(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[name]
	if !ok {
		return nil, notExist(name)
	}
	return slices.Clone(doc.data), nil
}

// Write replaces the named document with a copy of data.
func (m *MemoryStore) Write(name string, data []byte) error {
	if name == "" {
		return fmt.Errorf("invalid document name: %q", name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.docs[name] = memoryDocument{data: slices.Clone(data), modTime: m.clock.Now()}
	return nil
}

// ModTime returns when the document was last written.
func (m *MemoryStore) ModTime(name string) (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[name]
	if !ok {
		return time.Time{}, notExist(name)
	}
	return doc.modTime, nil
}

var _ cemetery.Store = (*MemoryStore)(nil)
