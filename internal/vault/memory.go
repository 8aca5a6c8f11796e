package vault

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"cemetery-go/internal/cemetery"
)

type memoryDocument struct {
	data    []byte
	version int64
}

// MemoryVault keeps archived documents in memory, making it useful for
// tests. This implementation is safe for concurrent use.
type MemoryVault struct {
	name      string
	documents map[string]memoryDocument // "hostID/name" -> document
	mu        sync.RWMutex
}

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:      name,
		documents: make(map[string]memoryDocument),
	}
}

func documentKey(hostID, name string) string {
	return hostID + "/" + name
}

func (m *MemoryVault) Name() string {
	return m.name
}

// PutDocument stores a named document for a host along with its version.
func (m *MemoryVault) PutDocument(hostID string, name string, r io.Reader, size int64, version int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.documents[documentKey(hostID, name)] = memoryDocument{data: data, version: version}
	return nil
}

// DocumentVersion returns 0 if the document has never been stored.
func (m *MemoryVault) DocumentVersion(hostID string, name string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.documents[documentKey(hostID, name)].version, nil
}

// GetDocument writes the stored document to w.
func (m *MemoryVault) GetDocument(hostID string, name string, w io.Writer) error {
	m.mu.RLock()
	doc, ok := m.documents[documentKey(hostID, name)]
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("document %q not found for host: %s", name, hostID)
	}
	if _, err := io.Copy(w, bytes.NewReader(doc.data)); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup() error {
	return nil
}

var _ cemetery.Vault = (*MemoryVault)(nil)
