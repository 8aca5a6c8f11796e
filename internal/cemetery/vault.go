package cemetery

import "io"

// Vault stores off-host copies of the registry documents.
// All operations stream through io.Reader/io.Writer.
type Vault interface {
	// Name identifies the vault in logs and messages.
	Name() string

	// PutDocument stores a named document for a host.
	// size is the number of bytes that will be read from r.
	// version is stored alongside it; it is the ledger operation ID that produced it.
	PutDocument(hostID string, name string, r io.Reader, size int64, version int64) error

	// GetDocument writes a stored document for a host to w.
	GetDocument(hostID string, name string, w io.Writer) error

	// DocumentVersion returns the stored version for a host/document,
	// or 0 if nothing has been stored.
	DocumentVersion(hostID string, name string) (int64, error)

	// ValidateSetup verifies that the vault is reachable and writable.
	ValidateSetup() error
}
