package cemetery

import "time"

// Document names used inside a Store.
const (
	AssetIndexDocument        = "asset-index.json"
	TombstoneRegistryDocument = "tombstone-registry.json"
	ZombieAlertsDocument      = "zombie-alerts.json"
	ConfigDocument            = "cemetery.config.json"
)

// RegistryDocuments lists the documents owned by the registries, in the
// order they are archived.
var RegistryDocuments = []string{
	AssetIndexDocument,
	TombstoneRegistryDocument,
	ZombieAlertsDocument,
}

// Store persists whole named documents. Each registry owns one document
// and is its only writer.
type Store interface {
	// Read returns the document contents.
	// A missing document yields an error matching fs.ErrNotExist.
	Read(name string) ([]byte, error)

	// Write replaces the document. Readers observe either the previous or
	// the new contents, never a partial write.
	Write(name string, data []byte) error

	// ModTime returns when the document was last written.
	// A missing document yields an error matching fs.ErrNotExist.
	ModTime(name string) (time.Time, error)
}

// Ledger records mutating operations and their outcomes.
type Ledger interface {
	// CreateOperation starts a ledger entry and assigns it an increasing ID.
	CreateOperation(operation string, parameters string) (*Operation, error)

	// FinishOperation stamps the finish time and status. result is nil for
	// operations that are not scans.
	FinishOperation(id int64, status string, result *ScanResult) error

	// ListOperations returns the most recent entries, newest first.
	ListOperations(limit int) ([]*Operation, error)

	// MaxOperationID returns the highest ID recorded, or 0 when empty.
	MaxOperationID() (int64, error)

	Close() error
}
