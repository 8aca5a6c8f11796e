package cemetery

import "context"

// ScanTarget tells a RepositorySource what to list.
type ScanTarget struct {
	Owner string // organisation or user; ignored by local sources
	Token string // optional API token; ignored by local sources
}

// RepositorySource lists repository records for a scan.
// Implementations must return the complete list or an error; a scan never
// works from a partial listing.
type RepositorySource interface {
	// Name identifies the source in scan messages, e.g. "github:microsoft".
	Name(target ScanTarget) string

	ListRepositories(ctx context.Context, target ScanTarget) ([]*RepositoryRecord, error)
}

// Autostarter registers the host application to start at login.
// It is a platform side effect; the service never calls it.
type Autostarter interface {
	Enable() error
	Disable() error
}
