package cemetery

import (
	"errors"
	"fmt"
)

// Error kinds. Callers classify failures with errors.Is.
var (
	ErrIO            = errors.New("io error")
	ErrParse         = errors.New("parse error")
	ErrNetwork       = errors.New("network error")
	ErrDataIntegrity = errors.New("data integrity error")
)

// StorageError reports a failed store read or write. It matches ErrIO.
type StorageError struct {
	Op       string // "read", "write" or "stat"
	Document string
	Err      error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Document, e.Err)
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrIO, e.Err}
}

// ScanError reports an aborted scan. The registry is unchanged when it is returned.
type ScanError struct {
	Source string
	Err    error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan of %s failed: %v", e.Source, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

func parseError(document string, err error) error {
	return fmt.Errorf("%w: decoding %s: %w", ErrParse, document, err)
}
