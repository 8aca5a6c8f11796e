package cemetery

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"
)

// readDocument reads name from store. A missing document is not an error:
// it returns ok == false.
func readDocument(store Store, name string) (data []byte, ok bool, err error) {
	data, err = store.Read(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &StorageError{Op: "read", Document: name, Err: err}
	}
	return data, true, nil
}

// writeDocument encodes v as indented JSON and replaces name in store.
func writeDocument(store Store, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	if err := store.Write(name, data); err != nil {
		return &StorageError{Op: "write", Document: name, Err: err}
	}
	return nil
}

// documentModTime returns the last write time of name, ok == false when it
// has never been written.
func documentModTime(store Store, name string) (t time.Time, ok bool, err error) {
	t, err = store.ModTime(name)
	if errors.Is(err, fs.ErrNotExist) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, &StorageError{Op: "stat", Document: name, Err: err}
	}
	return t, true, nil
}
