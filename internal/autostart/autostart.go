// Package autostart registers the cemetery to run a scan at login.
package autostart

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cemetery-go/internal/cemetery"
)

// AppName is the name shown in login-item lists.
const AppName = "Code Corpses"

// ErrUnsupported is returned on platforms without an autostart mechanism.
var ErrUnsupported = errors.New("autostart is not supported on this platform")

// FileEntry is a login item that exists as a single file, such as an XDG
// .desktop entry or a launchd agent plist.
type FileEntry struct {
	path    string
	content []byte
}

// NewFileEntry creates an entry that writes content to path when enabled.
func NewFileEntry(path string, content []byte) *FileEntry {
	return &FileEntry{path: path, content: content}
}

// Path returns the location of the entry file.
func (e *FileEntry) Path() string {
	return e.path
}

// Enable writes the entry, replacing any previous one.
func (e *FileEntry) Enable() error {
	if err := os.MkdirAll(filepath.Dir(e.path), 0755); err != nil {
		return fmt.Errorf("creating autostart directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(e.path), ".autostart-*")
	if err != nil {
		return fmt.Errorf("creating autostart entry: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(e.content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing autostart entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing autostart entry: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting autostart entry permissions: %w", err)
	}
	if err := os.Rename(tmpPath, e.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("installing autostart entry: %w", err)
	}
	return nil
}

// Disable removes the entry. Removing an absent entry is not an error.
func (e *FileEntry) Disable() error {
	if err := os.Remove(e.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing autostart entry: %w", err)
	}
	return nil
}

// Enabled reports whether the entry file exists.
func (e *FileEntry) Enabled() bool {
	_, err := os.Stat(e.path)
	return err == nil
}

type unsupported struct{}

func (unsupported) Enable() error  { return ErrUnsupported }
func (unsupported) Disable() error { return ErrUnsupported }

var (
	_ cemetery.Autostarter = (*FileEntry)(nil)
	_ cemetery.Autostarter = unsupported{}
)
