package store

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"cemetery-go/internal/cemetery"
)

// FileSystemStore keeps each document as a file in one directory:
//
//	<dir>/
//	  asset-index.json
//	  tombstone-registry.json
//	  zombie-alerts.json
//	  cemetery.config.json
//
// Writes go to a temp file in the same directory and are renamed into
// place, so a reader never sees a partially written document.
type FileSystemStore struct {
	dir string
}

// NewFileSystemStore opens the store at dir. The directory must already
// exist; it is never created implicitly.
func NewFileSystemStore(dir string) (*FileSystemStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("cemetery directory not set")
	}
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("cemetery directory not found: %s", dir)
		}
		return nil, fmt.Errorf("cemetery directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("cemetery path is not a directory: %s", dir)
	}
	return &FileSystemStore{dir: dir}, nil
}

// Dir returns the directory the store writes to.
func (s *FileSystemStore) Dir() string {
	return s.dir
}

func (s *FileSystemStore) path(name string) (string, error) {
	if name == "" || filepath.Base(name) != name || name == "." || name == ".." {
		return "", fmt.Errorf("invalid document name: %q", name)
	}
	return filepath.Join(s.dir, name), nil
}

// Read returns the contents of the named document.
func (s *FileSystemStore) Read(name string) ([]byte, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

// Write atomically replaces the named document.
func (s *FileSystemStore) Write(name string, data []byte) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tmpPath, p); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// ModTime returns the document's file modification time.
func (s *FileSystemStore) ModTime(name string) (time.Time, error) {
	p, err := s.path(name)
	if err != nil {
		return time.Time{}, err
	}
	info, err := os.Stat(p)
	if err != nil {
		return time.Time{}, err
	}
	if info.IsDir() {
		return time.Time{}, &fs.PathError{Op: "stat", Path: p, Err: fmt.Errorf("is a directory")}
	}
	return info.ModTime(), nil
}

var _ cemetery.Store = (*FileSystemStore)(nil)
