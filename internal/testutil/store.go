package testutil

import (
	"errors"
	"sync"
	"time"

	"cemetery-go/internal/cemetery"
	"cemetery-go/internal/store"
)

// ErrInjected is returned by FlakyStore operations that were told to fail.
var ErrInjected = errors.New("injected failure")

// NewTestStore creates an empty in-memory document store whose
// modification times come from clock.
func NewTestStore(clock cemetery.Clock) *store.MemoryStore {
	return store.NewMemoryStore(clock)
}

// FlakyStore wraps a Store and fails reads or writes on demand.
type FlakyStore struct {
	cemetery.Store

	mu        sync.Mutex
	failRead  bool
	failWrite bool
	failNames map[string]bool
	writes    int
}

func NewFlakyStore(inner cemetery.Store) *FlakyStore {
	return &FlakyStore{Store: inner}
}

// FailReads makes every subsequent Read and ModTime fail.
func (s *FlakyStore) FailReads(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failRead = fail
}

// FailWrites makes every subsequent Write fail.
func (s *FlakyStore) FailWrites(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWrite = fail
}

// FailWritesTo makes every subsequent Write of the named document fail.
func (s *FlakyStore) FailWritesTo(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNames == nil {
		s.failNames = make(map[string]bool)
	}
	s.failNames[name] = true
}

// Writes returns the number of successful writes.
func (s *FlakyStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *FlakyStore) Read(name string) ([]byte, error) {
	s.mu.Lock()
	fail := s.failRead
	s.mu.Unlock()
	if fail {
		return nil, ErrInjected
	}
	return s.Store.Read(name)
}

func (s *FlakyStore) Write(name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrite || s.failNames[name] {
		return ErrInjected
	}
	if err := s.Store.Write(name, data); err != nil {
		return err
	}
	s.writes++
	return nil
}

func (s *FlakyStore) ModTime(name string) (time.Time, error) {
	s.mu.Lock()
	fail := s.failRead
	s.mu.Unlock()
	if fail {
		return time.Time{}, ErrInjected
	}
	return s.Store.ModTime(name)
}

var _ cemetery.Store = (*FlakyStore)(nil)
