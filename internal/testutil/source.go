package testutil

import (
	"context"
	"sync"

	"cemetery-go/internal/cemetery"
)

// StubSource is a RepositorySource returning canned records.
type StubSource struct {
	mu      sync.Mutex
	records []*cemetery.RepositoryRecord
	err     error
	targets []cemetery.ScanTarget
}

func NewStubSource(records ...*cemetery.RepositoryRecord) *StubSource {
	return &StubSource{records: records}
}

// SetRecords replaces the records returned by the next listing.
func (s *StubSource) SetRecords(records ...*cemetery.RepositoryRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = records
}

// SetError makes every subsequent listing fail with err.
func (s *StubSource) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Targets returns every target the source was asked to list.
func (s *StubSource) Targets() []cemetery.ScanTarget {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]cemetery.ScanTarget(nil), s.targets...)
}

func (s *StubSource) Name(target cemetery.ScanTarget) string {
	return "stub " + target.Owner
}

func (s *StubSource) ListRepositories(ctx context.Context, target cemetery.ScanTarget) ([]*cemetery.RepositoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets = append(s.targets, target)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}
	return append([]*cemetery.RepositoryRecord(nil), s.records...), nil
}

var _ cemetery.RepositorySource = (*StubSource)(nil)
