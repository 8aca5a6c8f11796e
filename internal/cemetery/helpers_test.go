package cemetery_test

import (
	"fmt"
	"testing"
	"time"

	"cemetery-go/internal/cemetery"
	"cemetery-go/internal/testutil"
)

// fixture bundles a memory store with the stubs most registry tests need.
type fixture struct {
	clock  *testutil.StubClock
	ids    *testutil.StubIDGenerator
	store  *testutil.FlakyStore
	source *testutil.StubSource
	logger *testutil.RecordingLogger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := testutil.FixedClock()
	return &fixture{
		clock:  clock,
		ids:    testutil.NewStubIDGenerator("alert"),
		store:  testutil.NewFlakyStore(testutil.NewTestStore(clock)),
		source: testutil.NewStubSource(),
		logger: &testutil.RecordingLogger{},
	}
}

func (f *fixture) tombstones() *cemetery.TombstoneRegistry {
	return cemetery.NewTombstoneRegistry(f.store, f.clock, f.logger)
}

func (f *fixture) assets() *cemetery.AssetRegistry {
	return cemetery.NewAssetRegistry(f.store, f.logger)
}

func (f *fixture) alerts() *cemetery.AlertEngine {
	return cemetery.NewAlertEngine(f.store, f.clock, f.ids, f.logger)
}

func (f *fixture) scanner() *cemetery.Scanner {
	return cemetery.NewScanner(f.source, f.tombstones(), f.assets(), f.clock, f.logger, 0)
}

func (f *fixture) service(t *testing.T) *cemetery.Service {
	t.Helper()
	db := testutil.NewTestDatabase(t, f.clock)
	return cemetery.NewService(f.store, f.store, f.source, db, f.logger, f.clock, f.ids, 0)
}

// writeRaw stores a document verbatim, bypassing the registries.
func (f *fixture) writeRaw(t *testing.T, name, data string) {
	t.Helper()
	if err := f.store.Write(name, []byte(data)); err != nil {
		t.Fatalf("Write(%s) error = %v", name, err)
	}
}

func tombstone(id string, diedAt time.Time) *cemetery.Tombstone {
	return &cemetery.Tombstone{
		ID:           id,
		Name:         "acme/" + id,
		CauseOfDeath: "No activity",
		Epitaph:      "gone",
		Tags:         []string{},
		OriginalPath: "https://github.com/acme/" + id,
		DiedAt:       diedAt,
	}
}

func repo(id string, updatedAt time.Time, stars int) *cemetery.RepositoryRecord {
	return &cemetery.RepositoryRecord{
		ID:              id,
		FullName:        fmt.Sprintf("acme/%s", id),
		UpdatedAt:       updatedAt,
		StargazersCount: stars,
		Language:        "Go",
		URL:             "https://github.com/acme/" + id,
	}
}

func alert(id, corpse string, notified bool, detected time.Time) *cemetery.ZombieAlert {
	return &cemetery.ZombieAlert{
		ID:               id,
		CorpseRepo:       corpse,
		CorpsePath:       "src/lib.go",
		ZombieRepo:       "acme/reborn",
		ZombiePath:       "pkg/lib.go",
		Similarity:       0.91,
		ResurrectionType: "copy",
		Confidence:       0.8,
		DetectedAt:       detected,
		Notified:         notified,
	}
}

func ids(tombstones []*cemetery.Tombstone) []string {
	out := make([]string, len(tombstones))
	for i, t := range tombstones {
		out[i] = t.ID
	}
	return out
}
