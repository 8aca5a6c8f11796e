package cemetery_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cemetery-go/internal/cemetery"
)

func TestIsZombie(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	tests := []struct {
		name    string
		updated time.Time
		stars   int
		want    bool
	}{
		{name: "200 days with stars", updated: now.Add(-200 * day), stars: 5, want: true},
		{name: "200 days without stars", updated: now.Add(-200 * day), stars: 0, want: false},
		{name: "exactly at threshold", updated: now.Add(-180 * day), stars: 5, want: false},
		{name: "just past threshold", updated: now.Add(-180*day - time.Second), stars: 1, want: true},
		{name: "recent", updated: now.Add(-10 * day), stars: 1000, want: false},
		{name: "updated in the future", updated: now.Add(day), stars: 3, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &cemetery.RepositoryRecord{UpdatedAt: tt.updated, StargazersCount: tt.stars}
			assert.Equal(t, tt.want, cemetery.IsZombie(rec, now, cemetery.DefaultStaleThreshold))
		})
	}
}

func TestScanner_ClassifiesAndPersists(t *testing.T) {
	f := newFixture(t)
	dead := repo("legacy", f.clock.DaysAgo(200), 5)
	dead.Topics = []string{"API", "api", " cli "}
	f.source.SetRecords(
		dead,
		repo("unstarred", f.clock.DaysAgo(200), 0),
		repo("active", f.clock.DaysAgo(3), 40),
	)

	result, err := f.scanner().Scan(context.Background(), cemetery.ScanTarget{Owner: "acme"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Scanned)
	assert.Equal(t, 1, result.Zombies)
	assert.Contains(t, result.Message, "3 repositories scanned, 1 zombies found")

	tombstones, err := f.tombstones().Snapshot()
	require.NoError(t, err)
	require.Len(t, tombstones, 1)
	tb := tombstones[0]
	assert.Equal(t, "legacy", tb.ID)
	assert.Equal(t, "acme/legacy", tb.Name)
	assert.Equal(t, "No activity for 200 days", tb.CauseOfDeath)
	assert.True(t, tb.DiedAt.Equal(dead.UpdatedAt))
	assert.Equal(t, "https://github.com/acme/legacy", tb.OriginalPath)
	require.NotNil(t, tb.Language)
	assert.Equal(t, "Go", *tb.Language)
	assert.Equal(t, []string{"go", "api", "cli"}, tb.Tags)
	assert.Contains(t, tb.Epitaph, "Starred 5 times")

	assets, ok, err := f.assets().Snapshot()
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, assets, 3)
	alive := map[string]bool{}
	for _, a := range assets {
		alive[a.ID] = a.Alive
		assert.Equal(t, cemetery.AssetTypeRepository, a.Type)
	}
	assert.Equal(t, map[string]bool{"legacy": false, "unstarred": true, "active": true}, alive)
}

func TestScanner_SkipsMalformedRecords(t *testing.T) {
	f := newFixture(t)
	f.source.SetRecords(
		nil,
		&cemetery.RepositoryRecord{FullName: "acme/no-id", UpdatedAt: f.clock.DaysAgo(500), StargazersCount: 9},
		&cemetery.RepositoryRecord{ID: "no-date", FullName: "acme/no-date", StargazersCount: 9},
		&cemetery.RepositoryRecord{ID: "neg", FullName: "acme/neg", UpdatedAt: f.clock.DaysAgo(500), StargazersCount: -1},
		repo("legacy", f.clock.DaysAgo(365), 2),
	)

	result, err := f.scanner().Scan(context.Background(), cemetery.ScanTarget{Owner: "acme"})
	require.NoError(t, err)
	assert.Equal(t, 5, result.Scanned)
	assert.Equal(t, 1, result.Zombies)

	assets, _, err := f.assets().Snapshot()
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "legacy", assets[0].ID)
	assert.Len(t, f.logger.Messages("WARN"), 4)
}

func TestScanner_SourceFailureLeavesRegistryUnchanged(t *testing.T) {
	f := newFixture(t)
	reg := f.tombstones()
	require.NoError(t, reg.Upsert(tombstone("kept", f.clock.DaysAgo(400))))
	writes := f.store.Writes()

	f.source.SetError(errors.Join(cemetery.ErrNetwork, errors.New("connection reset")))
	result, err := f.scanner().Scan(context.Background(), cemetery.ScanTarget{Owner: "acme"})
	require.Error(t, err)

	var scanErr *cemetery.ScanError
	require.ErrorAs(t, err, &scanErr)
	assert.Equal(t, "stub acme", scanErr.Source)
	assert.ErrorIs(t, err, cemetery.ErrNetwork)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Message)

	assert.Equal(t, writes, f.store.Writes())
	got, err := reg.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, []string{"kept"}, ids(got))
}

func TestScanner_Cancelled(t *testing.T) {
	f := newFixture(t)
	f.source.SetRecords(repo("legacy", f.clock.DaysAgo(365), 2))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.scanner().Scan(ctx, cemetery.ScanTarget{Owner: "acme"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.store.Writes())
}

func TestScanner_WriteFailureIsScanError(t *testing.T) {
	f := newFixture(t)
	f.source.SetRecords(repo("legacy", f.clock.DaysAgo(365), 2))
	f.store.FailWrites(true)

	_, err := f.scanner().Scan(context.Background(), cemetery.ScanTarget{Owner: "acme"})
	var scanErr *cemetery.ScanError
	require.ErrorAs(t, err, &scanErr)
	assert.ErrorIs(t, err, cemetery.ErrIO)
}

func TestScanner_AssetWriteFailureKeepsTombstones(t *testing.T) {
	f := newFixture(t)
	f.source.SetRecords(repo("legacy", f.clock.DaysAgo(365), 2), repo("fresh", f.clock.DaysAgo(3), 2))
	f.store.FailWritesTo(cemetery.AssetIndexDocument)

	_, err := f.scanner().Scan(context.Background(), cemetery.ScanTarget{Owner: "acme"})
	var scanErr *cemetery.ScanError
	require.ErrorAs(t, err, &scanErr)
	assert.ErrorIs(t, err, cemetery.ErrIO)

	got, err := f.tombstones().Find("legacy")
	require.NoError(t, err)
	require.NotNil(t, got)

	stats, err := cemetery.NewStatsAggregator(f.assets(), f.tombstones(), f.logger).Compute()
	require.NoError(t, err)
	assert.Equal(t, cemetery.UnknownLastScan, stats.LastScan)
	assert.Equal(t, 1, stats.TotalTombstones)
}

func TestScanner_RescanKeepsResurrection(t *testing.T) {
	f := newFixture(t)
	f.source.SetRecords(repo("legacy", f.clock.DaysAgo(365), 2))
	scanner := f.scanner()

	_, err := scanner.Scan(context.Background(), cemetery.ScanTarget{Owner: "acme"})
	require.NoError(t, err)
	require.NoError(t, f.tombstones().MarkResurrected("legacy", "acme/reborn"))

	f.clock.Advance(24 * time.Hour)
	_, err = scanner.Scan(context.Background(), cemetery.ScanTarget{Owner: "acme"})
	require.NoError(t, err)

	got, err := f.tombstones().Find("legacy")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Resurrected())
	assert.Equal(t, "acme/reborn", *got.ResurrectedTo)
	assert.Equal(t, "No activity for 366 days", got.CauseOfDeath)

	all, err := f.tombstones().Snapshot()
	require.NoError(t, err)
	assert.Len(t, all, 1, "rescans never duplicate a tombstone")
}

func TestScanner_RevivedRepositoryFlipsAlive(t *testing.T) {
	f := newFixture(t)
	scanner := f.scanner()

	f.source.SetRecords(repo("legacy", f.clock.DaysAgo(365), 2))
	_, err := scanner.Scan(context.Background(), cemetery.ScanTarget{Owner: "acme"})
	require.NoError(t, err)

	f.source.SetRecords(repo("legacy", f.clock.DaysAgo(1), 2))
	_, err = scanner.Scan(context.Background(), cemetery.ScanTarget{Owner: "acme"})
	require.NoError(t, err)

	assets, _, err := f.assets().Snapshot()
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.True(t, assets[0].Alive)
}

func TestScanner_CustomThreshold(t *testing.T) {
	f := newFixture(t)
	f.source.SetRecords(repo("quiet", f.clock.DaysAgo(40), 1))

	scanner := cemetery.NewScanner(f.source, f.tombstones(), f.assets(), f.clock, f.logger, 30*24*time.Hour)
	result, err := scanner.Scan(context.Background(), cemetery.ScanTarget{Owner: "acme"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Zombies)
}
