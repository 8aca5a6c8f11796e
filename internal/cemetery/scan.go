package cemetery

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
)

// DefaultStaleThreshold is the inactivity after which a noticed repository is dead.
const DefaultStaleThreshold = 180 * 24 * time.Hour

// AssetTypeRepository is the Asset.Type of scanned repositories.
const AssetTypeRepository = "repository"

// Scanner classifies repository records as alive or dead and writes the
// outcome into the tombstone and asset registries.
type Scanner struct {
	source     RepositorySource
	tombstones *TombstoneRegistry
	assets     *AssetRegistry
	clock      Clock
	logger     Logger
	threshold  time.Duration
}

// NewScanner creates a Scanner. A non-positive threshold selects DefaultStaleThreshold.
func NewScanner(source RepositorySource, tombstones *TombstoneRegistry, assets *AssetRegistry, clock Clock, logger Logger, threshold time.Duration) *Scanner {
	if threshold <= 0 {
		threshold = DefaultStaleThreshold
	}
	return &Scanner{
		source:     source,
		tombstones: tombstones,
		assets:     assets,
		clock:      clock,
		logger:     logger,
		threshold:  threshold,
	}
}

// IsZombie reports whether rec has been inactive for longer than threshold
// and was ever noticed. Repositories nobody starred never make the list.
func IsZombie(rec *RepositoryRecord, now time.Time, threshold time.Duration) bool {
	return now.Sub(rec.UpdatedAt) > threshold && rec.StargazersCount > 0
}

func validateRecord(rec *RepositoryRecord) error {
	switch {
	case rec == nil:
		return fmt.Errorf("nil record")
	case rec.ID == "":
		return fmt.Errorf("record %q has no id", rec.FullName)
	case rec.FullName == "":
		return fmt.Errorf("record %s has no name", rec.ID)
	case rec.UpdatedAt.IsZero():
		return fmt.Errorf("record %s has no updated_at", rec.ID)
	case rec.StargazersCount < 0:
		return fmt.Errorf("record %s has negative star count", rec.ID)
	}
	return nil
}

// Scan fetches the complete repository list, classifies every record and
// persists the dead ones as tombstones and every valid one as an asset.
// Nothing is written until the listing has been fully obtained and
// classified, so a failed or cancelled scan leaves the registries as they
// were. Malformed records are counted as scanned and otherwise skipped.
func (s *Scanner) Scan(ctx context.Context, target ScanTarget) (*ScanResult, error) {
	sourceName := s.source.Name(target)
	s.logger.Info("scan started", "source", sourceName, "threshold", s.threshold)

	records, err := s.source.ListRepositories(ctx, target)
	if err != nil {
		return s.fail(sourceName, err)
	}

	existing, err := s.tombstones.Snapshot()
	if err != nil {
		return s.fail(sourceName, err)
	}

	now := s.clock.Now()
	result := &ScanResult{}
	var tombstones []*Tombstone
	assets := make([]*Asset, 0, len(records))

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return s.fail(sourceName, err)
		}
		result.Scanned++

		if err := validateRecord(rec); err != nil {
			s.logger.Warn("skipping malformed repository record", "error", err)
			continue
		}

		dead := IsZombie(rec, now, s.threshold)
		assets = append(assets, assetFromRecord(rec, !dead))
		if !dead {
			continue
		}

		result.Zombies++
		t := tombstoneFromRecord(rec, now)
		if prev := findTombstone(existing, rec.ID); prev != nil {
			t.ResurrectedAt = prev.ResurrectedAt
			t.ResurrectedTo = prev.ResurrectedTo
		}
		tombstones = append(tombstones, t)
		s.logger.Debug("zombie found", "repo", rec.FullName, "updated_at", rec.UpdatedAt)
	}

	// Tombstones go first. If the asset index write then fails, the new
	// tombstones are kept and last_scan still names the previous scan.
	if err := s.tombstones.UpsertMany(tombstones); err != nil {
		return s.fail(sourceName, err)
	}
	if err := s.assets.Merge(assets); err != nil {
		return s.fail(sourceName, err)
	}

	result.Success = true
	result.Message = fmt.Sprintf("Scan complete: %d repositories scanned, %d zombies found", result.Scanned, result.Zombies)
	s.logger.Info("scan complete", "source", sourceName, "scanned", result.Scanned, "zombies", result.Zombies)
	return result, nil
}

func (s *Scanner) fail(sourceName string, err error) (*ScanResult, error) {
	scanErr := &ScanError{Source: sourceName, Err: err}
	s.logger.Error("scan failed", "source", sourceName, "error", err)
	return &ScanResult{Success: false, Message: scanErr.Error()}, scanErr
}

func findTombstone(tombstones []*Tombstone, id string) *Tombstone {
	for _, t := range tombstones {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func tombstoneFromRecord(rec *RepositoryRecord, now time.Time) *Tombstone {
	days := int(now.Sub(rec.UpdatedAt) / (24 * time.Hour))
	return &Tombstone{
		ID:           rec.ID,
		Name:         rec.FullName,
		CauseOfDeath: fmt.Sprintf("No activity for %d days", days),
		Epitaph:      epitaph(rec),
		Tags:         recordTags(rec),
		OriginalPath: rec.URL,
		Language:     optional(rec.Language),
		LineCount:    rec.LineCount,
		DiedAt:       rec.UpdatedAt.UTC(),
	}
}

func assetFromRecord(rec *RepositoryRecord, alive bool) *Asset {
	return &Asset{
		ID:        rec.ID,
		Name:      rec.FullName,
		Type:      AssetTypeRepository,
		Location:  rec.URL,
		Language:  optional(rec.Language),
		Tags:      recordTags(rec),
		Alive:     alive,
		LineCount: rec.LineCount,
	}
}

func epitaph(rec *RepositoryRecord) string {
	last := rec.UpdatedAt.UTC().Format("2006-01-02")
	if rec.StargazersCount == 1 {
		return fmt.Sprintf("Starred once, untouched since %s", last)
	}
	return fmt.Sprintf("Starred %d times, untouched since %s", rec.StargazersCount, last)
}

// recordTags returns the lower-cased language followed by the topics, without duplicates.
func recordTags(rec *RepositoryRecord) []string {
	tags := make([]string, 0, len(rec.Topics)+1)
	if rec.Language != "" {
		tags = append(tags, strings.ToLower(rec.Language))
	}
	for _, topic := range rec.Topics {
		topic = strings.ToLower(strings.TrimSpace(topic))
		if topic != "" && !slices.Contains(tags, topic) {
			tags = append(tags, topic)
		}
	}
	return tags
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
