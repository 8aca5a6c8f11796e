package cemetery

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"sync"
)

// MaxTombstones is the retention cap of the tombstone registry.
const MaxTombstones = 100

// TombstoneRegistry is the capped, deduplicated store of retired assets.
// Records are kept newest-insert-first: an upsert places the record at the
// head, drops any older record with the same ID and truncates the tail
// beyond MaxTombstones.
type TombstoneRegistry struct {
	store  Store
	clock  Clock
	logger Logger

	mu sync.Mutex // serialises read-modify-write cycles
}

// NewTombstoneRegistry creates a registry over the TombstoneRegistryDocument in store.
func NewTombstoneRegistry(store Store, clock Clock, logger Logger) *TombstoneRegistry {
	return &TombstoneRegistry{store: store, clock: clock, logger: logger}
}

// load returns the records in storage order. ok is false when the document
// has never been written.
func (r *TombstoneRegistry) load() (tombstones []*Tombstone, ok bool, err error) {
	data, ok, err := readDocument(r.store, TombstoneRegistryDocument)
	if err != nil || !ok {
		return nil, ok, err
	}
	if err := json.Unmarshal(data, &tombstones); err != nil {
		return nil, true, parseError(TombstoneRegistryDocument, err)
	}
	return slices.DeleteFunc(tombstones, func(t *Tombstone) bool { return t == nil }), true, nil
}

// Snapshot returns the stored records in insertion order, newest first.
// An absent registry yields an empty slice.
func (r *TombstoneRegistry) Snapshot() ([]*Tombstone, error) {
	tombstones, _, err := r.load()
	if err != nil {
		return nil, err
	}
	return tombstones, nil
}

// Upsert inserts t at the head of the registry, replacing any record with the same ID.
func (r *TombstoneRegistry) Upsert(t *Tombstone) error {
	return r.UpsertMany([]*Tombstone{t})
}

// UpsertMany applies Upsert to each tombstone in order and persists the
// result with a single write. Either every upsert is persisted or none is.
func (r *TombstoneRegistry) UpsertMany(tombstones []*Tombstone) error {
	for _, t := range tombstones {
		if t == nil || t.ID == "" {
			return fmt.Errorf("tombstone without id")
		}
	}
	if len(tombstones) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, _, err := r.load()
	if err != nil {
		return fmt.Errorf("loading tombstone registry: %w", err)
	}
	for _, t := range tombstones {
		current = upsertTombstone(current, t)
	}
	if err := writeDocument(r.store, TombstoneRegistryDocument, current); err != nil {
		return err
	}

	r.logger.Debug("tombstones upserted", "count", len(tombstones), "stored", len(current))
	return nil
}

func upsertTombstone(list []*Tombstone, t *Tombstone) []*Tombstone {
	stored := *t
	stored.Placeholder = false

	out := make([]*Tombstone, 0, min(len(list)+1, MaxTombstones))
	out = append(out, &stored)
	for _, existing := range list {
		if len(out) == MaxTombstones {
			break
		}
		if existing.ID == t.ID {
			continue
		}
		out = append(out, existing)
	}
	return out
}

// List returns up to limit tombstones, most recently dead first.
// The ordering is by DiedAt, not by insertion. When the registry is absent
// or unreadable, the fixed placeholder set is returned instead; those
// records have Placeholder set.
func (r *TombstoneRegistry) List(limit int) []*Tombstone {
	if limit <= 0 {
		return []*Tombstone{}
	}

	tombstones, ok, err := r.load()
	if err != nil {
		r.logger.Warn("tombstone registry unreadable, serving placeholders", "error", err)
	}
	if err != nil || !ok {
		tombstones = PlaceholderTombstones()
	}

	sorted := slices.Clone(tombstones)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DiedAt.After(sorted[j].DiedAt)
	})
	if limit < len(sorted) {
		sorted = sorted[:limit]
	}
	return sorted
}

// Find returns the tombstone whose ID or Name equals key, or nil.
func (r *TombstoneRegistry) Find(key string) (*Tombstone, error) {
	tombstones, _, err := r.load()
	if err != nil {
		return nil, err
	}
	for _, t := range tombstones {
		if t.ID == key || t.Name == key {
			return t, nil
		}
	}
	return nil, nil
}

// MarkResurrected stamps the tombstone with the current time and the
// location its code reappeared at. An unknown id is a no-op.
func (r *TombstoneRegistry) MarkResurrected(id string, resurrectedTo string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tombstones, ok, err := r.load()
	if err != nil {
		return fmt.Errorf("loading tombstone registry: %w", err)
	}
	if !ok {
		return nil
	}

	idx := slices.IndexFunc(tombstones, func(t *Tombstone) bool { return t.ID == id })
	if idx < 0 {
		r.logger.Debug("resurrection of unknown tombstone ignored", "id", id)
		return nil
	}

	now := r.clock.Now().UTC()
	to := resurrectedTo
	tombstones[idx].ResurrectedAt = &now
	tombstones[idx].ResurrectedTo = &to

	if err := writeDocument(r.store, TombstoneRegistryDocument, tombstones); err != nil {
		return err
	}
	r.logger.Info("tombstone resurrected", "id", id, "to", resurrectedTo)
	return nil
}
