package cemetery

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"
)

// AssetRegistry holds every asset a scan has seen. Assets are never
// deleted; a later scan only updates them in place.
type AssetRegistry struct {
	store  Store
	logger Logger

	mu sync.Mutex
}

// NewAssetRegistry creates a registry over the AssetIndexDocument in store.
func NewAssetRegistry(store Store, logger Logger) *AssetRegistry {
	return &AssetRegistry{store: store, logger: logger}
}

// Snapshot returns the stored assets. ok is false when the registry has
// never been written.
func (r *AssetRegistry) Snapshot() (assets []*Asset, ok bool, err error) {
	data, ok, err := readDocument(r.store, AssetIndexDocument)
	if err != nil || !ok {
		return nil, ok, err
	}
	if err := json.Unmarshal(data, &assets); err != nil {
		return nil, true, parseError(AssetIndexDocument, err)
	}
	return slices.DeleteFunc(assets, func(a *Asset) bool { return a == nil }), true, nil
}

// Merge updates known assets in place and appends new ones, keeping IDs
// unique. The whole registry is rewritten in one write.
func (r *AssetRegistry) Merge(incoming []*Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, _, err := r.Snapshot()
	if err != nil {
		return fmt.Errorf("loading asset registry: %w", err)
	}

	index := make(map[string]int, len(current))
	for i, a := range current {
		index[a.ID] = i
	}
	added := 0
	for _, a := range incoming {
		if a == nil || a.ID == "" {
			return fmt.Errorf("asset without id")
		}
		if i, seen := index[a.ID]; seen {
			current[i] = a
			continue
		}
		index[a.ID] = len(current)
		current = append(current, a)
		added++
	}
	if current == nil {
		current = []*Asset{}
	}

	if err := writeDocument(r.store, AssetIndexDocument, current); err != nil {
		return err
	}
	r.logger.Debug("asset registry merged", "incoming", len(incoming), "added", added, "total", len(current))
	return nil
}

// LastModified returns the registry's last write time; ok is false when
// it has never been written.
func (r *AssetRegistry) LastModified() (t time.Time, ok bool, err error) {
	return documentModTime(r.store, AssetIndexDocument)
}
