package cemetery

import "fmt"

// LastScanLayout formats Stats.LastScan.
const LastScanLayout = "2006-01-02 15:04:05"

// StatsAggregator derives Stats from the asset and tombstone registries on
// every call. It owns no data. Unreadable registries count as empty.
type StatsAggregator struct {
	assets     *AssetRegistry
	tombstones *TombstoneRegistry
	logger     Logger
}

func NewStatsAggregator(assets *AssetRegistry, tombstones *TombstoneRegistry, logger Logger) *StatsAggregator {
	return &StatsAggregator{assets: assets, tombstones: tombstones, logger: logger}
}

// Compute returns the current counts. The only error it reports is a data
// integrity fault in the derived counts.
func (a *StatsAggregator) Compute() (*Stats, error) {
	stats := &Stats{LastScan: UnknownLastScan}

	assets, ok, err := a.assets.Snapshot()
	switch {
	case err != nil:
		a.logger.Warn("asset registry unreadable, counting as empty", "error", err)
	case ok:
		stats.TotalAssets = len(assets)
		for _, asset := range assets {
			if asset.Alive {
				stats.AliveAssets++
			}
		}
		modified, known, err := a.assets.LastModified()
		if err != nil {
			a.logger.Warn("asset registry modification time unavailable", "error", err)
		} else if known {
			stats.LastScan = modified.UTC().Format(LastScanLayout)
		}
	}

	dead, err := deadAssets(stats.TotalAssets, stats.AliveAssets)
	if err != nil {
		return nil, err
	}
	stats.DeadAssets = dead

	tombstones, err := a.tombstones.Snapshot()
	if err != nil {
		a.logger.Warn("tombstone registry unreadable, counting as empty", "error", err)
	}
	stats.TotalTombstones = len(tombstones)
	for _, t := range tombstones {
		if t.Resurrected() {
			stats.Resurrected++
		}
	}

	return stats, nil
}

// deadAssets returns total - alive, refusing inconsistent inputs instead of
// returning a negative count.
func deadAssets(total, alive int) (int, error) {
	if total < 0 || alive < 0 || alive > total {
		return 0, fmt.Errorf("%w: %d alive assets out of %d total", ErrDataIntegrity, alive, total)
	}
	return total - alive, nil
}
