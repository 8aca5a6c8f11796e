package cemetery

import (
	"context"
	"fmt"
	"path"
	"time"
)

// Service is the collaborator-facing API of the cemetery. It composes the
// registries, the scanner and the alert engine; callers never touch the
// stores directly.
type Service struct {
	config     *ConfigStore
	assets     *AssetRegistry
	tombstones *TombstoneRegistry
	alerts     *AlertEngine
	stats      *StatsAggregator
	scanner    *Scanner
	ledger     Ledger
	logger     Logger
}

// NewService wires a Service. documents holds the registry documents and
// settings holds the user settings record; they may be the same Store.
// threshold is the inactivity threshold of the scanner.
func NewService(documents Store, settings Store, source RepositorySource, ledger Ledger, logger Logger, clock Clock, idgen IDGenerator, threshold time.Duration) *Service {
	assets := NewAssetRegistry(documents, logger)
	tombstones := NewTombstoneRegistry(documents, clock, logger)
	return &Service{
		config:     NewConfigStore(settings, logger),
		assets:     assets,
		tombstones: tombstones,
		alerts:     NewAlertEngine(documents, clock, idgen, logger),
		stats:      NewStatsAggregator(assets, tombstones, logger),
		scanner:    NewScanner(source, tombstones, assets, clock, logger, threshold),
		ledger:     ledger,
		logger:     logger,
	}
}

// LoadConfig returns the user settings, creating them on first access.
func (s *Service) LoadConfig() (*Config, error) {
	return s.config.Load()
}

// SaveConfig replaces the user settings.
func (s *Service) SaveConfig(cfg *Config) error {
	return s.config.Save(cfg)
}

// UpdateToken stores a new GitHub token. An empty token clears it.
func (s *Service) UpdateToken(token string) error {
	return s.config.Update(func(cfg *Config) {
		cfg.GitHubToken = optional(token)
	})
}

// SetAutoStart records the auto_start preference. Registering with the
// platform is the caller's job.
func (s *Service) SetAutoStart(enabled bool) error {
	return s.config.Update(func(cfg *Config) {
		cfg.AutoStart = enabled
	})
}

// GetStats derives the current counts.
func (s *Service) GetStats() (*Stats, error) {
	return s.stats.Compute()
}

// ListRecentTombstones returns up to limit tombstones, most recently dead first.
func (s *Service) ListRecentTombstones(limit int) []*Tombstone {
	return s.tombstones.List(limit)
}

// MarkResurrected records that a tombstone's code reappeared at resurrectedTo.
func (s *Service) MarkResurrected(id string, resurrectedTo string) error {
	return s.tombstones.MarkResurrected(id, resurrectedTo)
}

// TriggerScan runs one scan against the configured target organisation.
func (s *Service) TriggerScan(ctx context.Context) (*ScanResult, error) {
	cfg, err := s.config.Load()
	if err != nil {
		return &ScanResult{Message: fmt.Sprintf("loading settings: %v", err)}, fmt.Errorf("loading settings: %w", err)
	}
	return s.scanner.Scan(ctx, ScanTarget{Owner: cfg.TargetOrg, Token: cfg.Token()})
}

// GetZombieAlerts returns the alert set with its counters.
func (s *Service) GetZombieAlerts() *ZombieAlerts {
	return s.alerts.Get()
}

// MarkAlertRead flags one alert as read.
func (s *Service) MarkAlertRead(id string) error {
	return s.alerts.MarkRead(id)
}

// ClearAllAlerts empties the alert set.
func (s *Service) ClearAllAlerts() error {
	return s.alerts.ClearAll()
}

// ImportAlerts records alerts handed over by the external matcher.
func (s *Service) ImportAlerts(alerts []*ZombieAlert) (int, error) {
	return s.alerts.Record(alerts)
}

// AcknowledgeAlert marks the alert read and, when a tombstone matches its
// corpse_repo by ID or name, marks that tombstone resurrected to the
// zombie's location. An unknown alert id is a no-op.
func (s *Service) AcknowledgeAlert(id string) error {
	alert := s.alerts.Find(id)
	if alert == nil {
		s.logger.Debug("acknowledge of unknown alert ignored", "id", id)
		return nil
	}

	if err := s.alerts.MarkRead(id); err != nil {
		return fmt.Errorf("marking alert read: %w", err)
	}

	corpse, err := s.tombstones.Find(alert.CorpseRepo)
	if err != nil {
		return fmt.Errorf("finding tombstone for %s: %w", alert.CorpseRepo, err)
	}
	if corpse == nil {
		s.logger.Warn("acknowledged alert has no tombstone", "id", id, "corpse_repo", alert.CorpseRepo)
		return nil
	}
	return s.tombstones.MarkResurrected(corpse.ID, path.Join(alert.ZombieRepo, alert.ZombiePath))
}

// GetHistory returns the most recent ledger entries, newest first.
func (s *Service) GetHistory(limit int) ([]*Operation, error) {
	ops, err := s.ledger.ListOperations(limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}
