package cemetery

import (
	"fmt"
	"time"
)

// Config is the user-facing settings record. It is persisted as JSON and
// created with defaults on first access.
type Config struct {
	GitHubToken  *string `json:"github_token,omitempty"`
	TargetOrg    string  `json:"target_org"`
	ScanInterval uint64  `json:"scan_interval"` // seconds
	AutoStart    bool    `json:"auto_start"`
}

const (
	DefaultTargetOrg    = "microsoft"
	DefaultScanInterval = 3600
)

// DefaultConfig returns the settings written on first run.
func DefaultConfig() *Config {
	return &Config{
		TargetOrg:    DefaultTargetOrg,
		ScanInterval: DefaultScanInterval,
	}
}

// Token returns the configured GitHub token or "" when unset.
func (c *Config) Token() string {
	if c.GitHubToken == nil {
		return ""
	}
	return *c.GitHubToken
}

// Validate rejects settings that would not load back unchanged.
func (c *Config) Validate() error {
	switch {
	case c.TargetOrg == "":
		return fmt.Errorf("target_org must not be empty")
	case c.ScanInterval == 0:
		return fmt.Errorf("scan_interval must be a positive number of seconds")
	}
	return nil
}

// Asset is a tracked code unit discovered by a scan.
type Asset struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	Location  string   `json:"location"` // path or URL
	Language  *string  `json:"language,omitempty"`
	Tags      []string `json:"tags"`
	Alive     bool     `json:"alive"`
	LineCount uint64   `json:"line_count"`
}

// Tombstone is the persisted record of a dead asset.
type Tombstone struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	CauseOfDeath  string     `json:"cause_of_death"`
	Epitaph       string     `json:"epitaph"`
	Tags          []string   `json:"tags"`
	OriginalPath  string     `json:"original_path"`
	Language      *string    `json:"language,omitempty"`
	LineCount     uint64     `json:"line_count"`
	DiedAt        time.Time  `json:"died_at"`
	ResurrectedAt *time.Time `json:"resurrected_at,omitempty"`
	ResurrectedTo *string    `json:"resurrected_to,omitempty"`

	// Placeholder is set only on the fallback records returned when the
	// registry is absent or unreadable. It is never persisted as true.
	Placeholder bool `json:"placeholder,omitempty"`
}

// Resurrected reports whether the tombstone has been matched to new code.
func (t *Tombstone) Resurrected() bool {
	return t.ResurrectedAt != nil
}

// ZombieAlert is a detected resurrection event produced by an external matcher.
type ZombieAlert struct {
	ID               string    `json:"id" yaml:"id"`
	CorpseRepo       string    `json:"corpse_repo" yaml:"corpse_repo"`
	CorpsePath       string    `json:"corpse_path" yaml:"corpse_path"`
	ZombieRepo       string    `json:"zombie_repo" yaml:"zombie_repo"`
	ZombiePath       string    `json:"zombie_path" yaml:"zombie_path"`
	Similarity       float64   `json:"similarity" yaml:"similarity"`
	ResurrectionType string    `json:"resurrection_type" yaml:"resurrection_type"`
	Confidence       float64   `json:"confidence" yaml:"confidence"`
	DetectedAt       time.Time `json:"detected_at" yaml:"detected_at"`
	Notified         bool      `json:"notified" yaml:"notified"`
}

// Validate checks the fields a stored alert must carry to be listed.
func (a *ZombieAlert) Validate() error {
	switch {
	case a.ID == "":
		return fmt.Errorf("alert has no id")
	case a.CorpseRepo == "":
		return fmt.Errorf("alert %s has no corpse_repo", a.ID)
	case a.ZombieRepo == "":
		return fmt.Errorf("alert %s has no zombie_repo", a.ID)
	case a.Similarity < 0 || a.Similarity > 1:
		return fmt.Errorf("alert %s similarity %v outside [0,1]", a.ID, a.Similarity)
	case a.Confidence < 0 || a.Confidence > 1:
		return fmt.Errorf("alert %s confidence %v outside [0,1]", a.ID, a.Confidence)
	case a.DetectedAt.IsZero():
		return fmt.Errorf("alert %s has no detected_at", a.ID)
	}
	return nil
}

// ZombieAlerts is the listing returned to callers: the stored set plus
// derived counters.
type ZombieAlerts struct {
	Alerts      []*ZombieAlert `json:"alerts"`
	LastCheck   *time.Time     `json:"last_check"` // nil when never checked
	TotalAlerts int            `json:"total_alerts"`
	UnreadCount int            `json:"unread_count"`
}

// UnknownLastScan is reported when the asset registry has never been written.
const UnknownLastScan = "unknown"

// Stats is derived on every query; it is never persisted.
type Stats struct {
	TotalAssets     int    `json:"total_assets"`
	AliveAssets     int    `json:"alive_assets"`
	DeadAssets      int    `json:"dead_assets"`
	TotalTombstones int    `json:"total_tombstones"`
	Resurrected     int    `json:"resurrected"`
	LastScan        string `json:"last_scan"`
}

// ScanResult summarises one scan run.
type ScanResult struct {
	Success bool   `json:"success"`
	Scanned int    `json:"scanned"`
	Zombies int    `json:"zombies"`
	Message string `json:"message"`
}

// RepositoryRecord is one repository as reported by a RepositorySource.
type RepositoryRecord struct {
	ID              string
	FullName        string
	UpdatedAt       time.Time
	StargazersCount int
	Language        string
	URL             string
	Topics          []string
	LineCount       uint64
}

// Operation is a ledger entry for a mutating command.
type Operation struct {
	ID         int64
	Operation  string
	Parameters string
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     string
	Scanned    int
	Zombies    int
	Message    string
}
