package cemetery

import (
	"encoding/json"
	"fmt"
	"sync"
)

// ConfigStore loads and saves the user settings record.
type ConfigStore struct {
	store  Store
	logger Logger

	mu sync.Mutex
}

// NewConfigStore creates a ConfigStore over the ConfigDocument in store.
func NewConfigStore(store Store, logger Logger) *ConfigStore {
	return &ConfigStore{store: store, logger: logger}
}

// Load returns the stored settings. On first access the defaults are
// written and returned. Save never stores empty fields, so the defaults
// filled in here only apply to documents edited by hand.
func (c *ConfigStore) Load() (*Config, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load()
}

func (c *ConfigStore) load() (*Config, error) {
	data, ok, err := readDocument(c.store, ConfigDocument)
	if err != nil {
		return nil, err
	}
	if !ok {
		cfg := DefaultConfig()
		if err := writeDocument(c.store, ConfigDocument, cfg); err != nil {
			return nil, fmt.Errorf("initializing settings: %w", err)
		}
		c.logger.Info("settings initialized with defaults")
		return cfg, nil
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, parseError(ConfigDocument, err)
	}
	if cfg.TargetOrg == "" {
		cfg.TargetOrg = DefaultTargetOrg
	}
	if cfg.ScanInterval == 0 {
		cfg.ScanInterval = DefaultScanInterval
	}
	return &cfg, nil
}

// Save replaces the stored settings. Invalid settings are rejected and
// nothing is written.
func (c *ConfigStore) Save(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil settings")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return writeDocument(c.store, ConfigDocument, cfg)
}

// Update loads the settings, applies fn and saves the result.
func (c *ConfigStore) Update(fn func(cfg *Config)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cfg, err := c.load()
	if err != nil {
		return err
	}
	fn(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return writeDocument(c.store, ConfigDocument, cfg)
}
