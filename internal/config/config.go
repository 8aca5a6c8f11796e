package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the host bootstrap configuration: where the cemetery keeps its
// documents, how it scans and where it archives. The user-facing settings
// record lives separately in cemetery.config.json.
type Config struct {
	HostID      string           `toml:"host_id"`
	CemeteryDir string           `toml:"cemetery_dir"`
	LogDir      string           `toml:"log_dir"`
	SettingsDir string           `toml:"settings_dir,omitempty"` // defaults to cemetery_dir
	Storage     StorageConfig    `toml:"storage"`
	Database    DatabaseConfig   `toml:"database"`
	Archives    []ArchiveConfig  `toml:"archives"`
	Encryption  EncryptionConfig `toml:"encryption"`
	Scanner     ScannerConfig    `toml:"scanner"`
	Filesystem  FilesystemConfig `toml:"filesystem"`
}

// StorageConfig selects where the registry documents live.
type StorageConfig struct {
	Type string `toml:"type"` // "filesystem" (default), "sqlite" or "memory"
}

// DatabaseConfig represents configuration for the operation ledger.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// ArchiveConfig represents one registry archive backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type ArchiveConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket   string `toml:"s3_bucket,omitempty"`
	S3Prefix   string `toml:"s3_prefix,omitempty"`
	S3Region   string `toml:"s3_region,omitempty"`
	S3Endpoint string `toml:"s3_endpoint,omitempty"` // S3-compatible services; implies path-style addressing

	// Static credentials. When empty the default AWS credential chain is used.
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`
}

// EncryptionConfig holds paths to the age key pair used for archives.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age" (default) or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// ScannerConfig selects the repository source and the staleness threshold.
type ScannerConfig struct {
	Source            string  `toml:"source"`                        // "github" (default) or "local"
	ThresholdDays     int     `toml:"threshold_days"`                // defaults to 180
	Workspace         string  `toml:"workspace,omitempty"`           // only used for source=local
	APIBaseURL        string  `toml:"api_base_url,omitempty"`        // GitHub Enterprise or test servers
	RequestsPerSecond float64 `toml:"requests_per_second,omitempty"` // 0 selects the source default
}

// FilesystemConfig holds settings for the local workspace source.
type FilesystemConfig struct {
	Ignore []string `toml:"ignore"`
}

// DefaultThresholdDays is used when scanner.threshold_days is unset.
const DefaultThresholdDays = 180

// Threshold returns the inactivity threshold as a duration.
func (s ScannerConfig) Threshold() time.Duration {
	days := s.ThresholdDays
	if days <= 0 {
		days = DefaultThresholdDays
	}
	return time.Duration(days) * 24 * time.Hour
}

// SettingsLocation returns the directory holding the settings record.
func (c *Config) SettingsLocation() string {
	if c.SettingsDir != "" {
		return c.SettingsDir
	}
	return c.CemeteryDir
}

// NewConfig creates a new Config with the provided values and default paths.
func NewConfig(hostID, baseDir string) *Config {
	return &Config{
		HostID:      hostID,
		CemeteryDir: filepath.Join(baseDir, "cemetery"),
		LogDir:      filepath.Join(baseDir, "log"),
		Storage:     StorageConfig{Type: "filesystem"},
		Database:    DatabaseConfig{Type: "sqlite", DataDir: filepath.Join(baseDir, "db")},
		Encryption: EncryptionConfig{
			PublicKeyPath:  filepath.Join(baseDir, "keys", "cemetery.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "cemetery.key"),
		},
		Scanner: ScannerConfig{Source: "github", ThresholdDays: DefaultThresholdDays},
		Filesystem: FilesystemConfig{
			Ignore: []string{".git", "node_modules", "vendor"},
		},
	}
}

// Validate checks the fields every setup needs.
func (c *Config) Validate() error {
	if c.HostID == "" {
		return fmt.Errorf("host_id is required")
	}
	if c.Storage.Type != "memory" && c.CemeteryDir == "" {
		return fmt.Errorf("cemetery_dir is required")
	}
	if c.Scanner.Source == "local" && c.Scanner.Workspace == "" {
		return fmt.Errorf("scanner.workspace is required for the local source")
	}
	if c.Scanner.RequestsPerSecond < 0 {
		return fmt.Errorf("scanner.requests_per_second must not be negative")
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init writes a new config file and creates the cemetery directory it
// names. It refuses to overwrite an existing file.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	if cfg.CemeteryDir != "" {
		if err := os.MkdirAll(cfg.CemeteryDir, 0755); err != nil {
			return fmt.Errorf("creating cemetery directory: %w", err)
		}
	}
	return nil
}
