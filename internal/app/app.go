package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	"cemetery-go/internal/autostart"
	"cemetery-go/internal/cemetery"
	"cemetery-go/internal/config"
	"cemetery-go/internal/database"
	"cemetery-go/internal/encryption"
	"cemetery-go/internal/github"
	"cemetery-go/internal/store"
	"cemetery-go/internal/vault"
	"cemetery-go/internal/workspace"
)

// App is the application layer between the CLI and cemetery.Service.
// It constructs all dependencies from config, records mutating commands in
// the ledger and archives the registry when such a command finishes.
type App struct {
	cfg         *config.Config
	db          *database.SQLiteDatabase
	documents   cemetery.Store
	vaults      []cemetery.Vault
	encryptor   cemetery.Encryptor // nil when archives are stored in plaintext
	archiver    *cemetery.Archiver
	service     *cemetery.Service
	autostarter cemetery.Autostarter
	logger      cemetery.Logger
	op          *Operation
	archived    bool // the registry was already pushed or pulled by this command
	logFile     *os.File
}

type options struct {
	stderr      io.Writer
	autostarter cemetery.Autostarter
	httpClient  *http.Client
	clock       cemetery.Clock
}

// Option customises NewApp.
type Option func(*options)

// WithStderr sends warnings and errors to w instead of os.Stderr.
func WithStderr(w io.Writer) Option {
	return func(o *options) { o.stderr = w }
}

// WithAutostarter replaces the platform autostart registration.
func WithAutostarter(a cemetery.Autostarter) Option {
	return func(o *options) { o.autostarter = a }
}

// WithHTTPClient sets the client used by the GitHub source.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithClock replaces the wall clock.
func WithClock(c cemetery.Clock) Option {
	return func(o *options) { o.clock = c }
}

// NewApp creates a fully wired App from the given config.
// operation names the CLI command being run (e.g. OpScan). The caller must
// call Close when done.
func NewApp(ctx context.Context, cfg *config.Config, operation string, opts ...Option) (*App, error) {
	o := options{stderr: os.Stderr, clock: cemetery.RealClock{}}
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.LogDir == "" {
		return nil, fmt.Errorf("invalid config: log_dir is required")
	}

	opID := o.clock.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(cfg.LogDir, o.stderr, opID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	a := &App{
		cfg:         cfg,
		autostarter: o.autostarter,
		logger:      logger,
		op:          NewOperation(operation, ""),
		logFile:     logFile,
	}
	if err := a.wire(ctx, o); err != nil {
		a.closeResources()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context, o options) error {
	cfg := a.cfg

	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.HostID, o.clock)
	if err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	a.db = db

	if err := db.CheckMigrations(); err != nil {
		return fmt.Errorf("database schema out of date: %w", err)
	}

	documents, err := store.NewStoreFromConfig(cfg.Storage, cfg.CemeteryDir, db, o.clock)
	if err != nil {
		return fmt.Errorf("opening cemetery: %w", err)
	}
	a.documents = documents

	settings := documents
	if cfg.SettingsDir != "" && cfg.SettingsDir != cfg.CemeteryDir {
		fsStore, err := store.NewFileSystemStore(cfg.SettingsDir)
		if err != nil {
			return fmt.Errorf("opening settings directory: %w", err)
		}
		settings = fsStore
	}

	source, err := newSource(cfg, o.httpClient, a.logger)
	if err != nil {
		return fmt.Errorf("creating repository source: %w", err)
	}

	a.vaults, err = vault.NewVaultsFromConfig(ctx, cfg.Archives)
	if err != nil {
		return fmt.Errorf("creating archives: %w", err)
	}

	a.encryptor, err = encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}

	a.archiver = cemetery.NewArchiver(documents, a.vaults, a.encryptor, cfg.HostID, a.logger)
	a.service = cemetery.NewService(documents, settings, source, db, a.logger, o.clock, cemetery.UUIDGenerator{}, cfg.Scanner.Threshold())

	// Pulling is the way to catch up, so it is the one command allowed
	// to start behind the archive.
	if a.op.Name == OpArchivePull || len(a.vaults) == 0 {
		return nil
	}
	remoteVersion, err := a.archiver.LatestVersion()
	if err != nil {
		return fmt.Errorf("checking archive version: %w", err)
	}
	localMax, err := db.MaxOperationID()
	if err != nil {
		return fmt.Errorf("checking local ledger version: %w", err)
	}
	if remoteVersion > localMax {
		return fmt.Errorf("local cemetery is behind the archive (local=%d, archive=%d): run 'cemetery archive pull'", localMax, remoteVersion)
	}
	return nil
}

func newSource(cfg *config.Config, httpClient *http.Client, logger cemetery.Logger) (cemetery.RepositorySource, error) {
	switch cfg.Scanner.Source {
	case "", "github":
		src, err := github.NewSource(cfg.Scanner, httpClient, logger)
		if err != nil {
			return nil, err
		}
		return src, nil
	case "local":
		src, err := workspace.NewSource(cfg.Scanner.Workspace, cfg.Filesystem.Ignore, logger)
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		return nil, fmt.Errorf("unknown scanner source: %s", cfg.Scanner.Source)
	}
}

// persistOperation saves the operation to the ledger, giving it an auto-increment ID.
// This should only be called for mutating commands.
func (a *App) persistOperation(parameters string) error {
	if a.op.Persisted() {
		return nil
	}
	a.op.Parameters = parameters
	dbOp, err := a.db.CreateOperation(a.op.Name, a.op.Parameters)
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = dbOp.ID
	return nil
}

// LoadSettings returns the user settings, creating them on first access.
func (a *App) LoadSettings() (*cemetery.Config, error) {
	return a.service.LoadConfig()
}

// UpdateSetting changes one user setting by its JSON key.
// Only target_org and scan_interval are set this way; the token and
// auto_start have their own commands.
func (a *App) UpdateSetting(key, value string) error {
	if err := a.persistOperation(key + "=" + value); err != nil {
		return err
	}

	settings, err := a.service.LoadConfig()
	if err != nil {
		return a.op.Observe(err)
	}
	switch key {
	case "target_org":
		if value == "" {
			return a.op.Observe(fmt.Errorf("target_org must not be empty"))
		}
		settings.TargetOrg = value
	case "scan_interval":
		seconds, err := strconv.ParseUint(value, 10, 64)
		if err != nil || seconds == 0 {
			return a.op.Observe(fmt.Errorf("scan_interval must be a positive number of seconds: %q", value))
		}
		settings.ScanInterval = seconds
	default:
		return a.op.Observe(fmt.Errorf("unknown setting: %s", key))
	}
	return a.op.Observe(a.service.SaveConfig(settings))
}

// UpdateToken stores the GitHub token. An empty token clears it.
func (a *App) UpdateToken(token string) error {
	param := "set"
	if token == "" {
		param = "cleared"
	}
	if err := a.persistOperation(param); err != nil {
		return err
	}
	return a.op.Observe(a.service.UpdateToken(token))
}

// SetAutoStart registers or unregisters the platform autostart entry and
// records the preference.
func (a *App) SetAutoStart(enabled bool) error {
	if err := a.persistOperation(strconv.FormatBool(enabled)); err != nil {
		return err
	}

	starter, err := a.platformAutostarter()
	if err != nil {
		return a.op.Observe(err)
	}
	if enabled {
		err = starter.Enable()
	} else {
		err = starter.Disable()
	}
	if err != nil {
		return a.op.Observe(fmt.Errorf("updating autostart registration: %w", err))
	}
	return a.op.Observe(a.service.SetAutoStart(enabled))
}

func (a *App) platformAutostarter() (cemetery.Autostarter, error) {
	if a.autostarter != nil {
		return a.autostarter, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locating executable: %w", err)
	}
	starter, err := autostart.New(exe)
	if err != nil {
		return nil, err
	}
	a.autostarter = starter
	return starter, nil
}

// GetStats returns the current cemetery counts.
func (a *App) GetStats() (*cemetery.Stats, error) {
	return a.service.GetStats()
}

// ListRecentTombstones returns up to limit tombstones, most recently dead first.
func (a *App) ListRecentTombstones(limit int) []*cemetery.Tombstone {
	return a.service.ListRecentTombstones(limit)
}

// MarkResurrected records that the tombstone id came back at target.
func (a *App) MarkResurrected(id, target string) error {
	if err := a.persistOperation(id + " -> " + target); err != nil {
		return err
	}
	return a.op.Observe(a.service.MarkResurrected(id, target))
}

// TriggerScan runs one scan. The result is recorded in the ledger.
func (a *App) TriggerScan(ctx context.Context) (*cemetery.ScanResult, error) {
	if err := a.persistOperation(""); err != nil {
		return nil, err
	}
	result, err := a.service.TriggerScan(ctx)
	a.op.Result = result
	return result, a.op.Observe(err)
}

// GetZombieAlerts returns the alert set with its counters.
func (a *App) GetZombieAlerts() *cemetery.ZombieAlerts {
	return a.service.GetZombieAlerts()
}

// MarkAlertRead flags one alert as read.
func (a *App) MarkAlertRead(id string) error {
	if err := a.persistOperation(id); err != nil {
		return err
	}
	return a.op.Observe(a.service.MarkAlertRead(id))
}

// AcknowledgeAlert marks the alert read and its tombstone resurrected.
func (a *App) AcknowledgeAlert(id string) error {
	if err := a.persistOperation(id); err != nil {
		return err
	}
	return a.op.Observe(a.service.AcknowledgeAlert(id))
}

// ClearAllAlerts empties the alert set.
func (a *App) ClearAllAlerts() error {
	if err := a.persistOperation(""); err != nil {
		return err
	}
	return a.op.Observe(a.service.ClearAllAlerts())
}

// ImportAlerts reads alerts from a JSON or YAML file and records them.
// Returns the number of alerts recorded.
func (a *App) ImportAlerts(path string) (int, error) {
	if err := a.persistOperation(path); err != nil {
		return 0, err
	}
	alerts, err := ReadAlertsFile(path)
	if err != nil {
		return 0, a.op.Observe(err)
	}
	n, err := a.service.ImportAlerts(alerts)
	return n, a.op.Observe(err)
}

// Report renders the plain-text cemetery summary.
func (a *App) Report() (string, error) {
	return a.service.Report()
}

// GetHistory returns the most recent ledger entries.
func (a *App) GetHistory(limit int) ([]*cemetery.Operation, error) {
	return a.service.GetHistory(limit)
}

// SetupArchive generates the archive key pair.
func (a *App) SetupArchive(passphrase string) error {
	if a.encryptor == nil {
		return fmt.Errorf("archive encryption is disabled (encryption.type = none)")
	}
	return a.encryptor.Setup(passphrase)
}

// PushArchive uploads the registry to every archive now, instead of
// waiting for the next mutating command.
func (a *App) PushArchive() (int, error) {
	if len(a.vaults) == 0 {
		return 0, fmt.Errorf("no archives configured")
	}
	if err := a.persistOperation(""); err != nil {
		return 0, err
	}
	a.archived = true
	n, err := a.archiver.Push(a.op.ID)
	return n, a.op.Observe(err)
}

// NeedsUnlock reports whether pulling requires the archive passphrase.
func (a *App) NeedsUnlock() (bool, error) {
	return a.archiver.NeedsUnlock()
}

// PullArchive restores the registry from the first archive and moves the
// ledger past the archive's version. passphrase is only used when the
// archive is encrypted.
func (a *App) PullArchive(passphrase string) (int, error) {
	if len(a.vaults) == 0 {
		return 0, fmt.Errorf("no archives configured")
	}
	a.archived = true

	n, err := a.pull(passphrase)
	if perr := a.persistOperation(""); perr != nil {
		return n, errors.Join(err, perr)
	}
	return n, a.op.Observe(err)
}

func (a *App) pull(passphrase string) (int, error) {
	sealed, err := a.archiver.NeedsUnlock()
	if err != nil {
		return 0, fmt.Errorf("inspecting archive: %w", err)
	}

	var dec cemetery.DecryptionContext
	if sealed {
		if a.encryptor == nil {
			return 0, fmt.Errorf("archive is encrypted but encryption is disabled")
		}
		dec, err = a.encryptor.Unlock(passphrase)
		if err != nil {
			return 0, fmt.Errorf("unlocking archive: %w", err)
		}
	}

	remoteVersion, err := a.archiver.LatestVersion()
	if err != nil {
		return 0, fmt.Errorf("checking archive version: %w", err)
	}
	n, err := a.archiver.Pull(dec)
	if err != nil {
		return n, err
	}
	if err := a.db.AdvanceOperationID(remoteVersion); err != nil {
		return n, fmt.Errorf("advancing ledger: %w", err)
	}
	return n, nil
}

// Close finalizes the operation and closes all resources.
// For persisted operations it finishes the ledger entry and pushes the
// registry to the configured archives, versioned by the operation ID.
func (a *App) Close() error {
	var firstErr error

	if a.op.Persisted() {
		if err := a.db.FinishOperation(a.op.ID, a.op.Status, a.op.Result); err != nil {
			firstErr = fmt.Errorf("finishing operation: %w", err)
		}
		if err := a.archive(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if err := a.closeResources(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (a *App) archive() error {
	if a.archived || len(a.vaults) == 0 {
		return nil
	}
	if a.encryptor != nil && !a.encryptor.IsConfigured() {
		a.logger.Warn("registry not archived: encryption keys are not set up, run 'cemetery archive setup'")
		return nil
	}
	if _, err := a.archiver.Push(a.op.ID); err != nil {
		return fmt.Errorf("archiving registry: %w", err)
	}
	return nil
}

func (a *App) closeResources() error {
	var err error
	if a.db != nil {
		if cerr := a.db.Close(); cerr != nil {
			err = fmt.Errorf("closing database: %w", cerr)
		}
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return err
}
