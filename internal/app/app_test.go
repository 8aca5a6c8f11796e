package app

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cemetery-go/internal/cemetery"
	"cemetery-go/internal/config"
	"cemetery-go/internal/database"
	"cemetery-go/internal/encryption"
)

// newTestConfig returns a config for a host whose documents, ledger and
// archive all live under one temp directory. The workspace holds one
// stale project and one active one.
func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()

	cfg := config.NewConfig("test-host", base)
	cfg.Encryption = config.EncryptionConfig{Type: "test"}
	cfg.Scanner = config.ScannerConfig{Source: "local", Workspace: filepath.Join(base, "workspace")}
	cfg.Archives = []config.ArchiveConfig{
		{Type: "filesystem", Name: "shared", FSRoot: filepath.Join(base, "archive")},
	}

	for _, dir := range []string{cfg.CemeteryDir, cfg.Archives[0].FSRoot} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
	}

	old := time.Now().AddDate(-1, -2, 0)
	writeProjectFile(t, filepath.Join(cfg.Scanner.Workspace, "legacy", "main.go"), "package main\n", old)
	writeProjectFile(t, filepath.Join(cfg.Scanner.Workspace, "fresh", "app.go"), "package app\n", time.Now())
	return cfg
}

func writeProjectFile(t *testing.T, path, content string, modTime time.Time) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, modTime, modTime); err != nil {
		t.Fatal(err)
	}
}

func openApp(t *testing.T, cfg *config.Config, operation string, opts ...Option) *App {
	t.Helper()
	opts = append([]Option{WithStderr(io.Discard)}, opts...)
	a, err := NewApp(context.Background(), cfg, operation, opts...)
	if err != nil {
		t.Fatalf("NewApp(%s) error = %v", operation, err)
	}
	return a
}

func closeApp(t *testing.T, a *App) {
	t.Helper()
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func history(t *testing.T, cfg *config.Config) []*cemetery.Operation {
	t.Helper()
	a := openApp(t, cfg, "history")
	defer closeApp(t, a)
	ops, err := a.GetHistory(10)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	return ops
}

func TestNewApp_InvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:    "missing host id",
			mutate:  func(c *config.Config) { c.HostID = "" },
			wantErr: "host_id is required",
		},
		{
			name:    "missing log dir",
			mutate:  func(c *config.Config) { c.LogDir = "" },
			wantErr: "log_dir is required",
		},
		{
			name:    "missing cemetery dir",
			mutate:  func(c *config.Config) { c.CemeteryDir = filepath.Join(c.CemeteryDir, "absent") },
			wantErr: "cemetery directory not found",
		},
		{
			name:    "unknown source",
			mutate:  func(c *config.Config) { c.Scanner.Source = "svn" },
			wantErr: "unknown scanner source",
		},
		{
			name:    "unknown archive type",
			mutate:  func(c *config.Config) { c.Archives[0].Type = "tape" },
			wantErr: "unknown archive type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConfig(t)
			tt.mutate(cfg)

			_, err := NewApp(context.Background(), cfg, OpScan, WithStderr(io.Discard))
			if err == nil {
				t.Fatal("NewApp() expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("NewApp() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestApp_ScanIsRecorded(t *testing.T) {
	cfg := newTestConfig(t)

	a := openApp(t, cfg, OpScan)
	result, err := a.TriggerScan(context.Background())
	if err != nil {
		t.Fatalf("TriggerScan() error = %v", err)
	}
	if result.Scanned != 2 || result.Zombies != 1 {
		t.Errorf("TriggerScan() = %+v, want 2 scanned, 1 zombie", result)
	}
	closeApp(t, a)

	ops := history(t, cfg)
	if len(ops) != 1 {
		t.Fatalf("history has %d entries, want 1", len(ops))
	}
	op := ops[0]
	if op.Operation != OpScan || op.Status != database.StatusCompleted {
		t.Errorf("operation = %s/%s, want %s/%s", op.Operation, op.Status, OpScan, database.StatusCompleted)
	}
	if op.Scanned != 2 || op.Zombies != 1 {
		t.Errorf("recorded result = %d/%d, want 2/1", op.Scanned, op.Zombies)
	}

	b := openApp(t, cfg, "tombstones")
	defer closeApp(t, b)
	tombstones := b.ListRecentTombstones(10)
	if len(tombstones) != 1 || tombstones[0].ID != "local:legacy" {
		t.Errorf("tombstones = %+v, want local:legacy", tombstones)
	}
}

func TestApp_ReadOnlyCommandsAreNotRecorded(t *testing.T) {
	cfg := newTestConfig(t)

	a := openApp(t, cfg, "stats")
	stats, err := a.GetStats()
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}
	if stats.LastScan != cemetery.UnknownLastScan {
		t.Errorf("LastScan = %q, want %q", stats.LastScan, cemetery.UnknownLastScan)
	}
	if _, err := a.Report(); err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	closeApp(t, a)

	if ops := history(t, cfg); len(ops) != 0 {
		t.Errorf("history has %d entries, want 0", len(ops))
	}
}

func TestApp_UpdateSetting(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr bool
		check   func(*cemetery.Config) bool
	}{
		{
			name:  "target org",
			key:   "target_org",
			value: "acme",
			check: func(c *cemetery.Config) bool { return c.TargetOrg == "acme" },
		},
		{
			name:  "scan interval",
			key:   "scan_interval",
			value: "600",
			check: func(c *cemetery.Config) bool { return c.ScanInterval == 600 },
		},
		{name: "empty org", key: "target_org", value: "", wantErr: true},
		{name: "zero interval", key: "scan_interval", value: "0", wantErr: true},
		{name: "non-numeric interval", key: "scan_interval", value: "hourly", wantErr: true},
		{name: "unknown key", key: "theme", value: "dark", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConfig(t)

			a := openApp(t, cfg, OpSettingsSave)
			err := a.UpdateSetting(tt.key, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("UpdateSetting() error = %v, wantErr %v", err, tt.wantErr)
			}
			closeApp(t, a)

			ops := history(t, cfg)
			if len(ops) != 1 {
				t.Fatalf("history has %d entries, want 1", len(ops))
			}
			wantStatus := database.StatusCompleted
			if tt.wantErr {
				wantStatus = database.StatusFailed
			}
			if ops[0].Status != wantStatus {
				t.Errorf("status = %q, want %q", ops[0].Status, wantStatus)
			}

			if tt.check == nil {
				return
			}
			b := openApp(t, cfg, "config")
			defer closeApp(t, b)
			settings, err := b.LoadSettings()
			if err != nil {
				t.Fatalf("LoadSettings() error = %v", err)
			}
			if !tt.check(settings) {
				t.Errorf("settings after update = %+v", settings)
			}
		})
	}
}

func TestApp_SettingsDir(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.SettingsDir = filepath.Join(t.TempDir(), "settings")
	if err := os.MkdirAll(cfg.SettingsDir, 0755); err != nil {
		t.Fatal(err)
	}

	a := openApp(t, cfg, OpTokenSet)
	if err := a.UpdateToken("ghp_secret"); err != nil {
		t.Fatalf("UpdateToken() error = %v", err)
	}
	closeApp(t, a)

	if _, err := os.Stat(filepath.Join(cfg.SettingsDir, cemetery.ConfigDocument)); err != nil {
		t.Errorf("settings not written to settings_dir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.CemeteryDir, cemetery.ConfigDocument)); !os.IsNotExist(err) {
		t.Errorf("settings should not be written to cemetery_dir, stat error = %v", err)
	}
}

type fakeAutostarter struct {
	enabled bool
	err     error
}

func (f *fakeAutostarter) Enable() error {
	if f.err != nil {
		return f.err
	}
	f.enabled = true
	return nil
}

func (f *fakeAutostarter) Disable() error {
	if f.err != nil {
		return f.err
	}
	f.enabled = false
	return nil
}

func TestApp_SetAutoStart(t *testing.T) {
	cfg := newTestConfig(t)
	starter := &fakeAutostarter{}

	a := openApp(t, cfg, OpAutoStart, WithAutostarter(starter))
	if err := a.SetAutoStart(true); err != nil {
		t.Fatalf("SetAutoStart(true) error = %v", err)
	}
	settings, err := a.LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	closeApp(t, a)

	if !starter.enabled {
		t.Error("autostarter not enabled")
	}
	if !settings.AutoStart {
		t.Error("auto_start not recorded")
	}
}

func TestApp_SetAutoStart_RegistrationFailureKeepsSetting(t *testing.T) {
	cfg := newTestConfig(t)
	starter := &fakeAutostarter{err: errors.New("no session bus")}

	a := openApp(t, cfg, OpAutoStart, WithAutostarter(starter))
	if err := a.SetAutoStart(true); err == nil {
		t.Fatal("SetAutoStart() expected error")
	}
	settings, err := a.LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	closeApp(t, a)

	if settings.AutoStart {
		t.Error("auto_start recorded although registration failed")
	}
}

func TestApp_AlertCommands(t *testing.T) {
	cfg := newTestConfig(t)
	path := filepath.Join(t.TempDir(), "alerts.yaml")
	data := `alerts:
  - id: a1
    corpse_repo: local:legacy
    corpse_path: main.go
    zombie_repo: acme/reborn
    zombie_path: cmd/main.go
    similarity: 0.9
    resurrection_type: copy
    confidence: 0.8
    detected_at: 2025-05-30T10:00:00Z
  - id: a2
    corpse_repo: acme/other
    zombie_repo: acme/elsewhere
    similarity: 0.5
    confidence: 0.5
    detected_at: 2025-05-31T10:00:00Z
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	scan := openApp(t, cfg, OpScan)
	if _, err := scan.TriggerScan(context.Background()); err != nil {
		t.Fatalf("TriggerScan() error = %v", err)
	}
	closeApp(t, scan)

	imp := openApp(t, cfg, OpAlertImport)
	n, err := imp.ImportAlerts(path)
	if err != nil {
		t.Fatalf("ImportAlerts() error = %v", err)
	}
	if n != 2 {
		t.Errorf("ImportAlerts() = %d, want 2", n)
	}
	closeApp(t, imp)

	ack := openApp(t, cfg, OpAlertAck)
	if err := ack.AcknowledgeAlert("a1"); err != nil {
		t.Fatalf("AcknowledgeAlert() error = %v", err)
	}
	alerts := ack.GetZombieAlerts()
	tombstones := ack.ListRecentTombstones(10)
	closeApp(t, ack)

	if alerts.TotalAlerts != 2 || alerts.UnreadCount != 1 {
		t.Errorf("alerts = %d total, %d unread, want 2/1", alerts.TotalAlerts, alerts.UnreadCount)
	}
	if len(tombstones) != 1 || tombstones[0].ResurrectedTo == nil || *tombstones[0].ResurrectedTo != "acme/reborn/cmd/main.go" {
		t.Errorf("tombstone not resurrected: %+v", tombstones)
	}

	clear := openApp(t, cfg, OpAlertClear)
	if err := clear.ClearAllAlerts(); err != nil {
		t.Fatalf("ClearAllAlerts() error = %v", err)
	}
	alerts = clear.GetZombieAlerts()
	closeApp(t, clear)

	if alerts.TotalAlerts != 0 || alerts.LastCheck == nil {
		t.Errorf("after clear: %d alerts, last_check %v", alerts.TotalAlerts, alerts.LastCheck)
	}

	ops := history(t, cfg)
	if len(ops) != 4 {
		t.Errorf("history has %d entries, want 4", len(ops))
	}
}

func TestApp_ArchivePushedOnClose(t *testing.T) {
	cfg := newTestConfig(t)

	a := openApp(t, cfg, OpScan)
	if _, err := a.TriggerScan(context.Background()); err != nil {
		t.Fatalf("TriggerScan() error = %v", err)
	}
	closeApp(t, a)

	sealed := filepath.Join(cfg.Archives[0].FSRoot, cfg.HostID)
	entries, err := os.ReadDir(sealed)
	if err != nil {
		t.Fatalf("archive not written: %v", err)
	}
	if len(entries) == 0 {
		t.Error("archive directory is empty")
	}
}

func TestApp_ArchiveSkippedWithoutKeys(t *testing.T) {
	cfg := newTestConfig(t)
	keys := t.TempDir()
	cfg.Encryption = config.EncryptionConfig{
		Type:           "age",
		PublicKeyPath:  filepath.Join(keys, "cemetery.pub"),
		PrivateKeyPath: filepath.Join(keys, "cemetery.key"),
	}

	a := openApp(t, cfg, OpTokenSet)
	if err := a.UpdateToken("ghp_secret"); err != nil {
		t.Fatalf("UpdateToken() error = %v", err)
	}
	closeApp(t, a)

	data, err := os.ReadFile(filepath.Join(cfg.LogDir, LogFileName))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "registry not archived") {
		t.Errorf("expected skip warning in log, got %q", data)
	}
}

func TestApp_ArchivePullCatchesUpNewHost(t *testing.T) {
	cfg := newTestConfig(t)

	a := openApp(t, cfg, OpScan)
	if _, err := a.TriggerScan(context.Background()); err != nil {
		t.Fatalf("TriggerScan() error = %v", err)
	}
	closeApp(t, a)

	// A second machine shares the archive but starts with an empty ledger.
	other := config.NewConfig(cfg.HostID, t.TempDir())
	other.Encryption = cfg.Encryption
	other.Scanner = cfg.Scanner
	other.Archives = cfg.Archives
	if err := os.MkdirAll(other.CemeteryDir, 0755); err != nil {
		t.Fatal(err)
	}

	_, err := NewApp(context.Background(), other, "stats", WithStderr(io.Discard))
	if err == nil || !strings.Contains(err.Error(), "behind the archive") {
		t.Fatalf("NewApp() error = %v, want behind the archive", err)
	}

	wrong := openApp(t, other, OpArchivePull)
	if _, err := wrong.PullArchive("wrong"); !errors.Is(err, encryption.ErrWrongPassphrase) {
		t.Errorf("PullArchive(wrong) error = %v, want ErrWrongPassphrase", err)
	}
	closeApp(t, wrong)

	pull := openApp(t, other, OpArchivePull)
	needsUnlock, err := pull.NeedsUnlock()
	if err != nil {
		t.Fatalf("NeedsUnlock() error = %v", err)
	}
	if !needsUnlock {
		t.Error("NeedsUnlock() = false for a sealed archive")
	}
	n, err := pull.PullArchive("secret")
	if err != nil {
		t.Fatalf("PullArchive() error = %v", err)
	}
	if n < 2 {
		t.Errorf("PullArchive() = %d documents, want at least 2", n)
	}
	closeApp(t, pull)

	b := openApp(t, other, "stats")
	defer closeApp(t, b)
	stats, err := b.GetStats()
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}
	if stats.TotalAssets != 2 || stats.TotalTombstones != 1 {
		t.Errorf("stats after pull = %+v", stats)
	}
}

func TestApp_SetupArchiveDisabled(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Encryption = config.EncryptionConfig{Type: "none"}

	a := openApp(t, cfg, OpArchiveSetup)
	defer closeApp(t, a)
	if err := a.SetupArchive("secret"); err == nil {
		t.Error("SetupArchive() expected error when encryption is disabled")
	}
}
