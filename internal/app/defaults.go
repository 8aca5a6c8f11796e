package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - CEMETERY_CONFIG_PATH: config file location (default: ~/.config/cemetery.toml)
//   - CEMETERY_HOME: base directory for cemetery data (default: ~/.local/share/cemetery)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path":  configPath,
		"base_dir":     baseDir,
		"cemetery_dir": filepath.Join(baseDir, "cemetery"),
		"log_dir":      filepath.Join(baseDir, "log"),
	}, nil
}

// getConfigPath returns the config file path, checking CEMETERY_CONFIG_PATH first,
// then falling back to the default ~/.config/cemetery.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("CEMETERY_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "cemetery.toml"), nil
}

// getBaseDir returns the base directory for cemetery data, checking CEMETERY_HOME first,
// then falling back to the XDG default ~/.local/share/cemetery.
func getBaseDir() (string, error) {
	if path := os.Getenv("CEMETERY_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "cemetery"), nil
}
