//go:build windows

package autostart

import (
	"fmt"

	"golang.org/x/sys/windows/registry"

	"cemetery-go/internal/cemetery"
)

const runKey = `Software\Microsoft\Windows\CurrentVersion\Run`

// registryEntry is a value under the current user's Run key.
type registryEntry struct {
	name    string
	command string
}

// New returns the Run-key entry for executable.
func New(executable string) (cemetery.Autostarter, error) {
	return &registryEntry{name: "CodeCorpses", command: fmt.Sprintf(`"%s" scan`, executable)}, nil
}

func (r *registryEntry) Enable() error {
	k, err := registry.OpenKey(registry.CURRENT_USER, runKey, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("opening Run key: %w", err)
	}
	defer k.Close()
	if err := k.SetStringValue(r.name, r.command); err != nil {
		return fmt.Errorf("setting Run value: %w", err)
	}
	return nil
}

func (r *registryEntry) Disable() error {
	k, err := registry.OpenKey(registry.CURRENT_USER, runKey, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("opening Run key: %w", err)
	}
	defer k.Close()
	if err := k.DeleteValue(r.name); err != nil && err != registry.ErrNotExist {
		return fmt.Errorf("deleting Run value: %w", err)
	}
	return nil
}
