//go:build linux

package autostart

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cemetery-go/internal/cemetery"
)

const desktopFile = "code-corpses.desktop"

// New returns the XDG autostart entry for executable. The entry lives in
// $XDG_CONFIG_HOME/autostart, falling back to ~/.config/autostart.
func New(executable string) (cemetery.Autostarter, error) {
	dir, err := autostartDir()
	if err != nil {
		return nil, err
	}
	return NewFileEntry(filepath.Join(dir, desktopFile), desktopEntry(executable)), nil
}

func autostartDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "autostart"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", "autostart"), nil
}

// desktopEntry renders a .desktop file that runs a scan at login.
// Exec arguments containing spaces are double-quoted, as desktop launchers expect.
func desktopEntry(executable string) []byte {
	exec := executable
	if strings.ContainsAny(exec, " \t\"") {
		exec = `"` + strings.ReplaceAll(exec, `"`, `\"`) + `"`
	}
	var b strings.Builder
	b.WriteString("[Desktop Entry]\n")
	b.WriteString("Type=Application\n")
	fmt.Fprintf(&b, "Name=%s\n", AppName)
	b.WriteString("Comment=Scan for abandoned repositories\n")
	fmt.Fprintf(&b, "Exec=%s scan\n", exec)
	b.WriteString("Terminal=false\n")
	b.WriteString("X-GNOME-Autostart-enabled=true\n")
	return []byte(b.String())
}
