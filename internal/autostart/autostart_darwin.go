//go:build darwin

package autostart

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cemetery-go/internal/cemetery"
)

const agentLabel = "com.codecorpses.cemetery"

// New returns the launchd agent for executable in ~/Library/LaunchAgents.
func New(executable string) (cemetery.Autostarter, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting home directory: %w", err)
	}
	path := filepath.Join(home, "Library", "LaunchAgents", agentLabel+".plist")
	return NewFileEntry(path, launchAgent(executable)), nil
}

func launchAgent(executable string) []byte {
	var exe strings.Builder
	xml.EscapeText(&exe, []byte(executable))

	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString(`<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">` + "\n")
	b.WriteString("<plist version=\"1.0\">\n<dict>\n")
	fmt.Fprintf(&b, "  <key>Label</key>\n  <string>%s</string>\n", agentLabel)
	b.WriteString("  <key>ProgramArguments</key>\n  <array>\n")
	fmt.Fprintf(&b, "    <string>%s</string>\n    <string>scan</string>\n", exe.String())
	b.WriteString("  </array>\n")
	b.WriteString("  <key>RunAtLoad</key>\n  <true/>\n")
	b.WriteString("</dict>\n</plist>\n")
	return []byte(b.String())
}
