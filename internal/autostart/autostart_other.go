//go:build !linux && !darwin && !windows

package autostart

import "cemetery-go/internal/cemetery"

// New returns an Autostarter whose methods fail with ErrUnsupported.
func New(string) (cemetery.Autostarter, error) {
	return unsupported{}, nil
}
