// Package version reports the build version of the cemetery binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set with -ldflags "-X cemetery-go/internal/version.Version=v1.2.3".
var (
	Version = ""
	Commit  = ""
)

// Get returns the version, falling back to the module version recorded in
// the binary and then to "dev".
func Get() string {
	if Version != "" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}

// String returns the one-line version banner.
func String() string {
	s := fmt.Sprintf("cemetery %s", Get())
	if Commit != "" {
		s += fmt.Sprintf(" (%s)", Commit)
	}
	return s + fmt.Sprintf(" %s/%s", runtime.GOOS, runtime.GOARCH)
}
