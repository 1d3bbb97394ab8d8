// Package version carries build metadata for apkext binaries.
package version

import (
	"os"
	"runtime/debug"
	"time"
)

// Version is the program version. It is also written to the asset cache
// marker, so a new release re-extracts the embedded tools.
// Overridden at link time with -ldflags "-X github.com/dmikushin/apkext/internal/version.Version=...".
var Version = "1.1.0"

// BuildTimestamp returns the VCS commit time recorded by the Go toolchain,
// falling back to the executable's modification time.
func BuildTimestamp() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.time" {
				if t, err := time.Parse(time.RFC3339, setting.Value); err == nil {
					return t.UTC().Format(time.RFC3339)
				}
			}
		}
	}
	if exePath, err := os.Executable(); err == nil {
		if stat, err := os.Stat(exePath); err == nil {
			return stat.ModTime().UTC().Format(time.RFC3339)
		}
	}
	return "unknown"
}
