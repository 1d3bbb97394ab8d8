// Package platform maps the host OS and architecture onto the tool
// binaries shipped in the asset cache.
package platform

import (
	"path"
	"runtime"
)

// Relative paths inside the asset cache, always slash separated.
const (
	AaptLinux64   = "prebuilt/linux/aapt_64"
	AaptLinux     = "prebuilt/linux/aapt"
	AaptMacOS64   = "prebuilt/macosx/aapt_64"
	AaptWindows64 = "prebuilt/windows/aapt_64.exe"
	AaptWindows   = "prebuilt/windows/aapt.exe"

	Dex2JarDir = "dex-tools-v2.4"
)

// Resolve returns the aapt binary for goos/goarch. Unknown combinations
// fall back to the 64-bit linux build.
func Resolve(goos, goarch string) string {
	switch goos {
	case "linux":
		if goarch == "amd64" {
			return AaptLinux64
		}
		return AaptLinux
	case "darwin":
		return AaptMacOS64
	case "windows":
		if goarch == "amd64" {
			return AaptWindows64
		}
		return AaptWindows
	default:
		return AaptLinux64
	}
}

// Current resolves the aapt binary for the running host.
func Current() string {
	return Resolve(runtime.GOOS, runtime.GOARCH)
}

// Dex2JarScript returns the dex2jar launcher script for goos.
func Dex2JarScript(goos string) string {
	if goos == "windows" {
		return path.Join(Dex2JarDir, "d2j-dex2jar.bat")
	}
	return path.Join(Dex2JarDir, "d2j-dex2jar.sh")
}

// ExecutableSuffix is ".exe" on windows and empty elsewhere.
func ExecutableSuffix(goos string) string {
	if goos == "windows" {
		return ".exe"
	}
	return ""
}
