//go:build unix

package assets

import (
	"errors"

	"golang.org/x/sys/unix"
)

// IsProcessRunning reports whether pid names a live process. Signal 0
// probes for existence; EPERM means it exists under another user.
func IsProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
