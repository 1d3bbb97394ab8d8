//go:build !unix && !windows

package assets

// IsProcessRunning cannot probe other processes here, so every lock owner
// is treated as alive and stale locks expire through the wait timeout.
func IsProcessRunning(pid int) bool {
	return pid > 0
}
