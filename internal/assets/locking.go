package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	apkerrors "github.com/dmikushin/apkext/pkg/apk/errors"
)

const (
	lockPollInterval = 100 * time.Millisecond
	lockWriteGrace   = 5 * time.Second
)

// lockOwner returns the PID recorded in the lock file.
func lockOwner(paths *CachePaths) (int, error) {
	data, err := os.ReadFile(paths.LockFile())
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// TryAcquireLock attempts to take the extraction lock for the cache. It
// returns false without error when a live process holds it. Locks left
// behind by dead processes, or with unreadable contents, are removed.
func TryAcquireLock(paths *CachePaths, logger hclog.Logger) (bool, error) {
	lockPath := paths.LockFile()

	if info, err := os.Stat(lockPath); err == nil {
		logger.Debug("🔍 Lock file exists, checking if it's stale...")
		pid, err := lockOwner(paths)
		switch {
		case err != nil && time.Since(info.ModTime()) < lockWriteGrace:
			// The owner has created the file but not written its PID yet.
			logger.Debug("🔒 Lock file is being written")
			return false, nil
		case err != nil:
			logger.Info("🧹 Removing unreadable lock file", "error", err)
			os.Remove(lockPath)
		case !IsProcessRunning(pid):
			logger.Info("🧹 Removing stale lock from dead process", "pid", pid)
			os.Remove(lockPath)
		default:
			logger.Debug("🔒 Lock held by active process", "pid", pid)
			return false, nil
		}
	}

	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			logger.Debug("🔒 Lost the race for the extraction lock")
			return false, nil
		}
		return false, err
	}

	pid := os.Getpid()
	if _, err := fmt.Fprintf(file, "%d\n", pid); err != nil {
		file.Close()
		os.Remove(lockPath)
		return false, err
	}
	if err := file.Close(); err != nil {
		os.Remove(lockPath)
		return false, err
	}

	logger.Debug("🔒 Acquired extraction lock", "pid", pid)
	return true, nil
}

// ReleaseLock removes the extraction lock.
func ReleaseLock(paths *CachePaths, logger hclog.Logger) {
	if err := os.Remove(paths.LockFile()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Debug("⚠️ Failed to remove lock file", "error", err)
		return
	}
	logger.Debug("🔓 Released extraction lock")
}

// WaitForExtraction blocks until the lock disappears, its owner dies, the
// timeout elapses or ctx is done.
func WaitForExtraction(ctx context.Context, paths *CachePaths, timeout time.Duration, logger hclog.Logger) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	start := time.Now()
	lastReport := start
	for {
		info, err := os.Stat(paths.LockFile())
		if errors.Is(err, fs.ErrNotExist) {
			logger.Debug("✅ Extraction lock released")
			return nil
		}
		pid, ownerErr := lockOwner(paths)
		if ownerErr == nil && !IsProcessRunning(pid) {
			logger.Debug("💀 Lock owner is gone", "pid", pid)
			return nil
		}
		if ownerErr != nil && err == nil && time.Since(info.ModTime()) >= lockWriteGrace {
			logger.Debug("💀 Lock file has no owner", "error", ownerErr)
			return nil
		}

		if time.Since(lastReport) >= time.Second {
			logger.Debug("⏳ Waiting for extraction to complete...",
				"elapsed", time.Since(start).Round(time.Second), "timeout", timeout)
			lastReport = time.Now()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("%w after %s", apkerrors.ErrLockTimeout, timeout)
		case <-ticker.C:
		}
	}
}
