// Package assets materializes the embedded tool payloads (apktool, the
// procyon decompiler, dex2jar and the aapt prebuilts) into a versioned
// on-disk cache that the pipelines invoke them from.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	apkerrors "github.com/dmikushin/apkext/pkg/apk/errors"
	"github.com/dmikushin/apkext/pkg/payload/operations"
	_ "github.com/dmikushin/apkext/pkg/payload/operations/bundle"
	_ "github.com/dmikushin/apkext/pkg/payload/operations/compress"
)

// DiskSpaceMultiplier is applied to the bundle size to estimate the space
// an extraction needs.
const DiskSpaceMultiplier = 2

// DefaultLockTimeout bounds the wait for another process's extraction.
const DefaultLockTimeout = 2 * time.Minute

// Options configures a Provisioner.
type Options struct {
	// Root is the persistent cache directory. Ignored when Ephemeral.
	Root string
	// Ephemeral extracts into a fresh temporary directory that Cleanup
	// removes.
	Ephemeral bool
	// Version is written to the marker; a mismatch forces re-extraction.
	Version string
	// Required adds cache-relative files to the manifest's required list.
	Required    []string
	LockTimeout time.Duration
	Logger      hclog.Logger

	// GOOS selects the permission rules, defaulting to runtime.GOOS.
	GOOS string
}

// Provisioner owns the lifecycle of one asset cache.
type Provisioner struct {
	bundle fs.FS
	opts   Options
	paths  *CachePaths
	logger hclog.Logger
}

// Cache describes a materialized asset cache.
type Cache struct {
	Root    string
	Version string
	// Refreshed is true when this call extracted the payloads.
	Refreshed bool
}

// Status describes the cache without modifying it.
type Status struct {
	Root       string
	Ephemeral  bool
	Version    string
	Marker     string
	Stale      bool
	Reason     string
	BundleSize int64
}

// NewProvisioner prepares a provisioner for bundle. For an ephemeral cache
// the temporary directory is created here.
func NewProvisioner(bundle fs.FS, opts Options) (*Provisioner, error) {
	if opts.Version == "" {
		return nil, fmt.Errorf("%w: version is required", apkerrors.ErrProvision)
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = DefaultLockTimeout
	}
	if opts.GOOS == "" {
		opts.GOOS = runtime.GOOS
	}

	if opts.Ephemeral {
		root, err := os.MkdirTemp("", "apkext-assets-")
		if err != nil {
			return nil, fmt.Errorf("%w: creating temporary cache: %v", apkerrors.ErrProvision, err)
		}
		opts.Root = root
	} else if opts.Root == "" {
		return nil, fmt.Errorf("%w: cache directory is required", apkerrors.ErrProvision)
	}

	return &Provisioner{
		bundle: bundle,
		opts:   opts,
		paths:  NewCachePaths(opts.Root),
		logger: opts.Logger,
	}, nil
}

// Paths returns the cache's path helper.
func (p *Provisioner) Paths() *CachePaths {
	return p.paths
}

func provisionErr(action string, err error) error {
	return fmt.Errorf("%w: %s: %v", apkerrors.ErrProvision, action, err)
}

// Materialize makes sure the cache holds every payload for this version,
// extracting them when the cache is missing, incomplete or from another
// version. Concurrent callers coordinate through the lock file; the one
// that loses waits and re-checks.
func (p *Provisioner) Materialize(ctx context.Context) (*Cache, error) {
	manifest, err := LoadManifest(p.bundle)
	if err != nil {
		return nil, provisionErr("loading payload manifest", err)
	}
	if err := os.MkdirAll(p.paths.Root(), manifest.dirMode); err != nil {
		return nil, provisionErr("creating cache directory", err)
	}

	current := &Cache{Root: p.paths.Root(), Version: p.opts.Version}
	reason := p.staleReason(manifest)
	if reason == "" {
		p.logger.Debug("✅ Asset cache is current", "root", p.paths.Root(), "version", p.opts.Version)
		return current, nil
	}
	p.logger.Info("📦 Asset cache needs extraction", "root", p.paths.Root(), "reason", reason)

	start := time.Now()
	for {
		acquired, err := TryAcquireLock(p.paths, p.logger)
		if err != nil {
			return nil, provisionErr("acquiring extraction lock", err)
		}
		if acquired {
			break
		}

		remaining := p.opts.LockTimeout - time.Since(start)
		if remaining <= 0 {
			return nil, fmt.Errorf("%w after %s", apkerrors.ErrLockTimeout, p.opts.LockTimeout)
		}
		if err := WaitForExtraction(ctx, p.paths, remaining, p.logger); err != nil {
			return nil, err
		}
		if p.staleReason(manifest) == "" {
			p.logger.Debug("✅ Another process completed the extraction")
			return current, nil
		}
	}
	defer ReleaseLock(p.paths, p.logger)

	if p.staleReason(manifest) == "" {
		return current, nil
	}
	if err := p.extract(ctx, manifest); err != nil {
		return nil, err
	}
	current.Refreshed = true
	return current, nil
}

// staleReason returns why the cache must be re-extracted, or "" when it is
// current.
func (p *Provisioner) staleReason(m *Manifest) string {
	for _, rel := range p.required(m) {
		if _, err := os.Stat(p.paths.Resolve(rel)); err != nil {
			return "missing " + rel
		}
	}

	data, err := os.ReadFile(p.paths.VersionFile())
	if err != nil {
		return "version marker missing"
	}
	if marker := strings.TrimSpace(string(data)); marker != p.opts.Version {
		return fmt.Sprintf("version marker %q does not match %q", marker, p.opts.Version)
	}
	return ""
}

func (p *Provisioner) required(m *Manifest) []string {
	required := make([]string, 0, len(m.Required)+len(p.opts.Required))
	required = append(required, m.Required...)
	return append(required, p.opts.Required...)
}

func (p *Provisioner) extract(ctx context.Context, m *Manifest) error {
	p.checkDiskSpace(m)

	// Drop the marker first so an interrupted extraction is never trusted.
	if err := os.Remove(p.paths.VersionFile()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return provisionErr("removing version marker", err)
	}

	for _, tool := range m.Tools {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.logger.Debug("📤 Extracting payload", "tool", tool.Name, "payload", tool.Payload)

		var err error
		if ops, ok := tool.Chain(); ok {
			err = p.unpackPayload(m, tool, ops)
		} else {
			err = p.copyPayload(m, tool)
		}
		if err != nil {
			return err
		}
	}

	if err := os.MkdirAll(p.paths.Framework(), m.dirMode); err != nil {
		return provisionErr("creating framework directory", err)
	}
	if err := p.writeMarker(m); err != nil {
		return provisionErr("writing version marker", err)
	}

	p.logger.Info("✅ Asset cache extracted", "root", p.paths.Root(), "version", p.opts.Version)
	return nil
}

func (p *Provisioner) openPayload(tool ToolPayload) (fs.File, error) {
	f, err := p.bundle.Open(tool.Payload)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: embedded payload %s for %s is missing; run `go generate ./internal/assets` before building",
			apkerrors.ErrProvision, tool.Payload, tool.Name)
	}
	if err != nil {
		return nil, provisionErr("opening payload "+tool.Payload, err)
	}
	return f, nil
}

func (p *Provisioner) copyPayload(m *Manifest, tool ToolPayload) error {
	src, err := p.openPayload(tool)
	if err != nil {
		return err
	}
	defer src.Close()

	dest := p.paths.Resolve(tool.Payload)
	if err := os.MkdirAll(filepath.Dir(dest), m.dirMode); err != nil {
		return provisionErr("creating directory for "+tool.Payload, err)
	}
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, m.fileMode)
	if err != nil {
		return provisionErr("writing "+tool.Payload, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return provisionErr("writing "+tool.Payload, err)
	}
	if err := out.Close(); err != nil {
		return provisionErr("writing "+tool.Payload, err)
	}

	if err := os.Chmod(dest, p.modeFor(m, tool.Payload)); err != nil {
		return provisionErr("setting permissions on "+tool.Payload, err)
	}
	return nil
}

func (p *Provisioner) unpackPayload(m *Manifest, tool ToolPayload, ops []uint8) error {
	src, err := p.openPayload(tool)
	if err != nil {
		return err
	}
	defer src.Close()

	err = operations.Extract(src, ops, p.paths.Root(), operations.UnpackOptions{
		DirMode: m.dirMode,
		FileMode: func(name string, _ fs.FileMode) fs.FileMode {
			return p.modeFor(m, name)
		},
	})
	if err != nil {
		return provisionErr(fmt.Sprintf("unpacking %s (%s)", tool.Payload, operations.ChainString(ops)), err)
	}
	return nil
}

// modeFor applies the executable rule: shell scripts and prebuilt binaries
// are made executable on POSIX hosts.
func (p *Provisioner) modeFor(m *Manifest, rel string) fs.FileMode {
	if p.opts.GOOS == "windows" {
		return m.fileMode
	}
	if path.Ext(rel) == ".sh" || strings.HasPrefix(rel, "prebuilt/") {
		return m.execMode
	}
	return m.fileMode
}

// writeMarker writes the version marker through a temporary file so the
// marker either holds the full version or does not exist.
func (p *Provisioner) writeMarker(m *Manifest) error {
	tmp := p.paths.VersionFile() + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, m.fileMode)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(p.opts.Version + "\n"); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, p.paths.VersionFile())
}

func (p *Provisioner) bundleSize(m *Manifest) int64 {
	var total int64
	for _, tool := range m.Tools {
		if info, err := fs.Stat(p.bundle, tool.Payload); err == nil {
			total += info.Size()
		}
	}
	return total
}

func (p *Provisioner) checkDiskSpace(m *Manifest) {
	needed := p.bundleSize(m) * DiskSpaceMultiplier
	available, err := availableDiskSpace(p.paths.Root())
	if err != nil {
		p.logger.Warn("⚠️ Could not determine free disk space", "path", p.paths.Root(), "error", err)
		return
	}
	if available < needed {
		p.logger.Warn("⚠️ Low disk space for asset extraction",
			"available", available, "needed", needed, "path", p.paths.Root())
	}
}

// Status inspects the cache.
func (p *Provisioner) Status() (Status, error) {
	manifest, err := LoadManifest(p.bundle)
	if err != nil {
		return Status{}, provisionErr("loading payload manifest", err)
	}

	st := Status{
		Root:       p.paths.Root(),
		Ephemeral:  p.opts.Ephemeral,
		Version:    p.opts.Version,
		BundleSize: p.bundleSize(manifest),
	}
	if data, err := os.ReadFile(p.paths.VersionFile()); err == nil {
		st.Marker = strings.TrimSpace(string(data))
	}
	st.Reason = p.staleReason(manifest)
	st.Stale = st.Reason != ""
	return st, nil
}

// Remove deletes the cache contents while holding the extraction lock.
func (p *Provisioner) Remove(ctx context.Context) error {
	if !p.paths.Exists() {
		return nil
	}

	start := time.Now()
	for {
		acquired, err := TryAcquireLock(p.paths, p.logger)
		if err != nil {
			return provisionErr("acquiring extraction lock", err)
		}
		if acquired {
			break
		}
		remaining := p.opts.LockTimeout - time.Since(start)
		if remaining <= 0 {
			return fmt.Errorf("%w after %s", apkerrors.ErrLockTimeout, p.opts.LockTimeout)
		}
		if err := WaitForExtraction(ctx, p.paths, remaining, p.logger); err != nil {
			return err
		}
	}

	entries, err := os.ReadDir(p.paths.Root())
	if err != nil {
		ReleaseLock(p.paths, p.logger)
		return provisionErr("listing cache", err)
	}
	for _, entry := range entries {
		if entry.Name() == LockFile {
			continue
		}
		if err := os.RemoveAll(filepath.Join(p.paths.Root(), entry.Name())); err != nil {
			ReleaseLock(p.paths, p.logger)
			return provisionErr("removing "+entry.Name(), err)
		}
	}
	ReleaseLock(p.paths, p.logger)

	if err := os.Remove(p.paths.Root()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		p.logger.Debug("⚠️ Cache directory left in place", "error", err)
	}
	p.logger.Info("🧹 Removed asset cache", "root", p.paths.Root())
	return nil
}

// Cleanup removes an ephemeral cache. It is a no-op for persistent caches.
func (p *Provisioner) Cleanup() error {
	if !p.opts.Ephemeral {
		return nil
	}
	p.logger.Debug("🧹 Removing ephemeral asset cache", "root", p.paths.Root())
	return os.RemoveAll(p.paths.Root())
}
