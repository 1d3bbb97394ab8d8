package assets

import (
	"os"
	"path/filepath"
)

// Files kept at the cache root next to the tools.
const (
	VersionFile = ".version"
	LockFile    = ".lock"
)

// CachePaths resolves locations inside one asset cache directory.
type CachePaths struct {
	root string
}

// NewCachePaths creates CachePaths for root.
func NewCachePaths(root string) *CachePaths {
	return &CachePaths{root: root}
}

// Root returns the cache directory.
func (p *CachePaths) Root() string {
	return p.root
}

// Resolve maps a slash-separated cache-relative path to a filesystem path.
func (p *CachePaths) Resolve(rel string) string {
	return filepath.Join(p.root, filepath.FromSlash(rel))
}

// VersionFile returns the version marker path. The marker is the commit
// point of an extraction: it is written after every payload.
func (p *CachePaths) VersionFile() string {
	return filepath.Join(p.root, VersionFile)
}

// LockFile returns the extraction lock path.
func (p *CachePaths) LockFile() string {
	return filepath.Join(p.root, LockFile)
}

// Framework returns apktool's framework directory.
func (p *CachePaths) Framework() string {
	return filepath.Join(p.root, "framework")
}

// Exists reports whether the cache directory exists.
func (p *CachePaths) Exists() bool {
	info, err := os.Stat(p.root)
	return err == nil && info.IsDir()
}
