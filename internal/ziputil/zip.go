// Package ziputil reads individual entries out of ZIP containers such as
// APKs and JARs.
package ziputil

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrEntryNotFound is returned when the requested entry is absent.
var ErrEntryNotFound = errors.New("zip entry not found")

// ExtractEntry copies the entry named name to dest, creating dest's parent
// directory. The match is exact and case-sensitive.
func ExtractEntry(archive, name, dest string) error {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("opening %s: %w", archive, err)
	}
	defer zr.Close()

	f := findEntry(&zr.Reader, name)
	if f == nil {
		return fmt.Errorf("%w: %s in %s", ErrEntryNotFound, name, archive)
	}
	return writeEntry(f, dest)
}

// ExtractPrefix copies every file entry whose name starts with prefix into
// destDir, keeping the entry's path relative to the archive root. It
// returns the number of files written. An empty prefix extracts everything.
func ExtractPrefix(archive, prefix, destDir string) (int, error) {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", archive, err)
	}
	defer zr.Close()

	count := 0
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, prefix) || f.FileInfo().IsDir() {
			continue
		}
		name := filepath.FromSlash(f.Name)
		if !filepath.IsLocal(name) {
			return count, fmt.Errorf("zip entry %q escapes destination", f.Name)
		}
		if err := writeEntry(f, filepath.Join(destDir, name)); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func findEntry(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func writeEntry(f *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("reading %s: %w", f.Name, err)
	}
	defer rc.Close()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("extracting %s: %w", f.Name, err)
	}
	return out.Close()
}
