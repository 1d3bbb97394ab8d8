// Package bundle registers the TAR bundle operation.
package bundle

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dmikushin/apkext/pkg/payload/operations"
)

func init() {
	operations.Register(NewTarOperation())
}

// maxEntrySize bounds a single unpacked entry.
const maxEntrySize = 1 << 30

// TarOperation bundles a directory tree as a POSIX TAR stream.
type TarOperation struct {
	operations.Base
}

// NewTarOperation creates a TAR operation.
func NewTarOperation() *TarOperation {
	return &TarOperation{
		Base: operations.Base{OpID: operations.OpTar, OpName: "TAR"},
	}
}

// Pack writes every directory and regular file under root. Entries are
// stored in lexical order with slash-separated names and a fixed
// modification time so identical trees produce identical streams.
func (o *TarOperation) Pack(w io.Writer, root string) error {
	tw := tar.NewWriter(w)
	epoch := time.Unix(0, 0).UTC()

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		hdr := &tar.Header{
			Name:    filepath.ToSlash(rel),
			Mode:    int64(info.Mode().Perm()),
			ModTime: epoch,
			Format:  tar.FormatPAX,
		}
		switch {
		case d.IsDir():
			hdr.Typeflag = tar.TypeDir
			hdr.Name += "/"
		case info.Mode().IsRegular():
			hdr.Typeflag = tar.TypeReg
			hdr.Size = info.Size()
		default:
			return fmt.Errorf("unsupported file type for %s", rel)
		}

		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("writing tar header for %s: %w", rel, err)
		}
		if hdr.Typeflag != tar.TypeReg {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if _, err := io.Copy(tw, f); err != nil {
			return fmt.Errorf("writing tar data for %s: %w", rel, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	return tw.Close()
}

// Unpack recreates directories and regular files beneath dest. Entries
// that would land outside dest are rejected; links and devices are skipped.
func (o *TarOperation) Unpack(r io.Reader, dest string, opts operations.UnpackOptions) error {
	dirMode := opts.DirMode
	if dirMode == 0 {
		dirMode = 0o755
	}
	if err := os.MkdirAll(dest, dirMode); err != nil {
		return err
	}

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading tar header: %w", err)
		}

		name := filepath.FromSlash(hdr.Name)
		if !filepath.IsLocal(name) {
			return fmt.Errorf("tar entry %q escapes destination", hdr.Name)
		}
		target := filepath.Join(dest, name)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, dirMode); err != nil {
				return err
			}
		case tar.TypeReg:
			if hdr.Size < 0 || hdr.Size > maxEntrySize {
				return fmt.Errorf("invalid size %d for %s", hdr.Size, hdr.Name)
			}
			mode := fs.FileMode(hdr.Mode).Perm()
			if opts.FileMode != nil {
				mode = opts.FileMode(filepath.ToSlash(filepath.Clean(name)), mode)
			}
			if err := writeEntry(tr, target, hdr.Size, mode, dirMode); err != nil {
				return fmt.Errorf("extracting %s: %w", hdr.Name, err)
			}
		}
	}
}

func writeEntry(r io.Reader, target string, size int64, mode, dirMode fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), dirMode); err != nil {
		return err
	}

	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.CopyN(f, r, size); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	// OpenFile honours the umask and leaves existing files' modes alone.
	return os.Chmod(target, mode)
}
