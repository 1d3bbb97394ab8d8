// Package operations describes the transformations applied to tool payloads
// embedded in apkext: bundling a directory tree into one stream and
// compressing that stream. Implementations register themselves from the
// bundle and compress subpackages.
package operations

import (
	"fmt"
	"io"
	"io/fs"
	"sync"
)

// Operation identifiers.
const (
	OpNone = 0x00

	// Bundle operations (0x01-0x0F)
	OpTar = 0x01

	// Compression operations (0x10-0x2F)
	OpGzip  = 0x10
	OpBzip2 = 0x13
)

// Operation is a single payload transformation.
type Operation interface {
	ID() uint8
	Name() string
}

// Codec is a stream compression operation.
type Codec interface {
	Operation

	// NewWriter returns a writer that compresses into w. Closing it
	// flushes the stream but does not close w.
	NewWriter(w io.Writer) (io.WriteCloser, error)

	// NewReader returns a reader that decompresses r.
	NewReader(r io.Reader) (io.ReadCloser, error)
}

// Bundler turns a directory tree into a stream and back.
type Bundler interface {
	Operation

	// Pack writes the tree rooted at root into w.
	Pack(w io.Writer, root string) error

	// Unpack recreates the tree from r beneath dest.
	Unpack(r io.Reader, dest string, opts UnpackOptions) error
}

// UnpackOptions controls how unpacked entries are written.
type UnpackOptions struct {
	// DirMode is used for every directory created.
	DirMode fs.FileMode

	// FileMode maps an entry's slash-separated path and archived mode to
	// the mode it is written with. Nil keeps the archived permission bits.
	FileMode func(name string, archived fs.FileMode) fs.FileMode
}

// Base provides ID and Name for operation implementations.
type Base struct {
	OpID   uint8
	OpName string
}

func (b *Base) ID() uint8 {
	return b.OpID
}

func (b *Base) Name() string {
	return b.OpName
}

var (
	registryMu sync.RWMutex
	registry   = make(map[uint8]Operation)
)

// Register makes op available to Get. A later registration with the same
// ID replaces the earlier one.
func Register(op Operation) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[op.ID()] = op
}

// Get retrieves an operation by ID.
func Get(id uint8) (Operation, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	op, ok := registry[id]
	if !ok {
		return nil, fmt.Errorf("unknown operation: 0x%02x", id)
	}
	return op, nil
}

// GetName returns a display name for id.
func GetName(id uint8) string {
	switch id {
	case OpNone:
		return "NONE"
	case OpTar:
		return "TAR"
	case OpGzip:
		return "GZIP"
	case OpBzip2:
		return "BZIP2"
	default:
		return fmt.Sprintf("UNKNOWN_%02x", id)
	}
}
