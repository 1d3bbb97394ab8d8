// Package compress registers the stream compression operations.
package compress

import (
	"compress/gzip"
	"fmt"
	"io"

	"github.com/dmikushin/apkext/pkg/payload/operations"
)

func init() {
	operations.Register(NewGzipOperation())
}

// GzipOperation implements GZIP compression.
type GzipOperation struct {
	operations.Base
	Level int
}

// NewGzipOperation creates a GZIP operation at best compression.
func NewGzipOperation() *GzipOperation {
	return &GzipOperation{
		Base:  operations.Base{OpID: operations.OpGzip, OpName: "GZIP"},
		Level: gzip.BestCompression,
	}
}

// NewWriter compresses into w.
func (o *GzipOperation) NewWriter(w io.Writer) (io.WriteCloser, error) {
	gw, err := gzip.NewWriterLevel(w, o.Level)
	if err != nil {
		return nil, fmt.Errorf("creating gzip writer: %w", err)
	}
	return gw, nil
}

// NewReader decompresses r.
func (o *GzipOperation) NewReader(r io.Reader) (io.ReadCloser, error) {
	gr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("creating gzip reader: %w", err)
	}
	return gr, nil
}
