package compress

import (
	"fmt"
	"io"

	"github.com/dsnet/compress/bzip2"

	"github.com/dmikushin/apkext/pkg/payload/operations"
)

func init() {
	operations.Register(NewBzip2Operation())
}

// Bzip2Operation implements BZIP2 compression. Tool payloads are written
// at level 9, they are built once and read on every cache refresh.
type Bzip2Operation struct {
	operations.Base
	Level int
}

// NewBzip2Operation creates a BZIP2 operation at level 9.
func NewBzip2Operation() *Bzip2Operation {
	return &Bzip2Operation{
		Base:  operations.Base{OpID: operations.OpBzip2, OpName: "BZIP2"},
		Level: 9,
	}
}

// NewWriter compresses into w.
func (o *Bzip2Operation) NewWriter(w io.Writer) (io.WriteCloser, error) {
	bw, err := bzip2.NewWriter(w, &bzip2.WriterConfig{Level: o.Level})
	if err != nil {
		return nil, fmt.Errorf("creating bzip2 writer: %w", err)
	}
	return bw, nil
}

// NewReader decompresses r.
func (o *Bzip2Operation) NewReader(r io.Reader) (io.ReadCloser, error) {
	br, err := bzip2.NewReader(r, &bzip2.ReaderConfig{})
	if err != nil {
		return nil, fmt.Errorf("creating bzip2 reader: %w", err)
	}
	return br, nil
}
