package operations

import (
	"fmt"
	"io"
	"strings"
)

// A chain lists operations in the order they are applied when creating a
// payload: the bundle first, then compression layers.
var namedChains = map[string][]uint8{
	"tar":     {OpTar},
	"tar.gz":  {OpTar, OpGzip},
	"tgz":     {OpTar, OpGzip},
	"tar.bz2": {OpTar, OpBzip2},
	"tbz2":    {OpTar, OpBzip2},
}

// Longest suffixes first so ".tar.gz" wins over ".gz".
var chainSuffixes = []string{".tar.bz2", ".tar.gz", ".tbz2", ".tgz", ".tar"}

// ChainForFile returns the operation chain implied by name's extension and
// name without that extension. ok is false for files that are not bundles.
func ChainForFile(name string) (ops []uint8, base string, ok bool) {
	lower := strings.ToLower(name)
	for _, suffix := range chainSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return namedChains[suffix[1:]], name[:len(name)-len(suffix)], true
		}
	}
	return nil, name, false
}

// ParseChain resolves a chain name such as "tar.bz2" or a pipe separated
// list such as "tar|bzip2".
func ParseChain(s string) ([]uint8, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "raw" {
		return nil, nil
	}
	if ops, ok := namedChains[s]; ok {
		return ops, nil
	}

	var ops []uint8
	for _, part := range strings.Split(s, "|") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, ok := namedOperations[strings.ToUpper(part)]
		if !ok {
			return nil, fmt.Errorf("unknown operation %q in chain %q", part, s)
		}
		ops = append(ops, id)
	}
	return ops, nil
}

var namedOperations = map[string]uint8{
	"TAR":   OpTar,
	"GZIP":  OpGzip,
	"BZIP2": OpBzip2,
}

// ChainString renders ops as its common name, or pipe separated.
func ChainString(ops []uint8) string {
	if len(ops) == 0 {
		return "raw"
	}
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = strings.ToLower(GetName(op))
	}
	joined := strings.Join(names, "|")
	switch joined {
	case "tar|gzip":
		return "tar.gz"
	case "tar|bzip2":
		return "tar.bz2"
	}
	return joined
}

// splitChain separates the leading bundle operation from compression layers.
func splitChain(ops []uint8) (Bundler, []Codec, error) {
	if len(ops) == 0 {
		return nil, nil, fmt.Errorf("empty operation chain")
	}

	first, err := Get(ops[0])
	if err != nil {
		return nil, nil, err
	}
	bundler, ok := first.(Bundler)
	if !ok {
		return nil, nil, fmt.Errorf("chain %s must start with a bundle operation", ChainString(ops))
	}

	codecs := make([]Codec, 0, len(ops)-1)
	for _, id := range ops[1:] {
		op, err := Get(id)
		if err != nil {
			return nil, nil, err
		}
		codec, ok := op.(Codec)
		if !ok {
			return nil, nil, fmt.Errorf("operation %s cannot follow a bundle", op.Name())
		}
		codecs = append(codecs, codec)
	}
	return bundler, codecs, nil
}

// Extract reverses ops on r, unpacking the resulting tree beneath dest.
func Extract(r io.Reader, ops []uint8, dest string, opts UnpackOptions) error {
	bundler, codecs, err := splitChain(ops)
	if err != nil {
		return err
	}

	current := r
	for i := len(codecs) - 1; i >= 0; i-- {
		rc, err := codecs[i].NewReader(current)
		if err != nil {
			return fmt.Errorf("reversing %s: %w", codecs[i].Name(), err)
		}
		defer rc.Close()
		current = rc
	}

	if err := bundler.Unpack(current, dest, opts); err != nil {
		return fmt.Errorf("reversing %s: %w", bundler.Name(), err)
	}
	return nil
}

// Create applies ops to the tree rooted at root and writes the result to w.
func Create(w io.Writer, ops []uint8, root string) error {
	bundler, codecs, err := splitChain(ops)
	if err != nil {
		return err
	}

	writers := make([]io.WriteCloser, 0, len(codecs))
	current := w
	for i := len(codecs) - 1; i >= 0; i-- {
		wc, err := codecs[i].NewWriter(current)
		if err != nil {
			return fmt.Errorf("applying %s: %w", codecs[i].Name(), err)
		}
		writers = append(writers, wc)
		current = wc
	}

	if err := bundler.Pack(current, root); err != nil {
		return fmt.Errorf("applying %s: %w", bundler.Name(), err)
	}

	// Close innermost first so each layer flushes into the next.
	for i := len(writers) - 1; i >= 0; i-- {
		if err := writers[i].Close(); err != nil {
			return fmt.Errorf("closing %s: %w", codecs[len(codecs)-1-i].Name(), err)
		}
	}
	return nil
}
