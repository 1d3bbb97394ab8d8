package logging

import (
	"bytes"
	"io"
	"sync"
)

// PrefixWriter prepends a fixed prefix to every complete line written
// through it. Partial lines are held until their newline arrives or
// Flush is called.
type PrefixWriter struct {
	mu      sync.Mutex
	prefix  []byte
	writer  io.Writer
	pending bytes.Buffer
}

// NewPrefixWriter wraps w.
func NewPrefixWriter(prefix string, w io.Writer) *PrefixWriter {
	return &PrefixWriter{
		prefix: []byte(prefix),
		writer: w,
	}
}

// Write implements io.Writer.
func (pw *PrefixWriter) Write(p []byte) (int, error) {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	rest := p
	for len(rest) > 0 {
		i := bytes.IndexByte(rest, '\n')
		if i < 0 {
			pw.pending.Write(rest)
			break
		}
		pw.pending.Write(rest[:i+1])
		rest = rest[i+1:]
		if err := pw.emit(); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// Flush writes any buffered partial line, prefixed and unterminated.
func (pw *PrefixWriter) Flush() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.pending.Len() == 0 {
		return nil
	}
	return pw.emit()
}

func (pw *PrefixWriter) emit() error {
	line := make([]byte, 0, len(pw.prefix)+pw.pending.Len())
	line = append(line, pw.prefix...)
	line = append(line, pw.pending.Bytes()...)
	pw.pending.Reset()

	_, err := pw.writer.Write(line)
	return err
}
