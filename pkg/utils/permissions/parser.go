// Package permissions parses the octal file modes used in payload manifests.
package permissions

import (
	"fmt"
	"io/fs"
	"strconv"
	"strings"
)

// Modes applied to materialized tool files when a manifest leaves them unset.
const (
	DefaultFileMode fs.FileMode = 0o644
	DefaultExecMode fs.FileMode = 0o755
	DefaultDirMode  fs.FileMode = 0o755
)

// ParseMode parses an octal permission string such as "755", "0755" or
// "0o755". An empty string yields fallback.
func ParseMode(s string, fallback fs.FileMode) (fs.FileMode, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback, nil
	}

	digits := strings.TrimPrefix(strings.TrimPrefix(s, "0o"), "0O")
	val, err := strconv.ParseUint(digits, 8, 32)
	if err != nil {
		return fallback, fmt.Errorf("invalid permission string %q: %w", s, err)
	}
	if val > 0o777 {
		return fallback, fmt.Errorf("permission %q exceeds 0777", s)
	}
	return fs.FileMode(val), nil
}
