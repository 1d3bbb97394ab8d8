// Package logging builds the hclog loggers used across apkext.
package logging

import (
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

const (
	// EnvJSONLog switches the logger to JSON output when set to "1" or "true".
	EnvJSONLog = "APKEXT_JSON_LOG"

	DefaultLevel = "warn"
)

// Options configures New.
type Options struct {
	Name   string
	Level  string
	JSON   bool
	Output io.Writer
}

// New creates an hclog logger with apkext's standard settings: UTC
// timestamps and a per-line prefix when writing plain text.
func New(opts Options) hclog.Logger {
	output := opts.Output
	if output == nil {
		output = os.Stderr
	}

	if !opts.JSON {
		output = NewPrefixWriter(linePrefix(), output)
	}

	level := opts.Level
	if level == "" {
		level = DefaultLevel
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       opts.Name,
		Level:      hclog.LevelFromString(level),
		JSONFormat: opts.JSON,
		Output:     output,
		TimeFormat: "2006-01-02T15:04:05Z",
		TimeFn: func() time.Time {
			return time.Now().UTC()
		},
	})
}

// NewLogger creates a logger using the environment to pick the format.
func NewLogger(name string, level string, output io.Writer) hclog.Logger {
	return New(Options{
		Name:   name,
		Level:  level,
		JSON:   JSONFromEnv(),
		Output: output,
	})
}

// JSONFromEnv reports whether EnvJSONLog requests JSON output.
func JSONFromEnv() bool {
	switch strings.ToLower(os.Getenv(EnvJSONLog)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// ValidLevel reports whether level names an hclog level.
func ValidLevel(level string) bool {
	return hclog.LevelFromString(level) != hclog.NoLevel
}

func linePrefix() string {
	if runtime.GOOS == "windows" {
		return "[apkext] "
	}
	return "🤖 "
}
