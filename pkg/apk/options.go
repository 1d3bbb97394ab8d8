// Package apk runs the unpack and pack pipelines that turn an Android
// package into editable sources and back.
package apk

import (
	"github.com/hashicorp/go-hclog"

	"github.com/dmikushin/apkext/pkg/ui"
)

type settings struct {
	logger   hclog.Logger
	reporter *ui.Reporter
}

// Option configures an Extractor or Builder.
type Option func(*settings)

// WithLogger sets the structured logger.
func WithLogger(logger hclog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithReporter sets where progress lines go.
func WithReporter(r *ui.Reporter) Option {
	return func(s *settings) {
		s.reporter = r
	}
}

func newSettings(opts []Option) settings {
	s := settings{
		logger:   hclog.NewNullLogger(),
		reporter: ui.Discard(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
