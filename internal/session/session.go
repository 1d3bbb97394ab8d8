// Package session performs the per-invocation setup shared by every entry
// point: materialize the asset cache, locate Java and assemble the tools.
package session

import (
	"context"
	"io"
	"io/fs"
	"runtime"

	"github.com/hashicorp/go-hclog"

	"github.com/dmikushin/apkext/internal/assets"
	"github.com/dmikushin/apkext/internal/config"
	"github.com/dmikushin/apkext/internal/runner"
	"github.com/dmikushin/apkext/internal/tools"
	"github.com/dmikushin/apkext/internal/version"
)

// Options configures Open.
type Options struct {
	Settings config.Settings
	Logger   hclog.Logger
	// Echo receives the live output of the tools; nil discards it.
	Echo io.Writer
	// Bundle overrides the embedded payload, mainly for tests.
	Bundle fs.FS
	// Prober overrides the runner used to verify Java.
	Prober config.Prober
}

// Session is a ready-to-use tool configuration backed by a materialized
// cache.
type Session struct {
	Config      config.ToolConfiguration
	Tools       tools.Toolset
	Cache       *assets.Cache
	provisioner *assets.Provisioner
}

// Open provisions the cache and resolves every tool. Any failure here is
// fatal for the invocation.
func Open(ctx context.Context, opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	bundle := opts.Bundle
	if bundle == nil {
		bundle = assets.Bundle()
	}
	st := opts.Settings

	prov, err := assets.NewProvisioner(bundle, assets.Options{
		Root:        st.Cache.Dir,
		Ephemeral:   st.Cache.Ephemeral,
		Version:     version.Version,
		Required:    config.RequiredFiles(runtime.GOOS, runtime.GOARCH),
		LockTimeout: st.Cache.LockTimeout,
		Logger:      logger.Named("assets"),
	})
	if err != nil {
		return nil, err
	}

	cache, err := prov.Materialize(ctx)
	if err != nil {
		_ = prov.Cleanup()
		return nil, err
	}

	exec := runner.New(runner.WithLogger(logger.Named("runner")), runner.WithEcho(opts.Echo))
	prober := opts.Prober
	if prober == nil {
		prober = exec
	}
	java, err := config.DetectRuntime(ctx, st.Java, prober)
	if err != nil {
		_ = prov.Cleanup()
		return nil, err
	}
	logger.Debug("☕ Java runtime", "path", java.Path, "version", java.Version)

	cfg := config.NewToolConfiguration(cache.Root, java, st.Java.Opts, runtime.GOOS, runtime.GOARCH)
	return &Session{
		Config:      cfg,
		Tools:       tools.NewToolset(cfg, exec),
		Cache:       cache,
		provisioner: prov,
	}, nil
}

// Close removes an ephemeral cache.
func (s *Session) Close() error {
	return s.provisioner.Cleanup()
}
