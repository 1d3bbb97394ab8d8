package main

import (
	"context"
	"io"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/dmikushin/apkext/internal/config"
	"github.com/dmikushin/apkext/internal/session"
	"github.com/dmikushin/apkext/pkg/logging"
	"github.com/dmikushin/apkext/pkg/ui"
)

type globalFlags struct {
	config    string
	logLevel  string
	cacheDir  string
	ephemeral bool
	color     string
}

// app carries what every subcommand needs once flags are parsed.
type app struct {
	stdout io.Writer
	stderr io.Writer
	flags  globalFlags

	settings config.Settings
	logger   hclog.Logger
}

// overrides maps explicitly set flags onto config keys.
func (a *app) overrides(cmd *cobra.Command) map[string]any {
	o := map[string]any{}
	f := cmd.Flags()
	if f.Changed("log-level") {
		o["log.level"] = a.flags.logLevel
	}
	if f.Changed("cache-dir") {
		o["cache.dir"] = a.flags.cacheDir
	}
	if f.Changed("ephemeral-cache") {
		o["cache.ephemeral"] = a.flags.ephemeral
	}
	if f.Changed("color") {
		o["ui.color"] = a.flags.color
	}
	return o
}

func (a *app) load(cmd *cobra.Command) error {
	st, err := config.Load(config.LoadOptions{File: a.flags.config, Overrides: a.overrides(cmd)})
	if err != nil {
		return err
	}
	a.settings = st
	a.logger = logging.New(logging.Options{
		Name:   "apkext",
		Level:  st.Log.Level,
		JSON:   st.Log.JSON,
		Output: a.stderr,
	})
	if st.File != "" {
		a.logger.Debug("📄 Loaded config", "file", st.File)
	}
	return nil
}

// reporter prints progress to out.
func (a *app) reporter(out io.Writer) *ui.Reporter {
	return ui.NewReporter(out, a.stderr, a.settings.UI.Color)
}

// open prepares the tools, echoing their output to echo.
func (a *app) open(ctx context.Context, echo io.Writer) (*session.Session, error) {
	return session.Open(ctx, session.Options{
		Settings: a.settings,
		Logger:   a.logger,
		Echo:     echo,
	})
}

func (a *app) close(s *session.Session) {
	if err := s.Close(); err != nil {
		a.logger.Warn("⚠️ Failed to remove ephemeral cache", "error", err)
	}
}
