package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/dmikushin/apkext/internal/assets"
	"github.com/dmikushin/apkext/internal/config"
	"github.com/dmikushin/apkext/internal/version"
)

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or remove the extracted tool cache",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "path",
			Short: "Print the cache directory",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				fmt.Fprintln(cmd.OutOrStdout(), a.settings.Cache.Dir)
				return nil
			},
		},
		&cobra.Command{
			Use:   "info",
			Short: "Show the cache state",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				p, err := a.provisioner()
				if err != nil {
					return err
				}
				st, err := p.Status()
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Root:        %s\n", st.Root)
				fmt.Fprintf(out, "Version:     %s\n", st.Version)
				marker := st.Marker
				if marker == "" {
					marker = "(none)"
				}
				fmt.Fprintf(out, "Marker:      %s\n", marker)
				fmt.Fprintf(out, "Bundle size: %d bytes\n", st.BundleSize)
				if st.Stale {
					fmt.Fprintf(out, "State:       stale (%s)\n", st.Reason)
				} else {
					fmt.Fprintln(out, "State:       current")
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "clean",
			Short: "Remove the cache; it is re-extracted on next use",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				p, err := a.provisioner()
				if err != nil {
					return err
				}
				if err := p.Remove(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", p.Paths().Root())
				return nil
			},
		},
	)
	return cmd
}

// provisioner addresses the persistent cache; --ephemeral-cache is ignored
// here since a temporary cache has nothing to inspect.
func (a *app) provisioner() (*assets.Provisioner, error) {
	return assets.NewProvisioner(assets.Bundle(), assets.Options{
		Root:        a.settings.Cache.Dir,
		Version:     version.Version,
		LockTimeout: a.settings.Cache.LockTimeout,
		Required:    config.RequiredFiles(runtime.GOOS, runtime.GOARCH),
		Logger:      a.logger.Named("assets"),
	})
}
