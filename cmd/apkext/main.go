// Command apkext unpacks Android packages into resources, smali and Java
// sources, and packs edited trees back into APKs.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dmikushin/apkext/internal/version"
)

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "apkext",
		Short:         "Unpack and repack Android APKs",
		Long:          "Unpack an APK into resources, smali and decompiled Java sources, and pack an edited tree back into an APK.",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetVersionTemplate(fmt.Sprintf("apkext {{.Version}}\nBuilt: %s\n", version.BuildTimestamp()))

	f := root.PersistentFlags()
	f.StringVar(&a.flags.config, "config", "", "Path to config file (default $XDG_CONFIG_HOME/apkext/config.yaml)")
	f.StringVar(&a.flags.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	f.StringVar(&a.flags.cacheDir, "cache-dir", "", "Directory for the extracted tool cache")
	f.BoolVar(&a.flags.ephemeral, "ephemeral-cache", false, "Extract tools into a temporary directory removed on exit")
	f.StringVar(&a.flags.color, "color", "", "Colour progress output: auto, always or never")

	root.AddCommand(
		newUnpackCmd(a),
		newPackCmd(a),
		newMCPCmd(a),
		newCacheCmd(a),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
