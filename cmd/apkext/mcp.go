package main

import (
	"github.com/spf13/cobra"

	"github.com/dmikushin/apkext/internal/mcp"
	"github.com/dmikushin/apkext/pkg/apk"
)

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve unpack_apk and pack_apk over the Model Context Protocol",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// stdout belongs to the protocol.
			s, err := a.open(cmd.Context(), a.stderr)
			if err != nil {
				return err
			}
			defer a.close(s)

			reporter := a.reporter(a.stderr)
			extractor := apk.NewExtractor(s.Tools, apk.WithLogger(a.logger), apk.WithReporter(reporter))
			builder := apk.NewBuilder(s.Tools.Apktool, s.Config.Aapt, apk.WithLogger(a.logger), apk.WithReporter(reporter))

			return mcp.NewServer(extractor, builder, a.logger).Run(cmd.Context())
		},
	}
}
