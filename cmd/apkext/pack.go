package main

import (
	"github.com/spf13/cobra"

	"github.com/dmikushin/apkext/pkg/apk"
)

func newPackCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pack <unpacked-dir> <output.apk>",
		Short: "Build an APK from an unpacked tree",
		Long: `Build an APK from either the directory created by unpack or the
apktool output directory inside it.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := apk.CheckPackInputs(args[0], args[1]); err != nil {
				return err
			}
			s, err := a.open(cmd.Context(), a.stdout)
			if err != nil {
				return err
			}
			defer a.close(s)

			builder := apk.NewBuilder(s.Tools.Apktool, s.Config.Aapt,
				apk.WithLogger(a.logger),
				apk.WithReporter(a.reporter(a.stdout)))
			return builder.Pack(cmd.Context(), args[0], args[1])
		},
	}
}
