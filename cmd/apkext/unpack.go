package main

import (
	"github.com/spf13/cobra"

	"github.com/dmikushin/apkext/pkg/apk"
)

func newUnpackCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unpack <apk>",
		Short: "Unpack an APK into resources, smali and Java sources",
		Long: `Unpack an APK next to itself: app.apk becomes app/ holding
unpacked/ (apktool output), classes.jar and src/ (decompiled Java).
An existing app/ directory is replaced.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := apk.ValidateArchive(args[0]); err != nil {
				return err
			}
			s, err := a.open(cmd.Context(), a.stdout)
			if err != nil {
				return err
			}
			defer a.close(s)

			extractor := apk.NewExtractor(s.Tools,
				apk.WithLogger(a.logger),
				apk.WithReporter(a.reporter(a.stdout)))
			_, err = extractor.Unpack(cmd.Context(), args[0])
			return err
		},
	}
}
