package apk

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/dmikushin/apkext/internal/tools"
	apkerrors "github.com/dmikushin/apkext/pkg/apk/errors"
	"github.com/dmikushin/apkext/pkg/ui"
)

// Builder rebuilds an APK from a decoded tree.
type Builder struct {
	apktool  tools.Tool
	aapt     string
	logger   hclog.Logger
	reporter *ui.Reporter
}

// NewBuilder creates a Builder that runs apktool with the aapt binary at
// aapt.
func NewBuilder(apktool tools.Tool, aapt string, opts ...Option) *Builder {
	s := newSettings(opts)
	return &Builder{
		apktool:  apktool,
		aapt:     aapt,
		logger:   s.logger.Named("pack"),
		reporter: s.reporter,
	}
}

// Pack builds output from sourceDir, which is either an extraction root or
// a directory apktool decoded into.
func (b *Builder) Pack(ctx context.Context, sourceDir, output string) error {
	dir, err := CheckPackInputs(sourceDir, output)
	if err != nil {
		return err
	}

	if meta, err := ReadMetadata(dir); err != nil {
		b.logger.Debug("⚠️ Unreadable marker", "dir", dir, "error", err)
	} else {
		b.logger.Info("📋 Decoded tree", "apk", meta.ApkFileName, "apktool", meta.Version,
			"versionName", meta.VersionInfo.VersionName)
	}

	b.reporter.Step("Building APK from '%s' to '%s'", dir, output)
	start := time.Now()
	if _, err := b.apktool.Invoke(ctx, "b", "-aapt", b.aapt, dir, "-o", output); err != nil {
		b.logger.Error("❌ Build failed", "error", err)
		return fmt.Errorf("building %s: %w", output, err)
	}
	b.logger.Info("✅ APK built", "output", output, "duration", time.Since(start))
	return nil
}

// CheckPackInputs validates a pack request and returns the directory that
// holds apktool.yml.
func CheckPackInputs(sourceDir, output string) (string, error) {
	info, err := os.Stat(sourceDir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return "", &apkerrors.ValidationError{Field: "unpacked_dir", Value: sourceDir, Reason: "Source directory does not exist"}
	case err != nil:
		return "", fmt.Errorf("checking %s: %w", sourceDir, err)
	case !info.IsDir():
		return "", &apkerrors.ValidationError{Field: "unpacked_dir", Value: sourceDir, Reason: "Source path is not a directory"}
	}

	if filepath.Ext(output) != ".apk" {
		return "", &apkerrors.ValidationError{Field: "output_apk", Value: output, Reason: "File must have .apk extension"}
	}
	return FindMarker(sourceDir)
}
