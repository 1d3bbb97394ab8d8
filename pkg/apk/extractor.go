package apk

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/dmikushin/apkext/internal/tools"
	"github.com/dmikushin/apkext/internal/ziputil"
	apkerrors "github.com/dmikushin/apkext/pkg/apk/errors"
	"github.com/dmikushin/apkext/pkg/ui"
)

const (
	dexEntry       = "classes.dex"
	legacyDexEntry = "class.dex"
)

// Extractor unpacks an APK into resources, smali, a jar and decompiled
// Java sources.
type Extractor struct {
	tools    tools.Toolset
	logger   hclog.Logger
	reporter *ui.Reporter
}

// NewExtractor creates an Extractor driving ts.
func NewExtractor(ts tools.Toolset, opts ...Option) *Extractor {
	s := newSettings(opts)
	return &Extractor{
		tools:    ts,
		logger:   s.logger.Named("unpack"),
		reporter: s.reporter,
	}
}

// Unpack runs the four stages against archive. An error is returned only
// when the input is invalid, resource extraction fails or ctx is cancelled;
// later stages degrade to warnings recorded in the Result.
func (e *Extractor) Unpack(ctx context.Context, archive string) (*Result, error) {
	if err := ValidateArchive(archive); err != nil {
		return nil, err
	}

	target := NewTarget(archive)
	if target.Root == "" || filepath.Clean(target.Root) == filepath.Dir(archive) {
		return nil, &apkerrors.ValidationError{Field: "apk_path", Value: archive, Reason: "Extraction directory would replace the archive's directory"}
	}
	result := &Result{Target: target}
	e.logger.Debug("🗂️ Unpacking", "archive", target.Archive, "root", target.Root)

	if _, err := os.Stat(target.Root); err == nil {
		e.reporter.Step("Removing existing directory '%s'", target.Root)
		if err := os.RemoveAll(target.Root); err != nil {
			return nil, fmt.Errorf("removing %s: %w", target.Root, err)
		}
	}
	e.reporter.Step("Extracting under '%s'", target.Root)

	e.reporter.Step("Extracting resources")
	start := time.Now()
	_, err := e.tools.Apktool.Invoke(ctx, "d", "-f", target.Archive, "-o", target.Unpacked())
	result.record(StageResources, true, start, err)
	if err != nil {
		e.logger.Error("❌ Resource extraction failed", "error", err)
		return result, fmt.Errorf("extracting resources: %w", err)
	}
	e.logger.Info("✅ Resources extracted", "dir", target.Unpacked(), "duration", time.Since(start))

	if err := e.best(result, StageDex, func() error {
		e.reporter.Step("Extracting classes.dex")
		return e.extractDex(target)
	}); err != nil {
		result.skip(StageConvert, StageDecompile)
		return e.finish(ctx, result)
	}

	if err := e.best(result, StageConvert, func() error {
		e.reporter.Step("Converting classes.dex to jar")
		return e.convert(ctx, target)
	}); err != nil {
		result.skip(StageDecompile)
		return e.finish(ctx, result)
	}

	_ = e.best(result, StageDecompile, func() error {
		e.reporter.Step("Decompiling jar files")
		return e.decompile(ctx, target)
	})
	return e.finish(ctx, result)
}

// best runs a non-essential stage and reports its failure as a warning.
func (e *Extractor) best(result *Result, stage Stage, fn func() error) error {
	start := time.Now()
	err := fn()
	result.record(stage, false, start, err)
	if err != nil {
		e.logger.Warn("⚠️ Stage failed", "stage", stage, "error", err)
		e.reporter.Warn("%s failed: %v", stageLabel(stage), err)
		return err
	}
	e.logger.Debug("✅ Stage done", "stage", stage, "duration", time.Since(start))
	return nil
}

func (e *Extractor) finish(ctx context.Context, result *Result) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return result, err
	}

	target := result.Target
	e.reporter.Blank()
	e.reporter.Step("Resources and smali are in '%s'", target.Unpacked())
	if s, ok := result.Stage(StageDecompile); ok && s.Status == StatusSucceeded {
		e.reporter.Step("Decompiled classes in '%s'", target.Sources())
	}
	e.logger.Info("🏁 Unpack finished", "outcome", result.Outcome().String())
	return result, nil
}

func (e *Extractor) extractDex(target Target) error {
	err := ziputil.ExtractEntry(target.Archive, dexEntry, target.Dex())
	if err == nil {
		return nil
	}
	if !errors.Is(err, ziputil.ErrEntryNotFound) {
		return err
	}

	legacy := filepath.Join(target.Root, legacyDexEntry)
	err = ziputil.ExtractEntry(target.Archive, legacyDexEntry, legacy)
	if errors.Is(err, ziputil.ErrEntryNotFound) {
		return fmt.Errorf("%w in %s", apkerrors.ErrDexNotFound, target.Archive)
	}
	if err != nil {
		return err
	}
	e.logger.Debug("🔍 Using legacy dex entry", "entry", legacyDexEntry)
	return os.Rename(legacy, target.Dex())
}

func (e *Extractor) convert(ctx context.Context, target Target) error {
	if _, err := e.tools.Dex2Jar.Invoke(ctx, target.Dex(), "-o", target.Jar()); err != nil {
		return err
	}
	if _, err := os.Stat(target.Jar()); err != nil {
		return fmt.Errorf("%s produced no jar at %s", e.tools.Dex2Jar.Name(), target.Jar())
	}
	if err := os.Remove(target.Dex()); err != nil {
		e.logger.Warn("⚠️ Failed to remove dex", "path", target.Dex(), "error", err)
	}
	return nil
}

func (e *Extractor) decompile(ctx context.Context, target Target) error {
	if err := os.RemoveAll(target.Sources()); err != nil {
		return err
	}
	if err := os.MkdirAll(target.Sources(), 0o755); err != nil {
		return err
	}
	_, err := e.tools.Decompiler.Invoke(ctx, "-jar", target.Jar(), "-o", target.Sources())
	return err
}

func stageLabel(stage Stage) string {
	switch stage {
	case StageDex:
		return "Extracting classes.dex"
	case StageConvert:
		return "Converting classes.dex to jar"
	case StageDecompile:
		return "Decompiling jar files"
	}
	return string(stage)
}

// ValidateArchive checks that archive is an existing .apk file.
func ValidateArchive(archive string) error {
	if filepath.Ext(archive) != ".apk" {
		return &apkerrors.ValidationError{Field: "apk_path", Value: archive, Reason: "File must have .apk extension"}
	}
	if strings.TrimSuffix(filepath.Base(archive), ".apk") == "" {
		return &apkerrors.ValidationError{Field: "apk_path", Value: archive, Reason: "APK file name is empty before the extension"}
	}
	info, err := os.Stat(archive)
	if errors.Is(err, os.ErrNotExist) {
		return &apkerrors.ValidationError{Field: "apk_path", Value: archive, Reason: "APK file does not exist"}
	}
	if err != nil {
		return fmt.Errorf("checking %s: %w", archive, err)
	}
	if !info.Mode().IsRegular() {
		return &apkerrors.ValidationError{Field: "apk_path", Value: archive, Reason: "APK path is not a regular file"}
	}
	return nil
}
