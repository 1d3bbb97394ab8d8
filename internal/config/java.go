package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/dmikushin/apkext/internal/platform"
	"github.com/dmikushin/apkext/internal/runner"
	apkerrors "github.com/dmikushin/apkext/pkg/apk/errors"
)

// Prober runs the `java -version` check.
type Prober interface {
	Run(ctx context.Context, cmd runner.Command) (runner.Outcome, error)
}

// RuntimeLocator finds the Java runtime. Zero fields default to the host.
type RuntimeLocator struct {
	GOOS     string
	LookPath func(file string) (string, error)
	Prober   Prober
}

// DetectRuntime locates and verifies Java using the host defaults.
func DetectRuntime(ctx context.Context, java JavaSettings, prober Prober) (Runtime, error) {
	return RuntimeLocator{Prober: prober}.Detect(ctx, java)
}

// Detect picks the first candidate from: the configured java.path, then
// <JAVA_HOME>/bin/java if it exists, then java on PATH. The candidate must
// answer `-version` successfully.
func (l RuntimeLocator) Detect(ctx context.Context, java JavaSettings) (Runtime, error) {
	goos := l.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	lookPath := l.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	rt, err := l.candidate(java, goos, lookPath)
	if err != nil {
		return Runtime{}, err
	}

	prober := l.Prober
	if prober == nil {
		prober = runner.New(runner.WithEcho(nil))
	}
	outcome, err := prober.Run(ctx, runner.Command{Tool: "java", Path: rt.Path, Args: []string{"-version"}})
	if err != nil {
		return Runtime{}, fmt.Errorf("%w: %s -version: %v", apkerrors.ErrRuntimeNotFound, rt.Path, err)
	}
	rt.Version = firstLine(outcome.Stderr)
	if rt.Version == "" {
		rt.Version = firstLine(outcome.Stdout)
	}
	return rt, nil
}

func (l RuntimeLocator) candidate(java JavaSettings, goos string, lookPath func(string) (string, error)) (Runtime, error) {
	home := ""
	if java.Home != "" && isDir(java.Home) {
		home = java.Home
	}

	if java.Path != "" {
		if !isFile(java.Path) {
			return Runtime{}, fmt.Errorf("%w: configured java.path %s does not exist", apkerrors.ErrRuntimeNotFound, java.Path)
		}
		return Runtime{Path: java.Path, Home: home}, nil
	}

	if home != "" {
		bin := filepath.Join(home, "bin", "java"+platform.ExecutableSuffix(goos))
		if isFile(bin) {
			return Runtime{Path: bin, Home: home}, nil
		}
	}

	path, err := lookPath("java")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return Runtime{}, fmt.Errorf("%w: set JAVA_HOME or add java to PATH", apkerrors.ErrRuntimeNotFound)
		}
		return Runtime{}, fmt.Errorf("%w: %v", apkerrors.ErrRuntimeNotFound, err)
	}
	return Runtime{Path: path}, nil
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
