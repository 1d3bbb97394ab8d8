package apk_test

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmikushin/apkext/internal/runner"
	"github.com/dmikushin/apkext/internal/tools"
)

// fakeTool records invocations and stands in for a Java tool.
type fakeTool struct {
	name  string
	calls [][]string
	run   func(args []string) error
}

func (f *fakeTool) Name() string { return f.name }

func (f *fakeTool) Invoke(_ context.Context, args ...string) (runner.Outcome, error) {
	f.calls = append(f.calls, args)
	if f.run != nil {
		if err := f.run(args); err != nil {
			return runner.Outcome{Tool: f.name}, err
		}
	}
	return runner.Outcome{Tool: f.name}, nil
}

func failing(name, stderr string) func([]string) error {
	return func([]string) error {
		return &runner.ToolError{Tool: name, ExitCode: 1, Stderr: stderr}
	}
}

// outputOf returns the argument following -o.
func outputOf(args []string) string {
	for i, a := range args {
		if a == "-o" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

type fakeToolset struct {
	apktool    *fakeTool
	dex2jar    *fakeTool
	decompiler *fakeTool
}

func (f *fakeToolset) Toolset() tools.Toolset {
	return tools.Toolset{Apktool: f.apktool, Dex2Jar: f.dex2jar, Decompiler: f.decompiler}
}

// newFakeToolset returns tools that produce the files the real ones would.
func newFakeToolset() *fakeToolset {
	return &fakeToolset{
		apktool: &fakeTool{name: tools.NameApktool, run: func(args []string) error {
			return writeFile(filepath.Join(outputOf(args), "apktool.yml"), "version: 2.12.1\n")
		}},
		dex2jar: &fakeTool{name: tools.NameDex2Jar, run: func(args []string) error {
			return writeFile(outputOf(args), "PK")
		}},
		decompiler: &fakeTool{name: tools.NameDecompiler, run: func(args []string) error {
			return writeFile(filepath.Join(outputOf(args), "com", "example", "Main.java"), "class Main {}\n")
		}},
	}
}

// writeAPK builds a minimal archive holding the given entries.
func writeAPK(t *testing.T, dir string, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(dir, "app.apk")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, body := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return path
}
