package config

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmikushin/apkext/internal/runner"
	apkerrors "github.com/dmikushin/apkext/pkg/apk/errors"
)

type fakeProber struct {
	calls  []runner.Command
	stderr string
	err    error
}

func (p *fakeProber) Run(_ context.Context, cmd runner.Command) (runner.Outcome, error) {
	p.calls = append(p.calls, cmd)
	return runner.Outcome{Tool: cmd.Tool, Stderr: p.stderr}, p.err
}

func fakeJDK(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	bin := filepath.Join(home, "bin", "java")
	require.NoError(t, os.MkdirAll(filepath.Dir(bin), 0o755))
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755))
	return home
}

func noJavaOnPath(string) (string, error) {
	return "", &exec.Error{Name: "java", Err: exec.ErrNotFound}
}

func TestDetectPrefersJavaHome(t *testing.T) {
	home := fakeJDK(t)
	prober := &fakeProber{stderr: "\nopenjdk version \"17.0.2\" 2022-01-18\nOpenJDK Runtime Environment"}
	locator := RuntimeLocator{
		GOOS:     "linux",
		LookPath: func(string) (string, error) { return "/usr/bin/java", nil },
		Prober:   prober,
	}

	rt, err := locator.Detect(context.Background(), JavaSettings{Home: home})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "bin", "java"), rt.Path)
	assert.Equal(t, home, rt.Home)
	assert.Equal(t, `openjdk version "17.0.2" 2022-01-18`, rt.Version)
	require.Len(t, prober.calls, 1)
	assert.Equal(t, []string{"-version"}, prober.calls[0].Args)
	assert.Equal(t, rt.Path, prober.calls[0].Path)
}

func TestDetectFallsBackToPath(t *testing.T) {
	emptyHome := t.TempDir()
	prober := &fakeProber{}
	locator := RuntimeLocator{
		GOOS:     "linux",
		LookPath: func(string) (string, error) { return "/usr/bin/java", nil },
		Prober:   prober,
	}

	rt, err := locator.Detect(context.Background(), JavaSettings{Home: emptyHome})
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/java", rt.Path)
	assert.Empty(t, rt.Home)
}

func TestDetectConfiguredPathWins(t *testing.T) {
	home := fakeJDK(t)
	custom := filepath.Join(fakeJDK(t), "bin", "java")
	locator := RuntimeLocator{GOOS: "linux", LookPath: noJavaOnPath, Prober: &fakeProber{}}

	rt, err := locator.Detect(context.Background(), JavaSettings{Path: custom, Home: home})
	require.NoError(t, err)
	assert.Equal(t, custom, rt.Path)
	assert.Equal(t, home, rt.Home)

	_, err = locator.Detect(context.Background(), JavaSettings{Path: filepath.Join(home, "missing")})
	assert.ErrorIs(t, err, apkerrors.ErrRuntimeNotFound)
}

func TestDetectNoRuntime(t *testing.T) {
	prober := &fakeProber{}
	locator := RuntimeLocator{GOOS: "linux", LookPath: noJavaOnPath, Prober: prober}

	_, err := locator.Detect(context.Background(), JavaSettings{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apkerrors.ErrRuntimeNotFound)
	assert.Contains(t, err.Error(), "JAVA_HOME")
	assert.Empty(t, prober.calls)
}

func TestDetectProbeFailure(t *testing.T) {
	locator := RuntimeLocator{
		GOOS:     "linux",
		LookPath: func(string) (string, error) { return "/usr/bin/java", nil },
		Prober:   &fakeProber{err: errors.New("exit status 1")},
	}

	_, err := locator.Detect(context.Background(), JavaSettings{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apkerrors.ErrRuntimeNotFound)
	assert.Contains(t, err.Error(), "/usr/bin/java -version")
}

func TestDetectWindowsExecutableName(t *testing.T) {
	home := t.TempDir()
	bin := filepath.Join(home, "bin", "java.exe")
	require.NoError(t, os.MkdirAll(filepath.Dir(bin), 0o755))
	require.NoError(t, os.WriteFile(bin, nil, 0o755))

	locator := RuntimeLocator{GOOS: "windows", LookPath: noJavaOnPath, Prober: &fakeProber{}}
	rt, err := locator.Detect(context.Background(), JavaSettings{Home: home})
	require.NoError(t, err)
	assert.Equal(t, bin, rt.Path)
}
