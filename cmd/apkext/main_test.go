package main

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmikushin/apkext/internal/config"
	"github.com/dmikushin/apkext/internal/platform"
	"github.com/dmikushin/apkext/internal/version"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	for _, env := range os.Environ() {
		if key, _, _ := strings.Cut(env, "="); strings.HasPrefix(key, "APKEXT_") {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
	xdg.Reload()
	t.Cleanup(xdg.Reload)
	return dir
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd(&stdout, &stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersion(t *testing.T) {
	isolate(t)
	out, _, err := execute(t, "--version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "apkext "+version.Version+"\nBuilt: "), out)
}

func TestCachePath(t *testing.T) {
	dir := isolate(t)

	out, _, err := execute(t, "cache", "path")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "cache", "apkext")+"\n", out)

	custom := filepath.Join(dir, "custom")
	out, _, err = execute(t, "--cache-dir", custom, "cache", "path")
	require.NoError(t, err)
	assert.Equal(t, custom+"\n", out)
}

func TestCachePathFromConfigFile(t *testing.T) {
	dir := isolate(t)
	cfg := filepath.Join(dir, "apkext.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("cache:\n  dir: /srv/apkext\n"), 0o644))

	out, _, err := execute(t, "--config", cfg, "cache", "path")
	require.NoError(t, err)
	assert.Equal(t, "/srv/apkext\n", out)
}

func TestCacheInfoAndClean(t *testing.T) {
	dir := isolate(t)
	cache := filepath.Join(dir, "tools")
	require.NoError(t, os.MkdirAll(cache, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cache, ".version"), []byte("0.0.1\n"), 0o644))

	out, _, err := execute(t, "--cache-dir", cache, "cache", "info")
	require.NoError(t, err)
	assert.Contains(t, out, "Root:        "+cache)
	assert.Contains(t, out, "Version:     "+version.Version)
	assert.Contains(t, out, "Marker:      0.0.1")
	assert.Contains(t, out, "State:       stale")

	out, _, err = execute(t, "--cache-dir", cache, "cache", "clean")
	require.NoError(t, err)
	assert.Equal(t, "Removed "+cache+"\n", out)
	assert.NoFileExists(t, filepath.Join(cache, ".version"))
}

func TestCacheInfoRequiresPlatformTools(t *testing.T) {
	dir := isolate(t)
	cache := filepath.Join(dir, "tools")
	for _, rel := range []string{config.ApktoolJar, config.DecompilerJar} {
		path := filepath.Join(cache, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("jar"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(cache, ".version"), []byte(version.Version+"\n"), 0o644))

	out, _, err := execute(t, "--cache-dir", cache, "cache", "info")
	require.NoError(t, err)
	assert.Contains(t, out, "State:       stale (missing "+platform.Dex2JarScript(runtime.GOOS)+")")
}

func TestArgumentErrors(t *testing.T) {
	isolate(t)
	tests := [][]string{
		{"unpack"},
		{"unpack", "a.apk", "b.apk"},
		{"pack", "dir"},
		{"mcp", "extra"},
	}
	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			_, _, err := execute(t, args...)
			assert.Error(t, err)
		})
	}
}

func TestInvalidSettings(t *testing.T) {
	isolate(t)

	_, _, err := execute(t, "--log-level", "loud", "cache", "path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid log.level "loud"`)

	_, _, err = execute(t, "--color", "sometimes", "cache", "path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid ui.color")

	_, _, err = execute(t, "--config", "/nonexistent/apkext.yaml", "cache", "path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestInputErrorsBeforeSetup(t *testing.T) {
	dir := isolate(t)
	cache := filepath.Join(dir, "never")

	_, _, err := execute(t, "--cache-dir", cache, "unpack", filepath.Join(dir, "missing.apk"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APK file does not exist")
	assert.NoDirExists(t, filepath.Join(dir, "missing"))

	_, _, err = execute(t, "--cache-dir", cache, "pack", dir, filepath.Join(dir, "out.zip"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "File must have .apk extension")

	assert.NoDirExists(t, cache)
}
