package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the XDG directories and JAVA_HOME at a scratch location.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Setenv("JAVA_HOME", "")
	for _, key := range []string{"APKEXT_CACHE_DIR", "APKEXT_LOG_LEVEL", "APKEXT_JAVA_OPTS", "APKEXT_CACHE_EPHEMERAL", "APKEXT_UI_COLOR", "APKEXT_CACHE_LOCK_TIMEOUT"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	xdg.Reload()
	t.Cleanup(xdg.Reload)
	return dir
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadDefaults(t *testing.T) {
	dir := isolate(t)

	s, err := Load(LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "cache", "apkext"), s.Cache.Dir)
	assert.False(t, s.Cache.Ephemeral)
	assert.Equal(t, 2*time.Minute, s.Cache.LockTimeout)
	assert.Equal(t, "warn", s.Log.Level)
	assert.Equal(t, ColorAuto, s.UI.Color)
	assert.Empty(t, s.Java.Path)
	assert.Empty(t, s.Java.Opts)
	assert.Empty(t, s.File)
}

func TestLoadDefaultConfigFile(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, filepath.Join(dir, "config", "apkext", "config.yaml"), `
java:
  opts: -Xmx2g -Dfile.encoding=UTF-8
cache:
  lock_timeout: 30s
log:
  level: debug
`)

	s, err := Load(LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, DefaultConfigFile(), s.File)
	assert.Equal(t, []string{"-Xmx2g", "-Dfile.encoding=UTF-8"}, s.Java.Opts)
	assert.Equal(t, 30*time.Second, s.Cache.LockTimeout)
	assert.Equal(t, "debug", s.Log.Level)
}

func TestLoadJavaOptsList(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	writeConfig(t, path, `
java:
  opts:
    - -Xmx4g
    - -Duser.home=/home/my user
`)

	s, err := Load(LoadOptions{File: path})
	require.NoError(t, err)
	assert.Equal(t, []string{"-Xmx4g", "-Duser.home=/home/my user"}, s.Java.Opts)
}

func TestLoadPrecedence(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	writeConfig(t, path, `
cache:
  dir: /from/file
  ephemeral: false
log:
  level: info
`)
	t.Setenv("APKEXT_CACHE_DIR", "/from/env")
	t.Setenv("APKEXT_LOG_LEVEL", "error")
	t.Setenv("APKEXT_CACHE_LOCK_TIMEOUT", "5s")

	s, err := Load(LoadOptions{
		File:      path,
		Overrides: map[string]any{"log.level": "trace"},
	})
	require.NoError(t, err)

	assert.Equal(t, "/from/env", s.Cache.Dir)
	assert.Equal(t, "trace", s.Log.Level)
	assert.Equal(t, 5*time.Second, s.Cache.LockTimeout)
}

func TestLoadJavaHomeFromEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("JAVA_HOME", "/usr/lib/jvm/java-17")

	s, err := Load(LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "/usr/lib/jvm/java-17", s.Java.Home)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	dir := isolate(t)

	_, err := Load(LoadOptions{File: filepath.Join(dir, "nope.yaml")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name     string
		override map[string]any
		want     string
	}{
		{"log level", map[string]any{"log.level": "chatty"}, "invalid log.level"},
		{"color", map[string]any{"ui.color": "rainbow"}, "invalid ui.color"},
		{"timeout", map[string]any{"cache.lock_timeout": "0s"}, "lock_timeout must be positive"},
		{"bad timeout", map[string]any{"cache.lock_timeout": "soon"}, "invalid cache.lock_timeout"},
		{"java opts", map[string]any{"java.opts": `-D"broken`}, "invalid java.opts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			_, err := Load(LoadOptions{Overrides: tt.override})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "cache.dir", envKey("APKEXT_CACHE_DIR"))
	assert.Equal(t, "cache.lock_timeout", envKey("APKEXT_CACHE_LOCK_TIMEOUT"))
	assert.Equal(t, "log.level", envKey("APKEXT_LOG_LEVEL"))
}
