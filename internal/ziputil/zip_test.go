package ziputil

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.apk")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestExtractEntry(t *testing.T) {
	apk := buildZip(t, map[string]string{
		"classes.dex":         "dex\n035",
		"AndroidManifest.xml": "<manifest/>",
	})
	dest := filepath.Join(t.TempDir(), "out", "classes.dex")

	require.NoError(t, ExtractEntry(apk, "classes.dex", dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "dex\n035", string(data))
}

func TestExtractEntryMissing(t *testing.T) {
	apk := buildZip(t, map[string]string{"class.dex": "x"})

	err := ExtractEntry(apk, "classes.dex", filepath.Join(t.TempDir(), "classes.dex"))
	assert.ErrorIs(t, err, ErrEntryNotFound)

	err = ExtractEntry(apk, "Class.dex", filepath.Join(t.TempDir(), "x"))
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestExtractEntryNotZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.apk")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))

	err := ExtractEntry(path, "classes.dex", filepath.Join(t.TempDir(), "classes.dex"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEntryNotFound)
}

func TestExtractPrefix(t *testing.T) {
	jar := buildZip(t, map[string]string{
		"prebuilt/linux/aapt_64":       "elf",
		"prebuilt/windows/aapt_64.exe": "pe",
		"brut/androlib/Main.class":     "class",
	})
	dest := t.TempDir()

	n, err := ExtractPrefix(jar, "prebuilt/", dest)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.FileExists(t, filepath.Join(dest, "prebuilt", "linux", "aapt_64"))
	assert.FileExists(t, filepath.Join(dest, "prebuilt", "windows", "aapt_64.exe"))
	assert.NoFileExists(t, filepath.Join(dest, "brut", "androlib", "Main.class"))
}

func TestExtractPrefixRejectsTraversal(t *testing.T) {
	jar := buildZip(t, map[string]string{"../escape.txt": "x"})

	dest := t.TempDir()
	_, err := ExtractPrefix(jar, "", dest)
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(filepath.Dir(dest), "escape.txt"))
}
