package apk

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	apkerrors "github.com/dmikushin/apkext/pkg/apk/errors"
)

// MarkerFile is written by apktool into every decoded tree.
const MarkerFile = "apktool.yml"

// Metadata is the subset of apktool.yml the pack pipeline reports.
type Metadata struct {
	ApkFileName string `yaml:"apkFileName"`
	Version     string `yaml:"version"`
	SdkInfo     struct {
		MinSdkVersion    string `yaml:"minSdkVersion"`
		TargetSdkVersion string `yaml:"targetSdkVersion"`
	} `yaml:"sdkInfo"`
	VersionInfo struct {
		VersionCode string `yaml:"versionCode"`
		VersionName string `yaml:"versionName"`
	} `yaml:"versionInfo"`
}

// FindMarker returns the directory to hand to apktool: <dir>/unpacked when
// it holds the marker, else dir itself.
func FindMarker(dir string) (string, error) {
	candidates := []string{filepath.Join(dir, "unpacked"), dir}
	for _, c := range candidates {
		info, err := os.Stat(filepath.Join(c, MarkerFile))
		if err == nil && info.Mode().IsRegular() {
			return c, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
	}
	return "", fmt.Errorf("%w in %s or %s", apkerrors.ErrMarkerNotFound, candidates[0], candidates[1])
}

// ReadMetadata parses the marker in dir.
func ReadMetadata(dir string) (*Metadata, error) {
	data, err := os.ReadFile(filepath.Join(dir, MarkerFile))
	if err != nil {
		return nil, err
	}
	return ParseMetadata(data)
}

// ParseMetadata decodes apktool.yml. Older apktool releases open the
// document with a Java class tag which is dropped before decoding.
func ParseMetadata(data []byte) (*Metadata, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if bytes.HasPrefix(trimmed, []byte("!!")) {
		if i := bytes.IndexByte(trimmed, '\n'); i >= 0 {
			trimmed = trimmed[i+1:]
		} else {
			trimmed = nil
		}
	}

	var m Metadata
	if err := yaml.Unmarshal(trimmed, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", MarkerFile, err)
	}
	return &m, nil
}
