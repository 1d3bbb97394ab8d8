package config

import (
	"path/filepath"
	"slices"

	"github.com/dmikushin/apkext/internal/platform"
)

// Locations inside the asset cache, slash separated.
const (
	ApktoolJar    = "jars/apktool.jar"
	DecompilerJar = "jars/procyon-decompiler-v0.6.1.jar"
	FrameworkDir  = "framework"
)

// Runtime is a located and verified Java runtime.
type Runtime struct {
	Path string
	// Home is exported as JAVA_HOME to tool scripts when non-empty.
	Home string
	// Version is the first line of `java -version`.
	Version string
}

// ToolConfiguration locates everything the pipelines invoke. It is built
// once per run and passed by value; nothing mutates it afterwards.
type ToolConfiguration struct {
	Java          Runtime
	ApktoolJar    string
	DecompilerJar string
	Aapt          string
	Dex2Jar       string
	FrameworkDir  string
	CacheDir      string

	javaOpts []string
}

// NewToolConfiguration resolves the tool locations inside cacheDir for the
// given platform.
func NewToolConfiguration(cacheDir string, java Runtime, javaOpts []string, goos, goarch string) ToolConfiguration {
	at := func(rel string) string {
		return filepath.Join(cacheDir, filepath.FromSlash(rel))
	}
	return ToolConfiguration{
		Java:          java,
		ApktoolJar:    at(ApktoolJar),
		DecompilerJar: at(DecompilerJar),
		Aapt:          at(platform.Resolve(goos, goarch)),
		Dex2Jar:       at(platform.Dex2JarScript(goos)),
		FrameworkDir:  at(FrameworkDir),
		CacheDir:      cacheDir,
		javaOpts:      slices.Clone(javaOpts),
	}
}

// JavaArgs returns a fresh copy of the JVM options placed before -jar.
func (c ToolConfiguration) JavaArgs() []string {
	return slices.Clone(c.javaOpts)
}

// RequiredFiles lists the cache files the configuration depends on for
// goos/goarch, slash separated and relative to the cache root.
func RequiredFiles(goos, goarch string) []string {
	return []string{
		ApktoolJar,
		DecompilerJar,
		platform.Dex2JarScript(goos),
		platform.Resolve(goos, goarch),
	}
}
