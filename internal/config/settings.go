// Package config loads apkext settings and assembles the immutable tool
// configuration handed to the pipelines.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/dmikushin/apkext/pkg/logging"
	"github.com/dmikushin/apkext/pkg/ui"
	"github.com/dmikushin/apkext/pkg/utils/shellparse"
)

// EnvPrefix prefixes every environment override, e.g. APKEXT_CACHE_DIR.
const EnvPrefix = "APKEXT_"

// Color modes for progress output.
const (
	ColorAuto   = ui.ColorAuto
	ColorAlways = ui.ColorAlways
	ColorNever  = ui.ColorNever
)

// Settings is the merged result of defaults, config file, environment and
// command line flags.
type Settings struct {
	Java  JavaSettings
	Cache CacheSettings
	Log   LogSettings
	UI    UISettings

	// File is the config file that was loaded, empty if none.
	File string
}

type JavaSettings struct {
	Path string
	Home string
	Opts []string
}

type CacheSettings struct {
	Dir         string
	Ephemeral   bool
	LockTimeout time.Duration
}

type LogSettings struct {
	Level string
	JSON  bool
}

type UISettings struct {
	Color string
}

// LoadOptions selects the config file and flag overrides.
type LoadOptions struct {
	// File is an explicit config file; it must exist. When empty the
	// default location is used if present.
	File string
	// Overrides are applied last, keyed like the config file ("cache.dir").
	Overrides map[string]any
}

// DefaultConfigFile is $XDG_CONFIG_HOME/apkext/config.yaml.
func DefaultConfigFile() string {
	return filepath.Join(xdg.ConfigHome, "apkext", "config.yaml")
}

// DefaultCacheDir is $XDG_CACHE_HOME/apkext.
func DefaultCacheDir() string {
	return filepath.Join(xdg.CacheHome, "apkext")
}

func defaults() map[string]any {
	return map[string]any{
		"java.path":          "",
		"java.home":          os.Getenv("JAVA_HOME"),
		"java.opts":          "",
		"cache.dir":          DefaultCacheDir(),
		"cache.ephemeral":    false,
		"cache.lock_timeout": "2m",
		"log.level":          logging.DefaultLevel,
		"log.json":           logging.JSONFromEnv(),
		"ui.color":           ColorAuto,
	}
}

// envKey maps APKEXT_CACHE_LOCK_TIMEOUT to cache.lock_timeout: the first
// underscore separates section from key.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(key, "_", ".", 1)
}

// Load merges, in increasing priority: built-in defaults, the config file,
// APKEXT_* environment variables and opts.Overrides.
func Load(opts LoadOptions) (Settings, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Settings{}, fmt.Errorf("loading defaults: %w", err)
	}

	path := opts.File
	if path == "" {
		if candidate := DefaultConfigFile(); isFile(candidate) {
			path = candidate
		}
	} else if !isFile(path) {
		return Settings{}, fmt.Errorf("config file not found: %s", path)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Settings{}, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Settings{}, fmt.Errorf("loading environment: %w", err)
	}

	if len(opts.Overrides) > 0 {
		if err := k.Load(confmap.Provider(opts.Overrides, "."), nil); err != nil {
			return Settings{}, fmt.Errorf("loading flags: %w", err)
		}
	}

	s, err := fromKoanf(k)
	if err != nil {
		return Settings{}, err
	}
	s.File = path
	return s, s.Validate()
}

func fromKoanf(k *koanf.Koanf) (Settings, error) {
	opts, err := javaOpts(k)
	if err != nil {
		return Settings{}, err
	}

	timeout := k.Duration("cache.lock_timeout")
	if raw := k.String("cache.lock_timeout"); raw != "" && timeout == 0 {
		if timeout, err = time.ParseDuration(raw); err != nil {
			return Settings{}, fmt.Errorf("invalid cache.lock_timeout %q: %w", raw, err)
		}
	}

	return Settings{
		Java: JavaSettings{
			Path: k.String("java.path"),
			Home: k.String("java.home"),
			Opts: opts,
		},
		Cache: CacheSettings{
			Dir:         k.String("cache.dir"),
			Ephemeral:   k.Bool("cache.ephemeral"),
			LockTimeout: timeout,
		},
		Log: LogSettings{
			Level: strings.ToLower(k.String("log.level")),
			JSON:  k.Bool("log.json"),
		},
		UI: UISettings{
			Color: strings.ToLower(k.String("ui.color")),
		},
	}, nil
}

// java.opts may be a YAML list or a single shell-quoted string.
func javaOpts(k *koanf.Koanf) ([]string, error) {
	if _, isList := k.Get("java.opts").([]any); isList {
		return k.Strings("java.opts"), nil
	}
	opts, err := shellparse.Split(k.String("java.opts"))
	if err != nil {
		return nil, fmt.Errorf("invalid java.opts: %w", err)
	}
	return opts, nil
}

// Validate rejects settings no component could honour.
func (s Settings) Validate() error {
	var errs []error
	if !logging.ValidLevel(s.Log.Level) {
		errs = append(errs, fmt.Errorf("invalid log.level %q", s.Log.Level))
	}
	switch s.UI.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		errs = append(errs, fmt.Errorf("invalid ui.color %q (want auto, always or never)", s.UI.Color))
	}
	if s.Cache.LockTimeout <= 0 {
		errs = append(errs, fmt.Errorf("cache.lock_timeout must be positive, got %s", s.Cache.LockTimeout))
	}
	if !s.Cache.Ephemeral && s.Cache.Dir == "" {
		errs = append(errs, errors.New("cache.dir must not be empty"))
	}
	return errors.Join(errs...)
}
