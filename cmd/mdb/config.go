package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"mdb/internal/mdb"
)

const configFileName = ".mdb.toml"

type fileConfig struct {
	Compiler compilerConfig `toml:"compiler"`
	Filter   filterConfig   `toml:"filter"`
	Display  displayConfig  `toml:"display"`
	Cache    cacheConfig    `toml:"cache"`
}

type compilerConfig struct {
	Command []string `toml:"command"`
	// Prelude is prepended to every evaluated expression.
	Prelude string `toml:"prelude"`
}

type filterConfig struct {
	InternalFile string `toml:"internal_file"`
	WrapPrefix   string `toml:"wrap_prefix"`
	WrapSuffix   string `toml:"wrap_suffix"`
}

type displayConfig struct {
	Width int    `toml:"width"`
	Color string `toml:"color"`
}

type cacheConfig struct {
	Enabled *bool  `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// loadedConfig is the effective configuration and where it came from.
type loadedConfig struct {
	Path string
	fileConfig
}

func defaultConfig() fileConfig {
	return fileConfig{
		Filter: filterConfig{
			InternalFile: mdb.DefaultInternalFile,
			WrapPrefix:   mdb.DefaultWrapPrefix,
			WrapSuffix:   mdb.DefaultWrapSuffix,
		},
		Display: displayConfig{Color: "auto"},
	}
}

func (c cacheConfig) enabled() bool {
	return c.Enabled == nil || *c.Enabled
}

func findConfigFile(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, configFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// loadConfig reads explicit, or the nearest .mdb.toml above startDir when
// explicit is empty. A missing file yields the defaults.
func loadConfig(explicit, startDir string) (*loadedConfig, error) {
	path := explicit
	if path == "" {
		found, ok, err := findConfigFile(startDir)
		if err != nil {
			return nil, err
		}
		if !ok {
			return &loadedConfig{fileConfig: defaultConfig()}, nil
		}
		path = found
	}
	cfg := defaultConfig()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if meta.IsDefined("compiler", "command") && len(cfg.Compiler.Command) == 0 {
		return nil, fmt.Errorf("%s: [compiler].command is empty", path)
	}
	if cfg.Display.Width < 0 {
		return nil, fmt.Errorf("%s: [display].width must not be negative", path)
	}
	if _, err := readColorMode(cfg.Display.Color); err != nil {
		return nil, fmt.Errorf("%s: [display].color: %w", path, err)
	}
	return &loadedConfig{Path: path, fileConfig: cfg}, nil
}
