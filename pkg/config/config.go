// Package config handles minijvm.toml run configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap/zapcore"
)

// FileName is the configuration file looked up by FindAndLoad.
const FileName = "minijvm.toml"

// Dump output formats.
const (
	FormatText = "text"
	FormatCBOR = "cbor"
)

// Config represents a minijvm.toml configuration.
type Config struct {
	Run  Run  `toml:"run"`
	Log  Log  `toml:"log"`
	Dump Dump `toml:"dump"`

	// Dir is the directory containing the config file (set at load time).
	Dir string `toml:"-"`
}

// Run selects the class to load and whether to interpret it.
type Run struct {
	ClassPath string `toml:"class_path"`
	Class     string `toml:"class"`
	Run       bool   `toml:"run"`
}

type Log struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

// Dump configures the class summary printed before running.
type Dump struct {
	Enabled bool   `toml:"enabled"`
	Format  string `toml:"format"`
	Output  string `toml:"output"` // empty means stdout
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Run: Run{ClassPath: ".", Run: true},
		Log: Log{Level: "info"},
		Dump: Dump{
			Format: FormatText,
		},
	}
}

// Load parses the configuration file at path. Keys missing from the file
// keep their Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find a minijvm.toml file, then
// loads it. Returns nil if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Run.ClassPath == "" {
		return fmt.Errorf("run.class_path must not be empty")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Dump.Format {
	case FormatText, FormatCBOR:
	default:
		return fmt.Errorf("dump.format: unknown format %q", c.Dump.Format)
	}
	return nil
}

// ClassPathDir returns the class path, resolved against the config
// file's directory when relative.
func (c *Config) ClassPathDir() string {
	if c.Dir == "" || filepath.IsAbs(c.Run.ClassPath) {
		return c.Run.ClassPath
	}
	return filepath.Join(c.Dir, c.Run.ClassPath)
}
