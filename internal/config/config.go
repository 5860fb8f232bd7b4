// Package config loads and saves the user settings file shared by the
// command-line tools.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ha1tch/fsmlab/internal/logging"
	"github.com/ha1tch/fsmlab/pkg/fsm"
	"github.com/ha1tch/fsmlab/pkg/history"
)

// FileName is the settings file name inside the home directory.
const FileName = ".fsmlab.yaml"

// Config holds user settings.
type Config struct {
	DefaultType    fsm.Type      `yaml:"default_type"`
	HistoryDepth   int           `yaml:"history_depth"`
	LogLevel       string        `yaml:"log_level"`
	AnimationDelay time.Duration `yaml:"animation_delay"`
	ServerAddr     string        `yaml:"server_addr"`
	LastDir        string        `yaml:"last_dir,omitempty"`
}

// Default returns the built-in settings.
func Default() Config {
	cwd, _ := os.Getwd()
	return Config{
		DefaultType:    fsm.TypeDFA,
		HistoryDepth:   history.DefaultMaxDepth,
		LogLevel:       "info",
		AnimationDelay: 500 * time.Millisecond,
		ServerAddr:     "127.0.0.1:8080",
		LastDir:        cwd,
	}
}

// Path returns the default settings file location.
func Path() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return FileName
	}
	return filepath.Join(home, FileName)
}

// Load reads the settings at path. A missing file yields the defaults;
// fields absent from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Default(), fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	content := append([]byte("# fsmlab configuration\n"), data...)
	return os.WriteFile(path, content, 0644)
}

// Validate checks field values and normalises the automaton type.
func (c *Config) Validate() error {
	typ, err := fsm.ParseType(string(c.DefaultType))
	if err != nil {
		return err
	}
	c.DefaultType = typ
	if c.HistoryDepth < 2 {
		return fmt.Errorf("history_depth must be at least 2, got %d", c.HistoryDepth)
	}
	if c.AnimationDelay < 0 {
		return fmt.Errorf("animation_delay must not be negative")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}
