package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the mosespipe configuration file
// (~/.config/mosespipe/config.yaml). Pointer fields distinguish "not set"
// from zero values.
type Config struct {
	ScriptsDir  string         `yaml:"scripts_dir"`
	Lang        string         `yaml:"lang"`
	KillTimeout *time.Duration `yaml:"kill_timeout"`

	// Sentence splitter defaults
	More     *bool `yaml:"more"`
	EvenMore *bool `yaml:"even_more"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server
	ServerAddress string `yaml:"server_address"`

	Engines EnginesConfig `yaml:"engines"`
}

// EnginesConfig replaces the "perl <script>" launcher per engine. Flags and
// "-l <lang>" are still appended.
type EnginesConfig struct {
	Tokenizer  []string `yaml:"tokenizer"`
	Splitter   []string `yaml:"splitter"`
	Normalizer []string `yaml:"normalizer"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "mosespipe", "config.yaml")
}

// loadConfig reads the config file at path. A missing file yields a zero
// Config unless required is set.
func loadConfig(path string, required bool) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !required {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	for name, argv := range map[string][]string{
		"tokenizer":  cfg.Engines.Tokenizer,
		"splitter":   cfg.Engines.Splitter,
		"normalizer": cfg.Engines.Normalizer,
	} {
		if len(argv) > 0 && slices.Contains(argv, "") {
			return Config{}, fmt.Errorf("parse config %s: engines.%s contains an empty argument", path, name)
		}
	}
	return cfg, nil
}

// applyGlobalConfig applies config file defaults to the global options when
// the corresponding flag was not explicitly set.
func applyGlobalConfig(c *cli.Command, cfg Config, o *options) {
	o.file = cfg
	if cfg.ScriptsDir != "" && !c.IsSet("scripts-dir") {
		o.scriptsDir = cfg.ScriptsDir
	}
	if cfg.KillTimeout != nil && !c.IsSet("kill-timeout") {
		o.killTimeout = *cfg.KillTimeout
	}
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		o.logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		o.logFormat = cfg.LogFormat
	}
}

// applySplitConfig applies config file defaults to the split flags.
func applySplitConfig(c *cli.Command, cfg Config, more, evenMore *bool) {
	if cfg.More != nil && !c.IsSet("more") {
		*more = *cfg.More
	}
	if cfg.EvenMore != nil && !c.IsSet("even-more") {
		*evenMore = *cfg.EvenMore
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr, lang *string) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
	if cfg.Lang != "" && !c.IsSet("lang") {
		*lang = cfg.Lang
	}
}
