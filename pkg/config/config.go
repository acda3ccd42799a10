// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"github.com/rs/zerolog"
	"github.com/walteh/imagetoolkit/pkg/format"
	"github.com/walteh/imagetoolkit/pkg/outpath"
	"github.com/walteh/imagetoolkit/pkg/tool"
	"gitlab.com/tozd/go/errors"
)

const (
	AppName         = "imagetoolkit"
	DefaultTimeout  = 2 * time.Minute
	defaultFileName = "config.yaml"
)

// 🔧 ToolConfig selects the external image tool
type ToolConfig struct {
	Binary  string `json:"binary" yaml:"binary" toml:"binary" validate:"required"`
	Timeout string `json:"timeout" yaml:"timeout" toml:"timeout" validate:"required"`
}

// 🔄 ConvertConfig tunes the convert actions
type ConvertConfig struct {
	Targets   []string `json:"targets" yaml:"targets" toml:"targets" validate:"required,min=1,dive,required"`
	Collision string   `json:"collision" yaml:"collision" toml:"collision" validate:"omitempty,oneof=rename overwrite reject"`
}

// BackgroundConfig tunes the background removal action
type BackgroundConfig struct {
	Fuzz    string   `json:"fuzz" yaml:"fuzz" toml:"fuzz"`
	Color   string   `json:"color" yaml:"color" toml:"color" validate:"required"`
	Suffix  string   `json:"suffix" yaml:"suffix" toml:"suffix" validate:"required,excludesall=/"`
	Command []string `json:"command,omitempty" yaml:"command,omitempty" toml:"command,omitempty"`
}

type SelectionConfig struct {
	SniffContent   bool     `json:"sniff_content" yaml:"sniff_content" toml:"sniff_content"`
	IgnorePatterns []string `json:"ignore_patterns,omitempty" yaml:"ignore_patterns,omitempty" toml:"ignore_patterns,omitempty"`
}

type DispatchConfig struct {
	Parallelism int `json:"parallelism" yaml:"parallelism" toml:"parallelism" validate:"min=1,max=64"`
}

type NotifyConfig struct {
	Desktop bool `json:"desktop" yaml:"desktop" toml:"desktop"`
	Console bool `json:"console" yaml:"console" toml:"console"`
}

// 📝 LogConfig controls the rotating log file
type LogConfig struct {
	File       string `json:"file" yaml:"file" toml:"file"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb" toml:"max_size_mb" validate:"min=1"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups" toml:"max_backups" validate:"min=0"`
}

// 📚 Config represents the complete configuration
type Config struct {
	Tool             ToolConfig       `json:"tool" yaml:"tool" toml:"tool"`
	Convert          ConvertConfig    `json:"convert" yaml:"convert" toml:"convert"`
	RemoveBackground BackgroundConfig `json:"remove_background" yaml:"remove_background" toml:"remove_background"`
	Selection        SelectionConfig  `json:"selection" yaml:"selection" toml:"selection"`
	Dispatch         DispatchConfig   `json:"dispatch" yaml:"dispatch" toml:"dispatch"`
	Notify           NotifyConfig     `json:"notify" yaml:"notify" toml:"notify"`
	Log              LogConfig        `json:"log" yaml:"log" toml:"log"`

	location string
}

// 🏗️ Default returns the configuration used when no file exists
func Default() *Config {
	targets := make([]string, 0, len(format.Targets))
	for _, t := range format.Targets {
		targets = append(targets, string(t))
	}

	return &Config{
		Tool: ToolConfig{
			Binary:  tool.DefaultBinary,
			Timeout: DefaultTimeout.String(),
		},
		Convert: ConvertConfig{
			Targets:   targets,
			Collision: string(outpath.PolicyRename),
		},
		RemoveBackground: BackgroundConfig{
			Fuzz:   tool.DefaultFuzz,
			Color:  tool.DefaultColor,
			Suffix: outpath.DefaultBackgroundSuffix,
		},
		Dispatch: DispatchConfig{Parallelism: 1},
		Notify:   NotifyConfig{Desktop: true},
		Log: LogConfig{
			File:       DefaultLogFile(os.LookupEnv),
			MaxSizeMB:  5,
			MaxBackups: 3,
		},
	}
}

// Location is the file the config was loaded from, or "" for defaults.
func (cfg *Config) Location() string {
	return cfg.location
}

var fuzzPattern = regexp.MustCompile(`^\d+(\.\d+)?%?$`)

// 🔍 Validate checks struct constraints and normalizes values
func (cfg *Config) Validate() error {
	if err := validator.New().Struct(cfg); err != nil {
		return errors.Errorf("invalid config: %w", err)
	}

	if _, err := cfg.Timeout(); err != nil {
		return err
	}
	if _, err := cfg.Targets(); err != nil {
		return err
	}
	if _, err := outpath.ParsePolicy(cfg.Convert.Collision); err != nil {
		return err
	}
	if cfg.RemoveBackground.Fuzz != "" && !fuzzPattern.MatchString(cfg.RemoveBackground.Fuzz) {
		return errors.Errorf("remove_background.fuzz %q must be a number or percentage", cfg.RemoveBackground.Fuzz)
	}
	if cfg.Log.File != "" {
		cfg.Log.File = filepath.Clean(cfg.Log.File)
	}
	return nil
}

// Timeout returns the parsed per-file timeout.
func (cfg *Config) Timeout() (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(cfg.Tool.Timeout))
	if err != nil {
		return 0, errors.Errorf("tool.timeout: %w", err)
	}
	if d <= 0 {
		return 0, errors.Errorf("tool.timeout must be positive, got %s", d)
	}
	return d, nil
}

// Targets returns the configured conversion targets in order, without duplicates.
func (cfg *Config) Targets() ([]format.Format, error) {
	out := make([]format.Format, 0, len(cfg.Convert.Targets))
	seen := map[format.Format]bool{}
	for _, name := range cfg.Convert.Targets {
		f, err := format.ParseTarget(name)
		if err != nil {
			return nil, errors.Errorf("convert.targets: %w", err)
		}
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out, nil
}

// Policy returns the collision policy; Validate has already checked it.
func (cfg *Config) Policy() outpath.Policy {
	p, _ := outpath.ParsePolicy(cfg.Convert.Collision)
	return p
}

// Magick builds the invocation builder for this configuration.
func (cfg *Config) Magick() *tool.Magick {
	m := tool.NewMagick(cfg.Tool.Binary)
	if cfg.RemoveBackground.Fuzz != "" {
		m.Fuzz = cfg.RemoveBackground.Fuzz
	}
	if cfg.RemoveBackground.Color != "" {
		m.Color = cfg.RemoveBackground.Color
	}
	m.BackgroundCommand = cfg.RemoveBackground.Command
	return m
}

// 📂 DefaultPath is $XDG_CONFIG_HOME/imagetoolkit/config.yaml
func DefaultPath(lookup func(string) (string, bool)) string {
	return filepath.Join(xdgDir(lookup, "XDG_CONFIG_HOME", ".config"), AppName, defaultFileName)
}

// DefaultLogFile is $XDG_STATE_HOME/imagetoolkit/imagetoolkit.log
func DefaultLogFile(lookup func(string) (string, bool)) string {
	return filepath.Join(xdgDir(lookup, "XDG_STATE_HOME", filepath.Join(".local", "state")), AppName, AppName+".log")
}

func xdgDir(lookup func(string) (string, bool), env, fallback string) string {
	if dir, ok := lookup(env); ok && filepath.IsAbs(dir) {
		return dir
	}
	home, ok := lookup("HOME")
	if !ok || home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, fallback)
}

// 🎯 Load reads the configuration at path. An empty path means the default
// location, where a missing file yields the defaults.
func Load(ctx context.Context, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)

	explicit := path != ""
	if !explicit {
		path = DefaultPath(os.LookupEnv)
	}

	logger.Debug().Str("path", path).Bool("explicit", explicit).Msg("loading configuration")

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			logger.Debug().Msg("no config file, using defaults")
			return Default(), nil
		}
		return nil, errors.Errorf("reading config file: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	cfg := Default()
	if err := p.Parse(ctx, data, cfg); err != nil {
		return nil, errors.Errorf("parsing config: %w", err)
	}
	cfg.location = path

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	return cfg, nil
}
