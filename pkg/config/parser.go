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
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/pelletier/go-toml/v2"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse decodes data over cfg; keys absent from data keep their value
	Parse(ctx context.Context, data []byte, cfg *Config) error

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

func init() {
	Register(&YAMLParser{})
	Register(&HCLParser{})
	Register(&JSONParser{})
	Register(&TOMLParser{})
}

func hasExt(filename string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

func blank(data []byte) bool {
	return len(bytes.TrimSpace(data)) == 0
}

// 🔧 YAMLParser implements the Parser interface for YAML files
type YAMLParser struct{}

func (p *YAMLParser) CanParse(filename string) bool {
	return hasExt(filename, ".yaml", ".yml")
}

func (p *YAMLParser) Parse(ctx context.Context, data []byte, cfg *Config) error {
	if blank(data) {
		return nil
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return errors.Errorf("parsing YAML: %w", err)
	}
	return nil
}

type JSONParser struct{}

func (p *JSONParser) CanParse(filename string) bool {
	return hasExt(filename, ".json")
}

func (p *JSONParser) Parse(ctx context.Context, data []byte, cfg *Config) error {
	if blank(data) {
		return nil
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		return errors.Errorf("parsing JSON: %w", err)
	}
	return nil
}

type TOMLParser struct{}

func (p *TOMLParser) CanParse(filename string) bool {
	return hasExt(filename, ".toml")
}

func (p *TOMLParser) Parse(ctx context.Context, data []byte, cfg *Config) error {
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		return errors.Errorf("parsing TOML: %w", err)
	}
	return nil
}

// 🔧 HCLParser implements the Parser interface for HCL files
type HCLParser struct{}

func (p *HCLParser) CanParse(filename string) bool {
	return hasExt(filename, ".hcl")
}

// hclConfig mirrors Config with every attribute optional, so unset keys keep their defaults.
type hclConfig struct {
	Tool *struct {
		Binary  *string `hcl:"binary,optional"`
		Timeout *string `hcl:"timeout,optional"`
	} `hcl:"tool,block"`
	Convert *struct {
		Targets   *[]string `hcl:"targets,optional"`
		Collision *string   `hcl:"collision,optional"`
	} `hcl:"convert,block"`
	RemoveBackground *struct {
		Fuzz    *string   `hcl:"fuzz,optional"`
		Color   *string   `hcl:"color,optional"`
		Suffix  *string   `hcl:"suffix,optional"`
		Command *[]string `hcl:"command,optional"`
	} `hcl:"remove_background,block"`
	Selection *struct {
		SniffContent   *bool     `hcl:"sniff_content,optional"`
		IgnorePatterns *[]string `hcl:"ignore_patterns,optional"`
	} `hcl:"selection,block"`
	Dispatch *struct {
		Parallelism *int `hcl:"parallelism,optional"`
	} `hcl:"dispatch,block"`
	Notify *struct {
		Desktop *bool `hcl:"desktop,optional"`
		Console *bool `hcl:"console,optional"`
	} `hcl:"notify,block"`
	Log *struct {
		File       *string `hcl:"file,optional"`
		MaxSizeMB  *int    `hcl:"max_size_mb,optional"`
		MaxBackups *int    `hcl:"max_backups,optional"`
	} `hcl:"log,block"`
}

func (p *HCLParser) Parse(ctx context.Context, data []byte, cfg *Config) error {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, "config.hcl")
	if diags.HasErrors() {
		return errors.Errorf("parsing HCL: %s", diags.Error())
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"default_targets": cty.ListVal(ctyStrings(Default().Convert.Targets)),
		},
	}

	var raw hclConfig
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &raw)
	if diags.HasErrors() {
		return errors.Errorf("decoding HCL: %s", diags.Error())
	}

	if b := raw.Tool; b != nil {
		set(&cfg.Tool.Binary, b.Binary)
		set(&cfg.Tool.Timeout, b.Timeout)
	}
	if b := raw.Convert; b != nil {
		set(&cfg.Convert.Targets, b.Targets)
		set(&cfg.Convert.Collision, b.Collision)
	}
	if b := raw.RemoveBackground; b != nil {
		set(&cfg.RemoveBackground.Fuzz, b.Fuzz)
		set(&cfg.RemoveBackground.Color, b.Color)
		set(&cfg.RemoveBackground.Suffix, b.Suffix)
		set(&cfg.RemoveBackground.Command, b.Command)
	}
	if b := raw.Selection; b != nil {
		set(&cfg.Selection.SniffContent, b.SniffContent)
		set(&cfg.Selection.IgnorePatterns, b.IgnorePatterns)
	}
	if b := raw.Dispatch; b != nil {
		set(&cfg.Dispatch.Parallelism, b.Parallelism)
	}
	if b := raw.Notify; b != nil {
		set(&cfg.Notify.Desktop, b.Desktop)
		set(&cfg.Notify.Console, b.Console)
	}
	if b := raw.Log; b != nil {
		set(&cfg.Log.File, b.File)
		set(&cfg.Log.MaxSizeMB, b.MaxSizeMB)
		set(&cfg.Log.MaxBackups, b.MaxBackups)
	}

	return nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func ctyStrings(values []string) []cty.Value {
	out := make([]cty.Value, 0, len(values))
	for _, v := range values {
		out = append(out, cty.StringVal(v))
	}
	return out
}
