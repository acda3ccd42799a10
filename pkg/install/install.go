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

package install

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/walteh/imagetoolkit/pkg/action"
	"github.com/walteh/imagetoolkit/pkg/format"
	"gitlab.com/tozd/go/errors"
)

// 🎯 Target is a file manager that picks up menu entries from disk
type Target string

const (
	TargetNautilus Target = "nautilus"
	TargetNemo     Target = "nemo"
	TargetDolphin  Target = "dolphin"
)

// AllTargets lists every supported file manager.
var AllTargets = []Target{TargetNautilus, TargetNemo, TargetDolphin}

var ErrUnknownTarget = errors.Base("unknown install target")

// ParseTarget normalizes a file manager name.
func ParseTarget(s string) (Target, error) {
	t := Target(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllTargets {
		if t == known {
			return t, nil
		}
	}
	return "", errors.Errorf("%q: %w", s, ErrUnknownTarget)
}

const (
	nautilusDir     = "Image Toolkit"
	nemoPrefix      = "imagetoolkit-"
	nemoSuffix      = ".nemo_action"
	dolphinFileName = "imagetoolkit.desktop"
)

// 🔧 Options describes what gets installed and where
type Options struct {
	// Home is the user's home directory.
	Home string
	// Binary is the absolute path of the imagetoolkit executable.
	Binary string
	// Actions are the menu entries to install, in menu order.
	Actions []action.MenuAction
}

func (o Options) validate() error {
	if o.Home == "" || !filepath.IsAbs(o.Home) {
		return errors.Errorf("home directory must be absolute, got %q", o.Home)
	}
	if o.Binary == "" {
		return errors.Errorf("binary path is required")
	}
	if len(o.Actions) == 0 {
		return errors.Errorf("no actions to install")
	}
	for _, a := range o.Actions {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// 📄 Artifact is one file written for a target
type Artifact struct {
	Path    string
	Content []byte
	Mode    fs.FileMode
}

// Dir returns the directory the target scans for menu entries.
func Dir(t Target, home string) string {
	share := filepath.Join(home, ".local", "share")
	switch t {
	case TargetNautilus:
		return filepath.Join(share, "nautilus", "scripts", nautilusDir)
	case TargetNemo:
		return filepath.Join(share, "nemo", "actions")
	case TargetDolphin:
		return filepath.Join(share, "kio", "servicemenus")
	default:
		return ""
	}
}

// owned matches the files a target's install may have written, relative to Dir.
func owned(t Target) string {
	switch t {
	case TargetNautilus:
		return "*"
	case TargetNemo:
		return nemoPrefix + "*" + nemoSuffix
	default:
		return dolphinFileName
	}
}

// 📋 Plan returns the artifacts for t without touching the filesystem
func Plan(t Target, opts Options) ([]Artifact, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	dir := Dir(t, opts.Home)
	switch t {
	case TargetNautilus:
		out := make([]Artifact, 0, len(opts.Actions))
		for _, a := range opts.Actions {
			out = append(out, Artifact{
				Path:    filepath.Join(dir, a.Label()),
				Content: nautilusScript(opts.Binary, a),
				Mode:    0o755,
			})
		}
		return out, nil
	case TargetNemo:
		out := make([]Artifact, 0, len(opts.Actions))
		for _, a := range opts.Actions {
			content, err := nemoAction(opts.Binary, a)
			if err != nil {
				return nil, errors.Errorf("nemo action %s: %w", a.ID(), err)
			}
			out = append(out, Artifact{
				Path:    filepath.Join(dir, nemoPrefix+slug(a)+nemoSuffix),
				Content: content,
				Mode:    0o644,
			})
		}
		return out, nil
	case TargetDolphin:
		content, err := dolphinServiceMenu(opts.Binary, opts.Actions)
		if err != nil {
			return nil, errors.Errorf("dolphin service menu: %w", err)
		}
		return []Artifact{{
			Path:    filepath.Join(dir, dolphinFileName),
			Content: content,
			Mode:    0o755,
		}}, nil
	default:
		return nil, errors.Errorf("%q: %w", t, ErrUnknownTarget)
	}
}

// 📊 Result lists what an install or uninstall changed
type Result struct {
	Target    Target
	Written   []string
	Unchanged []string
	Removed   []string
}

// 🚀 Install writes the artifacts for t. Files already holding the expected
// content are left alone, and stale entries from an earlier install are removed.
func Install(ctx context.Context, t Target, opts Options) (*Result, error) {
	logger := zerolog.Ctx(ctx).With().Str("target", string(t)).Logger()

	artifacts, err := Plan(t, opts)
	if err != nil {
		return nil, err
	}

	res := &Result{Target: t}
	keep := map[string]bool{}
	for _, a := range artifacts {
		keep[a.Path] = true

		changed, err := writeArtifact(a)
		if err != nil {
			return res, err
		}
		if changed {
			logger.Debug().Str("path", a.Path).Msg("wrote menu entry")
			res.Written = append(res.Written, a.Path)
		} else {
			res.Unchanged = append(res.Unchanged, a.Path)
		}
	}

	existing, err := ownedFiles(t, opts.Home)
	if err != nil {
		return res, err
	}
	for _, path := range existing {
		if keep[path] {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return res, errors.Errorf("removing stale entry %s: %w", path, err)
		}
		logger.Debug().Str("path", path).Msg("removed stale menu entry")
		res.Removed = append(res.Removed, path)
	}

	return res, nil
}

// 🧹 Uninstall removes every artifact Install may have written for t.
func Uninstall(ctx context.Context, t Target, home string) (*Result, error) {
	if Dir(t, home) == "" {
		return nil, errors.Errorf("%q: %w", t, ErrUnknownTarget)
	}

	res := &Result{Target: t}
	existing, err := ownedFiles(t, home)
	if err != nil {
		return nil, err
	}
	for _, path := range existing {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return res, errors.Errorf("removing %s: %w", path, err)
		}
		res.Removed = append(res.Removed, path)
	}

	// the nautilus submenu directory belongs to us
	if t == TargetNautilus {
		if err := os.Remove(Dir(t, home)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("leaving non-empty scripts directory")
		}
	}

	return res, nil
}

func writeArtifact(a Artifact) (bool, error) {
	current, err := os.ReadFile(a.Path)
	if err == nil && bytes.Equal(current, a.Content) {
		info, statErr := os.Stat(a.Path)
		if statErr == nil && info.Mode().Perm() == a.Mode {
			return false, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(a.Path), 0o755); err != nil {
		return false, errors.Errorf("creating %s: %w", filepath.Dir(a.Path), err)
	}
	if err := os.WriteFile(a.Path, a.Content, a.Mode); err != nil {
		return false, errors.Errorf("writing %s: %w", a.Path, err)
	}
	// WriteFile keeps the mode of an existing file
	if err := os.Chmod(a.Path, a.Mode); err != nil {
		return false, errors.Errorf("chmod %s: %w", a.Path, err)
	}
	return true, nil
}

func ownedFiles(t Target, home string) ([]string, error) {
	dir := Dir(t, home)
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	matches, err := doublestar.Glob(os.DirFS(dir), owned(t), doublestar.WithFilesOnly())
	if err != nil {
		return nil, errors.Errorf("listing %s: %w", dir, err)
	}

	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, filepath.Join(dir, filepath.FromSlash(m)))
	}
	sort.Strings(out)
	return out, nil
}

func slug(a action.MenuAction) string {
	return strings.NewReplacer(":", "-", "/", "-").Replace(a.ID())
}

func mimeTypes() []string {
	seen := map[string]bool{}
	var out []string
	for _, f := range format.Inputs {
		m := f.MIME()
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

func extensions() []string {
	var out []string
	for _, f := range format.Inputs {
		out = append(out, f.Extensions()...)
	}
	return out
}
