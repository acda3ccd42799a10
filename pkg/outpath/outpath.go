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

package outpath

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/walteh/imagetoolkit/pkg/format"
	"gitlab.com/tozd/go/errors"
)

// ErrCollision is returned when the derived output path is taken and the policy forbids reuse.
var ErrCollision = errors.Base("output path collision")

// DefaultBackgroundSuffix is appended to the base name of background-removal outputs.
const DefaultBackgroundSuffix = "-no-bg"

// maxRenameAttempts bounds the "name (n).ext" search
const maxRenameAttempts = 10000

// Policy decides what happens when a derived output path already exists.
type Policy string

const (
	// PolicyRename picks the first free "name (n).ext" sibling.
	PolicyRename Policy = "rename"
	// PolicyOverwrite lets the external tool replace the existing file.
	PolicyOverwrite Policy = "overwrite"
	// PolicyReject fails the file with ErrCollision.
	PolicyReject Policy = "reject"
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyRename, PolicyOverwrite, PolicyReject:
		return p, nil
	case "":
		return PolicyRename, nil
	default:
		return "", errors.Errorf("unknown collision policy %q", s)
	}
}

// Convert derives <dir>/<name>.<target> for input.
func Convert(input string, target format.Format) string {
	return filepath.Join(filepath.Dir(input), stem(input)+target.Ext())
}

// RemoveBackground derives <dir>/<name><suffix>.png for input.
func RemoveBackground(input, suffix string) string {
	if suffix == "" {
		suffix = DefaultBackgroundSuffix
	}
	return filepath.Join(filepath.Dir(input), stem(input)+suffix+format.PNG.Ext())
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Resolver applies a Policy against the filesystem. Paths it hands out are
// claimed, so concurrent files of one batch never resolve to the same output.
type Resolver struct {
	Policy Policy
	// exists is replaceable in tests
	exists func(string) (bool, error)

	mu      sync.Mutex
	claimed map[string]struct{}
}

// NewResolver returns a Resolver backed by os.Stat.
func NewResolver(p Policy) *Resolver {
	return &Resolver{Policy: p, exists: statExists}
}

func statExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.Errorf("checking %s: %w", path, err)
}

// Scope returns a Resolver with the same policy and an empty claim set, for one batch.
func (r *Resolver) Scope() *Resolver {
	return &Resolver{Policy: r.Policy, exists: r.exists}
}

// 🎯 Resolve returns the path the tool should write to.
// The input file itself is never a valid output, whatever the policy.
func (r *Resolver) Resolve(input, candidate string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.claimed == nil {
		r.claimed = make(map[string]struct{})
	}

	onDisk := r.exists
	if onDisk == nil {
		onDisk = statExists
	}
	exists := func(path string) (bool, error) {
		if _, ok := r.claimed[path]; ok {
			return true, nil
		}
		return onDisk(path)
	}
	claim := func(path string) (string, error) {
		r.claimed[path] = struct{}{}
		return path, nil
	}

	if filepath.Clean(input) == filepath.Clean(candidate) {
		return "", errors.Errorf("%s would overwrite its input: %w", candidate, ErrCollision)
	}

	taken, err := exists(candidate)
	if err != nil {
		return "", err
	}
	if !taken {
		return claim(candidate)
	}

	switch r.Policy {
	case PolicyOverwrite:
		// two files of one batch still may not share an output
		if _, inBatch := r.claimed[candidate]; !inBatch {
			return claim(candidate)
		}
	case PolicyReject:
		return "", errors.Errorf("%s already exists: %w", candidate, ErrCollision)
	}

	ext := filepath.Ext(candidate)
	base := strings.TrimSuffix(candidate, ext)
	for i := 1; i <= maxRenameAttempts; i++ {
		next := fmt.Sprintf("%s (%d)%s", base, i, ext)
		taken, err := exists(next)
		if err != nil {
			return "", err
		}
		if !taken {
			return claim(next)
		}
	}
	return "", errors.Errorf("no free name for %s after %d attempts: %w", candidate, maxRenameAttempts, ErrCollision)
}
