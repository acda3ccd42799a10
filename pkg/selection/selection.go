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

package selection

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/walteh/imagetoolkit/pkg/format"
	"gitlab.com/tozd/go/errors"
)

// environment variables file managers export to scripts
const (
	NautilusPathsEnv = "NAUTILUS_SCRIPT_SELECTED_FILE_PATHS"
	NautilusURIsEnv  = "NAUTILUS_SCRIPT_SELECTED_URIS"
	NemoPathsEnv     = "NEMO_SCRIPT_SELECTED_FILE_PATHS"
)

// 📂 Selection is the ordered list of absolute file paths the host handed us
type Selection []string

// Options tune the eligibility predicate.
type Options struct {
	// SniffContent additionally requires the file content to be detected as image/*.
	SniffContent bool
	// IgnorePatterns are doublestar globs; a matching file makes the selection ineligible.
	IgnorePatterns []string
}

// Parse normalizes host arguments, which may be plain paths or file:// URIs.
// A file named more than once is kept at its first position only.
func Parse(args []string) (Selection, error) {
	sel := make(Selection, 0, len(args))
	seen := make(map[string]struct{}, len(args))
	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			continue
		}
		path, err := normalize(arg)
		if err != nil {
			return nil, errors.Errorf("parsing selection entry %q: %w", arg, err)
		}
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}
		sel = append(sel, path)
	}
	return sel, nil
}

// FromEnv reads a newline separated selection exported by the file manager.
// lookup is usually os.LookupEnv.
func FromEnv(lookup func(string) (string, bool)) (Selection, error) {
	for _, key := range []string{NautilusPathsEnv, NemoPathsEnv, NautilusURIsEnv} {
		raw, ok := lookup(key)
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		return Parse(strings.Split(raw, "\n"))
	}
	return Selection{}, nil
}

func normalize(entry string) (string, error) {
	path := entry
	if strings.HasPrefix(entry, "file://") {
		u, err := url.Parse(entry)
		if err != nil {
			return "", errors.Errorf("parsing uri: %w", err)
		}
		if u.Host != "" && u.Host != "localhost" {
			return "", errors.Errorf("remote uri host %q is not supported", u.Host)
		}
		path = u.Path
	} else if strings.Contains(entry, "://") {
		return "", errors.Errorf("unsupported uri scheme")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Errorf("resolving absolute path: %w", err)
	}
	return abs, nil
}

// Formats returns the recognized format of every entry, in order.
// The second result is false when any entry is unrecognized.
func (s Selection) Formats() ([]format.Format, bool) {
	formats := make([]format.Format, 0, len(s))
	for _, p := range s {
		f, ok := format.FromPath(p)
		if !ok {
			return nil, false
		}
		formats = append(formats, f)
	}
	return formats, true
}

// AllIn reports whether every entry is already in format f.
func (s Selection) AllIn(f format.Format) bool {
	if len(s) == 0 {
		return false
	}
	formats, ok := s.Formats()
	if !ok {
		return false
	}
	for _, got := range formats {
		if got != f {
			return false
		}
	}
	return true
}

// 🔍 Eligible reports whether image actions may be offered for the selection.
// A failing entry is a filtering decision, so the reason is only logged.
func Eligible(ctx context.Context, s Selection, opts Options) bool {
	logger := zerolog.Ctx(ctx)

	if len(s) == 0 {
		logger.Debug().Msg("empty selection")
		return false
	}

	for _, path := range s {
		if reason := rejectReason(path, opts); reason != "" {
			logger.Debug().Str("path", path).Str("reason", reason).Msg("selection not eligible")
			return false
		}
	}
	return true
}

func rejectReason(path string, opts Options) string {
	if !format.IsImagePath(path) {
		return "unrecognized extension"
	}

	for _, pattern := range opts.IgnorePatterns {
		matched, err := doublestar.PathMatch(pattern, path)
		if err != nil {
			continue
		}
		if matched {
			return "ignored by pattern " + pattern
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return "stat failed: " + err.Error()
	}
	if !info.Mode().IsRegular() {
		return "not a regular file"
	}

	if opts.SniffContent {
		mime, isImage, err := format.SniffMIME(path)
		if err != nil {
			return err.Error()
		}
		if !isImage {
			return "content is " + mime
		}
	}

	return ""
}
