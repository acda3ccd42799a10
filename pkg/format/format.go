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

package format

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"gitlab.com/tozd/go/errors"
)

// ErrUnsupportedFormat is returned when a path or format name is not a known image format.
var ErrUnsupportedFormat = errors.Base("unsupported image format")

// 🖼️ Format is a normalized raster format name, also used as the file extension.
type Format string

const (
	PNG  Format = "png"
	JPG  Format = "jpg"
	WebP Format = "webp"
	BMP  Format = "bmp"
	TIFF Format = "tiff"
	GIF  Format = "gif"
	HEIC Format = "heic"
	AVIF Format = "avif"
	ICO  Format = "ico"
)

// aliases maps every recognized extension to its normalized format
var aliases = map[string]Format{
	"png":  PNG,
	"jpg":  JPG,
	"jpeg": JPG,
	"jpe":  JPG,
	"webp": WebP,
	"bmp":  BMP,
	"tif":  TIFF,
	"tiff": TIFF,
	"gif":  GIF,
	"heic": HEIC,
	"heif": HEIC,
	"avif": AVIF,
	"ico":  ICO,
}

// Targets is the fixed, ordered list of formats a selection can be converted to.
var Targets = []Format{PNG, JPG, WebP, BMP, TIFF, GIF}

// Inputs lists every format accepted in a selection.
var Inputs = []Format{PNG, JPG, WebP, BMP, TIFF, GIF, HEIC, AVIF, ICO}

// 🏷️ Label returns the human readable name shown in menus
func (f Format) Label() string {
	switch f {
	case JPG:
		return "JPEG"
	case WebP:
		return "WebP"
	default:
		return strings.ToUpper(string(f))
	}
}

// Ext returns the extension including the leading dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// IsTarget reports whether f is one of the enumerated conversion targets.
func (f Format) IsTarget() bool {
	return slices.Contains(Targets, f)
}

// SupportsAlpha reports whether the format can store transparency.
func (f Format) SupportsAlpha() bool {
	switch f {
	case PNG, WebP, TIFF, GIF, AVIF, HEIC, ICO:
		return true
	default:
		return false
	}
}

// MIME returns the registered media type of f.
func (f Format) MIME() string {
	switch f {
	case JPG:
		return "image/jpeg"
	case HEIC:
		return "image/heic"
	case ICO:
		return "image/vnd.microsoft.icon"
	case "":
		return ""
	default:
		return "image/" + string(f)
	}
}

// Extensions returns every extension, without the dot, that maps to f.
func (f Format) Extensions() []string {
	var out []string
	for ext, target := range aliases {
		if target == f {
			out = append(out, ext)
		}
	}
	slices.Sort(out)
	return out
}

// Parse normalizes a format name or extension ("JPEG", ".tif") to a Format.
func Parse(name string) (Format, error) {
	key := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "."))
	f, ok := aliases[key]
	if !ok {
		return "", errors.Errorf("%q: %w", name, ErrUnsupportedFormat)
	}
	return f, nil
}

// ParseTarget is Parse restricted to conversion targets.
func ParseTarget(name string) (Format, error) {
	f, err := Parse(name)
	if err != nil {
		return "", err
	}
	if !f.IsTarget() {
		return "", errors.Errorf("%q is not a conversion target: %w", name, ErrUnsupportedFormat)
	}
	return f, nil
}

// 🔍 FromPath returns the format implied by the file extension of path
func FromPath(path string) (Format, bool) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", false
	}
	f, err := Parse(ext)
	if err != nil {
		return "", false
	}
	return f, true
}

// IsImagePath reports whether path carries a recognized image extension.
func IsImagePath(path string) bool {
	_, ok := FromPath(path)
	return ok
}

// SniffMIME detects the MIME type of the file content and reports whether it is an image.
func SniffMIME(path string) (string, bool, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", false, errors.Errorf("detecting mime type of %s: %w", path, err)
	}
	return mt.String(), strings.HasPrefix(mt.String(), "image/"), nil
}
