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

package probe

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"gitlab.com/tozd/go/errors"
)

// ErrUndecodable is returned for formats no registered decoder understands (heic, avif, ...).
var ErrUndecodable = errors.Base("image cannot be decoded")

// 🔬 Info describes a decoded image
type Info struct {
	Format string
	Width  int
	Height int
	// HasAlpha is true when at least one pixel is not fully opaque.
	HasAlpha bool
}

// Inspect decodes the image at path.
func Inspect(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	img, name, err := image.Decode(f)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, errors.Errorf("%s: %w", path, ErrUndecodable)
		}
		return nil, errors.Errorf("decoding %s: %w", path, err)
	}

	b := img.Bounds()
	return &Info{
		Format:   name,
		Width:    b.Dx(),
		Height:   b.Dy(),
		HasAlpha: hasTransparency(img),
	}, nil
}

func hasTransparency(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}

	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return true
			}
		}
	}
	return false
}
