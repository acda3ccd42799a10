package probe

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/image/bmp"
)

func solid(c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestInspect(t *testing.T) {
	dir := t.TempDir()

	opaque := solid(color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	cutout := solid(color.NRGBA{R: 255, G: 0, B: 0, A: 255})
	cutout.Set(1, 1, color.NRGBA{})

	write := func(name string, enc func(f *os.File) error) string {
		path := filepath.Join(dir, name)
		f, err := os.Create(path)
		require.NoError(t, err)
		defer f.Close()
		require.NoError(t, enc(f))
		return path
	}

	tests := []struct {
		name      string
		path      string
		wantFmt   string
		wantAlpha bool
	}{
		{
			name:    "opaque_png",
			path:    write("opaque.png", func(f *os.File) error { return png.Encode(f, opaque) }),
			wantFmt: "png",
		},
		{
			name:      "transparent_png",
			path:      write("cutout-no-bg.png", func(f *os.File) error { return png.Encode(f, cutout) }),
			wantFmt:   "png",
			wantAlpha: true,
		},
		{
			name:    "jpeg",
			path:    write("photo.jpg", func(f *os.File) error { return jpeg.Encode(f, opaque, nil) }),
			wantFmt: "jpeg",
		},
		{
			name:    "bmp",
			path:    write("scan.bmp", func(f *os.File) error { return bmp.Encode(f, opaque) }),
			wantFmt: "bmp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := Inspect(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFmt, info.Format)
			assert.Equal(t, 4, info.Width)
			assert.Equal(t, 3, info.Height)
			assert.Equal(t, tt.wantAlpha, info.HasAlpha)
		})
	}
}

func TestInspectErrors(t *testing.T) {
	dir := t.TempDir()

	garbage := filepath.Join(dir, "x.heic")
	require.NoError(t, os.WriteFile(garbage, []byte("ftypheic but not really"), 0644))

	_, err := Inspect(garbage)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUndecodable))

	_, err = Inspect(filepath.Join(dir, "missing.png"))
	require.Error(t, err)
}
