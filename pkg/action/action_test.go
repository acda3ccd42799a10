package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/imagetoolkit/pkg/format"
	"gitlab.com/tozd/go/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		id      string
		want    MenuAction
		wantErr bool
	}{
		{id: "convert:png", want: Convert(format.PNG)},
		{id: "convert:jpeg", want: Convert(format.JPG)},
		{id: " Convert:WEBP ", want: Convert(format.WebP)},
		{id: "remove-background", want: RemoveBackground()},
		{id: "convert:heic", wantErr: true},
		{id: "convert:", wantErr: true},
		{id: "resize", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, err := Parse(tt.id)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, got.Validate())
		})
	}
}

func TestIDRoundTrip(t *testing.T) {
	for _, target := range format.Targets {
		a := Convert(target)
		parsed, err := Parse(a.ID())
		require.NoError(t, err, "parsing %s", a.ID())
		assert.Equal(t, a, parsed)
	}
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "convert:jpg", Convert(format.JPG).ID())
	assert.Equal(t, "Convert to JPEG", Convert(format.JPG).Label())
	assert.Equal(t, "Convert the selected images to PNG format", Convert(format.PNG).Tip())
	assert.Equal(t, "Remove White Background", RemoveBackground().Label())
	assert.Equal(t, "White Background Removal", RemoveBackground().Title())
	assert.Equal(t, "Image Conversion", Convert(format.GIF).Title())
	assert.Equal(t, "Converted cat.jpg to PNG format.", Convert(format.PNG).Done("cat.jpg"))
	assert.Equal(t, "Removed white background from 2 files.", RemoveBackground().Done("2 files"))
}

func TestValidate(t *testing.T) {
	err := Convert(format.AVIF).Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, format.ErrUnsupportedFormat))

	require.Error(t, MenuAction{}.Validate())
}
