package compose

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: FormatPNG},
		{in: "png", want: FormatPNG},
		{in: ".PNG", want: FormatPNG},
		{in: "jpg", want: FormatJPEG},
		{in: " jpeg ", want: FormatJPEG},
		{in: "webp", wantErr: true},
		{in: "gif", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncode(t *testing.T) {
	t.Parallel()

	img := solid(8, 6, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, img, FormatPNG, EncodeOptions{PNGCompression: png.BestCompression}))
	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 6), decoded.Bounds())
	assert.Equal(t, color.NRGBAModel.Convert(decoded.At(3, 3)), color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	buf.Reset()
	require.NoError(t, Encode(&buf, img, FormatJPEG, EncodeOptions{JPEGQuality: 90}))
	cfg, err := jpeg.DecodeConfig(&buf)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Width)

	assert.ErrorIs(t, Encode(&buf, img, Format("tiff"), EncodeOptions{}), ErrUnsupportedFormat)
}

func TestWithFormatExt(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "out/user.png", withFormatExt("out/user.jpeg", FormatPNG))
	assert.Equal(t, "out/user.jpg", withFormatExt("out/user", FormatJPEG))
	assert.Equal(t, "composed.png", withFormatExt("composed.png", FormatPNG))
}
