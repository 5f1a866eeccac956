package compose

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasAlpha(t *testing.T) {
	t.Parallel()

	r := image.Rect(0, 0, 2, 2)
	tests := []struct {
		name string
		img  image.Image
		want bool
	}{
		{name: "NRGBA", img: image.NewNRGBA(r), want: true},
		{name: "RGBA", img: image.NewRGBA(r), want: true},
		{name: "NRGBA64", img: image.NewNRGBA64(r), want: true},
		{name: "RGBA64", img: image.NewRGBA64(r), want: true},
		{name: "NYCbCrA", img: image.NewNYCbCrA(r, image.YCbCrSubsampleRatio444), want: true},
		{name: "YCbCr", img: image.NewYCbCr(r, image.YCbCrSubsampleRatio444), want: false},
		{name: "Gray", img: image.NewGray(r), want: false},
		{name: "Paletted 不透明", img: image.NewPaletted(r, color.Palette{color.Black, color.White}), want: false},
		{name: "Paletted 带透明", img: image.NewPaletted(r, color.Palette{color.Transparent, color.White}), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, HasAlpha(tt.img))
			if tt.want {
				assert.Equal(t, 4, Channels(tt.img))
			} else {
				assert.Equal(t, 3, Channels(tt.img))
			}
		})
	}
}

func TestPromoteOpaque(t *testing.T) {
	t.Parallel()

	src := solid(3, 3, color.NRGBA{R: 40, G: 50, B: 60, A: 100})
	got := PromoteOpaque(src)

	assert.NotSame(t, src, got)
	assert.Equal(t, color.NRGBA{R: 40, G: 50, B: 60, A: 255}, got.NRGBAAt(1, 1))
	assert.Equal(t, uint8(100), src.NRGBAAt(1, 1).A)

	gray := image.NewGray(image.Rect(2, 2, 4, 4))
	gray.SetGray(2, 2, color.Gray{Y: 77})
	promoted := PromoteOpaque(gray)
	assert.Equal(t, image.Rect(0, 0, 2, 2), promoted.Bounds())
	assert.Equal(t, color.NRGBA{R: 77, G: 77, B: 77, A: 255}, promoted.NRGBAAt(0, 0))
}

func TestHasUsefulAlpha(t *testing.T) {
	t.Parallel()

	assert.True(t, HasUsefulAlpha(solid(2, 2, color.NRGBA{A: 254})))
	assert.False(t, HasUsefulAlpha(solid(2, 2, color.NRGBA{A: 255})))
}
