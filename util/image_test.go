package util

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToNRGBA(t *testing.T) {
	t.Parallel()

	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	assert.Same(t, src, ToNRGBA(src))

	offset := image.NewRGBA(image.Rect(5, 5, 7, 8))
	offset.Set(5, 5, color.RGBA{R: 255, A: 255})
	got := ToNRGBA(offset)
	assert.Equal(t, image.Rect(0, 0, 2, 3), got.Bounds())
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, got.NRGBAAt(0, 0))

	shifted := image.NewNRGBA(image.Rect(1, 1, 3, 3))
	assert.NotSame(t, shifted, ToNRGBA(shifted))

	ycc := image.NewNYCbCrA(image.Rect(0, 0, 2, 2), image.YCbCrSubsampleRatio444)
	ycc.Y[0], ycc.Cb[0], ycc.Cr[0], ycc.A[0] = 90, 128, 128, 255
	assert.Equal(t, color.NRGBA{R: 90, G: 90, B: 90, A: 255}, ToNRGBA(ycc).NRGBAAt(0, 0))
}
