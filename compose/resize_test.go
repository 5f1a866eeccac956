package compose

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScaledSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		w, h, target int
		want         image.Point
		wantErr      bool
	}{
		{name: "缩小", w: 300, h: 900, target: 600, want: image.Pt(200, 600)},
		{name: "放大", w: 150, h: 100, target: 300, want: image.Pt(450, 300)},
		{name: "四舍五入向上", w: 301, h: 900, target: 600, want: image.Pt(201, 600)},
		{name: "四舍五入向下", w: 100, h: 3, target: 2, want: image.Pt(67, 2)},
		{name: "高度不变", w: 640, h: 480, target: 480, want: image.Pt(640, 480)},
		{name: "原高度为 0", w: 300, h: 0, target: 600, wantErr: true},
		{name: "目标高度为 0", w: 300, h: 900, target: 0, wantErr: true},
		{name: "目标高度为负", w: 300, h: 900, target: -5, wantErr: true},
		{name: "宽度缩成 0", w: 1, h: 1000, target: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ScaledSize(tt.w, tt.h, tt.target)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDimension)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScaledSize_AspectRatio(t *testing.T) {
	t.Parallel()

	for w := 1; w <= 64; w += 7 {
		for h := 1; h <= 64; h += 5 {
			for target := 32; target <= 96; target += 16 {
				got, err := ScaledSize(w, h, target)
				if err != nil {
					assert.ErrorIs(t, err, ErrInvalidDimension)
					continue
				}
				assert.Equal(t, target, got.Y)
				assert.Equal(t, int(math.Round(float64(w)*float64(target)/float64(h))), got.X,
					"w=%d h=%d target=%d", w, h, target)
			}
		}
	}
}

func TestResizeToHeight(t *testing.T) {
	t.Parallel()

	red := color.NRGBA{R: 220, G: 10, B: 30, A: 255}
	src := solid(300, 900, red)

	for _, interp := range []Interpolation{"", NearestNeighbor, Bilinear, Bicubic, MitchellNetravali, Lanczos2, Lanczos3} {
		t.Run(string(interp), func(t *testing.T) {
			t.Parallel()

			got, err := ResizeToHeight(src, 600, interp)
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, 200, 600), got.Bounds())
			assert.Equal(t, red, got.NRGBAAt(0, 0))
			assert.Equal(t, red, got.NRGBAAt(100, 300))
			assert.Equal(t, red, got.NRGBAAt(199, 599))
		})
	}
}

func TestResizeToHeight_AlphaInterpolated(t *testing.T) {
	t.Parallel()

	// 左半透明、右半不透明，缩放后中间出现半透明过渡
	src := solid(8, 8, color.NRGBA{R: 255, A: 255})
	for y := 0; y < 8; y++ {
		for x := 0; x < 4; x++ {
			src.SetNRGBA(x, y, color.NRGBA{})
		}
	}

	got, err := ResizeToHeight(src, 16, Bilinear)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 16, 16), got.Bounds())
	assert.Equal(t, uint8(0), got.NRGBAAt(0, 8).A)
	assert.Equal(t, uint8(255), got.NRGBAAt(15, 8).A)

	fringe := false
	for x := 0; x < 16; x++ {
		if a := got.NRGBAAt(x, 8).A; a > 0 && a < 255 {
			fringe = true
		}
	}
	assert.True(t, fringe, "expected semi-transparent pixels at the edge")
}

func TestResizeToHeight_SameSizeCopies(t *testing.T) {
	t.Parallel()

	src := solid(10, 20, color.NRGBA{G: 200, A: 255})
	got, err := ResizeToHeight(src, 20, Bilinear)
	require.NoError(t, err)
	assert.NotSame(t, src, got)

	got.Pix[0] = 1
	assert.Equal(t, uint8(0), src.Pix[0])
}

func TestResizeToHeight_Errors(t *testing.T) {
	t.Parallel()

	src := solid(10, 20, color.NRGBA{A: 255})

	_, err := ResizeToHeight(src, 0, Bilinear)
	assert.ErrorIs(t, err, ErrInvalidDimension)

	_, err = ResizeToHeight(image.NewNRGBA(image.Rect(0, 0, 10, 0)), 10, Bilinear)
	assert.ErrorIs(t, err, ErrInvalidDimension)

	_, err = ResizeToHeight(src, 10, Interpolation("box"))
	assert.ErrorContains(t, err, "unknown interpolation")
}
