package rembg

import (
	"context"
	"image"
	"image/color"
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFillU2NetInput(t *testing.T) {
	t.Parallel()

	const size = 8
	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = 200
		img.Pix[i+1] = 100
		img.Pix[i+2] = 50
		img.Pix[i+3] = 255
	}

	dst := make([]float32, 3*size*size)
	fillU2NetInput(dst, img, size)

	// 除以最大值 200 后再做均值方差归一化
	want := [3]float32{
		(1 - u2netMean[0]) / u2netStd[0],
		(0.5 - u2netMean[1]) / u2netStd[1],
		(0.25 - u2netMean[2]) / u2netStd[2],
	}
	plane := size * size
	for c := 0; c < 3; c++ {
		for _, idx := range []int{0, plane / 2, plane - 1} {
			assert.InDelta(t, want[c], dst[c*plane+idx], 1e-5, "channel %d index %d", c, idx)
		}
	}
}

func TestFillU2NetInput_Black(t *testing.T) {
	t.Parallel()

	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	dst := make([]float32, 3*4*4)
	fillU2NetInput(dst, img, 4)

	for _, v := range dst {
		assert.False(t, math.IsNaN(float64(v)))
		assert.False(t, math.IsInf(float64(v), 0))
	}
	assert.InDelta(t, -u2netMean[0]/u2netStd[0], dst[0], 1e-5)
}

func TestU2NetMask(t *testing.T) {
	t.Parallel()

	pred := []float32{-2, 0, 2, 6}
	mask := u2netMask(pred, 2)
	assert.Equal(t, []uint8{0, 63, 127, 255}, mask.Pix)

	flat := u2netMask([]float32{0.3, 0.3, 0.3, 0.3}, 2)
	assert.Equal(t, []uint8{0, 0, 0, 0}, flat.Pix)

	short := u2netMask([]float32{1}, 2)
	assert.Equal(t, image.Rect(0, 0, 2, 2), short.Bounds())
}

func TestApplyMask(t *testing.T) {
	t.Parallel()

	src := image.NewNRGBA(image.Rect(0, 0, 6, 6))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i], src.Pix[i+1], src.Pix[i+2], src.Pix[i+3] = 10, 20, 30, 255
	}

	mask := image.NewGray(image.Rect(0, 0, 3, 3))
	for i := range mask.Pix {
		mask.Pix[i] = 255
	}

	out := applyMask(src, mask)
	assert.Equal(t, image.Rect(0, 0, 6, 6), out.Bounds())
	assert.Equal(t, color.NRGBA{R: 10, G: 20, B: 30, A: 255}, out.NRGBAAt(3, 3))

	for i := range mask.Pix {
		mask.Pix[i] = 0
	}
	out = applyMask(src, mask)
	assert.Equal(t, color.NRGBA{R: 10, G: 20, B: 30, A: 0}, out.NRGBAAt(0, 5))
}

// 需要本地模型和 onnxruntime 动态库：
// U2NET_MODEL=/path/u2net.onnx ONNXRUNTIME_LIB=/path/libonnxruntime.so go test -run TestU2NetRemBG_Remove
func TestU2NetRemBG_Remove(t *testing.T) {
	model := os.Getenv("U2NET_MODEL")
	if model == "" {
		t.Skip("U2NET_MODEL not set")
	}

	u, err := NewU2NetRemBG(U2NetConfig{ModelPath: model, LibraryPath: os.Getenv("ONNXRUNTIME_LIB")})
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, u.Close())
	}()

	src := image.NewNRGBA(image.Rect(0, 0, 64, 96))
	got, err := u.Remove(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, src.Bounds(), got.Bounds())
}

func TestNewU2NetRemBG_MissingModel(t *testing.T) {
	t.Parallel()

	_, err := NewU2NetRemBG(U2NetConfig{ModelPath: "testdata/missing.onnx"})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
