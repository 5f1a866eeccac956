package compose

import (
	"fmt"
	"image"
	"math"

	"github.com/nfnt/resize"

	"github.com/chaos-io/crowd2png/util"
)

// Interpolation 缩放插值算法名称
type Interpolation string

const (
	NearestNeighbor   Interpolation = "nearest"
	Bilinear          Interpolation = "bilinear"
	Bicubic           Interpolation = "bicubic"
	MitchellNetravali Interpolation = "mitchell"
	Lanczos2          Interpolation = "lanczos2"
	Lanczos3          Interpolation = "lanczos3"
)

var interpolations = map[Interpolation]resize.InterpolationFunction{
	NearestNeighbor:   resize.NearestNeighbor,
	Bilinear:          resize.Bilinear,
	Bicubic:           resize.Bicubic,
	MitchellNetravali: resize.MitchellNetravali,
	Lanczos2:          resize.Lanczos2,
	Lanczos3:          resize.Lanczos3,
}

func (i Interpolation) function() (resize.InterpolationFunction, error) {
	if i == "" {
		return resize.Bilinear, nil
	}
	fn, ok := interpolations[i]
	if !ok {
		return 0, fmt.Errorf("unknown interpolation %q", string(i))
	}
	return fn, nil
}

// ScaledSize 按目标高度等比计算缩放后的尺寸
//
//	aspectRatio = h / originalHeight
//	newWidth    = round(originalWidth * aspectRatio)
func ScaledSize(width, height, targetHeight int) (image.Point, error) {
	if height <= 0 || width <= 0 {
		return image.Point{}, fmt.Errorf("%w: original size %dx%d", ErrInvalidDimension, width, height)
	}
	if targetHeight <= 0 {
		return image.Point{}, fmt.Errorf("%w: target height %d", ErrInvalidDimension, targetHeight)
	}

	aspectRatio := float64(targetHeight) / float64(height)
	newWidth := int(math.Round(float64(width) * aspectRatio))
	if newWidth < 1 {
		return image.Point{}, fmt.Errorf("%w: %dx%d scales to zero width at height %d",
			ErrInvalidDimension, width, height, targetHeight)
	}
	return image.Pt(newWidth, targetHeight), nil
}

// ResizeToHeight 等比缩放到目标高度
// alpha 通道与颜色通道使用同一种插值，边缘会出现半透明过渡
func ResizeToHeight(img image.Image, targetHeight int, interp Interpolation) (*image.NRGBA, error) {
	b := img.Bounds()
	size, err := ScaledSize(b.Dx(), b.Dy(), targetHeight)
	if err != nil {
		return nil, err
	}

	fn, err := interp.function()
	if err != nil {
		return nil, err
	}

	if size.X == b.Dx() && size.Y == b.Dy() {
		return cloneNRGBA(util.ToNRGBA(img)), nil
	}

	resized := resize.Resize(uint(size.X), uint(size.Y), img, fn)
	return util.ToNRGBA(resized), nil
}
