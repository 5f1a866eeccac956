package compose

import (
	"fmt"
	"image"
	"math"

	"github.com/chaos-io/crowd2png/util"
)

// Blend 把带 alpha 的前景按 "over" 运算混合到背景副本的 at 位置
//
//	fgAlphaNorm = fgAlpha / 255
//	bgAlphaNorm = 1 - fgAlphaNorm
//	out = fgAlphaNorm * fg + bgAlphaNorm * bg   (R, G, B 各通道)
//
// 区域外的像素原样保留，输出的 alpha 取背景的 alpha。
// background 不会被修改。
func Blend(background image.Image, foreground image.Image, at image.Point) (*image.NRGBA, error) {
	if !HasAlpha(foreground) {
		return nil, fmt.Errorf("%w: foreground has %d channels, want 4", ErrChannelMismatch, Channels(foreground))
	}

	fg := util.ToNRGBA(foreground)
	bgBounds := background.Bounds()
	bgSize := image.Pt(bgBounds.Dx(), bgBounds.Dy())
	rect := PlacementRect(at, fg.Rect.Size())
	if !rect.In(image.Rectangle{Max: bgSize}) {
		return nil, fmt.Errorf("%w: foreground %v at %v exceeds background %dx%d",
			ErrOutOfBounds, fg.Rect.Size(), at, bgSize.X, bgSize.Y)
	}

	var out *image.NRGBA
	if nrgba, ok := background.(*image.NRGBA); ok && nrgba.Rect.Min == (image.Point{}) {
		out = cloneNRGBA(nrgba)
	} else {
		out = util.ToNRGBA(background)
	}

	w, h := fg.Rect.Dx(), fg.Rect.Dy()
	for y := 0; y < h; y++ {
		fgRow := fg.Pix[y*fg.Stride : y*fg.Stride+w*4]
		o := (at.Y+y)*out.Stride + at.X*4
		outRow := out.Pix[o : o+w*4]
		for x := 0; x < w; x++ {
			i := x * 4
			a := fgRow[i+3]
			switch a {
			case 0:
				continue
			case 255:
				outRow[i] = fgRow[i]
				outRow[i+1] = fgRow[i+1]
				outRow[i+2] = fgRow[i+2]
				continue
			}

			fa := float64(a) / 255
			ba := 1 - fa
			for c := 0; c < 3; c++ {
				outRow[i+c] = uint8(math.Round(fa*float64(fgRow[i+c]) + ba*float64(outRow[i+c])))
			}
		}
	}

	return out, nil
}
