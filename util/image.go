package util

import (
	"image"

	"golang.org/x/image/draw"
)

// ToNRGBA 转为原点在 (0,0) 的 NRGBA，方便直接操作 Pix
// 已经满足条件时直接返回原图
func ToNRGBA(img image.Image) *image.NRGBA {
	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Rect.Min == (image.Point{}) {
		return nrgba
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
