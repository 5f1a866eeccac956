package compose

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// HasAlpha 判断颜色模型是否带 alpha 通道（第 4 通道）
func HasAlpha(img image.Image) bool {
	if p, ok := img.(*image.Paletted); ok {
		for _, c := range p.Palette {
			if _, _, _, a := c.RGBA(); a != 0xffff {
				return true
			}
		}
		return false
	}

	switch img.ColorModel() {
	case color.NRGBAModel, color.RGBAModel,
		color.NRGBA64Model, color.RGBA64Model,
		color.AlphaModel, color.Alpha16Model,
		color.NYCbCrAModel:
		return true
	}
	return false
}

// Channels 返回通道数：带 alpha 为 4，其余（RGB、YCbCr、灰度）按 3 处理
func Channels(img image.Image) int {
	if HasAlpha(img) {
		return 4
	}
	return 3
}

// HasUsefulAlpha 检查 alpha 通道是否真的包含透明信息
// 只要存在非 255 的像素，就认为已经抠过图
func HasUsefulAlpha(img *image.NRGBA) bool {
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 255 {
			return true
		}
	}
	return false
}

// PromoteOpaque 复制一份并把 alpha 全部置为 255，
// 背景图在混合前需要带 alpha，且视为完全不透明
func PromoteOpaque(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 255
	}
	return dst
}

// cloneNRGBA 返回独立的像素副本，混合时不修改调用方的背景
func cloneNRGBA(img *image.NRGBA) *image.NRGBA {
	dst := &image.NRGBA{
		Pix:    make([]uint8, len(img.Pix)),
		Stride: img.Stride,
		Rect:   img.Rect,
	}
	copy(dst.Pix, img.Pix)
	return dst
}
