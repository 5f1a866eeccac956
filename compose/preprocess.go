package compose

import (
	"image"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
)

// AlphaBBox 从 alpha 通道计算主体 bounding box
// 把 alpha > threshold * 255 的像素当作主体，ok 为 false 表示没有主体像素
// img 的原点需为 (0,0)
func AlphaBBox(img *image.NRGBA, threshold float64) (image.Rectangle, bool) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	th := uint8(threshold * 255)

	minX, minY := w, h
	maxX, maxY := 0, 0
	found := false

	for y := 0; y < h; y++ {
		row := y * img.Stride
		for x := 0; x < w; x++ {
			if img.Pix[row+x*4+3] <= th {
				continue
			}
			found = true
			minX = min(minX, x)
			minY = min(minY, y)
			maxX = max(maxX, x)
			maxY = max(maxY, y)
		}
	}

	if !found {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}

// TrimTransparent 裁掉主体四周的透明边，让缩放按人像本身的高度计算
// 没有主体像素时原样返回
func TrimTransparent(img *image.NRGBA, threshold float64) *image.NRGBA {
	bbox, ok := AlphaBBox(img, threshold)
	if !ok || bbox == img.Rect {
		return img
	}

	dst := image.NewNRGBA(image.Rect(0, 0, bbox.Dx(), bbox.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bbox.Min, draw.Src)
	return dst
}

// LimitSize 最长边超过 maxSize 时等比缩小，用于抠图前限制输入尺寸
func LimitSize(img image.Image, maxSize int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	longest := max(w, h)
	if maxSize <= 0 || longest <= maxSize {
		return img
	}

	scale := float64(maxSize) / float64(longest)
	newW := max(1, int(float64(w)*scale))
	newH := max(1, int(float64(h)*scale))
	return resize.Resize(uint(newW), uint(newH), img, resize.Lanczos3)
}
