package compose

import (
	"context"
	"image"
	"image/color"
	"math/rand"

	"github.com/chaos-io/crowd2png/compose/rembg"
	"github.com/chaos-io/crowd2png/util"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
	return img
}

func noise(w, h int, seed int64, alpha func(r *rand.Rand) uint8) *image.NRGBA {
	r := rand.New(rand.NewSource(seed))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(r.Intn(256))
		img.Pix[i+1] = uint8(r.Intn(256))
		img.Pix[i+2] = uint8(r.Intn(256))
		img.Pix[i+3] = alpha(r)
	}
	return img
}

func opaque(*rand.Rand) uint8      { return 255 }
func transparent(*rand.Rand) uint8 { return 0 }
func anyAlpha(r *rand.Rand) uint8  { return uint8(r.Intn(256)) }

// rembgFunc 记录传给抠图的图片，原样返回
func rembgFunc(observe func(img image.Image)) rembg.Remover {
	return rembg.RemoverFunc(func(ctx context.Context, img image.Image) (image.Image, error) {
		observe(img)
		return util.ToNRGBA(img), nil
	})
}
