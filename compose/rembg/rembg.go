package rembg

import (
	"context"
	"image"

	"github.com/chaos-io/crowd2png/util"
)

// Remover 背景去除：返回带 alpha 通道的图片，背景透明、主体不透明
type Remover interface {
	Remove(ctx context.Context, img image.Image) (image.Image, error)
}

// RemoverFunc 让普通函数实现 Remover
type RemoverFunc func(ctx context.Context, img image.Image) (image.Image, error)

func (f RemoverFunc) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	return f(ctx, img)
}

// DefaultRemBG 不做推理，原图转为 NRGBA 返回
// 已经抠过图（带透明像素）的 PNG 可以直接走这条路径
type DefaultRemBG struct{}

func NewDefaultRemBG() *DefaultRemBG {
	return &DefaultRemBG{}
}

func (d *DefaultRemBG) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return util.ToNRGBA(img), nil
}
