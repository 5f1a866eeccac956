package compose

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/chaos-io/crowd2png/compose/rembg"
	"github.com/chaos-io/crowd2png/util"
)

// Compositor 把抠出的人像按固定规则合成到人群背景上
//
// 背景在构造时加载一次，之后只读；每次合成都在独立副本上进行，
// 因此同一个 Compositor 可以被多个请求并发使用。
type Compositor struct {
	cfg        Config
	format     Format
	remover    rembg.Remover
	background *image.NRGBA
}

// New 加载背景图并创建 Compositor，背景不存在属于配置错误
func New(cfg Config, remover rembg.Remover) (*Compositor, error) {
	bg, err := util.OpenImage(cfg.BackgroundPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w: %s: %w", ErrBackgroundMissing, ErrIO, cfg.BackgroundPath, err)
		}
		return nil, fmt.Errorf("%w: load background %s: %w", ErrIO, cfg.BackgroundPath, err)
	}
	return NewWithBackground(cfg, remover, bg)
}

// NewWithBackground 使用内存中的背景图创建 Compositor
func NewWithBackground(cfg Config, remover rembg.Remover, background image.Image) (*Compositor, error) {
	format, err := cfg.check()
	if err != nil {
		return nil, err
	}
	if background == nil {
		return nil, ErrBackgroundMissing
	}
	if remover == nil {
		remover = rembg.NewDefaultRemBG()
	}

	bg := PromoteOpaque(background)
	slog.Debug("background loaded", "path", cfg.BackgroundPath, "width", bg.Rect.Dx(), "height", bg.Rect.Dy())

	return &Compositor{
		cfg:        cfg,
		format:     format,
		remover:    remover,
		background: bg,
	}, nil
}

// Format 输出格式
func (c *Compositor) Format() Format {
	return c.format
}

// Background 只读的背景图，调用方不得修改
func (c *Compositor) Background() *image.NRGBA {
	return c.background
}

// ComposeImage 抠图 -> 缩放 -> 定位 -> 混合，不涉及文件读写
func (c *Compositor) ComposeImage(ctx context.Context, img image.Image) (*image.NRGBA, error) {
	fg, err := c.extract(ctx, LimitSize(img, c.cfg.MaxInputSize))
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.cfg.TrimThreshold > 0 {
		fg = TrimTransparent(fg, c.cfg.TrimThreshold)
	}

	resized, err := ResizeToHeight(fg, c.cfg.TargetHeight, c.cfg.Interpolation)
	if err != nil {
		return nil, fmt.Errorf("resize foreground: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bgSize := c.background.Rect.Size()
	at := Place(bgSize, resized.Rect.Size(), c.cfg.XOffset)
	slog.Debug("place foreground",
		"foreground", resized.Rect.Size().String(), "background", bgSize.String(), "at", at.String())

	out, err := Blend(c.background, resized, at)
	if err != nil {
		return nil, fmt.Errorf("blend foreground: %w", err)
	}
	return out, nil
}

// Compose 合成并写到配置决定的输出路径
func (c *Compositor) Compose(ctx context.Context, inputPath string) (*image.NRGBA, string, error) {
	return c.ComposeTo(ctx, inputPath, c.OutputPath(inputPath))
}

// ComposeTo 合成并写到调用方指定的路径，后缀按输出格式修正
func (c *Compositor) ComposeTo(ctx context.Context, inputPath, outputPath string) (*image.NRGBA, string, error) {
	defer util.Trace("compose " + filepath.Base(inputPath))()

	img, err := readInput(inputPath)
	if err != nil {
		return nil, "", err
	}

	out, err := c.ComposeImage(ctx, img)
	if err != nil {
		return nil, "", err
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	outputPath, err = c.Save(out, outputPath)
	if err != nil {
		return nil, "", err
	}

	slog.Info("composed image", "input", inputPath, "output", outputPath)
	return out, outputPath, nil
}

// Save 按输出格式写文件，返回修正后缀后的路径
func (c *Compositor) Save(img image.Image, outputPath string) (string, error) {
	outputPath = withFormatExt(outputPath, c.format)
	if err := writeOutput(outputPath, img, c.format, c.cfg.Encode); err != nil {
		return "", err
	}
	return outputPath, nil
}

// Cutout 只做抠图，结果强制保存为 PNG 以保留透明度
func (c *Compositor) Cutout(ctx context.Context, inputPath, outputPath string) (*image.NRGBA, string, error) {
	img, err := readInput(inputPath)
	if err != nil {
		return nil, "", err
	}

	fg, err := c.extract(ctx, LimitSize(img, c.cfg.MaxInputSize))
	if err != nil {
		return nil, "", err
	}

	outputPath = withFormatExt(outputPath, FormatPNG)
	if err := writeOutput(outputPath, fg, FormatPNG, c.cfg.Encode); err != nil {
		return nil, "", err
	}

	slog.Info("cut out foreground", "input", inputPath, "output", outputPath)
	return fg, outputPath, nil
}

// OutputPath 固定文件名，或由输入文件名加输出格式后缀派生
func (c *Compositor) OutputPath(inputPath string) string {
	name := c.cfg.OutputName
	if name == "" {
		base := filepath.Base(inputPath)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return withFormatExt(filepath.Join(c.cfg.OutputDir, name), c.format)
}

func (c *Compositor) extract(ctx context.Context, img image.Image) (*image.NRGBA, error) {
	fg, err := c.remover.Remove(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}
	if fg == nil {
		return nil, fmt.Errorf("%w: remover returned no image", ErrExtractionFailed)
	}
	if !HasAlpha(fg) {
		return nil, fmt.Errorf("%w: extracted image has %d channels, want 4", ErrChannelMismatch, Channels(fg))
	}
	out := util.ToNRGBA(fg)
	if !HasUsefulAlpha(out) {
		slog.Warn("extracted foreground is fully opaque, background was not removed")
	}
	return out, nil
}

// readInput 打开失败归为 IO 错误，解码失败视为无法抠图
func readInput(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open input: %w", ErrIO, err)
	}
	defer func() {
		_ = f.Close()
	}()

	img, err := util.DecodeImage(f)
	if err != nil {
		return nil, fmt.Errorf("%w: decode input %s: %w", ErrExtractionFailed, path, err)
	}
	return img, nil
}

func writeOutput(path string, img image.Image, f Format, opts EncodeOptions) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return fmt.Errorf("%w: create output dir: %w", ErrIO, err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create output: %w", ErrIO, err)
	}

	if err := Encode(file, img, f, opts); err != nil {
		_ = file.Close()
		return fmt.Errorf("%w: encode %s: %w", ErrIO, path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("%w: close output: %w", ErrIO, err)
	}
	return nil
}
