package compose

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"
)

// Format 输出图片格式，显式指定，不从文件后缀推断
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

// ParseFormat 校验并规范化格式名，jpg 视为 jpeg，空值默认 png
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "", "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// Ext 文件后缀（带点）
func (f Format) Ext() string {
	switch f {
	case FormatJPEG:
		return ".jpg"
	default:
		return ".png"
	}
}

// EncodeOptions 编码参数
type EncodeOptions struct {
	// PNGCompression 对应 png.CompressionLevel，0 为默认压缩
	PNGCompression png.CompressionLevel `yaml:"png_compression"`
	// JPEGQuality 1-100，0 使用 jpeg.DefaultQuality
	JPEGQuality int `yaml:"jpeg_quality" validate:"gte=0,lte=100"`
}

// Encode 按格式编码图片
func Encode(w io.Writer, img image.Image, f Format, opts EncodeOptions) error {
	switch f {
	case FormatPNG:
		enc := &png.Encoder{CompressionLevel: opts.PNGCompression}
		return enc.Encode(w, img)
	case FormatJPEG:
		q := opts.JPEGQuality
		if q <= 0 {
			q = jpeg.DefaultQuality
		}
		return jpeg.Encode(w, img, &jpeg.Options{Quality: q})
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(f))
	}
}

// withFormatExt 把路径后缀替换为格式对应的后缀
func withFormatExt(path string, f Format) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + f.Ext()
}
