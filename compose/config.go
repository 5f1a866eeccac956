package compose

import "fmt"

const (
	DefaultTargetHeight = 600
	DefaultXOffset      = 700
	DefaultOutputName   = "composed.png"
)

// Config 合成参数，显式传入 Compositor，不使用全局变量
type Config struct {
	// BackgroundPath 人群背景图路径
	BackgroundPath string `yaml:"background_path" validate:"required"`
	// XOffset 前景左边缘在背景上的横坐标
	XOffset int `yaml:"x_offset"`
	// TargetHeight 前景缩放后的高度
	TargetHeight int `yaml:"target_height" validate:"gt=0"`
	// Interpolation 缩放插值，空值为 bilinear
	Interpolation Interpolation `yaml:"interpolation" validate:"omitempty,oneof=nearest bilinear bicubic mitchell lanczos2 lanczos3"`
	// MaxInputSize 抠图前输入最长边上限，0 表示不限制
	MaxInputSize int `yaml:"max_input_size" validate:"gte=0"`
	// TrimThreshold 大于 0 时先裁掉前景四周 alpha 不超过该比例的边，再缩放
	TrimThreshold float64 `yaml:"trim_threshold" validate:"gte=0,lt=1"`

	// OutputDir 输出目录
	OutputDir string `yaml:"output_dir"`
	// OutputName 固定输出文件名；为空时由输入文件名派生
	OutputName string `yaml:"output_name"`
	// Format 输出格式 png / jpeg
	Format string `yaml:"format" validate:"omitempty,oneof=png jpeg jpg"`

	Encode EncodeOptions `yaml:"encode"`
}

func DefaultConfig() Config {
	return Config{
		BackgroundPath: "crowd.jpg",
		XOffset:        DefaultXOffset,
		TargetHeight:   DefaultTargetHeight,
		Interpolation:  Bilinear,
		OutputDir:      ".",
		OutputName:     DefaultOutputName,
		Format:         string(FormatPNG),
	}
}

// check 在构造 Compositor 时校验
func (c Config) check() (Format, error) {
	if c.TargetHeight <= 0 {
		return "", fmt.Errorf("%w: target height %d", ErrInvalidDimension, c.TargetHeight)
	}
	if c.MaxInputSize < 0 {
		return "", fmt.Errorf("%w: max input size %d", ErrInvalidDimension, c.MaxInputSize)
	}
	if c.TrimThreshold < 0 || c.TrimThreshold >= 1 {
		return "", fmt.Errorf("trim threshold %v out of range [0, 1)", c.TrimThreshold)
	}
	if _, err := c.Interpolation.function(); err != nil {
		return "", err
	}
	return ParseFormat(c.Format)
}
