package server

import "time"

const (
	DefaultAddr           = ":4040"
	DefaultUploadDir      = "Img"
	DefaultOutputDir      = "output"
	DefaultRequestTimeout = 60 * time.Second
	DefaultRetention      = 24 * time.Hour
	DefaultCleanupSpec    = "@every 1h"
)

// Config 上传服务配置
type Config struct {
	Addr string `yaml:"addr" validate:"required"`
	// UploadDir 上传原图的保存目录
	UploadDir string `yaml:"upload_dir" validate:"required"`
	// OutputDir 合成结果目录，通过 /img/ 对外提供；为空时使用 DefaultOutputDir
	OutputDir string `yaml:"output_dir"`
	// RequestTimeout 单个请求的合成超时，0 表示不限制
	RequestTimeout time.Duration `yaml:"request_timeout" validate:"gte=0"`
	// Retention 上传和输出文件的保留时间，0 表示不清理
	Retention   time.Duration `yaml:"retention" validate:"gte=0"`
	CleanupSpec string        `yaml:"cleanup_spec"`
}

func DefaultConfig() Config {
	return Config{
		Addr:           DefaultAddr,
		UploadDir:      DefaultUploadDir,
		OutputDir:      DefaultOutputDir,
		RequestTimeout: DefaultRequestTimeout,
		Retention:      DefaultRetention,
		CleanupSpec:    DefaultCleanupSpec,
	}
}

func (c Config) outputDir() string {
	if c.OutputDir == "" {
		return DefaultOutputDir
	}
	return c.OutputDir
}
