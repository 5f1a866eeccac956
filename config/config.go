package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/chaos-io/crowd2png/compose"
	"github.com/chaos-io/crowd2png/compose/rembg"
	"github.com/chaos-io/crowd2png/server"
)

// 抠图实现
const (
	ExtractorNone     = "none"
	ExtractorU2Net    = "u2net"
	ExtractorBiRefNet = "birefnet"
)

type Config struct {
	Compose   compose.Config  `yaml:"compose"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Server    server.Config   `yaml:"server"`
}

type ExtractorConfig struct {
	Kind     string                `yaml:"kind" validate:"oneof=none u2net birefnet"`
	U2Net    *rembg.U2NetConfig    `yaml:"u2net" validate:"required_if=Kind u2net"`
	BiRefNet *rembg.BiRefNetConfig `yaml:"birefnet" validate:"required_if=Kind birefnet"`
}

func Default() Config {
	return Config{
		Compose:   compose.DefaultConfig(),
		Extractor: ExtractorConfig{Kind: ExtractorNone},
		Server:    server.DefaultConfig(),
	}
}

// Load 读取 YAML，未出现的字段保留默认值
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("invalid config: %w", verrs)
		}
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

// NewRemover 按配置创建抠图实现，返回的 close 用于释放本地模型
func (c *Config) NewRemover() (rembg.Remover, func() error, error) {
	noop := func() error { return nil }

	switch c.Extractor.Kind {
	case "", ExtractorNone:
		return rembg.NewDefaultRemBG(), noop, nil
	case ExtractorU2Net:
		if c.Extractor.U2Net == nil {
			return nil, nil, errors.New("extractor u2net: missing config")
		}
		u, err := rembg.NewU2NetRemBG(*c.Extractor.U2Net)
		if err != nil {
			return nil, nil, fmt.Errorf("extractor u2net: %w", err)
		}
		return u, u.Close, nil
	case ExtractorBiRefNet:
		if c.Extractor.BiRefNet == nil {
			return nil, nil, errors.New("extractor birefnet: missing config")
		}
		b, err := rembg.NewBiRefNetRemBG(*c.Extractor.BiRefNet)
		if err != nil {
			return nil, nil, fmt.Errorf("extractor birefnet: %w", err)
		}
		return b, noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown extractor %q", c.Extractor.Kind)
	}
}
