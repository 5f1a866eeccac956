package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/chaos-io/crowd2png/compose"
	"github.com/chaos-io/crowd2png/config"
	"github.com/chaos-io/crowd2png/server"
	"github.com/chaos-io/crowd2png/util"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML 配置文件，为空时使用默认配置")
		inputPath  = flag.String("in", "", "输入图片路径或 http(s) URL")
		outputPath = flag.String("out", "", "输出路径，为空时由配置决定")
		cutout     = flag.Bool("cutout", false, "只抠图，输出透明 PNG")
		serve      = flag.Bool("serve", false, "启动上传服务")
		debug      = flag.Bool("debug", false, "输出 debug 日志")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *inputPath, *outputPath, *cutout, *serve); err != nil {
		slog.Error("crowd2png failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, inputPath, outputPath string, cutout, serve bool) error {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
	}

	remover, closeRemover, err := cfg.NewRemover()
	if err != nil {
		return err
	}
	defer func() {
		if err := closeRemover(); err != nil {
			slog.Warn("close extractor", "error", err)
		}
	}()

	compositor, err := compose.New(cfg.Compose, remover)
	if err != nil {
		return err
	}

	if serve {
		srv, err := server.New(cfg.Server, compositor)
		if err != nil {
			return err
		}
		return srv.Run(ctx)
	}

	if inputPath == "" {
		return errors.New("missing -in (or use -serve)")
	}

	if isURL(inputPath) {
		local, err := fetch(ctx, inputPath)
		if err != nil {
			return err
		}
		defer func() {
			_ = os.Remove(local)
		}()
		inputPath = local
	}

	var path string
	switch {
	case cutout:
		if outputPath == "" {
			base := filepath.Base(inputPath)
			outputPath = filepath.Join(cfg.Compose.OutputDir, strings.TrimSuffix(base, filepath.Ext(base))+"_cutout")
		}
		_, path, err = compositor.Cutout(ctx, inputPath, outputPath)
	case outputPath != "":
		_, path, err = compositor.ComposeTo(ctx, inputPath, outputPath)
	default:
		_, path, err = compositor.Compose(ctx, inputPath)
	}
	if err != nil {
		return err
	}

	fmt.Println(path)
	return nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// fetch 下载远程图片到本地临时文件，之后按本地输入处理
func fetch(ctx context.Context, url string) (string, error) {
	img, err := util.DownloadImage(ctx, url)
	if err != nil {
		return "", fmt.Errorf("%w: download input: %w", compose.ErrIO, err)
	}

	f, err := os.CreateTemp("", "crowd2png-*.png")
	if err != nil {
		return "", fmt.Errorf("%w: %w", compose.ErrIO, err)
	}
	path := f.Name()
	_ = f.Close()

	if err := util.SavePNG(path, img); err != nil {
		return "", fmt.Errorf("%w: save download: %w", compose.ErrIO, err)
	}
	slog.Debug("downloaded input", "url", url, "path", path)
	return path, nil
}
