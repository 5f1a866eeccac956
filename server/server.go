package server

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
)

// Composer 服务端用到的合成能力，由 *compose.Compositor 实现
type Composer interface {
	ComposeTo(ctx context.Context, inputPath, outputPath string) (*image.NRGBA, string, error)
	Cutout(ctx context.Context, inputPath, outputPath string) (*image.NRGBA, string, error)
}

type Server struct {
	cfg      Config
	composer Composer
	engine   *gin.Engine
	cleaner  *Cleaner
}

func New(cfg Config, composer Composer) (*Server, error) {
	for _, dir := range []string{cfg.UploadDir, cfg.outputDir()} {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, fmt.Errorf("create dir %s: %w", dir, err)
		}
	}

	if cfg.outputDir() == cfg.UploadDir {
		slog.Warn("output dir equals upload dir, raw uploads are served under /img/", "dir", cfg.UploadDir)
	}

	s := &Server{
		cfg:      cfg,
		composer: composer,
	}

	if cfg.Retention > 0 {
		cleaner, err := NewCleaner(cfg.CleanupSpec, cfg.Retention, cfg.UploadDir, cfg.outputDir())
		if err != nil {
			return nil, err
		}
		s.cleaner = cleaner
	}

	s.engine = s.routes()
	return s, nil
}

// Handler 供 httptest 使用
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/", s.uploadForm)
	r.POST("/", s.upload)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.Static("/img", s.cfg.outputDir())

	api := r.Group("/api")
	api.POST("/compose", s.apiCompose)
	api.POST("/cutout", s.apiCutout)

	return r
}

// Run 阻塞直到 ctx 结束，随后优雅关闭
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.cleaner != nil {
		s.cleaner.Start()
		defer s.cleaner.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
	}
}
