package server

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/segmentio/ksuid"

	"github.com/chaos-io/crowd2png/compose"
)

const (
	uploadField = "image"

	// 结果文件名与上传文件名区分开，即使两者在同一目录也不会互相覆盖
	composedSuffix = "_composed"
	cutoutSuffix   = "_cutout"
)

var errNoImage = errors.New("no image uploaded")

var allowedExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
}

const uploadPage = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>crowd2png</title></head>
<body>
<form action="/" method="post" enctype="multipart/form-data">
  <input type="file" name="image" accept="image/*">
  <input type="submit" value="Upload">
</form>
</body>
</html>
`

type imageResp struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func (s *Server) uploadForm(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(uploadPage))
}

// upload 表单上传，合成后重定向到结果图片
func (s *Server) upload(c *gin.Context) {
	_, path, err := s.compose(c)
	if errors.Is(err, errNoImage) {
		c.String(http.StatusBadRequest, "No image uploaded")
		return
	}
	if err != nil {
		c.String(statusFor(err), err.Error())
		return
	}
	c.Redirect(http.StatusSeeOther, imageURL(path))
}

func (s *Server) apiCompose(c *gin.Context) {
	img, path, err := s.compose(c)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, newImageResp(img, path))
}

func (s *Server) apiCutout(c *gin.Context) {
	input, id, err := s.saveUpload(c)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	img, path, err := s.composer.Cutout(ctx, input, filepath.Join(s.cfg.outputDir(), id+cutoutSuffix))
	if err != nil {
		slog.Error("cutout failed", "input", input, "error", err)
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, newImageResp(img, path))
}

func (s *Server) compose(c *gin.Context) (*image.NRGBA, string, error) {
	input, id, err := s.saveUpload(c)
	if err != nil {
		return nil, "", err
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	img, path, err := s.composer.ComposeTo(ctx, input, filepath.Join(s.cfg.outputDir(), id+composedSuffix))
	if err != nil {
		slog.Error("compose failed", "input", input, "error", err)
		return nil, "", err
	}
	return img, path, nil
}

// saveUpload 以 ksuid 重命名保存上传文件，保留原后缀
func (s *Server) saveUpload(c *gin.Context) (string, string, error) {
	file, err := c.FormFile(uploadField)
	if err != nil {
		return "", "", errNoImage
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExts[ext] {
		return "", "", fmt.Errorf("%w: upload %q", compose.ErrUnsupportedFormat, file.Filename)
	}

	id := ksuid.New().String()
	dst := filepath.Join(s.cfg.UploadDir, id+ext)
	if err := c.SaveUploadedFile(file, dst); err != nil {
		return "", "", fmt.Errorf("%w: save upload: %w", compose.ErrIO, err)
	}

	slog.Debug("upload saved", "filename", file.Filename, "path", dst, "size", file.Size)
	return dst, id, nil
}

func (s *Server) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if s.cfg.RequestTimeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), s.cfg.RequestTimeout)
}

func newImageResp(img *image.NRGBA, path string) imageResp {
	return imageResp{
		URL:    imageURL(path),
		Width:  img.Rect.Dx(),
		Height: img.Rect.Dy(),
	}
}

func imageURL(path string) string {
	return "/img/" + filepath.Base(path)
}

// statusFor 错误分类到 HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, errNoImage),
		errors.Is(err, compose.ErrInvalidDimension),
		errors.Is(err, compose.ErrChannelMismatch),
		errors.Is(err, compose.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, compose.ErrOutOfBounds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, compose.ErrExtractionFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
