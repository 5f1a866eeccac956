package compose

import "errors"

// 合成流程的错误分类，调用方用 errors.Is 判断
var (
	ErrInvalidDimension  = errors.New("invalid dimension")
	ErrExtractionFailed  = errors.New("extraction failed")
	ErrOutOfBounds       = errors.New("placement out of bounds")
	ErrChannelMismatch   = errors.New("channel mismatch")
	ErrIO                = errors.New("io error")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrBackgroundMissing = errors.New("background image missing")
)
