package util

import (
	"log/slog"
	"time"
)

// Trace 记录一段操作的耗时，用法：defer util.Trace("compose")()
func Trace(name string) func() {
	start := time.Now()
	slog.Debug("start", "op", name)
	return func() {
		slog.Debug("done", "op", name, "elapsed", time.Since(start))
	}
}
