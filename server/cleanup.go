package server

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
)

// Cleaner 定时删除目录下超过保留时间的文件
type Cleaner struct {
	dirs      []string
	retention time.Duration
	cron      *cron.Cron
	now       func() time.Time
}

func NewCleaner(spec string, retention time.Duration, dirs ...string) (*Cleaner, error) {
	if spec == "" {
		spec = DefaultCleanupSpec
	}

	c := &Cleaner{
		dirs:      dirs,
		retention: retention,
		cron:      cron.New(),
		now:       time.Now,
	}
	if _, err := c.cron.AddFunc(spec, c.run); err != nil {
		return nil, fmt.Errorf("add cleanup job %q: %w", spec, err)
	}
	return c, nil
}

func (c *Cleaner) Start() {
	c.cron.Start()
	slog.Info("cleaner started", "dirs", c.dirs, "retention", c.retention)
}

// Stop 等待正在执行的清理结束
func (c *Cleaner) Stop() {
	<-c.cron.Stop().Done()
}

func (c *Cleaner) run() {
	n, err := c.Sweep()
	if err != nil {
		slog.Warn("cleanup failed", "removed", n, "error", err)
		return
	}
	slog.Debug("cleanup done", "removed", n)
}

// Sweep 立即清理一次，返回删除的文件数；目录不存在时跳过
func (c *Cleaner) Sweep() (int, error) {
	deadline := c.now().Add(-c.retention)

	var (
		removed int
		errs    []error
	)
	seen := make(map[string]bool, len(c.dirs))
	for _, dir := range c.dirs {
		if seen[dir] {
			continue
		}
		seen[dir] = true

		entries, err := os.ReadDir(dir)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, err)
			}
			continue
		}

		for _, entry := range entries {
			if !entry.Type().IsRegular() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if !info.ModTime().Before(deadline) {
				continue
			}
			if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
				errs = append(errs, err)
				continue
			}
			removed++
		}
	}
	return removed, errors.Join(errs...)
}
