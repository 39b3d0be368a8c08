package config

import (
	"errors"
	"runtime"
)

// ErrMemoryLimitExceeded 堆内存超过缩略图生成上限
var ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

// ThumbnailMemoryLimitBytes 0 表示不限制
func (c *Config) ThumbnailMemoryLimitBytes() uint64 {
	if c.ThumbnailMemoryLimitMB <= 0 {
		return 0
	}
	return uint64(c.ThumbnailMemoryLimitMB) << 20
}

// CheckMemoryLimit 超过上限时先 GC 一次再判断
func (c *Config) CheckMemoryLimit() error {
	limit := c.ThumbnailMemoryLimitBytes()
	if limit == 0 {
		return nil
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	if m.HeapAlloc < limit {
		return nil
	}

	runtime.GC()
	runtime.ReadMemStats(&m)
	if m.HeapAlloc >= limit {
		return ErrMemoryLimitExceeded
	}
	return nil
}
