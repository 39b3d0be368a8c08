package config

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckMemoryLimit(t *testing.T) {
	unlimited := &Config{}
	assert.Zero(t, unlimited.ThumbnailMemoryLimitBytes())
	assert.NoError(t, unlimited.CheckMemoryLimit())

	generous := &Config{ThumbnailMemoryLimitMB: 1 << 20}
	assert.Equal(t, uint64(1)<<40, generous.ThumbnailMemoryLimitBytes())
	assert.NoError(t, generous.CheckMemoryLimit())

	// 持有 2MB 的切片，GC 后堆仍超过 1MB
	tiny := &Config{ThumbnailMemoryLimitMB: 1}
	ballast := make([]byte, 2<<20)
	assert.ErrorIs(t, tiny.CheckMemoryLimit(), ErrMemoryLimitExceeded)
	runtime.KeepAlive(ballast)
}
