package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLocalStorage_PathTraversal_Prevention 测试路径遍历防护
func TestLocalStorage_PathTraversal_Prevention(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	attempts := []string{
		"../../../etc/passwd",
		"..\\..\\windows\\system32",
		"../../.env",
		"..",
		".",
		"",
		"folder/../../etc/passwd",
		"sub/file.png",
	}

	for _, attempt := range attempts {
		t.Run("save_"+attempt, func(t *testing.T) {
			err := storage.SaveWithContext(ctx, attempt, strings.NewReader("x"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid")
		})
	}

	_, err = storage.GetWithContext(ctx, "../../../etc/passwd")
	assert.ErrorContains(t, err, "invalid")

	err = storage.DeleteWithContext(ctx, "../../../etc/passwd")
	assert.ErrorContains(t, err, "invalid")
}

// TestLocalStorage_RoundTrip 测试写入读取删除
func TestLocalStorage_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	storage, err := NewLocalStorage(dir)
	require.NoError(t, err)
	ctx := context.Background()

	key := "1700000000123_abc123_cat.png"
	require.NoError(t, storage.SaveWithContext(ctx, key, strings.NewReader("content")))

	ok, err := storage.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	rs, err := storage.GetWithContext(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rs)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
	_ = rs.(io.Closer).Close()

	// 覆盖写入
	require.NoError(t, storage.SaveWithContext(ctx, key, strings.NewReader("v2")))
	data, err = os.ReadFile(filepath.Join(dir, key))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))

	require.NoError(t, storage.DeleteWithContext(ctx, key))
	ok, err = storage.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	err = storage.DeleteWithContext(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = storage.GetWithContext(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestLocalStorage_NoTempFilesLeft 写入后目录内只剩目标文件
func TestLocalStorage_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	storage, err := NewLocalStorage(dir)
	require.NoError(t, err)

	require.NoError(t, storage.SaveWithContext(context.Background(), "a.png", strings.NewReader("x")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.png", entries[0].Name())
}

// TestLocalStorage_CanceledContext 取消的上下文不写入
func TestLocalStorage_CanceledContext(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = storage.SaveWithContext(ctx, "a.png", strings.NewReader("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

// TestIsValidKey 测试 key 校验
func TestIsValidKey(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		valid bool
	}{
		{"simple", "file.png", true},
		{"generated", "1700000000123_abc123_my_cat_.jpeg", true},
		{"empty", "", false},
		{"dot", ".", false},
		{"dotdot", "..", false},
		{"absolute", "/etc/passwd", false},
		{"nested", "a/b.png", false},
		{"traversal", "../file.png", false},
		{"null_byte", "file\x00.png", false},
		{"space", "my cat.png", false},
		{"unicode", "猫.png", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidKey(tt.key))
		})
	}
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8080/files/a.png", PublicURL("http://localhost:8080/files/", "a.png"))
	assert.Equal(t, "https://cdn.example.com/x_y.jpg", PublicURL("https://cdn.example.com", "x_y.jpg"))
}
