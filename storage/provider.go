package storage

import (
	"context"
	"errors"
	"io"
	"net/url"
	"path/filepath"
	"strings"
)

// ErrNotFound 对象不存在
var ErrNotFound = errors.New("object not found")

// Provider 存储提供者接口
// key 为扁平文件名，与图片记录的 filename 一致
type Provider interface {
	// SaveWithContext 保存对象，已存在时覆盖
	SaveWithContext(ctx context.Context, key string, file io.Reader) error

	// GetWithContext 读取对象
	GetWithContext(ctx context.Context, key string) (io.ReadSeeker, error)

	// DeleteWithContext 删除对象
	DeleteWithContext(ctx context.Context, key string) error

	// Exists 检查对象是否存在
	Exists(ctx context.Context, key string) (bool, error)

	// Health 检查存储健康状态
	Health(ctx context.Context) error

	// Name 返回存储名称
	Name() string
}

// PublicURL 拼接对象的公开访问地址
func PublicURL(baseURL, key string) string {
	return strings.TrimRight(baseURL, "/") + "/" + url.PathEscape(key)
}

// IsValidKey 校验对象 key，只允许单层文件名
func IsValidKey(key string) bool {
	if key == "" || key == "." || key == ".." {
		return false
	}
	if filepath.IsAbs(key) || strings.Contains(key, "..") {
		return false
	}

	for _, r := range key {
		if (r < 'a' || r > 'z') &&
			(r < 'A' || r > 'Z') &&
			(r < '0' || r > '9') &&
			r != '-' && r != '_' && r != '.' {
			return false
		}
	}
	return true
}
