package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/studio-b12/gowebdav"
)

// WebDAVConfig WebDAV 配置
type WebDAVConfig struct {
	URL      string
	Username string
	Password string
	RootPath string
	Timeout  time.Duration
}

// WebDAVStorage WebDAV 存储实现
type WebDAVStorage struct {
	client   *gowebdav.Client
	baseURL  string
	rootPath string
}

// NewWebDAVStorage 创建 WebDAV 存储提供者，并确保根目录存在
func NewWebDAVStorage(cfg WebDAVConfig) (*WebDAVStorage, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webdav URL is required")
	}

	rootPath := "/" + strings.Trim(cfg.RootPath, "/")

	client := gowebdav.NewClient(cfg.URL, cfg.Username, cfg.Password)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	s := &WebDAVStorage{
		client:   client,
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		rootPath: rootPath,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if rootPath != "/" {
		if err := runWithContext(ctx, func() error { return client.MkdirAll(rootPath, os.FileMode(0755)) }); err != nil {
			return nil, fmt.Errorf("failed to create webdav root '%s': %w", rootPath, err)
		}
	}
	if err := s.Health(ctx); err != nil {
		return nil, fmt.Errorf("webdav connection test failed: %w", err)
	}
	return s, nil
}

// runWithContext gowebdav 不支持 context，放到 goroutine 里等待
func runWithContext(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func (s *WebDAVStorage) fullPath(key string) string {
	if s.rootPath == "/" {
		return "/" + key
	}
	return s.rootPath + "/" + key
}

// SaveWithContext 写入文件
func (s *WebDAVStorage) SaveWithContext(ctx context.Context, key string, file io.Reader) error {
	if !IsValidKey(key) {
		return fmt.Errorf("invalid storage key: %q", key)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("failed to read file content: %w", err)
	}

	err = runWithContext(ctx, func() error {
		return s.client.Write(s.fullPath(key), data, 0644)
	})
	if err != nil {
		return fmt.Errorf("failed to write file %s: %w", key, err)
	}
	return nil
}

// GetWithContext 读取文件
func (s *WebDAVStorage) GetWithContext(ctx context.Context, key string) (io.ReadSeeker, error) {
	var data []byte
	err := runWithContext(ctx, func() error {
		var readErr error
		data, readErr = s.client.Read(s.fullPath(key))
		return readErr
	})
	if err != nil {
		if gowebdav.IsErrNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to read file %s: %w", key, err)
	}
	return bytes.NewReader(data), nil
}

// DeleteWithContext 删除文件
func (s *WebDAVStorage) DeleteWithContext(ctx context.Context, key string) error {
	err := runWithContext(ctx, func() error {
		return s.client.Remove(s.fullPath(key))
	})
	if err != nil {
		if gowebdav.IsErrNotFound(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return fmt.Errorf("failed to delete file %s: %w", key, err)
	}
	return nil
}

// Exists 检查文件是否存在
func (s *WebDAVStorage) Exists(ctx context.Context, key string) (bool, error) {
	err := runWithContext(ctx, func() error {
		_, statErr := s.client.Stat(s.fullPath(key))
		return statErr
	})
	if err == nil {
		return true, nil
	}
	if gowebdav.IsErrNotFound(err) {
		return false, nil
	}
	return false, err
}

// Health 列出根目录
func (s *WebDAVStorage) Health(ctx context.Context) error {
	return runWithContext(ctx, func() error {
		_, err := s.client.ReadDir(s.rootPath)
		return err
	})
}

// Name 返回存储名称
func (s *WebDAVStorage) Name() string {
	return "webdav"
}
