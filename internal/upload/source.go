package upload

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/anoixa/image-shelf/utils"
)

// Payload 打开后的上传内容
type Payload struct {
	Body     io.ReadCloser
	MimeType string
}

// Source 上传来源
type Source interface {
	// DisplayName 记录为 original_name，也用于冲突检测
	DisplayName() string
	// Open 打开内容，MIME 未声明时由内容探测
	Open(ctx context.Context) (*Payload, error)
}

// FileSource 本地文件
type FileSource struct {
	Path     string
	MimeType string
}

func (s FileSource) DisplayName() string {
	return filepath.Base(s.Path)
}

func (s FileSource) Open(ctx context.Context) (*Payload, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", s.Path, err)
	}
	return withMime(f, s.MimeType)
}

// ReaderSource 内存中的内容，例如 multipart 文件
type ReaderSource struct {
	Name     string
	MimeType string
	Reader   io.Reader
}

func (s ReaderSource) DisplayName() string {
	return s.Name
}

func (s ReaderSource) Open(ctx context.Context) (*Payload, error) {
	rc, ok := s.Reader.(io.ReadCloser)
	if !ok {
		rc = io.NopCloser(s.Reader)
	}
	return withMime(rc, s.MimeType)
}

// Fetcher 服务端拉取远程图片
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Payload, error)
}

// URLSource 远程 URL
type URLSource struct {
	URL     string
	Fetcher Fetcher
}

// DisplayName URL 路径的最后一段，取不到时为 image
func (s URLSource) DisplayName() string {
	return NameFromURL(s.URL)
}

func (s URLSource) Open(ctx context.Context) (*Payload, error) {
	if s.Fetcher == nil {
		return nil, fmt.Errorf("no fetcher configured for %s", s.URL)
	}
	return s.Fetcher.Fetch(ctx, s.URL)
}

// NameFromURL 从 URL 推出显示名称
func NameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "image"
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "image"
	}
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	return strings.TrimSpace(name)
}

type readCloser struct {
	io.Reader
	io.Closer
}

func withMime(rc io.ReadCloser, declared string) (*Payload, error) {
	if declared != "" && declared != "application/octet-stream" {
		return &Payload{Body: rc, MimeType: utils.NormalizeMimeType(declared)}, nil
	}

	sniffed, replay, err := utils.SniffContentType(rc)
	if err != nil {
		_ = rc.Close()
		return nil, err
	}
	return &Payload{
		Body:     readCloser{Reader: replay, Closer: rc},
		MimeType: utils.NormalizeMimeType(sniffed),
	}, nil
}
