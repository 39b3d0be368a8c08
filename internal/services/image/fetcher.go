package image

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/anoixa/image-shelf/internal/apperr"
	"github.com/anoixa/image-shelf/internal/upload"
	"github.com/anoixa/image-shelf/utils"
)

const (
	DefaultFetchTimeout = 30 * time.Second
	maxRedirects        = 5
)

// FetcherConfig URL 拉取配置
type FetcherConfig struct {
	MaxSize   int64
	Timeout   time.Duration
	UserAgent string
}

// HTTPFetcher 服务端拉取远程图片，实现 upload.Fetcher
type HTTPFetcher struct {
	client *http.Client
	cfg    FetcherConfig
}

// NewHTTPFetcher 创建拉取器
func NewHTTPFetcher(cfg FetcherConfig) *HTTPFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultFetchTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "image-shelf"
	}

	client := &http.Client{
		Timeout: cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
				return fmt.Errorf("redirect to unsupported scheme %q", req.URL.Scheme)
			}
			return nil
		},
	}
	return &HTTPFetcher{client: client, cfg: cfg}
}

// ValidateURL 只接受带主机名的 http/https 地址
func ValidateURL(rawURL string) (*url.URL, error) {
	if rawURL == "" {
		return nil, apperr.Validation("Fetch", "imageUrl is required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, apperr.Validation("Fetch", "invalid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, apperr.Validation("Fetch", "only http and https URLs are supported")
	}
	if u.Host == "" {
		return nil, apperr.Validation("Fetch", "URL has no host")
	}
	return u, nil
}

// Fetch 拉取远程内容，响应类型必须是 image/*
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*upload.Payload, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, apperr.Validation("Fetch", "invalid URL")
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "image/*")

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, apperr.Remote("Fetch", fmt.Errorf("failed to fetch image: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		return nil, apperr.Remote("Fetch", fmt.Errorf("remote server returned %d", resp.StatusCode))
	}

	mimeType := utils.NormalizeMimeType(resp.Header.Get("Content-Type"))
	if !utils.IsImageMimeType(mimeType) {
		_ = resp.Body.Close()
		return nil, apperr.Validation("Fetch", fmt.Sprintf("URL does not point to an image (content type %q)", mimeType))
	}

	if f.cfg.MaxSize > 0 && resp.ContentLength > f.cfg.MaxSize {
		_ = resp.Body.Close()
		return nil, apperr.Validation("Fetch", fmt.Sprintf("image exceeds the maximum size of %d bytes", f.cfg.MaxSize))
	}

	utils.LogIfDev("[Fetch] %s -> %s (%d bytes)", utils.SanitizeLogValue(u.String(), 200), mimeType, resp.ContentLength)
	return &upload.Payload{Body: resp.Body, MimeType: mimeType}, nil
}

// Source 为 URL 构建上传来源
func (f *HTTPFetcher) Source(rawURL string) upload.Source {
	return upload.URLSource{URL: rawURL, Fetcher: f}
}

var _ upload.Fetcher = (*HTTPFetcher)(nil)

// closeQuietly 关闭 body
func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}
