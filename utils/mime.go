package utils

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
)

// sniffLen http.DetectContentType 最多读取 512 字节
const sniffLen = 512

// mimeToExtMap MIME类型到扩展名的映射
var mimeToExtMap = map[string]string{
	"image/jpeg":    ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/bmp":     ".bmp",
	"image/tiff":    ".tiff",
	"image/svg+xml": ".svg",
	"image/avif":    ".avif",
	"image/x-icon":  ".ico",
}

// NormalizeMimeType 去掉参数并转小写
func NormalizeMimeType(mimeType string) string {
	mimeType = strings.Split(mimeType, ";")[0]
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// IsImageMimeType MIME 是否以 image/ 开头
func IsImageMimeType(mimeType string) bool {
	return strings.HasPrefix(NormalizeMimeType(mimeType), "image/")
}

// GetExtensionForMime 根据MIME类型返回扩展名，未知类型返回空字符串
func GetExtensionForMime(mimeType string) string {
	return mimeToExtMap[NormalizeMimeType(mimeType)]
}

// GetExtensionFromFilename 从文件名获取扩展名（小写）
func GetExtensionFromFilename(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// SniffContentType 读取前 512 字节探测类型，返回可以从头重新读取的 reader
func SniffContentType(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", nil, fmt.Errorf("failed to read stream for mime sniffing: %w", err)
	}
	head = head[:n]
	return http.DetectContentType(head), io.MultiReader(bytes.NewReader(head), r), nil
}
