package generator

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/anoixa/image-shelf/utils"
)

const (
	// DefaultExtension 原文件名没有扩展名时使用
	DefaultExtension = ".png"

	randomSuffixLength = 6
	shortCodeLength    = 10
	maxBaseNameLength  = 120
)

// RandomFunc 生成 n 位 [a-z0-9] 随机串
type RandomFunc func(n int) (string, error)

// FilenameGenerator 存储文件名生成器
type FilenameGenerator struct {
	now    func() time.Time
	random RandomFunc
}

// NewFilenameGenerator 使用系统时钟和 crypto/rand
func NewFilenameGenerator() *FilenameGenerator {
	return &FilenameGenerator{now: time.Now, random: utils.RandomString}
}

// NewFilenameGeneratorWith 测试时注入时钟和随机源
func NewFilenameGeneratorWith(now func() time.Time, random RandomFunc) *FilenameGenerator {
	return &FilenameGenerator{now: now, random: random}
}

// Generate {epochmillis}_{6位随机}_{清洗后的原名}
func (g *FilenameGenerator) Generate(originalName string) (string, error) {
	suffix, err := g.random(randomSuffixLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate filename suffix: %w", err)
	}
	return fmt.Sprintf("%d_%s_%s", g.now().UnixMilli(), suffix, SanitizeFilename(originalName)), nil
}

// SanitizeFilename 只保留 [a-zA-Z0-9.-]，其余字符替换为 '_'，缺扩展名时补 .png
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == "/" || name == `\` {
		name = ""
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if !isSafeExtension(ext) {
		base, ext = name, ""
	}

	var sb strings.Builder
	for _, r := range base {
		if isSafeRune(r) {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}
	cleaned := strings.Trim(sb.String(), ".")
	if cleaned == "" {
		cleaned = "image"
	}
	if len(cleaned) > maxBaseNameLength {
		cleaned = cleaned[:maxBaseNameLength]
	}

	if ext == "" {
		ext = DefaultExtension
	}
	return cleaned + strings.ToLower(ext)
}

// ShortCode 由文件名确定性推导的短链标识
func ShortCode(filename string) string {
	sum := sha256.Sum256([]byte(filename))
	return hex.EncodeToString(sum[:])[:shortCodeLength]
}

func isSafeRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '-'
}

// isSafeExtension 扩展名必须是 "." 加 1-10 个字母数字
func isSafeExtension(ext string) bool {
	if len(ext) < 2 || len(ext) > 11 {
		return false
	}
	for _, r := range ext[1:] {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}
