package utils

import (
	"log"
	"strings"
	"unicode"

	"github.com/anoixa/image-shelf/config"
)

// LogIfDev 仅在开发版本输出
func LogIfDev(format string, args ...interface{}) {
	if !config.IsDevelopment() {
		return
	}
	log.Printf("[DEV] "+format, args...)
}

// SanitizeLogMessage 去掉不可打印字符，避免用户输入污染日志
func SanitizeLogMessage(msg string) string {
	var sb strings.Builder
	for _, r := range msg {
		if r == '\n' || r == '\r' {
			sb.WriteRune(' ')
			continue
		}
		if unicode.IsPrint(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// SanitizeLogValue 截断过长的用户输入
func SanitizeLogValue(value string, max int) string {
	if max > 0 && len(value) > max {
		value = value[:max] + "..."
	}
	return SanitizeLogMessage(value)
}
