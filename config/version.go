package config

import "fmt"

var (
	Version    string = "dev"
	CommitHash string = ""
)

// IsProduction release 构建且带 commit 信息
func IsProduction() bool {
	return Version == "release" && CommitHash != ""
}

// IsDevelopment 判断是否为开发环境
func IsDevelopment() bool {
	return Version == "dev"
}

// BuildInfo 启动日志和 /version 使用
func BuildInfo() string {
	if CommitHash == "" {
		return fmt.Sprintf("image shelf %s", Version)
	}
	return fmt.Sprintf("image shelf %s (%s)", Version, CommitHash)
}
