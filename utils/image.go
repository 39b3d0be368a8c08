package utils

import (
	"image"
	"io"

	// 注册解码器，DecodeConfig 只读取文件头
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// GetImageDimensions 读取图片宽高，无法识别时返回 0, 0
func GetImageDimensions(r io.Reader) (int, int) {
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
