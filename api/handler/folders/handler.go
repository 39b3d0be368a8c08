package folders

import (
	"strconv"

	"github.com/anoixa/image-shelf/internal/library"
	"github.com/anoixa/image-shelf/internal/metadata"
)

// Workspaces 创建浏览工作区，app.Container 实现
type Workspaces interface {
	NewWorkspace(owner uint, view library.ViewState) *library.Workspace
}

// Handler 文件夹处理器
type Handler struct {
	meta       *metadata.Client
	workspaces Workspaces
}

// NewHandler 创建新的文件夹处理器
func NewHandler(meta *metadata.Client, workspaces Workspaces) *Handler {
	return &Handler{
		meta:       meta,
		workspaces: workspaces,
	}
}

func parseID(raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
