package worker

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/anoixa/image-shelf/cache"
	"github.com/anoixa/image-shelf/storage"
	"github.com/anoixa/image-shelf/utils"
)

const taskTimeout = 30 * time.Second

// BlobDeleteTask 尽力删除存储中的文件，失败只记录日志
type BlobDeleteTask struct {
	Provider storage.Provider
	Key      string
}

// Execute 执行删除
func (t *BlobDeleteTask) Execute() {
	if t.Provider == nil || t.Key == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
	defer cancel()

	if err := t.Provider.DeleteWithContext(ctx, t.Key); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return
		}
		log.Printf("[Worker] Failed to delete blob %s from %s: %v", utils.SanitizeLogMessage(t.Key), t.Provider.Name(), err)
		return
	}
	utils.LogIfDev("[Worker] Blob deleted: %s", t.Key)
}

// CacheInvalidateTask 删除图片元数据、短码和缩略图缓存
type CacheInvalidateTask struct {
	Helper    *cache.Helper
	Filename  string
	ShortCode string
}

// Execute 执行缓存清理
func (t *CacheInvalidateTask) Execute() {
	if t.Helper == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
	defer cancel()

	if err := t.Helper.DeleteCachedImage(ctx, t.Filename, t.ShortCode); err != nil {
		log.Printf("[Worker] Failed to invalidate cache for %s: %v", utils.SanitizeLogMessage(t.Filename), err)
	}
}
