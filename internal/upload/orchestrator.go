// Package upload 批量上传编排：逐个处理来源，检测同名冲突，
// 先写对象存储再写元数据。
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/anoixa/image-shelf/database/models"
	"github.com/anoixa/image-shelf/database/repo/images"
	"github.com/anoixa/image-shelf/internal/apperr"
	"github.com/anoixa/image-shelf/storage"
	"github.com/anoixa/image-shelf/utils"
	"github.com/anoixa/image-shelf/utils/generator"
	"github.com/anoixa/image-shelf/utils/pool"
)

// ErrTooLarge 超过单文件大小限制
var ErrTooLarge = errors.New("file exceeds the maximum upload size")

// MetadataStore 上传用到的元数据操作
type MetadataStore interface {
	FindImageByOriginalName(ctx context.Context, owner *uint, name string) (*models.Image, error)
	CreateImage(ctx context.Context, image *models.Image) error
	ReplaceImageContent(ctx context.Context, id uint, update images.ContentUpdate) (*models.Image, error)
}

// BlobStores 按驱动名获取存储，storage.Factory 实现了它
type BlobStores interface {
	Get(name string) (storage.Provider, error)
	GetDefault() storage.Provider
}

// Options 编排器参数
type Options struct {
	Metadata  MetadataStore
	Blobs     BlobStores
	Resolver  Resolver
	Names     *generator.FilenameGenerator
	MaxSize   int64
	TempDir   string
	Observers []Observer
	// AllowDuplicates 不做同名检测，总是新建记录，URL 导入使用
	AllowDuplicates bool
}

// Orchestrator 顺序上传编排器
type Orchestrator struct {
	opts Options
}

// NewOrchestrator 创建编排器，Resolver 为空时冲突一律要求调用方决定
func NewOrchestrator(opts Options) *Orchestrator {
	if opts.Names == nil {
		opts.Names = generator.NewFilenameGenerator()
	}
	if opts.Resolver == nil {
		opts.Resolver = StaticResolver(ResolutionNone)
	}
	return &Orchestrator{opts: opts}
}

// Run 逐个处理来源，前一项进入终态后才开始下一项
// owner 为 nil 表示匿名上传，匿名上传总是 public
func (o *Orchestrator) Run(ctx context.Context, owner *uint, sources []Source, access models.AccessType) []*Item {
	if owner == nil {
		access = models.AccessPublic
	}

	items := make([]*Item, len(sources))
	for i, src := range sources {
		items[i] = &Item{Index: i, Name: src.DisplayName(), State: StatePending}
	}

	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			o.fail(items[i], err)
			continue
		}
		o.process(ctx, owner, src, items[i], access)
	}
	return items
}

// --- 状态迁移 ---

func (o *Orchestrator) emit(e Event) {
	for _, obs := range o.opts.Observers {
		obs.OnUploadEvent(e)
	}
}

func (o *Orchestrator) transition(it *Item, to State, progress int) {
	from := it.State
	if !CanTransition(from, to) {
		log.Printf("[Upload] Illegal transition %s -> %s for %q", from, to, utils.SanitizeLogValue(it.Name, 80))
	}
	it.State = to
	if progress >= 0 {
		it.Progress = progress
	}
	o.emit(Event{Type: EventState, From: from, Item: it.snapshot()})
}

func (o *Orchestrator) progress(it *Item, p int) {
	if p <= it.Progress {
		return
	}
	it.Progress = p
	o.emit(Event{Type: EventProgress, From: it.State, Item: it.snapshot()})
}

func (o *Orchestrator) fail(it *Item, err error) {
	it.Err = err
	o.transition(it, StateError, -1)
}

// --- 单项处理 ---

func (o *Orchestrator) process(ctx context.Context, owner *uint, src Source, it *Item, access models.AccessType) {
	o.transition(it, StateChecking, 5)

	payload, err := src.Open(ctx)
	if err != nil {
		if apperr.KindOf(err) != "" {
			o.fail(it, err)
		} else {
			o.fail(it, apperr.Remote("Open", err))
		}
		return
	}
	defer func() { _ = payload.Body.Close() }()

	if !utils.IsImageMimeType(payload.MimeType) {
		o.fail(it, apperr.Validation("InvalidType", fmt.Sprintf("%s is not an image type", payload.MimeType)))
		return
	}

	var existing *models.Image
	if !o.opts.AllowDuplicates {
		existing, err = o.opts.Metadata.FindImageByOriginalName(ctx, owner, it.Name)
		switch {
		case err == nil:
		case apperr.IsNotFound(err):
			existing = nil
		default:
			o.fail(it, err)
			return
		}
	}

	if existing != nil {
		it.Existing = existing
		o.transition(it, StateConflictWait, -1)
		o.emit(Event{Type: EventConflict, From: StateConflictWait, Item: it.snapshot()})

		resolution, err := o.opts.Resolver.Resolve(ctx, Conflict{Name: it.Name, Existing: existing})
		if err != nil {
			if errors.Is(err, ErrDecisionRequired) {
				err = apperr.Conflict("Upload", "a file with this name already exists", err)
			}
			o.fail(it, err)
			return
		}
		o.emit(Event{Type: EventResolved, From: StateConflictWait, Item: it.snapshot(), Resolution: resolution})

		if resolution != ResolutionOverwrite {
			o.transition(it, StateSkipped, 100)
			return
		}
	}

	o.transition(it, StateUploading, 10)
	image, err := o.upload(ctx, owner, payload, it, existing, access)
	if err != nil {
		o.fail(it, err)
		return
	}
	it.Image = image
	o.transition(it, StateSuccess, 100)
}

// upload 落临时文件后写对象存储，再写元数据
func (o *Orchestrator) upload(ctx context.Context, owner *uint, payload *Payload, it *Item, existing *models.Image, access models.AccessType) (*models.Image, error) {
	tmp, size, err := o.spool(payload.Body)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()
	o.progress(it, 40)

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, apperr.Remote("Upload", err)
	}
	width, height := utils.GetImageDimensions(tmp)
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, apperr.Remote("Upload", err)
	}

	filename, err := o.opts.Names.Generate(it.Name)
	if err != nil {
		return nil, apperr.Remote("Upload", err)
	}

	blob := o.opts.Blobs.GetDefault()
	if blob == nil {
		return nil, apperr.Remote("Upload", errors.New("no default storage configured"))
	}

	body := &progressReader{r: tmp, total: size, onProgress: func(p int) {
		// 写存储占 40~90
		o.progress(it, 40+p/2)
	}}
	if err := blob.SaveWithContext(ctx, filename, body); err != nil {
		return nil, apperr.Remote("SaveBlob", err)
	}
	o.progress(it, 90)

	mime := payload.MimeType
	if existing == nil {
		image := &models.Image{
			Filename:      filename,
			OriginalName:  it.Name,
			FileSize:      &size,
			MimeType:      &mime,
			ShortURL:      generator.ShortCode(filename),
			Width:         width,
			Height:        height,
			StorageDriver: blob.Name(),
			UserID:        owner,
			AccessType:    access,
			UploadedAt:    time.Now(),
		}
		if err := o.opts.Metadata.CreateImage(ctx, image); err != nil {
			o.compensate(blob, filename, err)
			return nil, err
		}
		return image, nil
	}

	replaced := *existing
	image, err := o.opts.Metadata.ReplaceImageContent(ctx, existing.ID, images.ContentUpdate{
		Filename:      filename,
		ShortURL:      generator.ShortCode(filename),
		FileSize:      &size,
		MimeType:      &mime,
		Width:         width,
		Height:        height,
		StorageDriver: blob.Name(),
	})
	if err != nil {
		o.compensate(blob, filename, err)
		return nil, err
	}
	it.Replaced = &replaced
	o.removeOldBlob(replaced)
	return image, nil
}

// spool 复制到临时文件并限制大小
func (o *Orchestrator) spool(r io.Reader) (*os.File, int64, error) {
	tmp, err := os.CreateTemp(o.opts.TempDir, "upload-*")
	if err != nil {
		return nil, 0, apperr.Remote("Upload", fmt.Errorf("failed to create temp file: %w", err))
	}

	src := r
	if o.opts.MaxSize > 0 {
		src = io.LimitReader(r, o.opts.MaxSize+1)
	}

	buf := pool.Get()
	defer pool.Put(buf)

	n, err := io.CopyBuffer(tmp, src, *buf)
	if err == nil && o.opts.MaxSize > 0 && n > o.opts.MaxSize {
		err = ErrTooLarge
	}
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		if errors.Is(err, ErrTooLarge) {
			return nil, 0, apperr.Validation("Upload", err.Error())
		}
		return nil, 0, apperr.Remote("Upload", fmt.Errorf("failed to read upload: %w", err))
	}
	return tmp, n, nil
}

// compensate 元数据写入失败，删除刚写入的对象，不重试
func (o *Orchestrator) compensate(blob storage.Provider, filename string, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := blob.DeleteWithContext(ctx, filename); err != nil {
		log.Printf("[Upload] Orphaned blob %s after metadata failure (%v): delete failed: %v", filename, cause, err)
		return
	}
	log.Printf("[Upload] Removed blob %s after metadata failure: %v", filename, cause)
}

// removeOldBlob 覆盖成功后删除旧对象，失败只记录
func (o *Orchestrator) removeOldBlob(old models.Image) {
	blob, err := o.opts.Blobs.Get(old.StorageDriver)
	if err != nil {
		log.Printf("[Upload] Cannot remove replaced blob %s: %v", old.Filename, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := blob.DeleteWithContext(ctx, old.Filename); err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Printf("[Upload] Failed to remove replaced blob %s: %v", old.Filename, err)
	}
}

// progressReader 按已读字节报告 0~100
type progressReader struct {
	r          io.Reader
	total      int64
	read       int64
	onProgress func(int)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.total > 0 && p.onProgress != nil {
		p.onProgress(int(p.read * 100 / p.total))
	}
	return n, err
}
