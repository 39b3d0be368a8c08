package library

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/anoixa/image-shelf/database/models"
)

// ImageSource 加载某个用户的全部图片
type ImageSource interface {
	ListImages(ctx context.Context, owner uint) ([]*models.Image, error)
}

// ImageDeleter 删除单张图片，存储删除尽力而为，元数据删除为准
type ImageDeleter interface {
	Delete(ctx context.Context, id, owner uint) error
}

// Page 一页可见图片
type Page struct {
	Items      []*models.Image
	Total      int
	Page       int
	TotalPages int
}

// Workspace 组合已加载图片、选择集、视图状态和拖拽会话
type Workspace struct {
	owner      uint
	source     ImageSource
	deleter    ImageDeleter
	membership *Index
	drag       *DragSession

	mu        sync.Mutex
	images    []*models.Image
	selection *Selection
	view      ViewState
}

// WorkspaceOptions 构造参数
type WorkspaceOptions struct {
	Owner      uint
	Source     ImageSource
	Deleter    ImageDeleter
	Membership *Index
	Drag       *DragSession
	View       ViewState
}

// NewWorkspace 创建工作区，Drag 为空时新建
func NewWorkspace(opts WorkspaceOptions) *Workspace {
	drag := opts.Drag
	if drag == nil {
		drag = NewDragSession()
	}
	view := opts.View
	view.Normalize()

	return &Workspace{
		owner:      opts.Owner,
		source:     opts.Source,
		deleter:    opts.Deleter,
		membership: opts.Membership,
		drag:       drag,
		selection:  NewSelection(),
		view:       view,
	}
}

// Reload 重新加载图片并修剪选择集
func (w *Workspace) Reload(ctx context.Context) error {
	images, err := w.source.ListImages(ctx, w.owner)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.images = images
	w.selection.Prune(imageIDs(images))
	return nil
}

// Visible 按当前视图派生并分页
func (w *Workspace) Visible(ctx context.Context) (Page, error) {
	w.mu.Lock()
	images := append([]*models.Image(nil), w.images...)
	view := w.view
	w.mu.Unlock()

	var resolver MembershipResolver
	if w.membership != nil {
		resolver = w.membership
	}

	derived, err := Derive(ctx, images, view.Query(), resolver)
	if err != nil {
		return Page{Items: []*models.Image{}, Page: 1, TotalPages: 1}, err
	}

	items, totalPages := view.Paginate(derived)
	page := view.Page
	if page > totalPages {
		page = totalPages
	}
	return Page{Items: items, Total: len(derived), Page: page, TotalPages: totalPages}, nil
}

// DeleteSelected 逐个删除选中的图片，单个失败不影响其他
// 返回成功删除的 id 和合并后的错误
func (w *Workspace) DeleteSelected(ctx context.Context) ([]uint, error) {
	if w.deleter == nil {
		return nil, errors.New("workspace has no deleter")
	}

	w.mu.Lock()
	ids := w.selection.IDs()
	w.mu.Unlock()

	deleted := make([]uint, 0, len(ids))
	var errs []error
	for _, id := range ids {
		if err := w.deleter.Delete(ctx, id, w.owner); err != nil {
			errs = append(errs, fmt.Errorf("image %d: %w", id, err))
			continue
		}
		deleted = append(deleted, id)
	}

	gone := make(map[uint]struct{}, len(deleted))
	for _, id := range deleted {
		gone[id] = struct{}{}
	}

	w.mu.Lock()
	kept := w.images[:0:0]
	for _, img := range w.images {
		if _, ok := gone[img.ID]; !ok {
			kept = append(kept, img)
		}
	}
	w.images = kept
	w.selection.Prune(imageIDs(kept))
	w.mu.Unlock()

	return deleted, errors.Join(errs...)
}

// DropOnFolder 把拖拽中的图片加入文件夹，无论成败都结束拖拽
func (w *Workspace) DropOnFolder(ctx context.Context, folderID uint) (int, error) {
	ids := dedupe(w.drag.Snapshot())
	defer w.drag.EndDrag()

	if len(ids) == 0 {
		return 0, nil
	}
	if w.membership == nil {
		return 0, errors.New("workspace has no membership index")
	}
	if err := w.membership.Add(ctx, folderID, ids); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// Images 已加载图片的副本
func (w *Workspace) Images() []*models.Image {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]*models.Image(nil), w.images...)
}

// View 当前视图状态
func (w *Workspace) View() ViewState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.view
}

// SetView 替换视图状态并规范化
func (w *Workspace) SetView(v ViewState) {
	v.Normalize()
	w.mu.Lock()
	w.view = v
	w.mu.Unlock()
}

// WithSelection 在锁内操作选择集
func (w *Workspace) WithSelection(fn func(s *Selection)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(w.selection)
}

// SelectedIDs 当前选中的 id
func (w *Workspace) SelectedIDs() []uint {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.selection.IDs()
}

// Drag 拖拽会话
func (w *Workspace) Drag() *DragSession {
	return w.drag
}

func imageIDs(images []*models.Image) []uint {
	ids := make([]uint, len(images))
	for i, img := range images {
		ids[i] = img.ID
	}
	return ids
}
