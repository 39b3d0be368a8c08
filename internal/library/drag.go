package library

import "sync"

// DragSession 拖拽中的图片 id，显式传给拖拽源和放置目标
type DragSession struct {
	mu         sync.Mutex
	draggedIDs []uint
	isDragging bool
}

// NewDragSession 创建拖拽会话
func NewDragSession() *DragSession {
	return &DragSession{}
}

// StartDrag 记录被拖拽的 id，覆盖上一次拖拽
func (d *DragSession) StartDrag(ids []uint) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.draggedIDs = append([]uint(nil), ids...)
	d.isDragging = len(ids) > 0
}

// EndDrag 无条件清空
func (d *DragSession) EndDrag() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.draggedIDs = nil
	d.isDragging = false
}

// Snapshot 返回 id 副本
func (d *DragSession) Snapshot() []uint {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]uint(nil), d.draggedIDs...)
}

func (d *DragSession) IsDragging() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.isDragging
}
