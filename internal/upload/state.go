package upload

import (
	"github.com/anoixa/image-shelf/database/models"
)

// State 单个上传项的状态
type State string

const (
	StatePending      State = "pending"
	StateChecking     State = "checking"
	StateConflictWait State = "conflict_wait"
	StateUploading    State = "uploading"
	StateSuccess      State = "success"
	StateError        State = "error"
	StateSkipped      State = "skipped"
)

// Terminal 终态之后不会再变化
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateError || s == StateSkipped
}

// transitions 合法的状态迁移
var transitions = map[State][]State{
	StatePending:      {StateChecking, StateError},
	StateChecking:     {StateConflictWait, StateUploading, StateError},
	StateConflictWait: {StateUploading, StateSkipped, StateError},
	StateUploading:    {StateSuccess, StateError},
}

// CanTransition 是否允许从 from 迁移到 to
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Item 一个上传项及其进度
type Item struct {
	Index    int
	Name     string
	State    State
	Progress int
	Err      error

	// Image 成功后的记录
	Image *models.Image
	// Existing 冲突时已存在的同名记录
	Existing *models.Image
	// Replaced 覆盖前旧记录的副本，用于清理旧对象和缓存
	Replaced *models.Image
}

// Message 保留的错误信息
func (it *Item) Message() string {
	if it.Err == nil {
		return ""
	}
	return it.Err.Error()
}

func (it *Item) snapshot() Item {
	return *it
}

// EventType 观察者事件类型
type EventType string

const (
	EventState    EventType = "state"
	EventProgress EventType = "progress"
	EventConflict EventType = "conflict"
	EventResolved EventType = "resolved"
)

// Event 状态迁移或进度变化
type Event struct {
	Type       EventType
	From       State
	Item       Item
	Resolution Resolution
}

// Observer 接收每一次状态迁移
type Observer interface {
	OnUploadEvent(Event)
}

// ObserverFunc 函数适配
type ObserverFunc func(Event)

func (f ObserverFunc) OnUploadEvent(e Event) { f(e) }
