// Package session 会话变更通知：登录、登出、刷新、找回密码、资料更新。
package session

import (
	"sync"
	"time"
)

// EventType 会话事件类型
type EventType string

const (
	EventSignedIn         EventType = "signed_in"
	EventSignedOut        EventType = "signed_out"
	EventTokenRefreshed   EventType = "token_refreshed"
	EventPasswordRecovery EventType = "password_recovery"
	EventUserUpdated      EventType = "user_updated"
)

// Event 会话变更事件
type Event struct {
	Type      EventType
	UserID    uint
	SessionID string
	At        time.Time
}

// Handler 事件处理器
type Handler func(Event)

// Notifier 会话事件总线，处理器在独立 goroutine 中执行
type Notifier struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[uint64]Handler
}

// NewNotifier 创建通知器
func NewNotifier() *Notifier {
	return &Notifier{handlers: make(map[uint64]Handler)}
}

// Subscribe 订阅全部会话事件，返回取消订阅函数（可重复调用）
func (n *Notifier) Subscribe(handler Handler) (unsubscribe func()) {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.handlers[id] = handler
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.handlers, id)
			n.mu.Unlock()
		})
	}
}

// Publish 发布事件
func (n *Notifier) Publish(eventType EventType, userID uint, sessionID string) {
	if n == nil {
		return
	}

	n.mu.RLock()
	handlers := make([]Handler, 0, len(n.handlers))
	for _, h := range n.handlers {
		handlers = append(handlers, h)
	}
	n.mu.RUnlock()

	event := Event{
		Type:      eventType,
		UserID:    userID,
		SessionID: sessionID,
		At:        time.Now(),
	}
	for _, handler := range handlers {
		go handler(event)
	}
}

// Subscribers 当前订阅数
func (n *Notifier) Subscribers() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.handlers)
}
