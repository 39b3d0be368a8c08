// Package events 按用户推送的 websocket 事件流：上传进度和会话变化。
package events

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// 消息类型
const (
	MsgUploadState    = "upload.state"
	MsgUploadProgress = "upload.progress"
	MsgUploadConflict = "upload.conflict"
	MsgUploadResolved = "upload.resolved"
	MsgSession        = "session"
	MsgImageDeleted   = "image.deleted"
)

const sendBufferSize = 64

// Message 推送给客户端的消息
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Client 一个 websocket 连接
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID uint
}

// Hub 维护每个用户的连接集合
type Hub struct {
	mu      sync.RWMutex
	clients map[uint]map[*Client]struct{}
}

// NewHub 创建 Hub
func NewHub() *Hub {
	return &Hub{clients: make(map[uint]map[*Client]struct{})}
}

// NewClient 为连接创建客户端并注册
func (h *Hub) NewClient(conn *websocket.Conn, userID uint) *Client {
	c := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		userID: userID,
	}
	h.register(c)
	return c
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.userID] == nil {
		h.clients[c.userID] = make(map[*Client]struct{})
	}
	h.clients[c.userID][c] = struct{}{}
}

// unregister 移除客户端并关闭发送通道，重复调用无效
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := clients[c]; !ok {
		return
	}
	delete(clients, c)
	close(c.send)
	if len(clients) == 0 {
		delete(h.clients, c.userID)
	}
}

// Publish 推送给某个用户的全部连接，发送队列满的连接会被断开
func (h *Hub) Publish(userID uint, msgType string, data interface{}) {
	payload, err := json.Marshal(Message{Type: msgType, Data: data, Timestamp: time.Now()})
	if err != nil {
		log.Printf("[Events] Failed to marshal %s message: %v", msgType, err)
		return
	}

	h.mu.RLock()
	var slow []*Client
	for c := range h.clients[userID] {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		log.Printf("[Events] Dropping slow client of user %d", userID)
		h.unregister(c)
	}
}

// Connections 用户当前连接数
func (h *Hub) Connections(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Close 断开全部连接
func (h *Hub) Close() {
	h.mu.Lock()
	var all []*Client
	for _, clients := range h.clients {
		for c := range clients {
			all = append(all, c)
		}
	}
	h.mu.Unlock()

	for _, c := range all {
		h.unregister(c)
	}
}
