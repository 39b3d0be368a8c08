package events

import (
	"github.com/anoixa/image-shelf/internal/session"
	"github.com/anoixa/image-shelf/internal/upload"
)

// UploadItem 上传项的推送格式
type UploadItem struct {
	Index      int    `json:"index"`
	Name       string `json:"name"`
	State      string `json:"state"`
	From       string `json:"from,omitempty"`
	Progress   int    `json:"progress"`
	Error      string `json:"error,omitempty"`
	Filename   string `json:"filename,omitempty"`
	ImageID    uint   `json:"image_id,omitempty"`
	ExistingID uint   `json:"existing_id,omitempty"`
	Resolution string `json:"resolution,omitempty"`
}

// SessionChange 会话事件的推送格式
type SessionChange struct {
	Event     string `json:"event"`
	SessionID string `json:"session_id,omitempty"`
}

// UploadObserver 把上传事件转发给用户的 websocket 连接
func UploadObserver(h *Hub, userID uint) upload.Observer {
	return upload.ObserverFunc(func(e upload.Event) {
		item := UploadItem{
			Index:      e.Item.Index,
			Name:       e.Item.Name,
			State:      string(e.Item.State),
			From:       string(e.From),
			Progress:   e.Item.Progress,
			Error:      e.Item.Message(),
			Resolution: string(e.Resolution),
		}
		if e.Item.Image != nil {
			item.Filename = e.Item.Image.Filename
			item.ImageID = e.Item.Image.ID
		}
		if e.Item.Existing != nil {
			item.ExistingID = e.Item.Existing.ID
		}
		h.Publish(userID, uploadMessageType(e.Type), item)
	})
}

func uploadMessageType(t upload.EventType) string {
	switch t {
	case upload.EventProgress:
		return MsgUploadProgress
	case upload.EventConflict:
		return MsgUploadConflict
	case upload.EventResolved:
		return MsgUploadResolved
	default:
		return MsgUploadState
	}
}

// BridgeSessions 订阅会话事件并推送给对应用户，返回取消订阅函数
func BridgeSessions(h *Hub, n *session.Notifier) func() {
	return n.Subscribe(func(e session.Event) {
		if e.UserID == 0 {
			return
		}
		h.Publish(e.UserID, MsgSession, SessionChange{Event: string(e.Type), SessionID: e.SessionID})
	})
}
