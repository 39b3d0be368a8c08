package events

import (
	"log"
	"net/http"
	"net/url"

	"github.com/anoixa/image-shelf/api/common"
	"github.com/anoixa/image-shelf/api/middleware"
	"github.com/anoixa/image-shelf/internal/events"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Handler websocket 事件推送
type Handler struct {
	hub      *events.Hub
	upgrader websocket.Upgrader
}

// NewHandler allowedOrigin 为空时只校验同源
func NewHandler(hub *events.Hub, allowedOrigin string) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigin),
		},
	}
}

// Stream 建立 websocket 连接，推送上传进度和会话变化
// @Summary      Event stream
// @Description  WebSocket. Messages are {type, data, timestamp}; types are upload.state, upload.progress, upload.conflict, upload.resolved, session and image.deleted. Browsers may pass the token as ?access_token=.
// @Tags         events
// @Param        access_token  query  string  false  "Access token when no Authorization header can be sent"
// @Success      101
// @Failure      401  {object}  common.Response  "Unauthorized"
// @Security     BearerAuth
// @Router       /api/v1/events [get]
func (h *Handler) Stream(c *gin.Context) {
	userID := c.GetUint(middleware.ContextUserIDKey)
	if userID == 0 {
		common.RespondError(c, http.StatusUnauthorized, "Invalid user session")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[Events] Upgrade failed for user %d: %v", userID, err)
		return
	}

	client := h.hub.NewClient(conn, userID)
	client.Serve()
}

func originChecker(allowed string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if allowed != "" && origin == allowed {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	}
}
