package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"memory_webapp/internal/logger"
	"memory_webapp/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// входящее сообщение клиента
type wsRequest struct {
	Type     string `json:"type"`
	Position *int   `json:"position"`
}

// MemoryWS поток событий раунда. Пользователь уже проверен AuthRequired
func (h *Handler) MemoryWS(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	allowedOrigin := h.AllowedOrigin
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == allowedOrigin
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("ws upgrade error", "user_id", userID, "error", err)
		return
	}

	client := ws.NewClient(userID, conn, h.Hub)
	go client.Run()
}

// HandleWSMessage флипы через websocket, ответ как у POST /api/memory/flip
func (h *Handler) HandleWSMessage(userID string, msg []byte) []byte {
	var req wsRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		return wsReply(gin.H{"type": "error", "error": "bad message"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch req.Type {
	case "flip":
		if req.Position == nil {
			return wsReply(gin.H{"type": "error", "error": "position required"})
		}
		accepted, state, err := h.Rounds.Flip(ctx, userID, *req.Position)
		if err != nil {
			return wsReply(gin.H{"type": "error", "error": err.Error()})
		}
		return wsReply(gin.H{"type": "flip_result", "accepted": accepted, "state": state})
	case "state":
		state, err := h.Rounds.State(ctx, userID)
		if err != nil {
			return wsReply(gin.H{"type": "error", "error": err.Error()})
		}
		return wsReply(gin.H{"type": "state", "state": state})
	case "ping":
		return wsReply(gin.H{"type": "pong"})
	default:
		return wsReply(gin.H{"type": "error", "error": "unknown message type"})
	}
}

func wsReply(v gin.H) []byte {
	data, _ := json.Marshal(v)
	return data
}
