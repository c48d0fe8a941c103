package ws

import (
	"encoding/json"
	"sync"

	"memory_webapp/internal/logger"
)

// MessageHandler обрабатывает входящее сообщение клиента и возвращает ответ (или nil)
type MessageHandler func(userID string, msg []byte) []byte

// Hub рассылает события раундов всем соединениям игрока
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	onMsg   MessageHandler
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*Client]struct{})}
}

// SetMessageHandler задает обработчик входящих сообщений
func (h *Hub) SetMessageHandler(fn MessageHandler) {
	h.mu.Lock()
	h.onMsg = fn
	h.mu.Unlock()
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.UserID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.UserID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.Send)
	if len(set) == 0 {
		delete(h.clients, c.UserID)
	}
}

// Publish отправляет v в JSON всем соединениям игрока. Никогда не блокируется:
// если буфер клиента полон, сообщение для него теряется
func (h *Hub) Publish(userID string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Error("ws publish: marshal failed", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[userID] {
		h.trySend(c, data)
	}
}

// Connections число соединений игрока
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) handle(c *Client, msg []byte) {
	h.mu.RLock()
	fn := h.onMsg
	h.mu.RUnlock()
	if fn == nil {
		return
	}
	if reply := fn(c.UserID, msg); reply != nil {
		h.sendTo(c, reply)
	}
}

func (h *Hub) sendTo(c *Client, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c.UserID][c]; ok {
		h.trySend(c, data)
	}
}

// вызывается под h.mu (read): Unregister закрывает Send только под write lock
func (h *Hub) trySend(c *Client, data []byte) {
	select {
	case c.Send <- data:
	default:
		logger.Warn("ws send buffer full, dropping message", "user_id", c.UserID)
	}
}
