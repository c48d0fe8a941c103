package handlers

import (
	"context"
	"errors"
	"net/http"

	"memory_webapp/internal/domain"
	"memory_webapp/internal/game"
	"memory_webapp/internal/http/middleware"
	"memory_webapp/internal/service"
	"memory_webapp/internal/ws"

	"github.com/gin-gonic/gin"
)

// Rounds управление раундами игрока
type Rounds interface {
	StartRound(ctx context.Context, userID, difficulty string) (string, map[string]interface{}, error)
	Flip(ctx context.Context, userID string, position int) (bool, map[string]interface{}, error)
	State(ctx context.Context, userID string) (map[string]interface{}, error)
	EndRound(ctx context.Context, userID string) error
}

// Results итоги раундов и таблица лидеров
type Results interface {
	Save(ctx context.Context, s game.Summary) (*domain.MemoryResult, error)
	History(ctx context.Context, userID string, limit int) ([]*domain.MemoryResult, error)
	Leaderboard(ctx context.Context, difficulty string, limit int) ([]domain.LeaderboardEntry, error)
}

// Wallets привязка кошелька
type Wallets interface {
	Link(ctx context.Context, userID, address string) (*domain.Wallet, error)
}

// AuditTrail журнал действий игрока
type AuditTrail interface {
	GetUserAuditLogs(ctx context.Context, userID string, limit int) ([]*domain.AuditLog, error)
}

// Auth вход через Telegram WebApp
type Auth interface {
	LoginTelegram(ctx context.Context, initData, ip, userAgent string) (string, *service.TelegramUser, error)
}

type Handler struct {
	Auth    Auth
	Rounds  Rounds
	Results Results
	Wallets Wallets
	Audit   AuditTrail
	Hub     *ws.Hub

	Version       string
	AllowedOrigin string
}

func getUserID(c *gin.Context) (string, bool) {
	return middleware.UserID(c)
}

// ответ на ошибку сервиса
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNoActiveRound):
		c.JSON(http.StatusNotFound, gin.H{"error": "no active round"})
	case errors.Is(err, service.ErrUnknownDifficulty):
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown difficulty"})
	case errors.Is(err, service.ErrRoundReplaced):
		c.JSON(http.StatusConflict, gin.H{"error": "round replaced by a newer start"})
	case errors.Is(err, service.ErrWalletNotConnected):
		c.JSON(http.StatusForbidden, gin.H{"error": "wallet not connected"})
	case errors.Is(err, service.ErrInvalidAddress):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wallet address"})
	case errors.Is(err, service.ErrInvalidResult):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidInitData):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid init data"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// Health проверка живости
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": h.Version})
}
