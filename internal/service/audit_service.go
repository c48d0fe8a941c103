package service

import (
	"context"

	"memory_webapp/internal/domain"
	"memory_webapp/internal/logger"
)

// AuditStore хранилище журнала аудита
type AuditStore interface {
	Create(ctx context.Context, log *domain.AuditLog) error
	GetByUserID(ctx context.Context, userID string, limit int) ([]*domain.AuditLog, error)
}

// обрабатывает логирование аудита
type AuditService struct {
	repo AuditStore
}

// создает новый сервис аудита
func NewAuditService(repo AuditStore) *AuditService {
	return &AuditService{repo: repo}
}

// создает новую запись в журнале аудита, ошибка только логируется
func (s *AuditService) Log(ctx context.Context, userID, action, category string, details map[string]interface{}) {
	s.LogWithRequest(ctx, userID, action, category, "", "", details)
}

// создает запись аудита с информацией о запросе (ip, user-agent)
func (s *AuditService) LogWithRequest(ctx context.Context, userID, action, category, ip, userAgent string, details map[string]interface{}) {
	if s == nil || s.repo == nil {
		return
	}
	log := &domain.AuditLog{
		UserID:    userID,
		Action:    action,
		Category:  category,
		Details:   details,
		IP:        ip,
		UserAgent: userAgent,
	}

	if err := s.repo.Create(ctx, log); err != nil {
		logger.Error("failed to write audit log", "error", err, "action", action, "user_id", userID)
	}
}

// логирует начало раунда
func (s *AuditService) LogRoundStart(ctx context.Context, userID, roundID, difficulty string) {
	s.Log(ctx, userID, domain.AuditActionRoundStart, domain.AuditCategoryGame, map[string]interface{}{
		"round_id":   roundID,
		"difficulty": difficulty,
	})
}

// логирует привязку кошелька
func (s *AuditService) LogWalletLink(ctx context.Context, userID, address string) {
	s.Log(ctx, userID, domain.AuditActionWalletLink, domain.AuditCategoryWallet, map[string]interface{}{
		"address": address,
	})
}

// возвращает записи аудита для пользователя
func (s *AuditService) GetUserAuditLogs(ctx context.Context, userID string, limit int) ([]*domain.AuditLog, error) {
	if s == nil || s.repo == nil {
		return nil, nil
	}
	return s.repo.GetByUserID(ctx, userID, limit)
}
