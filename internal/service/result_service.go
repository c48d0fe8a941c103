package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"memory_webapp/internal/domain"
	"memory_webapp/internal/game"
	"memory_webapp/internal/logger"
	"memory_webapp/internal/metrics"
)

var ErrInvalidResult = errors.New("invalid round result")

// ResultStore постоянное хранилище итогов
type ResultStore interface {
	Save(ctx context.Context, res *domain.MemoryResult, audit *domain.AuditLog) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.MemoryResult, error)
	Leaderboard(ctx context.Context, difficulty string, limit int) ([]domain.LeaderboardEntry, error)
}

// LeaderboardCache быстрый кеш лучших результатов
type LeaderboardCache interface {
	Record(ctx context.Context, res *domain.MemoryResult) error
	Top(ctx context.Context, difficulty string, limit int) ([]domain.LeaderboardEntry, error)
	Fill(ctx context.Context, entries []domain.LeaderboardEntry) error
}

// ResultService принимает итоги раундов
type ResultService struct {
	store ResultStore
	board LeaderboardCache
	log   *slog.Logger
}

// board может быть nil, тогда таблица лидеров читается из базы
func NewResultService(store ResultStore, board LeaderboardCache) *ResultService {
	return &ResultService{
		store: store,
		board: board,
		log:   logger.Component("result_service"),
	}
}

// ValidateSummary проверяет итог перед сохранением
func ValidateSummary(s game.Summary) error {
	switch {
	case s.UserID == "":
		return fmt.Errorf("%w: userID is required", ErrInvalidResult)
	case s.Difficulty == "":
		return fmt.Errorf("%w: difficulty is required", ErrInvalidResult)
	case !knownDifficulty(s.Difficulty):
		return fmt.Errorf("%w: unknown difficulty %q", ErrInvalidResult, s.Difficulty)
	case s.Completed != 1:
		return fmt.Errorf("%w: completed must be 1", ErrInvalidResult)
	case s.Failed < 0:
		return fmt.Errorf("%w: failed must not be negative", ErrInvalidResult)
	case s.TimeTaken < 0:
		return fmt.Errorf("%w: timeTaken must not be negative", ErrInvalidResult)
	case s.GameDate.IsZero():
		return fmt.Errorf("%w: gameDate is required", ErrInvalidResult)
	}
	return nil
}

// пустая строка здесь не означает Easy
func knownDifficulty(name string) bool {
	d, ok := game.ParseDifficulty(name)
	return ok && string(d) == name
}

// Save сохраняет итог раунда
func (s *ResultService) Save(ctx context.Context, sum game.Summary) (*domain.MemoryResult, error) {
	if err := ValidateSummary(sum); err != nil {
		return nil, err
	}

	res := &domain.MemoryResult{
		UserID:     sum.UserID,
		GameDate:   sum.GameDate.UTC(),
		Failed:     sum.Failed,
		Difficulty: sum.Difficulty,
		Completed:  sum.Completed,
		TimeTaken:  sum.TimeTaken,
	}
	audit := &domain.AuditLog{
		UserID:   sum.UserID,
		Action:   domain.AuditActionResultSaved,
		Category: domain.AuditCategoryGame,
		Details: map[string]interface{}{
			"difficulty": sum.Difficulty,
			"failed":     sum.Failed,
			"time_taken": sum.TimeTaken,
		},
	}

	if err := s.store.Save(ctx, res, audit); err != nil {
		metrics.ResultSaveFailures.Inc()
		return nil, fmt.Errorf("save result: %w", err)
	}

	metrics.ResultsSaved.WithLabelValues(res.Difficulty).Inc()
	metrics.RoundDuration.WithLabelValues(res.Difficulty).Observe(float64(res.TimeTaken))
	metrics.FailedAttempts.WithLabelValues(res.Difficulty).Observe(float64(res.Failed))

	if s.board != nil {
		if err := s.board.Record(ctx, res); err != nil {
			s.log.Warn("failed to update leaderboard cache", "error", err, "user_id", res.UserID)
		}
	}

	s.log.Info("round result saved", "user_id", res.UserID, "difficulty", res.Difficulty,
		"failed", res.Failed, "time_taken", res.TimeTaken)
	return res, nil
}

// History последние итоги игрока
func (s *ResultService) History(ctx context.Context, userID string, limit int) ([]*domain.MemoryResult, error) {
	return s.store.ListByUser(ctx, userID, limit)
}

// Leaderboard сначала кеш, при промахе - база с прогревом кеша
func (s *ResultService) Leaderboard(ctx context.Context, difficulty string, limit int) ([]domain.LeaderboardEntry, error) {
	if s.board != nil {
		entries, err := s.board.Top(ctx, difficulty, limit)
		if err == nil && len(entries) > 0 {
			return entries, nil
		}
		if err != nil {
			s.log.Warn("leaderboard cache read failed", "error", err)
		}
	}

	entries, err := s.store.Leaderboard(ctx, difficulty, limit)
	if err != nil {
		return nil, err
	}

	if s.board != nil && len(entries) > 0 {
		fillCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := s.board.Fill(fillCtx, entries); err != nil {
			s.log.Warn("failed to warm leaderboard cache", "error", err)
		}
	}
	return entries, nil
}
