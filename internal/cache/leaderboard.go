package cache

import (
	"context"
	"errors"
	"fmt"

	"memory_webapp/internal/domain"

	"github.com/redis/go-redis/v9"
)

// ошибок в счете не больше этого, иначе они перетекут во время
const maxFailedInScore = 999

// Leaderboard лучшие результаты в sorted set, один ключ на уровень сложности
type Leaderboard struct {
	rdb *redis.Client
}

func NewLeaderboard(rdb *redis.Client) *Leaderboard {
	return &Leaderboard{rdb: rdb}
}

func leaderboardKey(difficulty string) string {
	return "memory:leaderboard:" + difficulty
}

// Score кодирует время и ошибки в одно число: сначала время, потом ошибки
func Score(timeTaken, failed int) float64 {
	if failed > maxFailedInScore {
		failed = maxFailedInScore
	}
	return float64(timeTaken*1000 + failed)
}

// DecodeScore обратное к Score
func DecodeScore(score float64) (timeTaken, failed int) {
	v := int(score)
	return v / 1000, v % 1000
}

// Record обновляет лучший результат игрока (ZADD LT оставляет меньший счет)
func (l *Leaderboard) Record(ctx context.Context, res *domain.MemoryResult) error {
	return l.rdb.ZAddArgs(ctx, leaderboardKey(res.Difficulty), redis.ZAddArgs{
		LT:      true,
		Members: []redis.Z{{Score: Score(res.TimeTaken, res.Failed), Member: res.UserID}},
	}).Err()
}

// Top первые limit мест. Пустой ключ - пустой список без ошибки
func (l *Leaderboard) Top(ctx context.Context, difficulty string, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		return nil, nil
	}

	zs, err := l.rdb.ZRangeWithScores(ctx, leaderboardKey(difficulty), 0, int64(limit-1)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("leaderboard range: %w", err)
	}

	out := make([]domain.LeaderboardEntry, 0, len(zs))
	for i, z := range zs {
		userID, ok := z.Member.(string)
		if !ok {
			continue
		}
		timeTaken, failed := DecodeScore(z.Score)
		out = append(out, domain.LeaderboardEntry{
			Rank:       i + 1,
			UserID:     userID,
			Difficulty: difficulty,
			TimeTaken:  timeTaken,
			Failed:     failed,
		})
	}
	return out, nil
}

// Fill заливает в кеш записи из базы (холодный старт)
func (l *Leaderboard) Fill(ctx context.Context, entries []domain.LeaderboardEntry) error {
	if len(entries) == 0 {
		return nil
	}
	pipe := l.rdb.Pipeline()
	for _, e := range entries {
		pipe.ZAddArgs(ctx, leaderboardKey(e.Difficulty), redis.ZAddArgs{
			LT:      true,
			Members: []redis.Z{{Score: Score(e.TimeTaken, e.Failed), Member: e.UserID}},
		})
	}
	_, err := pipe.Exec(ctx)
	return err
}
