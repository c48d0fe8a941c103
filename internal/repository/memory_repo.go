package repository

import (
	"context"

	"memory_webapp/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// хранит итоги раундов memory
type MemoryRepository struct {
	db    *pgxpool.Pool
	audit *AuditRepository
}

func NewMemoryRepository(db *pgxpool.Pool) *MemoryRepository {
	return &MemoryRepository{db: db, audit: NewAuditRepository(db)}
}

// сохраняет результат и запись аудита одной транзакцией
func (r *MemoryRepository) Save(ctx context.Context, res *domain.MemoryResult, audit *domain.AuditLog) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.QueryRow(ctx, `
		INSERT INTO memory_results (user_id, game_date, failed, difficulty, completed, time_taken)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, res.UserID, res.GameDate, res.Failed, res.Difficulty, res.Completed, res.TimeTaken).Scan(&res.ID, &res.CreatedAt); err != nil {
		return err
	}

	if audit != nil {
		if audit.Details == nil {
			audit.Details = make(map[string]interface{})
		}
		audit.Details["result_id"] = res.ID
		if err := r.audit.CreateWithTx(ctx, tx, audit); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// последние результаты игрока
func (r *MemoryRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.MemoryResult, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, game_date, failed, difficulty, completed, time_taken, created_at
		FROM memory_results
		WHERE user_id = $1
		ORDER BY game_date DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.MemoryResult
	for rows.Next() {
		var m domain.MemoryResult
		if err := rows.Scan(&m.ID, &m.UserID, &m.GameDate, &m.Failed, &m.Difficulty, &m.Completed, &m.TimeTaken, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// лучший результат каждого игрока на уровне: меньше время, потом меньше ошибок
func (r *MemoryRepository) Leaderboard(ctx context.Context, difficulty string, limit int) ([]domain.LeaderboardEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT user_id, time_taken, failed FROM (
			SELECT DISTINCT ON (user_id) user_id, time_taken, failed
			FROM memory_results
			WHERE difficulty = $1 AND completed = 1
			ORDER BY user_id, time_taken ASC, failed ASC
		) best
		ORDER BY time_taken ASC, failed ASC
		LIMIT $2
	`, difficulty, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LeaderboardEntry
	for rows.Next() {
		e := domain.LeaderboardEntry{Rank: len(out) + 1, Difficulty: difficulty}
		if err := rows.Scan(&e.UserID, &e.TimeTaken, &e.Failed); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
