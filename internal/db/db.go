package db

import (
	"context"
	"fmt"
	"time"

	"memory_webapp/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect открывает пул соединений и создает таблицы
func Connect(databaseURL string) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Fatal("failed to create db pool", "error", err)
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal("failed to ping db", "error", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		logger.Fatal("failed to migrate db", "error", err)
	}
	return pool
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS memory_results (
		id          BIGSERIAL PRIMARY KEY,
		user_id     TEXT        NOT NULL,
		game_date   TIMESTAMPTZ NOT NULL,
		failed      INTEGER     NOT NULL,
		difficulty  TEXT        NOT NULL,
		completed   SMALLINT    NOT NULL,
		time_taken  INTEGER     NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS memory_results_user_idx ON memory_results (user_id, game_date DESC)`,
	`CREATE INDEX IF NOT EXISTS memory_results_board_idx ON memory_results (difficulty, time_taken, failed)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id          BIGSERIAL PRIMARY KEY,
		user_id     TEXT        NOT NULL,
		action      TEXT        NOT NULL,
		category    TEXT        NOT NULL,
		details     JSONB       NOT NULL DEFAULT '{}',
		ip          TEXT        NOT NULL DEFAULT '',
		user_agent  TEXT        NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS wallets (
		user_id     TEXT PRIMARY KEY,
		address     TEXT        NOT NULL,
		raw_address TEXT        NOT NULL,
		linked_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate создает схему, повторный запуск безопасен
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
