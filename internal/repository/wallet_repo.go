package repository

import (
	"context"
	"errors"

	"memory_webapp/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type WalletRepository struct {
	db *pgxpool.Pool
}

func NewWalletRepository(db *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{db: db}
}

// получает кошелек по id пользователя, nil если не привязан
func (r *WalletRepository) GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error) {
	row := r.db.QueryRow(ctx, `
		SELECT user_id, address, raw_address, linked_at
		FROM wallets
		WHERE user_id = $1
	`, userID)

	var w domain.Wallet
	if err := row.Scan(&w.UserID, &w.Address, &w.RawAddress, &w.LinkedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &w, nil
}

// привязывает кошелек, повторная привязка заменяет адрес
func (r *WalletRepository) Link(ctx context.Context, w *domain.Wallet) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO wallets (user_id, address, raw_address)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET address = EXCLUDED.address, raw_address = EXCLUDED.raw_address, linked_at = now()
		RETURNING linked_at
	`, w.UserID, w.Address, w.RawAddress).Scan(&w.LinkedAt)
}
