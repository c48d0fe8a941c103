package service

import (
	"context"
	"errors"
	"fmt"

	"memory_webapp/internal/domain"
	"memory_webapp/internal/ton"
)

var (
	ErrWalletNotConnected = errors.New("wallet not connected")
	ErrInvalidAddress     = errors.New("invalid wallet address")
)

// WalletPort знает, подключен ли у игрока кошелек
type WalletPort interface {
	ConnectedAddress(ctx context.Context, userID string) (string, error)
}

// WalletStore хранилище привязанных кошельков
type WalletStore interface {
	GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error)
	Link(ctx context.Context, w *domain.Wallet) error
}

// WalletService привязка TON кошелька, только проверка формата адреса
type WalletService struct {
	repo  WalletStore
	audit *AuditService
}

func NewWalletService(repo WalletStore, audit *AuditService) *WalletService {
	return &WalletService{repo: repo, audit: audit}
}

// Link проверяет адрес и привязывает его к игроку
func (s *WalletService) Link(ctx context.Context, userID, addr string) (*domain.Wallet, error) {
	parsed, err := ton.ParseAddress(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	w := &domain.Wallet{
		UserID:     userID,
		Address:    parsed.String(),
		RawAddress: ton.RawAddress(parsed),
	}
	if err := s.repo.Link(ctx, w); err != nil {
		return nil, err
	}

	s.audit.LogWalletLink(ctx, userID, w.Address)
	return w, nil
}

// ConnectedAddress адрес кошелька игрока или ErrWalletNotConnected
func (s *WalletService) ConnectedAddress(ctx context.Context, userID string) (string, error) {
	w, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return "", err
	}
	if w == nil {
		return "", ErrWalletNotConnected
	}
	return w.Address, nil
}
