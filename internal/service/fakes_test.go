package service

import (
	"context"
	"errors"
	"sync"

	"memory_webapp/internal/domain"
)

type fakeResultStore struct {
	mu     sync.Mutex
	err    error
	saved  []*domain.MemoryResult
	audits []*domain.AuditLog
	board  []domain.LeaderboardEntry
	boardN int
}

func (f *fakeResultStore) Save(_ context.Context, res *domain.MemoryResult, audit *domain.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	res.ID = int64(len(f.saved) + 1)
	f.saved = append(f.saved, res)
	f.audits = append(f.audits, audit)
	return nil
}

func (f *fakeResultStore) ListByUser(_ context.Context, userID string, limit int) ([]*domain.MemoryResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.MemoryResult
	for _, r := range f.saved {
		if r.UserID == userID && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeResultStore) Leaderboard(_ context.Context, _ string, _ int) ([]domain.LeaderboardEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.boardN++
	return f.board, nil
}

type fakeBoard struct {
	mu       sync.Mutex
	recorded []*domain.MemoryResult
	top      []domain.LeaderboardEntry
	topErr   error
	filled   []domain.LeaderboardEntry
}

func (f *fakeBoard) Record(_ context.Context, res *domain.MemoryResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, res)
	return nil
}

func (f *fakeBoard) Top(_ context.Context, _ string, _ int) ([]domain.LeaderboardEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.top, f.topErr
}

func (f *fakeBoard) Fill(_ context.Context, entries []domain.LeaderboardEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filled = entries
	return nil
}

type fakeAuditStore struct {
	mu   sync.Mutex
	logs []*domain.AuditLog
}

func (f *fakeAuditStore) Create(_ context.Context, log *domain.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, log)
	return nil
}

func (f *fakeAuditStore) GetByUserID(_ context.Context, userID string, limit int) ([]*domain.AuditLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.AuditLog
	for _, l := range f.logs {
		if l.UserID == userID && len(out) < limit {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeAuditStore) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.logs))
	for i, l := range f.logs {
		out[i] = l.Action
	}
	return out
}

type fakeWalletStore struct {
	mu      sync.Mutex
	wallets map[string]*domain.Wallet
}

func newFakeWalletStore() *fakeWalletStore {
	return &fakeWalletStore{wallets: make(map[string]*domain.Wallet)}
}

func (f *fakeWalletStore) GetByUserID(_ context.Context, userID string) (*domain.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.wallets[userID], nil
}

func (f *fakeWalletStore) Link(_ context.Context, w *domain.Wallet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if w.UserID == "" {
		return errors.New("empty user")
	}
	f.wallets[w.UserID] = w
	return nil
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs map[string][]RoundEvent
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{msgs: make(map[string][]RoundEvent)}
}

func (p *fakePublisher) Publish(userID string, msg interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ev, ok := msg.(RoundEvent); ok {
		p.msgs[userID] = append(p.msgs[userID], ev)
	}
}

func (p *fakePublisher) types(userID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.msgs[userID]))
	for _, m := range p.msgs[userID] {
		out = append(out, m.Type)
	}
	return out
}

func (p *fakePublisher) events(userID string) []RoundEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]RoundEvent(nil), p.msgs[userID]...)
}
