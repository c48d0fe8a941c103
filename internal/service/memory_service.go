package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"memory_webapp/internal/domain"
	"memory_webapp/internal/game"
	"memory_webapp/internal/logger"
	"memory_webapp/internal/metrics"

	"github.com/google/uuid"
)

var (
	ErrNoActiveRound     = errors.New("no active round")
	ErrUnknownDifficulty = errors.New("unknown difficulty")
	ErrRoundReplaced     = errors.New("round replaced by a newer start")
)

// Publisher доставляет события раунда клиентам игрока. Не должен блокироваться
type Publisher interface {
	Publish(userID string, msg interface{})
}

// RoundEvent сообщение клиенту о событии раунда
type RoundEvent struct {
	Type    string        `json:"type"`
	RoundID string        `json:"round_id"`
	IDs     []int         `json:"ids,omitempty"`
	Summary *game.Summary `json:"summary,omitempty"`
	Cue     game.Cue      `json:"cue,omitempty"`
}

// MemoryOptions зависимости и настройки MemoryService
type MemoryOptions struct {
	Engine        game.Config // задержки раунда, Identity и Difficulty заполняются сервисом
	Reporter      game.Reporter
	Wallets       WalletPort
	RequireWallet bool
	Audit         *AuditService
	Publisher     Publisher
	Clock         game.Clock
	Shuffle       func([]game.Card) game.Deck
	IdleTimeout   time.Duration // раунды без активности дольше этого удаляются
	CleanupEvery  time.Duration // 0 - фоновая очистка выключена
}

type activeRound struct {
	idMu sync.Mutex
	id   string

	Engine     *game.Engine
	Difficulty game.Difficulty
	StartedAt  time.Time
	LastSeen   time.Time

	unsubscribe func()
}

// id читается подписчиком движка, поэтому под своим мьютексом, а не s.mu
func (r *activeRound) ID() string {
	r.idMu.Lock()
	defer r.idMu.Unlock()
	return r.id
}

func (r *activeRound) setID(id string) {
	r.idMu.Lock()
	r.id = id
	r.idMu.Unlock()
}

// MemoryService держит по одному движку на игрока
type MemoryService struct {
	opts MemoryOptions
	log  *slog.Logger

	mu     sync.Mutex
	rounds map[string]*activeRound // userID -> раунд

	bg   sync.WaitGroup
	stop chan struct{}
	once sync.Once
}

func NewMemoryService(opts MemoryOptions) *MemoryService {
	if opts.Clock == nil {
		opts.Clock = game.SystemClock
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = time.Hour
	}

	s := &MemoryService{
		opts:   opts,
		log:    logger.Component("memory_service"),
		rounds: make(map[string]*activeRound),
		stop:   make(chan struct{}),
	}

	// горутина очистки заброшенных раундов
	if opts.CleanupEvery > 0 {
		s.bg.Add(1)
		go s.cleanupLoop(opts.CleanupEvery)
	}
	return s
}

// StartRound начинает новый раунд игрока. Движок переиспользуется,
// если сложность не изменилась
func (s *MemoryService) StartRound(ctx context.Context, userID, difficulty string) (string, map[string]interface{}, error) {
	d, ok := game.ParseDifficulty(difficulty)
	if !ok {
		return "", nil, ErrUnknownDifficulty
	}
	defs, err := game.Definitions(d)
	if err != nil {
		return "", nil, err
	}

	if s.opts.RequireWallet && s.opts.Wallets != nil {
		if _, err := s.opts.Wallets.ConnectedAddress(ctx, userID); err != nil {
			return "", nil, err
		}
	}

	s.mu.Lock()
	r, ok := s.rounds[userID]
	if ok && r.Difficulty != d {
		s.dropLocked(userID, r)
		ok = false
	}
	if !ok {
		r = s.newRoundLocked(userID, d)
	}
	roundID := uuid.New().String()
	r.setID(roundID)
	r.StartedAt = s.opts.Clock.Now()
	r.LastSeen = r.StartedAt
	engine := r.Engine
	s.mu.Unlock()

	if err := engine.StartNewRound(defs); err != nil {
		if errors.Is(err, game.ErrEngineClosed) {
			// параллельный StartRound с другой сложностью закрыл этот движок
			return "", nil, ErrRoundReplaced
		}
		return "", nil, err
	}
	if !s.owns(userID, r, roundID) {
		return "", nil, ErrRoundReplaced
	}

	metrics.RoundsStarted.WithLabelValues(string(d)).Inc()
	s.opts.Audit.LogRoundStart(ctx, userID, roundID, string(d))
	s.log.Info("round started", "user_id", userID, "round_id", roundID, "difficulty", d)

	return roundID, s.state(roundID, engine), nil
}

// Flip переворачивает карту в активном раунде игрока
func (s *MemoryService) Flip(ctx context.Context, userID string, position int) (bool, map[string]interface{}, error) {
	r, err := s.touch(userID)
	if err != nil {
		return false, nil, err
	}

	accepted := r.Engine.Flip(position)
	if accepted {
		metrics.Flips.WithLabelValues("accepted").Inc()
	} else {
		metrics.Flips.WithLabelValues("ignored").Inc()
	}
	return accepted, s.state(r.ID(), r.Engine), nil
}

// State состояние активного раунда
func (s *MemoryService) State(ctx context.Context, userID string) (map[string]interface{}, error) {
	r, err := s.touch(userID)
	if err != nil {
		return nil, err
	}
	return s.state(r.ID(), r.Engine), nil
}

// EndRound останавливает и удаляет раунд игрока
func (s *MemoryService) EndRound(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rounds[userID]
	if !ok {
		return ErrNoActiveRound
	}
	s.dropLocked(userID, r)
	return nil
}

// ActiveRounds число движков в памяти
func (s *MemoryService) ActiveRounds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rounds)
}

// CleanupIdle удаляет раунды без активности дольше IdleTimeout
func (s *MemoryService) CleanupIdle() int {
	now := s.opts.Clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for userID, r := range s.rounds {
		if now.Sub(r.LastSeen) > s.opts.IdleTimeout {
			s.dropLocked(userID, r)
			removed++
		}
	}
	if removed > 0 {
		s.log.Info("idle rounds removed", "count", removed)
	}
	return removed
}

// Shutdown останавливает все раунды и ждет отправки итогов
func (s *MemoryService) Shutdown(ctx context.Context) error {
	s.once.Do(func() { close(s.stop) })

	s.mu.Lock()
	engines := make([]*game.Engine, 0, len(s.rounds))
	for userID, r := range s.rounds {
		engines = append(engines, r.Engine)
		s.dropLocked(userID, r)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		for _, e := range engines {
			e.Wait()
		}
		s.bg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// раунд все еще текущий у игрока и не перезапущен другим вызовом
func (s *MemoryService) owns(userID string, r *activeRound, roundID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rounds[userID] == r && r.ID() == roundID
}

func (s *MemoryService) touch(userID string) (*activeRound, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rounds[userID]
	if !ok {
		return nil, ErrNoActiveRound
	}
	r.LastSeen = s.opts.Clock.Now()
	return r, nil
}

func (s *MemoryService) state(roundID string, e *game.Engine) map[string]interface{} {
	st := e.State()
	st["round_id"] = roundID
	return st
}

// вызывается под s.mu
func (s *MemoryService) newRoundLocked(userID string, d game.Difficulty) *activeRound {
	cfg := s.opts.Engine
	cfg.Identity = userID
	cfg.Difficulty = string(d)

	engineOpts := []game.Option{game.WithClock(s.opts.Clock)}
	if s.opts.Reporter != nil {
		engineOpts = append(engineOpts, game.WithReporter(s.opts.Reporter))
	}
	if s.opts.Shuffle != nil {
		engineOpts = append(engineOpts, game.WithShuffle(s.opts.Shuffle))
	}

	r := &activeRound{Difficulty: d}
	if s.opts.Publisher != nil {
		engineOpts = append(engineOpts, game.WithAudio(&cueAudio{userID: userID, pub: s.opts.Publisher}))
	}
	r.Engine = game.NewEngine(cfg, engineOpts...)

	// подписчик не вызывает методы движка и не берет s.mu:
	// dropLocked закрывает движок, держа s.mu
	r.unsubscribe = r.Engine.Subscribe(func(n game.Notice) {
		id := r.ID()
		if n.Kind == game.NoticeRoundCompleted {
			metrics.RoundsCompleted.WithLabelValues(string(d)).Inc()
			s.logCompletion(userID, id, n.Summary)
		}
		if s.opts.Publisher != nil {
			s.opts.Publisher.Publish(userID, RoundEvent{
				Type:    string(n.Kind),
				RoundID: id,
				IDs:     n.IDs,
				Summary: n.Summary,
			})
		}
	})

	s.rounds[userID] = r
	metrics.ActiveRounds.Inc()
	return r
}

// вызывается под s.mu
func (s *MemoryService) dropLocked(userID string, r *activeRound) {
	r.unsubscribe()
	r.Engine.Close()
	delete(s.rounds, userID)
	metrics.ActiveRounds.Dec()
}

func (s *MemoryService) logCompletion(userID, roundID string, sum *game.Summary) {
	if s.opts.Audit == nil || sum == nil {
		return
	}
	details := map[string]interface{}{
		"round_id":   roundID,
		"difficulty": sum.Difficulty,
		"failed":     sum.Failed,
		"time_taken": sum.TimeTaken,
	}

	// запись в базу вне доставки событий
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.opts.Audit.Log(ctx, userID, domain.AuditActionRoundComplete, domain.AuditCategoryGame, details)
	}()
}

func (s *MemoryService) cleanupLoop(every time.Duration) {
	defer s.bg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.CleanupIdle()
		case <-s.stop:
			return
		}
	}
}

// cueAudio отправляет звуковые подсказки клиенту, звук играет фронтенд
type cueAudio struct {
	userID string
	pub    Publisher
}

// Play вызывается движком под его мьютексом, s.mu здесь брать нельзя
func (a *cueAudio) Play(cue game.Cue) {
	a.pub.Publish(a.userID, RoundEvent{Type: "cue", Cue: cue})
}
