package game

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"memory_webapp/internal/logger"
)

const (
	DefaultPeekDuration  = 1500 * time.Millisecond
	DefaultInputLock     = 2 * time.Second
	DefaultResolveDelay  = time.Second
	DefaultTickInterval  = time.Second
	DefaultReportTimeout = 10 * time.Second
)

// Config параметры раунда. Peek и InputLock независимы друг от друга
type Config struct {
	Identity      string
	Difficulty    string
	PeekDuration  time.Duration
	InputLock     time.Duration
	ResolveDelay  time.Duration
	TickInterval  time.Duration
	ReportTimeout time.Duration
	MatchCues     int // сколько первых совпадений сопровождаются звуком
}

// DefaultConfig значения как во фронтенде
func DefaultConfig() Config {
	return Config{
		Difficulty:    string(DifficultyEasy),
		PeekDuration:  DefaultPeekDuration,
		InputLock:     DefaultInputLock,
		ResolveDelay:  DefaultResolveDelay,
		TickInterval:  DefaultTickInterval,
		ReportTimeout: DefaultReportTimeout,
		MatchCues:     1,
	}
}

// ErrEngineClosed движок закрыт, новый раунд на нем не начать
var ErrEngineClosed = errors.New("engine closed")

type Option func(*Engine)

func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

func WithReporter(r Reporter) Option {
	return func(e *Engine) { e.reporter = r }
}

func WithAudio(a AudioPort) Option {
	return func(e *Engine) { e.audio = a }
}

// WithShuffle подменяет генератор колоды
func WithShuffle(fn func([]Card) Deck) Option {
	return func(e *Engine) { e.shuffle = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// Engine ведет раунды одного игрока. Все изменения сессии идут под одним
// мьютексом, отложенные вызовы помечены поколением раунда
type Engine struct {
	cfg      Config
	clock    Clock
	reporter Reporter
	audio    AudioPort
	shuffle  func([]Card) Deck
	log      *slog.Logger
	timer    *Timer

	mu         sync.Mutex
	session    Session
	gen        uint64
	tasks      map[uint64]Stopper
	taskSeq    uint64
	cuesPlayed int
	closed     bool

	// порядок доставки событий совпадает с порядком переходов
	dispatchMu sync.Mutex
	subsMu     sync.RWMutex
	subs       map[int]func(Notice)
	subSeq     int

	reports sync.WaitGroup
}

// NewEngine создает движок в фазе idle
func NewEngine(cfg Config, opts ...Option) *Engine {
	def := DefaultConfig()
	if cfg.PeekDuration <= 0 {
		cfg.PeekDuration = def.PeekDuration
	}
	if cfg.InputLock <= 0 {
		cfg.InputLock = def.InputLock
	}
	if cfg.ResolveDelay <= 0 {
		cfg.ResolveDelay = def.ResolveDelay
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = def.TickInterval
	}
	if cfg.ReportTimeout <= 0 {
		cfg.ReportTimeout = def.ReportTimeout
	}
	if cfg.Difficulty == "" {
		cfg.Difficulty = def.Difficulty
	}

	e := &Engine{
		cfg:     cfg,
		clock:   SystemClock,
		audio:   silentAudio{},
		shuffle: Generate,
		session: Session{Phase: PhaseIdle, Matched: map[int]struct{}{}},
		tasks:   make(map[uint64]Stopper),
		subs:    make(map[int]func(Notice)),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.With("component", "memory_engine", "user_id", cfg.Identity)
	}
	e.timer = NewTimer(e.clock, cfg.TickInterval, func(int) { e.onTick() })
	return e
}

// Config возвращает параметры движка
func (e *Engine) Config() Config {
	return e.cfg
}

// StartNewRound начинает новый раунд, отменяя все отложенное от предыдущего
func (e *Engine) StartNewRound(defs []Card) error {
	if err := ValidateDefinitions(defs); err != nil {
		return err
	}
	deck := e.shuffle(defs)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}
	e.gen++
	e.cancelTasksLocked()
	e.timer.Stop()
	e.timer.Reset()
	e.cuesPlayed = 0

	var notices []Notice
	e.session, notices = Transition(e.session, Event{Kind: EventStart, Deck: deck})
	e.timer.Start()
	e.scheduleLocked(e.cfg.PeekDuration, EventRevealEnded)
	e.scheduleLocked(e.cfg.InputLock, EventInputUnlocked)

	e.log.Debug("round started", "cards", len(deck), "generation", e.gen)
	e.dispatchLocked(notices)
	return nil
}

// Flip переворачивает карту. false - ввод проигнорирован
func (e *Engine) Flip(pos int) bool {
	e.mu.Lock()
	if e.closed || !e.session.CanFlip(pos) {
		e.mu.Unlock()
		return false
	}

	var notices []Notice
	e.session, notices = Transition(e.session, Event{Kind: EventFlip, Position: pos})
	if e.session.Phase == PhaseResolving {
		e.scheduleLocked(e.cfg.ResolveDelay, EventResolve)
	}
	e.dispatchLocked(notices)
	return true
}

// Snapshot копия текущей сессии
func (e *Engine) Snapshot() Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.clone()
}

// Elapsed текущее значение таймера
func (e *Engine) Elapsed() int {
	return e.timer.Elapsed()
}

// Subscribe подписывает fn на события. fn не должен синхронно вызывать методы движка
func (e *Engine) Subscribe(fn func(Notice)) (unsubscribe func()) {
	e.subsMu.Lock()
	id := e.subSeq
	e.subSeq++
	e.subs[id] = fn
	e.subsMu.Unlock()

	return func() {
		e.subsMu.Lock()
		delete(e.subs, id)
		e.subsMu.Unlock()
	}
}

// Close останавливает раунд: таймер и все отложенные вызовы.
// Закрытый движок больше не запускается
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.gen++
	e.closed = true
	e.cancelTasksLocked()
	e.timer.Stop()
}

// Wait ждет завершения отправленных отчетов
func (e *Engine) Wait() {
	e.reports.Wait()
}

// State состояние для клиента, картинки закрытых карт не раскрываются
func (e *Engine) State() map[string]interface{} {
	s := e.Snapshot()

	cards := make([]map[string]interface{}, len(s.Deck))
	for i, c := range s.Deck {
		card := map[string]interface{}{
			"position": i,
			"face_up":  s.FaceUp(i),
			"matched":  s.IsMatched(c.ID),
		}
		if s.FaceUp(i) {
			card["id"] = c.ID
			card["image_key"] = c.ImageKey
		}
		cards[i] = card
	}

	return map[string]interface{}{
		"phase":           s.Phase,
		"input_locked":    s.InputLocked,
		"cards":           cards,
		"flipped":         s.Flipped,
		"matched":         s.MatchedIDs(),
		"failed_attempts": s.FailedAttempts,
		"elapsed_seconds": s.ElapsedSeconds,
		"difficulty":      e.cfg.Difficulty,
	}
}

func (e *Engine) onTick() {
	e.mu.Lock()
	// значение берется из таймера: тик прошлого раунда после Reset ничего не сдвинет
	var notices []Notice
	e.session, notices = Transition(e.session, Event{Kind: EventTick, Elapsed: e.timer.Elapsed()})
	e.dispatchLocked(notices)
}

// вызывается под e.mu
func (e *Engine) scheduleLocked(d time.Duration, kind EventKind) {
	gen := e.gen
	e.taskSeq++
	id := e.taskSeq
	e.tasks[id] = e.clock.AfterFunc(d, func() { e.fire(gen, id, kind) })
}

func (e *Engine) cancelTasksLocked() {
	for id, t := range e.tasks {
		t.Stop()
		delete(e.tasks, id)
	}
}

func (e *Engine) fire(gen, id uint64, kind EventKind) {
	e.mu.Lock()
	if gen != e.gen {
		// вызов от прошлого раунда
		e.mu.Unlock()
		return
	}
	delete(e.tasks, id)

	if kind == EventResolve {
		e.session, _ = Transition(e.session, Event{Kind: EventTick, Elapsed: e.timer.Elapsed()})
	}

	var notices []Notice
	e.session, notices = Transition(e.session, Event{Kind: kind})
	for i := range notices {
		e.react(&notices[i])
	}
	e.dispatchLocked(notices)
}

// вызывается под e.mu
func (e *Engine) react(n *Notice) {
	switch n.Kind {
	case NoticePairMatched:
		if e.cuesPlayed < e.cfg.MatchCues {
			e.cuesPlayed++
			e.audio.Play(CueMatch)
		}
	case NoticePairMismatched:
		e.log.Debug("pair mismatched", "failed_attempts", e.session.FailedAttempts)
	case NoticeRoundCompleted:
		e.timer.Stop()
		if elapsed := e.timer.Elapsed(); elapsed > e.session.ElapsedSeconds {
			e.session.ElapsedSeconds = elapsed
		}
		summary := Summary{
			UserID:     e.cfg.Identity,
			GameDate:   e.clock.Now().UTC(),
			Failed:     e.session.FailedAttempts,
			Difficulty: e.cfg.Difficulty,
			Completed:  1,
			TimeTaken:  e.session.ElapsedSeconds,
		}
		n.Summary = &summary
		e.audio.Play(CueCongrats)
		e.log.Info("round completed", "failed", summary.Failed, "time_taken", summary.TimeTaken)
		e.report(summary)
	}
}

// отчет уходит асинхронно, его результат на раунд не влияет
func (e *Engine) report(s Summary) {
	if e.reporter == nil {
		return
	}
	if s.UserID == "" {
		e.log.Warn("no identity for round, result not saved")
		return
	}

	e.reports.Add(1)
	go func() {
		defer e.reports.Done()
		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.ReportTimeout)
		defer cancel()
		if err := e.reporter.Report(ctx, s); err != nil {
			e.log.Error("failed to save round result", "error", err)
		}
	}()
}

// снимает e.mu и доставляет события подписчикам по порядку
func (e *Engine) dispatchLocked(notices []Notice) {
	if len(notices) == 0 {
		e.mu.Unlock()
		return
	}
	e.dispatchMu.Lock()
	e.mu.Unlock()
	defer e.dispatchMu.Unlock()

	e.subsMu.RLock()
	subs := make([]func(Notice), 0, len(e.subs))
	for _, fn := range e.subs {
		subs = append(subs, fn)
	}
	e.subsMu.RUnlock()

	for _, n := range notices {
		for _, fn := range subs {
			fn(n)
		}
	}
}
