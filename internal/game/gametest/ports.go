package gametest

import (
	"context"
	"sync"

	"memory_webapp/internal/game"
)

var _ game.Clock = (*Clock)(nil)

// Reporter запоминает отчеты, может возвращать заданную ошибку
type Reporter struct {
	mu      sync.Mutex
	Err     error
	reports []game.Summary
	Calls   chan game.Summary
}

func NewReporter() *Reporter {
	return &Reporter{Calls: make(chan game.Summary, 16)}
}

func (r *Reporter) Report(_ context.Context, s game.Summary) error {
	r.mu.Lock()
	r.reports = append(r.reports, s)
	err := r.Err
	r.mu.Unlock()

	select {
	case r.Calls <- s:
	default:
	}
	return err
}

// Reports копия полученных отчетов
func (r *Reporter) Reports() []game.Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]game.Summary(nil), r.reports...)
}

// Audio записывает проигранные подсказки
type Audio struct {
	mu   sync.Mutex
	cues []game.Cue
}

func (a *Audio) Play(c game.Cue) {
	a.mu.Lock()
	a.cues = append(a.cues, c)
	a.mu.Unlock()
}

func (a *Audio) Cues() []game.Cue {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]game.Cue(nil), a.cues...)
}

// Identity перемешивание без перестановок, позиция i = i-я карта определений
func Identity(defs []game.Card) game.Deck {
	return game.GenerateWith(defs, func(n int) int { return n - 1 })
}

// Recorder собирает события движка
type Recorder struct {
	mu      sync.Mutex
	notices []game.Notice
}

func (r *Recorder) Record(n game.Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

func (r *Recorder) Kinds() []game.NoticeKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]game.NoticeKind, len(r.notices))
	for i, n := range r.notices {
		kinds[i] = n.Kind
	}
	return kinds
}

func (r *Recorder) Count(kind game.NoticeKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, x := range r.notices {
		if x.Kind == kind {
			n++
		}
	}
	return n
}

func (r *Recorder) Last() (game.Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return game.Notice{}, false
	}
	return r.notices[len(r.notices)-1], true
}
