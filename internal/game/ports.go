package game

import (
	"context"
	"time"
)

// Summary итог завершенного раунда, в таком виде уходит на /api/memory/save
type Summary struct {
	UserID     string    `json:"userID"`
	GameDate   time.Time `json:"gameDate"`
	Failed     int       `json:"failed"`
	Difficulty string    `json:"difficulty"`
	Completed  int       `json:"completed"`
	TimeTaken  int       `json:"timeTaken"`
}

// Reporter сохраняет итог раунда. Ошибка только логируется
type Reporter interface {
	Report(ctx context.Context, s Summary) error
}

// ReporterFunc адаптер функции к Reporter
type ReporterFunc func(ctx context.Context, s Summary) error

func (f ReporterFunc) Report(ctx context.Context, s Summary) error {
	return f(ctx, s)
}

// Cue звуковая подсказка
type Cue string

const (
	CueMatch    Cue = "match"
	CueCongrats Cue = "congrats"
)

// AudioPort проигрывает подсказки, сам движок звук не знает
type AudioPort interface {
	Play(cue Cue)
}

type silentAudio struct{}

func (silentAudio) Play(Cue) {}
