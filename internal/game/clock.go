package game

import "time"

// Stopper отменяет запланированный вызов
type Stopper interface {
	Stop() bool
}

// Clock дает время и отложенные вызовы, в тестах подменяется ручными часами
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Stopper
}

// SystemClock работает на стандартных таймерах
var SystemClock Clock = systemClock{}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) AfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}
