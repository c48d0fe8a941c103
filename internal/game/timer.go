package game

import (
	"sync"
	"time"
)

// Timer считает секунды раунда. Одновременно работает не больше одного потока тиков
type Timer struct {
	clock    Clock
	interval time.Duration
	onTick   func(elapsed int)

	mu      sync.Mutex
	elapsed int
	running bool
	gen     uint64
	next    Stopper
}

// NewTimer создает остановленный таймер с нулевым значением
func NewTimer(clock Clock, interval time.Duration, onTick func(elapsed int)) *Timer {
	if clock == nil {
		clock = SystemClock
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Timer{
		clock:    clock,
		interval: interval,
		onTick:   onTick,
	}
}

// Start запускает отсчет; если уже идет - ничего не делает
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return
	}
	t.running = true
	t.gen++
	t.schedule(t.gen)
}

// Stop останавливает отсчет, значение сохраняется до Reset
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return
	}
	t.running = false
	t.gen++
	if t.next != nil {
		t.next.Stop()
		t.next = nil
	}
}

// Reset обнуляет значение, состояние running не меняется
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.elapsed = 0
	if t.running {
		// новый отсчет секунды с момента сброса
		t.gen++
		if t.next != nil {
			t.next.Stop()
		}
		t.schedule(t.gen)
	}
}

// Elapsed возвращает прошедшие секунды
func (t *Timer) Elapsed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.elapsed
}

// Running идет ли отсчет
func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// вызывается под t.mu
func (t *Timer) schedule(gen uint64) {
	t.next = t.clock.AfterFunc(t.interval, func() { t.tick(gen) })
}

func (t *Timer) tick(gen uint64) {
	t.mu.Lock()
	if !t.running || gen != t.gen {
		// тик от старого потока
		t.mu.Unlock()
		return
	}
	t.elapsed++
	elapsed := t.elapsed
	t.schedule(gen)
	onTick := t.onTick
	t.mu.Unlock()

	if onTick != nil {
		onTick(elapsed)
	}
}
