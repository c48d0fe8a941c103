package game_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memory_webapp/internal/game"
	"memory_webapp/internal/game/gametest"
)

var meteorComet = []game.Card{
	{ID: 1, ImageKey: "meteor"},
	{ID: 2, ImageKey: "meteor"},
	{ID: 3, ImageKey: "comet"},
	{ID: 4, ImageKey: "comet"},
}

type fixture struct {
	clock    *gametest.Clock
	reporter *gametest.Reporter
	audio    *gametest.Audio
	rec      *gametest.Recorder
	engine   *game.Engine
}

func newFixture(t *testing.T, identity string) *fixture {
	t.Helper()
	f := &fixture{
		clock:    gametest.NewClock(),
		reporter: gametest.NewReporter(),
		audio:    &gametest.Audio{},
		rec:      &gametest.Recorder{},
	}
	cfg := game.DefaultConfig()
	cfg.Identity = identity
	f.engine = game.NewEngine(cfg,
		game.WithClock(f.clock),
		game.WithReporter(f.reporter),
		game.WithAudio(f.audio),
		game.WithShuffle(gametest.Identity),
	)
	f.engine.Subscribe(f.rec.Record)
	return f
}

// ждет окончания показа и блокировки ввода
func (f *fixture) startPlayable(t *testing.T) {
	t.Helper()
	require.NoError(t, f.engine.StartNewRound(meteorComet))
	f.clock.Advance(game.DefaultInputLock)
	s := f.engine.Snapshot()
	require.Equal(t, game.PhaseAwaitingFirstFlip, s.Phase)
	require.False(t, s.InputLocked)
}

// позиция карты с данным id
func posOf(t *testing.T, e *game.Engine, id int) int {
	t.Helper()
	for i, c := range e.Snapshot().Deck {
		if c.ID == id {
			return i
		}
	}
	t.Fatalf("card %d not in deck", id)
	return -1
}

func (f *fixture) flipIDs(t *testing.T, a, b int) {
	t.Helper()
	require.True(t, f.engine.Flip(posOf(t, f.engine, a)))
	require.True(t, f.engine.Flip(posOf(t, f.engine, b)))
}

func TestEngineStartRound(t *testing.T) {
	f := newFixture(t, "user-1")
	require.NoError(t, f.engine.StartNewRound(meteorComet))

	s := f.engine.Snapshot()
	assert.Equal(t, game.PhaseInitialReveal, s.Phase)
	assert.True(t, s.InputLocked)
	assert.Equal(t, []game.NoticeKind{game.NoticeRoundStarted}, f.rec.Kinds())

	assert.False(t, f.engine.Flip(0))

	// показ 1.5с, блокировка 2с
	f.clock.Advance(game.DefaultPeekDuration)
	s = f.engine.Snapshot()
	assert.Equal(t, game.PhaseAwaitingFirstFlip, s.Phase)
	assert.True(t, s.InputLocked)
	assert.False(t, f.engine.Flip(0))

	f.clock.Advance(game.DefaultInputLock - game.DefaultPeekDuration)
	assert.False(t, f.engine.Snapshot().InputLocked)
	assert.True(t, f.engine.Flip(0))
}

func TestEngineRejectsBadDefinitions(t *testing.T) {
	f := newFixture(t, "user-1")
	err := f.engine.StartNewRound([]game.Card{{ID: 1, ImageKey: "meteor"}})
	assert.ErrorIs(t, err, game.ErrInvalidDefinitions)
	assert.Equal(t, game.PhaseIdle, f.engine.Snapshot().Phase)
}

func TestEngineMeteorCometScenario(t *testing.T) {
	f := newFixture(t, "user-1")
	f.startPlayable(t)

	f.flipIDs(t, 1, 2)
	f.clock.Advance(game.DefaultResolveDelay)

	s := f.engine.Snapshot()
	assert.Equal(t, []int{1, 2}, s.MatchedIDs())
	assert.Zero(t, s.FailedAttempts)
	assert.Equal(t, game.PhaseAwaitingFirstFlip, s.Phase)

	f.flipIDs(t, 3, 4)
	f.clock.Advance(game.DefaultResolveDelay)

	s = f.engine.Snapshot()
	assert.Len(t, s.Matched, 4)
	assert.Equal(t, game.PhaseCompleted, s.Phase)
	assert.Equal(t, 1, f.rec.Count(game.NoticeRoundCompleted))

	f.engine.Wait()
	reports := f.reporter.Reports()
	require.Len(t, reports, 1)
	assert.Equal(t, "user-1", reports[0].UserID)
	assert.Equal(t, 1, reports[0].Completed)
	assert.Equal(t, 0, reports[0].Failed)
	assert.Equal(t, "Easy", reports[0].Difficulty)
	// 2с блокировки + 2 разрешения по 1с
	assert.Equal(t, 4, reports[0].TimeTaken)
	assert.Equal(t, f.clock.Now(), reports[0].GameDate)

	last, ok := f.rec.Last()
	require.True(t, ok)
	require.NotNil(t, last.Summary)
	assert.Equal(t, reports[0], *last.Summary)

	assert.Equal(t, []game.Cue{game.CueMatch, game.CueCongrats}, f.audio.Cues())
}

func TestEngineMismatchScenario(t *testing.T) {
	f := newFixture(t, "user-1")
	f.startPlayable(t)

	f.flipIDs(t, 1, 3)
	assert.Equal(t, game.PhaseResolving, f.engine.Snapshot().Phase)

	// до истечения задержки ничего не решено
	f.clock.Advance(game.DefaultResolveDelay / 2)
	assert.Equal(t, game.PhaseResolving, f.engine.Snapshot().Phase)

	f.clock.Advance(game.DefaultResolveDelay / 2)
	s := f.engine.Snapshot()
	assert.Equal(t, 1, s.FailedAttempts)
	assert.Empty(t, s.Flipped)
	assert.Empty(t, s.Matched)
	assert.Equal(t, game.PhaseAwaitingFirstFlip, s.Phase)
	assert.Equal(t, 1, f.rec.Count(game.NoticePairMismatched))
}

func TestEngineFlipIdempotent(t *testing.T) {
	f := newFixture(t, "user-1")
	f.startPlayable(t)

	assert.True(t, f.engine.Flip(0))
	assert.False(t, f.engine.Flip(0))
	assert.Len(t, f.engine.Snapshot().Flipped, 1)
}

func TestEngineResolvingAbsorbsFlips(t *testing.T) {
	f := newFixture(t, "user-1")
	f.startPlayable(t)
	f.flipIDs(t, 1, 3)

	before := f.engine.Snapshot()
	for pos := -1; pos < 5; pos++ {
		assert.False(t, f.engine.Flip(pos))
	}
	assert.Equal(t, before, f.engine.Snapshot())
}

func TestEngineTimerFrozenAfterCompletion(t *testing.T) {
	f := newFixture(t, "user-1")
	f.startPlayable(t)

	f.clock.Advance(5 * time.Second)
	assert.Equal(t, 7, f.engine.Snapshot().ElapsedSeconds)

	f.flipIDs(t, 1, 2)
	f.clock.Advance(time.Second)
	f.flipIDs(t, 3, 4)
	f.clock.Advance(time.Second)
	require.Equal(t, game.PhaseCompleted, f.engine.Snapshot().Phase)

	frozen := f.engine.Snapshot().ElapsedSeconds
	assert.Equal(t, 9, frozen)

	f.clock.Advance(30 * time.Second)
	assert.Equal(t, frozen, f.engine.Snapshot().ElapsedSeconds)
	assert.Equal(t, frozen, f.engine.Elapsed())
}

func TestEngineNewRoundCancelsPendingResolve(t *testing.T) {
	f := newFixture(t, "user-1")
	f.startPlayable(t)
	f.flipIDs(t, 1, 3)

	// новый раунд до срабатывания сравнения
	require.NoError(t, f.engine.StartNewRound(meteorComet))
	f.clock.Advance(game.DefaultResolveDelay)

	s := f.engine.Snapshot()
	assert.Zero(t, s.FailedAttempts)
	assert.Empty(t, s.Flipped)
	assert.Equal(t, game.PhaseInitialReveal, s.Phase)
	assert.Zero(t, f.rec.Count(game.NoticePairMismatched))
}

func TestEngineNewRoundCancelsPendingReveal(t *testing.T) {
	f := newFixture(t, "user-1")
	require.NoError(t, f.engine.StartNewRound(meteorComet))
	f.clock.Advance(time.Second)

	require.NoError(t, f.engine.StartNewRound(meteorComet))

	// колбэки первого раунда сработали бы через 0.5с и 1с
	f.clock.Advance(time.Second)
	s := f.engine.Snapshot()
	assert.Equal(t, game.PhaseInitialReveal, s.Phase)
	assert.True(t, s.InputLocked)
	assert.Equal(t, 1, s.ElapsedSeconds)

	f.clock.Advance(time.Second)
	s = f.engine.Snapshot()
	assert.Equal(t, game.PhaseAwaitingFirstFlip, s.Phase)
	assert.False(t, s.InputLocked)
}

func TestEngineCompletionOncePerRound(t *testing.T) {
	f := newFixture(t, "user-1")

	for round := 1; round <= 2; round++ {
		f.startPlayable(t)
		f.flipIDs(t, 1, 2)
		f.clock.Advance(time.Second)
		f.flipIDs(t, 3, 4)
		f.clock.Advance(time.Second)

		for i := 0; i < 4; i++ {
			assert.False(t, f.engine.Flip(i))
		}
		f.clock.Advance(10 * time.Second)
		assert.Equal(t, round, f.rec.Count(game.NoticeRoundCompleted))
	}

	f.engine.Wait()
	assert.Len(t, f.reporter.Reports(), 2)
}

func TestEngineReporterFailureDoesNotBlock(t *testing.T) {
	f := newFixture(t, "user-1")
	f.reporter.Err = errors.New("connection refused")
	f.startPlayable(t)

	f.flipIDs(t, 1, 2)
	f.clock.Advance(time.Second)
	f.flipIDs(t, 3, 4)
	f.clock.Advance(time.Second)

	assert.Equal(t, game.PhaseCompleted, f.engine.Snapshot().Phase)
	f.engine.Wait()
	assert.Len(t, f.reporter.Reports(), 1)
}

func TestEngineWithoutIdentitySkipsReport(t *testing.T) {
	f := newFixture(t, "")
	f.startPlayable(t)

	f.flipIDs(t, 1, 2)
	f.clock.Advance(time.Second)
	f.flipIDs(t, 3, 4)
	f.clock.Advance(time.Second)

	assert.Equal(t, game.PhaseCompleted, f.engine.Snapshot().Phase)
	assert.Equal(t, 1, f.rec.Count(game.NoticeRoundCompleted))
	f.engine.Wait()
	assert.Empty(t, f.reporter.Reports())
}

func TestEngineCloseStopsEverything(t *testing.T) {
	f := newFixture(t, "user-1")
	f.startPlayable(t)
	f.flipIDs(t, 1, 3)

	f.engine.Close()
	f.clock.Advance(time.Minute)

	s := f.engine.Snapshot()
	assert.Equal(t, game.PhaseResolving, s.Phase)
	assert.Equal(t, 2, s.ElapsedSeconds)
	assert.False(t, f.engine.Flip(0))
	assert.Zero(t, f.clock.Pending())
}

func TestEngineClosedCannotRestart(t *testing.T) {
	f := newFixture(t, "user-1")
	require.NoError(t, f.engine.StartNewRound(meteorComet))

	f.engine.Close()
	err := f.engine.StartNewRound(meteorComet)
	assert.ErrorIs(t, err, game.ErrEngineClosed)

	f.clock.Advance(time.Minute)
	assert.Zero(t, f.clock.Pending())
	assert.False(t, f.engine.Flip(0))
	assert.Equal(t, 1, f.rec.Count(game.NoticeRoundStarted))
}

func TestEngineConfigurableDelays(t *testing.T) {
	clock := gametest.NewClock()
	cfg := game.DefaultConfig()
	cfg.PeekDuration = 3 * time.Second
	cfg.InputLock = 500 * time.Millisecond
	e := game.NewEngine(cfg, game.WithClock(clock), game.WithShuffle(gametest.Identity))

	require.NoError(t, e.StartNewRound(meteorComet))
	clock.Advance(time.Second)
	assert.False(t, e.Snapshot().InputLocked)
	assert.False(t, e.Flip(0))

	clock.Advance(2 * time.Second)
	assert.True(t, e.Flip(0))
}

func TestEngineStateHidesClosedCards(t *testing.T) {
	f := newFixture(t, "user-1")
	f.startPlayable(t)
	require.True(t, f.engine.Flip(0))

	state := f.engine.State()
	cards := state["cards"].([]map[string]interface{})
	require.Len(t, cards, 4)
	assert.Equal(t, "meteor", cards[0]["image_key"])
	assert.NotContains(t, cards[1], "image_key")
	assert.Equal(t, game.PhaseAwaitingSecondFlip, state["phase"])
}
