package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memory_webapp/internal/domain"
	"memory_webapp/internal/game"
	"memory_webapp/internal/game/gametest"
)

type memoryFixture struct {
	clock    *gametest.Clock
	reporter *gametest.Reporter
	pub      *fakePublisher
	audit    *fakeAuditStore
	wallets  *fakeWalletStore
	svc      *MemoryService
}

func newMemoryFixture(t *testing.T, requireWallet bool) *memoryFixture {
	t.Helper()
	f := &memoryFixture{
		clock:    gametest.NewClock(),
		reporter: gametest.NewReporter(),
		pub:      newFakePublisher(),
		audit:    &fakeAuditStore{},
		wallets:  newFakeWalletStore(),
	}
	f.svc = NewMemoryService(MemoryOptions{
		Engine:        game.DefaultConfig(),
		Reporter:      f.reporter,
		Wallets:       NewWalletService(f.wallets, nil),
		RequireWallet: requireWallet,
		Audit:         NewAuditService(f.audit),
		Publisher:     f.pub,
		Clock:         f.clock,
		Shuffle:       gametest.Identity,
		IdleTimeout:   10 * time.Minute,
	})
	t.Cleanup(func() { _ = f.svc.Shutdown(context.Background()) })
	return f
}

func (f *memoryFixture) flip(t *testing.T, userID string, positions ...int) {
	t.Helper()
	for _, pos := range positions {
		accepted, _, err := f.svc.Flip(context.Background(), userID, pos)
		require.NoError(t, err)
		require.True(t, accepted, "flip %d", pos)
	}
}

func withoutCues(types []string) []string {
	out := make([]string, 0, len(types))
	for _, tp := range types {
		if tp != "cue" {
			out = append(out, tp)
		}
	}
	return out
}

func TestMemoryServiceFullRound(t *testing.T) {
	f := newMemoryFixture(t, false)
	ctx := context.Background()

	roundID, state, err := f.svc.StartRound(ctx, "u1", "Easy")
	require.NoError(t, err)
	require.NotEmpty(t, roundID)
	assert.Equal(t, roundID, state["round_id"])
	assert.Equal(t, game.PhaseInitialReveal, state["phase"])

	f.clock.Advance(game.DefaultInputLock)
	f.flip(t, "u1", 0, 1)
	f.clock.Advance(game.DefaultResolveDelay)
	f.flip(t, "u1", 2, 3)
	f.clock.Advance(game.DefaultResolveDelay)

	select {
	case sum := <-f.reporter.Calls:
		assert.Equal(t, "u1", sum.UserID)
		assert.Equal(t, "Easy", sum.Difficulty)
		assert.Equal(t, 1, sum.Completed)
		assert.Equal(t, 0, sum.Failed)
		assert.Equal(t, 4, sum.TimeTaken)
	case <-time.After(2 * time.Second):
		t.Fatal("summary was not reported")
	}

	assert.Equal(t, []string{"round_started", "pair_matched", "pair_matched", "round_completed"},
		withoutCues(f.pub.types("u1")))

	var cues []game.Cue
	for _, ev := range f.pub.events("u1") {
		assert.Equal(t, roundID, ev.RoundID)
		if ev.Type == "cue" {
			cues = append(cues, ev.Cue)
		}
	}
	assert.Equal(t, []game.Cue{game.CueMatch, game.CueCongrats}, cues)

	state, err = f.svc.State(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, game.PhaseCompleted, state["phase"])

	require.NoError(t, f.svc.Shutdown(ctx))
	assert.Equal(t, []string{domain.AuditActionRoundStart, domain.AuditActionRoundComplete}, f.audit.actions())
}

func TestMemoryServiceUnknownDifficulty(t *testing.T) {
	f := newMemoryFixture(t, false)

	_, _, err := f.svc.StartRound(context.Background(), "u1", "insane")
	assert.ErrorIs(t, err, ErrUnknownDifficulty)
	assert.Zero(t, f.svc.ActiveRounds())
}

func TestMemoryServiceNoActiveRound(t *testing.T) {
	f := newMemoryFixture(t, false)
	ctx := context.Background()

	_, _, err := f.svc.Flip(ctx, "ghost", 0)
	assert.ErrorIs(t, err, ErrNoActiveRound)

	_, err = f.svc.State(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNoActiveRound)

	assert.ErrorIs(t, f.svc.EndRound(ctx, "ghost"), ErrNoActiveRound)
}

func TestMemoryServiceFlipIgnoredDuringLock(t *testing.T) {
	f := newMemoryFixture(t, false)
	ctx := context.Background()

	_, _, err := f.svc.StartRound(ctx, "u1", "")
	require.NoError(t, err)

	accepted, state, err := f.svc.Flip(ctx, "u1", 0)
	require.NoError(t, err)
	assert.False(t, accepted)
	assert.Equal(t, true, state["input_locked"])
}

func TestMemoryServiceRequiresWallet(t *testing.T) {
	f := newMemoryFixture(t, true)
	ctx := context.Background()

	_, _, err := f.svc.StartRound(ctx, "u1", "Easy")
	assert.ErrorIs(t, err, ErrWalletNotConnected)

	f.wallets.wallets["u1"] = &domain.Wallet{UserID: "u1", Address: "EQ..."}
	_, _, err = f.svc.StartRound(ctx, "u1", "Easy")
	assert.NoError(t, err)
}

func TestMemoryServiceRestartCancelsPendingResolve(t *testing.T) {
	f := newMemoryFixture(t, false)
	ctx := context.Background()

	first, _, err := f.svc.StartRound(ctx, "u1", "Easy")
	require.NoError(t, err)
	f.clock.Advance(game.DefaultInputLock)
	f.flip(t, "u1", 0, 2)

	second, _, err := f.svc.StartRound(ctx, "u1", "Easy")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Equal(t, 1, f.svc.ActiveRounds())

	f.clock.Advance(game.DefaultResolveDelay)
	assert.NotContains(t, f.pub.types("u1"), "pair_mismatched")

	state, err := f.svc.State(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, state["failed_attempts"])
}

func TestMemoryServiceDifficultyChangeReplacesEngine(t *testing.T) {
	f := newMemoryFixture(t, false)
	ctx := context.Background()

	_, _, err := f.svc.StartRound(ctx, "u1", "Easy")
	require.NoError(t, err)
	_, state, err := f.svc.StartRound(ctx, "u1", "Hard")
	require.NoError(t, err)

	assert.Equal(t, "Hard", state["difficulty"])
	assert.Len(t, state["cards"], 12)
	assert.Equal(t, 1, f.svc.ActiveRounds())
}

func TestMemoryServiceEndRound(t *testing.T) {
	f := newMemoryFixture(t, false)
	ctx := context.Background()

	_, _, err := f.svc.StartRound(ctx, "u1", "Easy")
	require.NoError(t, err)
	require.NoError(t, f.svc.EndRound(ctx, "u1"))

	assert.Zero(t, f.svc.ActiveRounds())
	assert.Zero(t, f.clock.Pending())
}

func TestMemoryServiceCleanupIdle(t *testing.T) {
	f := newMemoryFixture(t, false)
	ctx := context.Background()

	_, _, err := f.svc.StartRound(ctx, "idle", "Easy")
	require.NoError(t, err)
	f.clock.Advance(5 * time.Minute)

	_, _, err = f.svc.StartRound(ctx, "busy", "Easy")
	require.NoError(t, err)
	f.clock.Advance(6 * time.Minute)

	assert.Equal(t, 1, f.svc.CleanupIdle())
	_, err = f.svc.State(ctx, "idle")
	assert.ErrorIs(t, err, ErrNoActiveRound)
	_, err = f.svc.State(ctx, "busy")
	assert.NoError(t, err)
}

func TestMemoryServiceUsersIsolated(t *testing.T) {
	f := newMemoryFixture(t, false)
	ctx := context.Background()

	_, _, err := f.svc.StartRound(ctx, "a", "Easy")
	require.NoError(t, err)
	_, _, err = f.svc.StartRound(ctx, "b", "Easy")
	require.NoError(t, err)

	f.clock.Advance(game.DefaultInputLock)
	f.flip(t, "a", 0, 1)
	f.clock.Advance(game.DefaultResolveDelay)

	assert.Contains(t, f.pub.types("a"), "pair_matched")
	assert.NotContains(t, f.pub.types("b"), "pair_matched")
}

func TestMemoryServiceConcurrentRestartLeavesNoOrphan(t *testing.T) {
	clock := gametest.NewClock()
	ctx := context.Background()

	var svc *MemoryService
	var nestedErr error
	nested := false
	svc = NewMemoryService(MemoryOptions{
		Engine: game.DefaultConfig(),
		Clock:  clock,
		Shuffle: func(defs []game.Card) game.Deck {
			// второй старт с другой сложностью приходит, пока первый еще тасует колоду
			if !nested && len(defs) == 4 {
				nested = true
				_, _, nestedErr = svc.StartRound(ctx, "u1", "Hard")
			}
			return gametest.Identity(defs)
		},
	})

	_, _, err := svc.StartRound(ctx, "u1", "Easy")
	assert.ErrorIs(t, err, ErrRoundReplaced)
	require.NoError(t, nestedErr)

	state, err := svc.State(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Hard", state["difficulty"])
	assert.Equal(t, 1, svc.ActiveRounds())

	require.NoError(t, svc.EndRound(ctx, "u1"))
	require.NoError(t, svc.Shutdown(ctx))
	clock.Advance(10 * time.Second)
	assert.Zero(t, clock.Pending())
}

func TestMemoryServiceSameDifficultyRestartKeepsLatestID(t *testing.T) {
	clock := gametest.NewClock()
	ctx := context.Background()

	var svc *MemoryService
	var nestedID string
	nested := false
	svc = NewMemoryService(MemoryOptions{
		Engine: game.DefaultConfig(),
		Clock:  clock,
		Shuffle: func(defs []game.Card) game.Deck {
			if !nested {
				nested = true
				nestedID, _, _ = svc.StartRound(ctx, "u1", "Easy")
			}
			return gametest.Identity(defs)
		},
	})
	t.Cleanup(func() { _ = svc.Shutdown(ctx) })

	_, _, err := svc.StartRound(ctx, "u1", "Easy")
	assert.ErrorIs(t, err, ErrRoundReplaced)

	state, err := svc.State(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, nestedID, state["round_id"])
	assert.Equal(t, 1, svc.ActiveRounds())
}
