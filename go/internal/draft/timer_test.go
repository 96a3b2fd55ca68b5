package draft

import (
	"context"
	"testing"
	"time"

	"github.com/mcdev12/livedraft/go/internal/draft/events"
	"github.com/mcdev12/livedraft/go/internal/draft/orchestrator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduledTurnPassesAfterTurnDuration(t *testing.T) {
	h := newHarness(t, 4)

	sched := orchestrator.NewScheduler(h.clock, time.Second)
	h.app = h.newApp(sched)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sched.Start(ctx, h.app)
	defer sched.Stop()

	h.start()
	h.sink.reset()

	for i := 0; i < 15; i++ {
		require.NoError(t, h.clock.BlockUntilContext(ctx, 1))
		h.clock.Advance(time.Second)
	}

	require.Eventually(t, func() bool {
		return h.session().CurrentTurnIndex == 1
	}, 5*time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		turn, ok := sched.Armed(h.league)
		return ok && turn == 1
	}, 5*time.Second, 5*time.Millisecond)

	picks, err := h.store.ListPicks(ctx, h.league)
	require.NoError(t, err)
	assert.Empty(t, picks)

	ticks := h.sink.ofType(events.EventTypeTimerTick)
	assert.Len(t, ticks, 14)
	for _, tick := range ticks {
		assert.Zero(t, tick.Seq)
	}
	first := decode[events.TimerTickPayload](t, ticks[0])
	assert.Equal(t, 14, first.RemainingSec)

	changed := h.sink.ofType(events.EventTypeTurnChanged)
	require.Len(t, changed, 1)
	payload := decode[events.TurnChangedPayload](t, changed[0])
	assert.True(t, payload.Passed)
	assert.Equal(t, 1, payload.Turn.TurnIndex)
}

func TestScheduledPickCancelsPendingExpiry(t *testing.T) {
	h := newHarness(t, 4)

	sched := orchestrator.NewScheduler(h.clock, time.Second)
	h.app = h.newApp(sched)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sched.Start(ctx, h.app)
	defer sched.Stop()

	s := h.start()

	for i := 0; i < 10; i++ {
		require.NoError(t, h.clock.BlockUntilContext(ctx, 1))
		h.clock.Advance(time.Second)
	}

	_, err := h.app.DraftPlayer(ctx, h.league, s.Order[0], h.players[0].ID)
	require.NoError(t, err)

	// the old deadline passes without moving the draft
	for i := 0; i < 6; i++ {
		require.NoError(t, h.clock.BlockUntilContext(ctx, 1))
		h.clock.Advance(time.Second)
	}
	require.NoError(t, h.clock.BlockUntilContext(ctx, 1))

	assert.Equal(t, 1, h.session().CurrentTurnIndex)
	turn, ok := sched.Armed(h.league)
	require.True(t, ok)
	assert.Equal(t, 1, turn)
}

func TestScheduledEndCancelsTimer(t *testing.T) {
	h := newHarness(t, 4)

	sched := orchestrator.NewScheduler(h.clock, time.Second)
	h.app = h.newApp(sched)
	sched.Start(context.Background(), h.app)
	defer sched.Stop()

	h.start()
	_, err := h.app.EndDraft(context.Background(), h.league, h.commissioner())
	require.NoError(t, err)

	_, ok := sched.Armed(h.league)
	assert.False(t, ok)
	assert.Zero(t, sched.ActiveCount())
}
