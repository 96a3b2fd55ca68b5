package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tickCall struct {
	leagueID  uuid.UUID
	turnIndex int
	remaining time.Duration
}

type expireCall struct {
	leagueID  uuid.UUID
	turnIndex int
}

type recordingHandler struct {
	ticks   chan tickCall
	expires chan expireCall
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{
		ticks:   make(chan tickCall, 64),
		expires: make(chan expireCall, 64),
	}
}

func (h *recordingHandler) HandleTurnExpired(_ context.Context, leagueID uuid.UUID, turnIndex int) {
	h.expires <- expireCall{leagueID: leagueID, turnIndex: turnIndex}
}

func (h *recordingHandler) HandleTurnTick(leagueID uuid.UUID, turnIndex int, remaining time.Duration) {
	h.ticks <- tickCall{leagueID: leagueID, turnIndex: turnIndex, remaining: remaining}
}

func (h *recordingHandler) nextTick(t *testing.T) tickCall {
	t.Helper()
	select {
	case c := <-h.ticks:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for tick")
		return tickCall{}
	}
}

func (h *recordingHandler) nextExpire(t *testing.T) expireCall {
	t.Helper()
	select {
	case c := <-h.expires:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for expiry")
		return expireCall{}
	}
}

func (h *recordingHandler) assertNoExpire(t *testing.T, within time.Duration) {
	t.Helper()
	select {
	case c := <-h.expires:
		t.Fatalf("unexpected expiry for turn %d", c.turnIndex)
	case <-time.After(within):
	}
}

func newTestScheduler(t *testing.T) (*Scheduler, *clockwork.FakeClock, *recordingHandler) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	s := NewScheduler(clock, time.Second)
	h := newRecordingHandler()
	s.Start(context.Background(), h)
	t.Cleanup(s.Stop)
	return s, clock, h
}

func advance(t *testing.T, clock *clockwork.FakeClock, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(d)
}

func TestSchedulerTicksThenExpiresOnce(t *testing.T) {
	s, clock, h := newTestScheduler(t)
	leagueID := uuid.New()

	s.Arm(leagueID, 0, 3*time.Second)
	turn, armed := s.Armed(leagueID)
	require.True(t, armed)
	assert.Equal(t, 0, turn)

	advance(t, clock, time.Second)
	tick := h.nextTick(t)
	assert.Equal(t, leagueID, tick.leagueID)
	assert.Equal(t, 2*time.Second, tick.remaining)

	advance(t, clock, time.Second)
	assert.Equal(t, time.Second, h.nextTick(t).remaining)

	advance(t, clock, time.Second)
	exp := h.nextExpire(t)
	assert.Equal(t, leagueID, exp.leagueID)
	assert.Equal(t, 0, exp.turnIndex)

	assert.Equal(t, 0, s.ActiveCount())
	h.assertNoExpire(t, 50*time.Millisecond)
}

func TestSchedulerRearmIsLastWriterWins(t *testing.T) {
	s, clock, h := newTestScheduler(t)
	leagueID := uuid.New()

	s.Arm(leagueID, 0, 2*time.Second)
	s.Arm(leagueID, 0, 2*time.Second)
	s.Arm(leagueID, 1, 3*time.Second)
	assert.Equal(t, 1, s.ActiveCount())

	for i := 0; i < 2; i++ {
		advance(t, clock, time.Second)
		tick := h.nextTick(t)
		assert.Equal(t, 1, tick.turnIndex)
	}
	advance(t, clock, time.Second)

	exp := h.nextExpire(t)
	assert.Equal(t, 1, exp.turnIndex)
	h.assertNoExpire(t, 50*time.Millisecond)
}

func TestSchedulerCancelStopsTicksAndExpiry(t *testing.T) {
	s, clock, h := newTestScheduler(t)
	leagueID := uuid.New()

	s.Arm(leagueID, 4, 2*time.Second)
	advance(t, clock, time.Second)
	h.nextTick(t)

	s.Cancel(leagueID)
	s.Cancel(leagueID)
	assert.Equal(t, 0, s.ActiveCount())

	clock.Advance(5 * time.Second)
	h.assertNoExpire(t, 50*time.Millisecond)
	select {
	case c := <-h.ticks:
		t.Fatalf("unexpected tick after cancel: %+v", c)
	default:
	}
}

func TestSchedulerCancelUnknownLeagueIsNoop(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	s.Cancel(uuid.New())
	assert.Equal(t, 0, s.ActiveCount())
}

func TestSchedulerPastDeadlineExpiresImmediately(t *testing.T) {
	s, _, h := newTestScheduler(t)
	leagueID := uuid.New()

	s.Arm(leagueID, 7, -time.Second)

	exp := h.nextExpire(t)
	assert.Equal(t, 7, exp.turnIndex)
}

func TestSchedulerLeaguesAreIndependent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewScheduler(clock, time.Second)
	h := newRecordingHandler()
	s.Start(context.Background(), h)
	t.Cleanup(s.Stop)

	short, long := uuid.New(), uuid.New()
	s.Arm(short, 0, time.Second)
	s.Arm(long, 0, 10*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 2))
	clock.Advance(time.Second)

	exp := h.nextExpire(t)
	assert.Equal(t, short, exp.leagueID)

	_, armed := s.Armed(long)
	assert.True(t, armed)
	s.Cancel(long)
}

type blockingHandler struct {
	mu       sync.Mutex
	expired  int
	released chan struct{}
}

func (h *blockingHandler) HandleTurnExpired(ctx context.Context, _ uuid.UUID, _ int) {
	h.mu.Lock()
	h.expired++
	h.mu.Unlock()
	<-ctx.Done()
	close(h.released)
}

func (h *blockingHandler) HandleTurnTick(uuid.UUID, int, time.Duration) {}

func TestSchedulerStopCancelsRunningHandlers(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewScheduler(clock, time.Second)
	h := &blockingHandler{released: make(chan struct{})}
	s.Start(context.Background(), h)

	s.Arm(uuid.New(), 0, 0)

	require.Eventually(t, func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.expired == 1
	}, 2*time.Second, 5*time.Millisecond)

	s.Stop()

	select {
	case <-h.released:
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not released by Stop")
	}
}

func TestSchedulerArmAfterStopIsNoop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewScheduler(clock, time.Second)
	h := newRecordingHandler()
	s.Start(context.Background(), h)
	s.Stop()

	league := uuid.New()
	s.Arm(league, 3, 15*time.Second)

	assert.Equal(t, 0, s.ActiveCount())
	_, armed := s.Armed(league)
	assert.False(t, armed)

	clock.Advance(20 * time.Second)
	h.assertNoExpire(t, 50*time.Millisecond)

	s.Start(context.Background(), h)
	t.Cleanup(s.Stop)
	s.Arm(league, 3, 0)
	assert.Equal(t, expireCall{leagueID: league, turnIndex: 3}, h.nextExpire(t))
}
