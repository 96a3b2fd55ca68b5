package relay

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/livedraft/go/internal/draft/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu       sync.Mutex
	failures int
	calls    int
	messages []Message
}

func (p *recordingPublisher) Publish(_ context.Context, msg Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.failures > 0 {
		p.failures--
		return errors.New("nats: no responders available for request")
	}
	p.messages = append(p.messages, msg)
	return nil
}

func (p *recordingPublisher) published() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.messages...)
}

func newEvent(t *testing.T, league uuid.UUID, typ events.EventType, seq int64) *events.DraftEvent {
	t.Helper()
	ev, err := events.New(league, typ, seq, time.Now(), map[string]int{"turn_index": 1})
	require.NoError(t, err)
	return ev
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryDelay = time.Millisecond
	return cfg
}

func runRelay(t *testing.T, r *Relay) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, r.Run(ctx))
	}()
	return func() {
		cancel()
		<-done
	}
}

func TestSubject(t *testing.T) {
	league := uuid.MustParse("6f1c1d38-9a7e-4b55-8a61-2f7e0c4d1a90")
	assert.Equal(t, "draft.events.6f1c1d38-9a7e-4b55-8a61-2f7e0c4d1a90.PlayerDrafted",
		Subject("draft.events", league, events.EventTypePlayerDrafted))
}

func TestRelayPublishesInOrder(t *testing.T) {
	pub := &recordingPublisher{}
	r := New(pub, testConfig())
	league := uuid.New()

	started := newEvent(t, league, events.EventTypeDraftStarted, 1)
	drafted := newEvent(t, league, events.EventTypePlayerDrafted, 2)
	r.Broadcast(league, started)
	r.Broadcast(league, newEvent(t, league, events.EventTypeTimerTick, 0))
	r.Broadcast(league, drafted)

	stop := runRelay(t, r)
	require.Eventually(t, func() bool { return len(pub.published()) == 2 }, time.Second, 5*time.Millisecond)
	stop()

	msgs := pub.published()
	assert.Equal(t, started.ID, msgs[0].ID)
	assert.Equal(t, "draft.events."+league.String()+".DraftStarted", msgs[0].Subject)
	assert.Equal(t, string(events.EventTypePlayerDrafted), msgs[1].EventType)

	var decoded events.DraftEvent
	require.NoError(t, json.Unmarshal(msgs[1].Data, &decoded))
	assert.Equal(t, int64(2), decoded.Seq)
	assert.Equal(t, league.String(), decoded.LeagueID)

	assert.Equal(t, Stats{Published: 2}, r.Stats())
}

func TestRelayIncludesTicksWhenConfigured(t *testing.T) {
	pub := &recordingPublisher{}
	cfg := testConfig()
	cfg.IncludeTicks = true
	r := New(pub, cfg)
	league := uuid.New()

	r.Broadcast(league, newEvent(t, league, events.EventTypeTimerTick, 0))
	assert.Equal(t, 1, r.Stats().Queued)
}

func TestRelayRetriesFailedPublish(t *testing.T) {
	pub := &recordingPublisher{failures: 2}
	r := New(pub, testConfig())
	league := uuid.New()

	r.Broadcast(league, newEvent(t, league, events.EventTypeTurnChanged, 3))
	stop := runRelay(t, r)
	require.Eventually(t, func() bool { return len(pub.published()) == 1 }, time.Second, 5*time.Millisecond)
	stop()

	assert.Equal(t, 3, pub.calls)
	assert.Equal(t, int64(0), r.Stats().Failed)
}

func TestRelayGivesUpAfterMaxAttempts(t *testing.T) {
	pub := &recordingPublisher{failures: 10}
	r := New(pub, testConfig())
	league := uuid.New()

	r.Broadcast(league, newEvent(t, league, events.EventTypeDraftEnded, 9))
	stop := runRelay(t, r)
	require.Eventually(t, func() bool { return r.Stats().Failed == 1 }, time.Second, 5*time.Millisecond)
	stop()

	assert.Equal(t, 3, pub.calls)
	assert.Empty(t, pub.published())
}

func TestRelayDropsWhenQueueFull(t *testing.T) {
	pub := &recordingPublisher{}
	cfg := testConfig()
	cfg.QueueSize = 1
	r := New(pub, cfg)
	league := uuid.New()

	r.Broadcast(league, newEvent(t, league, events.EventTypeTurnChanged, 1))
	r.Broadcast(league, newEvent(t, league, events.EventTypeTurnChanged, 2))

	stats := r.Stats()
	assert.Equal(t, int64(1), stats.Dropped)
	assert.Equal(t, 1, stats.Queued)
}

func TestRelayFlushesOnShutdown(t *testing.T) {
	pub := &recordingPublisher{}
	r := New(pub, testConfig())
	league := uuid.New()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.Broadcast(league, newEvent(t, league, events.EventTypeDraftEnded, 4))
	require.NoError(t, r.Run(ctx))

	assert.Len(t, pub.published(), 1)
}
