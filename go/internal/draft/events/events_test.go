package events

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndDecode(t *testing.T) {
	leagueID := uuid.New()
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	ev, err := New(leagueID, EventTypeTimerTick, 7, at, TimerTickPayload{TurnIndex: 3, RemainingMs: 4200, RemainingSec: 5})
	require.NoError(t, err)
	assert.Equal(t, leagueID.String(), ev.LeagueID)
	assert.Equal(t, int64(7), ev.Seq)
	assert.Equal(t, at, ev.Timestamp)
	assert.NotEmpty(t, ev.ID)

	payload, err := Decode(ev)
	require.NoError(t, err)
	tick, ok := payload.(*TimerTickPayload)
	require.True(t, ok)
	assert.Equal(t, 3, tick.TurnIndex)
	assert.Equal(t, 5, tick.RemainingSec)
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := Decode(&DraftEvent{Type: "Nope", Data: []byte(`{}`)})
	require.Error(t, err)
}

type captureSink struct {
	got []*DraftEvent
}

func (c *captureSink) Broadcast(_ uuid.UUID, ev *DraftEvent) {
	c.got = append(c.got, ev)
}

func TestFanoutDeliversToEverySink(t *testing.T) {
	a, b := &captureSink{}, &captureSink{}
	f := Fanout{a, nil, b}

	ev := &DraftEvent{Type: EventTypeDraftEnded}
	f.Broadcast(uuid.New(), ev)

	assert.Equal(t, []*DraftEvent{ev}, a.got)
	assert.Equal(t, []*DraftEvent{ev}, b.got)
}

func TestRemainingSeconds(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want int
	}{
		{0, 0},
		{-time.Second, 0},
		{time.Millisecond, 1},
		{time.Second, 1},
		{1500 * time.Millisecond, 2},
		{15 * time.Second, 15},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RemainingSeconds(tt.in), tt.in.String())
	}
}
