package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/livedraft/go/internal/draft"
	"github.com/mcdev12/livedraft/go/internal/draft/events"
	"github.com/mcdev12/livedraft/go/internal/draft/order"
	"github.com/mcdev12/livedraft/go/internal/draft/store"
	"github.com/mcdev12/livedraft/go/internal/leagues"
	"github.com/mcdev12/livedraft/go/internal/models"
	"github.com/mcdev12/livedraft/go/internal/player"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSnapshots struct {
	snapshot events.SnapshotPayload
	seq      int64
	err      error
}

func (s *staticSnapshots) WithSnapshot(_ context.Context, _ uuid.UUID, fn draft.SnapshotFunc) error {
	if s.err != nil {
		return s.err
	}
	fn(s.snapshot, s.seq)
	return nil
}

type noopScheduler struct{}

func (noopScheduler) Arm(uuid.UUID, int, time.Duration) {}
func (noopScheduler) Cancel(uuid.UUID)                  {}

func receive(t *testing.T, conn *Connection) *events.DraftEvent {
	t.Helper()
	select {
	case data, ok := <-conn.Send():
		require.True(t, ok, "send channel closed")
		var ev events.DraftEvent
		require.NoError(t, json.Unmarshal(data, &ev))
		return &ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func decode[T any](t *testing.T, ev *events.DraftEvent) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(ev.Data, &out))
	return out
}

func TestJoinQueuesSnapshotFirst(t *testing.T) {
	league := uuid.New()
	alice := uuid.New()
	registry := NewRegistry()
	registry.BindSnapshots(&staticSnapshots{
		seq: 7,
		snapshot: events.SnapshotPayload{
			Status: string(models.DraftStatusInProgress),
			Order:  []events.OrderSlot{{TurnIndex: 0, UserID: alice.String(), DisplayName: "Alice"}},
		},
	})

	conn := NewConnection(league, alice, 8)
	require.NoError(t, registry.Join(context.Background(), conn))

	first := receive(t, conn)
	assert.Equal(t, events.EventTypeSnapshot, first.Type)
	assert.Equal(t, int64(7), first.Seq)
	snapshot := decode[events.SnapshotPayload](t, first)
	require.Len(t, snapshot.Connected, 1)
	assert.Equal(t, events.ConnectedParticipant{UserID: alice.String(), DisplayName: "Alice", Connections: 1}, snapshot.Connected[0])

	second := receive(t, conn)
	assert.Equal(t, events.EventTypeParticipantsChanged, second.Type)
	assert.Equal(t, int64(0), second.Seq)

	stats := registry.GetConnectionStats()
	assert.Equal(t, 1, stats.TotalConnections)
	assert.Equal(t, 1, stats.ActiveLeagues)
	assert.Equal(t, 1, stats.LeagueConnections[league.String()])
}

func TestJoinFailsWithoutSnapshot(t *testing.T) {
	registry := NewRegistry()
	conn := NewConnection(uuid.New(), uuid.New(), 8)
	assert.ErrorIs(t, registry.Join(context.Background(), conn), ErrNoSnapshotSource)

	registry.BindSnapshots(&staticSnapshots{err: draft.ErrUnavailable})
	assert.ErrorIs(t, registry.Join(context.Background(), conn), draft.ErrUnavailable)
	assert.Equal(t, 0, registry.GetConnectionStats().TotalConnections)
}

func TestBroadcastDropsSlowConnection(t *testing.T) {
	league := uuid.New()
	registry := NewRegistry()
	registry.BindSnapshots(&staticSnapshots{})

	slow := NewConnection(league, uuid.New(), 2)
	require.NoError(t, registry.Join(context.Background(), slow))
	fast := NewConnection(league, uuid.New(), 64)
	require.NoError(t, registry.Join(context.Background(), fast))

	// slow now holds its snapshot and one presence event; the second
	// presence event did not fit and dropped it.
	assert.Equal(t, 1, registry.GetConnectionStats().TotalConnections)

	ev, err := events.New(league, events.EventTypeTimerTick, 0, time.Now(), events.TimerTickPayload{TurnIndex: 0})
	require.NoError(t, err)
	registry.Broadcast(league, ev)

	receive(t, slow)
	receive(t, slow)
	_, ok := <-slow.Send()
	assert.False(t, ok, "slow connection should be closed")

	var types []events.EventType
	for i := 0; i < 4; i++ {
		types = append(types, receive(t, fast).Type)
	}
	assert.Equal(t, []events.EventType{
		events.EventTypeSnapshot,
		events.EventTypeParticipantsChanged,
		events.EventTypeParticipantsChanged,
		events.EventTypeTimerTick,
	}, types)
}

func TestLeaveIsIdempotent(t *testing.T) {
	league := uuid.New()
	registry := NewRegistry()
	registry.BindSnapshots(&staticSnapshots{})

	conn := NewConnection(league, uuid.New(), 8)
	other := NewConnection(league, uuid.New(), 8)
	require.NoError(t, registry.Join(context.Background(), conn))
	require.NoError(t, registry.Join(context.Background(), other))

	registry.Leave(conn)
	registry.Leave(conn)
	assert.Len(t, registry.Connected(league), 1)

	ev, err := events.New(league, events.EventTypeError, 0, time.Now(), events.ErrorPayload{Code: "internal"})
	require.NoError(t, err)
	registry.SendTo(conn, ev)

	registry.CloseAll()
	assert.Equal(t, 0, registry.GetConnectionStats().TotalConnections)
	assert.Empty(t, registry.Connected(league))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{draft.ErrInvalidInput, http.StatusBadRequest},
		{draft.ErrNotYourTurn, http.StatusConflict},
		{draft.ErrPlayerAlreadyDrafted, http.StatusConflict},
		{draft.ErrNotCommissioner, http.StatusForbidden},
		{fmt.Errorf("%w: load", draft.ErrUnavailable), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}
}

type gatewayHarness struct {
	srv      *httptest.Server
	registry *Registry
	league   uuid.UUID
	members  []models.Participant
	players  []models.Player
}

func newGatewayHarness(t *testing.T) *gatewayHarness {
	t.Helper()

	h := &gatewayHarness{league: uuid.New()}
	for i := 0; i < 2; i++ {
		h.members = append(h.members, models.Participant{UserID: uuid.New(), DisplayName: fmt.Sprintf("Team %c", 'A'+i)})
	}
	for i := 0; i < 6; i++ {
		h.players = append(h.players, models.Player{ID: uuid.New(), Name: fmt.Sprintf("Player %02d", i), TeamAbbr: "KC"})
	}

	draftStore := store.NewMemoryStore()
	directory := leagues.NewMemoryDirectory(leagues.Record{
		League:  models.League{ID: h.league, Name: "Gateway League", CommissionerID: h.members[0].UserID},
		Members: h.members,
	})
	h.registry = NewRegistry()

	cfg := draft.DefaultConfig()
	cfg.RoundCount = 2
	app, err := draft.NewApp(cfg, draft.Dependencies{
		Store:     draftStore,
		Members:   directory,
		Catalog:   player.NewMemoryCatalog(draftStore, h.players...),
		Scheduler: noopScheduler{},
		Sink:      h.registry,
		Generator: order.NewGeneratorWithShuffle(func([]uuid.UUID) {}),
		Clock:     clockwork.NewFakeClock(),
	})
	require.NoError(t, err)
	h.registry.BindSnapshots(app)

	r := chi.NewRouter()
	RegisterRoutes(r, NewWebSocketHandler(h.registry, app, DefaultConnectionConfig()), NewStateHandler(app, h.registry))
	h.srv = httptest.NewServer(r)
	t.Cleanup(func() {
		h.registry.CloseAll()
		h.srv.Close()
	})
	return h
}

func (h *gatewayHarness) dial(t *testing.T, userID uuid.UUID) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/ws/draft/" + h.league.String() + "?user_id=" + userID.String()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

// next reads the socket until an event other than presence arrives.
func next(t *testing.T, ws *websocket.Conn) *events.DraftEvent {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var ev events.DraftEvent
		require.NoError(t, ws.ReadJSON(&ev))
		if ev.Type != events.EventTypeParticipantsChanged {
			return &ev
		}
	}
}

func (h *gatewayHarness) get(t *testing.T, path string, out any) int {
	t.Helper()
	res, err := http.Get(h.srv.URL + path)
	require.NoError(t, err)
	defer res.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(res.Body).Decode(out))
	}
	return res.StatusCode
}

func TestWebSocketDraftFlow(t *testing.T) {
	h := newGatewayHarness(t)
	commissioner := h.dial(t, h.members[0].UserID)
	other := h.dial(t, h.members[1].UserID)

	for _, ws := range []*websocket.Conn{commissioner, other} {
		ev := next(t, ws)
		require.Equal(t, events.EventTypeSnapshot, ev.Type)
		assert.Equal(t, string(models.DraftStatusNotStarted), decode[events.SnapshotPayload](t, ev).Status)
	}

	require.NoError(t, other.WriteJSON(Command{Type: CommandStartDraft}))
	ev := next(t, other)
	require.Equal(t, events.EventTypeError, ev.Type)
	assert.Equal(t, "permission_denied", decode[events.ErrorPayload](t, ev).Code)

	require.NoError(t, commissioner.WriteJSON(Command{Type: CommandStartDraft}))
	for _, ws := range []*websocket.Conn{commissioner, other} {
		ev := next(t, ws)
		require.Equal(t, events.EventTypeDraftStarted, ev.Type)
		started := decode[events.DraftStartedPayload](t, ev)
		assert.Equal(t, h.members[0].UserID.String(), started.Turn.UserID)
		assert.Len(t, started.Order, 4)
	}

	require.NoError(t, other.WriteJSON(Command{Type: CommandDraftPlayer, PlayerID: h.players[0].ID.String()}))
	ev = next(t, other)
	require.Equal(t, events.EventTypeError, ev.Type)
	rejected := decode[events.ErrorPayload](t, ev)
	assert.Equal(t, CommandDraftPlayer, rejected.Command)
	assert.Equal(t, "failed_precondition", rejected.Code)

	require.NoError(t, commissioner.WriteJSON(Command{Type: CommandDraftPlayer, PlayerID: h.players[0].ID.String()}))
	for _, ws := range []*websocket.Conn{commissioner, other} {
		drafted := next(t, ws)
		require.Equal(t, events.EventTypePlayerDrafted, drafted.Type, "error events must only reach their sender")
		payload := decode[events.PlayerDraftedPayload](t, drafted)
		assert.Equal(t, "Player drafted: KC Player 00", payload.Message)
		assert.Len(t, payload.Available, len(h.players)-1)

		turn := next(t, ws)
		require.Equal(t, events.EventTypeTurnChanged, turn.Type)
		assert.Equal(t, drafted.Seq, turn.Seq)
		assert.Equal(t, h.members[1].UserID.String(), decode[events.TurnChangedPayload](t, turn).Turn.UserID)
	}

	require.NoError(t, other.WriteJSON(Command{Type: "tradePlayer"}))
	ev = next(t, other)
	require.Equal(t, events.EventTypeError, ev.Type)
	assert.Equal(t, "invalid_argument", decode[events.ErrorPayload](t, ev).Code)

	var state DraftStateResponse
	require.Equal(t, http.StatusOK, h.get(t, "/api/leagues/"+h.league.String()+"/draft", &state))
	assert.Equal(t, 1, state.State.CurrentIndex)
	assert.Len(t, state.State.Picks, 1)
	assert.Len(t, state.State.Connected, 2)

	var stats Stats
	require.Equal(t, http.StatusOK, h.get(t, "/ws/stats", &stats))
	assert.Equal(t, 2, stats.LeagueConnections[h.league.String()])

	require.NoError(t, other.Close())
	assert.Eventually(t, func() bool {
		return len(h.registry.Connected(h.league)) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStateRoutes(t *testing.T) {
	h := newGatewayHarness(t)

	var players AvailablePlayersResponse
	require.Equal(t, http.StatusOK, h.get(t, "/api/leagues/"+h.league.String()+"/available-players", &players))
	assert.Len(t, players.Players, len(h.players))
	assert.Equal(t, "Player 00", players.Players[0].Name)

	var state DraftStateResponse
	require.Equal(t, http.StatusOK, h.get(t, "/api/leagues/"+h.league.String()+"/draft", &state))
	assert.Equal(t, string(models.DraftStatusNotStarted), state.State.Status)
	assert.Nil(t, state.State.CurrentTurn)
	assert.Empty(t, state.State.Connected)

	var bad errorResponse
	require.Equal(t, http.StatusBadRequest, h.get(t, "/api/leagues/nope/draft", &bad))
	assert.Equal(t, "invalid_argument", bad.Code)

	assert.Equal(t, http.StatusUnauthorized, h.get(t, "/ws/draft/"+h.league.String(), nil))
}
