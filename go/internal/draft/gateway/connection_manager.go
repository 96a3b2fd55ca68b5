package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/livedraft/go/internal/draft"
	"github.com/mcdev12/livedraft/go/internal/draft/events"
	"github.com/rs/zerolog/log"
)

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBuffer      int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBuffer:      256,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// SnapshotSource builds a league's snapshot under the league's lock
type SnapshotSource interface {
	WithSnapshot(ctx context.Context, leagueID uuid.UUID, fn draft.SnapshotFunc) error
}

// ErrNoSnapshotSource is returned by Join before BindSnapshots is called.
var ErrNoSnapshotSource = errors.New("registry has no snapshot source")

// Registry tracks the open connections of every league and fans events out
// to them. A connection that cannot keep up is dropped rather than allowed to
// stall the rest of its league.
type Registry struct {
	mu        sync.RWMutex
	rooms     map[uuid.UUID]*room
	snapshots SnapshotSource
	now       func() time.Time
}

// room is one league's connection set plus the display names learned from
// its snapshots.
type room struct {
	conns map[*Connection]struct{}
	names map[uuid.UUID]string
}

// Connection represents a WebSocket connection to a client
type Connection struct {
	ID          string
	UserID      uuid.UUID
	LeagueID    uuid.UUID
	ConnectedAt time.Time

	send   chan []byte
	closed bool // guarded by Registry.mu
}

// NewConnection creates an unregistered connection with a send buffer of size buffer.
func NewConnection(leagueID, userID uuid.UUID, buffer int) *Connection {
	if buffer <= 0 {
		buffer = DefaultConnectionConfig().SendBuffer
	}
	return &Connection{
		ID:          uuid.NewString(),
		UserID:      userID,
		LeagueID:    leagueID,
		ConnectedAt: time.Now(),
		send:        make(chan []byte, buffer),
	}
}

// Send returns the channel of encoded events queued for the connection. It is
// closed when the connection leaves the registry.
func (c *Connection) Send() <-chan []byte {
	return c.send
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[uuid.UUID]*room),
		now:   time.Now,
	}
}

// BindSnapshots sets the source of join snapshots.
func (r *Registry) BindSnapshots(src SnapshotSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = src
}

// Join registers conn and queues the league's snapshot as its first message.
// The snapshot is taken under the league's lock, so every later event reaches
// conn after it.
func (r *Registry) Join(ctx context.Context, conn *Connection) error {
	r.mu.RLock()
	src := r.snapshots
	r.mu.RUnlock()
	if src == nil {
		return ErrNoSnapshotSource
	}

	var connected []events.ConnectedParticipant
	err := src.WithSnapshot(ctx, conn.LeagueID, func(snapshot events.SnapshotPayload, seq int64) {
		r.mu.Lock()
		defer r.mu.Unlock()

		rm := r.roomLocked(conn.LeagueID)
		for _, slot := range snapshot.Order {
			if id, err := uuid.Parse(slot.UserID); err == nil {
				rm.names[id] = slot.DisplayName
			}
		}
		rm.conns[conn] = struct{}{}
		connected = rm.connected()
		snapshot.Connected = connected

		ev, err := events.New(conn.LeagueID, events.EventTypeSnapshot, seq, r.now(), snapshot)
		if err != nil {
			log.Error().Err(err).Str("league_id", conn.LeagueID.String()).Msg("failed to build snapshot")
			return
		}
		data, err := json.Marshal(ev)
		if err != nil {
			log.Error().Err(err).Str("league_id", conn.LeagueID.String()).Msg("failed to marshal snapshot")
			return
		}
		conn.send <- data
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("connection_id", conn.ID).
		Str("user_id", conn.UserID.String()).
		Str("league_id", conn.LeagueID.String()).
		Int("connected", len(connected)).
		Msg("connection joined")

	r.broadcastParticipants(conn.LeagueID, connected)
	return nil
}

// Leave deregisters conn and closes its send channel. It is safe to call more
// than once.
func (r *Registry) Leave(conn *Connection) {
	connected, removed := r.remove(conn)
	if !removed {
		return
	}

	log.Info().
		Str("connection_id", conn.ID).
		Str("user_id", conn.UserID.String()).
		Str("league_id", conn.LeagueID.String()).
		Msg("connection left")

	r.broadcastParticipants(conn.LeagueID, connected)
}

// Broadcast queues ev for every connection in the league. It never blocks.
func (r *Registry) Broadcast(leagueID uuid.UUID, ev *events.DraftEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("league_id", leagueID.String()).Msg("failed to marshal event for broadcast")
		return
	}

	var slow []*Connection
	r.mu.RLock()
	rm, ok := r.rooms[leagueID]
	if ok {
		for conn := range rm.conns {
			select {
			case conn.send <- data:
			default:
				slow = append(slow, conn)
			}
		}
	}
	r.mu.RUnlock()

	for _, conn := range slow {
		log.Warn().
			Str("connection_id", conn.ID).
			Str("user_id", conn.UserID.String()).
			Str("league_id", leagueID.String()).
			Msg("connection send buffer full, dropping connection")
		r.Leave(conn)
	}

	if ev.Type != events.EventTypeTimerTick {
		log.Debug().
			Str("event_type", string(ev.Type)).
			Str("league_id", leagueID.String()).
			Int64("seq", ev.Seq).
			Msg("event broadcasted")
	}
}

// SendTo queues ev for a single connection. It never blocks.
func (r *Registry) SendTo(conn *Connection, ev *events.DraftEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("connection_id", conn.ID).Msg("failed to marshal event")
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if conn.closed {
		return
	}
	select {
	case conn.send <- data:
	default:
		log.Warn().Str("connection_id", conn.ID).Msg("connection send buffer full, dropping message")
	}
}

// Stats reports connection counts per league
type Stats struct {
	TotalConnections  int            `json:"total_connections"`
	ActiveLeagues     int            `json:"active_leagues"`
	LeagueConnections map[string]int `json:"league_connections"`
}

// GetConnectionStats returns statistics about active connections
func (r *Registry) GetConnectionStats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{
		ActiveLeagues:     len(r.rooms),
		LeagueConnections: make(map[string]int, len(r.rooms)),
	}
	for leagueID, rm := range r.rooms {
		stats.TotalConnections += len(rm.conns)
		stats.LeagueConnections[leagueID.String()] = len(rm.conns)
	}
	return stats
}

// Connected returns the users connected to a league.
func (r *Registry) Connected(leagueID uuid.UUID) []events.ConnectedParticipant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[leagueID]
	if !ok {
		return []events.ConnectedParticipant{}
	}
	return rm.connected()
}

// CloseAll deregisters every connection, which makes their write pumps send
// a close frame.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for leagueID, rm := range r.rooms {
		for conn := range rm.conns {
			conn.closed = true
			close(conn.send)
		}
		delete(r.rooms, leagueID)
	}
}

func (r *Registry) remove(conn *Connection) ([]events.ConnectedParticipant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[conn.LeagueID]
	if !ok {
		return nil, false
	}
	if _, ok := rm.conns[conn]; !ok {
		return nil, false
	}

	delete(rm.conns, conn)
	conn.closed = true
	close(conn.send)

	if len(rm.conns) == 0 {
		delete(r.rooms, conn.LeagueID)
	}
	return rm.connected(), true
}

func (r *Registry) roomLocked(leagueID uuid.UUID) *room {
	rm, ok := r.rooms[leagueID]
	if !ok {
		rm = &room{
			conns: make(map[*Connection]struct{}),
			names: make(map[uuid.UUID]string),
		}
		r.rooms[leagueID] = rm
	}
	return rm
}

func (r *Registry) broadcastParticipants(leagueID uuid.UUID, connected []events.ConnectedParticipant) {
	ev, err := events.New(leagueID, events.EventTypeParticipantsChanged, 0, r.now(), events.ParticipantsChangedPayload{
		Connected: connected,
	})
	if err != nil {
		log.Error().Err(err).Str("league_id", leagueID.String()).Msg("failed to build participants event")
		return
	}
	r.Broadcast(leagueID, ev)
}

// connected lists users with at least one open connection, sorted by user id.
func (rm *room) connected() []events.ConnectedParticipant {
	counts := make(map[uuid.UUID]int)
	for conn := range rm.conns {
		counts[conn.UserID]++
	}

	out := make([]events.ConnectedParticipant, 0, len(counts))
	for userID, n := range counts {
		out = append(out, events.ConnectedParticipant{
			UserID:      userID.String(),
			DisplayName: rm.names[userID],
			Connections: n,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}
