package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/livedraft/go/internal/draft"
	"github.com/mcdev12/livedraft/go/internal/draft/events"
	"github.com/mcdev12/livedraft/go/internal/identity"
	"github.com/rs/zerolog/log"
)

// Command types accepted from clients
const (
	CommandStartDraft  = "startDraft"
	CommandEndDraft    = "endDraft"
	CommandDraftPlayer = "draftPlayer"
)

// Command is a client request sent over the WebSocket
type Command struct {
	Type     string `json:"type"`
	PlayerID string `json:"player_id,omitempty"`
}

// WebSocketHandler handles WebSocket upgrade requests for league channels
type WebSocketHandler struct {
	registry *Registry
	app      draft.DraftApp
	config   ConnectionConfig
	upgrader websocket.Upgrader
	now      func() time.Time
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(registry *Registry, app draft.DraftApp, config ConnectionConfig) *WebSocketHandler {
	return &WebSocketHandler{
		registry: registry,
		app:      app,
		config:   config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		now: time.Now,
	}
}

// HandleDraftConnection joins the caller to a league channel and serves
// its commands until the socket closes.
func (h *WebSocketHandler) HandleDraftConnection(w http.ResponseWriter, r *http.Request) {
	leagueID, err := uuid.Parse(chi.URLParam(r, "leagueID"))
	if err != nil {
		http.Error(w, "invalid league id", http.StatusBadRequest)
		return
	}
	userID, err := identity.FromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().
			Err(err).
			Str("league_id", leagueID.String()).
			Str("user_id", userID.String()).
			Msg("failed to upgrade WebSocket connection")
		return
	}

	conn := NewConnection(leagueID, userID, h.config.SendBuffer)
	if err := h.registry.Join(r.Context(), conn); err != nil {
		log.Error().
			Err(err).
			Str("league_id", leagueID.String()).
			Str("user_id", userID.String()).
			Msg("failed to join league channel")
		code := websocket.CloseInternalServerErr
		if draft.ErrorCode(err) == connect.CodeUnavailable {
			code = websocket.CloseTryAgainLater
		}
		_ = ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, "snapshot unavailable"), time.Now().Add(h.config.WriteTimeout))
		_ = ws.Close()
		return
	}

	go h.writePump(ws, conn)
	h.readPump(r, ws, conn)
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.GetConnectionStats())
}

// writePump drains conn's queue to the socket and keeps it alive with pings
func (h *WebSocketHandler) writePump(ws *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(h.config.PingInterval)
	defer func() {
		ticker.Stop()
		ws.Close()
		h.registry.Leave(conn)
	}()

	for {
		select {
		case message, ok := <-conn.Send():
			ws.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if !ok {
				ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := ws.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", conn.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", conn.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump reads commands until the socket fails. It runs on the request
// goroutine so commands inherit the request's context.
func (h *WebSocketHandler) readPump(r *http.Request, ws *websocket.Conn, conn *Connection) {
	defer func() {
		h.registry.Leave(conn)
		ws.Close()
	}()

	ws.SetReadLimit(h.config.MaxMessageSize)
	ws.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().
					Err(err).
					Str("connection_id", conn.ID).
					Msg("WebSocket connection closed unexpectedly")
			}
			return
		}
		ws.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
		h.handleClientMessage(r, conn, message)
	}
}

// handleClientMessage runs one command. Success is reported through the
// league broadcast; failures go to the sender only.
func (h *WebSocketHandler) handleClientMessage(r *http.Request, conn *Connection, message []byte) {
	var cmd Command
	if err := json.Unmarshal(message, &cmd); err != nil {
		h.sendError(conn, "", fmt.Errorf("%w: malformed command: %v", draft.ErrInvalidInput, err))
		return
	}

	ctx := r.Context()
	var err error
	switch cmd.Type {
	case CommandStartDraft:
		_, err = h.app.StartDraft(ctx, conn.LeagueID, conn.UserID)
	case CommandEndDraft:
		_, err = h.app.EndDraft(ctx, conn.LeagueID, conn.UserID)
	case CommandDraftPlayer:
		playerID, parseErr := uuid.Parse(cmd.PlayerID)
		if parseErr != nil {
			err = fmt.Errorf("%w: player_id: %v", draft.ErrInvalidInput, parseErr)
			break
		}
		_, err = h.app.DraftPlayer(ctx, conn.LeagueID, conn.UserID, playerID)
	default:
		err = fmt.Errorf("%w: unknown command %q", draft.ErrInvalidInput, cmd.Type)
	}

	if err != nil {
		h.sendError(conn, cmd.Type, err)
	}
}

func (h *WebSocketHandler) sendError(conn *Connection, command string, err error) {
	code := draft.ErrorCode(err)
	logEvent := log.Debug()
	if code == connect.CodeInternal || code == connect.CodeUnavailable {
		logEvent = log.Warn()
	}
	logEvent.
		Err(err).
		Str("connection_id", conn.ID).
		Str("league_id", conn.LeagueID.String()).
		Str("command", command).
		Msg("command rejected")

	ev, buildErr := events.New(conn.LeagueID, events.EventTypeError, 0, h.now(), events.ErrorPayload{
		Command: command,
		Code:    code.String(),
		Message: err.Error(),
	})
	if buildErr != nil {
		log.Error().Err(buildErr).Msg("failed to build error event")
		return
	}
	h.registry.SendTo(conn, ev)
}
