package gateway

import (
	"encoding/json"
	"net/http"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mcdev12/livedraft/go/internal/draft"
	"github.com/mcdev12/livedraft/go/internal/draft/events"
	"github.com/mcdev12/livedraft/go/internal/models"
	"github.com/rs/zerolog/log"
)

// DraftStateResponse is the REST form of a league's snapshot
type DraftStateResponse struct {
	LeagueID string                 `json:"league_id"`
	Seq      int64                  `json:"seq"`
	State    events.SnapshotPayload `json:"state"`
}

// AvailablePlayersResponse lists a league's undrafted players
type AvailablePlayersResponse struct {
	LeagueID string          `json:"league_id"`
	Players  []models.Player `json:"players"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StateHandler handles HTTP requests for draft state
type StateHandler struct {
	app      draft.DraftApp
	registry *Registry
}

// NewStateHandler creates a new state handler. registry may be nil, in which
// case snapshots report no connected users.
func NewStateHandler(app draft.DraftApp, registry *Registry) *StateHandler {
	return &StateHandler{
		app:      app,
		registry: registry,
	}
}

// HandleGetDraftState handles GET /api/leagues/{leagueID}/draft
func (h *StateHandler) HandleGetDraftState(w http.ResponseWriter, r *http.Request) {
	leagueID, ok := leagueParam(w, r)
	if !ok {
		return
	}

	state, seq, err := h.app.GetDraftState(r.Context(), leagueID)
	if err != nil {
		writeError(w, leagueID, err)
		return
	}
	if h.registry != nil {
		state.Connected = h.registry.Connected(leagueID)
	}

	writeJSON(w, http.StatusOK, DraftStateResponse{
		LeagueID: leagueID.String(),
		Seq:      seq,
		State:    state,
	})
}

// HandleGetAvailablePlayers handles GET /api/leagues/{leagueID}/available-players
func (h *StateHandler) HandleGetAvailablePlayers(w http.ResponseWriter, r *http.Request) {
	leagueID, ok := leagueParam(w, r)
	if !ok {
		return
	}

	players, err := h.app.ListAvailablePlayers(r.Context(), leagueID)
	if err != nil {
		writeError(w, leagueID, err)
		return
	}
	if players == nil {
		players = []models.Player{}
	}

	writeJSON(w, http.StatusOK, AvailablePlayersResponse{
		LeagueID: leagueID.String(),
		Players:  players,
	})
}

// RegisterRoutes mounts the WebSocket and REST routes on r
func RegisterRoutes(r chi.Router, ws *WebSocketHandler, state *StateHandler) {
	r.Get("/ws/draft/{leagueID}", ws.HandleDraftConnection)
	r.Get("/ws/stats", ws.HandleConnectionStats)
	r.Route("/api/leagues/{leagueID}", func(r chi.Router) {
		r.Get("/draft", state.HandleGetDraftState)
		r.Get("/available-players", state.HandleGetAvailablePlayers)
	})
}

func leagueParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	leagueID, err := uuid.Parse(chi.URLParam(r, "leagueID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:    connect.CodeInvalidArgument.String(),
			Message: "invalid league id",
		})
		return uuid.Nil, false
	}
	return leagueID, true
}

// HTTPStatus maps a draft error to an HTTP status code
func HTTPStatus(err error) int {
	switch draft.ErrorCode(err) {
	case connect.CodeInvalidArgument:
		return http.StatusBadRequest
	case connect.CodeNotFound:
		return http.StatusNotFound
	case connect.CodeAlreadyExists, connect.CodeFailedPrecondition:
		return http.StatusConflict
	case connect.CodePermissionDenied:
		return http.StatusForbidden
	case connect.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, leagueID uuid.UUID, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("league_id", leagueID.String()).Msg("draft state request failed")
	}
	writeJSON(w, status, errorResponse{
		Code:    draft.ErrorCode(err).String(),
		Message: err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
