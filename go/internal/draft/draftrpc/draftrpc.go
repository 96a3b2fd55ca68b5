// Package draftrpc defines the DraftService connect procedures, their JSON
// messages and a typed client.
package draftrpc

import (
	"encoding/json"
	"time"

	"github.com/mcdev12/livedraft/go/internal/draft/events"
	"github.com/mcdev12/livedraft/go/internal/models"
)

// ServiceName is the fully-qualified name of the DraftService.
const ServiceName = "livedraft.draft.v1.DraftService"

// Procedure paths for each DraftService method.
const (
	StartDraftProcedure           = "/" + ServiceName + "/StartDraft"
	EndDraftProcedure             = "/" + ServiceName + "/EndDraft"
	DraftPlayerProcedure          = "/" + ServiceName + "/DraftPlayer"
	GetDraftStateProcedure        = "/" + ServiceName + "/GetDraftState"
	ListAvailablePlayersProcedure = "/" + ServiceName + "/ListAvailablePlayers"
)

// Codec marshals plain Go messages as JSON. It replaces connect's built-in
// "json" codec, which only accepts protobuf messages.
type Codec struct{}

func (Codec) Name() string { return "json" }

func (Codec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (Codec) Unmarshal(data []byte, msg any) error {
	return json.Unmarshal(data, msg)
}

// Session is the wire form of a league's draft session.
type Session struct {
	LeagueID         string     `json:"league_id"`
	Status           string     `json:"status"`
	CurrentTurnIndex int        `json:"current_turn_index"`
	TotalTurns       int        `json:"total_turns"`
	RoundCount       int        `json:"round_count"`
	TurnDeadline     *time.Time `json:"turn_deadline,omitempty"`
	EndReason        string     `json:"end_reason,omitempty"`
	Version          int64      `json:"version"`
}

// SessionFromModel converts a stored session to its wire form.
func SessionFromModel(s models.DraftSession) *Session {
	return &Session{
		LeagueID:         s.LeagueID.String(),
		Status:           string(s.Status),
		CurrentTurnIndex: s.CurrentTurnIndex,
		TotalTurns:       s.TotalTurns(),
		RoundCount:       s.RoundCount,
		TurnDeadline:     s.TurnDeadline,
		EndReason:        string(s.EndReason),
		Version:          s.Version,
	}
}

type StartDraftRequest struct {
	LeagueID string `json:"league_id"`
}

type StartDraftResponse struct {
	Session *Session `json:"session"`
}

type EndDraftRequest struct {
	LeagueID string `json:"league_id"`
}

type EndDraftResponse struct {
	Session *Session `json:"session"`
}

type DraftPlayerRequest struct {
	LeagueID string `json:"league_id"`
	PlayerID string `json:"player_id"`
}

type DraftPlayerResponse struct {
	Pick             events.PickInfo `json:"pick"`
	CurrentTurnIndex int             `json:"current_turn_index"`
	Status           string          `json:"status"`
}

type GetDraftStateRequest struct {
	LeagueID string `json:"league_id"`
}

type GetDraftStateResponse struct {
	State events.SnapshotPayload `json:"state"`
	Seq   int64                  `json:"seq"`
}

type ListAvailablePlayersRequest struct {
	LeagueID string `json:"league_id"`
}

type ListAvailablePlayersResponse struct {
	Players []models.Player `json:"players"`
}
