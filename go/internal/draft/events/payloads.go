package events

import (
	"time"

	"github.com/mcdev12/livedraft/go/internal/models"
)

// Event payload types shared by the draft app, the gateway and the relay.

// OrderSlot is one entry of the snake order.
type OrderSlot struct {
	TurnIndex   int    `json:"turn_index"`
	Round       int    `json:"round"`
	PickInRound int    `json:"pick_in_round"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// TurnInfo describes the participant on the clock.
type TurnInfo struct {
	TurnIndex    int        `json:"turn_index"`
	Round        int        `json:"round"`
	PickInRound  int        `json:"pick_in_round"`
	TotalTurns   int        `json:"total_turns"`
	UserID       string     `json:"user_id"`
	DisplayName  string     `json:"display_name"`
	Deadline     *time.Time `json:"deadline,omitempty"`
	RemainingMs  int64      `json:"remaining_ms"`
	RemainingSec int        `json:"remaining_sec"`
}

// ConnectedParticipant is a user with at least one open connection.
type ConnectedParticipant struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
	Connections int    `json:"connections"`
}

// PickInfo is a committed pick enriched with catalog and member names.
type PickInfo struct {
	PlayerID     string    `json:"player_id"`
	PlayerName   string    `json:"player_name,omitempty"`
	TeamAbbr     string    `json:"team_abbr,omitempty"`
	Role         string    `json:"role,omitempty"`
	PickedBy     string    `json:"picked_by"`
	PickedByName string    `json:"picked_by_name,omitempty"`
	TurnIndex    int       `json:"turn_index"`
	Round        int       `json:"round"`
	PickInRound  int       `json:"pick_in_round"`
	PickedAt     time.Time `json:"picked_at"`
}

// SnapshotPayload is the authoritative state sent to a channel on join.
type SnapshotPayload struct {
	Status          string                 `json:"status"`
	RoundCount      int                    `json:"round_count"`
	TurnDurationSec int                    `json:"turn_duration_sec"`
	Order           []OrderSlot            `json:"order"`
	CurrentTurn     *TurnInfo              `json:"current_turn,omitempty"`
	CurrentIndex    int                    `json:"current_turn_index"`
	Picks           []PickInfo             `json:"picks"`
	Connected       []ConnectedParticipant `json:"connected"`
	EndReason       string                 `json:"end_reason,omitempty"`
}

// ParticipantsChangedPayload is the payload for a ParticipantsChanged event
type ParticipantsChangedPayload struct {
	Connected []ConnectedParticipant `json:"connected"`
}

// DraftStartedPayload is the payload for a DraftStarted event
type DraftStartedPayload struct {
	StartedAt       time.Time   `json:"started_at"`
	RoundCount      int         `json:"round_count"`
	TurnDurationSec int         `json:"turn_duration_sec"`
	Order           []OrderSlot `json:"order"`
	Turn            TurnInfo    `json:"turn"`
}

// TurnChangedPayload is the payload for a TurnChanged event. Passed is set
// when the previous turn timed out without a pick.
type TurnChangedPayload struct {
	PreviousTurnIndex int      `json:"previous_turn_index"`
	Passed            bool     `json:"passed"`
	Turn              TurnInfo `json:"turn"`
}

// TimerTickPayload contains periodic time-remaining updates
type TimerTickPayload struct {
	TurnIndex    int   `json:"turn_index"`
	RemainingMs  int64 `json:"remaining_ms"`
	RemainingSec int   `json:"remaining_sec"`
}

// PlayerDraftedPayload is the payload for a PlayerDrafted event
type PlayerDraftedPayload struct {
	Pick      PickInfo        `json:"pick"`
	Message   string          `json:"message"`
	Available []models.Player `json:"available"`
}

// DraftEndedPayload is the payload for a DraftEnded event
type DraftEndedPayload struct {
	Reason     string    `json:"reason"`
	EndedAt    time.Time `json:"ended_at"`
	TotalPicks int       `json:"total_picks"`
}

// ErrorPayload is sent to a single connection when its command fails.
type ErrorPayload struct {
	Command string `json:"command,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RemainingSeconds rounds d up to whole seconds.
func RemainingSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
