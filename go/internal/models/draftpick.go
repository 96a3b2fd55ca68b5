package models

import (
	"time"

	"github.com/google/uuid"
)

// Pick is an immutable record of one player drafted in one league.
type Pick struct {
	LeagueID  uuid.UUID `json:"league_id"`
	PlayerID  uuid.UUID `json:"player_id"`
	PickedBy  uuid.UUID `json:"picked_by"`
	TurnIndex int       `json:"turn_index"`
	PickedAt  time.Time `json:"picked_at"`
}
