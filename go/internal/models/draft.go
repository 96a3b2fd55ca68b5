package models

import (
	"time"

	"github.com/google/uuid"
)

// DraftStatus defines the lifecycle state of a league's draft session.
type DraftStatus string

const (
	DraftStatusNotStarted DraftStatus = "NOT_STARTED"
	DraftStatusInProgress DraftStatus = "IN_PROGRESS"
	DraftStatusEnded      DraftStatus = "ENDED"
)

// EndReason records why a session reached DraftStatusEnded.
type EndReason string

const (
	EndReasonCompleted           EndReason = "completed"
	EndReasonEndedByCommissioner EndReason = "ended_by_commissioner"
)

// NotStartedTurnIndex is the turn index of a session that has not started.
const NotStartedTurnIndex = -1

// DraftSession is the authoritative draft state for one league.
type DraftSession struct {
	LeagueID         uuid.UUID     `json:"league_id"`
	Status           DraftStatus   `json:"status"`
	Order            []uuid.UUID   `json:"order"`
	Participants     []Participant `json:"participants"`
	CurrentTurnIndex int           `json:"current_turn_index"`
	TurnDeadline     *time.Time    `json:"turn_deadline,omitempty"`
	TurnDuration     time.Duration `json:"turn_duration"`
	RoundCount       int           `json:"round_count"`
	EndReason        EndReason     `json:"end_reason,omitempty"`
	StartedAt        *time.Time    `json:"started_at,omitempty"`
	EndedAt          *time.Time    `json:"ended_at,omitempty"`

	// Version increases by one on every persisted write.
	Version int64 `json:"version"`
}

// NewDraftSession returns the NotStarted session for a league with no stored state.
func NewDraftSession(leagueID uuid.UUID) DraftSession {
	return DraftSession{
		LeagueID:         leagueID,
		Status:           DraftStatusNotStarted,
		CurrentTurnIndex: NotStartedTurnIndex,
	}
}

// TotalTurns returns the length of the draft order.
func (s DraftSession) TotalTurns() int {
	return len(s.Order)
}

// CurrentPicker returns the participant on the clock, if any.
func (s DraftSession) CurrentPicker() (uuid.UUID, bool) {
	if s.Status != DraftStatusInProgress || s.CurrentTurnIndex < 0 || s.CurrentTurnIndex >= len(s.Order) {
		return uuid.Nil, false
	}
	return s.Order[s.CurrentTurnIndex], true
}

// Round returns the 1-based round and pick-in-round for a turn index.
func (s DraftSession) Round(turnIndex int) (round, pickInRound int) {
	n := len(s.Participants)
	if n == 0 || turnIndex < 0 {
		return 0, 0
	}
	return turnIndex/n + 1, turnIndex%n + 1
}

// Remaining returns the time left on the current turn relative to now.
func (s DraftSession) Remaining(now time.Time) time.Duration {
	if s.Status != DraftStatusInProgress || s.TurnDeadline == nil {
		return 0
	}
	if d := s.TurnDeadline.Sub(now); d > 0 {
		return d
	}
	return 0
}

// DisplayName looks up a participant's display name from the session snapshot.
func (s DraftSession) DisplayName(userID uuid.UUID) string {
	for _, p := range s.Participants {
		if p.UserID == userID {
			return p.DisplayName
		}
	}
	return ""
}

// Clone returns a deep copy so callers can build the next state without aliasing.
func (s DraftSession) Clone() DraftSession {
	c := s
	if s.Order != nil {
		c.Order = append([]uuid.UUID(nil), s.Order...)
	}
	if s.Participants != nil {
		c.Participants = append([]Participant(nil), s.Participants...)
	}
	if s.TurnDeadline != nil {
		t := *s.TurnDeadline
		c.TurnDeadline = &t
	}
	if s.StartedAt != nil {
		t := *s.StartedAt
		c.StartedAt = &t
	}
	if s.EndedAt != nil {
		t := *s.EndedAt
		c.EndedAt = &t
	}
	return c
}
