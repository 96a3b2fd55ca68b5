package draft

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/livedraft/go/internal/models"
)

// The transitions below are pure: they take the loaded session and return
// the next one without touching storage, timers or subscribers.

func startTransition(
	s models.DraftSession,
	order []uuid.UUID,
	participants []models.Participant,
	roundCount int,
	turnDuration time.Duration,
	now time.Time,
) (models.DraftSession, error) {
	if s.Status != models.DraftStatusNotStarted {
		return models.DraftSession{}, fmt.Errorf("%w: league %s is %s", ErrAlreadyStarted, s.LeagueID, s.Status)
	}
	if len(order) == 0 {
		return models.DraftSession{}, ErrNoParticipants
	}

	next := s.Clone()
	next.Status = models.DraftStatusInProgress
	next.Order = append([]uuid.UUID(nil), order...)
	next.Participants = append([]models.Participant(nil), participants...)
	next.RoundCount = roundCount
	next.TurnDuration = turnDuration
	next.CurrentTurnIndex = 0
	next.StartedAt = &now
	deadline := now.Add(turnDuration)
	next.TurnDeadline = &deadline
	next.EndReason = ""
	next.EndedAt = nil

	return next, nil
}

func advanceTransition(s models.DraftSession, now time.Time) (models.DraftSession, error) {
	if s.Status != models.DraftStatusInProgress {
		return models.DraftSession{}, fmt.Errorf("%w: league %s is %s", ErrDraftNotInProgress, s.LeagueID, s.Status)
	}

	next := s.Clone()
	next.CurrentTurnIndex++

	if next.CurrentTurnIndex >= len(next.Order) {
		next.Status = models.DraftStatusEnded
		next.EndReason = models.EndReasonCompleted
		next.TurnDeadline = nil
		next.EndedAt = &now
		return next, nil
	}

	deadline := now.Add(next.TurnDuration)
	next.TurnDeadline = &deadline
	return next, nil
}

// endTransition reports changed=false when the session has already ended.
func endTransition(s models.DraftSession, now time.Time) (next models.DraftSession, changed bool) {
	if s.Status == models.DraftStatusEnded {
		return s, false
	}

	next = s.Clone()
	next.Status = models.DraftStatusEnded
	next.EndReason = models.EndReasonEndedByCommissioner
	next.TurnDeadline = nil
	next.EndedAt = &now
	return next, true
}
