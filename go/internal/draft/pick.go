package draft

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/livedraft/go/internal/draft/events"
	"github.com/mcdev12/livedraft/go/internal/models"
	"github.com/rs/zerolog/log"
)

// PickResult is the outcome of a committed pick
type PickResult struct {
	Pick             models.Pick
	Player           models.Player
	CurrentTurnIndex int
	Status           models.DraftStatus
	Session          models.DraftSession
}

// DraftPlayer commits userID's pick of playerID and advances the turn. The
// pick and the advance are written together or not at all.
func (a *App) DraftPlayer(ctx context.Context, leagueID, userID, playerID uuid.UUID) (PickResult, error) {
	var (
		p       models.Player
		result  PickResult
		outbox  []*events.DraftEvent
		drafted events.PickInfo
	)
	err := a.inLeague(ctx, leagueID, func() error {
		return a.withRetry(ctx, leagueID, "draft player", func() error {
			session, err := a.store.LoadSession(ctx, leagueID)
			if err != nil {
				return err
			}

			if session.Status != models.DraftStatusInProgress {
				return fmt.Errorf("%w: league %s is %s", ErrDraftNotInProgress, leagueID, session.Status)
			}

			picker, _ := session.CurrentPicker()
			if picker != userID {
				return fmt.Errorf("%w: turn %d belongs to %s", ErrNotYourTurn, session.CurrentTurnIndex, picker)
			}

			if p.ID != playerID {
				p, err = a.catalog.GetPlayer(ctx, playerID)
				if err != nil {
					return a.collaboratorError("get player", err)
				}
			}

			taken, err := a.store.HasPick(ctx, leagueID, playerID)
			if err != nil {
				return err
			}
			if taken {
				return fmt.Errorf("%w: player %s in league %s", ErrPlayerAlreadyDrafted, playerID, leagueID)
			}

			now := a.clock.Now()
			pick := models.Pick{
				LeagueID:  leagueID,
				PlayerID:  playerID,
				PickedBy:  userID,
				TurnIndex: session.CurrentTurnIndex,
				PickedAt:  now.UTC(),
			}

			next, err := advanceTransition(session, now)
			if err != nil {
				return err
			}

			saved, err := a.store.CommitPick(ctx, session.Version, pick, next)
			if err != nil {
				return err
			}

			a.syncTimer(saved)

			drafted = pickInfo(saved, pick, p)
			outbox = outbox[:0]
			outbox = a.turnEvents(ctx, outbox, session, saved, false, now)

			result = PickResult{
				Pick:             pick,
				Player:           p,
				CurrentTurnIndex: saved.CurrentTurnIndex,
				Status:           saved.Status,
				Session:          saved,
			}
			return nil
		})
	})
	if err != nil {
		return PickResult{}, a.logOutcome(err, leagueID, "draft player")
	}

	log.Info().
		Str("league_id", leagueID.String()).
		Str("user_id", userID.String()).
		Str("player_id", playerID.String()).
		Int("turn_index", result.Pick.TurnIndex).
		Msg("player drafted")

	// the pool query runs after the lock is released
	available, err := a.catalog.ListAvailablePlayers(ctx, leagueID)
	if err != nil {
		log.Warn().Err(err).Str("league_id", leagueID.String()).Msg("failed to load available players for broadcast")
	}

	draftedEvent, err := events.New(leagueID, events.EventTypePlayerDrafted, result.Session.Version, a.clock.Now(), events.PlayerDraftedPayload{
		Pick:      drafted,
		Message:   draftedMessage(p),
		Available: available,
	})
	if err != nil {
		log.Error().Err(err).Str("league_id", leagueID.String()).Msg("failed to build player drafted event")
	} else {
		outbox = append([]*events.DraftEvent{draftedEvent}, outbox...)
	}

	a.publish(leagueID, outbox)
	return result, nil
}

func draftedMessage(p models.Player) string {
	if p.TeamAbbr == "" {
		return fmt.Sprintf("Player drafted: %s", p.Name)
	}
	return fmt.Sprintf("Player drafted: %s %s", p.TeamAbbr, p.Name)
}

func pickInfo(s models.DraftSession, pick models.Pick, p models.Player) events.PickInfo {
	round, inRound := s.Round(pick.TurnIndex)
	return events.PickInfo{
		PlayerID:     pick.PlayerID.String(),
		PlayerName:   p.Name,
		TeamAbbr:     p.TeamAbbr,
		Role:         p.Role,
		PickedBy:     pick.PickedBy.String(),
		PickedByName: s.DisplayName(pick.PickedBy),
		TurnIndex:    pick.TurnIndex,
		Round:        round,
		PickInRound:  inRound,
		PickedAt:     pick.PickedAt,
	}
}

func orderSlots(s models.DraftSession) []events.OrderSlot {
	slots := make([]events.OrderSlot, len(s.Order))
	for i, id := range s.Order {
		round, inRound := s.Round(i)
		slots[i] = events.OrderSlot{
			TurnIndex:   i,
			Round:       round,
			PickInRound: inRound,
			UserID:      id.String(),
			DisplayName: s.DisplayName(id),
		}
	}
	return slots
}

func turnInfo(s models.DraftSession, now time.Time) events.TurnInfo {
	round, inRound := s.Round(s.CurrentTurnIndex)
	info := events.TurnInfo{
		TurnIndex:   s.CurrentTurnIndex,
		Round:       round,
		PickInRound: inRound,
		TotalTurns:  s.TotalTurns(),
	}
	if picker, ok := s.CurrentPicker(); ok {
		info.UserID = picker.String()
		info.DisplayName = s.DisplayName(picker)
	}
	if s.TurnDeadline != nil {
		deadline := s.TurnDeadline.UTC()
		info.Deadline = &deadline
	}
	remaining := s.Remaining(now)
	info.RemainingMs = remaining.Milliseconds()
	info.RemainingSec = events.RemainingSeconds(remaining)
	return info
}
