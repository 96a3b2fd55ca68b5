package draft

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/livedraft/go/internal/draft/events"
	"github.com/mcdev12/livedraft/go/internal/models"
	"github.com/rs/zerolog/log"
)

// HandleTurnExpired passes the expired turn and moves the league on. A
// failed advance is retried with backoff until it lands, the turn is no
// longer current, or ctx ends.
func (a *App) HandleTurnExpired(ctx context.Context, leagueID uuid.UUID, turnIndex int) {
	b := a.newBackOff()
	for attempt := 1; ; attempt++ {
		err := a.expireTurn(ctx, leagueID, turnIndex)
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}

		wait := b.NextBackOff()
		log.Warn().
			Err(err).
			Str("league_id", leagueID.String()).
			Int("turn_index", turnIndex).
			Int("attempt", attempt).
			Dur("retry_in", wait).
			Msg("timed advance failed")

		if err := a.sleep(ctx, wait); err != nil {
			return
		}
	}
}

// expireTurn makes one attempt at advancing turnIndex. A stale expiry is
// ignored and the scheduler is pointed back at the stored turn.
func (a *App) expireTurn(ctx context.Context, leagueID uuid.UUID, turnIndex int) error {
	var outbox []*events.DraftEvent
	err := a.inLeague(ctx, leagueID, func() error {
		session, err := a.store.LoadSession(ctx, leagueID)
		if err != nil {
			return err
		}
		if session.Status != models.DraftStatusInProgress {
			return nil
		}
		if session.CurrentTurnIndex != turnIndex {
			log.Debug().
				Str("league_id", leagueID.String()).
				Int("expired_turn", turnIndex).
				Int("current_turn", session.CurrentTurnIndex).
				Msg("ignoring stale turn expiry")
			a.syncTimer(session)
			return nil
		}

		saved, collected, err := a.advanceLocked(ctx, session, true, nil)
		if err != nil {
			// a version conflict reloads on the next attempt
			return err
		}
		outbox = collected

		log.Info().
			Str("league_id", leagueID.String()).
			Int("passed_turn", turnIndex).
			Int("turn_index", saved.CurrentTurnIndex).
			Str("status", string(saved.Status)).
			Msg("turn expired")
		return nil
	})
	if err != nil {
		return err
	}

	a.publish(leagueID, outbox)
	return nil
}

// HandleTurnTick broadcasts the countdown for the armed turn. It runs on the
// scheduler goroutine and must not touch the league's lock.
func (a *App) HandleTurnTick(leagueID uuid.UUID, turnIndex int, remaining time.Duration) {
	if remaining < 0 {
		remaining = 0
	}
	ev, err := events.New(leagueID, events.EventTypeTimerTick, 0, a.clock.Now(), events.TimerTickPayload{
		TurnIndex:    turnIndex,
		RemainingMs:  remaining.Milliseconds(),
		RemainingSec: events.RemainingSeconds(remaining),
	})
	if err != nil {
		log.Error().Err(err).Str("league_id", leagueID.String()).Msg("failed to build timer tick")
		return
	}
	a.sink.Broadcast(leagueID, ev)
}
