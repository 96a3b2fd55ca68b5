package draft

import (
	"context"
	"fmt"

	"github.com/mcdev12/livedraft/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Recover re-arms the turn timer of every in-progress draft from its stored
// deadline. A deadline that passed while the process was down expires on the
// first tick. It returns the number of leagues re-armed.
func (a *App) Recover(ctx context.Context) (int, error) {
	sessions, err := a.store.ListInProgress(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: list in-progress drafts: %v", ErrUnavailable, err)
	}

	recovered := 0
	for _, listed := range sessions {
		err := a.inLeague(ctx, listed.LeagueID, func() error {
			session, err := a.store.LoadSession(ctx, listed.LeagueID)
			if err != nil {
				return err
			}
			if session.Status != models.DraftStatusInProgress {
				return nil
			}
			a.syncTimer(session)
			recovered++

			log.Info().
				Str("league_id", session.LeagueID.String()).
				Int("turn_index", session.CurrentTurnIndex).
				Dur("remaining", session.Remaining(a.clock.Now())).
				Msg("draft timer recovered")
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return recovered, ctx.Err()
			}
			log.Error().Err(err).Str("league_id", listed.LeagueID.String()).Msg("failed to recover draft")
		}
	}
	return recovered, nil
}
