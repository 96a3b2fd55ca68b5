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

// SnapshotFunc receives a league's snapshot and the session version it was
// built from.
type SnapshotFunc func(snapshot events.SnapshotPayload, seq int64)

// WithSnapshot builds the league's snapshot and hands it to fn while the
// league's lock is held, so no event for a later version can be published
// before fn returns. fn must not call back into the App.
func (a *App) WithSnapshot(ctx context.Context, leagueID uuid.UUID, fn SnapshotFunc) error {
	return a.inLeague(ctx, leagueID, func() error {
		snapshot, seq, err := a.snapshot(ctx, leagueID)
		if err != nil {
			return err
		}
		fn(snapshot, seq)
		return nil
	})
}

// GetDraftState returns the league's current snapshot without a connection.
func (a *App) GetDraftState(ctx context.Context, leagueID uuid.UUID) (events.SnapshotPayload, int64, error) {
	return a.snapshot(ctx, leagueID)
}

func (a *App) snapshot(ctx context.Context, leagueID uuid.UUID) (events.SnapshotPayload, int64, error) {
	session, err := a.store.LoadSession(ctx, leagueID)
	if err != nil {
		return events.SnapshotPayload{}, 0, fmt.Errorf("%w: load session: %v", ErrUnavailable, err)
	}
	picks, err := a.store.ListPicks(ctx, leagueID)
	if err != nil {
		return events.SnapshotPayload{}, 0, fmt.Errorf("%w: list picks: %v", ErrUnavailable, err)
	}

	return buildSnapshot(session, picks, a.pickedPlayers(ctx, leagueID, picks), a.clock.Now()), session.Version, nil
}

// pickedPlayers resolves catalog details for picks. A catalog failure only
// costs the snapshot its player names.
func (a *App) pickedPlayers(ctx context.Context, leagueID uuid.UUID, picks []models.Pick) map[uuid.UUID]models.Player {
	if len(picks) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(picks))
	for i, p := range picks {
		ids[i] = p.PlayerID
	}
	players, err := a.catalog.GetPlayers(ctx, ids)
	if err != nil {
		log.Warn().Err(err).Str("league_id", leagueID.String()).Msg("failed to resolve drafted players for snapshot")
		return nil
	}
	return players
}

func buildSnapshot(s models.DraftSession, picks []models.Pick, players map[uuid.UUID]models.Player, now time.Time) events.SnapshotPayload {
	snapshot := events.SnapshotPayload{
		Status:          string(s.Status),
		RoundCount:      s.RoundCount,
		TurnDurationSec: int(s.TurnDuration / time.Second),
		Order:           orderSlots(s),
		CurrentIndex:    s.CurrentTurnIndex,
		Picks:           make([]events.PickInfo, 0, len(picks)),
		Connected:       []events.ConnectedParticipant{},
		EndReason:       string(s.EndReason),
	}
	if s.Status == models.DraftStatusInProgress {
		turn := turnInfo(s, now)
		snapshot.CurrentTurn = &turn
	}
	for _, pick := range picks {
		p, ok := players[pick.PlayerID]
		if !ok {
			p = models.Player{ID: pick.PlayerID}
		}
		snapshot.Picks = append(snapshot.Picks, pickInfo(s, pick, p))
	}
	return snapshot
}
