// Package draft coordinates live drafts: the per-league state machine, the
// pick transaction and the turn timer callbacks.
package draft

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/livedraft/go/internal/draft/events"
	"github.com/mcdev12/livedraft/go/internal/draft/order"
	"github.com/mcdev12/livedraft/go/internal/draft/store"
	"github.com/mcdev12/livedraft/go/internal/leagues"
	"github.com/mcdev12/livedraft/go/internal/models"
	"github.com/mcdev12/livedraft/go/internal/player"
	"github.com/rs/zerolog/log"
)

// MembershipSource supplies a league's participants and commissioner
type MembershipSource interface {
	ListParticipants(ctx context.Context, leagueID uuid.UUID) ([]models.Participant, error)
	GetCommissioner(ctx context.Context, leagueID uuid.UUID) (uuid.UUID, error)
}

// PlayerCatalog supplies player details and the undrafted pool
type PlayerCatalog interface {
	GetPlayer(ctx context.Context, playerID uuid.UUID) (models.Player, error)
	GetPlayers(ctx context.Context, playerIDs []uuid.UUID) (map[uuid.UUID]models.Player, error)
	ListAvailablePlayers(ctx context.Context, leagueID uuid.UUID) ([]models.Player, error)
}

// TurnScheduler owns the per-league countdown
type TurnScheduler interface {
	Arm(leagueID uuid.UUID, turnIndex int, d time.Duration)
	Cancel(leagueID uuid.UUID)
}

// Dependencies are the collaborators an App is built from. Generator, Clock
// and Sink are optional.
type Dependencies struct {
	Store     store.DraftStore
	Members   MembershipSource
	Catalog   PlayerCatalog
	Scheduler TurnScheduler
	Sink      events.Sink
	Generator *order.Generator
	Clock     clockwork.Clock
}

// App is the single writer for every league's draft session
type App struct {
	cfg       Config
	store     store.DraftStore
	members   MembershipSource
	catalog   PlayerCatalog
	scheduler TurnScheduler
	sink      events.Sink
	generator *order.Generator
	clock     clockwork.Clock
	locks     *leagueLocks
}

// NewApp creates a new draft App
func NewApp(cfg Config, deps Dependencies) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid draft config: %w", err)
	}
	if deps.Store == nil || deps.Members == nil || deps.Catalog == nil || deps.Scheduler == nil {
		return nil, errors.New("draft app requires a store, membership source, player catalog and scheduler")
	}

	app := &App{
		cfg:       cfg,
		store:     deps.Store,
		members:   deps.Members,
		catalog:   deps.Catalog,
		scheduler: deps.Scheduler,
		sink:      deps.Sink,
		generator: deps.Generator,
		clock:     deps.Clock,
		locks:     newLeagueLocks(),
	}
	if app.generator == nil {
		app.generator = order.NewGenerator()
	}
	if app.clock == nil {
		app.clock = clockwork.NewRealClock()
	}
	if app.sink == nil {
		app.sink = events.Fanout{}
	}
	return app, nil
}

// StartDraft generates the order and puts the league's draft in progress.
// Only the league commissioner may start a draft.
func (a *App) StartDraft(ctx context.Context, leagueID, requesterID uuid.UUID) (models.DraftSession, error) {
	if err := a.requireCommissioner(ctx, leagueID, requesterID); err != nil {
		return models.DraftSession{}, err
	}

	var (
		saved        models.DraftSession
		outbox       []*events.DraftEvent
		participants []models.Participant
		generated    []uuid.UUID
		attempted    = int64(-1)
	)
	err := a.inLeague(ctx, leagueID, func() error {
		return a.withRetry(ctx, leagueID, "start draft", func() error {
			session, err := a.store.LoadSession(ctx, leagueID)
			if err != nil {
				return err
			}

			now := a.clock.Now()
			switch {
			case session.Status == models.DraftStatusNotStarted:
				if participants == nil {
					participants, err = a.members.ListParticipants(ctx, leagueID)
					if err != nil {
						return a.collaboratorError("list participants", err)
					}
				}
				if len(participants) == 0 {
					return fmt.Errorf("start draft for league %s: %w", leagueID, ErrNoParticipants)
				}

				if generated == nil {
					ids := make([]uuid.UUID, len(participants))
					for i, p := range participants {
						ids[i] = p.UserID
					}
					generated, err = a.generator.Generate(ids, a.cfg.RoundCount)
					if err != nil {
						return fmt.Errorf("%w: %v", ErrInvalidInput, err)
					}
				}

				next, err := startTransition(session, generated, participants, a.cfg.RoundCount, a.cfg.TurnDuration, now)
				if err != nil {
					return err
				}

				attempted = session.Version
				saved, err = a.store.SaveSession(ctx, session.Version, next)
				if err != nil {
					return err
				}
			case startLanded(session, attempted, generated):
				// an earlier attempt was stored even though its write reported an error
				saved = session
			default:
				return fmt.Errorf("%w: league %s is %s", ErrAlreadyStarted, leagueID, session.Status)
			}

			a.syncTimer(saved)
			outbox = a.collect(outbox[:0], leagueID, events.EventTypeDraftStarted, saved.Version, now, events.DraftStartedPayload{
				StartedAt:       now.UTC(),
				RoundCount:      saved.RoundCount,
				TurnDurationSec: int(saved.TurnDuration / time.Second),
				Order:           orderSlots(saved),
				Turn:            turnInfo(saved, now),
			})
			return nil
		})
	})
	if err != nil {
		return models.DraftSession{}, a.logOutcome(err, leagueID, "start draft")
	}

	log.Info().
		Str("league_id", leagueID.String()).
		Int("participants", len(participants)).
		Int("total_turns", saved.TotalTurns()).
		Msg("draft started")

	a.publish(leagueID, outbox)
	return saved, nil
}

// EndDraft force-ends the league's draft. Ending an ended draft is a no-op.
func (a *App) EndDraft(ctx context.Context, leagueID, requesterID uuid.UUID) (models.DraftSession, error) {
	if err := a.requireCommissioner(ctx, leagueID, requesterID); err != nil {
		return models.DraftSession{}, err
	}

	var (
		result models.DraftSession
		outbox []*events.DraftEvent
	)
	err := a.inLeague(ctx, leagueID, func() error {
		return a.withRetry(ctx, leagueID, "end draft", func() error {
			session, err := a.store.LoadSession(ctx, leagueID)
			if err != nil {
				return err
			}

			now := a.clock.Now()
			next, changed := endTransition(session, now)
			if !changed {
				result = session
				outbox = outbox[:0]
				a.syncTimer(session)
				return nil
			}

			result, err = a.store.SaveSession(ctx, session.Version, next)
			if err != nil {
				return err
			}

			a.syncTimer(result)
			outbox = a.collect(outbox[:0], leagueID, events.EventTypeDraftEnded, result.Version, now, a.endedPayload(ctx, result, now))
			return nil
		})
	})
	if err != nil {
		return models.DraftSession{}, a.logOutcome(err, leagueID, "end draft")
	}

	log.Info().
		Str("league_id", leagueID.String()).
		Str("requester_id", requesterID.String()).
		Int("turn_index", result.CurrentTurnIndex).
		Msg("draft ended")

	a.publish(leagueID, outbox)
	return result, nil
}

// Advance moves the league to its next turn as a pass.
func (a *App) Advance(ctx context.Context, leagueID uuid.UUID) (models.DraftSession, error) {
	var (
		result models.DraftSession
		outbox []*events.DraftEvent
	)
	err := a.inLeague(ctx, leagueID, func() error {
		return a.withRetry(ctx, leagueID, "advance", func() error {
			session, err := a.store.LoadSession(ctx, leagueID)
			if err != nil {
				return err
			}
			result, outbox, err = a.advanceLocked(ctx, session, true, outbox[:0])
			return err
		})
	})
	if err != nil {
		return models.DraftSession{}, a.logOutcome(err, leagueID, "advance")
	}

	a.publish(leagueID, outbox)
	return result, nil
}

// ListAvailablePlayers returns the catalog minus the league's picks.
func (a *App) ListAvailablePlayers(ctx context.Context, leagueID uuid.UUID) ([]models.Player, error) {
	players, err := a.catalog.ListAvailablePlayers(ctx, leagueID)
	if err != nil {
		return nil, a.collaboratorError("list available players", err)
	}
	return players, nil
}

// advanceLocked persists one advance from session and syncs the timer.
// The caller must hold the league's lock.
func (a *App) advanceLocked(ctx context.Context, session models.DraftSession, passed bool, outbox []*events.DraftEvent) (models.DraftSession, []*events.DraftEvent, error) {
	now := a.clock.Now()
	next, err := advanceTransition(session, now)
	if err != nil {
		return models.DraftSession{}, outbox, err
	}

	saved, err := a.store.SaveSession(ctx, session.Version, next)
	if err != nil {
		return models.DraftSession{}, outbox, err
	}

	a.syncTimer(saved)
	return saved, a.turnEvents(ctx, outbox, session, saved, passed, now), nil
}

// turnEvents appends TurnChanged, or DraftEnded when the order is exhausted.
func (a *App) turnEvents(ctx context.Context, outbox []*events.DraftEvent, prev, saved models.DraftSession, passed bool, now time.Time) []*events.DraftEvent {
	if saved.Status == models.DraftStatusEnded {
		return a.collect(outbox, saved.LeagueID, events.EventTypeDraftEnded, saved.Version, now, a.endedPayload(ctx, saved, now))
	}
	return a.collect(outbox, saved.LeagueID, events.EventTypeTurnChanged, saved.Version, now, events.TurnChangedPayload{
		PreviousTurnIndex: prev.CurrentTurnIndex,
		Passed:            passed,
		Turn:              turnInfo(saved, now),
	})
}

func (a *App) endedPayload(ctx context.Context, s models.DraftSession, now time.Time) events.DraftEndedPayload {
	total := 0
	if picks, err := a.store.ListPicks(ctx, s.LeagueID); err == nil {
		total = len(picks)
	} else {
		log.Warn().Err(err).Str("league_id", s.LeagueID.String()).Msg("failed to count picks for draft ended event")
	}
	return events.DraftEndedPayload{
		Reason:     string(s.EndReason),
		EndedAt:    now.UTC(),
		TotalPicks: total,
	}
}

// syncTimer makes the scheduler match a persisted session.
func (a *App) syncTimer(s models.DraftSession) {
	if s.Status != models.DraftStatusInProgress {
		a.scheduler.Cancel(s.LeagueID)
		return
	}
	remaining := a.cfg.TurnDuration
	if s.TurnDeadline != nil {
		remaining = s.TurnDeadline.Sub(a.clock.Now())
	}
	a.scheduler.Arm(s.LeagueID, s.CurrentTurnIndex, remaining)
}

func (a *App) requireCommissioner(ctx context.Context, leagueID, requesterID uuid.UUID) error {
	commissionerID, err := a.members.GetCommissioner(ctx, leagueID)
	if err != nil {
		return a.collaboratorError("get commissioner", err)
	}
	if commissionerID != requesterID {
		log.Debug().
			Str("league_id", leagueID.String()).
			Str("requester_id", requesterID.String()).
			Msg("rejected non-commissioner request")
		return fmt.Errorf("%w: league %s", ErrNotCommissioner, leagueID)
	}
	return nil
}

func (a *App) collaboratorError(op string, err error) error {
	switch {
	case errors.Is(err, leagues.ErrLeagueNotFound), errors.Is(err, player.ErrPlayerNotFound):
		return fmt.Errorf("%w: %s: %v", ErrInvalidInput, op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
	}
}

// startLanded reports whether session is the write of an earlier start
// attempt made from attemptedVersion with order generated.
func startLanded(session models.DraftSession, attemptedVersion int64, generated []uuid.UUID) bool {
	return attemptedVersion >= 0 &&
		session.Status == models.DraftStatusInProgress &&
		session.Version == attemptedVersion+1 &&
		slices.Equal(session.Order, generated)
}

// inLeague runs fn inside the league's critical section.
func (a *App) inLeague(ctx context.Context, leagueID uuid.UUID, fn func() error) error {
	release, err := a.locks.acquire(ctx, leagueID)
	if err != nil {
		return fmt.Errorf("waiting for league %s: %w", leagueID, err)
	}
	defer release()
	return fn()
}

func (a *App) collect(outbox []*events.DraftEvent, leagueID uuid.UUID, t events.EventType, seq int64, now time.Time, payload any) []*events.DraftEvent {
	ev, err := events.New(leagueID, t, seq, now, payload)
	if err != nil {
		log.Error().Err(err).Str("league_id", leagueID.String()).Str("event_type", string(t)).Msg("failed to build event")
		return outbox
	}
	return append(outbox, ev)
}

// publish hands events to the sink. It must be called outside the league's lock.
func (a *App) publish(leagueID uuid.UUID, outbox []*events.DraftEvent) {
	for _, ev := range outbox {
		a.sink.Broadcast(leagueID, ev)
	}
}

func (a *App) logOutcome(err error, leagueID uuid.UUID, op string) error {
	switch {
	case IsStateConflict(err), errors.Is(err, ErrNotCommissioner), errors.Is(err, ErrInvalidInput):
		log.Debug().Err(err).Str("league_id", leagueID.String()).Str("op", op).Msg("draft request rejected")
	case errors.Is(err, ErrUnavailable):
		log.Error().Err(err).Str("league_id", leagueID.String()).Str("op", op).Msg("draft request failed")
	default:
		log.Warn().Err(err).Str("league_id", leagueID.String()).Str("op", op).Msg("draft request aborted")
	}
	return err
}
