package draft

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/mcdev12/livedraft/go/internal/draft/store"
	"github.com/rs/zerolog/log"
)

// withRetry runs op up to Retry.MaxAttempts times while it fails with a
// persistence error or a version conflict. Each attempt must reload state,
// so a retried write is validated again. Exhausted retries surface as ErrUnavailable.
func (a *App) withRetry(ctx context.Context, leagueID uuid.UUID, opName string, op func() error) error {
	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := op()
		switch {
		case err == nil:
			return struct{}{}, nil
		case errors.Is(err, store.ErrDuplicatePick):
			return struct{}{}, backoff.Permanent(fmt.Errorf("%w: %v", ErrPlayerAlreadyDrafted, err))
		case isDomainError(err), errors.Is(err, ErrUnavailable), ctx.Err() != nil:
			return struct{}{}, backoff.Permanent(err)
		case !store.IsPersistenceError(err):
			log.Debug().
				Err(err).
				Str("league_id", leagueID.String()).
				Str("op", opName).
				Int("attempt", attempt).
				Msg("draft session changed under write, reloading")
			return struct{}{}, err
		}

		log.Warn().
			Err(err).
			Str("league_id", leagueID.String()).
			Str("op", opName).
			Int("attempt", attempt).
			Msg("draft persistence failed, retrying")
		return struct{}{}, err
	},
		backoff.WithBackOff(a.newBackOff()),
		backoff.WithMaxTries(uint(a.cfg.Retry.MaxAttempts)),
	)
	if err == nil {
		return nil
	}
	if isDomainError(err) || errors.Is(err, ErrUnavailable) || ctx.Err() != nil {
		return err
	}
	return fmt.Errorf("%w: %s failed after %d attempts: %v", ErrUnavailable, opName, attempt, err)
}

func (a *App) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = a.cfg.Retry.InitialInterval
	b.MaxInterval = a.cfg.Retry.MaxInterval
	b.Reset()
	return b
}

// sleep waits d on the app clock or until ctx ends.
func (a *App) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-a.clock.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
