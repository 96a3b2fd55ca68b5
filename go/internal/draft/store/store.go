// Package store persists draft sessions and committed picks.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/mcdev12/livedraft/go/internal/models"
)

var (
	// ErrVersionConflict means the stored session changed since it was loaded.
	ErrVersionConflict = errors.New("draft session version conflict")

	// ErrDuplicatePick means the player already has a pick in the league.
	ErrDuplicatePick = errors.New("player already drafted in league")
)

// DraftStore is the durable record for draft sessions and picks.
//
// Writes are compare-and-set on DraftSession.Version: a write succeeds only
// when the stored version still equals expectedVersion, and the stored copy
// is returned with its version bumped. A session that was never written has
// version 0.
type DraftStore interface {
	// LoadSession returns the stored session, or a NotStarted session when
	// the league has none.
	LoadSession(ctx context.Context, leagueID uuid.UUID) (models.DraftSession, error)

	// SaveSession writes next if the stored version equals expectedVersion.
	SaveSession(ctx context.Context, expectedVersion int64, next models.DraftSession) (models.DraftSession, error)

	// CommitPick appends pick and writes next as one atomic unit. Neither
	// is applied if either fails.
	CommitPick(ctx context.Context, expectedVersion int64, pick models.Pick, next models.DraftSession) (models.DraftSession, error)

	HasPick(ctx context.Context, leagueID, playerID uuid.UUID) (bool, error)
	ListPicks(ctx context.Context, leagueID uuid.UUID) ([]models.Pick, error)

	// ListInProgress returns every session whose status is InProgress.
	ListInProgress(ctx context.Context) ([]models.DraftSession, error)
}

// IsPersistenceError reports whether err is a storage failure rather than a
// compare-and-set or uniqueness outcome.
func IsPersistenceError(err error) bool {
	return err != nil && !errors.Is(err, ErrDuplicatePick) && !errors.Is(err, ErrVersionConflict)
}
