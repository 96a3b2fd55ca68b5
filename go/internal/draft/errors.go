package draft

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned for bad arguments before any state change.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoParticipants is an ErrInvalidInput for a league with no members.
	ErrNoParticipants = fmt.Errorf("%w: league has no participants", ErrInvalidInput)

	ErrAlreadyStarted       = errors.New("draft already started")
	ErrNotYourTurn          = errors.New("not your turn")
	ErrPlayerAlreadyDrafted = errors.New("player already drafted")
	ErrDraftNotInProgress   = errors.New("draft not in progress")

	// ErrNotCommissioner is returned when a non-commissioner starts or ends a draft.
	ErrNotCommissioner = errors.New("requester is not the league commissioner")

	// ErrUnavailable is returned when persistence keeps failing after retries.
	ErrUnavailable = errors.New("draft temporarily unavailable")
)

// IsStateConflict reports whether err is an expected outcome of concurrent
// play rather than a failure.
func IsStateConflict(err error) bool {
	return errors.Is(err, ErrAlreadyStarted) ||
		errors.Is(err, ErrNotYourTurn) ||
		errors.Is(err, ErrPlayerAlreadyDrafted) ||
		errors.Is(err, ErrDraftNotInProgress)
}

// isDomainError reports whether err is a final answer that retrying cannot change.
func isDomainError(err error) bool {
	return IsStateConflict(err) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrNotCommissioner)
}
