// Package identity carries the already-verified caller id through HTTP,
// connect and WebSocket requests.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"github.com/google/uuid"
)

const (
	// UserIDHeader holds the caller's user id on HTTP and connect requests.
	UserIDHeader = "X-User-ID"

	// UserIDQueryParam is accepted on WebSocket upgrades, where browsers
	// cannot set headers.
	UserIDQueryParam = "user_id"
)

// ErrMissingUserID is returned when a request carries no usable user id.
var ErrMissingUserID = errors.New("missing user id")

type userIDKey struct{}

// WithUserID returns a context carrying userID.
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext returns the user id stored by WithUserID.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey{}).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// ParseUserID parses a raw header or query value.
func ParseUserID(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, ErrMissingUserID
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: %q is not a user id", ErrMissingUserID, raw)
	}
	return id, nil
}

// FromHeader reads the user id from UserIDHeader.
func FromHeader(h http.Header) (uuid.UUID, error) {
	return ParseUserID(h.Get(UserIDHeader))
}

// FromRequest reads the user id from the header, falling back to the query.
func FromRequest(r *http.Request) (uuid.UUID, error) {
	if raw := r.Header.Get(UserIDHeader); raw != "" {
		return ParseUserID(raw)
	}
	return ParseUserID(r.URL.Query().Get(UserIDQueryParam))
}

// NewInterceptor rejects connect calls without a user id and stores the id
// in the handler's context.
func NewInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if req.Spec().IsClient {
				return next(ctx, req)
			}
			id, err := FromHeader(req.Header())
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}
			return next(WithUserID(ctx, id), req)
		}
	}
}

// NewClientInterceptor stamps userID on every outgoing connect call.
func NewClientInterceptor(userID uuid.UUID) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if req.Spec().IsClient {
				req.Header().Set(UserIDHeader, userID.String())
			}
			return next(ctx, req)
		}
	}
}
