package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextRoundTrip(t *testing.T) {
	id := uuid.New()

	got, ok := UserIDFromContext(WithUserID(context.Background(), id))
	require.True(t, ok)
	assert.Equal(t, id, got)

	_, ok = UserIDFromContext(context.Background())
	assert.False(t, ok)

	_, ok = UserIDFromContext(WithUserID(context.Background(), uuid.Nil))
	assert.False(t, ok)
}

func TestParseUserID(t *testing.T) {
	id := uuid.New()

	got, err := ParseUserID("  " + id.String() + " ")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	for _, raw := range []string{"", "   ", "user-123", uuid.Nil.String()} {
		_, err := ParseUserID(raw)
		assert.ErrorIs(t, err, ErrMissingUserID, raw)
	}
}

func TestFromRequest(t *testing.T) {
	headerID, queryID := uuid.New(), uuid.New()

	r := httptest.NewRequest(http.MethodGet, "/ws/draft/x?user_id="+queryID.String(), nil)
	got, err := FromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, queryID, got)

	r.Header.Set(UserIDHeader, headerID.String())
	got, err = FromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, headerID, got)

	_, err = FromRequest(httptest.NewRequest(http.MethodGet, "/ws/draft/x", nil))
	assert.ErrorIs(t, err, ErrMissingUserID)
}
