package leagues

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/mcdev12/livedraft/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type membershipSource interface {
	GetCommissioner(ctx context.Context, leagueID uuid.UUID) (uuid.UUID, error)
	ListParticipants(ctx context.Context, leagueID uuid.UUID) ([]models.Participant, error)
}

func sampleRecord() Record {
	commissioner := uuid.New()
	return Record{
		League: models.League{ID: uuid.New(), Name: "Sunday League", CommissionerID: commissioner},
		Members: []models.Participant{
			{UserID: commissioner, DisplayName: "Ana"},
			{UserID: uuid.New(), DisplayName: "Ben"},
			{UserID: uuid.New(), DisplayName: "Cal"},
		},
	}
}

func runMembershipContract(t *testing.T, src membershipSource, rec Record, empty models.League) {
	ctx := context.Background()

	t.Run("commissioner", func(t *testing.T) {
		id, err := src.GetCommissioner(ctx, rec.League.ID)
		require.NoError(t, err)
		assert.Equal(t, rec.League.CommissionerID, id)
	})

	t.Run("participants in join order", func(t *testing.T) {
		got, err := src.ListParticipants(ctx, rec.League.ID)
		require.NoError(t, err)
		assert.Equal(t, rec.Members, got)
	})

	t.Run("league without members", func(t *testing.T) {
		got, err := src.ListParticipants(ctx, empty.ID)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("unknown league", func(t *testing.T) {
		_, err := src.GetCommissioner(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrLeagueNotFound)

		_, err = src.ListParticipants(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrLeagueNotFound)
	})
}

func TestMemoryDirectory(t *testing.T) {
	rec := sampleRecord()
	empty := models.League{ID: uuid.New(), Name: "Empty", CommissionerID: uuid.New()}

	d := NewMemoryDirectory(rec, Record{League: empty})
	runMembershipContract(t, d, rec, empty)
}

func TestMemoryDirectoryCopiesMembers(t *testing.T) {
	rec := sampleRecord()
	d := NewMemoryDirectory(rec)

	got, err := d.ListParticipants(context.Background(), rec.League.ID)
	require.NoError(t, err)
	got[0].DisplayName = "changed"

	again, err := d.ListParticipants(context.Background(), rec.League.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", again[0].DisplayName)
}

func TestRepository(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	repo := NewRepository(db)
	require.NoError(t, repo.EnsureSchema(ctx))

	rec := sampleRecord()
	empty := models.League{ID: uuid.New(), Name: "Empty", CommissionerID: uuid.New()}
	for _, l := range []models.League{rec.League, empty} {
		_, err := db.ExecContext(ctx, `INSERT INTO leagues (id, name, commissioner_id) VALUES ($1, $2, $3)`, l.ID, l.Name, l.CommissionerID)
		require.NoError(t, err)
	}
	for i, m := range rec.Members {
		_, err := db.ExecContext(ctx,
			`INSERT INTO league_members (league_id, user_id, display_name, joined_at) VALUES ($1, $2, $3, now() + $4 * interval '1 second')`,
			rec.League.ID, m.UserID, m.DisplayName, i)
		require.NoError(t, err)
	}
	t.Cleanup(func() {
		_, _ = db.ExecContext(ctx, `DELETE FROM leagues WHERE id = ANY($1::uuid[])`, "{"+rec.League.ID.String()+","+empty.ID.String()+"}")
	})

	runMembershipContract(t, repo, rec, empty)
}
