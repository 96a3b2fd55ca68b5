package player

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/mcdev12/livedraft/go/internal/draft/store"
	"github.com/mcdev12/livedraft/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type catalog interface {
	GetPlayer(ctx context.Context, id uuid.UUID) (models.Player, error)
	GetPlayers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Player, error)
	ListAvailablePlayers(ctx context.Context, leagueID uuid.UUID) ([]models.Player, error)
}

type fixedPicks map[uuid.UUID][]models.Pick

func (f fixedPicks) ListPicks(_ context.Context, leagueID uuid.UUID) ([]models.Pick, error) {
	return f[leagueID], nil
}

type failingPicks struct{}

func (failingPicks) ListPicks(context.Context, uuid.UUID) ([]models.Pick, error) {
	return nil, errors.New("connection reset")
}

func samplePlayers() []models.Player {
	return []models.Player{
		{ID: uuid.New(), Name: "Bijan Robinson", TeamAbbr: "ATL", Role: "RB"},
		{ID: uuid.New(), Name: "CeeDee Lamb", TeamAbbr: "DAL", Role: "WR"},
		{ID: uuid.New(), Name: "Josh Allen", TeamAbbr: "BUF", Role: "QB"},
	}
}

// runCatalogContract expects players[0] to be drafted in league and nowhere else.
func runCatalogContract(t *testing.T, c catalog, players []models.Player, league uuid.UUID) {
	ctx := context.Background()

	t.Run("get player", func(t *testing.T) {
		got, err := c.GetPlayer(ctx, players[1].ID)
		require.NoError(t, err)
		assert.Equal(t, players[1], got)
	})

	t.Run("unknown player", func(t *testing.T) {
		_, err := c.GetPlayer(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrPlayerNotFound)
	})

	t.Run("get players skips unknown ids", func(t *testing.T) {
		got, err := c.GetPlayers(ctx, []uuid.UUID{players[0].ID, uuid.New(), players[2].ID})
		require.NoError(t, err)
		assert.Len(t, got, 2)
		assert.Equal(t, players[0], got[players[0].ID])
		assert.Equal(t, players[2], got[players[2].ID])
	})

	t.Run("available excludes league picks", func(t *testing.T) {
		got, err := c.ListAvailablePlayers(ctx, league)
		require.NoError(t, err)
		assert.Equal(t, []models.Player{players[1], players[2]}, got)
	})

	t.Run("picks are scoped to their league", func(t *testing.T) {
		got, err := c.ListAvailablePlayers(ctx, uuid.New())
		require.NoError(t, err)
		assert.Equal(t, players, got)
	})
}

func TestMemoryCatalog(t *testing.T) {
	players := samplePlayers()
	league := uuid.New()
	picks := fixedPicks{league: {{LeagueID: league, PlayerID: players[0].ID, PickedBy: uuid.New()}}}

	runCatalogContract(t, NewMemoryCatalog(picks, players...), players, league)
}

func TestMemoryCatalogPickListerFailure(t *testing.T) {
	c := NewMemoryCatalog(failingPicks{}, samplePlayers()...)

	_, err := c.ListAvailablePlayers(context.Background(), uuid.New())
	assert.Error(t, err)
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
	require.NoError(t, store.NewPostgresStore(db).EnsureSchema(ctx))

	// keep the table otherwise empty so ordering assertions hold
	_, err = db.ExecContext(ctx, `DELETE FROM players`)
	require.NoError(t, err)

	players := samplePlayers()
	for _, p := range players {
		_, err := db.ExecContext(ctx, `INSERT INTO players (id, name, team_abbr, role) VALUES ($1, $2, $3, $4)`,
			p.ID, p.Name, p.TeamAbbr, p.Role)
		require.NoError(t, err)
	}

	league := uuid.New()
	_, err = db.ExecContext(ctx,
		`INSERT INTO drafted_players (league_id, player_id, drafted_by, turn_index, picked_at) VALUES ($1, $2, $3, 0, $4)`,
		league, players[0].ID, uuid.New(), time.Now().UTC())
	require.NoError(t, err)

	t.Cleanup(func() {
		_, _ = db.ExecContext(ctx, `DELETE FROM drafted_players WHERE league_id = $1`, league)
		_, _ = db.ExecContext(ctx, `DELETE FROM players`)
	})

	runCatalogContract(t, repo, players, league)
}
