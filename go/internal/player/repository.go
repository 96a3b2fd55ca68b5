package player

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mcdev12/livedraft/go/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// Schema returns the DDL for the player tables.
func Schema() string {
	return schemaSQL
}

const (
	getPlayer = `SELECT id, name, team_abbr, role FROM players WHERE id = $1`

	getPlayers = `SELECT id, name, team_abbr, role FROM players WHERE id = ANY($1::uuid[])`

	// drafted_players is owned by the draft store
	listAvailablePlayers = `SELECT p.id, p.name, p.team_abbr, p.role
FROM players p
LEFT JOIN drafted_players d ON d.player_id = p.id AND d.league_id = $1
WHERE d.player_id IS NULL
ORDER BY p.name, p.id`
)

// Repository is the Postgres player catalog
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new player repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the players table if it does not exist
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply player schema: %w", err)
	}
	return nil
}

// GetPlayer retrieves a player by ID
func (r *Repository) GetPlayer(ctx context.Context, id uuid.UUID) (models.Player, error) {
	p, err := scanPlayer(r.db.QueryRowContext(ctx, getPlayer, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Player{}, fmt.Errorf("%w: %s", ErrPlayerNotFound, id)
	}
	if err != nil {
		return models.Player{}, fmt.Errorf("failed to get player: %w", err)
	}
	return p, nil
}

// GetPlayers retrieves the players that exist among ids, keyed by id
func (r *Repository) GetPlayers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Player, error) {
	out := make(map[uuid.UUID]models.Player, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}

	players, err := r.list(ctx, getPlayers, pq.Array(strs))
	if err != nil {
		return nil, fmt.Errorf("failed to get players: %w", err)
	}
	for _, p := range players {
		out[p.ID] = p
	}
	return out, nil
}

// ListAvailablePlayers returns every player not yet drafted in the league
func (r *Repository) ListAvailablePlayers(ctx context.Context, leagueID uuid.UUID) ([]models.Player, error) {
	players, err := r.list(ctx, listAvailablePlayers, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list available players: %w", err)
	}
	return players, nil
}

func (r *Repository) list(ctx context.Context, query string, args ...interface{}) ([]models.Player, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	players := []models.Player{}
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPlayer(row rowScanner) (models.Player, error) {
	var p models.Player
	err := row.Scan(&p.ID, &p.Name, &p.TeamAbbr, &p.Role)
	return p, err
}
