package leagues

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/livedraft/go/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// Schema returns the DDL for the leagues tables.
func Schema() string {
	return schemaSQL
}

const (
	getCommissioner = `SELECT commissioner_id FROM leagues WHERE id = $1`

	leagueExists = `SELECT EXISTS (SELECT 1 FROM leagues WHERE id = $1)`

	listMembers = `SELECT user_id, display_name FROM league_members
WHERE league_id = $1
ORDER BY joined_at, user_id`
)

// Repository reads league membership from Postgres
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new leagues repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the league tables if they do not exist
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply leagues schema: %w", err)
	}
	return nil
}

// GetCommissioner returns the user allowed to start and end the league's draft
func (r *Repository) GetCommissioner(ctx context.Context, leagueID uuid.UUID) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.QueryRowContext(ctx, getCommissioner, leagueID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrLeagueNotFound, leagueID)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to get commissioner: %w", err)
	}
	return id, nil
}

// ListParticipants returns the league's members in join order
func (r *Repository) ListParticipants(ctx context.Context, leagueID uuid.UUID) ([]models.Participant, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, leagueExists, leagueID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check league: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrLeagueNotFound, leagueID)
	}

	rows, err := r.db.QueryContext(ctx, listMembers, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var participants []models.Participant
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.UserID, &p.DisplayName); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return participants, nil
}
