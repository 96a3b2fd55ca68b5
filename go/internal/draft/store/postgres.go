package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/livedraft/go/internal/models"
	"github.com/mcdev12/livedraft/go/internal/sqlutil"
)

//go:embed schema.sql
var schemaSQL string

// PostgresStore is the durable DraftStore backed by Postgres.
type PostgresStore struct {
	db      *sql.DB
	queries *Queries
}

// NewPostgresStore creates a store over an open *sql.DB (driver "postgres").
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:      db,
		queries: NewQueries(db),
	}
}

var _ DraftStore = (*PostgresStore)(nil)

// EnsureSchema creates the draft tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply draft schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) LoadSession(ctx context.Context, leagueID uuid.UUID) (models.DraftSession, error) {
	row, err := s.queries.GetDraftSession(ctx, leagueID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.NewDraftSession(leagueID), nil
	}
	if err != nil {
		return models.DraftSession{}, fmt.Errorf("failed to load draft session: %w", err)
	}
	return rowToSession(row)
}

func (s *PostgresStore) SaveSession(ctx context.Context, expectedVersion int64, next models.DraftSession) (models.DraftSession, error) {
	row, err := sessionToRow(next)
	if err != nil {
		return models.DraftSession{}, err
	}

	if err := writeSession(ctx, s.queries, row, expectedVersion); err != nil {
		return models.DraftSession{}, err
	}

	saved := next.Clone()
	saved.Version = expectedVersion + 1
	return saved, nil
}

func (s *PostgresStore) CommitPick(ctx context.Context, expectedVersion int64, pick models.Pick, next models.DraftSession) (models.DraftSession, error) {
	row, err := sessionToRow(next)
	if err != nil {
		return models.DraftSession{}, err
	}

	pickedAt := pick.PickedAt
	err = sqlutil.Run(ctx, s.db, s.queries.WithTx, func(q *Queries) error {
		if err := q.InsertDraftedPlayer(ctx, pick.LeagueID, pick.PlayerID, pick.PickedBy, int32(pick.TurnIndex), sqlutil.ToSqlTime(&pickedAt)); err != nil {
			if sqlutil.IsUniqueViolation(err) {
				return ErrDuplicatePick
			}
			return fmt.Errorf("failed to insert drafted player: %w", err)
		}
		return writeSession(ctx, q, row, expectedVersion)
	})
	if err != nil {
		return models.DraftSession{}, err
	}

	saved := next.Clone()
	saved.Version = expectedVersion + 1
	return saved, nil
}

func (s *PostgresStore) HasPick(ctx context.Context, leagueID, playerID uuid.UUID) (bool, error) {
	exists, err := s.queries.DraftedPlayerExists(ctx, leagueID, playerID)
	if err != nil {
		return false, fmt.Errorf("failed to check drafted player: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) ListPicks(ctx context.Context, leagueID uuid.UUID) ([]models.Pick, error) {
	rows, err := s.queries.ListDraftedPlayers(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafted players: %w", err)
	}

	picks := make([]models.Pick, 0, len(rows))
	for _, r := range rows {
		p := models.Pick{
			LeagueID:  r.LeagueID,
			PlayerID:  r.PlayerID,
			PickedBy:  r.DraftedBy,
			TurnIndex: int(r.TurnIndex),
		}
		if t := sqlutil.FromSqlTime(r.PickedAt); t != nil {
			p.PickedAt = *t
		}
		picks = append(picks, p)
	}
	return picks, nil
}

func (s *PostgresStore) ListInProgress(ctx context.Context) ([]models.DraftSession, error) {
	rows, err := s.queries.ListDraftSessionsByStatus(ctx, string(models.DraftStatusInProgress))
	if err != nil {
		return nil, fmt.Errorf("failed to list in-progress sessions: %w", err)
	}

	sessions := make([]models.DraftSession, 0, len(rows))
	for _, r := range rows {
		session, err := rowToSession(r)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

func writeSession(ctx context.Context, q *Queries, row draftSessionRow, expectedVersion int64) error {
	var (
		affected int64
		err      error
	)
	if expectedVersion == 0 {
		affected, err = q.InsertDraftSession(ctx, row)
	} else {
		affected, err = q.UpdateDraftSession(ctx, row, expectedVersion)
	}
	if err != nil {
		return fmt.Errorf("failed to write draft session: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: league %s expected version %d", ErrVersionConflict, row.LeagueID, expectedVersion)
	}
	return nil
}

func sessionToRow(s models.DraftSession) (draftSessionRow, error) {
	participants := s.Participants
	if participants == nil {
		participants = []models.Participant{}
	}
	participantsJSON, err := json.Marshal(participants)
	if err != nil {
		return draftSessionRow{}, fmt.Errorf("failed to marshal participants: %w", err)
	}

	order := make([]string, len(s.Order))
	for i, id := range s.Order {
		order[i] = id.String()
	}

	return draftSessionRow{
		LeagueID:         s.LeagueID,
		Status:           string(s.Status),
		DraftOrder:       order,
		Participants:     participantsJSON,
		CurrentTurnIndex: int32(s.CurrentTurnIndex),
		TurnDeadline:     sqlutil.ToSqlTime(s.TurnDeadline),
		TurnDurationMs:   s.TurnDuration.Milliseconds(),
		RoundCount:       int32(s.RoundCount),
		EndReason:        string(s.EndReason),
		StartedAt:        sqlutil.ToSqlTime(s.StartedAt),
		EndedAt:          sqlutil.ToSqlTime(s.EndedAt),
	}, nil
}

func rowToSession(r draftSessionRow) (models.DraftSession, error) {
	order := make([]uuid.UUID, len(r.DraftOrder))
	for i, raw := range r.DraftOrder {
		id, err := uuid.Parse(raw)
		if err != nil {
			return models.DraftSession{}, fmt.Errorf("invalid participant id %q in draft order: %w", raw, err)
		}
		order[i] = id
	}

	var participants []models.Participant
	if len(r.Participants) > 0 {
		if err := json.Unmarshal(r.Participants, &participants); err != nil {
			return models.DraftSession{}, fmt.Errorf("failed to unmarshal participants: %w", err)
		}
	}

	return models.DraftSession{
		LeagueID:         r.LeagueID,
		Status:           models.DraftStatus(r.Status),
		Order:            order,
		Participants:     participants,
		CurrentTurnIndex: int(r.CurrentTurnIndex),
		TurnDeadline:     sqlutil.FromSqlTime(r.TurnDeadline),
		TurnDuration:     time.Duration(r.TurnDurationMs) * time.Millisecond,
		RoundCount:       int(r.RoundCount),
		EndReason:        models.EndReason(r.EndReason),
		StartedAt:        sqlutil.FromSqlTime(r.StartedAt),
		EndedAt:          sqlutil.FromSqlTime(r.EndedAt),
		Version:          r.Version,
	}, nil
}
