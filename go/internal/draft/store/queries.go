package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries holds the hand-written SQL for the draft tables.
type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type draftSessionRow struct {
	LeagueID         uuid.UUID
	Status           string
	DraftOrder       []string
	Participants     []byte
	CurrentTurnIndex int32
	TurnDeadline     sql.NullTime
	TurnDurationMs   int64
	RoundCount       int32
	EndReason        string
	StartedAt        sql.NullTime
	EndedAt          sql.NullTime
	Version          int64
}

const draftSessionColumns = `league_id, status, draft_order, participants, current_turn_index,
	turn_deadline, turn_duration_ms, round_count, end_reason, started_at, ended_at, version`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDraftSession(row rowScanner) (draftSessionRow, error) {
	var r draftSessionRow
	err := row.Scan(
		&r.LeagueID,
		&r.Status,
		pq.Array(&r.DraftOrder),
		&r.Participants,
		&r.CurrentTurnIndex,
		&r.TurnDeadline,
		&r.TurnDurationMs,
		&r.RoundCount,
		&r.EndReason,
		&r.StartedAt,
		&r.EndedAt,
		&r.Version,
	)
	return r, err
}

const getDraftSession = `SELECT ` + draftSessionColumns + ` FROM draft_sessions WHERE league_id = $1`

func (q *Queries) GetDraftSession(ctx context.Context, leagueID uuid.UUID) (draftSessionRow, error) {
	return scanDraftSession(q.db.QueryRowContext(ctx, getDraftSession, leagueID))
}

const listDraftSessionsByStatus = `SELECT ` + draftSessionColumns + `
	FROM draft_sessions WHERE status = $1 ORDER BY league_id`

func (q *Queries) ListDraftSessionsByStatus(ctx context.Context, status string) ([]draftSessionRow, error) {
	rows, err := q.db.QueryContext(ctx, listDraftSessionsByStatus, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []draftSessionRow
	for rows.Next() {
		r, err := scanDraftSession(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const insertDraftSession = `INSERT INTO draft_sessions (
	league_id, status, draft_order, participants, current_turn_index,
	turn_deadline, turn_duration_ms, round_count, end_reason, started_at, ended_at, version
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 1)
ON CONFLICT (league_id) DO NOTHING`

// InsertDraftSession returns the number of rows written, zero when the
// league already has a session.
func (q *Queries) InsertDraftSession(ctx context.Context, r draftSessionRow) (int64, error) {
	res, err := q.db.ExecContext(ctx, insertDraftSession,
		r.LeagueID, r.Status, pq.Array(r.DraftOrder), string(r.Participants), r.CurrentTurnIndex,
		r.TurnDeadline, r.TurnDurationMs, r.RoundCount, r.EndReason, r.StartedAt, r.EndedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const updateDraftSession = `UPDATE draft_sessions SET
	status = $2,
	draft_order = $3,
	participants = $4,
	current_turn_index = $5,
	turn_deadline = $6,
	turn_duration_ms = $7,
	round_count = $8,
	end_reason = $9,
	started_at = $10,
	ended_at = $11,
	version = version + 1,
	updated_at = now()
WHERE league_id = $1 AND version = $12`

// UpdateDraftSession returns the number of rows written, zero when the
// stored version no longer matches.
func (q *Queries) UpdateDraftSession(ctx context.Context, r draftSessionRow, expectedVersion int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateDraftSession,
		r.LeagueID, r.Status, pq.Array(r.DraftOrder), string(r.Participants), r.CurrentTurnIndex,
		r.TurnDeadline, r.TurnDurationMs, r.RoundCount, r.EndReason, r.StartedAt, r.EndedAt,
		expectedVersion,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const insertDraftedPlayer = `INSERT INTO drafted_players (
	league_id, player_id, drafted_by, turn_index, picked_at
) VALUES ($1, $2, $3, $4, $5)`

func (q *Queries) InsertDraftedPlayer(ctx context.Context, leagueID, playerID, draftedBy uuid.UUID, turnIndex int32, pickedAt sql.NullTime) error {
	_, err := q.db.ExecContext(ctx, insertDraftedPlayer, leagueID, playerID, draftedBy, turnIndex, pickedAt)
	return err
}

const draftedPlayerExists = `SELECT EXISTS (
	SELECT 1 FROM drafted_players WHERE league_id = $1 AND player_id = $2
)`

func (q *Queries) DraftedPlayerExists(ctx context.Context, leagueID, playerID uuid.UUID) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx, draftedPlayerExists, leagueID, playerID).Scan(&exists)
	return exists, err
}

type draftedPlayerRow struct {
	LeagueID  uuid.UUID
	PlayerID  uuid.UUID
	DraftedBy uuid.UUID
	TurnIndex int32
	PickedAt  sql.NullTime
}

const listDraftedPlayers = `SELECT league_id, player_id, drafted_by, turn_index, picked_at
	FROM drafted_players WHERE league_id = $1 ORDER BY turn_index`

func (q *Queries) ListDraftedPlayers(ctx context.Context, leagueID uuid.UUID) ([]draftedPlayerRow, error) {
	rows, err := q.db.QueryContext(ctx, listDraftedPlayers, leagueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []draftedPlayerRow
	for rows.Next() {
		var r draftedPlayerRow
		if err := rows.Scan(&r.LeagueID, &r.PlayerID, &r.DraftedBy, &r.TurnIndex, &r.PickedAt); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
