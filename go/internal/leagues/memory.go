package leagues

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/mcdev12/livedraft/go/internal/models"
)

// MemoryDirectory is a membership source held in memory, loaded from fixtures
type MemoryDirectory struct {
	mu      sync.RWMutex
	records map[uuid.UUID]Record
}

// NewMemoryDirectory creates a directory holding records
func NewMemoryDirectory(records ...Record) *MemoryDirectory {
	d := &MemoryDirectory{records: make(map[uuid.UUID]Record, len(records))}
	for _, rec := range records {
		d.Put(rec)
	}
	return d
}

// Put adds or replaces a league record
func (d *MemoryDirectory) Put(rec Record) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec.Members = append([]models.Participant(nil), rec.Members...)
	d.records[rec.League.ID] = rec
}

func (d *MemoryDirectory) GetCommissioner(_ context.Context, leagueID uuid.UUID) (uuid.UUID, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rec, ok := d.records[leagueID]
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrLeagueNotFound, leagueID)
	}
	return rec.League.CommissionerID, nil
}

func (d *MemoryDirectory) ListParticipants(_ context.Context, leagueID uuid.UUID) ([]models.Participant, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rec, ok := d.records[leagueID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLeagueNotFound, leagueID)
	}
	return append([]models.Participant(nil), rec.Members...), nil
}
