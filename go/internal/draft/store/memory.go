package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/mcdev12/livedraft/go/internal/models"
)

// MemoryStore is an in-process DraftStore. State does not survive a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]models.DraftSession
	picks    map[uuid.UUID][]models.Pick
	drafted  map[uuid.UUID]map[uuid.UUID]struct{}
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[uuid.UUID]models.DraftSession),
		picks:    make(map[uuid.UUID][]models.Pick),
		drafted:  make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}
}

var _ DraftStore = (*MemoryStore)(nil)

func (s *MemoryStore) LoadSession(_ context.Context, leagueID uuid.UUID) (models.DraftSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[leagueID]
	if !ok {
		return models.NewDraftSession(leagueID), nil
	}
	return session.Clone(), nil
}

func (s *MemoryStore) SaveSession(_ context.Context, expectedVersion int64, next models.DraftSession) (models.DraftSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkVersion(next.LeagueID, expectedVersion); err != nil {
		return models.DraftSession{}, err
	}
	return s.put(expectedVersion, next), nil
}

func (s *MemoryStore) CommitPick(_ context.Context, expectedVersion int64, pick models.Pick, next models.DraftSession) (models.DraftSession, error) {
	if pick.LeagueID != next.LeagueID {
		return models.DraftSession{}, fmt.Errorf("pick league %s does not match session league %s", pick.LeagueID, next.LeagueID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkVersion(next.LeagueID, expectedVersion); err != nil {
		return models.DraftSession{}, err
	}
	if _, taken := s.drafted[pick.LeagueID][pick.PlayerID]; taken {
		return models.DraftSession{}, ErrDuplicatePick
	}

	if s.drafted[pick.LeagueID] == nil {
		s.drafted[pick.LeagueID] = make(map[uuid.UUID]struct{})
	}
	s.drafted[pick.LeagueID][pick.PlayerID] = struct{}{}
	s.picks[pick.LeagueID] = append(s.picks[pick.LeagueID], pick)

	return s.put(expectedVersion, next), nil
}

func (s *MemoryStore) HasPick(_ context.Context, leagueID, playerID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.drafted[leagueID][playerID]
	return ok, nil
}

func (s *MemoryStore) ListPicks(_ context.Context, leagueID uuid.UUID) ([]models.Pick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]models.Pick(nil), s.picks[leagueID]...), nil
}

func (s *MemoryStore) ListInProgress(_ context.Context) ([]models.DraftSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.DraftSession
	for _, session := range s.sessions {
		if session.Status == models.DraftStatusInProgress {
			out = append(out, session.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LeagueID.String() < out[j].LeagueID.String()
	})
	return out, nil
}

func (s *MemoryStore) checkVersion(leagueID uuid.UUID, expected int64) error {
	var current int64
	if stored, ok := s.sessions[leagueID]; ok {
		current = stored.Version
	}
	if current != expected {
		return fmt.Errorf("%w: league %s at version %d, expected %d", ErrVersionConflict, leagueID, current, expected)
	}
	return nil
}

// put must be called with s.mu held.
func (s *MemoryStore) put(expectedVersion int64, next models.DraftSession) models.DraftSession {
	stored := next.Clone()
	stored.Version = expectedVersion + 1
	s.sessions[next.LeagueID] = stored
	return stored.Clone()
}
