package player

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/mcdev12/livedraft/go/internal/models"
)

// PickLister reports the picks already made in a league
type PickLister interface {
	ListPicks(ctx context.Context, leagueID uuid.UUID) ([]models.Pick, error)
}

// MemoryCatalog is a player catalog held in memory. The available pool is
// the catalog minus whatever the pick lister reports.
type MemoryCatalog struct {
	picks PickLister

	mu      sync.RWMutex
	players map[uuid.UUID]models.Player
}

// NewMemoryCatalog creates a catalog over players
func NewMemoryCatalog(picks PickLister, players ...models.Player) *MemoryCatalog {
	c := &MemoryCatalog{
		picks:   picks,
		players: make(map[uuid.UUID]models.Player, len(players)),
	}
	for _, p := range players {
		c.players[p.ID] = p
	}
	return c
}

func (c *MemoryCatalog) GetPlayer(_ context.Context, id uuid.UUID) (models.Player, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.players[id]
	if !ok {
		return models.Player{}, fmt.Errorf("%w: %s", ErrPlayerNotFound, id)
	}
	return p, nil
}

func (c *MemoryCatalog) GetPlayers(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Player, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[uuid.UUID]models.Player, len(ids))
	for _, id := range ids {
		if p, ok := c.players[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (c *MemoryCatalog) ListAvailablePlayers(ctx context.Context, leagueID uuid.UUID) ([]models.Player, error) {
	picks, err := c.picks.ListPicks(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list picks: %w", err)
	}
	drafted := make(map[uuid.UUID]bool, len(picks))
	for _, p := range picks {
		drafted[p.PlayerID] = true
	}

	c.mu.RLock()
	available := make([]models.Player, 0, len(c.players))
	for id, p := range c.players {
		if !drafted[id] {
			available = append(available, p)
		}
	}
	c.mu.RUnlock()

	sort.Slice(available, func(i, j int) bool {
		if available[i].Name != available[j].Name {
			return available[i].Name < available[j].Name
		}
		return available[i].ID.String() < available[j].ID.String()
	})
	return available, nil
}
