// Package fixtures loads leagues and players from a YAML file for local
// development and for seeding Postgres.
package fixtures

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/mcdev12/livedraft/go/internal/leagues"
	"github.com/mcdev12/livedraft/go/internal/models"
	"github.com/mcdev12/livedraft/go/internal/player"
	"gopkg.in/yaml.v3"
)

// File is the fixtures document
type File struct {
	Leagues []leagues.Record `yaml:"leagues"`
	Players []models.Player  `yaml:"players"`
}

// Load reads and validates the fixtures file at path
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a fixtures document
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks ids are present and unique and every league has a commissioner
func (f *File) Validate() error {
	var errs []error

	leagueIDs := make(map[uuid.UUID]struct{}, len(f.Leagues))
	for i, rec := range f.Leagues {
		if rec.League.ID == uuid.Nil {
			errs = append(errs, fmt.Errorf("league %d has no id", i))
			continue
		}
		if _, dup := leagueIDs[rec.League.ID]; dup {
			errs = append(errs, fmt.Errorf("league %s is listed twice", rec.League.ID))
		}
		leagueIDs[rec.League.ID] = struct{}{}

		if rec.League.CommissionerID == uuid.Nil {
			errs = append(errs, fmt.Errorf("league %s has no commissioner", rec.League.ID))
		}
		members := make(map[uuid.UUID]struct{}, len(rec.Members))
		for _, m := range rec.Members {
			if m.UserID == uuid.Nil {
				errs = append(errs, fmt.Errorf("league %s has a member without a user id", rec.League.ID))
				continue
			}
			if _, dup := members[m.UserID]; dup {
				errs = append(errs, fmt.Errorf("league %s lists member %s twice", rec.League.ID, m.UserID))
			}
			members[m.UserID] = struct{}{}
		}
	}

	playerIDs := make(map[uuid.UUID]struct{}, len(f.Players))
	for i, p := range f.Players {
		if p.ID == uuid.Nil {
			errs = append(errs, fmt.Errorf("player %d (%q) has no id", i, p.Name))
			continue
		}
		if _, dup := playerIDs[p.ID]; dup {
			errs = append(errs, fmt.Errorf("player %s is listed twice", p.ID))
		}
		playerIDs[p.ID] = struct{}{}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid fixtures: %w", errors.Join(errs...))
	}
	return nil
}

// Directory returns an in-memory membership source holding the fixture leagues
func (f *File) Directory() *leagues.MemoryDirectory {
	return leagues.NewMemoryDirectory(f.Leagues...)
}

// Catalog returns an in-memory player catalog over picks
func (f *File) Catalog(picks player.PickLister) *player.MemoryCatalog {
	return player.NewMemoryCatalog(picks, f.Players...)
}
