package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/livedraft/go/internal/draft"
	"github.com/mcdev12/livedraft/go/internal/draft/events"
	"github.com/mcdev12/livedraft/go/internal/draft/gateway"
	"github.com/mcdev12/livedraft/go/internal/draft/orchestrator"
	"github.com/mcdev12/livedraft/go/internal/draft/relay"
	"github.com/mcdev12/livedraft/go/internal/draft/store"
	"github.com/mcdev12/livedraft/go/internal/fixtures"
	"github.com/mcdev12/livedraft/go/internal/leagues"
	"github.com/mcdev12/livedraft/go/internal/player"
	"github.com/rs/zerolog/log"
)

type Services struct {
	App       *draft.App
	Draft     *draft.Service
	Scheduler *orchestrator.Scheduler
	Registry  *gateway.Registry
	Relay     *relay.Relay

	closers []func() error
}

type backends struct {
	store   store.DraftStore
	members draft.MembershipSource
	catalog draft.PlayerCatalog
}

func setupServices(ctx context.Context, cfg Config) (*Services, error) {
	// Wire up dependency injection chain
	// Store → App → Service, with the registry and relay as event sinks
	s := &Services{}

	b, err := s.setupBackends(ctx, cfg)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.Registry = gateway.NewRegistry()
	sinks := events.Fanout{s.Registry}
	if cfg.NATSEnabled() {
		publisher, err := relay.NewJetStreamPublisher(ctx, cfg.NATS)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, publisher.Close)
		s.Relay = relay.New(publisher, cfg.Relay)
		sinks = append(sinks, s.Relay)
	}

	clock := clockwork.NewRealClock()
	s.Scheduler = orchestrator.NewScheduler(clock, cfg.TickInterval)
	s.App, err = draft.NewApp(cfg.Draft, draft.Dependencies{
		Store:     b.store,
		Members:   b.members,
		Catalog:   b.catalog,
		Scheduler: s.Scheduler,
		Sink:      sinks,
		Clock:     clock,
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Draft = draft.NewService(s.App)

	log.Info().
		Str("store_driver", cfg.StoreDriver).
		Bool("nats", cfg.NATSEnabled()).
		Int("round_count", cfg.Draft.RoundCount).
		Dur("turn_duration", cfg.Draft.TurnDuration).
		Msg("draft services ready")
	return s, nil
}

func (s *Services) setupBackends(ctx context.Context, cfg Config) (backends, error) {
	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		database, err := setupDatabase(ctx)
		if err != nil {
			return backends{}, err
		}
		s.closers = append(s.closers, database.Close)
		return postgresBackends(ctx, database)

	default:
		memStore := store.NewMemoryStore()
		if cfg.FixturesPath == "" {
			log.Warn().Msg("no fixtures configured, leagues and players are empty")
			return backends{
				store:   memStore,
				members: leagues.NewMemoryDirectory(),
				catalog: player.NewMemoryCatalog(memStore),
			}, nil
		}

		f, err := fixtures.Load(cfg.FixturesPath)
		if err != nil {
			return backends{}, err
		}
		log.Info().
			Str("path", cfg.FixturesPath).
			Int("leagues", len(f.Leagues)).
			Int("players", len(f.Players)).
			Msg("loaded fixtures")
		return backends{
			store:   memStore,
			members: f.Directory(),
			catalog: f.Catalog(memStore),
		}, nil
	}
}

func postgresBackends(ctx context.Context, database *sql.DB) (backends, error) {
	draftStore := store.NewPostgresStore(database)
	leagueRepo := leagues.NewRepository(database)
	playerRepo := player.NewRepository(database)

	if err := leagueRepo.EnsureSchema(ctx); err != nil {
		return backends{}, fmt.Errorf("league schema: %w", err)
	}
	if err := playerRepo.EnsureSchema(ctx); err != nil {
		return backends{}, fmt.Errorf("player schema: %w", err)
	}
	if err := draftStore.EnsureSchema(ctx); err != nil {
		return backends{}, fmt.Errorf("draft schema: %w", err)
	}

	return backends{
		store:   draftStore,
		members: leagueRepo,
		catalog: playerRepo,
	}, nil
}

// Close releases the database and broker connections in reverse order.
func (s *Services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
