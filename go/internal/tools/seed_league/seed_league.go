package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/livedraft/go/internal/dbconfig"
	"github.com/mcdev12/livedraft/go/internal/fixtures"
	"github.com/mcdev12/livedraft/go/internal/leagues"
	"github.com/mcdev12/livedraft/go/internal/player"
)

func main() {
	path := flag.String("fixtures", "go/internal/cmd/fixtures.yaml", "fixtures file to load")
	applySchema := flag.Bool("schema", true, "create the league and player tables if missing")
	flag.Parse()

	ctx := context.Background()

	// 1) Load fixtures
	f, err := fixtures.Load(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixtures: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect to DB
	cfg, err := dbconfig.NewConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "database config: %v\n", err)
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect error: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if *applySchema {
		for _, ddl := range []string{leagues.Schema(), player.Schema()} {
			if _, err := pool.Exec(ctx, ddl); err != nil {
				fmt.Fprintf(os.Stderr, "apply schema: %v\n", err)
				os.Exit(1)
			}
		}
	}

	// 3) Seed leagues and members in one transaction
	var leagueCount, memberCount int
	err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		for _, rec := range f.Leagues {
			if _, err := tx.Exec(ctx, `
                INSERT INTO leagues (id, name, commissioner_id)
                VALUES ($1, $2, $3)
                ON CONFLICT (id) DO UPDATE
                  SET name = EXCLUDED.name, commissioner_id = EXCLUDED.commissioner_id
            `, rec.League.ID, rec.League.Name, rec.League.CommissionerID); err != nil {
				return fmt.Errorf("league %s: %w", rec.League.ID, err)
			}
			leagueCount++

			// joined_at is staggered so the stored join order matches the file
			for i, m := range rec.Members {
				if _, err := tx.Exec(ctx, `
                    INSERT INTO league_members (league_id, user_id, display_name, joined_at)
                    VALUES ($1, $2, $3, now() + ($4::int * interval '1 second'))
                    ON CONFLICT (league_id, user_id) DO UPDATE
                      SET display_name = EXCLUDED.display_name
                `, rec.League.ID, m.UserID, m.DisplayName, i); err != nil {
					return fmt.Errorf("league %s member %s: %w", rec.League.ID, m.UserID, err)
				}
				memberCount++
			}
		}
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed leagues: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Leagues seed: leagues=%d members=%d\n", leagueCount, memberCount)

	// 4) Seed players
	total, inserted, skipped, errs := len(f.Players), 0, 0, 0
	for _, p := range f.Players {
		tag, err := pool.Exec(ctx, `
            INSERT INTO players (id, name, team_abbr, role)
            VALUES ($1, $2, $3, $4)
            ON CONFLICT (id) DO NOTHING
        `, p.ID, p.Name, p.TeamAbbr, p.Role)
		if err != nil {
			fmt.Fprintf(os.Stderr, "player %s: %v\n", p.ID, err)
			errs++
			continue
		}
		if tag.RowsAffected() == 1 {
			inserted++
		} else {
			skipped++
		}
	}
	fmt.Printf(
		"Players seed: total=%d inserted=%d skipped=%d errors=%d\n",
		total, inserted, skipped, errs,
	)
	if errs > 0 {
		os.Exit(1)
	}
}
