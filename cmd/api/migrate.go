package main

import (
	"context"
	"database/sql"
	"fmt"
	"text/tabwriter"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql
	"github.com/pressly/goose/v3"
	"github.com/urfave/cli/v3"

	"github.com/wgrabowski/tabliczki-ztm/internal/config"
	"github.com/wgrabowski/tabliczki-ztm/migrations"
)

// withProvider opens the configured database and hands a goose provider
// over the embedded migrations to fn.
func withProvider(ctx context.Context, cmd *cli.Command, fn func(context.Context, *goose.Provider) error) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("create goose provider: %w", err)
	}
	return fn(ctx, provider)
}

func migrateUp(ctx context.Context, cmd *cli.Command) error {
	return withProvider(ctx, cmd, func(ctx context.Context, p *goose.Provider) error {
		results, err := p.Up(ctx)
		if err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
		if len(results) == 0 {
			fmt.Fprintln(cmd.Root().Writer, "no pending migrations")
		}
		for _, r := range results {
			fmt.Fprintf(cmd.Root().Writer, "applied %s (%s)\n", r.Source.Path, r.Duration.Round(time.Millisecond))
		}
		return nil
	})
}

func migrateDown(ctx context.Context, cmd *cli.Command) error {
	return withProvider(ctx, cmd, func(ctx context.Context, p *goose.Provider) error {
		r, err := p.Down(ctx)
		if err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
		fmt.Fprintf(cmd.Root().Writer, "rolled back %s\n", r.Source.Path)
		return nil
	})
}

func migrateStatus(ctx context.Context, cmd *cli.Command) error {
	return withProvider(ctx, cmd, func(ctx context.Context, p *goose.Provider) error {
		statuses, err := p.Status(ctx)
		if err != nil {
			return fmt.Errorf("migrate status: %w", err)
		}
		w := tabwriter.NewWriter(cmd.Root().Writer, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "VERSION\tSTATE\tAPPLIED AT\tSOURCE")
		for _, s := range statuses {
			applied := "-"
			if !s.AppliedAt.IsZero() {
				applied = s.AppliedAt.Format(time.RFC3339)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.Source.Version, s.State, applied, s.Source.Path)
		}
		return w.Flush()
	})
}
