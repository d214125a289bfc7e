package tournamentmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating tournaments and events tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS tournaments (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					remote_id VARCHAR(64) NOT NULL UNIQUE,
					slug VARCHAR(255) NOT NULL,
					name VARCHAR(255) NOT NULL,
					phase VARCHAR(32) NOT NULL DEFAULT 'created',
					guild_id VARCHAR(20) NOT NULL,
					channel_id VARCHAR(20) NOT NULL,
					last_polled_at TIMESTAMPTZ,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_tournaments_phase ON tournaments(phase);
			`); err != nil {
				return fmt.Errorf("failed to create tournaments table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS events (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					tournament_id UUID NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
					remote_id VARCHAR(64) NOT NULL UNIQUE,
					name VARCHAR(255) NOT NULL,
					num_entrants INTEGER NOT NULL DEFAULT 0,
					phase VARCHAR(32) NOT NULL DEFAULT 'not_started',
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_events_tournament_id ON events(tournament_id);
			`); err != nil {
				return fmt.Errorf("failed to create events table: %w", err)
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping tournaments and events tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS events CASCADE;`); err != nil {
				return fmt.Errorf("failed to drop events table: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS tournaments CASCADE;`); err != nil {
				return fmt.Errorf("failed to drop tournaments table: %w", err)
			}
			return nil
		})
	})
}
