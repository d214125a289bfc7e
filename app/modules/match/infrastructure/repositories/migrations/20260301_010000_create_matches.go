package matchmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating matches and match_players tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS matches (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					event_id UUID NOT NULL REFERENCES events(id) ON DELETE CASCADE,
					remote_set_id VARCHAR(64) NOT NULL,
					identifier VARCHAR(32) NOT NULL DEFAULT '',
					round_text VARCHAR(128) NOT NULL DEFAULT '',
					round INTEGER NOT NULL DEFAULT 0,
					state VARCHAR(32) NOT NULL,
					thread_id VARCHAR(32),
					check_in_deadline TIMESTAMPTZ,
					reported_by UUID,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					CONSTRAINT uq_matches_remote_set_id UNIQUE (remote_set_id)
				);
				CREATE INDEX IF NOT EXISTS idx_matches_event_id ON matches(event_id);
				CREATE INDEX IF NOT EXISTS idx_matches_state ON matches(state);
			`); err != nil {
				return fmt.Errorf("failed to create matches table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS match_players (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					match_id UUID NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
					slot SMALLINT NOT NULL CHECK (slot IN (1, 2)),
					remote_entrant_id VARCHAR(64) NOT NULL,
					player_name VARCHAR(255) NOT NULL,
					discord_id VARCHAR(32),
					checked_in BOOLEAN NOT NULL DEFAULT FALSE,
					checked_in_at TIMESTAMPTZ,
					reported_score INTEGER,
					is_winner BOOLEAN,
					CONSTRAINT uq_match_players_slot UNIQUE (match_id, slot)
				);
				CREATE INDEX IF NOT EXISTS idx_match_players_discord_id ON match_players(discord_id);
			`); err != nil {
				return fmt.Errorf("failed to create match_players table: %w", err)
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping matches and match_players tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS match_players;`); err != nil {
				return fmt.Errorf("failed to drop match_players table: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS matches;`); err != nil {
				return fmt.Errorf("failed to drop matches table: %w", err)
			}
			return nil
		})
	})
}
