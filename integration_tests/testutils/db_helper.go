package testutils

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/uptrace/bun"
	"github.com/wukrit/fightrise-bot-sub001/internal/migrations"
)

// appTables are truncated between tests. match_players and matches go
// through CASCADE from events.
var appTables = []string{"tournaments", "events", "matches", "match_players"}

// RunMigrations applies the River and module migrations.
func RunMigrations(ctx context.Context, db *bun.DB, pool *pgxpool.Pool) error {
	if err := migrations.RiverUp(ctx, pool); err != nil {
		return err
	}
	if err := migrations.Up(ctx, db); err != nil {
		return err
	}
	log.Println("All migrations ran successfully")
	return nil
}

// CleanupRiverJobs deletes all jobs from the River queue.
func CleanupRiverJobs(ctx context.Context, db bun.IDB) error {
	_, err := db.ExecContext(ctx, "DELETE FROM river_job")
	return err
}

// CleanupDatabase truncates all application tables and the job queue.
func CleanupDatabase(ctx context.Context, db *bun.DB) error {
	query := fmt.Sprintf("TRUNCATE TABLE %s CASCADE", strings.Join(appTables, ", "))
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to truncate tables: %w", err)
	}
	if err := CleanupRiverJobs(ctx, db); err != nil {
		return fmt.Errorf("failed to cleanup river jobs: %w", err)
	}
	return nil
}
