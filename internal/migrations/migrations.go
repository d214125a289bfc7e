// Package migrations runs the schema migrations of every module plus the
// River job tables.
package migrations

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
	matchmigrations "github.com/wukrit/fightrise-bot-sub001/app/modules/match/infrastructure/repositories/migrations"
	tournamentmigrations "github.com/wukrit/fightrise-bot-sub001/app/modules/tournament/infrastructure/repositories/migrations"
)

// Module is a named migrator.
type Module struct {
	Name     string
	Migrator *migrate.Migrator
}

// Modules returns the module migrators in dependency order. Each module
// keeps its own bookkeeping table so rollbacks stay per module.
func Modules(db *bun.DB) []Module {
	return []Module{
		newModule(db, "tournament", tournamentmigrations.Migrations),
		newModule(db, "match", matchmigrations.Migrations),
	}
}

func newModule(db *bun.DB, name string, m *migrate.Migrations) Module {
	return Module{
		Name: name,
		Migrator: migrate.NewMigrator(db, m,
			migrate.WithTableName("bun_migrations_"+name),
			migrate.WithLocksTableName("bun_migration_locks_"+name),
		),
	}
}

// Up initializes and applies every module migration in order.
func Up(ctx context.Context, db *bun.DB) error {
	for _, mod := range Modules(db) {
		if err := mod.Migrator.Init(ctx); err != nil {
			return fmt.Errorf("failed to init %s migrations: %w", mod.Name, err)
		}
		if _, err := mod.Migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate %s: %w", mod.Name, err)
		}
	}
	return nil
}

// RiverUp creates or upgrades the River job tables.
func RiverUp(ctx context.Context, pool *pgxpool.Pool) error {
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("failed to create river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{}); err != nil {
		return fmt.Errorf("failed to run river migrations: %w", err)
	}
	return nil
}
