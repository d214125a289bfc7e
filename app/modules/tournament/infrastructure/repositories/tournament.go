package tournamentdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var (
	// ErrNotFound is returned when a tournament is not found.
	ErrNotFound = errors.New("tournament not found")
	// ErrNoRowsAffected is returned when an update matched nothing.
	ErrNoRowsAffected = errors.New("no rows affected")
)

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new tournament repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// GetTournament retrieves a tournament by id.
func (r *Impl) GetTournament(ctx context.Context, db bun.IDB, id uuid.UUID) (*Tournament, error) {
	db = r.resolveDB(db)
	t := new(Tournament)
	err := db.NewSelect().
		Model(t).
		Where("t.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}
	return t, nil
}

// GetTournamentByRemoteID retrieves a tournament by its start.gg id.
func (r *Impl) GetTournamentByRemoteID(ctx context.Context, db bun.IDB, remoteID string) (*Tournament, error) {
	db = r.resolveDB(db)
	t := new(Tournament)
	err := db.NewSelect().
		Model(t).
		Where("t.remote_id = ?", remoteID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tournament by remote id: %w", err)
	}
	return t, nil
}

// UpsertTournament creates or refreshes a tournament keyed by remote id.
// A cancelled tournament keeps its phase.
func (r *Impl) UpsertTournament(ctx context.Context, db bun.IDB, t *Tournament) error {
	db = r.resolveDB(db)
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.UpdatedAt = time.Now().UTC()
	_, err := db.NewInsert().
		Model(t).
		ExcludeColumn("created_at").
		On("CONFLICT (remote_id) DO UPDATE").
		Set("slug = EXCLUDED.slug").
		Set("name = EXCLUDED.name").
		Set("guild_id = EXCLUDED.guild_id").
		Set("channel_id = EXCLUDED.channel_id").
		Set("phase = CASE WHEN t.phase = ? THEN t.phase ELSE EXCLUDED.phase END", PhaseCancelled).
		Set("updated_at = EXCLUDED.updated_at").
		Returning("id, phase, created_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert tournament: %w", err)
	}
	return nil
}

// ListActiveTournaments returns tournaments that still need polling.
func (r *Impl) ListActiveTournaments(ctx context.Context, db bun.IDB) ([]*Tournament, error) {
	db = r.resolveDB(db)
	var out []*Tournament
	err := db.NewSelect().
		Model(&out).
		Where("t.phase NOT IN (?)", bun.In([]Phase{PhaseCompleted, PhaseCancelled})).
		OrderExpr("t.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active tournaments: %w", err)
	}
	return out, nil
}

// UpdatePollState records the phase observed by a poll. A cancelled
// tournament is never moved back by a poll.
func (r *Impl) UpdatePollState(ctx context.Context, db bun.IDB, id uuid.UUID, phase Phase, polledAt time.Time) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model((*Tournament)(nil)).
		Set("phase = CASE WHEN phase = ? THEN phase ELSE ? END", PhaseCancelled, phase).
		Set("last_polled_at = ?", polledAt).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update poll state: %w", err)
	}
	return checkAffected(res)
}

// UpdatePhase sets the phase.
func (r *Impl) UpdatePhase(ctx context.Context, db bun.IDB, id uuid.UUID, phase Phase) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model((*Tournament)(nil)).
		Set("phase = ?", phase).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update tournament phase: %w", err)
	}
	return checkAffected(res)
}

// UpsertEvents creates or refreshes events keyed by remote id.
func (r *Impl) UpsertEvents(ctx context.Context, db bun.IDB, events []*Event) error {
	if len(events) == 0 {
		return nil
	}
	db = r.resolveDB(db)
	now := time.Now().UTC()
	for _, e := range events {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		e.UpdatedAt = now
	}
	_, err := db.NewInsert().
		Model(&events).
		ExcludeColumn("created_at").
		On("CONFLICT (remote_id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("num_entrants = EXCLUDED.num_entrants").
		Set("phase = EXCLUDED.phase").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("id").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert events: %w", err)
	}
	return nil
}

// ListEvents returns the events of a tournament.
func (r *Impl) ListEvents(ctx context.Context, db bun.IDB, tournamentID uuid.UUID) ([]*Event, error) {
	db = r.resolveDB(db)
	var out []*Event
	err := db.NewSelect().
		Model(&out).
		Where("e.tournament_id = ?", tournamentID).
		OrderExpr("e.name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return out, nil
}

// DeleteOrphanEvents removes events of the tournament whose remote id is not
// in keepRemoteIDs. Matches of removed events cascade.
func (r *Impl) DeleteOrphanEvents(ctx context.Context, db bun.IDB, tournamentID uuid.UUID, keepRemoteIDs []string) (int, error) {
	db = r.resolveDB(db)
	q := db.NewDelete().
		Model((*Event)(nil)).
		Where("tournament_id = ?", tournamentID)
	if len(keepRemoteIDs) > 0 {
		q = q.Where("remote_id NOT IN (?)", bun.In(keepRemoteIDs))
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete orphan events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}

func checkAffected(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNoRowsAffected
	}
	return nil
}
