package matchdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

var (
	// ErrNotFound is returned when a match is not found.
	ErrNotFound = errors.New("match not found")
	// ErrDuplicateMatch is returned when the remote set already has a match.
	ErrDuplicateMatch = errors.New("match already exists for remote set")
	// ErrNoRowsAffected is returned when a conditional update matched nothing.
	ErrNoRowsAffected = errors.New("no rows affected")
	// ErrInvalidTransition is returned for transitions the state table forbids.
	ErrInvalidTransition = errors.New("invalid match state transition")
)

const uniqueViolation = "23505"

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new match repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func withPlayers(q *bun.SelectQuery) *bun.SelectQuery {
	return q.OrderExpr("mp.slot ASC")
}

// GetMatch retrieves a match with its players.
func (r *Impl) GetMatch(ctx context.Context, db bun.IDB, id uuid.UUID) (*Match, error) {
	db = r.resolveDB(db)
	m := new(Match)
	err := db.NewSelect().
		Model(m).
		Relation("Players", withPlayers).
		Where("m.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return m, nil
}

// ListByEvent returns all matches of an event with players.
func (r *Impl) ListByEvent(ctx context.Context, db bun.IDB, eventID uuid.UUID) ([]*Match, error) {
	db = r.resolveDB(db)
	var out []*Match
	err := db.NewSelect().
		Model(&out).
		Relation("Players", withPlayers).
		Where("m.event_id = ?", eventID).
		OrderExpr("m.round ASC, m.identifier ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches by event: %w", err)
	}
	return out, nil
}

// ListCompletedByTournament returns completed matches of a tournament.
func (r *Impl) ListCompletedByTournament(ctx context.Context, db bun.IDB, tournamentID uuid.UUID) ([]*Match, error) {
	db = r.resolveDB(db)
	var out []*Match
	err := db.NewSelect().
		Model(&out).
		Relation("Players", withPlayers).
		Join("JOIN events AS e ON e.id = m.event_id").
		Where("e.tournament_id = ?", tournamentID).
		Where("m.state = ?", StateCompleted).
		OrderExpr("e.name ASC, m.round ASC, m.identifier ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed matches: %w", err)
	}
	return out, nil
}

// CreateMatch inserts a match and both players atomically. When db is
// already a transaction the insert runs in a savepoint, so a duplicate does
// not poison the caller's transaction.
func (r *Impl) CreateMatch(ctx context.Context, db bun.IDB, m *Match) error {
	db = r.resolveDB(db)
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	for _, p := range m.Players {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		p.MatchID = m.ID
	}

	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(m).Exec(ctx); err != nil {
			return err
		}
		if len(m.Players) > 0 {
			if _, err := tx.NewInsert().Model(&m.Players).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateMatch
		}
		return fmt.Errorf("failed to create match: %w", err)
	}
	return nil
}

// SetPlayerCheckedIn marks a player checked in. The update only matches a
// player that is not checked in yet.
func (r *Impl) SetPlayerCheckedIn(ctx context.Context, db bun.IDB, playerID uuid.UUID) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model((*MatchPlayer)(nil)).
		Set("checked_in = TRUE").
		Set("checked_in_at = ?", time.Now().UTC()).
		Where("id = ?", playerID).
		Where("checked_in = FALSE").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to check in player: %w", err)
	}
	return checkAffected(res)
}

// CountCheckedIn counts checked-in players of a match.
func (r *Impl) CountCheckedIn(ctx context.Context, db bun.IDB, matchID uuid.UUID) (int, error) {
	db = r.resolveDB(db)
	n, err := db.NewSelect().
		Model((*MatchPlayer)(nil)).
		Where("match_id = ?", matchID).
		Where("checked_in = TRUE").
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count checked in players: %w", err)
	}
	return n, nil
}

// TransitionState moves a match from one state to another. The update is
// keyed on the expected prior state so concurrent writers cannot both win.
func (r *Impl) TransitionState(ctx context.Context, db bun.IDB, matchID uuid.UUID, from, to State) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model((*Match)(nil)).
		Set("state = ?", to).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", matchID).
		Where("state = ?", from).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to transition match: %w", err)
	}
	return checkAffected(res)
}

// SetReportedBy records which player reported the result.
func (r *Impl) SetReportedBy(ctx context.Context, db bun.IDB, matchID uuid.UUID, playerID *uuid.UUID) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model((*Match)(nil)).
		Set("reported_by = ?", playerID).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", matchID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set reported by: %w", err)
	}
	return checkAffected(res)
}

// SetWinner marks winnerPlayerID as winner and the other player as loser.
func (r *Impl) SetWinner(ctx context.Context, db bun.IDB, matchID, winnerPlayerID uuid.UUID) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model((*MatchPlayer)(nil)).
		Set("is_winner = (id = ?)", winnerPlayerID).
		Where("match_id = ?", matchID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set winner: %w", err)
	}
	return checkAffected(res)
}

// ClearWinners resets both players' winner flags.
func (r *Impl) ClearWinners(ctx context.Context, db bun.IDB, matchID uuid.UUID) error {
	db = r.resolveDB(db)
	_, err := db.NewUpdate().
		Model((*MatchPlayer)(nil)).
		Set("is_winner = NULL").
		Where("match_id = ?", matchID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to clear winners: %w", err)
	}
	return nil
}

// SetReportedScore stores the game count reported for a player.
func (r *Impl) SetReportedScore(ctx context.Context, db bun.IDB, playerID uuid.UUID, score int) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model((*MatchPlayer)(nil)).
		Set("reported_score = ?", score).
		Where("id = ?", playerID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set reported score: %w", err)
	}
	return checkAffected(res)
}

// BindThread attaches a conversation to a match that has none yet.
func (r *Impl) BindThread(ctx context.Context, db bun.IDB, matchID uuid.UUID, threadID string) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model((*Match)(nil)).
		Set("thread_id = ?", threadID).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", matchID).
		Where("thread_id IS NULL").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to bind thread: %w", err)
	}
	return checkAffected(res)
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

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == uniqueViolation
	}
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code == uniqueViolation
	}
	return false
}
