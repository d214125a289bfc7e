package matchdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository defines the contract for match persistence. Every mutating
// method that depends on current state is conditional and reports
// ErrNoRowsAffected when the condition no longer holds.
type Repository interface {
	// GetMatch retrieves a match with its players.
	GetMatch(ctx context.Context, db bun.IDB, id uuid.UUID) (*Match, error)

	// ListByEvent returns all matches of an event with players.
	ListByEvent(ctx context.Context, db bun.IDB, eventID uuid.UUID) ([]*Match, error)

	// ListCompletedByTournament returns completed matches of a tournament
	// with players, ordered by event and round.
	ListCompletedByTournament(ctx context.Context, db bun.IDB, tournamentID uuid.UUID) ([]*Match, error)

	// CreateMatch inserts a match and its players. Returns ErrDuplicateMatch
	// when a match for the same remote set already exists.
	CreateMatch(ctx context.Context, db bun.IDB, m *Match) error

	// SetPlayerCheckedIn marks a player checked in if they were not already.
	SetPlayerCheckedIn(ctx context.Context, db bun.IDB, playerID uuid.UUID) error

	// CountCheckedIn counts checked-in players of a match.
	CountCheckedIn(ctx context.Context, db bun.IDB, matchID uuid.UUID) (int, error)

	// TransitionState moves a match from one state to another.
	TransitionState(ctx context.Context, db bun.IDB, matchID uuid.UUID, from, to State) error

	// SetReportedBy records which player reported the result. nil clears it.
	SetReportedBy(ctx context.Context, db bun.IDB, matchID uuid.UUID, playerID *uuid.UUID) error

	// SetWinner marks one player as winner and the other as loser.
	SetWinner(ctx context.Context, db bun.IDB, matchID, winnerPlayerID uuid.UUID) error

	// ClearWinners resets both players' winner flags.
	ClearWinners(ctx context.Context, db bun.IDB, matchID uuid.UUID) error

	// SetReportedScore stores the game count reported for a player.
	SetReportedScore(ctx context.Context, db bun.IDB, playerID uuid.UUID, score int) error

	// BindThread attaches a conversation to a match that has none.
	BindThread(ctx context.Context, db bun.IDB, matchID uuid.UUID, threadID string) error
}
