package tournamentdb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository defines the contract for tournament and event persistence.
type Repository interface {
	// GetTournament retrieves a tournament by id.
	GetTournament(ctx context.Context, db bun.IDB, id uuid.UUID) (*Tournament, error)

	// GetTournamentByRemoteID retrieves a tournament by its start.gg id.
	GetTournamentByRemoteID(ctx context.Context, db bun.IDB, remoteID string) (*Tournament, error)

	// UpsertTournament creates or refreshes a tournament keyed by remote id
	// and fills t.ID with the stored id.
	UpsertTournament(ctx context.Context, db bun.IDB, t *Tournament) error

	// ListActiveTournaments returns tournaments that still need polling.
	ListActiveTournaments(ctx context.Context, db bun.IDB) ([]*Tournament, error)

	// UpdatePollState records the phase observed by a poll.
	UpdatePollState(ctx context.Context, db bun.IDB, id uuid.UUID, phase Phase, polledAt time.Time) error

	// UpdatePhase sets the phase without touching the poll timestamp.
	UpdatePhase(ctx context.Context, db bun.IDB, id uuid.UUID, phase Phase) error

	// UpsertEvents creates or refreshes events keyed by remote id.
	UpsertEvents(ctx context.Context, db bun.IDB, events []*Event) error

	// ListEvents returns the events of a tournament.
	ListEvents(ctx context.Context, db bun.IDB, tournamentID uuid.UUID) ([]*Event, error)

	// DeleteOrphanEvents removes events no longer present remotely.
	DeleteOrphanEvents(ctx context.Context, db bun.IDB, tournamentID uuid.UUID, keepRemoteIDs []string) (int, error)
}
