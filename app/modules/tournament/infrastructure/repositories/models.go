package tournamentdb

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Phase is the lifecycle phase of a tracked tournament.
type Phase string

const (
	PhaseCreated            Phase = "created"
	PhaseRegistrationOpen   Phase = "registration_open"
	PhaseRegistrationClosed Phase = "registration_closed"
	PhaseInProgress         Phase = "in_progress"
	PhaseCompleted          Phase = "completed"
	PhaseCancelled          Phase = "cancelled"
)

// IsTerminal reports whether polling must stop for the phase.
func (p Phase) IsTerminal() bool {
	return p == PhaseCompleted || p == PhaseCancelled
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	switch p {
	case PhaseCreated, PhaseRegistrationOpen, PhaseRegistrationClosed,
		PhaseInProgress, PhaseCompleted, PhaseCancelled:
		return true
	}
	return false
}

// EventPhase is the phase of a single bracket.
type EventPhase string

const (
	EventNotStarted EventPhase = "not_started"
	EventActive     EventPhase = "active"
	EventCompleted  EventPhase = "completed"
)

// Tournament is a start.gg tournament tracked by a Discord guild.
type Tournament struct {
	bun.BaseModel `bun:"table:tournaments,alias:t"`

	ID           uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	RemoteID     string     `bun:"remote_id,notnull,unique"`
	Slug         string     `bun:"slug,notnull"`
	Name         string     `bun:"name,notnull"`
	Phase        Phase      `bun:"phase,notnull"`
	GuildID      string     `bun:"guild_id,notnull"`
	ChannelID    string     `bun:"channel_id,notnull"`
	LastPolledAt *time.Time `bun:"last_polled_at"`
	CreatedAt    time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`

	Events []*Event `bun:"rel:has-many,join:id=tournament_id"`
}

// Event is one bracket of a tournament.
type Event struct {
	bun.BaseModel `bun:"table:events,alias:e"`

	ID           uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	TournamentID uuid.UUID  `bun:"tournament_id,type:uuid,notnull"`
	RemoteID     string     `bun:"remote_id,notnull,unique"`
	Name         string     `bun:"name,notnull"`
	NumEntrants  int        `bun:"num_entrants,notnull,default:0"`
	Phase        EventPhase `bun:"phase,notnull"`
	CreatedAt    time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
