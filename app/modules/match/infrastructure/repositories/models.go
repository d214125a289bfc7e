package matchdb

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// State is the state of a match in the check-in and reporting flow.
type State string

const (
	StateNotStarted          State = "NOT_STARTED"
	StateCalled              State = "CALLED"
	StateCheckedIn           State = "CHECKED_IN"
	StateInProgress          State = "IN_PROGRESS"
	StatePendingConfirmation State = "PENDING_CONFIRMATION"
	StateCompleted           State = "COMPLETED"
	StateDisputed            State = "DISPUTED"
	StateDQ                  State = "DQ"
)

var transitions = map[State][]State{
	StateNotStarted:          {StateCalled, StateCompleted, StateDisputed, StateDQ},
	StateCalled:              {StateCheckedIn, StateCompleted, StateDisputed, StateDQ},
	StateCheckedIn:           {StateInProgress, StatePendingConfirmation, StateCompleted, StateDisputed, StateDQ},
	StateInProgress:          {StatePendingConfirmation, StateCompleted, StateDisputed, StateDQ},
	StatePendingConfirmation: {StateCompleted, StateCheckedIn, StateDisputed, StateDQ},
}

// CanTransition reports whether a match may move from one state to another.
// Completed, disputed and DQ are terminal.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s State) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// Match is a set from a bracket tracked in Discord.
type Match struct {
	bun.BaseModel `bun:"table:matches,alias:m"`

	ID              uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	EventID         uuid.UUID  `bun:"event_id,type:uuid,notnull"`
	RemoteSetID     string     `bun:"remote_set_id,notnull,unique"`
	Identifier      string     `bun:"identifier,notnull"`
	RoundText       string     `bun:"round_text,notnull"`
	Round           int        `bun:"round,notnull"`
	State           State      `bun:"state,notnull"`
	ThreadID        *string    `bun:"thread_id"`
	CheckInDeadline *time.Time `bun:"check_in_deadline"`
	ReportedBy      *uuid.UUID `bun:"reported_by,type:uuid"`
	CreatedAt       time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt       time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`

	Players []*MatchPlayer `bun:"rel:has-many,join:id=match_id"`
}

// MatchPlayer is one of the two participants of a match.
type MatchPlayer struct {
	bun.BaseModel `bun:"table:match_players,alias:mp"`

	ID              uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	MatchID         uuid.UUID  `bun:"match_id,type:uuid,notnull"`
	Slot            int        `bun:"slot,notnull"`
	RemoteEntrantID string     `bun:"remote_entrant_id,notnull"`
	PlayerName      string     `bun:"player_name,notnull"`
	DiscordID       *string    `bun:"discord_id"`
	CheckedIn       bool       `bun:"checked_in,notnull,default:false"`
	CheckedInAt     *time.Time `bun:"checked_in_at"`
	ReportedScore   *int       `bun:"reported_score"`
	IsWinner        *bool      `bun:"is_winner"`
}

// PlayerBySlot returns the player in slot, or nil.
func (m *Match) PlayerBySlot(slot int) *MatchPlayer {
	for _, p := range m.Players {
		if p.Slot == slot {
			return p
		}
	}
	return nil
}

// PlayerByDiscordID returns the player linked to the Discord user, or nil.
func (m *Match) PlayerByDiscordID(discordID string) *MatchPlayer {
	if discordID == "" {
		return nil
	}
	for _, p := range m.Players {
		if p.DiscordID != nil && *p.DiscordID == discordID {
			return p
		}
	}
	return nil
}

// PlayerByID returns the player with the given row id, or nil.
func (m *Match) PlayerByID(id uuid.UUID) *MatchPlayer {
	for _, p := range m.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Opponent returns the other player of the match.
func (m *Match) Opponent(p *MatchPlayer) *MatchPlayer {
	for _, o := range m.Players {
		if o.ID != p.ID {
			return o
		}
	}
	return nil
}

// Winner returns the player marked as winner, or nil.
func (m *Match) Winner() *MatchPlayer {
	for _, p := range m.Players {
		if p.IsWinner != nil && *p.IsWinner {
			return p
		}
	}
	return nil
}
