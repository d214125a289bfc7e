package startgg

import (
	"strconv"
	"strings"
	"time"
)

// ID is a start.gg identifier. The API returns numeric ids for real objects
// and strings such as "preview_123_1" for projected sets.
type ID string

// UnmarshalJSON accepts both numbers and strings.
func (id *ID) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	switch {
	case s == "null":
		*id = ""
	case strings.HasPrefix(s, `"`):
		unq, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		*id = ID(unq)
	default:
		*id = ID(s)
	}
	return nil
}

func (id ID) String() string { return string(id) }

// SetState is the numeric activity state start.gg reports for a set.
type SetState int

const (
	SetStateNotStarted SetState = 1
	SetStateStarted    SetState = 2
	SetStateCompleted  SetState = 3
	SetStateReady      SetState = 4
	SetStateInvalid    SetState = 5
	SetStateCalled     SetState = 6
	SetStateQueued     SetState = 7
)

// Playable reports whether both players are expected to be playing the set.
// Ready, started and called (in progress on a station) count as playable.
func (s SetState) Playable() bool {
	return s == SetStateReady || s == SetStateStarted || s == SetStateCalled
}

// Completed reports whether the set has a final result.
func (s SetState) Completed() bool { return s == SetStateCompleted }

func (s SetState) String() string {
	switch s {
	case SetStateNotStarted:
		return "not_started"
	case SetStateStarted:
		return "started"
	case SetStateCompleted:
		return "completed"
	case SetStateReady:
		return "ready"
	case SetStateInvalid:
		return "invalid"
	case SetStateCalled:
		return "in_progress"
	case SetStateQueued:
		return "queued"
	default:
		return "unknown"
	}
}

// TournamentState is the numeric activity state of a tournament.
type TournamentState int

const (
	TournamentStateCreated   TournamentState = 1
	TournamentStateActive    TournamentState = 2
	TournamentStateCompleted TournamentState = 3
)

// Tournament is the validated tournament snapshot used by the core.
type Tournament struct {
	ID                   string          `validate:"required"`
	Slug                 string          `validate:"required"`
	Name                 string          `validate:"required"`
	State                TournamentState `validate:"gte=0,lte=3"`
	RegistrationOpen     bool
	RegistrationClosesAt *time.Time
	Events               []Event `validate:"dive"`
}

// Event is a bracket within a tournament.
type Event struct {
	ID          string `validate:"required"`
	Name        string
	NumEntrants int    `validate:"gte=0"`
	State       string `validate:"omitempty,oneof=CREATED ACTIVE COMPLETED"`
}

// Slot is one side of a set. EntrantID is empty until the bracket fills it.
type Slot struct {
	EntrantID string
	Name      string
	Score     *int
}

// Assigned reports whether an entrant occupies the slot.
func (s Slot) Assigned() bool { return s.EntrantID != "" }

// Set is a single match in a bracket.
type Set struct {
	ID         string   `validate:"required"`
	Identifier string
	RoundText  string
	Round      int
	State      SetState `validate:"gte=1,lte=7"`
	Slots      [2]Slot
}

// SetPage is one page of sets.
type SetPage struct {
	Items      []Set `validate:"dive"`
	TotalPages int   `validate:"gte=0"`
}

// Entrant is a registered competitor with any Discord accounts its
// participants linked on start.gg.
type Entrant struct {
	ID         string `validate:"required"`
	Name       string
	DiscordIDs []string
}

// EntrantPage is one page of entrants.
type EntrantPage struct {
	Items      []Entrant `validate:"dive"`
	TotalPages int       `validate:"gte=0"`
}
