package tournamentservice

import "errors"

var (
	// ErrTournamentNotFound means no local tournament has the id.
	ErrTournamentNotFound = errors.New("tournament not found")
	// ErrRemoteTournamentNotFound means start.gg has no tournament for the slug.
	ErrRemoteTournamentNotFound = errors.New("tournament not found on start.gg")
	// ErrInvalidSlug means the slug could not be parsed.
	ErrInvalidSlug = errors.New("invalid tournament slug")
	// ErrAlreadyCancelled is returned when cancelling twice.
	ErrAlreadyCancelled = errors.New("tournament is already cancelled")
	// ErrTrackedElsewhere means another guild already tracks the tournament.
	ErrTrackedElsewhere = errors.New("tournament is already tracked in another server")
)
