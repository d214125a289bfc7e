package pollqueue

import (
	"time"

	"github.com/google/uuid"
	tournamentdb "github.com/wukrit/fightrise-bot-sub001/app/modules/tournament/infrastructure/repositories"
)

const (
	// QueueName is the dedicated River queue for tournament polls.
	QueueName = "poll"

	pollJobKind = "tournament_poll"
)

// PollTournamentJob triggers one reconciliation pass over a tournament.
// The worker snoozes the same job until the tournament stops needing polls,
// so there is at most one live job per tournament.
type PollTournamentJob struct {
	TournamentID uuid.UUID `json:"tournament_id"`
}

// Kind returns the job type identifier for River.
func (PollTournamentJob) Kind() string { return pollJobKind }

// PollJobKey is the stable key stored in the job metadata.
func PollJobKey(tournamentID uuid.UUID) string {
	return "poll-" + tournamentID.String()
}

// CalculatePollInterval returns how long to wait before polling a tournament
// in the given phase again. ok is false once polling should stop.
func CalculatePollInterval(phase tournamentdb.Phase) (interval time.Duration, ok bool) {
	switch phase {
	case tournamentdb.PhaseInProgress:
		return 15 * time.Second, true
	case tournamentdb.PhaseRegistrationOpen:
		return 30 * time.Second, true
	case tournamentdb.PhaseCreated, tournamentdb.PhaseRegistrationClosed:
		return 5 * time.Minute, true
	default:
		return 0, false
	}
}

// JobInfo represents information about a scheduled job (for debugging/monitoring)
type JobInfo struct {
	ID           int64  `json:"id"`
	Kind         string `json:"kind"`
	TournamentID string `json:"tournament_id"`
	State        string `json:"state"`
	ScheduledAt  string `json:"scheduled_at"`
	CreatedAt    string `json:"created_at"`
	Attempt      int    `json:"attempt"`
	MaxAttempts  int    `json:"max_attempts"`
}
