package matchservice

import "errors"

// Domain failures. They are returned inside a results.OperationResult with
// a nil error and their text is shown to the player.
var (
	ErrMatchNotFound          = errors.New("match not found")
	ErrNotAvailableForCheckIn = errors.New("match is not available for check-in")
	ErrNotParticipant         = errors.New("you are not a participant in this match")
	ErrAlreadyCheckedIn       = errors.New("you are already checked in")
	ErrCheckInDeadlinePassed  = errors.New("check-in deadline has passed")
	ErrAlreadyCompleted       = errors.New("match is already completed")
	ErrAwaitingConfirmation   = errors.New("a result is already awaiting confirmation")
	ErrNotAvailableForReport  = errors.New("match is not available for score reporting")
	ErrInvalidWinnerSlot      = errors.New("winner must be player 1 or player 2")
	ErrNoResultPending        = errors.New("no result is pending confirmation")
	ErrSelfConfirmation       = errors.New("you cannot confirm your own report")
	ErrStateConflict          = errors.New("match state changed, try again")
)

// FailureReason maps a domain failure to a stable machine-readable code.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, ErrMatchNotFound):
		return "not_found"
	case errors.Is(err, ErrNotAvailableForCheckIn):
		return "not_available_for_check_in"
	case errors.Is(err, ErrNotParticipant):
		return "not_participant"
	case errors.Is(err, ErrAlreadyCheckedIn):
		return "already_checked_in"
	case errors.Is(err, ErrCheckInDeadlinePassed):
		return "deadline_passed"
	case errors.Is(err, ErrAlreadyCompleted):
		return "already_completed"
	case errors.Is(err, ErrAwaitingConfirmation):
		return "awaiting_confirmation"
	case errors.Is(err, ErrNotAvailableForReport):
		return "not_available_for_report"
	case errors.Is(err, ErrInvalidWinnerSlot):
		return "invalid_winner"
	case errors.Is(err, ErrNoResultPending):
		return "no_result_pending"
	case errors.Is(err, ErrSelfConfirmation):
		return "self_confirmation"
	case errors.Is(err, ErrStateConflict):
		return "state_conflict"
	default:
		return "internal_error"
	}
}
