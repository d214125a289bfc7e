package matchservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	matchdb "github.com/wukrit/fightrise-bot-sub001/app/modules/match/infrastructure/repositories"
	"github.com/wukrit/fightrise-bot-sub001/pkg/attr"
	"github.com/wukrit/fightrise-bot-sub001/pkg/results"
)

// CheckInResult describes a successful check-in.
type CheckInResult struct {
	MatchID       uuid.UUID
	Slot          int
	BothCheckedIn bool
	// Transitioned is true when this call moved the match to CHECKED_IN.
	Transitioned bool
}

// CheckInPlayer checks a player in for a called match. Once both players
// are in, the match moves to CHECKED_IN and the thread gets the report prompt.
func (s *MatchService) CheckInPlayer(ctx context.Context, matchID uuid.UUID, discordID string) (results.OperationResult[CheckInResult, error], error) {
	var match *matchdb.Match
	checkInTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[CheckInResult, error], error) {
		m, res, err := s.checkInLogic(ctx, db, matchID, discordID)
		match = m
		return res, err
	}

	result, err := withTelemetry(s, ctx, "CheckInPlayer", matchID.String(), func(ctx context.Context) (results.OperationResult[CheckInResult, error], error) {
		res, err := runInTx(s, ctx, checkInTx)
		if err != nil || !res.IsSuccess() {
			return res, err
		}
		return s.completeCheckIn(ctx, match, *res.Success)
	})
	return result, err
}

func (s *MatchService) checkInLogic(ctx context.Context, db bun.IDB, matchID uuid.UUID, discordID string) (*matchdb.Match, results.OperationResult[CheckInResult, error], error) {
	fail := func(e error) (*matchdb.Match, results.OperationResult[CheckInResult, error], error) {
		return nil, results.FailureResult[CheckInResult, error](e), nil
	}

	m, err := s.repo.GetMatch(ctx, db, matchID)
	if err != nil {
		if errors.Is(err, matchdb.ErrNotFound) {
			return fail(ErrMatchNotFound)
		}
		return nil, results.OperationResult[CheckInResult, error]{}, fmt.Errorf("failed to load match: %w", err)
	}
	if m.State != matchdb.StateCalled {
		return fail(ErrNotAvailableForCheckIn)
	}
	player := m.PlayerByDiscordID(discordID)
	if player == nil {
		return fail(ErrNotParticipant)
	}
	if player.CheckedIn {
		return fail(ErrAlreadyCheckedIn)
	}
	if m.CheckInDeadline != nil && s.now().After(*m.CheckInDeadline) {
		return fail(ErrCheckInDeadlinePassed)
	}

	if err := s.repo.SetPlayerCheckedIn(ctx, db, player.ID); err != nil {
		if errors.Is(err, matchdb.ErrNoRowsAffected) {
			return fail(ErrAlreadyCheckedIn)
		}
		return nil, results.OperationResult[CheckInResult, error]{}, fmt.Errorf("failed to check in player: %w", err)
	}

	return m, results.SuccessResult[CheckInResult, error](CheckInResult{
		MatchID: m.ID,
		Slot:    player.Slot,
	}), nil
}

// completeCheckIn runs after the check-in commits so that the count sees the
// opponent's committed check-in too.
func (s *MatchService) completeCheckIn(ctx context.Context, m *matchdb.Match, res CheckInResult) (results.OperationResult[CheckInResult, error], error) {
	count, err := s.repo.CountCheckedIn(ctx, nil, m.ID)
	if err != nil {
		return results.OperationResult[CheckInResult, error]{}, fmt.Errorf("failed to count check-ins: %w", err)
	}
	if count < 2 {
		return results.SuccessResult[CheckInResult, error](res), nil
	}
	res.BothCheckedIn = true

	err = s.repo.TransitionState(ctx, nil, m.ID, matchdb.StateCalled, matchdb.StateCheckedIn)
	switch {
	case err == nil:
		res.Transitioned = true
	case errors.Is(err, matchdb.ErrNoRowsAffected):
		// The opponent's request already moved the match.
		s.logger.InfoContext(ctx, "Match already transitioned to checked in",
			attr.ExtractCorrelationID(ctx),
			attr.MatchID(m.ID),
		)
	default:
		return results.OperationResult[CheckInResult, error]{}, fmt.Errorf("failed to transition match: %w", err)
	}

	if res.Transitioned {
		s.postToThread(ctx, m, "report_prompt", reportPrompt(m))
	}
	return results.SuccessResult[CheckInResult, error](res), nil
}
