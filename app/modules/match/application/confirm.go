package matchservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	matchdb "github.com/wukrit/fightrise-bot-sub001/app/modules/match/infrastructure/repositories"
	"github.com/wukrit/fightrise-bot-sub001/pkg/results"
)

// ConfirmResult describes the outcome of a confirmation or dispute.
type ConfirmResult struct {
	MatchID        uuid.UUID
	Confirmed      bool
	WinnerSlot     int
	RemoteReported bool
}

// ConfirmResult confirms or disputes a pending self-report. A dispute sends
// the match back to CHECKED_IN with the winner cleared.
func (s *MatchService) ConfirmResult(ctx context.Context, matchID uuid.UUID, discordID string, confirmed bool) (results.OperationResult[ConfirmResult, error], error) {
	var match *matchdb.Match
	confirmTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[ConfirmResult, error], error) {
		m, res, err := s.confirmLogic(ctx, db, matchID, discordID, confirmed)
		match = m
		return res, err
	}

	return withTelemetry(s, ctx, "ConfirmResult", matchID.String(), func(ctx context.Context) (results.OperationResult[ConfirmResult, error], error) {
		res, err := runInTx(s, ctx, confirmTx)
		if err != nil || !res.IsSuccess() {
			return res, err
		}

		out := *res.Success
		if out.Confirmed {
			winner := match.PlayerBySlot(out.WinnerSlot)
			if s.metrics != nil {
				s.metrics.RecordMatchCompleted(ctx, "confirm")
			}
			out.RemoteReported = s.reportRemote(ctx, match, winner)
			s.finishThread(ctx, match, winner)
		} else {
			s.postToThread(ctx, match, "dispute_prompt", disputePrompt(match))
		}
		return results.SuccessResult[ConfirmResult, error](out), nil
	})
}

func (s *MatchService) confirmLogic(ctx context.Context, db bun.IDB, matchID uuid.UUID, discordID string, confirmed bool) (*matchdb.Match, results.OperationResult[ConfirmResult, error], error) {
	fail := func(e error) (*matchdb.Match, results.OperationResult[ConfirmResult, error], error) {
		return nil, results.FailureResult[ConfirmResult, error](e), nil
	}

	m, err := s.repo.GetMatch(ctx, db, matchID)
	if err != nil {
		if errors.Is(err, matchdb.ErrNotFound) {
			return fail(ErrMatchNotFound)
		}
		return nil, results.OperationResult[ConfirmResult, error]{}, fmt.Errorf("failed to load match: %w", err)
	}
	if m.State == matchdb.StateCompleted {
		return fail(ErrAlreadyCompleted)
	}
	if m.State != matchdb.StatePendingConfirmation {
		return fail(ErrNoResultPending)
	}
	actor := m.PlayerByDiscordID(discordID)
	if actor == nil {
		return fail(ErrNotParticipant)
	}
	reporter := m.Winner()
	if m.ReportedBy != nil {
		reporter = m.PlayerByID(*m.ReportedBy)
	}
	if reporter != nil && reporter.ID == actor.ID {
		return fail(ErrSelfConfirmation)
	}

	out := ConfirmResult{MatchID: m.ID, Confirmed: confirmed}
	if winner := m.Winner(); winner != nil {
		out.WinnerSlot = winner.Slot
	}

	if confirmed {
		if err := s.repo.TransitionState(ctx, db, m.ID, matchdb.StatePendingConfirmation, matchdb.StateCompleted); err != nil {
			if errors.Is(err, matchdb.ErrNoRowsAffected) {
				return fail(ErrStateConflict)
			}
			return nil, results.OperationResult[ConfirmResult, error]{}, fmt.Errorf("failed to complete match: %w", err)
		}
		m.State = matchdb.StateCompleted
		return m, results.SuccessResult[ConfirmResult, error](out), nil
	}

	if err := s.repo.TransitionState(ctx, db, m.ID, matchdb.StatePendingConfirmation, matchdb.StateCheckedIn); err != nil {
		if errors.Is(err, matchdb.ErrNoRowsAffected) {
			return fail(ErrStateConflict)
		}
		return nil, results.OperationResult[ConfirmResult, error]{}, fmt.Errorf("failed to reset match: %w", err)
	}
	if err := s.repo.ClearWinners(ctx, db, m.ID); err != nil {
		return nil, results.OperationResult[ConfirmResult, error]{}, fmt.Errorf("failed to clear winners: %w", err)
	}
	if err := s.repo.SetReportedBy(ctx, db, m.ID, nil); err != nil {
		return nil, results.OperationResult[ConfirmResult, error]{}, fmt.Errorf("failed to clear reporter: %w", err)
	}

	m.State = matchdb.StateCheckedIn
	m.ReportedBy = nil
	for _, p := range m.Players {
		p.IsWinner = nil
	}
	out.WinnerSlot = 0
	return m, results.SuccessResult[ConfirmResult, error](out), nil
}
