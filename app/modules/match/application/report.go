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

// ReportResult describes an accepted score report.
type ReportResult struct {
	MatchID    uuid.UUID
	WinnerSlot int
	// AutoCompleted is true when the reporter declared the opponent the
	// winner and the match completed without confirmation.
	AutoCompleted  bool
	RemoteReported bool
}

// ReportScore records who won. Claiming your own win needs the opponent's
// confirmation; conceding completes the match and submits it to start.gg.
func (s *MatchService) ReportScore(ctx context.Context, matchID uuid.UUID, discordID string, winnerSlot int) (results.OperationResult[ReportResult, error], error) {
	var match *matchdb.Match
	reportTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[ReportResult, error], error) {
		m, res, err := s.reportLogic(ctx, db, matchID, discordID, winnerSlot)
		match = m
		return res, err
	}

	return withTelemetry(s, ctx, "ReportScore", matchID.String(), func(ctx context.Context) (results.OperationResult[ReportResult, error], error) {
		res, err := runInTx(s, ctx, reportTx)
		if err != nil || !res.IsSuccess() {
			return res, err
		}

		out := *res.Success
		winner := match.PlayerBySlot(out.WinnerSlot)
		if out.AutoCompleted {
			if s.metrics != nil {
				s.metrics.RecordMatchCompleted(ctx, "report")
			}
			out.RemoteReported = s.reportRemote(ctx, match, winner)
			s.finishThread(ctx, match, winner)
		} else {
			s.postToThread(ctx, match, "confirm_prompt", confirmPrompt(match, winner))
		}
		return results.SuccessResult[ReportResult, error](out), nil
	})
}

func (s *MatchService) reportLogic(ctx context.Context, db bun.IDB, matchID uuid.UUID, discordID string, winnerSlot int) (*matchdb.Match, results.OperationResult[ReportResult, error], error) {
	fail := func(e error) (*matchdb.Match, results.OperationResult[ReportResult, error], error) {
		return nil, results.FailureResult[ReportResult, error](e), nil
	}

	m, err := s.repo.GetMatch(ctx, db, matchID)
	if err != nil {
		if errors.Is(err, matchdb.ErrNotFound) {
			return fail(ErrMatchNotFound)
		}
		return nil, results.OperationResult[ReportResult, error]{}, fmt.Errorf("failed to load match: %w", err)
	}
	reporter := m.PlayerByDiscordID(discordID)
	if reporter == nil {
		return fail(ErrNotParticipant)
	}
	switch m.State {
	case matchdb.StateCompleted:
		return fail(ErrAlreadyCompleted)
	case matchdb.StatePendingConfirmation:
		return fail(ErrAwaitingConfirmation)
	case matchdb.StateCheckedIn:
	default:
		return fail(ErrNotAvailableForReport)
	}
	winner := m.PlayerBySlot(winnerSlot)
	if winner == nil {
		return fail(ErrInvalidWinnerSlot)
	}

	selfReport := winner.ID == reporter.ID
	target := matchdb.StateCompleted
	if selfReport {
		target = matchdb.StatePendingConfirmation
	}

	if err := s.repo.TransitionState(ctx, db, m.ID, matchdb.StateCheckedIn, target); err != nil {
		if errors.Is(err, matchdb.ErrNoRowsAffected) {
			return fail(ErrStateConflict)
		}
		return nil, results.OperationResult[ReportResult, error]{}, fmt.Errorf("failed to transition match: %w", err)
	}
	if err := s.repo.SetWinner(ctx, db, m.ID, winner.ID); err != nil {
		return nil, results.OperationResult[ReportResult, error]{}, fmt.Errorf("failed to set winner: %w", err)
	}
	if err := s.repo.SetReportedBy(ctx, db, m.ID, &reporter.ID); err != nil {
		return nil, results.OperationResult[ReportResult, error]{}, fmt.Errorf("failed to set reporter: %w", err)
	}

	m.State = target
	m.ReportedBy = &reporter.ID
	markWinner(m, winner.ID)

	return m, results.SuccessResult[ReportResult, error](ReportResult{
		MatchID:       m.ID,
		WinnerSlot:    winnerSlot,
		AutoCompleted: !selfReport,
	}), nil
}

// markWinner mirrors SetWinner on the in-memory match.
func markWinner(m *matchdb.Match, winnerID uuid.UUID) {
	for _, p := range m.Players {
		won := p.ID == winnerID
		p.IsWinner = &won
	}
}
