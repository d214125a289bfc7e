package tournamenthandlers

import (
	"context"

	"github.com/google/uuid"
	tournamentservice "github.com/wukrit/fightrise-bot-sub001/app/modules/tournament/application"
	tournamentdb "github.com/wukrit/fightrise-bot-sub001/app/modules/tournament/infrastructure/repositories"
	"github.com/wukrit/fightrise-bot-sub001/pkg/results"
)

// ------------------------
// Fake Tournament Service
// ------------------------

type FakeTournamentService struct {
	trace []string

	SetupTournamentFunc  func(ctx context.Context, slug, guildID, channelID string) (results.OperationResult[tournamentservice.SetupResult, error], error)
	PollTournamentFunc   func(ctx context.Context, id uuid.UUID) (tournamentservice.PollResult, error)
	TournamentPhaseFunc  func(ctx context.Context, id uuid.UUID) (tournamentdb.Phase, error)
	RequestPollFunc      func(ctx context.Context, id uuid.UUID) (results.OperationResult[uuid.UUID, error], error)
	CancelTournamentFunc func(ctx context.Context, id uuid.UUID) (results.OperationResult[uuid.UUID, error], error)
	ResumePollingFunc    func(ctx context.Context) (int, error)
}

var _ tournamentservice.Service = (*FakeTournamentService)(nil)

func NewFakeTournamentService() *FakeTournamentService {
	return &FakeTournamentService{trace: []string{}}
}

func (f *FakeTournamentService) record(step string) {
	f.trace = append(f.trace, step)
}

// Trace returns the sequence of service methods called.
func (f *FakeTournamentService) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeTournamentService) SetupTournament(ctx context.Context, slug, guildID, channelID string) (results.OperationResult[tournamentservice.SetupResult, error], error) {
	f.record("SetupTournament")
	if f.SetupTournamentFunc != nil {
		return f.SetupTournamentFunc(ctx, slug, guildID, channelID)
	}
	return results.OperationResult[tournamentservice.SetupResult, error]{}, nil
}

func (f *FakeTournamentService) PollTournament(ctx context.Context, id uuid.UUID) (tournamentservice.PollResult, error) {
	f.record("PollTournament")
	if f.PollTournamentFunc != nil {
		return f.PollTournamentFunc(ctx, id)
	}
	return tournamentservice.PollResult{}, nil
}

func (f *FakeTournamentService) TournamentPhase(ctx context.Context, id uuid.UUID) (tournamentdb.Phase, error) {
	f.record("TournamentPhase")
	if f.TournamentPhaseFunc != nil {
		return f.TournamentPhaseFunc(ctx, id)
	}
	return "", nil
}

func (f *FakeTournamentService) RequestPoll(ctx context.Context, id uuid.UUID) (results.OperationResult[uuid.UUID, error], error) {
	f.record("RequestPoll")
	if f.RequestPollFunc != nil {
		return f.RequestPollFunc(ctx, id)
	}
	return results.SuccessResult[uuid.UUID, error](id), nil
}

func (f *FakeTournamentService) CancelTournament(ctx context.Context, id uuid.UUID) (results.OperationResult[uuid.UUID, error], error) {
	f.record("CancelTournament")
	if f.CancelTournamentFunc != nil {
		return f.CancelTournamentFunc(ctx, id)
	}
	return results.SuccessResult[uuid.UUID, error](id), nil
}

func (f *FakeTournamentService) ResumePolling(ctx context.Context) (int, error) {
	f.record("ResumePolling")
	if f.ResumePollingFunc != nil {
		return f.ResumePollingFunc(ctx)
	}
	return 0, nil
}
