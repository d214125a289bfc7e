package matchhandlers

import (
	"context"

	"github.com/google/uuid"
	matchservice "github.com/wukrit/fightrise-bot-sub001/app/modules/match/application"
	"github.com/wukrit/fightrise-bot-sub001/internal/startgg"
	"github.com/wukrit/fightrise-bot-sub001/pkg/results"
)

// ------------------------
// Fake Match Service
// ------------------------

type FakeMatchService struct {
	trace []string

	CheckInPlayerFunc      func(ctx context.Context, matchID uuid.UUID, discordID string) (results.OperationResult[matchservice.CheckInResult, error], error)
	ReportScoreFunc        func(ctx context.Context, matchID uuid.UUID, discordID string, winnerSlot int) (results.OperationResult[matchservice.ReportResult, error], error)
	ConfirmResultFunc      func(ctx context.Context, matchID uuid.UUID, discordID string, confirmed bool) (results.OperationResult[matchservice.ConfirmResult, error], error)
	ReconcileEventSetsFunc func(ctx context.Context, event matchservice.EventRef, sets []startgg.Set, links map[string]string) (matchservice.ReconcileResult, error)
}

var _ matchservice.Service = (*FakeMatchService)(nil)

func NewFakeMatchService() *FakeMatchService {
	return &FakeMatchService{trace: []string{}}
}

func (f *FakeMatchService) record(step string) {
	f.trace = append(f.trace, step)
}

// Trace returns the sequence of service methods called.
func (f *FakeMatchService) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeMatchService) CheckInPlayer(ctx context.Context, matchID uuid.UUID, discordID string) (results.OperationResult[matchservice.CheckInResult, error], error) {
	f.record("CheckInPlayer")
	if f.CheckInPlayerFunc != nil {
		return f.CheckInPlayerFunc(ctx, matchID, discordID)
	}
	return results.OperationResult[matchservice.CheckInResult, error]{}, nil
}

func (f *FakeMatchService) ReportScore(ctx context.Context, matchID uuid.UUID, discordID string, winnerSlot int) (results.OperationResult[matchservice.ReportResult, error], error) {
	f.record("ReportScore")
	if f.ReportScoreFunc != nil {
		return f.ReportScoreFunc(ctx, matchID, discordID, winnerSlot)
	}
	return results.OperationResult[matchservice.ReportResult, error]{}, nil
}

func (f *FakeMatchService) ConfirmResult(ctx context.Context, matchID uuid.UUID, discordID string, confirmed bool) (results.OperationResult[matchservice.ConfirmResult, error], error) {
	f.record("ConfirmResult")
	if f.ConfirmResultFunc != nil {
		return f.ConfirmResultFunc(ctx, matchID, discordID, confirmed)
	}
	return results.OperationResult[matchservice.ConfirmResult, error]{}, nil
}

func (f *FakeMatchService) ReconcileEventSets(ctx context.Context, event matchservice.EventRef, sets []startgg.Set, links map[string]string) (matchservice.ReconcileResult, error) {
	f.record("ReconcileEventSets")
	if f.ReconcileEventSetsFunc != nil {
		return f.ReconcileEventSetsFunc(ctx, event, sets, links)
	}
	return matchservice.ReconcileResult{}, nil
}
