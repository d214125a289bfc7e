package tournamentservice

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	matchservice "github.com/wukrit/fightrise-bot-sub001/app/modules/match/application"
	tournamentdb "github.com/wukrit/fightrise-bot-sub001/app/modules/tournament/infrastructure/repositories"
	"github.com/wukrit/fightrise-bot-sub001/internal/startgg"
)

// ------------------------
// Fake Tournament Repo
// ------------------------

type FakeTournamentRepo struct {
	mu     sync.Mutex
	trace  []string
	events []*tournamentdb.Event

	GetTournamentFunc           func(ctx context.Context, db bun.IDB, id uuid.UUID) (*tournamentdb.Tournament, error)
	GetTournamentByRemoteIDFunc func(ctx context.Context, db bun.IDB, remoteID string) (*tournamentdb.Tournament, error)
	UpsertTournamentFunc        func(ctx context.Context, db bun.IDB, t *tournamentdb.Tournament) error
	ListActiveTournamentsFunc   func(ctx context.Context, db bun.IDB) ([]*tournamentdb.Tournament, error)
	UpdatePollStateFunc         func(ctx context.Context, db bun.IDB, id uuid.UUID, phase tournamentdb.Phase, polledAt time.Time) error
	UpdatePhaseFunc             func(ctx context.Context, db bun.IDB, id uuid.UUID, phase tournamentdb.Phase) error
	UpsertEventsFunc            func(ctx context.Context, db bun.IDB, events []*tournamentdb.Event) error
	ListEventsFunc              func(ctx context.Context, db bun.IDB, tournamentID uuid.UUID) ([]*tournamentdb.Event, error)
	DeleteOrphanEventsFunc      func(ctx context.Context, db bun.IDB, tournamentID uuid.UUID, keep []string) (int, error)
}

var _ tournamentdb.Repository = (*FakeTournamentRepo)(nil)

func NewFakeTournamentRepo() *FakeTournamentRepo {
	return &FakeTournamentRepo{trace: []string{}}
}

func (f *FakeTournamentRepo) record(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, step)
}

func (f *FakeTournamentRepo) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.trace...)
}

func (f *FakeTournamentRepo) GetTournament(ctx context.Context, db bun.IDB, id uuid.UUID) (*tournamentdb.Tournament, error) {
	f.record("GetTournament")
	if f.GetTournamentFunc != nil {
		return f.GetTournamentFunc(ctx, db, id)
	}
	return nil, tournamentdb.ErrNotFound
}

func (f *FakeTournamentRepo) GetTournamentByRemoteID(ctx context.Context, db bun.IDB, remoteID string) (*tournamentdb.Tournament, error) {
	f.record("GetTournamentByRemoteID")
	if f.GetTournamentByRemoteIDFunc != nil {
		return f.GetTournamentByRemoteIDFunc(ctx, db, remoteID)
	}
	return nil, tournamentdb.ErrNotFound
}

func (f *FakeTournamentRepo) UpsertTournament(ctx context.Context, db bun.IDB, t *tournamentdb.Tournament) error {
	f.record("UpsertTournament")
	if f.UpsertTournamentFunc != nil {
		return f.UpsertTournamentFunc(ctx, db, t)
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (f *FakeTournamentRepo) ListActiveTournaments(ctx context.Context, db bun.IDB) ([]*tournamentdb.Tournament, error) {
	f.record("ListActiveTournaments")
	if f.ListActiveTournamentsFunc != nil {
		return f.ListActiveTournamentsFunc(ctx, db)
	}
	return nil, nil
}

func (f *FakeTournamentRepo) UpdatePollState(ctx context.Context, db bun.IDB, id uuid.UUID, phase tournamentdb.Phase, polledAt time.Time) error {
	f.record("UpdatePollState")
	if f.UpdatePollStateFunc != nil {
		return f.UpdatePollStateFunc(ctx, db, id, phase, polledAt)
	}
	return nil
}

func (f *FakeTournamentRepo) UpdatePhase(ctx context.Context, db bun.IDB, id uuid.UUID, phase tournamentdb.Phase) error {
	f.record("UpdatePhase")
	if f.UpdatePhaseFunc != nil {
		return f.UpdatePhaseFunc(ctx, db, id, phase)
	}
	return nil
}

// UpsertEvents stores events keyed by remote id, keeping the first id seen
// like the ON CONFLICT upsert does.
func (f *FakeTournamentRepo) UpsertEvents(ctx context.Context, db bun.IDB, events []*tournamentdb.Event) error {
	f.record("UpsertEvents")
	if f.UpsertEventsFunc != nil {
		if err := f.UpsertEventsFunc(ctx, db, events); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range events {
		replaced := false
		for i, stored := range f.events {
			if stored.RemoteID == e.RemoteID {
				cp := *e
				cp.ID = stored.ID
				f.events[i] = &cp
				e.ID = stored.ID
				replaced = true
				break
			}
		}
		if !replaced {
			cp := *e
			f.events = append(f.events, &cp)
		}
	}
	return nil
}

func (f *FakeTournamentRepo) ListEvents(ctx context.Context, db bun.IDB, tournamentID uuid.UUID) ([]*tournamentdb.Event, error) {
	f.record("ListEvents")
	if f.ListEventsFunc != nil {
		return f.ListEventsFunc(ctx, db, tournamentID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*tournamentdb.Event
	for _, e := range f.events {
		if e.TournamentID == tournamentID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *FakeTournamentRepo) DeleteOrphanEvents(ctx context.Context, db bun.IDB, tournamentID uuid.UUID, keep []string) (int, error) {
	f.record("DeleteOrphanEvents")
	f.mu.Lock()
	kept := f.events[:0]
	for _, e := range f.events {
		if e.TournamentID != tournamentID || slices.Contains(keep, e.RemoteID) {
			kept = append(kept, e)
		}
	}
	f.events = kept
	f.mu.Unlock()
	if f.DeleteOrphanEventsFunc != nil {
		return f.DeleteOrphanEventsFunc(ctx, db, tournamentID, keep)
	}
	return 0, nil
}

// ------------------------
// Fake Remote Source
// ------------------------

type FakeRemoteSource struct {
	mu        sync.Mutex
	setPages  map[string]int
	tournament *startgg.Tournament

	FetchTournamentFunc func(ctx context.Context, slug string) (*startgg.Tournament, error)
	FetchSetsFunc       func(ctx context.Context, eventID string, page, perPage int) (*startgg.SetPage, error)
	FetchEntrantsFunc   func(ctx context.Context, eventID string, page, perPage int) (*startgg.EntrantPage, error)
}

var _ RemoteSource = (*FakeRemoteSource)(nil)

func NewFakeRemoteSource(t *startgg.Tournament) *FakeRemoteSource {
	return &FakeRemoteSource{tournament: t, setPages: map[string]int{}}
}

// SetPagesFetched returns how many set pages were requested for an event.
func (f *FakeRemoteSource) SetPagesFetched(eventID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.setPages[eventID]
}

func (f *FakeRemoteSource) FetchTournament(ctx context.Context, slug string) (*startgg.Tournament, error) {
	if f.FetchTournamentFunc != nil {
		return f.FetchTournamentFunc(ctx, slug)
	}
	if f.tournament == nil {
		return nil, startgg.ErrNotFound
	}
	return f.tournament, nil
}

func (f *FakeRemoteSource) FetchSets(ctx context.Context, eventID string, page, perPage int) (*startgg.SetPage, error) {
	f.mu.Lock()
	f.setPages[eventID]++
	f.mu.Unlock()
	if f.FetchSetsFunc != nil {
		return f.FetchSetsFunc(ctx, eventID, page, perPage)
	}
	return &startgg.SetPage{TotalPages: 1}, nil
}

func (f *FakeRemoteSource) FetchEntrants(ctx context.Context, eventID string, page, perPage int) (*startgg.EntrantPage, error) {
	if f.FetchEntrantsFunc != nil {
		return f.FetchEntrantsFunc(ctx, eventID, page, perPage)
	}
	return &startgg.EntrantPage{TotalPages: 1}, nil
}

// ------------------------
// Fake Reconciler
// ------------------------

type reconcileCall struct {
	Event matchservice.EventRef
	Sets  []startgg.Set
	Links map[string]string
}

type FakeReconciler struct {
	mu    sync.Mutex
	calls []reconcileCall

	ReconcileFunc func(ctx context.Context, event matchservice.EventRef, sets []startgg.Set, links map[string]string) (matchservice.ReconcileResult, error)
}

var _ MatchReconciler = (*FakeReconciler)(nil)

func (f *FakeReconciler) ReconcileEventSets(ctx context.Context, event matchservice.EventRef, sets []startgg.Set, links map[string]string) (matchservice.ReconcileResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, reconcileCall{Event: event, Sets: sets, Links: links})
	f.mu.Unlock()
	if f.ReconcileFunc != nil {
		return f.ReconcileFunc(ctx, event, sets, links)
	}
	return matchservice.ReconcileResult{}, nil
}

func (f *FakeReconciler) Calls() []reconcileCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]reconcileCall(nil), f.calls...)
}

// ------------------------
// Fake Scheduler
// ------------------------

type FakeScheduler struct {
	mu        sync.Mutex
	scheduled []uuid.UUID
	cancelled []uuid.UUID

	SchedulePollFunc func(ctx context.Context, id uuid.UUID, delay time.Duration) error
	CancelPollFunc   func(ctx context.Context, id uuid.UUID) error
}

var _ PollScheduler = (*FakeScheduler)(nil)

func (f *FakeScheduler) SchedulePoll(ctx context.Context, id uuid.UUID, delay time.Duration) error {
	if f.SchedulePollFunc != nil {
		if err := f.SchedulePollFunc(ctx, id, delay); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled = append(f.scheduled, id)
	return nil
}

func (f *FakeScheduler) CancelPoll(ctx context.Context, id uuid.UUID) error {
	if f.CancelPollFunc != nil {
		if err := f.CancelPollFunc(ctx, id); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, id)
	return nil
}

func (f *FakeScheduler) Scheduled() []uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uuid.UUID(nil), f.scheduled...)
}

func (f *FakeScheduler) Cancelled() []uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uuid.UUID(nil), f.cancelled...)
}
