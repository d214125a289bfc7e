package tournamentservice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	tournamentdb "github.com/wukrit/fightrise-bot-sub001/app/modules/tournament/infrastructure/repositories"
	"github.com/wukrit/fightrise-bot-sub001/internal/startgg"
)

func TestNormalizeSlug(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "evo-2026", want: "evo-2026"},
		{in: "  Evo-2026 ", want: "evo-2026"},
		{in: "tournament/evo-2026", want: "evo-2026"},
		{in: "https://www.start.gg/tournament/evo-2026/event/sf6/overview", want: "evo-2026"},
		{in: "start.gg/tournament/evo-2026/details", want: "evo-2026"},
		{in: "", wantErr: true},
		{in: "foo/bar", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeSlug(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSlug)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetupTournament(t *testing.T) {
	repo := NewFakeTournamentRepo()
	var stored *tournamentdb.Tournament
	repo.UpsertTournamentFunc = func(_ context.Context, _ bun.IDB, tr *tournamentdb.Tournament) error {
		tr.ID = uuid.New()
		stored = tr
		return nil
	}
	var events []*tournamentdb.Event
	repo.UpsertEventsFunc = func(_ context.Context, _ bun.IDB, e []*tournamentdb.Event) error {
		events = e
		return nil
	}
	source := NewFakeRemoteSource(newRemoteTournament(
		startgg.Event{ID: "1", Name: "SF6", State: "ACTIVE"},
		startgg.Event{ID: "2", Name: "Tekken 8", State: "CREATED"},
	))
	scheduler := &FakeScheduler{}
	svc := newTestService(testDeps{repo: repo, source: source, matches: &FakeReconciler{}, scheduler: scheduler}, Options{})

	res, err := svc.SetupTournament(context.Background(), "https://start.gg/tournament/weekly-42", "guild-1", "chan-1")
	require.NoError(t, err)
	require.True(t, res.IsSuccess())

	out := *res.Success
	require.NotNil(t, stored)
	assert.Equal(t, stored.ID, out.TournamentID)
	assert.Equal(t, "weekly-42", stored.Slug)
	assert.Equal(t, "chan-1", stored.ChannelID)
	assert.Equal(t, "guild-1", stored.GuildID)
	assert.Equal(t, tournamentdb.PhaseInProgress, out.Phase)
	assert.Equal(t, 2, out.EventCount)
	assert.True(t, out.PollScheduled)
	assert.Equal(t, []uuid.UUID{stored.ID}, scheduler.Scheduled())

	require.Len(t, events, 2)
	assert.Equal(t, tournamentdb.EventActive, events[0].Phase)
	assert.Equal(t, tournamentdb.EventNotStarted, events[1].Phase)
	assert.Equal(t, stored.ID, events[0].TournamentID)
}

func TestSetupTournament_Failures(t *testing.T) {
	tests := []struct {
		name   string
		slug   string
		remote func(context.Context, string) (*startgg.Tournament, error)
		want   error
	}{
		{name: "invalid slug", slug: "a/b", want: ErrInvalidSlug},
		{
			name:   "unknown tournament",
			slug:   "ghost",
			remote: func(context.Context, string) (*startgg.Tournament, error) { return nil, startgg.ErrNotFound },
			want:   ErrRemoteTournamentNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewFakeTournamentRepo()
			source := NewFakeRemoteSource(nil)
			source.FetchTournamentFunc = tt.remote
			svc := newTestService(testDeps{repo: repo, source: source, matches: &FakeReconciler{}, scheduler: &FakeScheduler{}}, Options{})

			res, err := svc.SetupTournament(context.Background(), tt.slug, "guild-1", "chan-1")
			require.NoError(t, err)
			require.True(t, res.IsFailure())
			assert.ErrorIs(t, *res.Failure, tt.want)
			assert.Empty(t, repo.Trace())
		})
	}
}

func TestSetupTournament_ExistingTournament(t *testing.T) {
	tests := []struct {
		name     string
		existing tournamentdb.Tournament
		want     error
	}{
		{
			name:     "tracked in another guild",
			existing: tournamentdb.Tournament{GuildID: "guild-2", Phase: tournamentdb.PhaseInProgress},
			want:     ErrTrackedElsewhere,
		},
		{
			name:     "cancelled",
			existing: tournamentdb.Tournament{GuildID: "guild-1", Phase: tournamentdb.PhaseCancelled},
			want:     ErrAlreadyCancelled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewFakeTournamentRepo()
			repo.GetTournamentByRemoteIDFunc = func(context.Context, bun.IDB, string) (*tournamentdb.Tournament, error) {
				existing := tt.existing
				existing.ID = uuid.New()
				return &existing, nil
			}
			scheduler := &FakeScheduler{}
			svc := newTestService(testDeps{repo: repo, source: NewFakeRemoteSource(newRemoteTournament()), matches: &FakeReconciler{}, scheduler: scheduler}, Options{})

			res, err := svc.SetupTournament(context.Background(), "weekly-42", "guild-1", "chan-1")
			require.NoError(t, err)
			require.True(t, res.IsFailure())
			assert.ErrorIs(t, *res.Failure, tt.want)
			assert.Equal(t, []string{"GetTournamentByRemoteID"}, repo.Trace())
			assert.Empty(t, scheduler.Scheduled())
		})
	}
}

func TestSetupTournament_SameGuildRefreshes(t *testing.T) {
	repo := NewFakeTournamentRepo()
	existingID := uuid.New()
	repo.GetTournamentByRemoteIDFunc = func(context.Context, bun.IDB, string) (*tournamentdb.Tournament, error) {
		return &tournamentdb.Tournament{ID: existingID, GuildID: "guild-1", Phase: tournamentdb.PhaseRegistrationOpen}, nil
	}
	repo.UpsertTournamentFunc = func(_ context.Context, _ bun.IDB, tr *tournamentdb.Tournament) error {
		tr.ID = existingID
		return nil
	}
	scheduler := &FakeScheduler{}
	svc := newTestService(testDeps{repo: repo, source: NewFakeRemoteSource(newRemoteTournament()), matches: &FakeReconciler{}, scheduler: scheduler}, Options{})

	res, err := svc.SetupTournament(context.Background(), "weekly-42", "guild-1", "chan-2")
	require.NoError(t, err)
	require.True(t, res.IsSuccess())
	assert.Equal(t, existingID, res.Success.TournamentID)
	assert.Equal(t, []uuid.UUID{existingID}, scheduler.Scheduled())
}

func TestSetupTournament_AuthErrorIsInfrastructure(t *testing.T) {
	source := NewFakeRemoteSource(nil)
	source.FetchTournamentFunc = func(context.Context, string) (*startgg.Tournament, error) {
		return nil, startgg.ErrUnauthorized
	}
	svc := newTestService(testDeps{repo: NewFakeTournamentRepo(), source: source, matches: &FakeReconciler{}, scheduler: &FakeScheduler{}}, Options{})

	_, err := svc.SetupTournament(context.Background(), "weekly-42", "guild-1", "chan-1")
	assert.True(t, startgg.IsAuthError(err))
}

func TestSetupTournament_ScheduleFailureStillSucceeds(t *testing.T) {
	scheduler := &FakeScheduler{SchedulePollFunc: func(context.Context, uuid.UUID, time.Duration) error {
		return errors.New("queue down")
	}}
	svc := newTestService(testDeps{
		repo:      NewFakeTournamentRepo(),
		source:    NewFakeRemoteSource(newRemoteTournament()),
		matches:   &FakeReconciler{},
		scheduler: scheduler,
	}, Options{})

	res, err := svc.SetupTournament(context.Background(), "weekly-42", "guild-1", "chan-1")
	require.NoError(t, err)
	require.True(t, res.IsSuccess())
	assert.False(t, res.Success.PollScheduled)
}

func TestRequestPoll(t *testing.T) {
	active := newLocalTournament(tournamentdb.PhaseInProgress)
	done := newLocalTournament(tournamentdb.PhaseCompleted)
	repo := NewFakeTournamentRepo()
	repo.GetTournamentFunc = func(_ context.Context, _ bun.IDB, id uuid.UUID) (*tournamentdb.Tournament, error) {
		switch id {
		case active.ID:
			return active, nil
		case done.ID:
			return done, nil
		}
		return nil, tournamentdb.ErrNotFound
	}
	scheduler := &FakeScheduler{}
	svc := newTestService(testDeps{repo: repo, source: NewFakeRemoteSource(nil), matches: &FakeReconciler{}, scheduler: scheduler}, Options{})
	ctx := context.Background()

	res, err := svc.RequestPoll(ctx, active.ID)
	require.NoError(t, err)
	assert.True(t, res.IsSuccess())

	res, err = svc.RequestPoll(ctx, done.ID)
	require.NoError(t, err)
	assert.True(t, res.IsSuccess())

	res, err = svc.RequestPoll(ctx, uuid.New())
	require.NoError(t, err)
	require.True(t, res.IsFailure())
	assert.ErrorIs(t, *res.Failure, ErrTournamentNotFound)

	assert.Equal(t, []uuid.UUID{active.ID}, scheduler.Scheduled())
}

func TestCancelTournament(t *testing.T) {
	tr := newLocalTournament(tournamentdb.PhaseInProgress)
	repo := NewFakeTournamentRepo()
	repo.GetTournamentFunc = func(_ context.Context, _ bun.IDB, id uuid.UUID) (*tournamentdb.Tournament, error) {
		if id != tr.ID {
			return nil, tournamentdb.ErrNotFound
		}
		return tr, nil
	}
	repo.UpdatePhaseFunc = func(_ context.Context, _ bun.IDB, _ uuid.UUID, phase tournamentdb.Phase) error {
		tr.Phase = phase
		return nil
	}
	scheduler := &FakeScheduler{}
	svc := newTestService(testDeps{repo: repo, source: NewFakeRemoteSource(nil), matches: &FakeReconciler{}, scheduler: scheduler}, Options{})
	ctx := context.Background()

	res, err := svc.CancelTournament(ctx, tr.ID)
	require.NoError(t, err)
	require.True(t, res.IsSuccess())
	assert.Equal(t, tournamentdb.PhaseCancelled, tr.Phase)
	assert.Equal(t, []uuid.UUID{tr.ID}, scheduler.Cancelled())

	res, err = svc.CancelTournament(ctx, tr.ID)
	require.NoError(t, err)
	require.True(t, res.IsFailure())
	assert.ErrorIs(t, *res.Failure, ErrAlreadyCancelled)

	res, err = svc.CancelTournament(ctx, uuid.New())
	require.NoError(t, err)
	require.True(t, res.IsFailure())
	assert.ErrorIs(t, *res.Failure, ErrTournamentNotFound)
}

func TestResumePolling(t *testing.T) {
	a := newLocalTournament(tournamentdb.PhaseInProgress)
	b := newLocalTournament(tournamentdb.PhaseRegistrationOpen)
	c := newLocalTournament(tournamentdb.PhaseCreated)
	repo := NewFakeTournamentRepo()
	repo.ListActiveTournamentsFunc = func(context.Context, bun.IDB) ([]*tournamentdb.Tournament, error) {
		return []*tournamentdb.Tournament{a, b, c}, nil
	}
	queueErr := errors.New("queue down")
	scheduler := &FakeScheduler{SchedulePollFunc: func(_ context.Context, id uuid.UUID, delay time.Duration) error {
		assert.Zero(t, delay)
		if id == b.ID {
			return queueErr
		}
		return nil
	}}
	svc := newTestService(testDeps{repo: repo, source: NewFakeRemoteSource(nil), matches: &FakeReconciler{}, scheduler: scheduler}, Options{})

	n, err := svc.ResumePolling(context.Background())
	assert.Equal(t, 2, n)
	assert.ErrorIs(t, err, queueErr)
	assert.ElementsMatch(t, []uuid.UUID{a.ID, c.ID}, scheduler.Scheduled())
}
