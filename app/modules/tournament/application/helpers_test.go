package tournamentservice

import (
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	tournamentdb "github.com/wukrit/fightrise-bot-sub001/app/modules/tournament/infrastructure/repositories"
	"github.com/wukrit/fightrise-bot-sub001/internal/startgg"
	"github.com/wukrit/fightrise-bot-sub001/pkg/metrics"
)

var fixedNow = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testDeps struct {
	repo      *FakeTournamentRepo
	source    *FakeRemoteSource
	matches   *FakeReconciler
	scheduler *FakeScheduler
}

func newTestService(d testDeps, opts Options) *TournamentService {
	svc := NewTournamentService(d.repo, d.source, d.matches, d.scheduler, testLogger(), metrics.NewNoop(), nil, nil, opts)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func newLocalTournament(phase tournamentdb.Phase) *tournamentdb.Tournament {
	return &tournamentdb.Tournament{
		ID:        uuid.New(),
		RemoteID:  "1234",
		Slug:      "weekly-42",
		Name:      "Weekly 42",
		Phase:     phase,
		GuildID:   "guild-1",
		ChannelID: "chan-1",
	}
}

func newRemoteTournament(events ...startgg.Event) *startgg.Tournament {
	return &startgg.Tournament{
		ID:     "1234",
		Slug:   "tournament/weekly-42",
		Name:   "Weekly 42",
		State:  startgg.TournamentStateActive,
		Events: events,
	}
}
