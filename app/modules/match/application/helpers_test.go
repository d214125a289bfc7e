package matchservice

import (
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	matchdb "github.com/wukrit/fightrise-bot-sub001/app/modules/match/infrastructure/repositories"
	"github.com/wukrit/fightrise-bot-sub001/pkg/metrics"
)

const (
	discordA = "discord-a"
	discordB = "discord-b"
)

var fixedNow = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(repo matchdb.Repository, reporter ResultReporter, notifier *FakeNotifier) *MatchService {
	svc := NewMatchService(repo, reporter, nil, testLogger(), metrics.NewNoop(), nil, nil, 10*time.Minute)
	if notifier != nil {
		svc.notifier = notifier
	}
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func strPtr(s string) *string { return &s }

// newTestMatch builds a match between two linked players in the given state.
func newTestMatch(state matchdb.State) *matchdb.Match {
	id := uuid.New()
	deadline := fixedNow.Add(5 * time.Minute)
	return &matchdb.Match{
		ID:              id,
		EventID:         uuid.New(),
		RemoteSetID:     "set-" + id.String()[:8],
		Identifier:      "A",
		RoundText:       "Winners Round 1",
		Round:           1,
		State:           state,
		ThreadID:        strPtr("thread-1"),
		CheckInDeadline: &deadline,
		Players: []*matchdb.MatchPlayer{
			{ID: uuid.New(), MatchID: id, Slot: 1, RemoteEntrantID: "e-1", PlayerName: "Daigo", DiscordID: strPtr(discordA)},
			{ID: uuid.New(), MatchID: id, Slot: 2, RemoteEntrantID: "e-2", PlayerName: "Justin", DiscordID: strPtr(discordB)},
		},
	}
}
