package testutils

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	matchdb "github.com/wukrit/fightrise-bot-sub001/app/modules/match/infrastructure/repositories"
	tournamentdb "github.com/wukrit/fightrise-bot-sub001/app/modules/tournament/infrastructure/repositories"
)

// TestDataGenerator builds realistic tournament rows for integration tests.
type TestDataGenerator struct {
	faker *gofakeit.Faker
}

// NewTestDataGenerator creates a generator. A seed makes runs repeatable.
func NewTestDataGenerator(seed ...int64) *TestDataGenerator {
	s := time.Now().UnixNano()
	if len(seed) > 0 {
		s = seed[0]
	}
	return &TestDataGenerator{faker: gofakeit.New(uint64(s))}
}

func (g *TestDataGenerator) remoteID() string {
	return fmt.Sprintf("%d", g.faker.IntRange(100000, 99999999))
}

func (g *TestDataGenerator) snowflake() string {
	return g.faker.Numerify("1###############")
}

// Tournament returns an unsaved tournament in phase.
func (g *TestDataGenerator) Tournament(phase tournamentdb.Phase) *tournamentdb.Tournament {
	name := g.faker.Company() + " Weekly"
	return &tournamentdb.Tournament{
		RemoteID:  g.remoteID(),
		Slug:      g.faker.LetterN(10),
		Name:      name,
		Phase:     phase,
		GuildID:   g.snowflake(),
		ChannelID: g.snowflake(),
	}
}

// Event returns an unsaved event of tournamentID.
func (g *TestDataGenerator) Event(t *tournamentdb.Tournament) *tournamentdb.Event {
	return &tournamentdb.Event{
		TournamentID: t.ID,
		RemoteID:     g.remoteID(),
		Name:         g.faker.RandomString([]string{"SF6 Singles", "Tekken 8 Singles", "GGST Singles"}),
		NumEntrants:  g.faker.IntRange(8, 128),
		Phase:        tournamentdb.EventActive,
	}
}

// Match returns an unsaved two-player match of event.
func (g *TestDataGenerator) Match(event *tournamentdb.Event, state matchdb.State) *matchdb.Match {
	p1, p2 := g.snowflake(), g.snowflake()
	return &matchdb.Match{
		EventID:     event.ID,
		RemoteSetID: g.remoteID(),
		Identifier:  g.faker.LetterN(1),
		RoundText:   "Winners Round 1",
		Round:       1,
		State:       state,
		Players: []*matchdb.MatchPlayer{
			{Slot: 1, RemoteEntrantID: g.remoteID(), PlayerName: g.faker.Gamertag(), DiscordID: &p1},
			{Slot: 2, RemoteEntrantID: g.remoteID(), PlayerName: g.faker.Gamertag(), DiscordID: &p2},
		},
	}
}

// Seed stores a tournament with one event and returns both.
func (g *TestDataGenerator) Seed(t *testing.T, ctx context.Context, db bun.IDB, phase tournamentdb.Phase) (*tournamentdb.Tournament, *tournamentdb.Event) {
	t.Helper()
	repo := tournamentdb.NewRepository(db)

	tournament := g.Tournament(phase)
	require.NoError(t, repo.UpsertTournament(ctx, db, tournament))

	event := g.Event(tournament)
	require.NoError(t, repo.UpsertEvents(ctx, db, []*tournamentdb.Event{event}))
	return tournament, event
}
