package matchservice

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	matchdb "github.com/wukrit/fightrise-bot-sub001/app/modules/match/infrastructure/repositories"
	"github.com/wukrit/fightrise-bot-sub001/internal/notify"
)

// ------------------------
// Fake Match Repo
// ------------------------

type FakeMatchRepo struct {
	mu    sync.Mutex
	trace []string

	GetMatchFunc                  func(ctx context.Context, db bun.IDB, id uuid.UUID) (*matchdb.Match, error)
	ListByEventFunc               func(ctx context.Context, db bun.IDB, eventID uuid.UUID) ([]*matchdb.Match, error)
	ListCompletedByTournamentFunc func(ctx context.Context, db bun.IDB, tournamentID uuid.UUID) ([]*matchdb.Match, error)
	CreateMatchFunc               func(ctx context.Context, db bun.IDB, m *matchdb.Match) error
	SetPlayerCheckedInFunc        func(ctx context.Context, db bun.IDB, playerID uuid.UUID) error
	CountCheckedInFunc            func(ctx context.Context, db bun.IDB, matchID uuid.UUID) (int, error)
	TransitionStateFunc           func(ctx context.Context, db bun.IDB, matchID uuid.UUID, from, to matchdb.State) error
	SetReportedByFunc             func(ctx context.Context, db bun.IDB, matchID uuid.UUID, playerID *uuid.UUID) error
	SetWinnerFunc                 func(ctx context.Context, db bun.IDB, matchID, winnerPlayerID uuid.UUID) error
	ClearWinnersFunc              func(ctx context.Context, db bun.IDB, matchID uuid.UUID) error
	SetReportedScoreFunc          func(ctx context.Context, db bun.IDB, playerID uuid.UUID, score int) error
	BindThreadFunc                func(ctx context.Context, db bun.IDB, matchID uuid.UUID, threadID string) error
}

var _ matchdb.Repository = (*FakeMatchRepo)(nil)

func NewFakeMatchRepo() *FakeMatchRepo {
	return &FakeMatchRepo{trace: []string{}}
}

func (f *FakeMatchRepo) record(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, step)
}

func (f *FakeMatchRepo) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.trace...)
}

func (f *FakeMatchRepo) GetMatch(ctx context.Context, db bun.IDB, id uuid.UUID) (*matchdb.Match, error) {
	f.record("GetMatch")
	if f.GetMatchFunc != nil {
		return f.GetMatchFunc(ctx, db, id)
	}
	return nil, matchdb.ErrNotFound
}

func (f *FakeMatchRepo) ListByEvent(ctx context.Context, db bun.IDB, eventID uuid.UUID) ([]*matchdb.Match, error) {
	f.record("ListByEvent")
	if f.ListByEventFunc != nil {
		return f.ListByEventFunc(ctx, db, eventID)
	}
	return nil, nil
}

func (f *FakeMatchRepo) ListCompletedByTournament(ctx context.Context, db bun.IDB, tournamentID uuid.UUID) ([]*matchdb.Match, error) {
	f.record("ListCompletedByTournament")
	if f.ListCompletedByTournamentFunc != nil {
		return f.ListCompletedByTournamentFunc(ctx, db, tournamentID)
	}
	return nil, nil
}

func (f *FakeMatchRepo) CreateMatch(ctx context.Context, db bun.IDB, m *matchdb.Match) error {
	f.record("CreateMatch")
	if f.CreateMatchFunc != nil {
		return f.CreateMatchFunc(ctx, db, m)
	}
	return nil
}

func (f *FakeMatchRepo) SetPlayerCheckedIn(ctx context.Context, db bun.IDB, playerID uuid.UUID) error {
	f.record("SetPlayerCheckedIn")
	if f.SetPlayerCheckedInFunc != nil {
		return f.SetPlayerCheckedInFunc(ctx, db, playerID)
	}
	return nil
}

func (f *FakeMatchRepo) CountCheckedIn(ctx context.Context, db bun.IDB, matchID uuid.UUID) (int, error) {
	f.record("CountCheckedIn")
	if f.CountCheckedInFunc != nil {
		return f.CountCheckedInFunc(ctx, db, matchID)
	}
	return 0, nil
}

func (f *FakeMatchRepo) TransitionState(ctx context.Context, db bun.IDB, matchID uuid.UUID, from, to matchdb.State) error {
	f.record("TransitionState")
	if f.TransitionStateFunc != nil {
		return f.TransitionStateFunc(ctx, db, matchID, from, to)
	}
	return nil
}

func (f *FakeMatchRepo) SetReportedBy(ctx context.Context, db bun.IDB, matchID uuid.UUID, playerID *uuid.UUID) error {
	f.record("SetReportedBy")
	if f.SetReportedByFunc != nil {
		return f.SetReportedByFunc(ctx, db, matchID, playerID)
	}
	return nil
}

func (f *FakeMatchRepo) SetWinner(ctx context.Context, db bun.IDB, matchID, winnerPlayerID uuid.UUID) error {
	f.record("SetWinner")
	if f.SetWinnerFunc != nil {
		return f.SetWinnerFunc(ctx, db, matchID, winnerPlayerID)
	}
	return nil
}

func (f *FakeMatchRepo) ClearWinners(ctx context.Context, db bun.IDB, matchID uuid.UUID) error {
	f.record("ClearWinners")
	if f.ClearWinnersFunc != nil {
		return f.ClearWinnersFunc(ctx, db, matchID)
	}
	return nil
}

func (f *FakeMatchRepo) SetReportedScore(ctx context.Context, db bun.IDB, playerID uuid.UUID, score int) error {
	f.record("SetReportedScore")
	if f.SetReportedScoreFunc != nil {
		return f.SetReportedScoreFunc(ctx, db, playerID, score)
	}
	return nil
}

func (f *FakeMatchRepo) BindThread(ctx context.Context, db bun.IDB, matchID uuid.UUID, threadID string) error {
	f.record("BindThread")
	if f.BindThreadFunc != nil {
		return f.BindThreadFunc(ctx, db, matchID, threadID)
	}
	return nil
}

// ------------------------
// In-memory store
// ------------------------

// memStore backs a FakeMatchRepo with maps and the same conditional update
// rules as the Postgres repository.
type memStore struct {
	mu      sync.Mutex
	matches map[uuid.UUID]*matchdb.Match
}

func newMemRepo(matches ...*matchdb.Match) (*FakeMatchRepo, *memStore) {
	st := &memStore{matches: map[uuid.UUID]*matchdb.Match{}}
	for _, m := range matches {
		st.matches[m.ID] = m
	}
	f := NewFakeMatchRepo()

	f.GetMatchFunc = func(_ context.Context, _ bun.IDB, id uuid.UUID) (*matchdb.Match, error) {
		st.mu.Lock()
		defer st.mu.Unlock()
		m, ok := st.matches[id]
		if !ok {
			return nil, matchdb.ErrNotFound
		}
		return cloneMatch(m), nil
	}
	f.ListByEventFunc = func(_ context.Context, _ bun.IDB, eventID uuid.UUID) ([]*matchdb.Match, error) {
		st.mu.Lock()
		defer st.mu.Unlock()
		var out []*matchdb.Match
		for _, m := range st.matches {
			if m.EventID == eventID {
				out = append(out, cloneMatch(m))
			}
		}
		return out, nil
	}
	f.CreateMatchFunc = func(_ context.Context, _ bun.IDB, m *matchdb.Match) error {
		st.mu.Lock()
		defer st.mu.Unlock()
		for _, existing := range st.matches {
			if existing.RemoteSetID == m.RemoteSetID {
				return matchdb.ErrDuplicateMatch
			}
		}
		for _, p := range m.Players {
			p.MatchID = m.ID
		}
		st.matches[m.ID] = cloneMatch(m)
		return nil
	}
	f.SetPlayerCheckedInFunc = func(_ context.Context, _ bun.IDB, playerID uuid.UUID) error {
		st.mu.Lock()
		defer st.mu.Unlock()
		p := st.player(playerID)
		if p == nil || p.CheckedIn {
			return matchdb.ErrNoRowsAffected
		}
		p.CheckedIn = true
		return nil
	}
	f.CountCheckedInFunc = func(_ context.Context, _ bun.IDB, matchID uuid.UUID) (int, error) {
		st.mu.Lock()
		defer st.mu.Unlock()
		n := 0
		for _, p := range st.matches[matchID].Players {
			if p.CheckedIn {
				n++
			}
		}
		return n, nil
	}
	f.TransitionStateFunc = func(_ context.Context, _ bun.IDB, matchID uuid.UUID, from, to matchdb.State) error {
		if !matchdb.CanTransition(from, to) {
			return matchdb.ErrInvalidTransition
		}
		st.mu.Lock()
		defer st.mu.Unlock()
		m, ok := st.matches[matchID]
		if !ok || m.State != from {
			return matchdb.ErrNoRowsAffected
		}
		m.State = to
		return nil
	}
	f.SetReportedByFunc = func(_ context.Context, _ bun.IDB, matchID uuid.UUID, playerID *uuid.UUID) error {
		st.mu.Lock()
		defer st.mu.Unlock()
		st.matches[matchID].ReportedBy = playerID
		return nil
	}
	f.SetWinnerFunc = func(_ context.Context, _ bun.IDB, matchID, winnerID uuid.UUID) error {
		st.mu.Lock()
		defer st.mu.Unlock()
		for _, p := range st.matches[matchID].Players {
			won := p.ID == winnerID
			p.IsWinner = &won
		}
		return nil
	}
	f.ClearWinnersFunc = func(_ context.Context, _ bun.IDB, matchID uuid.UUID) error {
		st.mu.Lock()
		defer st.mu.Unlock()
		for _, p := range st.matches[matchID].Players {
			p.IsWinner = nil
		}
		return nil
	}
	f.SetReportedScoreFunc = func(_ context.Context, _ bun.IDB, playerID uuid.UUID, score int) error {
		st.mu.Lock()
		defer st.mu.Unlock()
		p := st.player(playerID)
		if p == nil {
			return matchdb.ErrNoRowsAffected
		}
		p.ReportedScore = &score
		return nil
	}
	f.BindThreadFunc = func(_ context.Context, _ bun.IDB, matchID uuid.UUID, threadID string) error {
		st.mu.Lock()
		defer st.mu.Unlock()
		m, ok := st.matches[matchID]
		if !ok || m.ThreadID != nil {
			return matchdb.ErrNoRowsAffected
		}
		m.ThreadID = &threadID
		return nil
	}
	return f, st
}

func (st *memStore) player(id uuid.UUID) *matchdb.MatchPlayer {
	for _, m := range st.matches {
		if p := m.PlayerByID(id); p != nil {
			return p
		}
	}
	return nil
}

func (st *memStore) get(id uuid.UUID) *matchdb.Match {
	st.mu.Lock()
	defer st.mu.Unlock()
	return cloneMatch(st.matches[id])
}

func (st *memStore) count() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.matches)
}

func cloneMatch(m *matchdb.Match) *matchdb.Match {
	if m == nil {
		return nil
	}
	c := *m
	c.Players = make([]*matchdb.MatchPlayer, 0, len(m.Players))
	for _, p := range m.Players {
		pc := *p
		c.Players = append(c.Players, &pc)
	}
	return &c
}

// ------------------------
// Fake Reporter
// ------------------------

type FakeReporter struct {
	mu    sync.Mutex
	calls [][2]string

	ReportResultFunc func(ctx context.Context, setID, winnerEntrantID string) error
}

var _ ResultReporter = (*FakeReporter)(nil)

func (f *FakeReporter) ReportResult(ctx context.Context, setID, winnerEntrantID string) error {
	f.mu.Lock()
	f.calls = append(f.calls, [2]string{setID, winnerEntrantID})
	f.mu.Unlock()
	if f.ReportResultFunc != nil {
		return f.ReportResultFunc(ctx, setID, winnerEntrantID)
	}
	return nil
}

func (f *FakeReporter) Calls() [][2]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][2]string(nil), f.calls...)
}

// ------------------------
// Fake Notifier
// ------------------------

type FakeNotifier struct {
	mu      sync.Mutex
	trace   []string
	prompts []notify.Prompt

	CreateConversationFunc func(ctx context.Context, channelID, name string) (string, error)
	PostPromptFunc         func(ctx context.Context, conversationID string, prompt notify.Prompt) error
	AddParticipantFunc     func(ctx context.Context, conversationID, userID string) error
	ArchiveFunc            func(ctx context.Context, conversationID string) error
	DeleteConversationFunc func(ctx context.Context, conversationID string) error
}

var _ notify.Channel = (*FakeNotifier)(nil)

func (f *FakeNotifier) record(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, step)
}

func (f *FakeNotifier) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.trace...)
}

func (f *FakeNotifier) Prompts() []notify.Prompt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notify.Prompt(nil), f.prompts...)
}

func (f *FakeNotifier) CreateConversation(ctx context.Context, channelID, name string) (string, error) {
	f.record("CreateConversation")
	if f.CreateConversationFunc != nil {
		return f.CreateConversationFunc(ctx, channelID, name)
	}
	return "thread-1", nil
}

func (f *FakeNotifier) PostPrompt(ctx context.Context, conversationID string, prompt notify.Prompt) error {
	f.record("PostPrompt")
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.PostPromptFunc != nil {
		return f.PostPromptFunc(ctx, conversationID, prompt)
	}
	return nil
}

func (f *FakeNotifier) AddParticipant(ctx context.Context, conversationID, userID string) error {
	f.record("AddParticipant")
	if f.AddParticipantFunc != nil {
		return f.AddParticipantFunc(ctx, conversationID, userID)
	}
	return nil
}

func (f *FakeNotifier) Archive(ctx context.Context, conversationID string) error {
	f.record("Archive")
	if f.ArchiveFunc != nil {
		return f.ArchiveFunc(ctx, conversationID)
	}
	return nil
}

func (f *FakeNotifier) DeleteConversation(ctx context.Context, conversationID string) error {
	f.record("DeleteConversation")
	if f.DeleteConversationFunc != nil {
		return f.DeleteConversationFunc(ctx, conversationID)
	}
	return nil
}
