package matchservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	matchdb "github.com/wukrit/fightrise-bot-sub001/app/modules/match/infrastructure/repositories"
	"github.com/wukrit/fightrise-bot-sub001/internal/startgg"
	"github.com/wukrit/fightrise-bot-sub001/pkg/attr"
	"github.com/wukrit/fightrise-bot-sub001/pkg/results"
)

// EventRef identifies the local event a batch of sets belongs to.
type EventRef struct {
	ID        uuid.UUID
	RemoteID  string
	Name      string
	ChannelID string
}

// ReconcileResult counts what one reconciliation pass did.
type ReconcileResult struct {
	Created    int
	Duplicates int
	Updated    int
	Skipped    int
	Failed     int
}

// Add accumulates other into r.
func (r *ReconcileResult) Add(other ReconcileResult) {
	r.Created += other.Created
	r.Duplicates += other.Duplicates
	r.Updated += other.Updated
	r.Skipped += other.Skipped
	r.Failed += other.Failed
}

// ReconcileEventSets applies remote sets to the local matches of one event.
// links maps start.gg entrant ids to Discord user ids. A failing set is
// counted and joined into the returned error; the remaining sets still run.
func (s *MatchService) ReconcileEventSets(ctx context.Context, event EventRef, sets []startgg.Set, links map[string]string) (ReconcileResult, error) {
	var setErrs error
	result, err := withTelemetry(s, ctx, "ReconcileEventSets", event.ID.String(), func(ctx context.Context) (results.OperationResult[ReconcileResult, error], error) {
		existing, err := s.repo.ListByEvent(ctx, nil, event.ID)
		if err != nil {
			return results.OperationResult[ReconcileResult, error]{}, fmt.Errorf("failed to prefetch matches: %w", err)
		}
		byRemote := make(map[string]*matchdb.Match, len(existing))
		for _, m := range existing {
			byRemote[m.RemoteSetID] = m
		}

		var out ReconcileResult
		for _, set := range sets {
			if err := ctx.Err(); err != nil {
				return results.OperationResult[ReconcileResult, error]{}, err
			}
			if err := s.reconcileSet(ctx, event, set, byRemote[set.ID], links, &out); err != nil {
				out.Failed++
				setErrs = errors.Join(setErrs, fmt.Errorf("set %s: %w", set.ID, err))
			}
		}
		return results.SuccessResult[ReconcileResult, error](out), nil
	})
	if err != nil {
		return ReconcileResult{}, err
	}
	return *result.Success, setErrs
}

func (s *MatchService) reconcileSet(ctx context.Context, event EventRef, set startgg.Set, local *matchdb.Match, links map[string]string, out *ReconcileResult) error {
	if !set.Slots[0].Assigned() || !set.Slots[1].Assigned() {
		out.Skipped++
		return nil
	}

	if local == nil {
		if !set.State.Playable() {
			out.Skipped++
			return nil
		}
		created, err := s.createFromRemote(ctx, event, set, links)
		if err != nil {
			return err
		}
		if created {
			out.Created++
		} else {
			out.Duplicates++
		}
		return nil
	}

	if !set.State.Completed() || local.State == matchdb.StateCompleted {
		return nil
	}
	updated, err := s.completeFromRemote(ctx, local, set)
	if err != nil {
		return err
	}
	if updated {
		out.Updated++
	} else {
		out.Skipped++
	}
	return nil
}

// createFromRemote inserts a called match with both players. A unique
// violation means a concurrent poll already created it and reports false.
func (s *MatchService) createFromRemote(ctx context.Context, event EventRef, set startgg.Set, links map[string]string) (bool, error) {
	m := &matchdb.Match{
		ID:              uuid.New(),
		EventID:         event.ID,
		RemoteSetID:     set.ID,
		Identifier:      set.Identifier,
		RoundText:       set.RoundText,
		Round:           set.Round,
		State:           matchdb.StateCalled,
		CheckInDeadline: deadlineFrom(s.now(), s.checkInWindow),
	}
	for i, slot := range set.Slots {
		p := &matchdb.MatchPlayer{
			ID:              uuid.New(),
			Slot:            i + 1,
			RemoteEntrantID: slot.EntrantID,
			PlayerName:      slot.Name,
		}
		if d, ok := links[slot.EntrantID]; ok && d != "" {
			discordID := d
			p.DiscordID = &discordID
		}
		m.Players = append(m.Players, p)
	}

	createTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[bool, error], error) {
		if err := s.repo.CreateMatch(ctx, db, m); err != nil {
			if errors.Is(err, matchdb.ErrDuplicateMatch) {
				return results.SuccessResult[bool, error](false), nil
			}
			return results.OperationResult[bool, error]{}, err
		}
		return results.SuccessResult[bool, error](true), nil
	}
	res, err := runInTx(s, ctx, createTx)
	if err != nil {
		return false, fmt.Errorf("failed to create match: %w", err)
	}
	created := *res.Success
	if s.metrics != nil {
		s.metrics.RecordMatchCreated(ctx, !created)
	}
	if !created {
		s.logger.InfoContext(ctx, "Match already created by a concurrent poll",
			attr.ExtractCorrelationID(ctx),
			attr.String("remote_set_id", set.ID),
		)
		return false, nil
	}

	s.openConversation(ctx, event, m)
	return true, nil
}

// openConversation runs after the match commits. Any failure is logged and
// leaves the match without a thread.
func (s *MatchService) openConversation(ctx context.Context, event EventRef, m *matchdb.Match) {
	if s.notifier == nil || event.ChannelID == "" {
		return
	}

	var threadID string
	ok := s.notifyStep(ctx, "create_conversation", m.ID, func() error {
		var err error
		threadID, err = s.notifier.CreateConversation(ctx, event.ChannelID, threadName(m))
		return err
	})
	if !ok {
		return
	}

	if err := s.repo.BindThread(ctx, nil, m.ID, threadID); err != nil {
		s.logger.WarnContext(ctx, "Failed to bind thread, deleting conversation",
			attr.ExtractCorrelationID(ctx),
			attr.MatchID(m.ID),
			attr.String("thread_id", threadID),
			attr.Error(err),
		)
		if s.metrics != nil {
			s.metrics.RecordNotificationFailure(ctx, "bind_thread")
		}
		s.notifyStep(ctx, "delete_conversation", m.ID, func() error {
			return s.notifier.DeleteConversation(ctx, threadID)
		})
		return
	}
	m.ThreadID = &threadID

	for _, p := range m.Players {
		if p.DiscordID == nil {
			continue
		}
		userID := *p.DiscordID
		s.notifyStep(ctx, "add_participant", m.ID, func() error {
			return s.notifier.AddParticipant(ctx, threadID, userID)
		})
	}
	s.postToThread(ctx, m, "checkin_prompt", checkInPrompt(m))
}

// completeFromRemote applies a final remote result. Scores must both be
// present, not both zero and not tied; otherwise the set is skipped.
func (s *MatchService) completeFromRemote(ctx context.Context, m *matchdb.Match, set startgg.Set) (bool, error) {
	s1, s2 := set.Slots[0].Score, set.Slots[1].Score
	if s1 == nil || s2 == nil || (*s1 <= 0 && *s2 <= 0) || *s1 == *s2 {
		s.logger.InfoContext(ctx, "Skipping completed set without a usable score",
			attr.ExtractCorrelationID(ctx),
			attr.MatchID(m.ID),
			attr.String("remote_set_id", set.ID),
		)
		return false, nil
	}
	if !matchdb.CanTransition(m.State, matchdb.StateCompleted) {
		return false, nil
	}
	winnerSlot := 1
	if *s2 > *s1 {
		winnerSlot = 2
	}
	p1, p2 := m.PlayerBySlot(1), m.PlayerBySlot(2)
	if p1 == nil || p2 == nil {
		return false, fmt.Errorf("match %s is missing a player", m.ID)
	}
	winner := m.PlayerBySlot(winnerSlot)

	completeTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[bool, error], error) {
		if err := s.repo.TransitionState(ctx, db, m.ID, m.State, matchdb.StateCompleted); err != nil {
			if errors.Is(err, matchdb.ErrNoRowsAffected) {
				return results.SuccessResult[bool, error](false), nil
			}
			return results.OperationResult[bool, error]{}, err
		}
		if err := s.repo.SetReportedScore(ctx, db, p1.ID, *s1); err != nil {
			return results.OperationResult[bool, error]{}, err
		}
		if err := s.repo.SetReportedScore(ctx, db, p2.ID, *s2); err != nil {
			return results.OperationResult[bool, error]{}, err
		}
		if err := s.repo.SetWinner(ctx, db, m.ID, winner.ID); err != nil {
			return results.OperationResult[bool, error]{}, err
		}
		return results.SuccessResult[bool, error](true), nil
	}
	res, err := runInTx(s, ctx, completeTx)
	if err != nil {
		return false, fmt.Errorf("failed to complete match: %w", err)
	}
	if !*res.Success {
		s.logger.InfoContext(ctx, "Match state changed during remote completion",
			attr.ExtractCorrelationID(ctx),
			attr.MatchID(m.ID),
		)
		return false, nil
	}

	m.State = matchdb.StateCompleted
	p1.ReportedScore, p2.ReportedScore = s1, s2
	markWinner(m, winner.ID)
	if s.metrics != nil {
		s.metrics.RecordMatchCompleted(ctx, "remote")
	}
	s.finishThread(ctx, m, winner)
	return true, nil
}
