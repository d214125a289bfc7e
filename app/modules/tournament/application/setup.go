package tournamentservice

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	tournamentdb "github.com/wukrit/fightrise-bot-sub001/app/modules/tournament/infrastructure/repositories"
	"github.com/wukrit/fightrise-bot-sub001/internal/startgg"
	"github.com/wukrit/fightrise-bot-sub001/pkg/attr"
	"github.com/wukrit/fightrise-bot-sub001/pkg/results"
)

// SetupResult describes a tournament bound to a Discord channel.
type SetupResult struct {
	TournamentID  uuid.UUID
	Name          string
	Phase         tournamentdb.Phase
	EventCount    int
	PollScheduled bool
}

// NormalizeSlug accepts "evo-2026", "tournament/evo-2026" or a start.gg URL
// and returns the bare tournament slug.
func NormalizeSlug(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrInvalidSlug
	}
	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidSlug, err)
		}
		s = u.Path
	}
	parts := strings.Split(strings.Trim(s, "/"), "/")
	for i, p := range parts {
		if p == "tournament" && i+1 < len(parts) {
			return strings.ToLower(parts[i+1]), nil
		}
	}
	if len(parts) != 1 || parts[0] == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidSlug, raw)
	}
	return strings.ToLower(parts[0]), nil
}

// SetupTournament starts tracking a start.gg tournament in a guild channel
// and schedules its first poll immediately.
func (s *TournamentService) SetupTournament(ctx context.Context, slug, guildID, channelID string) (results.OperationResult[SetupResult, error], error) {
	return withTelemetry(s, ctx, "SetupTournament", slug, func(ctx context.Context) (results.OperationResult[SetupResult, error], error) {
		normalized, err := NormalizeSlug(slug)
		if err != nil {
			return results.FailureResult[SetupResult, error](err), nil
		}

		remote, err := s.source.FetchTournament(ctx, normalized)
		if err != nil {
			if errors.Is(err, startgg.ErrNotFound) {
				return results.FailureResult[SetupResult, error](ErrRemoteTournamentNotFound), nil
			}
			return results.OperationResult[SetupResult, error]{}, fmt.Errorf("failed to fetch tournament: %w", err)
		}

		existing, err := s.repo.GetTournamentByRemoteID(ctx, nil, remote.ID)
		switch {
		case errors.Is(err, tournamentdb.ErrNotFound):
		case err != nil:
			return results.OperationResult[SetupResult, error]{}, fmt.Errorf("failed to look up tournament: %w", err)
		case existing.GuildID != "" && existing.GuildID != guildID:
			return results.FailureResult[SetupResult, error](ErrTrackedElsewhere), nil
		case existing.Phase == tournamentdb.PhaseCancelled:
			return results.FailureResult[SetupResult, error](ErrAlreadyCancelled), nil
		}

		t := &tournamentdb.Tournament{
			RemoteID:  remote.ID,
			Slug:      normalized,
			Name:      remote.Name,
			Phase:     derivePhase(remote, "", s.now()),
			GuildID:   guildID,
			ChannelID: channelID,
		}
		upsertTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[SetupResult, error], error) {
			if err := s.repo.UpsertTournament(ctx, db, t); err != nil {
				return results.OperationResult[SetupResult, error]{}, err
			}
			return results.SuccessResult[SetupResult, error](SetupResult{}), nil
		}
		if _, err := runInTx(s, ctx, upsertTx); err != nil {
			return results.OperationResult[SetupResult, error]{}, fmt.Errorf("failed to store tournament: %w", err)
		}

		events, err := s.syncEvents(ctx, t, remote)
		if err != nil {
			return results.OperationResult[SetupResult, error]{}, err
		}

		out := SetupResult{
			TournamentID: t.ID,
			Name:         t.Name,
			Phase:        t.Phase,
			EventCount:   len(events),
		}
		if !t.Phase.IsTerminal() && s.scheduler != nil {
			if err := s.scheduler.SchedulePoll(ctx, t.ID, 0); err != nil {
				s.logger.WarnContext(ctx, "Failed to schedule first poll",
					attr.ExtractCorrelationID(ctx),
					attr.TournamentID(t.ID),
					attr.Error(err),
				)
			} else {
				out.PollScheduled = true
			}
		}
		return results.SuccessResult[SetupResult, error](out), nil
	})
}

// RequestPoll schedules an immediate poll, replacing any pending delay.
func (s *TournamentService) RequestPoll(ctx context.Context, id uuid.UUID) (results.OperationResult[uuid.UUID, error], error) {
	return withTelemetry(s, ctx, "RequestPoll", id.String(), func(ctx context.Context) (results.OperationResult[uuid.UUID, error], error) {
		t, err := s.repo.GetTournament(ctx, nil, id)
		if err != nil {
			if errors.Is(err, tournamentdb.ErrNotFound) {
				return results.FailureResult[uuid.UUID, error](ErrTournamentNotFound), nil
			}
			return results.OperationResult[uuid.UUID, error]{}, err
		}
		if t.Phase.IsTerminal() {
			return results.SuccessResult[uuid.UUID, error](id), nil
		}
		if err := s.scheduler.SchedulePoll(ctx, id, 0); err != nil {
			return results.OperationResult[uuid.UUID, error]{}, fmt.Errorf("failed to schedule poll: %w", err)
		}
		return results.SuccessResult[uuid.UUID, error](id), nil
	})
}

// CancelTournament stops tracking a tournament and cancels its poll job.
func (s *TournamentService) CancelTournament(ctx context.Context, id uuid.UUID) (results.OperationResult[uuid.UUID, error], error) {
	return withTelemetry(s, ctx, "CancelTournament", id.String(), func(ctx context.Context) (results.OperationResult[uuid.UUID, error], error) {
		t, err := s.repo.GetTournament(ctx, nil, id)
		if err != nil {
			if errors.Is(err, tournamentdb.ErrNotFound) {
				return results.FailureResult[uuid.UUID, error](ErrTournamentNotFound), nil
			}
			return results.OperationResult[uuid.UUID, error]{}, err
		}
		if t.Phase == tournamentdb.PhaseCancelled {
			return results.FailureResult[uuid.UUID, error](ErrAlreadyCancelled), nil
		}
		if err := s.repo.UpdatePhase(ctx, nil, id, tournamentdb.PhaseCancelled); err != nil {
			return results.OperationResult[uuid.UUID, error]{}, fmt.Errorf("failed to cancel tournament: %w", err)
		}
		if err := s.scheduler.CancelPoll(ctx, id); err != nil {
			// The worker stops on its own once it sees the cancelled phase.
			s.logger.WarnContext(ctx, "Failed to cancel poll job",
				attr.ExtractCorrelationID(ctx),
				attr.TournamentID(id),
				attr.Error(err),
			)
		}
		return results.SuccessResult[uuid.UUID, error](id), nil
	})
}

// ResumePolling schedules a poll for every tournament that still needs one.
// Already scheduled jobs are deduplicated by the scheduler.
func (s *TournamentService) ResumePolling(ctx context.Context) (int, error) {
	active, err := s.repo.ListActiveTournaments(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to list active tournaments: %w", err)
	}
	var errs error
	scheduled := 0
	for _, t := range active {
		if err := s.scheduler.SchedulePoll(ctx, t.ID, 0); err != nil {
			errs = errors.Join(errs, fmt.Errorf("tournament %s: %w", t.ID, err))
			continue
		}
		scheduled++
	}
	s.logger.InfoContext(ctx, "Resumed tournament polling",
		attr.Int("scheduled", scheduled),
		attr.Int("active", len(active)),
	)
	return scheduled, errs
}
