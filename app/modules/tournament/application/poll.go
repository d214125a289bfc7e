package tournamentservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"github.com/uptrace/bun"
	matchservice "github.com/wukrit/fightrise-bot-sub001/app/modules/match/application"
	tournamentdb "github.com/wukrit/fightrise-bot-sub001/app/modules/tournament/infrastructure/repositories"
	"github.com/wukrit/fightrise-bot-sub001/internal/startgg"
	"github.com/wukrit/fightrise-bot-sub001/pkg/attr"
	"github.com/wukrit/fightrise-bot-sub001/pkg/results"
)

// PollResult aggregates one reconciliation pass over a tournament.
type PollResult struct {
	TournamentID uuid.UUID
	Phase        tournamentdb.Phase
	Events       int
	FailedEvents int
	Sets         matchservice.ReconcileResult
}

type eventOutcome struct {
	event  *tournamentdb.Event
	result matchservice.ReconcileResult
	err    error
}

// PollTournament pulls the remote tournament, syncs its events and
// reconciles every event's sets. Events are isolated from each other; only an
// authorization failure aborts the whole poll.
func (s *TournamentService) PollTournament(ctx context.Context, id uuid.UUID) (PollResult, error) {
	res, err := withTelemetry(s, ctx, "PollTournament", id.String(), func(ctx context.Context) (results.OperationResult[PollResult, error], error) {
		out, err := s.pollLogic(ctx, id)
		if err != nil {
			return results.OperationResult[PollResult, error]{}, err
		}
		return results.SuccessResult[PollResult, error](out), nil
	})
	if err != nil {
		return PollResult{TournamentID: id}, err
	}
	return *res.Success, nil
}

func (s *TournamentService) pollLogic(ctx context.Context, id uuid.UUID) (PollResult, error) {
	out := PollResult{TournamentID: id}

	t, err := s.repo.GetTournament(ctx, nil, id)
	if err != nil {
		if errors.Is(err, tournamentdb.ErrNotFound) {
			return out, fmt.Errorf("%w: %s", ErrTournamentNotFound, id)
		}
		return out, fmt.Errorf("failed to load tournament: %w", err)
	}
	out.Phase = t.Phase
	if t.Phase.IsTerminal() {
		return out, nil
	}

	remote, err := s.source.FetchTournament(ctx, t.Slug)
	if err != nil {
		return out, fmt.Errorf("failed to fetch tournament %s: %w", t.Slug, err)
	}
	phase := derivePhase(remote, t.Phase, s.now())

	events, err := s.syncEvents(ctx, t, remote)
	if err != nil {
		return out, err
	}
	out.Events = len(events)

	outcomes, err := s.reconcileEvents(ctx, t, events)
	if err != nil {
		return out, err
	}
	var authErr error
	for _, o := range outcomes {
		out.Sets.Add(o.result)
		if s.metrics != nil {
			s.metrics.RecordEventReconciled(ctx, o.err == nil)
		}
		if o.err == nil {
			continue
		}
		out.FailedEvents++
		s.logger.WarnContext(ctx, "Event reconciliation failed",
			attr.ExtractCorrelationID(ctx),
			attr.TournamentID(id),
			attr.String("event_remote_id", o.event.RemoteID),
			attr.Error(o.err),
		)
		if startgg.IsAuthError(o.err) && authErr == nil {
			authErr = o.err
		}
	}
	if s.metrics != nil {
		s.metrics.RecordSetsReconciled(ctx, out.Sets.Created, out.Sets.Updated)
	}
	if authErr != nil {
		return out, authErr
	}

	if err := s.repo.UpdatePollState(ctx, nil, id, phase, s.now()); err != nil {
		return out, fmt.Errorf("failed to update poll state: %w", err)
	}
	out.Phase = phase
	return out, nil
}

// syncEvents upserts the remote events and deletes local events that
// disappeared remotely.
func (s *TournamentService) syncEvents(ctx context.Context, t *tournamentdb.Tournament, remote *startgg.Tournament) ([]*tournamentdb.Event, error) {
	events := make([]*tournamentdb.Event, 0, len(remote.Events))
	keep := make([]string, 0, len(remote.Events))
	for _, e := range remote.Events {
		events = append(events, &tournamentdb.Event{
			ID:           uuid.New(),
			TournamentID: t.ID,
			RemoteID:     e.ID,
			Name:         e.Name,
			NumEntrants:  e.NumEntrants,
			Phase:        eventPhase(e.State),
		})
		keep = append(keep, e.ID)
	}

	type synced struct {
		events  []*tournamentdb.Event
		deleted int
	}
	syncTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[synced, error], error) {
		if err := s.repo.UpsertEvents(ctx, db, events); err != nil {
			return results.OperationResult[synced, error]{}, err
		}
		n, err := s.repo.DeleteOrphanEvents(ctx, db, t.ID, keep)
		if err != nil {
			return results.OperationResult[synced, error]{}, err
		}
		// Stored ids are the ones matches reference.
		stored, err := s.repo.ListEvents(ctx, db, t.ID)
		if err != nil {
			return results.OperationResult[synced, error]{}, err
		}
		return results.SuccessResult[synced, error](synced{events: stored, deleted: n}), nil
	}
	res, err := runInTx(s, ctx, syncTx)
	if err != nil {
		return nil, fmt.Errorf("failed to sync events: %w", err)
	}
	if n := res.Success.deleted; n > 0 {
		s.logger.InfoContext(ctx, "Deleted orphan events",
			attr.ExtractCorrelationID(ctx),
			attr.TournamentID(t.ID),
			attr.Int("count", n),
		)
	}
	return res.Success.events, nil
}

func (s *TournamentService) reconcileEvents(ctx context.Context, t *tournamentdb.Tournament, events []*tournamentdb.Event) ([]eventOutcome, error) {
	p := pool.NewWithResults[eventOutcome]().
		WithContext(ctx).
		WithMaxGoroutines(s.opts.EventConcurrency)

	for _, e := range events {
		p.Go(func(ctx context.Context) (out eventOutcome, err error) {
			out.event = e
			defer func() {
				if r := recover(); r != nil {
					out.err = fmt.Errorf("panic reconciling event %s: %v", e.RemoteID, r)
				}
			}()
			out.result, out.err = s.reconcileEvent(ctx, t, e)
			return out, nil
		})
	}
	return p.Wait()
}

func (s *TournamentService) reconcileEvent(ctx context.Context, t *tournamentdb.Tournament, e *tournamentdb.Event) (matchservice.ReconcileResult, error) {
	links, err := s.fetchLinks(ctx, e.RemoteID)
	if err != nil {
		return matchservice.ReconcileResult{}, err
	}
	sets, err := s.fetchSets(ctx, e.RemoteID)
	if err != nil {
		return matchservice.ReconcileResult{}, err
	}
	ref := matchservice.EventRef{
		ID:        e.ID,
		RemoteID:  e.RemoteID,
		Name:      e.Name,
		ChannelID: t.ChannelID,
	}
	return s.matches.ReconcileEventSets(ctx, ref, sets, links)
}

// fetchLinks maps entrant ids to the first linked Discord account.
func (s *TournamentService) fetchLinks(ctx context.Context, eventID string) (map[string]string, error) {
	links := map[string]string{}
	for page := 1; page <= s.opts.MaxPages; page++ {
		p, err := s.source.FetchEntrants(ctx, eventID, page, s.opts.PageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch entrants page %d: %w", page, err)
		}
		for _, e := range p.Items {
			if len(e.DiscordIDs) > 0 {
				links[e.ID] = e.DiscordIDs[0]
			}
		}
		if page >= p.TotalPages {
			break
		}
	}
	return links, nil
}

func (s *TournamentService) fetchSets(ctx context.Context, eventID string) ([]startgg.Set, error) {
	var sets []startgg.Set
	for page := 1; ; page++ {
		if page > s.opts.MaxPages {
			s.logger.WarnContext(ctx, "Set pagination hit the page ceiling",
				attr.ExtractCorrelationID(ctx),
				attr.String("event_remote_id", eventID),
				attr.Int("max_pages", s.opts.MaxPages),
			)
			break
		}
		p, err := s.source.FetchSets(ctx, eventID, page, s.opts.PageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch sets page %d: %w", page, err)
		}
		sets = append(sets, p.Items...)
		if page >= p.TotalPages {
			break
		}
	}
	return sets, nil
}

// derivePhase maps the remote tournament onto a local phase. A locally
// cancelled tournament stays cancelled.
func derivePhase(remote *startgg.Tournament, current tournamentdb.Phase, now time.Time) tournamentdb.Phase {
	switch {
	case current == tournamentdb.PhaseCancelled:
		return tournamentdb.PhaseCancelled
	case remote.State == startgg.TournamentStateCompleted:
		return tournamentdb.PhaseCompleted
	case remote.State == startgg.TournamentStateActive:
		return tournamentdb.PhaseInProgress
	case remote.RegistrationOpen:
		return tournamentdb.PhaseRegistrationOpen
	case remote.RegistrationClosesAt != nil && !remote.RegistrationClosesAt.After(now):
		return tournamentdb.PhaseRegistrationClosed
	default:
		return tournamentdb.PhaseCreated
	}
}

func eventPhase(state string) tournamentdb.EventPhase {
	switch state {
	case "ACTIVE":
		return tournamentdb.EventActive
	case "COMPLETED":
		return tournamentdb.EventCompleted
	default:
		return tournamentdb.EventNotStarted
	}
}
