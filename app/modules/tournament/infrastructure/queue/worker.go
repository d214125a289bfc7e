package pollqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/riverqueue/river"
	tournamentservice "github.com/wukrit/fightrise-bot-sub001/app/modules/tournament/application"
	tournamentdb "github.com/wukrit/fightrise-bot-sub001/app/modules/tournament/infrastructure/repositories"
	"github.com/wukrit/fightrise-bot-sub001/internal/startgg"
	"github.com/wukrit/fightrise-bot-sub001/pkg/attr"
	"github.com/wukrit/fightrise-bot-sub001/pkg/metrics"
)

const (
	defaultAttempts       = 3
	defaultInitialBackoff = 2 * time.Second
	defaultJobTimeout     = 5 * time.Minute
	fallbackInterval      = time.Minute
)

// Poller runs reconciliation passes. Implemented by the tournament service.
type Poller interface {
	PollTournament(ctx context.Context, id uuid.UUID) (tournamentservice.PollResult, error)
	TournamentPhase(ctx context.Context, id uuid.UUID) (tournamentdb.Phase, error)
}

// pollDecision is what the worker does with the job after a pass.
type pollDecision struct {
	Outcome string
	Snooze  time.Duration
	Cancel  error
}

// PollWorker executes PollTournamentJob.
type PollWorker struct {
	river.WorkerDefaults[PollTournamentJob]

	mu         sync.RWMutex
	poller     Poller
	logger     *slog.Logger
	metrics    metrics.SchedulerMetrics
	attempts   int
	timeout    time.Duration
	newBackOff func() backoff.BackOff
}

// NewPollWorker creates a worker. The poller may be bound later with Bind.
func NewPollWorker(poller Poller, logger *slog.Logger, m metrics.SchedulerMetrics, cfg Config) *PollWorker {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &PollWorker{
		poller:   poller,
		logger:   logger,
		metrics:  m,
		attempts: cfg.Attempts,
		timeout:  cfg.JobTimeout,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = cfg.RetryInitial
			b.MaxElapsedTime = 0
			return b
		},
	}
}

// Bind sets the poller. The tournament service depends on the queue, so the
// worker is constructed first and bound once the service exists.
func (w *PollWorker) Bind(p Poller) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.poller = p
}

func (w *PollWorker) currentPoller() Poller {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.poller
}

// Timeout bounds a single poll including retries.
func (w *PollWorker) Timeout(*river.Job[PollTournamentJob]) time.Duration {
	return w.timeout
}

// Work runs one poll and snoozes the job until the next one is due.
func (w *PollWorker) Work(ctx context.Context, job *river.Job[PollTournamentJob]) error {
	p := w.currentPoller()
	if p == nil {
		return errors.New("poll worker has no poller bound")
	}

	d := w.poll(ctx, p, job.Args.TournamentID)
	if w.metrics != nil {
		w.metrics.RecordPoll(ctx, d.Outcome)
	}
	switch {
	case d.Cancel != nil:
		return river.JobCancel(d.Cancel)
	case d.Snooze > 0:
		return river.JobSnooze(d.Snooze)
	default:
		return nil
	}
}

func (w *PollWorker) poll(ctx context.Context, p Poller, id uuid.UUID) pollDecision {
	logger := w.logger.With(attr.TournamentID(id))

	var res tournamentservice.PollResult
	op := func() error {
		var err error
		res, err = p.PollTournament(ctx, id)
		if err != nil && (startgg.IsAuthError(err) || errors.Is(err, tournamentservice.ErrTournamentNotFound)) {
			return backoff.Permanent(err)
		}
		return err
	}
	b := backoff.WithContext(backoff.WithMaxRetries(w.newBackOff(), uint64(w.attempts-1)), ctx)
	err := backoff.Retry(op, b)

	switch {
	case err == nil:
		interval, ok := CalculatePollInterval(res.Phase)
		if !ok {
			logger.InfoContext(ctx, "Tournament finished, polling stopped", attr.String("phase", string(res.Phase)))
			return pollDecision{Outcome: metrics.PollOutcomeStopped}
		}
		logger.DebugContext(ctx, "Poll completed",
			attr.String("phase", string(res.Phase)),
			attr.Int("created", res.Sets.Created),
			attr.Int("updated", res.Sets.Updated),
			attr.Int("failed_events", res.FailedEvents),
			attr.Duration("next_poll", interval),
		)
		return pollDecision{Outcome: metrics.PollOutcomeSuccess, Snooze: interval}

	case startgg.IsAuthError(err):
		logger.ErrorContext(ctx, "start.gg rejected credentials, polling cancelled", attr.Error(err))
		return pollDecision{Outcome: metrics.PollOutcomeUnauthorized, Cancel: err}

	case errors.Is(err, tournamentservice.ErrTournamentNotFound):
		logger.WarnContext(ctx, "Tournament no longer exists, polling cancelled", attr.Error(err))
		return pollDecision{Outcome: metrics.PollOutcomeMissing, Cancel: err}
	}

	logger.WarnContext(ctx, "Poll failed after retries", attr.Int("attempts", w.attempts), attr.Error(err))

	// Keep the poll alive at the cadence of the last known phase.
	phase, perr := p.TournamentPhase(ctx, id)
	if perr != nil {
		if errors.Is(perr, tournamentservice.ErrTournamentNotFound) {
			return pollDecision{Outcome: metrics.PollOutcomeMissing, Cancel: fmt.Errorf("tournament vanished: %w", perr)}
		}
		logger.WarnContext(ctx, "Failed to load tournament phase", attr.Error(perr))
		return pollDecision{Outcome: metrics.PollOutcomeFailed, Snooze: fallbackInterval}
	}
	interval, ok := CalculatePollInterval(phase)
	if !ok {
		return pollDecision{Outcome: metrics.PollOutcomeStopped}
	}
	return pollDecision{Outcome: metrics.PollOutcomeFailed, Snooze: interval}
}
