package pollqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivertype"
	"github.com/uptrace/bun"
	"github.com/wukrit/fightrise-bot-sub001/pkg/attr"
	"github.com/wukrit/fightrise-bot-sub001/pkg/metrics"
)

const serviceName = "river"

// QueueService defines the contract for tournament poll scheduling.
type QueueService interface {
	// SchedulePoll ensures a poll job exists for the tournament and runs
	// delay from now. A repeat call replaces the delay of a waiting job.
	SchedulePoll(ctx context.Context, tournamentID uuid.UUID, delay time.Duration) error
	// CancelPoll cancels pending poll jobs for the tournament.
	CancelPoll(ctx context.Context, tournamentID uuid.UUID) error
	// GetScheduledJobs returns the poll jobs of a tournament (for debugging)
	GetScheduledJobs(ctx context.Context, tournamentID uuid.UUID) ([]JobInfo, error)
	HealthCheck(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// jobClient is the subset of the River client the service uses.
type jobClient interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
	JobCancel(ctx context.Context, jobID int64) (*rivertype.JobRow, error)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	StopAndCancel(ctx context.Context) error
}

var _ QueueService = (*Service)(nil)

// Service schedules tournament polls on River.
type Service struct {
	client      jobClient
	pool        *pgxpool.Pool
	worker      *PollWorker
	logger      *slog.Logger
	db          *bun.DB
	metrics     metrics.SchedulerMetrics
	gracePeriod time.Duration
	now         func() time.Time
}

// Config tunes the queue and its worker.
type Config struct {
	MaxWorkers   int
	GracePeriod  time.Duration
	JobTimeout   time.Duration
	Attempts     int
	RetryInitial time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = 1
	}
	if c.GracePeriod <= 0 {
		c.GracePeriod = 10 * time.Second
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaultJobTimeout
	}
	if c.Attempts <= 0 {
		c.Attempts = defaultAttempts
	}
	if c.RetryInitial <= 0 {
		c.RetryInitial = defaultInitialBackoff
	}
	return c
}

// uniqueStates covers every state of a live job. Completed and cancelled
// jobs are left out so a finished tournament can be polled again later.
var uniqueStates = []rivertype.JobState{
	rivertype.JobStateAvailable,
	rivertype.JobStatePending,
	rivertype.JobStateRetryable,
	rivertype.JobStateRunning,
	rivertype.JobStateScheduled,
}

// NewService creates a River-based poll queue. Call Bind with the tournament
// service before Start.
func NewService(ctx context.Context, bunDB *bun.DB, logger *slog.Logger, dsn string, m metrics.SchedulerMetrics, cfg Config) (*Service, error) {
	ctxLogger := logger.With(
		attr.String("operation", "new_poll_queue_service"),
		attr.String("component", "river_queue"),
	)

	start := time.Now()
	m.RecordOperationAttempt(ctx, "initialize_service", serviceName)

	ctxLogger.Info("Initializing poll queue service")

	// River needs pgx, not database/sql.
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		m.RecordOperationFailure(ctx, "initialize_service", serviceName)
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		m.RecordOperationFailure(ctx, "initialize_service", serviceName)
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		m.RecordOperationFailure(ctx, "initialize_service", serviceName)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	cfg = cfg.withDefaults()
	worker := NewPollWorker(nil, ctxLogger, m, cfg)
	workers := river.NewWorkers()
	river.AddWorker(workers, worker)

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			QueueName: {MaxWorkers: cfg.MaxWorkers},
		},
		Workers: workers,
		Logger:  logger,
	})
	if err != nil {
		pool.Close()
		m.RecordOperationFailure(ctx, "initialize_service", serviceName)
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	svc := newService(riverClient, bunDB, ctxLogger, m, cfg)
	svc.pool = pool
	svc.worker = worker

	m.RecordOperationSuccess(ctx, "initialize_service", serviceName)
	m.RecordOperationDuration(ctx, "initialize_service", serviceName, time.Since(start))
	ctxLogger.Info("Poll queue service initialized successfully")
	return svc, nil
}

func newService(client jobClient, db *bun.DB, logger *slog.Logger, m metrics.SchedulerMetrics, cfg Config) *Service {
	cfg = cfg.withDefaults()
	return &Service{
		client:      client,
		logger:      logger,
		db:          db,
		metrics:     m,
		gracePeriod: cfg.GracePeriod,
		now:         time.Now,
	}
}

// Bind attaches the poller that jobs call into.
func (s *Service) Bind(p Poller) {
	if s.worker != nil {
		s.worker.Bind(p)
	}
}

// Start starts the River client.
func (s *Service) Start(ctx context.Context) error {
	return s.instrument(ctx, "start_service", func() error {
		if err := s.client.Start(ctx); err != nil {
			return fmt.Errorf("failed to start River client: %w", err)
		}
		s.logger.Info("Poll queue service started")
		return nil
	})
}

// Stop lets running polls finish for the grace period, then cancels them.
func (s *Service) Stop(ctx context.Context) error {
	return s.instrument(ctx, "stop_service", func() error {
		softCtx, cancel := context.WithTimeout(ctx, s.gracePeriod)
		defer cancel()

		err := s.client.Stop(softCtx)
		if err != nil && errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn("Poll jobs still running after grace period, cancelling")
			err = s.client.StopAndCancel(ctx)
		}
		if s.pool != nil {
			s.pool.Close()
		}
		if err != nil {
			return fmt.Errorf("failed to stop River client: %w", err)
		}
		s.logger.Info("Poll queue service stopped")
		return nil
	})
}

// SchedulePoll inserts the tournament's poll job. When a waiting job already
// exists its scheduled time is replaced instead, so the last call wins.
func (s *Service) SchedulePoll(ctx context.Context, tournamentID uuid.UUID, delay time.Duration) error {
	return s.instrument(ctx, "schedule_poll", func() error {
		meta, err := sonic.Marshal(map[string]string{"poll_key": PollJobKey(tournamentID)})
		if err != nil {
			return fmt.Errorf("failed to encode job metadata: %w", err)
		}

		opts := &river.InsertOpts{
			Queue:    QueueName,
			Metadata: meta,
			UniqueOpts: river.UniqueOpts{
				ByArgs:  true,
				ByState: uniqueStates,
			},
		}
		runAt := s.now().Add(delay)
		if delay > 0 {
			opts.ScheduledAt = runAt
		}

		res, err := s.client.Insert(ctx, PollTournamentJob{TournamentID: tournamentID}, opts)
		if err != nil {
			return fmt.Errorf("failed to schedule poll job: %w", err)
		}
		if !res.UniqueSkippedAsDuplicate {
			s.logger.InfoContext(ctx, "Poll job scheduled",
				attr.TournamentID(tournamentID),
				attr.Int64("job_id", res.Job.ID),
				attr.Duration("delay", delay),
			)
			return nil
		}
		return s.reschedule(ctx, res.Job.ID, runAt)
	})
}

// reschedule moves a waiting job to runAt, earlier or later. Running jobs
// snooze themselves when they finish and are left alone.
func (s *Service) reschedule(ctx context.Context, jobID int64, runAt time.Time) error {
	if s.db == nil {
		return nil
	}
	res, err := rescheduleQuery(s.db, jobID, runAt).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to reschedule poll job: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.logger.InfoContext(ctx, "Poll job rescheduled",
			attr.Int64("job_id", jobID),
			attr.Time("scheduled_at", runAt),
		)
	}
	return nil
}

func rescheduleQuery(db bun.IDB, jobID int64, runAt time.Time) *bun.UpdateQuery {
	return db.NewUpdate().
		Table("river_job").
		Set("scheduled_at = ?", runAt.UTC()).
		Where("id = ?", jobID).
		Where("state IN (?)", bun.In([]string{string(rivertype.JobStateScheduled), string(rivertype.JobStateAvailable)}))
}

type riverJobRow struct {
	ID          int64      `bun:"id"`
	Kind        string     `bun:"kind"`
	State       string     `bun:"state"`
	ScheduledAt *time.Time `bun:"scheduled_at"`
	CreatedAt   time.Time  `bun:"created_at"`
	Attempt     int16      `bun:"attempt"`
	MaxAttempts int16      `bun:"max_attempts"`
}

func (s *Service) selectJobs(tournamentID uuid.UUID) *bun.SelectQuery {
	return s.db.NewSelect().
		Table("river_job").
		Column("id", "kind", "state", "scheduled_at", "created_at", "attempt", "max_attempts").
		Where("kind = ?", pollJobKind).
		Where("args->>'tournament_id' = ?", tournamentID.String())
}

// CancelPoll cancels every pending poll job of the tournament.
func (s *Service) CancelPoll(ctx context.Context, tournamentID uuid.UUID) error {
	return s.instrument(ctx, "cancel_poll", func() error {
		var jobs []riverJobRow
		err := s.selectJobs(tournamentID).
			Where("state IN (?)", bun.In([]string{
				string(rivertype.JobStateAvailable),
				string(rivertype.JobStateScheduled),
				string(rivertype.JobStateRetryable),
				string(rivertype.JobStateRunning),
			})).
			Scan(ctx, &jobs)
		if err != nil {
			return fmt.Errorf("failed to query jobs for cancellation: %w", err)
		}

		var errs error
		for _, job := range jobs {
			if _, err := s.client.JobCancel(ctx, job.ID); err != nil {
				errs = errors.Join(errs, fmt.Errorf("job %d: %w", job.ID, err))
			}
		}
		s.logger.InfoContext(ctx, "Poll jobs cancelled",
			attr.TournamentID(tournamentID),
			attr.Int("total_found", len(jobs)),
		)
		return errs
	})
}

// GetScheduledJobs returns the poll jobs of a tournament (for debugging)
func (s *Service) GetScheduledJobs(ctx context.Context, tournamentID uuid.UUID) ([]JobInfo, error) {
	var out []JobInfo
	err := s.instrument(ctx, "get_scheduled_jobs", func() error {
		var jobs []riverJobRow
		err := s.selectJobs(tournamentID).
			Order("scheduled_at ASC NULLS LAST", "created_at ASC").
			Scan(ctx, &jobs)
		if err != nil {
			return fmt.Errorf("failed to query scheduled jobs: %w", err)
		}
		out = make([]JobInfo, len(jobs))
		for i, job := range jobs {
			scheduledAt := ""
			if job.ScheduledAt != nil {
				scheduledAt = job.ScheduledAt.Format(time.RFC3339)
			}
			out[i] = JobInfo{
				ID:           job.ID,
				Kind:         job.Kind,
				TournamentID: tournamentID.String(),
				State:        job.State,
				ScheduledAt:  scheduledAt,
				CreatedAt:    job.CreatedAt.Format(time.RFC3339),
				Attempt:      int(job.Attempt),
				MaxAttempts:  int(job.MaxAttempts),
			}
		}
		return nil
	})
	return out, err
}

// HealthCheck verifies the queue tables are reachable.
func (s *Service) HealthCheck(ctx context.Context) error {
	return s.instrument(ctx, "health_check", func() error {
		if s.client == nil {
			return errors.New("river client is nil")
		}
		var count int
		if err := s.db.NewSelect().Table("river_job").ColumnExpr("COUNT(*)").Scan(ctx, &count); err != nil {
			return fmt.Errorf("queue service health check failed: %w", err)
		}
		return nil
	})
}

func (s *Service) instrument(ctx context.Context, operation string, fn func() error) error {
	start := time.Now()
	if s.metrics != nil {
		s.metrics.RecordOperationAttempt(ctx, operation, serviceName)
		defer func() {
			s.metrics.RecordOperationDuration(ctx, operation, serviceName, time.Since(start))
		}()
	}
	if err := fn(); err != nil {
		s.logger.ErrorContext(ctx, "Queue operation failed",
			attr.String("operation", operation),
			attr.Error(err),
		)
		if s.metrics != nil {
			s.metrics.RecordOperationFailure(ctx, operation, serviceName)
		}
		return err
	}
	if s.metrics != nil {
		s.metrics.RecordOperationSuccess(ctx, operation, serviceName)
	}
	return nil
}
