package tournamentservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	matchservice "github.com/wukrit/fightrise-bot-sub001/app/modules/match/application"
	tournamentdb "github.com/wukrit/fightrise-bot-sub001/app/modules/tournament/infrastructure/repositories"
	"github.com/wukrit/fightrise-bot-sub001/internal/startgg"
	"github.com/wukrit/fightrise-bot-sub001/pkg/attr"
	"github.com/wukrit/fightrise-bot-sub001/pkg/metrics"
	"github.com/wukrit/fightrise-bot-sub001/pkg/results"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "TournamentService"

// Service is the tournament API used by handlers and the poll worker.
type Service interface {
	SetupTournament(ctx context.Context, slug, guildID, channelID string) (results.OperationResult[SetupResult, error], error)
	PollTournament(ctx context.Context, id uuid.UUID) (PollResult, error)
	TournamentPhase(ctx context.Context, id uuid.UUID) (tournamentdb.Phase, error)
	RequestPoll(ctx context.Context, id uuid.UUID) (results.OperationResult[uuid.UUID, error], error)
	CancelTournament(ctx context.Context, id uuid.UUID) (results.OperationResult[uuid.UUID, error], error)
	ResumePolling(ctx context.Context) (int, error)
}

// RemoteSource reads tournament data from start.gg.
type RemoteSource interface {
	FetchTournament(ctx context.Context, slug string) (*startgg.Tournament, error)
	FetchSets(ctx context.Context, eventID string, page, perPage int) (*startgg.SetPage, error)
	FetchEntrants(ctx context.Context, eventID string, page, perPage int) (*startgg.EntrantPage, error)
}

// MatchReconciler applies one event's sets to local matches.
type MatchReconciler interface {
	ReconcileEventSets(ctx context.Context, event matchservice.EventRef, sets []startgg.Set, links map[string]string) (matchservice.ReconcileResult, error)
}

// PollScheduler owns the per-tournament poll job.
type PollScheduler interface {
	SchedulePoll(ctx context.Context, tournamentID uuid.UUID, delay time.Duration) error
	CancelPoll(ctx context.Context, tournamentID uuid.UUID) error
}

// Options tunes reconciliation.
type Options struct {
	PageSize         int
	MaxPages         int
	EventConcurrency int
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = 50
	}
	if o.MaxPages <= 0 {
		o.MaxPages = 100
	}
	if o.EventConcurrency <= 0 {
		o.EventConcurrency = 4
	}
	return o
}

// TournamentService implements Service.
type TournamentService struct {
	repo      tournamentdb.Repository
	source    RemoteSource
	matches   MatchReconciler
	scheduler PollScheduler
	logger    *slog.Logger
	metrics   metrics.TournamentMetrics
	tracer    trace.Tracer
	db        *bun.DB
	opts      Options
	now       func() time.Time
}

var _ Service = (*TournamentService)(nil)

// NewTournamentService creates a new TournamentService.
func NewTournamentService(
	repo tournamentdb.Repository,
	source RemoteSource,
	matches MatchReconciler,
	scheduler PollScheduler,
	logger *slog.Logger,
	m metrics.TournamentMetrics,
	tracer trace.Tracer,
	db *bun.DB,
	opts Options,
) *TournamentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TournamentService{
		repo:      repo,
		source:    source,
		matches:   matches,
		scheduler: scheduler,
		logger:    logger,
		metrics:   m,
		tracer:    tracer,
		db:        db,
		opts:      opts.withDefaults(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// TournamentPhase returns the stored phase of a tournament.
func (s *TournamentService) TournamentPhase(ctx context.Context, id uuid.UUID) (tournamentdb.Phase, error) {
	t, err := s.repo.GetTournament(ctx, nil, id)
	if err != nil {
		if errors.Is(err, tournamentdb.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrTournamentNotFound, id)
		}
		return "", err
	}
	return t.Phase, nil
}

// -----------------------------------------------------------------------------
// Generic Helpers (Defined as functions because methods cannot have type params)
// -----------------------------------------------------------------------------

type operationFunc[S any, F any] func(ctx context.Context) (results.OperationResult[S, F], error)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[S any, F any](
	s *TournamentService,
	ctx context.Context,
	operationName string,
	identifier string,
	op operationFunc[S, F],
) (result results.OperationResult[S, F], err error) {
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("identifier", identifier),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	defer span.End()

	if s.metrics != nil {
		s.metrics.RecordOperationAttempt(ctx, operationName, serviceName)
	}

	startTime := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration(ctx, operationName, serviceName, time.Since(startTime))
		}
	}()

	s.logger.InfoContext(ctx, "Operation triggered", attr.ExtractCorrelationID(ctx), attr.String("operation", operationName))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				attr.ExtractCorrelationID(ctx),
				attr.String("identifier", identifier),
				attr.Error(err),
			)
			if s.metrics != nil {
				s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
			}
			span.RecordError(err)
			result = results.OperationResult[S, F]{}
		}
	}()

	result, err = op(ctx)

	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed with error",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
			attr.Error(wrappedErr),
		)
		if s.metrics != nil {
			s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
		}
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	if result.IsFailure() {
		s.logger.WarnContext(ctx, "Operation returned failure result",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
			attr.Any("failure_payload", *result.Failure),
		)
	}

	if result.IsSuccess() {
		s.logger.InfoContext(ctx, "Operation completed successfully",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
		)
	}

	if s.metrics != nil {
		s.metrics.RecordOperationSuccess(ctx, operationName, serviceName)
	}

	return result, nil
}

// runInTx ensures the operation runs within a transaction.
func runInTx[S any, F any](
	s *TournamentService,
	ctx context.Context,
	fn func(ctx context.Context, db bun.IDB) (results.OperationResult[S, F], error),
) (results.OperationResult[S, F], error) {
	if s.db == nil {
		return fn(ctx, nil)
	}

	var result results.OperationResult[S, F]
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		result, txErr = fn(ctx, tx)
		return txErr
	})
	return result, err
}
