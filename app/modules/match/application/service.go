package matchservice

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	matchdb "github.com/wukrit/fightrise-bot-sub001/app/modules/match/infrastructure/repositories"
	"github.com/wukrit/fightrise-bot-sub001/internal/notify"
	"github.com/wukrit/fightrise-bot-sub001/internal/startgg"
	"github.com/wukrit/fightrise-bot-sub001/pkg/attr"
	"github.com/wukrit/fightrise-bot-sub001/pkg/metrics"
	"github.com/wukrit/fightrise-bot-sub001/pkg/results"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "MatchService"

// DefaultCheckInWindow is used when no window is configured.
const DefaultCheckInWindow = 10 * time.Minute

// Service is the match lifecycle API used by handlers and the reconciler.
type Service interface {
	CheckInPlayer(ctx context.Context, matchID uuid.UUID, discordID string) (results.OperationResult[CheckInResult, error], error)
	ReportScore(ctx context.Context, matchID uuid.UUID, discordID string, winnerSlot int) (results.OperationResult[ReportResult, error], error)
	ConfirmResult(ctx context.Context, matchID uuid.UUID, discordID string, confirmed bool) (results.OperationResult[ConfirmResult, error], error)
	ReconcileEventSets(ctx context.Context, event EventRef, sets []startgg.Set, links map[string]string) (ReconcileResult, error)
}

// ResultReporter submits final results to the bracket platform.
type ResultReporter interface {
	ReportResult(ctx context.Context, setID, winnerEntrantID string) error
}

// MatchService implements Service.
type MatchService struct {
	repo          matchdb.Repository
	reporter      ResultReporter
	notifier      notify.Channel
	logger        *slog.Logger
	metrics       metrics.MatchMetrics
	tracer        trace.Tracer
	db            *bun.DB
	checkInWindow time.Duration
	now           func() time.Time
}

var _ Service = (*MatchService)(nil)

// NewMatchService creates a new MatchService.
func NewMatchService(
	repo matchdb.Repository,
	reporter ResultReporter,
	notifier notify.Channel,
	logger *slog.Logger,
	m metrics.MatchMetrics,
	tracer trace.Tracer,
	db *bun.DB,
	checkInWindow time.Duration,
) *MatchService {
	if logger == nil {
		logger = slog.Default()
	}
	if checkInWindow <= 0 {
		checkInWindow = DefaultCheckInWindow
	}
	return &MatchService{
		repo:          repo,
		reporter:      reporter,
		notifier:      notifier,
		logger:        logger,
		metrics:       m,
		tracer:        tracer,
		db:            db,
		checkInWindow: checkInWindow,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// reportRemote submits a winner after commit. Failures are logged and
// counted; the local result stands.
func (s *MatchService) reportRemote(ctx context.Context, m *matchdb.Match, winner *matchdb.MatchPlayer) bool {
	if s.reporter == nil || winner == nil {
		return false
	}
	err := s.reporter.ReportResult(ctx, m.RemoteSetID, winner.RemoteEntrantID)
	if s.metrics != nil {
		s.metrics.RecordRemoteReport(ctx, err == nil)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to report result to start.gg",
			attr.ExtractCorrelationID(ctx),
			attr.MatchID(m.ID),
			attr.String("remote_set_id", m.RemoteSetID),
			attr.Error(err),
		)
		return false
	}
	return true
}

// notifyStep runs a best-effort notification call.
func (s *MatchService) notifyStep(ctx context.Context, step string, matchID uuid.UUID, fn func() error) bool {
	if s.notifier == nil {
		return false
	}
	if err := fn(); err != nil {
		if s.metrics != nil {
			s.metrics.RecordNotificationFailure(ctx, step)
		}
		s.logger.WarnContext(ctx, "Notification step failed",
			attr.ExtractCorrelationID(ctx),
			attr.MatchID(matchID),
			attr.String("step", step),
			attr.Error(err),
		)
		return false
	}
	return true
}

func (s *MatchService) postToThread(ctx context.Context, m *matchdb.Match, step string, prompt notify.Prompt) {
	if m.ThreadID == nil {
		return
	}
	s.notifyStep(ctx, step, m.ID, func() error {
		return s.notifier.PostPrompt(ctx, *m.ThreadID, prompt)
	})
}

func (s *MatchService) finishThread(ctx context.Context, m *matchdb.Match, winner *matchdb.MatchPlayer) {
	if m.ThreadID == nil {
		return
	}
	s.postToThread(ctx, m, "post_result", resultPrompt(m, winner))
	s.notifyStep(ctx, "archive", m.ID, func() error {
		return s.notifier.Archive(ctx, *m.ThreadID)
	})
}

// -----------------------------------------------------------------------------
// Generic Helpers (Defined as functions because methods cannot have type params)
// -----------------------------------------------------------------------------

type operationFunc[S any, F any] func(ctx context.Context) (results.OperationResult[S, F], error)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[S any, F any](
	s *MatchService,
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
	s *MatchService,
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
