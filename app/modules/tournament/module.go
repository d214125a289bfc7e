package tournament

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/uptrace/bun"
	tournamentservice "github.com/wukrit/fightrise-bot-sub001/app/modules/tournament/application"
	pollqueue "github.com/wukrit/fightrise-bot-sub001/app/modules/tournament/infrastructure/queue"
	tournamenthandlers "github.com/wukrit/fightrise-bot-sub001/app/modules/tournament/infrastructure/handlers"
	tournamentdb "github.com/wukrit/fightrise-bot-sub001/app/modules/tournament/infrastructure/repositories"
	tournamentrouter "github.com/wukrit/fightrise-bot-sub001/app/modules/tournament/infrastructure/router"
	"github.com/wukrit/fightrise-bot-sub001/pkg/attr"
	"github.com/wukrit/fightrise-bot-sub001/pkg/metrics"
	"go.opentelemetry.io/otel/trace"
)

// Deps are the collaborators the tournament module is built from.
type Deps struct {
	DB         *bun.DB
	DSN        string
	Repo       tournamentdb.Repository
	Source     tournamentservice.RemoteSource
	Matches    tournamentservice.MatchReconciler
	Router     *message.Router
	Subscriber message.Subscriber
	Publisher  message.Publisher
	Logger     *slog.Logger
	Metrics    metrics.Recorder
	Tracer     trace.Tracer
	Options    tournamentservice.Options
	Queue      pollqueue.Config
}

// Module represents the tournament module.
type Module struct {
	TournamentService *tournamentservice.TournamentService
	QueueService      *pollqueue.Service
	TournamentRouter  *tournamentrouter.TournamentRouter
	logger            *slog.Logger
	stop              chan struct{}
	stopOnce          sync.Once
}

// NewTournamentModule creates the tournament module and its poll queue.
func NewTournamentModule(ctx context.Context, deps Deps) (*Module, error) {
	logger := deps.Logger
	logger.InfoContext(ctx, "tournament.NewTournamentModule called")

	queue, err := pollqueue.NewService(ctx, deps.DB, logger, deps.DSN, deps.Metrics, deps.Queue)
	if err != nil {
		return nil, fmt.Errorf("failed to create poll queue: %w", err)
	}

	svc := tournamentservice.NewTournamentService(
		deps.Repo,
		deps.Source,
		deps.Matches,
		queue,
		logger,
		deps.Metrics,
		deps.Tracer,
		deps.DB,
		deps.Options,
	)
	queue.Bind(svc)

	router := tournamentrouter.NewTournamentRouter(logger, deps.Router, deps.Subscriber, deps.Publisher, deps.Tracer)
	if err := router.Configure(tournamenthandlers.NewTournamentHandlers(svc, logger)); err != nil {
		return nil, fmt.Errorf("failed to configure tournament router: %w", err)
	}

	return &Module{
		TournamentService: svc,
		QueueService:      queue,
		TournamentRouter:  router,
		logger:            logger,
		stop:              make(chan struct{}),
	}, nil
}

// Run starts the poll queue, reschedules polls for every active tournament
// and blocks until ctx is cancelled or Close is called.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	m.logger.InfoContext(ctx, "Starting tournament module")
	if wg != nil {
		defer wg.Done()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-m.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	// The queue outlives ctx so Close can drain it with a grace period.
	if err := m.QueueService.Start(context.WithoutCancel(ctx)); err != nil {
		m.logger.ErrorContext(ctx, "Failed to start poll queue", attr.Error(err))
		return
	}
	if _, err := m.TournamentService.ResumePolling(ctx); err != nil {
		m.logger.ErrorContext(ctx, "Failed to resume some tournament polls", attr.Error(err))
	}

	<-ctx.Done()
	m.logger.InfoContext(ctx, "Tournament module goroutine stopped")
}

// Close drains the poll queue and stops the module.
func (m *Module) Close(ctx context.Context) error {
	m.logger.Info("Stopping tournament module")
	var err error
	if m.QueueService != nil {
		if stopErr := m.QueueService.Stop(ctx); stopErr != nil {
			err = fmt.Errorf("error stopping poll queue: %w", stopErr)
		}
	}
	m.stopOnce.Do(func() { close(m.stop) })
	m.logger.Info("Tournament module stopped")
	return err
}
