package match

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/uptrace/bun"
	matchservice "github.com/wukrit/fightrise-bot-sub001/app/modules/match/application"
	matchhandlers "github.com/wukrit/fightrise-bot-sub001/app/modules/match/infrastructure/handlers"
	matchdb "github.com/wukrit/fightrise-bot-sub001/app/modules/match/infrastructure/repositories"
	matchrouter "github.com/wukrit/fightrise-bot-sub001/app/modules/match/infrastructure/router"
	"github.com/wukrit/fightrise-bot-sub001/internal/notify"
	"github.com/wukrit/fightrise-bot-sub001/pkg/metrics"
	"go.opentelemetry.io/otel/trace"
)

// Deps are the collaborators the match module is built from.
type Deps struct {
	DB            *bun.DB
	Repo          matchdb.Repository
	Reporter      matchservice.ResultReporter
	Notifier      notify.Channel
	Router        *message.Router
	Subscriber    message.Subscriber
	Publisher     message.Publisher
	Logger        *slog.Logger
	Metrics       metrics.MatchMetrics
	Tracer        trace.Tracer
	CheckInWindow time.Duration
}

// Module represents the match module.
type Module struct {
	MatchService *matchservice.MatchService
	MatchRouter  *matchrouter.MatchRouter
	logger       *slog.Logger
	stop         chan struct{}
	stopOnce     sync.Once
}

// NewMatchModule creates a new instance of the Match module.
func NewMatchModule(ctx context.Context, deps Deps) (*Module, error) {
	logger := deps.Logger
	logger.InfoContext(ctx, "match.NewMatchModule called")

	matchService := matchservice.NewMatchService(
		deps.Repo,
		deps.Reporter,
		deps.Notifier,
		logger,
		deps.Metrics,
		deps.Tracer,
		deps.DB,
		deps.CheckInWindow,
	)

	matchRouter := matchrouter.NewMatchRouter(logger, deps.Router, deps.Subscriber, deps.Publisher, deps.Tracer)
	if err := matchRouter.Configure(matchhandlers.NewMatchHandlers(matchService, logger)); err != nil {
		return nil, fmt.Errorf("failed to configure match router: %w", err)
	}

	return &Module{
		MatchService: matchService,
		MatchRouter:  matchRouter,
		logger:       logger,
		stop:         make(chan struct{}),
	}, nil
}

// Run blocks until ctx is cancelled or Close is called.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	m.logger.InfoContext(ctx, "Starting match module")
	if wg != nil {
		defer wg.Done()
	}

	select {
	case <-ctx.Done():
	case <-m.stop:
	}
	m.logger.InfoContext(ctx, "Match module goroutine stopped")
}

// Close stops the match module. The shared router is closed by the app.
func (m *Module) Close() error {
	m.logger.Info("Stopping match module")
	m.stopOnce.Do(func() { close(m.stop) })
	m.logger.Info("Match module stopped")
	return nil
}
