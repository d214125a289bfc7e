package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/wukrit/fightrise-bot-sub001/app/modules/match"
	matchdb "github.com/wukrit/fightrise-bot-sub001/app/modules/match/infrastructure/repositories"
	"github.com/wukrit/fightrise-bot-sub001/app/modules/tournament"
	tournamentservice "github.com/wukrit/fightrise-bot-sub001/app/modules/tournament/application"
	pollqueue "github.com/wukrit/fightrise-bot-sub001/app/modules/tournament/infrastructure/queue"
	tournamentdb "github.com/wukrit/fightrise-bot-sub001/app/modules/tournament/infrastructure/repositories"
	"github.com/wukrit/fightrise-bot-sub001/config"
	"github.com/wukrit/fightrise-bot-sub001/internal/notify"
	"github.com/wukrit/fightrise-bot-sub001/internal/startgg"
	"github.com/wukrit/fightrise-bot-sub001/pkg/attr"
	"github.com/wukrit/fightrise-bot-sub001/pkg/eventbus"
	appmetrics "github.com/wukrit/fightrise-bot-sub001/pkg/metrics"
	"github.com/wukrit/fightrise-bot-sub001/pkg/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// App holds every long-lived component of the bot.
type App struct {
	Config           *config.Config
	Logger           *slog.Logger
	DB               *bun.DB
	EventBus         *eventbus.EventBus
	Router           *message.Router
	Registry         *prometheus.Registry
	TracerProvider   *sdktrace.TracerProvider
	StartGG          *startgg.Client
	MatchModule      *match.Module
	TournamentModule *tournament.Module
	server           *http.Server
	wg               sync.WaitGroup
	routerCancel     context.CancelFunc
}

// Initialize connects every dependency and builds the modules.
func (app *App) Initialize(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	app.Config = cfg
	app.Logger = logger

	app.Registry = prometheus.NewRegistry()
	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := appmetrics.NewPrometheus(app.Registry)

	tp, err := tracing.NewProvider(ctx, tracing.Config{
		ServiceName: cfg.Observability.ServiceName,
		Environment: cfg.Observability.Environment,
		Version:     cfg.Observability.Version,
		Endpoint:    cfg.Observability.OTLPEndpoint,
		Insecure:    cfg.Observability.OTLPInsecure,
		SampleRate:  cfg.Observability.TraceSampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to create tracer provider: %w", err)
	}
	app.TracerProvider = tp
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tracer := tp.Tracer(cfg.Observability.ServiceName)

	pgdb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.DSN)))
	app.DB = bun.NewDB(pgdb, pgdialect.New())
	if err := app.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}

	eb, err := eventbus.NewEventBus(ctx, eventbus.Config{
		URL:        cfg.NATS.URL,
		NKeySeed:   cfg.NATS.NKeySeed,
		QueueGroup: cfg.NATS.QueueGroup,
		ClientName: cfg.Observability.ServiceName,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create event bus: %w", err)
	}
	app.EventBus = eb

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, watermill.NewSlogLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create watermill router: %w", err)
	}
	router.AddMiddleware(
		middleware.CorrelationID,
		middleware.Recoverer,
		middleware.Retry{
			MaxRetries:      3,
			InitialInterval: 100 * time.Millisecond,
			Logger:          watermill.NewSlogLogger(logger),
		}.Middleware,
	)
	metrics.NewPrometheusMetricsBuilder(app.Registry, "", "").AddPrometheusRouterMetrics(router)
	app.Router = router

	app.StartGG = startgg.NewClient(startgg.Config{
		APIURL:            cfg.StartGG.APIURL,
		Token:             cfg.StartGG.Token,
		RequestsPerSecond: cfg.StartGG.RequestsPerSecond,
		Burst:             cfg.StartGG.Burst,
		Timeout:           cfg.StartGG.Timeout,
	}, logger, recorder)

	matchModule, err := match.NewMatchModule(ctx, match.Deps{
		DB:            app.DB,
		Repo:          matchdb.NewRepository(app.DB),
		Reporter:      app.StartGG,
		Notifier:      notify.NewNATSChannel(eb.Conn(), cfg.NATS.RequestTimeout, logger),
		Router:        router,
		Subscriber:    eb,
		Publisher:     eb,
		Logger:        logger,
		Metrics:       recorder,
		Tracer:        tracer,
		CheckInWindow: cfg.Reconcile.CheckInWindow,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize match module: %w", err)
	}
	app.MatchModule = matchModule

	tournamentModule, err := tournament.NewTournamentModule(ctx, tournament.Deps{
		DB:         app.DB,
		DSN:        cfg.Postgres.DSN,
		Repo:       tournamentdb.NewRepository(app.DB),
		Source:     app.StartGG,
		Matches:    matchModule.MatchService,
		Router:     router,
		Subscriber: eb,
		Publisher:  eb,
		Logger:     logger,
		Metrics:    recorder,
		Tracer:     tracer,
		Options: tournamentservice.Options{
			PageSize:         cfg.Reconcile.PageSize,
			MaxPages:         cfg.Reconcile.MaxPages,
			EventConcurrency: cfg.Reconcile.EventConcurrency,
		},
		Queue: pollqueue.Config{
			MaxWorkers:   cfg.Scheduler.Concurrency,
			GracePeriod:  cfg.Scheduler.ShutdownGrace,
			JobTimeout:   cfg.Scheduler.JobTimeout,
			Attempts:     cfg.Scheduler.MaxAttempts,
			RetryInitial: cfg.Scheduler.RetryInitial,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tournament module: %w", err)
	}
	app.TournamentModule = tournamentModule

	app.server = newServer(cfg.HTTP.Address, app, app.Registry)
	return nil
}

// Run starts the router, the modules and the HTTP listener, then blocks
// until ctx is cancelled.
func (app *App) Run(ctx context.Context) error {
	routerCtx, cancel := context.WithCancel(ctx)
	app.routerCancel = cancel

	routerErr := make(chan error, 1)
	go func() {
		if err := app.Router.Run(routerCtx); err != nil && !errors.Is(err, context.Canceled) {
			routerErr <- err
		}
	}()
	select {
	case <-app.Router.Running():
	case err := <-routerErr:
		return fmt.Errorf("watermill router failed to start: %w", err)
	}

	app.wg.Add(2)
	go app.MatchModule.Run(ctx, &app.wg)
	go app.TournamentModule.Run(ctx, &app.wg)

	serverErr := make(chan error, 1)
	go func() {
		app.Logger.InfoContext(ctx, "HTTP server listening", attr.String("address", app.server.Addr))
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-routerErr:
		return fmt.Errorf("watermill router stopped: %w", err)
	case err := <-serverErr:
		return fmt.Errorf("http server stopped: %w", err)
	}
}

// Close shuts everything down in reverse dependency order.
func (app *App) Close(ctx context.Context) error {
	var errs []error

	if app.server != nil {
		if err := app.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http server: %w", err))
		}
	}
	if app.TournamentModule != nil {
		if err := app.TournamentModule.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if app.MatchModule != nil {
		if err := app.MatchModule.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if app.routerCancel != nil {
		app.routerCancel()
	}
	if app.Router != nil {
		if err := app.Router.Close(); err != nil {
			errs = append(errs, fmt.Errorf("watermill router: %w", err))
		}
	}

	done := make(chan struct{})
	go func() {
		app.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		app.Logger.Warn("Modules did not stop before the shutdown deadline")
	}

	if app.EventBus != nil {
		if err := app.EventBus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("event bus: %w", err))
		}
	}
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}
	if app.TracerProvider != nil {
		if err := app.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider: %w", err))
		}
	}
	return errors.Join(errs...)
}
