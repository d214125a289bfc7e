package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/wukrit/fightrise-bot-sub001/app"
	"github.com/wukrit/fightrise-bot-sub001/config"
	"github.com/wukrit/fightrise-bot-sub001/pkg/attr"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		slog.Error("Failed to load config", attr.Error(err))
		os.Exit(1)
	}

	logger := newLogger(cfg.Observability)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application := &app.App{}
	if err := application.Initialize(ctx, cfg, logger); err != nil {
		logger.Error("Failed to initialize application", attr.Error(err))
		shutdown(application, cfg, logger)
		os.Exit(1)
	}

	logger.Info("Starting fightrise bot",
		attr.String("environment", cfg.Observability.Environment),
		attr.String("http_address", cfg.HTTP.Address),
	)

	exitCode := 0
	if err := application.Run(ctx); err != nil {
		logger.Error("Application stopped with error", attr.Error(err))
		exitCode = 1
	}

	logger.Info("Shutting down")
	shutdown(application, cfg, logger)
	os.Exit(exitCode)
}

func shutdown(application *app.App, cfg *config.Config, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Scheduler.ShutdownGrace+5*time.Second)
	defer cancel()
	if err := application.Close(ctx); err != nil {
		logger.Error("Shutdown finished with errors", attr.Error(err))
		return
	}
	logger.Info("Application shut down gracefully")
}

func newLogger(cfg config.ObservabilityConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(
		attr.String("service", cfg.ServiceName),
		attr.String("environment", cfg.Environment),
	)
}
