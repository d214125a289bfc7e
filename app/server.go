package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const readyTimeout = 3 * time.Second

// ReadinessChecker reports whether the process can serve traffic.
type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

// Ready pings the database and the poll queue.
func (app *App) Ready(ctx context.Context) error {
	var errs []error
	if app.DB == nil {
		errs = append(errs, errors.New("database not initialized"))
	} else if err := app.DB.PingContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("database: %w", err))
	}
	if app.TournamentModule == nil || app.TournamentModule.QueueService == nil {
		errs = append(errs, errors.New("poll queue not initialized"))
	} else if err := app.TournamentModule.QueueService.HealthCheck(ctx); err != nil {
		errs = append(errs, fmt.Errorf("poll queue: %w", err))
	}
	return errors.Join(errs...)
}

func newServer(addr string, checker ReadinessChecker, gatherer prometheus.Gatherer) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           newHTTPHandler(checker, gatherer),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func newHTTPHandler(checker ReadinessChecker, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, "ok", "")
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), readyTimeout)
		defer cancel()
		if err := checker.Ready(ctx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "unavailable", err.Error())
			return
		}
		writeStatus(w, http.StatusOK, "ready", "")
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}

type statusBody struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func writeStatus(w http.ResponseWriter, code int, status, errText string) {
	body, _ := sonic.Marshal(statusBody{Status: status, Error: errText})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}
