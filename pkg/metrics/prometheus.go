package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fightrise"

// Prometheus implements Recorder on top of a prometheus registerer.
type Prometheus struct {
	operationAttempts  *prometheus.CounterVec
	operationSuccesses *prometheus.CounterVec
	operationFailures  *prometheus.CounterVec
	operationDuration  *prometheus.HistogramVec

	matchesCreated       *prometheus.CounterVec
	matchesCompleted     *prometheus.CounterVec
	notificationFailures *prometheus.CounterVec
	remoteReports        *prometheus.CounterVec

	eventsReconciled *prometheus.CounterVec
	setsReconciled   *prometheus.CounterVec
	polls            *prometheus.CounterVec

	remoteRequests        *prometheus.CounterVec
	remoteRequestDuration *prometheus.HistogramVec
}

var _ Recorder = (*Prometheus)(nil)

// NewPrometheus registers every collector on reg.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	f := promauto.With(reg)
	opLabels := []string{"service", "operation"}

	return &Prometheus{
		operationAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "operation_attempts_total",
			Help: "Service operations started.",
		}, opLabels),
		operationSuccesses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "operation_successes_total",
			Help: "Service operations that finished without an infrastructure error.",
		}, opLabels),
		operationFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "operation_failures_total",
			Help: "Service operations that failed with an infrastructure error.",
		}, opLabels),
		operationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "operation_duration_seconds",
			Help:    "Service operation latency.",
			Buckets: prometheus.DefBuckets,
		}, opLabels),
		matchesCreated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "matches_created_total",
			Help: "Match creations, split by whether a concurrent poll already created the row.",
		}, []string{"duplicate"}),
		matchesCompleted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "matches_completed_total",
			Help: "Matches moved to COMPLETED, by trigger.",
		}, []string{"source"}),
		notificationFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "notification_failures_total",
			Help: "Best-effort notification steps that failed.",
		}, []string{"step"}),
		remoteReports: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "remote_reports_total",
			Help: "Results submitted to start.gg.",
		}, []string{"ok"}),
		eventsReconciled: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "events_reconciled_total",
			Help: "Per-event reconciliation runs.",
		}, []string{"ok"}),
		setsReconciled: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "sets_reconciled_total",
			Help: "Remote sets that produced a local write.",
		}, []string{"kind"}),
		polls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "tournament_polls_total",
			Help: "Poll job outcomes.",
		}, []string{"outcome"}),
		remoteRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "startgg_requests_total",
			Help: "start.gg API requests by operation and outcome.",
		}, []string{"operation", "outcome"}),
		remoteRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "startgg_request_duration_seconds",
			Help:    "start.gg API latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

func (p *Prometheus) RecordOperationAttempt(_ context.Context, operation, service string) {
	p.operationAttempts.WithLabelValues(service, operation).Inc()
}

func (p *Prometheus) RecordOperationSuccess(_ context.Context, operation, service string) {
	p.operationSuccesses.WithLabelValues(service, operation).Inc()
}

func (p *Prometheus) RecordOperationFailure(_ context.Context, operation, service string) {
	p.operationFailures.WithLabelValues(service, operation).Inc()
}

func (p *Prometheus) RecordOperationDuration(_ context.Context, operation, service string, d time.Duration) {
	p.operationDuration.WithLabelValues(service, operation).Observe(d.Seconds())
}

func (p *Prometheus) RecordMatchCreated(_ context.Context, duplicate bool) {
	p.matchesCreated.WithLabelValues(strconv.FormatBool(duplicate)).Inc()
}

func (p *Prometheus) RecordMatchCompleted(_ context.Context, source string) {
	p.matchesCompleted.WithLabelValues(source).Inc()
}

func (p *Prometheus) RecordNotificationFailure(_ context.Context, step string) {
	p.notificationFailures.WithLabelValues(step).Inc()
}

func (p *Prometheus) RecordRemoteReport(_ context.Context, ok bool) {
	p.remoteReports.WithLabelValues(strconv.FormatBool(ok)).Inc()
}

func (p *Prometheus) RecordEventReconciled(_ context.Context, ok bool) {
	p.eventsReconciled.WithLabelValues(strconv.FormatBool(ok)).Inc()
}

func (p *Prometheus) RecordSetsReconciled(_ context.Context, created, updated int) {
	p.setsReconciled.WithLabelValues("created").Add(float64(created))
	p.setsReconciled.WithLabelValues("updated").Add(float64(updated))
}

func (p *Prometheus) RecordPoll(_ context.Context, outcome string) {
	p.polls.WithLabelValues(outcome).Inc()
}

func (p *Prometheus) RecordRemoteRequest(_ context.Context, operation, outcome string, d time.Duration) {
	p.remoteRequests.WithLabelValues(operation, outcome).Inc()
	p.remoteRequestDuration.WithLabelValues(operation).Observe(d.Seconds())
}
