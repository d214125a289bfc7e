// Package metrics holds the metric recorders used by the services. Every
// recorder interface has a Prometheus implementation and a no-op one for
// tests.
package metrics

import (
	"context"
	"time"
)

// OperationMetrics records the lifecycle of a service operation.
type OperationMetrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, duration time.Duration)
}

// MatchMetrics records match state machine and reconciliation outcomes.
type MatchMetrics interface {
	OperationMetrics
	RecordMatchCreated(ctx context.Context, duplicate bool)
	RecordMatchCompleted(ctx context.Context, source string)
	RecordNotificationFailure(ctx context.Context, step string)
	RecordRemoteReport(ctx context.Context, ok bool)
}

// TournamentMetrics records poll and event reconciliation outcomes.
type TournamentMetrics interface {
	OperationMetrics
	RecordEventReconciled(ctx context.Context, ok bool)
	RecordSetsReconciled(ctx context.Context, created, updated int)
}

// SchedulerMetrics records poll job outcomes.
type SchedulerMetrics interface {
	OperationMetrics
	RecordPoll(ctx context.Context, outcome string)
}

// RemoteMetrics records start.gg request outcomes.
type RemoteMetrics interface {
	RecordRemoteRequest(ctx context.Context, operation, outcome string, duration time.Duration)
}

// Recorder satisfies every interface in this package.
type Recorder interface {
	MatchMetrics
	TournamentMetrics
	SchedulerMetrics
	RemoteMetrics
}

// Poll outcomes.
const (
	PollOutcomeSuccess      = "success"
	PollOutcomeFailed       = "failed"
	PollOutcomeUnauthorized = "unauthorized"
	PollOutcomeStopped      = "stopped"
	PollOutcomeMissing      = "missing"
)
