package metrics

import (
	"context"
	"time"
)

// Noop discards everything.
type Noop struct{}

var _ Recorder = Noop{}

// NewNoop returns a recorder that discards all measurements.
func NewNoop() Noop { return Noop{} }

func (Noop) RecordOperationAttempt(context.Context, string, string)                 {}
func (Noop) RecordOperationSuccess(context.Context, string, string)                 {}
func (Noop) RecordOperationFailure(context.Context, string, string)                 {}
func (Noop) RecordOperationDuration(context.Context, string, string, time.Duration) {}
func (Noop) RecordMatchCreated(context.Context, bool)                               {}
func (Noop) RecordMatchCompleted(context.Context, string)                           {}
func (Noop) RecordNotificationFailure(context.Context, string)                      {}
func (Noop) RecordRemoteReport(context.Context, bool)                               {}
func (Noop) RecordEventReconciled(context.Context, bool)                            {}
func (Noop) RecordSetsReconciled(context.Context, int, int)                         {}
func (Noop) RecordPoll(context.Context, string)                                     {}
func (Noop) RecordRemoteRequest(context.Context, string, string, time.Duration)     {}
