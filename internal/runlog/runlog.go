// Package runlog records pipeline runs in a run ledger. The BigQuery
// implementation mirrors the run-tracking table pattern (run id, started and
// finished timestamps, status, truncated error message); Noop is used when no
// ledger is configured.
package runlog

import "context"

// Recorder brackets one pipeline run in the ledger. MarkRunFailed takes no
// error return because a failed run must still propagate its own error;
// implementations log recording problems instead.
type Recorder interface {
	StartRun(ctx context.Context, runID string) error
	MarkRunSucceeded(ctx context.Context, runID string) error
	MarkRunFailed(ctx context.Context, runID string, runErr error)
	Close() error
}

// Noop is the Recorder used when no run ledger is configured.
type Noop struct{}

func (Noop) StartRun(ctx context.Context, runID string) error         { return nil }
func (Noop) MarkRunSucceeded(ctx context.Context, runID string) error { return nil }
func (Noop) MarkRunFailed(ctx context.Context, runID string, runErr error) {
}
func (Noop) Close() error { return nil }
