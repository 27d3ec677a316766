package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jehoshua02/ocrolus-finicity-json-poc/internal/events"
	"github.com/jehoshua02/ocrolus-finicity-json-poc/internal/logger"
	"github.com/jehoshua02/ocrolus-finicity-json-poc/internal/runlog"
)

// Run executes the pipeline with run-ledger and event bracketing: the run is
// recorded as started, then marked succeeded or failed, and matching events
// are published. Ledger and event failures never mask the run's own error.
func Run(ctx context.Context, p *Pipeline, state *State) error {
	log := logger.FromContext(ctx)

	// A State built by hand may leave these nil; a zero ledger or publisher
	// means none is configured.
	if state.Runlog == nil {
		state.Runlog = runlog.Noop{}
	}
	if state.Events == nil {
		state.Events = events.Noop{}
	}

	runID := uuid.NewString()
	state.Report.RunID = runID

	if err := state.Runlog.StartRun(ctx, runID); err != nil {
		log.Warn().Err(err).Str("run_id", runID).Msg("Recording run start failed")
	}
	publish(ctx, state, "run_started", nil)

	err := p.Execute(ctx, state)
	if err != nil {
		state.Runlog.MarkRunFailed(ctx, runID, err)
		publish(ctx, state, "run_failed", map[string]interface{}{"error": err.Error()})
		return err
	}

	if err := state.Runlog.MarkRunSucceeded(ctx, runID); err != nil {
		log.Warn().Err(err).Str("run_id", runID).Msg("Recording run success failed")
	}
	publish(ctx, state, "run_succeeded", map[string]interface{}{
		"accounts":     state.Report.AccountsFetched,
		"pages":        state.Report.TotalPages(),
		"transactions": state.Report.TransactionsFetched,
		"institutions": state.Report.InstitutionsFetched,
	})
	return nil
}

func publish(ctx context.Context, state *State, kind string, detail map[string]interface{}) {
	event := events.Event{
		RunID:  state.Report.RunID,
		Kind:   kind,
		At:     time.Now(),
		Detail: detail,
	}
	if err := state.Events.Publish(ctx, event); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("kind", kind).Msg("Publishing event failed")
	}
}

func uploadEvent(state *State) events.Event {
	return events.Event{
		RunID: state.Report.RunID,
		Kind:  "bundle_uploaded",
		At:    time.Now(),
		Detail: map[string]interface{}{
			"book_pk":      state.Report.BookPK,
			"transactions": state.Report.TransactionsFetched,
		},
	}
}
