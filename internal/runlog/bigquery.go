package runlog

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/jehoshua02/ocrolus-finicity-json-poc/internal/logger"
)

const runsTable = "pipeline_runs"

// RunRow is the schema of one run ledger entry.
type RunRow struct {
	RunID string `bigquery:"run_id"` // REQUIRED

	StartedTS  time.Time              `bigquery:"started_ts"`  // REQUIRED
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"` // NULLABLE

	Status       string `bigquery:"status"`        // RUNNING / SUCCESS / FAILED
	ErrorMessage string `bigquery:"error_message"` // NULLABLE
}

// BigQueryRecorder writes run ledger rows to a BigQuery dataset. It holds a
// shared client to avoid creating a new connection per operation.
type BigQueryRecorder struct {
	client  *bigquery.Client
	dataset string
}

// NewBigQueryRecorder creates a recorder for the given project and dataset.
func NewBigQueryRecorder(ctx context.Context, projectID, dataset string) (*BigQueryRecorder, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryRecorder: creating client: %w", err)
	}
	return &BigQueryRecorder{client: client, dataset: dataset}, nil
}

// Close closes the BigQuery client connection.
func (r *BigQueryRecorder) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// StartRun inserts a ledger row with status=RUNNING.
func (r *BigQueryRecorder) StartRun(ctx context.Context, runID string) error {
	row := &RunRow{
		RunID:     runID,
		StartedTS: time.Now(),
		Status:    "RUNNING",
	}
	inserter := r.client.Dataset(r.dataset).Table(runsTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("StartRun: inserting row: %w", err)
	}
	return nil
}

// MarkRunSucceeded updates the ledger row to status=SUCCESS.
func (r *BigQueryRecorder) MarkRunSucceeded(ctx context.Context, runID string) error {
	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = ""
		WHERE run_id = @run_id
	`, r.dataset, runsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: "SUCCESS"},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "run_id", Value: runID},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("MarkRunSucceeded: running update query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("MarkRunSucceeded: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("MarkRunSucceeded: job error: %w", err)
	}
	return nil
}

// MarkRunFailed updates the ledger row to status=FAILED. Recording problems
// are logged, not returned, so the run's own error stays the one surfaced.
func (r *BigQueryRecorder) MarkRunFailed(ctx context.Context, runID string, runErr error) {
	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
		const maxLen = 2000
		if len(errMsg) > maxLen {
			errMsg = errMsg[:maxLen]
		}
	}

	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE run_id = @run_id
	`, r.dataset, runsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: "FAILED"},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: errMsg},
		{Name: "run_id", Value: runID},
	}

	job, err := q.Run(ctx)
	if err != nil {
		logRecordingProblem(ctx, runID, err, "Running run ledger update failed")
		return
	}
	status, err := job.Wait(ctx)
	if err != nil {
		logRecordingProblem(ctx, runID, err, "Waiting for run ledger update failed")
		return
	}
	if err := status.Err(); err != nil {
		logRecordingProblem(ctx, runID, err, "Run ledger update completed with error")
	}
}

// logRecordingProblem logs a ledger recording failure without surfacing it;
// the run's own error stays the one propagated.
func logRecordingProblem(ctx context.Context, runID string, err error, msg string) {
	log := logger.FromContext(ctx)
	log.Error().Err(err).Str("run_id", runID).Msg(msg)
}
