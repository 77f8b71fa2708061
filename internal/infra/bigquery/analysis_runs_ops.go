package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/PiyushGupta1590/MumbaiHacks2025/internal/logger"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

// Recorder is the BigQuery-backed RunRecorder.
type Recorder struct {
	client  *bigquery.Client
	dataset string
}

// NewRecorder creates a Recorder for the given project and dataset.
func NewRecorder(ctx context.Context, projectID, datasetID string) (*Recorder, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewRecorder: bigquery client: %w", err)
	}
	return &Recorder{client: client, dataset: datasetID}, nil
}

// Close releases the underlying client.
func (r *Recorder) Close() error {
	return r.client.Close()
}

// StartRun inserts an analysis_runs row with status=RUNNING and returns the
// generated analysis_run_id.
func (r *Recorder) StartRun(ctx context.Context, datasetID, datasetURI, modelName string) (string, error) {
	runID := uuid.NewString()

	row := &AnalysisRunRow{
		AnalysisRunID: runID,
		DatasetID:     datasetID,
		DatasetURI:    datasetURI,
		StartedTS:     time.Now(),
		ModelName:     modelName,
		Status:        "RUNNING",
	}

	inserter := r.client.Dataset(r.dataset).Table(analysisRunsTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return "", fmt.Errorf("StartRun: inserting row: %w", err)
	}
	return runID, nil
}

// MarkRunSucceeded sets status=SUCCESS, finished_ts and the run metrics.
func (r *Recorder) MarkRunSucceeded(ctx context.Context, runID string, metrics RunMetrics) error {
	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = "",
		    transaction_count = @transaction_count,
		    report_as_of = @report_as_of,
		    tokens_input = @tokens_input,
		    tokens_output = @tokens_output
		WHERE analysis_run_id = @analysis_run_id
	`, r.dataset, analysisRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: "SUCCESS"},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "transaction_count", Value: int64(metrics.TransactionCount)},
		{Name: "report_as_of", Value: civil.DateOf(metrics.ReportAsOf)},
		{Name: "tokens_input", Value: metrics.TokensInput},
		{Name: "tokens_output", Value: metrics.TokensOutput},
		{Name: "analysis_run_id", Value: runID},
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

// MarkRunFailed sets status=FAILED, finished_ts and error_message. Failures
// here are logged, not returned: this runs on error paths where the original
// pipeline error matters more.
func (r *Recorder) MarkRunFailed(ctx context.Context, runID string, runErr error) {
	log := logger.FromContext(ctx)

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
		WHERE analysis_run_id = @analysis_run_id
	`, r.dataset, analysisRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: "FAILED"},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: errMsg},
		{Name: "analysis_run_id", Value: runID},
	}

	job, err := q.Run(ctx)
	if err != nil {
		log.Error().Err(err).Str("analysis_run_id", runID).Msg("MarkRunFailed: running update query")
		return
	}
	status, err := job.Wait(ctx)
	if err != nil {
		log.Error().Err(err).Str("analysis_run_id", runID).Msg("MarkRunFailed: waiting for job")
		return
	}
	if err := status.Err(); err != nil {
		log.Error().Err(err).Str("analysis_run_id", runID).Msg("MarkRunFailed: job completed with error")
	}
}

// ListRuns returns the most recent analysis runs, newest first.
func (r *Recorder) ListRuns(ctx context.Context, limit int) ([]*AnalysisRunRow, error) {
	if limit <= 0 {
		limit = 50
	}

	q := r.client.Query(fmt.Sprintf(`
		SELECT *
		FROM %s.%s
		ORDER BY started_ts DESC
		LIMIT @limit
	`, r.dataset, analysisRunsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "limit", Value: int64(limit)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListRuns: read query: %w", err)
	}

	var rows []*AnalysisRunRow
	for {
		var row AnalysisRunRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListRuns: iterating rows: %w", err)
		}
		rows = append(rows, &row)
	}
	return rows, nil
}

var _ RunRecorder = (*Recorder)(nil)
