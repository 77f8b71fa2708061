// Package bigquery records an audit trail of analysis runs: one row per
// pipeline invocation, with status, timing, and model token usage.
package bigquery

import (
	"context"
	"time"

	"cloud.google.com/go/bigquery"
)

const analysisRunsTable = "analysis_runs"

// AnalysisRunRow is one row of the analysis_runs table.
type AnalysisRunRow struct {
	AnalysisRunID string `bigquery:"analysis_run_id"` // REQUIRED
	DatasetID     string `bigquery:"dataset_id"`      // REQUIRED
	DatasetURI    string `bigquery:"dataset_uri"`     // NULLABLE

	StartedTS  time.Time              `bigquery:"started_ts"`  // REQUIRED
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"` // NULLABLE

	ModelName string `bigquery:"model_name"` // NULLABLE

	Status       string `bigquery:"status"`        // RUNNING | SUCCESS | FAILED
	ErrorMessage string `bigquery:"error_message"` // NULLABLE

	TransactionCount bigquery.NullInt64 `bigquery:"transaction_count"` // NULLABLE
	ReportAsOf       bigquery.NullDate  `bigquery:"report_as_of"`      // NULLABLE

	TokensInput  bigquery.NullInt64 `bigquery:"tokens_input"`  // NULLABLE
	TokensOutput bigquery.NullInt64 `bigquery:"tokens_output"` // NULLABLE
}

// RunRecorder is the audit-trail interface used by the pipeline. A nil
// implementation-free deployment (no BigQuery project configured) uses
// NopRecorder instead.
type RunRecorder interface {
	// StartRun inserts a row with status=RUNNING and returns its ID.
	StartRun(ctx context.Context, datasetID, datasetURI, modelName string) (string, error)

	// MarkRunSucceeded sets status=SUCCESS with final run metrics.
	MarkRunSucceeded(ctx context.Context, runID string, metrics RunMetrics) error

	// MarkRunFailed sets status=FAILED with the error message. Best effort:
	// it logs rather than returns failures, since it runs on error paths.
	MarkRunFailed(ctx context.Context, runID string, runErr error)
}

// RunMetrics are the final numbers recorded for a successful run.
type RunMetrics struct {
	TransactionCount int
	ReportAsOf       time.Time
	TokensInput      int64
	TokensOutput     int64
}

// NopRecorder satisfies RunRecorder without persisting anything.
type NopRecorder struct{}

func (NopRecorder) StartRun(ctx context.Context, datasetID, datasetURI, modelName string) (string, error) {
	return "", nil
}

func (NopRecorder) MarkRunSucceeded(ctx context.Context, runID string, metrics RunMetrics) error {
	return nil
}

func (NopRecorder) MarkRunFailed(ctx context.Context, runID string, runErr error) {}

var _ RunRecorder = NopRecorder{}
