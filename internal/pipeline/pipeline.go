// Package pipeline orchestrates a full ledger analysis: fetch the uploaded
// dataset, parse and prepare it, build the deterministic cash-flow report,
// run the narrative agent tasks over it, and persist the artifacts.
package pipeline

import (
	"context"
	"fmt"

	"github.com/PiyushGupta1590/MumbaiHacks2025/internal/agents"
	"github.com/PiyushGupta1590/MumbaiHacks2025/internal/archive"
	infra "github.com/PiyushGupta1590/MumbaiHacks2025/internal/infra/bigquery"
	"github.com/PiyushGupta1590/MumbaiHacks2025/internal/ledger"
	"github.com/PiyushGupta1590/MumbaiHacks2025/internal/report"
)

// PipelineStep represents a single step in the analysis pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *State) error
}

// State holds the shared state across all pipeline steps. The report and
// artifacts travel through here as values; nothing in the pipeline keeps
// package-level state, so concurrent runs do not interfere.
type State struct {
	DatasetID     string
	DatasetURI    string
	AnalysisRunID string

	RawBytes     []byte
	Ledger       *ledger.Ledger
	Transactions []ledger.Transaction

	ReportText string
	Aggregates *report.Aggregates

	// Artifacts maps task name to generated markdown, in task order.
	Artifacts map[string]string

	// ArtifactURIs maps output filename to the URI it was stored at.
	ArtifactURIs map[string]string

	TokensInput  int64
	TokensOutput int64
}

// Deps are the services the pipeline steps run against. Interfaces allow
// swapping in fakes for tests; zero fields are filled with working defaults
// by NewAnalysisPipeline.
type Deps struct {
	Archive  archive.Store
	Runner   agents.Runner
	Recorder infra.RunRecorder
	Builder  *report.Builder
	Crew     *agents.Crew

	// ModelName is recorded on the analysis run for auditing.
	ModelName string

	// OutputDir is where artifacts are written: a local directory or a
	// gs:// prefix.
	OutputDir string
}

func (d *Deps) withDefaults() *Deps {
	out := *d
	if out.Archive == nil {
		out.Archive = archive.NewClient()
	}
	if out.Recorder == nil {
		out.Recorder = infra.NopRecorder{}
	}
	if out.Builder == nil {
		out.Builder = report.NewBuilder()
	}
	if out.Crew == nil {
		out.Crew = agents.DefaultCrew()
	}
	if out.OutputDir == "" {
		out.OutputDir = "."
	}
	return &out
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially. The first failing step
// aborts the run.
func (p *Pipeline) Execute(ctx context.Context, state *State) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// NewAnalysisPipeline creates the standard pipeline for analyzing a ledger
// dataset: start the audit run, fetch, parse, prepare, build the report, run
// each crew task in order, store artifacts, mark success.
func NewAnalysisPipeline(deps *Deps) *Pipeline {
	d := deps.withDefaults()

	steps := []PipelineStep{
		&StartRunStep{deps: d},
		&FetchDatasetStep{deps: d},
		&ParseLedgerStep{deps: d},
		&PrepareLedgerStep{},
		&BuildReportStep{deps: d},
	}
	for _, task := range d.Crew.Tasks {
		steps = append(steps, &AgentTaskStep{deps: d, task: task})
	}
	steps = append(steps,
		&StoreArtifactsStep{deps: d},
		&MarkSuccessStep{deps: d},
	)
	return NewPipeline(steps...)
}

// AnalyzeDataset runs the standard analysis pipeline over one dataset and
// returns the final state, including the report text, aggregates, and the
// URIs of the stored artifacts.
func AnalyzeDataset(ctx context.Context, deps *Deps, datasetID, datasetURI string) (*State, error) {
	state := &State{
		DatasetID:    datasetID,
		DatasetURI:   datasetURI,
		Artifacts:    make(map[string]string),
		ArtifactURIs: make(map[string]string),
	}
	if err := NewAnalysisPipeline(deps).Execute(ctx, state); err != nil {
		return state, err
	}
	return state, nil
}
