package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/PiyushGupta1590/MumbaiHacks2025/internal/agents"
	"github.com/PiyushGupta1590/MumbaiHacks2025/internal/archive"
	infra "github.com/PiyushGupta1590/MumbaiHacks2025/internal/infra/bigquery"
	"github.com/PiyushGupta1590/MumbaiHacks2025/internal/ledger"
	"github.com/PiyushGupta1590/MumbaiHacks2025/internal/logger"
)

// Step 1: StartRunStep records a RUNNING analysis run for the dataset.
type StartRunStep struct {
	deps *Deps
}

func (s *StartRunStep) Execute(ctx context.Context, state *State) error {
	runID, err := s.deps.Recorder.StartRun(ctx, state.DatasetID, state.DatasetURI, s.deps.ModelName)
	if err != nil {
		return err
	}
	state.AnalysisRunID = runID
	return nil
}

// Step 2: FetchDatasetStep fetches the ledger file bytes.
type FetchDatasetStep struct {
	deps *Deps
}

func (s *FetchDatasetStep) Execute(ctx context.Context, state *State) error {
	data, err := s.deps.Archive.Fetch(ctx, state.DatasetURI)
	if err != nil {
		s.deps.Recorder.MarkRunFailed(ctx, state.AnalysisRunID, err)
		return err
	}
	state.RawBytes = data
	return nil
}

// Step 3: ParseLedgerStep parses the raw bytes into ledger transactions.
// The format is chosen by file extension: .csv is parsed as CSV, anything
// else as an Excel workbook.
type ParseLedgerStep struct {
	deps *Deps
}

func (s *ParseLedgerStep) Execute(ctx context.Context, state *State) error {
	var (
		led *ledger.Ledger
		err error
	)
	ext := strings.ToLower(filepath.Ext(archive.Filename(state.DatasetURI)))
	if ext == ".csv" {
		led, err = ledger.ParseCSV(bytes.NewReader(state.RawBytes))
	} else {
		led, err = ledger.ParseWorkbook(bytes.NewReader(state.RawBytes))
	}
	if err != nil {
		s.deps.Recorder.MarkRunFailed(ctx, state.AnalysisRunID, err)
		return err
	}
	state.Ledger = led
	return nil
}

// Step 4: PrepareLedgerStep sorts the transactions and fills running balances.
type PrepareLedgerStep struct{}

func (s *PrepareLedgerStep) Execute(ctx context.Context, state *State) error {
	state.Transactions = ledger.Prepare(state.Ledger.Transactions, state.Ledger.HasRunningBalance)
	return nil
}

// Step 5: BuildReportStep builds the deterministic cash-flow report.
type BuildReportStep struct {
	deps *Deps
}

func (s *BuildReportStep) Execute(ctx context.Context, state *State) error {
	state.ReportText, state.Aggregates = s.deps.Builder.Build(state.Transactions)
	return nil
}

// AgentTaskStep runs one crew task: it builds the task prompt from the
// report and the outputs of earlier tasks, calls the model, and stores the
// generated markdown on the state. One step instance exists per task, in
// crew order.
type AgentTaskStep struct {
	deps *Deps
	task agents.Task
}

func (s *AgentTaskStep) Execute(ctx context.Context, state *State) error {
	if s.deps.Runner == nil {
		err := fmt.Errorf("agent task %q: no model runner configured", s.task.Name)
		s.deps.Recorder.MarkRunFailed(ctx, state.AnalysisRunID, err)
		return err
	}

	log := logger.FromContext(ctx)
	log.Info().Str("task", s.task.Name).Msg("Running agent task")

	prompt := agents.BuildTaskPrompt(s.deps.Crew, s.task, state.ReportText, state.Artifacts)
	result, err := s.deps.Runner.Generate(ctx, prompt)
	if err != nil {
		err = fmt.Errorf("agent task %q: %w", s.task.Name, err)
		s.deps.Recorder.MarkRunFailed(ctx, state.AnalysisRunID, err)
		return err
	}

	if state.Artifacts == nil {
		state.Artifacts = make(map[string]string)
	}
	state.Artifacts[s.task.Name] = result.Text
	state.TokensInput += result.TokensInput
	state.TokensOutput += result.TokensOutput

	log.Info().
		Str("task", s.task.Name).
		Int64("tokens_input", result.TokensInput).
		Int64("tokens_output", result.TokensOutput).
		Msg("Agent task completed")
	return nil
}

// StoreArtifactsStep writes the report text, the aggregates JSON, and each
// task's markdown to the output location.
type StoreArtifactsStep struct {
	deps *Deps
}

func (s *StoreArtifactsStep) Execute(ctx context.Context, state *State) error {
	if state.ArtifactURIs == nil {
		state.ArtifactURIs = make(map[string]string)
	}

	store := func(name string, data []byte, contentType string) error {
		uri := archive.Join(s.deps.OutputDir, name)
		if err := s.deps.Archive.Put(ctx, uri, data, contentType); err != nil {
			err = fmt.Errorf("storing %s: %w", name, err)
			s.deps.Recorder.MarkRunFailed(ctx, state.AnalysisRunID, err)
			return err
		}
		state.ArtifactURIs[name] = uri
		return nil
	}

	if err := store("report.txt", []byte(state.ReportText), "text/plain; charset=utf-8"); err != nil {
		return err
	}

	aggJSON, err := json.MarshalIndent(state.Aggregates, "", "  ")
	if err != nil {
		s.deps.Recorder.MarkRunFailed(ctx, state.AnalysisRunID, err)
		return fmt.Errorf("encoding aggregates: %w", err)
	}
	if err := store("aggregates.json", aggJSON, "application/json"); err != nil {
		return err
	}

	for _, task := range s.deps.Crew.Tasks {
		text, ok := state.Artifacts[task.Name]
		if !ok {
			continue
		}
		if err := store(task.OutputFile, []byte(text), "text/markdown; charset=utf-8"); err != nil {
			return err
		}
	}
	return nil
}

// Step N: MarkSuccessStep marks the analysis run as SUCCESS with its metrics.
type MarkSuccessStep struct {
	deps *Deps
}

func (s *MarkSuccessStep) Execute(ctx context.Context, state *State) error {
	metrics := infra.RunMetrics{
		TransactionCount: state.Aggregates.TransactionCount,
		ReportAsOf:       state.Aggregates.AsOf,
		TokensInput:      state.TokensInput,
		TokensOutput:     state.TokensOutput,
	}
	return s.deps.Recorder.MarkRunSucceeded(ctx, state.AnalysisRunID, metrics)
}
