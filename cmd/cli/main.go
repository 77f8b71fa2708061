package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/PiyushGupta1590/MumbaiHacks2025/internal/agents"
	"github.com/PiyushGupta1590/MumbaiHacks2025/internal/archive"
	"github.com/PiyushGupta1590/MumbaiHacks2025/internal/config"
	infraBQ "github.com/PiyushGupta1590/MumbaiHacks2025/internal/infra/bigquery"
	"github.com/PiyushGupta1590/MumbaiHacks2025/internal/ledger"
	"github.com/PiyushGupta1590/MumbaiHacks2025/internal/logger"
	"github.com/PiyushGupta1590/MumbaiHacks2025/internal/pipeline"
	"github.com/PiyushGupta1590/MumbaiHacks2025/internal/report"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func main() {
	log := logger.New("cli")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "analyze":
		runAnalyze(log)
	case "report":
		runReport(log)
	case "upload":
		runUpload(log)
	case "runs":
		runRuns(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Financial Health Analyzer CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  analyze   Run the full analysis pipeline over a ledger file")
	fmt.Println("  report    Build and print the cash-flow report for a ledger file")
	fmt.Println("  upload    Upload a ledger file to GCS")
	fmt.Println("  runs      List recent analysis runs from the audit trail")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func runAnalyze(log zerolog.Logger) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	uri := fs.String("uri", "", "Ledger location: local path or gs:// URI (.xlsx or .csv)")
	out := fs.String("out", "", "Output directory or gs:// prefix for artifacts (default: config OUTPUT_DIR)")
	fs.Parse(os.Args[2:])

	if *uri == "" {
		log.Fatal().Msg("Error: --uri is required")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	crew := agents.DefaultCrew()
	if _, err := os.Stat(cfg.CrewConfigPath); err == nil {
		crew, err = agents.LoadCrew(cfg.CrewConfigPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.CrewConfigPath).Msg("Failed to load crew definition")
		}
	}

	var recorder infraBQ.RunRecorder = infraBQ.NopRecorder{}
	if cfg.BigQueryProject != "" {
		bqRecorder, err := infraBQ.NewRecorder(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create analysis run recorder")
		}
		defer bqRecorder.Close()
		recorder = bqRecorder
	}

	outputDir := cfg.OutputDir
	if *out != "" {
		outputDir = *out
	}

	datasetID := uuid.New().String()
	deps := &pipeline.Deps{
		Archive:   archive.NewClient(),
		Runner:    agents.NewGeminiRunner(cfg.ModelName),
		Recorder:  recorder,
		Crew:      crew,
		ModelName: cfg.ModelName,
		OutputDir: archive.Join(outputDir, datasetID),
	}

	log.Info().Str("uri", *uri).Str("dataset_id", datasetID).Msg("Starting analysis")

	state, err := pipeline.AnalyzeDataset(ctx, deps, datasetID, *uri)
	if err != nil {
		log.Fatal().Err(err).Msg("Analysis failed")
	}

	fmt.Println("Analysis completed successfully.")
	fmt.Printf("Transactions analyzed: %d\n", state.Aggregates.TransactionCount)
	fmt.Println("Artifacts:")
	for name, artifactURI := range state.ArtifactURIs {
		fmt.Printf("  %-28s %s\n", name, artifactURI)
	}
}

func runReport(log zerolog.Logger) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	file := fs.String("file", "", "Path to local ledger file (.xlsx or .csv)")
	asJSON := fs.Bool("json", false, "Print the aggregates as JSON instead of the text report")
	fs.Parse(os.Args[2:])

	if *file == "" {
		log.Fatal().Msg("Error: --file is required")
	}

	led, err := ledger.ParseFile(*file)
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("Failed to parse ledger")
	}

	txs := ledger.Prepare(led.Transactions, led.HasRunningBalance)
	text, agg := report.NewBuilder().Build(txs)

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(agg); err != nil {
			log.Fatal().Err(err).Msg("Failed to encode aggregates")
		}
		return
	}
	fmt.Println(text)
}

func runUpload(log zerolog.Logger) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	bucketName := fs.String("bucket", "", "GCS bucket name")
	objectName := fs.String("object", "", "GCS object name (defaults to filename)")
	filePath := fs.String("file", "", "Path to local ledger file")
	fs.Parse(os.Args[2:])

	if *bucketName == "" || *filePath == "" {
		log.Fatal().Msg("Usage: cli upload -bucket NAME -file PATH")
	}

	if *objectName == "" {
		*objectName = filepath.Base(*filePath)
	}

	ctx := context.Background()
	ctx = logger.WithContext(ctx, log)

	data, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatal().Err(err).Str("file", *filePath).Msg("Failed to read file")
	}

	uri := fmt.Sprintf("gs://%s/%s", *bucketName, *objectName)

	log.Info().
		Str("uri", uri).
		Str("file", *filePath).
		Msg("Uploading ledger to GCS")

	if err := archive.NewClient().Put(ctx, uri, data, ""); err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to %s\n", *filePath, uri)
}

func runRuns(log zerolog.Logger) {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	limit := fs.Int("limit", 20, "Maximum number of runs to list")
	fs.Parse(os.Args[2:])

	cfg := config.Load()
	if cfg.BigQueryProject == "" {
		log.Fatal().Msg("Error: BIGQUERY_PROJECT must be configured to list runs")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	recorder, err := infraBQ.NewRecorder(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create analysis run recorder")
	}
	defer recorder.Close()

	runs, err := recorder.ListRuns(ctx, *limit)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list analysis runs")
	}

	if len(runs) == 0 {
		fmt.Println("No analysis runs recorded.")
		return
	}

	fmt.Printf("%-36s  %-10s  %-20s  %-12s  %s\n", "RUN ID", "STATUS", "STARTED", "TRANSACTIONS", "MODEL")
	for _, run := range runs {
		count := "-"
		if run.TransactionCount.Valid {
			count = fmt.Sprintf("%d", run.TransactionCount.Int64)
		}
		fmt.Printf("%-36s  %-10s  %-20s  %-12s  %s\n",
			run.AnalysisRunID,
			run.Status,
			run.StartedTS.Format("2006-01-02 15:04:05"),
			count,
			run.ModelName,
		)
	}
}
