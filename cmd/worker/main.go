package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PiyushGupta1590/MumbaiHacks2025/internal/agents"
	"github.com/PiyushGupta1590/MumbaiHacks2025/internal/archive"
	"github.com/PiyushGupta1590/MumbaiHacks2025/internal/config"
	infraBQ "github.com/PiyushGupta1590/MumbaiHacks2025/internal/infra/bigquery"
	"github.com/PiyushGupta1590/MumbaiHacks2025/internal/jobs"
	"github.com/PiyushGupta1590/MumbaiHacks2025/internal/jobs/inmemory"
	"github.com/PiyushGupta1590/MumbaiHacks2025/internal/logger"
	"github.com/PiyushGupta1590/MumbaiHacks2025/internal/pipeline"
)

func main() {
	log := logger.New("worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	store := archive.NewClient()

	outputPrefix := cfg.OutputDir
	if cfg.GCSBucket != "" {
		outputPrefix = "gs://" + cfg.GCSBucket + "/reports"
	}

	// In production, this would be replaced with Cloud Tasks or Pub/Sub
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.JobBufferSize, cfg.JobWorkers, jobStore)

	log.Info().Msg("Starting worker service")

	handler := func(ctx context.Context, job jobs.Job) error {
		analyzeJob, ok := job.(*jobs.AnalyzeDatasetJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", analyzeJob.JobID).
			Str("dataset_id", analyzeJob.DatasetID).
			Str("dataset_uri", analyzeJob.DatasetURI).
			Msg("Processing analysis job")

		deps := &pipeline.Deps{
			Archive:   store,
			Runner:    agents.NewGeminiRunner(cfg.ModelName),
			Recorder:  recorder,
			Crew:      crew,
			ModelName: cfg.ModelName,
			OutputDir: archive.Join(outputPrefix, analyzeJob.DatasetID),
		}

		ctx = logger.WithContext(ctx, log)
		state, err := pipeline.AnalyzeDataset(ctx, deps, analyzeJob.DatasetID, analyzeJob.DatasetURI)
		if err != nil {
			log.Error().
				Err(err).
				Str("job_id", analyzeJob.JobID).
				Str("dataset_id", analyzeJob.DatasetID).
				Msg("Analysis pipeline failed")
			return err
		}
		analyzeJob.AnalysisRunID = state.AnalysisRunID

		log.Info().
			Str("job_id", analyzeJob.JobID).
			Str("dataset_id", analyzeJob.DatasetID).
			Int("artifacts", len(state.ArtifactURIs)).
			Msg("Analysis pipeline completed")

		return nil
	}

	// Start consuming jobs
	if err := jobQueue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Msg("Worker service started, waiting for jobs...")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Worker service exited")
}
