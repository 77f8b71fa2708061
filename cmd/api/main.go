package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/PiyushGupta1590/MumbaiHacks2025/internal/agents"
	"github.com/PiyushGupta1590/MumbaiHacks2025/internal/api/handlers"
	"github.com/PiyushGupta1590/MumbaiHacks2025/internal/api/middleware"
	"github.com/PiyushGupta1590/MumbaiHacks2025/internal/archive"
	"github.com/PiyushGupta1590/MumbaiHacks2025/internal/config"
	infraBQ "github.com/PiyushGupta1590/MumbaiHacks2025/internal/infra/bigquery"
	"github.com/PiyushGupta1590/MumbaiHacks2025/internal/jobs"
	"github.com/PiyushGupta1590/MumbaiHacks2025/internal/jobs/inmemory"
	"github.com/PiyushGupta1590/MumbaiHacks2025/internal/logger"
	"github.com/PiyushGupta1590/MumbaiHacks2025/internal/pipeline"
)

func main() {
	log := logger.New("api")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	if cfg.GCSBucket == "" {
		log.Warn().Msg("No GCS bucket configured - uploads and artifacts go to the local output directory")
	}

	ctx := context.Background()

	// Crew definition: from YAML when present, otherwise the built-in crew.
	crew := agents.DefaultCrew()
	if _, err := os.Stat(cfg.CrewConfigPath); err == nil {
		crew, err = agents.LoadCrew(cfg.CrewConfigPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.CrewConfigPath).Msg("Failed to load crew definition")
		}
	}

	// Audit trail is optional: without a BigQuery project runs are not recorded.
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

	uploadPrefix := archive.Join(cfg.OutputDir, "uploads")
	outputPrefix := cfg.OutputDir
	if cfg.GCSBucket != "" {
		uploadPrefix = "gs://" + cfg.GCSBucket + "/uploads"
		outputPrefix = "gs://" + cfg.GCSBucket + "/reports"
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.JobBufferSize, cfg.JobWorkers, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	jobHandler := func(ctx context.Context, job jobs.Job) error {
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

	go func() {
		log.Info().Msg("Starting job worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	// Initialize handlers
	datasetsHandler := handlers.NewDatasetsHandler(store, jobQueue, uploadPrefix, log)
	reportsHandler := handlers.NewReportsHandler(store, outputPrefix, crew, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	// Create router
	mux := http.NewServeMux()

	mux.HandleFunc("/api/datasets/upload", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			datasetsHandler.UploadDataset(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/datasets/analyze", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			datasetsHandler.EnqueueAnalysis(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Report artifact routes: /api/datasets/{id}/report, /aggregates,
	// /artifacts/{name}.
	mux.HandleFunc("/api/datasets/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		rest := strings.TrimPrefix(r.URL.Path, "/api/datasets/")
		parts := strings.Split(rest, "/")
		if len(parts) < 2 || parts[0] == "" {
			middleware.WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		datasetID := parts[0]

		switch {
		case len(parts) == 2 && parts[1] == "report":
			reportsHandler.GetReport(w, r, datasetID)
		case len(parts) == 2 && parts[1] == "aggregates":
			reportsHandler.GetAggregates(w, r, datasetID)
		case len(parts) == 3 && parts[1] == "artifacts" && parts[2] != "":
			reportsHandler.GetArtifact(w, r, datasetID, parts[2])
		default:
			middleware.WriteError(w, http.StatusNotFound, "Not found")
		}
	})

	// Jobs endpoints
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(
					middleware.Auth(mux),
				),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
