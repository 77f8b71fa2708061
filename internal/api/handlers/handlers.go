package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/PiyushGupta1590/MumbaiHacks2025/internal/agents"
	"github.com/PiyushGupta1590/MumbaiHacks2025/internal/api/middleware"
	"github.com/PiyushGupta1590/MumbaiHacks2025/internal/archive"
	"github.com/PiyushGupta1590/MumbaiHacks2025/internal/jobs"
	"github.com/PiyushGupta1590/MumbaiHacks2025/internal/ledger"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// maxUploadBytes caps ledger uploads. Ledgers are small spreadsheets; 32 MB
// is generous.
const maxUploadBytes = 32 << 20

// DatasetsHandler handles ledger dataset endpoints.
type DatasetsHandler struct {
	store        archive.Store
	publisher    jobs.Publisher
	uploadPrefix string
	log          zerolog.Logger
}

// NewDatasetsHandler creates a new datasets handler. uploadPrefix is where
// uploaded ledgers are stored: a gs:// prefix or a local directory.
func NewDatasetsHandler(store archive.Store, publisher jobs.Publisher, uploadPrefix string, log zerolog.Logger) *DatasetsHandler {
	return &DatasetsHandler{
		store:        store,
		publisher:    publisher,
		uploadPrefix: uploadPrefix,
		log:          log,
	}
}

// UploadDataset handles POST /api/datasets/upload.
// It accepts a multipart form with a "file" field holding the ledger
// (.xlsx or .csv), validates that it parses, stores it, and enqueues an
// analysis job.
func (h *DatasetsHandler) UploadDataset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Form field 'file' is required")
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".xlsx" && ext != ".csv" {
		middleware.WriteError(w, http.StatusBadRequest, "Unsupported file type: expected .xlsx or .csv")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read upload")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to read upload")
		return
	}

	// Reject unparseable ledgers before storing anything.
	var led *ledger.Ledger
	if ext == ".csv" {
		led, err = ledger.ParseCSV(bytes.NewReader(data))
	} else {
		led, err = ledger.ParseWorkbook(bytes.NewReader(data))
	}
	if err != nil {
		middleware.WriteError(w, http.StatusUnprocessableEntity, fmt.Sprintf("Ledger rejected: %v", err))
		return
	}

	datasetID := uuid.New().String()
	datasetURI := archive.Join(h.uploadPrefix, time.Now().Format("2006/01/02"), datasetID+"-"+filename)

	if err := h.store.Put(ctx, datasetURI, data, header.Header.Get("Content-Type")); err != nil {
		h.log.Error().Err(err).Str("dataset_uri", datasetURI).Msg("Failed to store upload")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to store upload")
		return
	}

	job := &jobs.AnalyzeDatasetJob{
		DatasetID:  datasetID,
		DatasetURI: datasetURI,
	}
	if err := h.publisher.PublishAnalyzeDataset(ctx, job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue analysis job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue analysis job")
		return
	}

	h.log.Info().
		Str("dataset_id", datasetID).
		Str("dataset_uri", datasetURI).
		Str("job_id", job.JobID).
		Int("transactions", len(led.Transactions)).
		Msg("Dataset uploaded and analysis enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"dataset_id":        datasetID,
		"dataset_uri":       datasetURI,
		"job_id":            job.JobID,
		"transaction_count": len(led.Transactions),
		"status":            string(job.Status),
	})
}

// EnqueueAnalysis handles POST /api/datasets/analyze.
// It enqueues an analysis job for a previously stored ledger.
func (h *DatasetsHandler) EnqueueAnalysis(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DatasetID  string `json:"dataset_id"`
		DatasetURI string `json:"dataset_uri"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.DatasetID == "" || req.DatasetURI == "" {
		middleware.WriteError(w, http.StatusBadRequest, "dataset_id and dataset_uri are required")
		return
	}

	ctx := r.Context()

	job := &jobs.AnalyzeDatasetJob{
		DatasetID:  req.DatasetID,
		DatasetURI: req.DatasetURI,
	}

	if err := h.publisher.PublishAnalyzeDataset(ctx, job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue analysis job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue analysis job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("dataset_id", req.DatasetID).Msg("Analysis job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":     job.JobID,
		"dataset_id": req.DatasetID,
		"status":     string(job.Status),
	})
}

// ReportsHandler serves generated report artifacts.
type ReportsHandler struct {
	store        archive.Store
	outputPrefix string
	crew         *agents.Crew
	log          zerolog.Logger
}

// NewReportsHandler creates a new reports handler. outputPrefix is the root
// the worker writes artifacts under; each dataset's artifacts live at
// outputPrefix/<dataset_id>/.
func NewReportsHandler(store archive.Store, outputPrefix string, crew *agents.Crew, log zerolog.Logger) *ReportsHandler {
	return &ReportsHandler{
		store:        store,
		outputPrefix: outputPrefix,
		crew:         crew,
		log:          log,
	}
}

// GetReport handles GET /api/datasets/{id}/report.
// It returns the deterministic cash-flow report as plain text.
func (h *ReportsHandler) GetReport(w http.ResponseWriter, r *http.Request, datasetID string) {
	h.serveArtifact(w, r, datasetID, "report.txt", "text/plain; charset=utf-8")
}

// GetAggregates handles GET /api/datasets/{id}/aggregates.
// It returns the report's underlying numbers as JSON.
func (h *ReportsHandler) GetAggregates(w http.ResponseWriter, r *http.Request, datasetID string) {
	h.serveArtifact(w, r, datasetID, "aggregates.json", "application/json")
}

// GetArtifact handles GET /api/datasets/{id}/artifacts/{name}.
// Only filenames produced by the analysis are served.
func (h *ReportsHandler) GetArtifact(w http.ResponseWriter, r *http.Request, datasetID, name string) {
	if !h.knownArtifact(name) {
		middleware.WriteError(w, http.StatusNotFound, "Unknown artifact")
		return
	}
	contentType := "text/markdown; charset=utf-8"
	switch {
	case strings.HasSuffix(name, ".json"):
		contentType = "application/json"
	case strings.HasSuffix(name, ".txt"):
		contentType = "text/plain; charset=utf-8"
	}
	h.serveArtifact(w, r, datasetID, name, contentType)
}

func (h *ReportsHandler) knownArtifact(name string) bool {
	if name == "report.txt" || name == "aggregates.json" {
		return true
	}
	for _, task := range h.crew.Tasks {
		if task.OutputFile == name {
			return true
		}
	}
	return false
}

func (h *ReportsHandler) serveArtifact(w http.ResponseWriter, r *http.Request, datasetID, name, contentType string) {
	uri := archive.Join(h.outputPrefix, datasetID, name)

	data, err := h.store.Fetch(r.Context(), uri)
	if err != nil {
		h.log.Warn().Err(err).Str("uri", uri).Msg("Artifact not available")
		middleware.WriteError(w, http.StatusNotFound, "Artifact not available; analysis may still be running")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Parse query parameters
	query := r.URL.Query()
	filter := jobs.JobFilter{
		DatasetID: query.Get("dataset_id"),
		Status:    jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
