package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PiyushGupta1590/MumbaiHacks2025/internal/jobs"
)

func TestStoreSaveAndGet(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	job := &jobs.AnalyzeDatasetJob{
		JobID:      "job-1",
		DatasetID:  "ds-1",
		DatasetURI: "gs://bucket/ledger.xlsx",
		Status:     jobs.JobStatusPending,
		CreatedAt:  time.Now(),
	}

	if err := store.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob failed: %v", err)
	}

	got, err := store.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if got.DatasetID != "ds-1" {
		t.Errorf("DatasetID = %q, want %q", got.DatasetID, "ds-1")
	}

	// Mutating the returned copy must not affect the stored job.
	got.Status = jobs.JobStatusFailed
	again, err := store.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if again.Status != jobs.JobStatusPending {
		t.Errorf("stored job status = %q, want %q", again.Status, jobs.JobStatusPending)
	}
}

func TestStoreRejectsMissingID(t *testing.T) {
	store := NewStore()
	if err := store.SaveJob(context.Background(), &jobs.AnalyzeDatasetJob{}); err == nil {
		t.Fatal("expected error for job without ID")
	}
}

func TestStoreGetUnknownJob(t *testing.T) {
	store := NewStore()
	if _, err := store.GetJob(context.Background(), "nope"); err == nil {
		t.Fatal("expected error for unknown job ID")
	}
}

func TestStoreListJobsFiltering(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	base := time.Now()

	seed := []*jobs.AnalyzeDatasetJob{
		{JobID: "a", DatasetID: "ds-1", Status: jobs.JobStatusCompleted, CreatedAt: base},
		{JobID: "b", DatasetID: "ds-1", Status: jobs.JobStatusPending, CreatedAt: base.Add(time.Second)},
		{JobID: "c", DatasetID: "ds-2", Status: jobs.JobStatusPending, CreatedAt: base.Add(2 * time.Second)},
	}
	for _, j := range seed {
		if err := store.SaveJob(ctx, j); err != nil {
			t.Fatalf("SaveJob failed: %v", err)
		}
	}

	byDataset, err := store.ListJobs(ctx, jobs.JobFilter{DatasetID: "ds-1"})
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(byDataset) != 2 {
		t.Fatalf("got %d jobs for ds-1, want 2", len(byDataset))
	}
	if byDataset[0].JobID != "b" {
		t.Errorf("first job = %q, want newest first (b)", byDataset[0].JobID)
	}

	pending, err := store.ListJobs(ctx, jobs.JobFilter{Status: jobs.JobStatusPending, Limit: 1})
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(pending) != 1 || pending[0].JobID != "c" {
		t.Errorf("pending limit 1 = %+v, want single job c", pending)
	}
}

func TestStoreUpdateJobStatus(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	job := &jobs.AnalyzeDatasetJob{JobID: "u", Status: jobs.JobStatusRunning, CreatedAt: time.Now()}
	if err := store.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob failed: %v", err)
	}

	if err := store.UpdateJobStatus(ctx, "u", jobs.JobStatusFailed, "boom"); err != nil {
		t.Fatalf("UpdateJobStatus failed: %v", err)
	}

	got, err := store.GetJob(ctx, "u")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if got.Status != jobs.JobStatusFailed || got.Error != "boom" {
		t.Errorf("job = %+v, want failed with error boom", got)
	}
}

func TestQueueProcessesJob(t *testing.T) {
	store := NewStore()
	queue := NewQueue(10, 2, store)
	defer queue.Close()

	ctx := context.Background()
	done := make(chan string, 1)

	handler := func(ctx context.Context, job jobs.Job) error {
		done <- job.GetID()
		return nil
	}
	if err := queue.Start(ctx, handler); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	job := &jobs.AnalyzeDatasetJob{DatasetID: "ds-1", DatasetURI: "/tmp/ledger.csv"}
	if err := queue.PublishAnalyzeDataset(ctx, job); err != nil {
		t.Fatalf("PublishAnalyzeDataset failed: %v", err)
	}
	if job.JobID == "" {
		t.Fatal("expected publish to assign a job ID")
	}

	select {
	case id := <-done:
		if id != job.JobID {
			t.Errorf("handled job %q, want %q", id, job.JobID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for job to be handled")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		got, err := store.GetJob(ctx, job.JobID)
		if err != nil {
			t.Fatalf("GetJob failed: %v", err)
		}
		if got.Status == jobs.JobStatusCompleted {
			if got.StartedAt == nil || got.CompletedAt == nil {
				t.Error("expected started/completed timestamps to be set")
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job never completed, status = %q", got.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestQueueRetriesFailedJob(t *testing.T) {
	store := NewStore()
	queue := NewQueue(10, 1, store)
	defer queue.Close()

	ctx := context.Background()
	var attempts atomic.Int32
	done := make(chan struct{}, 1)

	handler := func(ctx context.Context, job jobs.Job) error {
		if attempts.Add(1) == 1 {
			return errors.New("transient failure")
		}
		done <- struct{}{}
		return nil
	}
	if err := queue.Start(ctx, handler); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	job := &jobs.AnalyzeDatasetJob{DatasetID: "ds-1", DatasetURI: "/tmp/ledger.csv", MaxRetries: 2}
	if err := queue.PublishAnalyzeDataset(ctx, job); err != nil {
		t.Fatalf("PublishAnalyzeDataset failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for retry")
	}
	if got := attempts.Load(); got != 2 {
		t.Errorf("attempts = %d, want 2", got)
	}
}

func TestQueueRejectsPublishAfterClose(t *testing.T) {
	queue := NewQueue(1, 1, NewStore())
	if err := queue.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	err := queue.PublishAnalyzeDataset(context.Background(), &jobs.AnalyzeDatasetJob{DatasetID: "ds"})
	if err == nil {
		t.Fatal("expected publish on closed queue to fail")
	}
}
