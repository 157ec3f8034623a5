package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/cloo-solutions/citewise/internal/domain"
)

// MaxRetries is how many attempts a document gets before its job is failed.
const MaxRetries = 3

// EmbeddingJobRepository is the queue side of the embedding pipeline.
type EmbeddingJobRepository interface {
	// GetPendingJobs claims a batch of pending jobs.
	GetPendingJobs(ctx context.Context) ([]*domain.EmbeddingJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status domain.EmbeddingJobStatus, errMsg string) error
	IncrementRetries(ctx context.Context, jobID string) error
}

// DocumentEmbedder fills in the vectors of every chunk of a document.
type DocumentEmbedder interface {
	EmbedDocument(ctx context.Context, documentID string) error
}

// EmbeddingWorker drains embedding jobs created at ingestion.
type EmbeddingWorker struct {
	repo     EmbeddingJobRepository
	embedder DocumentEmbedder
}

func NewEmbeddingWorker(repo EmbeddingJobRepository, embedder DocumentEmbedder) *EmbeddingWorker {
	return &EmbeddingWorker{
		repo:     repo,
		embedder: embedder,
	}
}

// ProcessJobs implements JobProcessor.
func (w *EmbeddingWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.repo.GetPendingJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch pending jobs: %w", err)
	}
	if len(jobs) == 0 {
		return nil
	}

	log.Printf("processing %d embedding jobs", len(jobs))

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			log.Printf("embedding job %s: %v", job.ID, err)
		}
	}
	return nil
}

func (w *EmbeddingWorker) processJob(ctx context.Context, job *domain.EmbeddingJob) error {
	if job.DocumentID == "" {
		return w.repo.UpdateJobStatus(ctx, job.ID, domain.EmbeddingJobStatusFailed, "job has no document_id")
	}

	if err := w.embedder.EmbedDocument(ctx, job.DocumentID); err != nil {
		return w.handleJobFailure(ctx, job, err)
	}

	if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.EmbeddingJobStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}
	log.Printf("embedding job %s completed (document %s)", job.ID, job.DocumentID)
	return nil
}

func (w *EmbeddingWorker) handleJobFailure(ctx context.Context, job *domain.EmbeddingJob, jobErr error) error {
	if err := w.repo.IncrementRetries(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	attempt := job.Retries + 1
	if attempt >= MaxRetries {
		log.Printf("embedding job %s failed after %d attempts: %v", job.ID, attempt, jobErr)
		if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.EmbeddingJobStatusFailed, fmt.Sprintf("max retries exceeded: %v", jobErr)); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return nil
	}

	log.Printf("embedding job %s will be retried (attempt %d/%d): %v", job.ID, attempt, MaxRetries, jobErr)
	if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.EmbeddingJobStatusPending, fmt.Sprintf("retry %d: %v", attempt, jobErr)); err != nil {
		return fmt.Errorf("failed to reset job status to pending: %w", err)
	}
	return nil
}
