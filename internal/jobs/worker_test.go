package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/citewise/internal/domain"
)

type MockJobProcessor struct {
	mock.Mock
}

func (m *MockJobProcessor) ProcessJobs(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockEmbeddingJobRepository struct {
	mock.Mock
}

func (m *MockEmbeddingJobRepository) GetPendingJobs(ctx context.Context) ([]*domain.EmbeddingJob, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.EmbeddingJob), args.Error(1)
}

func (m *MockEmbeddingJobRepository) UpdateJobStatus(ctx context.Context, jobID string, status domain.EmbeddingJobStatus, errMsg string) error {
	args := m.Called(ctx, jobID, status, errMsg)
	return args.Error(0)
}

func (m *MockEmbeddingJobRepository) IncrementRetries(ctx context.Context, jobID string) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

type MockDocumentEmbedder struct {
	mock.Mock
}

func (m *MockDocumentEmbedder) EmbedDocument(ctx context.Context, documentID string) error {
	args := m.Called(ctx, documentID)
	return args.Error(0)
}

type countingProcessor struct {
	calls atomic.Int32
}

func (p *countingProcessor) ProcessJobs(ctx context.Context) error {
	p.calls.Add(1)
	return nil
}

func nonEmpty(msg string) bool { return msg != "" }

func TestWorker_StartStop(t *testing.T) {
	processor := &countingProcessor{}
	worker := NewWorker(processor, 20*time.Millisecond)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(context.Background())
	}()

	require.Eventually(t, func() bool {
		return processor.calls.Load() > 0
	}, time.Second, 10*time.Millisecond)

	worker.Stop()
	wg.Wait()
}

func TestWorker_StopTwice(t *testing.T) {
	processor := new(MockJobProcessor)
	processor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(processor, time.Hour)
	go worker.Start(context.Background())

	worker.Stop()
	assert.NotPanics(t, worker.Stop)
}

func TestWorker_ContextCancellation(t *testing.T) {
	processor := new(MockJobProcessor)
	processor.On("ProcessJobs", mock.Anything).Return(errors.New("transient"))

	worker := NewWorker(processor, 20*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	time.Sleep(60 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
	processor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

func TestEmbeddingWorker_NoPendingJobs(t *testing.T) {
	repo := new(MockEmbeddingJobRepository)
	embedder := new(MockDocumentEmbedder)
	repo.On("GetPendingJobs", mock.Anything).Return([]*domain.EmbeddingJob{}, nil)

	err := NewEmbeddingWorker(repo, embedder).ProcessJobs(context.Background())

	assert.NoError(t, err)
	embedder.AssertNotCalled(t, "EmbedDocument", mock.Anything, mock.Anything)
}

func TestEmbeddingWorker_Success(t *testing.T) {
	repo := new(MockEmbeddingJobRepository)
	embedder := new(MockDocumentEmbedder)

	job := &domain.EmbeddingJob{ID: "job-1", DocumentID: "doc-1", Status: domain.EmbeddingJobStatusProcessing}
	repo.On("GetPendingJobs", mock.Anything).Return([]*domain.EmbeddingJob{job}, nil)
	embedder.On("EmbedDocument", mock.Anything, "doc-1").Return(nil)
	repo.On("UpdateJobStatus", mock.Anything, "job-1", domain.EmbeddingJobStatusCompleted, "").Return(nil)

	err := NewEmbeddingWorker(repo, embedder).ProcessJobs(context.Background())

	assert.NoError(t, err)
	repo.AssertExpectations(t)
	embedder.AssertExpectations(t)
}

func TestEmbeddingWorker_FailureIsRetried(t *testing.T) {
	repo := new(MockEmbeddingJobRepository)
	embedder := new(MockDocumentEmbedder)

	job := &domain.EmbeddingJob{ID: "job-1", DocumentID: "doc-1", Retries: 0}
	repo.On("GetPendingJobs", mock.Anything).Return([]*domain.EmbeddingJob{job}, nil)
	embedder.On("EmbedDocument", mock.Anything, "doc-1").Return(errors.New("rate limited"))
	repo.On("IncrementRetries", mock.Anything, "job-1").Return(nil)
	repo.On("UpdateJobStatus", mock.Anything, "job-1", domain.EmbeddingJobStatusPending, mock.MatchedBy(nonEmpty)).Return(nil)

	err := NewEmbeddingWorker(repo, embedder).ProcessJobs(context.Background())

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestEmbeddingWorker_MaxRetriesExceeded(t *testing.T) {
	repo := new(MockEmbeddingJobRepository)
	embedder := new(MockDocumentEmbedder)

	job := &domain.EmbeddingJob{ID: "job-1", DocumentID: "doc-1", Retries: MaxRetries - 1}
	repo.On("GetPendingJobs", mock.Anything).Return([]*domain.EmbeddingJob{job}, nil)
	embedder.On("EmbedDocument", mock.Anything, "doc-1").Return(errors.New("rate limited"))
	repo.On("IncrementRetries", mock.Anything, "job-1").Return(nil)
	repo.On("UpdateJobStatus", mock.Anything, "job-1", domain.EmbeddingJobStatusFailed, mock.MatchedBy(nonEmpty)).Return(nil)

	err := NewEmbeddingWorker(repo, embedder).ProcessJobs(context.Background())

	assert.NoError(t, err)
	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "UpdateJobStatus", mock.Anything, "job-1", domain.EmbeddingJobStatusPending, mock.Anything)
}

func TestEmbeddingWorker_JobWithoutDocumentFails(t *testing.T) {
	repo := new(MockEmbeddingJobRepository)
	embedder := new(MockDocumentEmbedder)

	job := &domain.EmbeddingJob{ID: "job-1"}
	repo.On("GetPendingJobs", mock.Anything).Return([]*domain.EmbeddingJob{job}, nil)
	repo.On("UpdateJobStatus", mock.Anything, "job-1", domain.EmbeddingJobStatusFailed, mock.MatchedBy(nonEmpty)).Return(nil)

	err := NewEmbeddingWorker(repo, embedder).ProcessJobs(context.Background())

	assert.NoError(t, err)
	embedder.AssertNotCalled(t, "EmbedDocument", mock.Anything, mock.Anything)
}

func TestEmbeddingWorker_OneFailureDoesNotStopBatch(t *testing.T) {
	repo := new(MockEmbeddingJobRepository)
	embedder := new(MockDocumentEmbedder)

	jobs := []*domain.EmbeddingJob{
		{ID: "job-1", DocumentID: "doc-1"},
		{ID: "job-2", DocumentID: "doc-2"},
	}
	repo.On("GetPendingJobs", mock.Anything).Return(jobs, nil)
	embedder.On("EmbedDocument", mock.Anything, "doc-1").Return(nil)
	repo.On("UpdateJobStatus", mock.Anything, "job-1", domain.EmbeddingJobStatusCompleted, "").Return(errors.New("db down"))
	embedder.On("EmbedDocument", mock.Anything, "doc-2").Return(nil)
	repo.On("UpdateJobStatus", mock.Anything, "job-2", domain.EmbeddingJobStatusCompleted, "").Return(nil)

	err := NewEmbeddingWorker(repo, embedder).ProcessJobs(context.Background())

	assert.NoError(t, err)
	embedder.AssertExpectations(t)
	repo.AssertExpectations(t)
}

func TestEmbeddingWorker_RepositoryError(t *testing.T) {
	repo := new(MockEmbeddingJobRepository)
	repo.On("GetPendingJobs", mock.Anything).Return(nil, errors.New("database error"))

	err := NewEmbeddingWorker(repo, new(MockDocumentEmbedder)).ProcessJobs(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch pending jobs")
}
