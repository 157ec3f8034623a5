package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cloo-solutions/citewise/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type ingestFixture struct {
	docs    *MockDocumentRepo
	chunks  *MockChunkRepo
	jobs    *MockEmbeddingJobRepo
	storage *MockStorage
	runner  *testTxRunner
}

func newIngestFixture() *ingestFixture {
	f := &ingestFixture{
		docs:    new(MockDocumentRepo),
		chunks:  new(MockChunkRepo),
		jobs:    new(MockEmbeddingJobRepo),
		storage: new(MockStorage),
	}
	f.runner = &testTxRunner{repos: &testTxRepos{documents: f.docs, chunks: f.chunks, embeddingJobs: f.jobs}}
	return f
}

func TestIngestService_Ingest(t *testing.T) {
	f := newIngestFixture()
	uuids := &sequenceUUIDGen{ids: []string{"doc-1", "job-1", "chunk-1"}}
	s := NewIngestServiceWithUUIDGen(f.runner, f.docs, nil, uuids)
	eff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	f.docs.On("Upsert", mock.Anything, mock.MatchedBy(func(d *domain.Document) bool {
		return d.ID == "doc-1" && d.SourceID == "hr/leave-policy.pdf" && d.Title == "leave-policy" && d.EffectiveDate.Equal(eff)
	})).Return(nil)
	f.chunks.On("ReplaceChunks", mock.Anything, "doc-1", mock.MatchedBy(func(chunks []domain.DocumentChunk) bool {
		return len(chunks) == 1 && chunks[0].ID == "chunk-1" && chunks[0].SourceID == "hr/leave-policy.pdf" &&
			chunks[0].ChunkIndex == 0 && chunks[0].EffectiveDate.Equal(eff)
	})).Return(nil)
	f.jobs.On("Create", mock.Anything, mock.MatchedBy(func(j *domain.EmbeddingJob) bool {
		return j.ID == "job-1" && j.DocumentID == "doc-1" && j.Status == domain.EmbeddingJobStatusPending
	})).Return(nil)

	out, err := s.Ingest(context.Background(), IngestInput{
		SourceID:      " hr/leave-policy.pdf ",
		EffectiveDate: &eff,
		Text:          "Employees accrue leave monthly.",
	})
	require.NoError(t, err)

	assert.True(t, f.runner.called)
	assert.Equal(t, 1, out.ChunkCount)
	assert.Equal(t, "job-1", out.JobID)
	assert.Empty(t, out.Document.StorageKey)
	f.docs.AssertExpectations(t)
	f.chunks.AssertExpectations(t)
	f.jobs.AssertExpectations(t)
}

func TestIngestService_Ingest_UploadsOriginal(t *testing.T) {
	f := newIngestFixture()
	uuids := &sequenceUUIDGen{ids: []string{"doc-1", "job-1", "chunk-1"}}
	s := NewIngestServiceWithUUIDGen(f.runner, f.docs, f.storage, uuids)
	original := []byte("%PDF-1.4")

	f.docs.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	f.chunks.On("ReplaceChunks", mock.Anything, "doc-1", mock.Anything).Return(nil)
	f.jobs.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.storage.On("PutObject", mock.Anything, "documents/doc-1/leave.pdf", original, "application/pdf").Return(nil)
	f.docs.On("SetStorage", mock.Anything, "doc-1", "documents/doc-1/leave.pdf", "application/pdf").Return(nil)

	out, err := s.Ingest(context.Background(), IngestInput{
		SourceID:    `hr\leave.pdf`,
		Text:        "Leave text.",
		Original:    original,
		ContentType: "application/pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, "documents/doc-1/leave.pdf", out.Document.StorageKey)
	f.storage.AssertExpectations(t)
	f.docs.AssertExpectations(t)
}

func TestIngestService_Ingest_SplitsLongDocuments(t *testing.T) {
	f := newIngestFixture()
	s := NewIngestService(f.runner, f.docs, nil)
	text := strings.Repeat("This sentence is about leave accrual rules. ", 100)

	var stored []domain.DocumentChunk
	f.docs.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	f.chunks.On("ReplaceChunks", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { stored = args.Get(2).([]domain.DocumentChunk) }).
		Return(nil)
	f.jobs.On("Create", mock.Anything, mock.Anything).Return(nil)

	out, err := s.Ingest(context.Background(), IngestInput{SourceID: "a.txt", Text: text})
	require.NoError(t, err)

	assert.Greater(t, out.ChunkCount, 1)
	require.Len(t, stored, out.ChunkCount)
	for i, c := range stored {
		assert.Equal(t, i, c.ChunkIndex)
		assert.NotEmpty(t, c.ID)
	}
}

func TestIngestService_Ingest_MissingFields(t *testing.T) {
	f := newIngestFixture()
	s := NewIngestService(f.runner, f.docs, nil)

	_, err := s.Ingest(context.Background(), IngestInput{SourceID: "", Text: "x"})
	assert.ErrorIs(t, err, domain.ErrMissingRequiredField)

	_, err = s.Ingest(context.Background(), IngestInput{SourceID: "a.txt", Text: "  "})
	assert.ErrorIs(t, err, domain.ErrMissingRequiredField)

	assert.False(t, f.runner.called)
}

func TestIngestService_Ingest_TxFailure(t *testing.T) {
	f := newIngestFixture()
	s := NewIngestService(f.runner, f.docs, f.storage)

	f.docs.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	f.chunks.On("ReplaceChunks", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("constraint violation"))

	_, err := s.Ingest(context.Background(), IngestInput{SourceID: "a.txt", Text: "text", Original: []byte("text")})
	require.Error(t, err)
	f.jobs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.storage.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
