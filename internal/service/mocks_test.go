package service

import (
	"context"

	"github.com/cloo-solutions/citewise/internal/domain"
	"github.com/cloo-solutions/citewise/internal/pagination"
	"github.com/stretchr/testify/mock"
)

// MockDocumentRepo mocks the document repository
type MockDocumentRepo struct {
	mock.Mock
}

func (m *MockDocumentRepo) Upsert(ctx context.Context, d *domain.Document) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDocumentRepo) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentRepo) GetBySourceID(ctx context.Context, sourceID string) (*domain.Document, error) {
	args := m.Called(ctx, sourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentRepo) SetStorage(ctx context.Context, id, key, contentType string) error {
	args := m.Called(ctx, id, key, contentType)
	return args.Error(0)
}

func (m *MockDocumentRepo) DateCoverage(ctx context.Context) (*domain.DateCoverage, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DateCoverage), args.Error(1)
}

// MockChunkRepo mocks the chunk repository
type MockChunkRepo struct {
	mock.Mock
}

func (m *MockChunkRepo) ReplaceChunks(ctx context.Context, documentID string, chunks []domain.DocumentChunk) error {
	args := m.Called(ctx, documentID, chunks)
	return args.Error(0)
}

func (m *MockChunkRepo) ListByDocument(ctx context.Context, documentID string) ([]domain.DocumentChunk, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DocumentChunk), args.Error(1)
}

func (m *MockChunkRepo) UpdateEmbedding(ctx context.Context, chunkID string, embedding []float32) error {
	args := m.Called(ctx, chunkID, embedding)
	return args.Error(0)
}

// MockEmbeddingJobRepo mocks the embedding job repository
type MockEmbeddingJobRepo struct {
	mock.Mock
}

func (m *MockEmbeddingJobRepo) Create(ctx context.Context, job *domain.EmbeddingJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

// MockSearchRepo mocks the search index
type MockSearchRepo struct {
	mock.Mock
}

func (m *MockSearchRepo) SearchChunksSemantic(ctx context.Context, embedding []float32, dates domain.DateRange, limit int) ([]domain.RetrievedChunk, error) {
	args := m.Called(ctx, embedding, dates, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RetrievedChunk), args.Error(1)
}

func (m *MockSearchRepo) SearchChunksLexical(ctx context.Context, query string, dates domain.DateRange, limit int) ([]domain.RetrievedChunk, error) {
	args := m.Called(ctx, query, dates, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RetrievedChunk), args.Error(1)
}

// MockEmbeddingClient mocks the OpenAI embedding client
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// MockCompletionClient mocks the OpenAI completion client
type MockCompletionClient struct {
	mock.Mock
}

func (m *MockCompletionClient) Complete(ctx context.Context, model, prompt string) (string, error) {
	args := m.Called(ctx, model, prompt)
	return args.String(0), args.Error(1)
}

// MockTranscriptRepo mocks the chat history store
type MockTranscriptRepo struct {
	mock.Mock
}

func (m *MockTranscriptRepo) Append(ctx context.Context, e *domain.TranscriptEntry) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockTranscriptRepo) ListRecentSessions(ctx context.Context, userID string, cursor *pagination.Cursor, limit int) (*SessionPage, error) {
	args := m.Called(ctx, userID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SessionPage), args.Error(1)
}

func (m *MockTranscriptRepo) LoadSession(ctx context.Context, userID, sessionID string) ([]*domain.TranscriptEntry, error) {
	args := m.Called(ctx, userID, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.TranscriptEntry), args.Error(1)
}

func (m *MockTranscriptRepo) DeleteSession(ctx context.Context, userID, sessionID string) error {
	args := m.Called(ctx, userID, sessionID)
	return args.Error(0)
}

func (m *MockTranscriptRepo) DeleteAll(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// MockFeedbackRepo mocks the feedback store
type MockFeedbackRepo struct {
	mock.Mock
}

func (m *MockFeedbackRepo) Record(ctx context.Context, f *domain.Feedback) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

func (m *MockFeedbackRepo) ListBySession(ctx context.Context, userID, sessionID string) ([]*domain.Feedback, error) {
	args := m.Called(ctx, userID, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Feedback), args.Error(1)
}

// MockStorage mocks the S3 document storage
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) PutObject(ctx context.Context, key string, body []byte, contentType string) error {
	args := m.Called(ctx, key, body, contentType)
	return args.Error(0)
}

func (m *MockStorage) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

// sequenceUUIDGen hands out ids from a fixed list, in order
type sequenceUUIDGen struct {
	ids []string
	n   int
}

func (g *sequenceUUIDGen) NewString() string {
	id := g.ids[g.n%len(g.ids)]
	g.n++
	return id
}
