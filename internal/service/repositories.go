package service

import (
	"context"

	"github.com/cloo-solutions/citewise/internal/domain"
	"github.com/cloo-solutions/citewise/internal/pagination"
	"github.com/google/uuid"
)

// DocumentRepositoryInterface defines the repository interface for source documents
type DocumentRepositoryInterface interface {
	Upsert(ctx context.Context, d *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	GetBySourceID(ctx context.Context, sourceID string) (*domain.Document, error)
	SetStorage(ctx context.Context, id, key, contentType string) error
	DateCoverage(ctx context.Context) (*domain.DateCoverage, error)
}

// ChunkRepositoryInterface defines the repository interface for document chunks
type ChunkRepositoryInterface interface {
	ReplaceChunks(ctx context.Context, documentID string, chunks []domain.DocumentChunk) error
	ListByDocument(ctx context.Context, documentID string) ([]domain.DocumentChunk, error)
	UpdateEmbedding(ctx context.Context, chunkID string, embedding []float32) error
}

// EmbeddingJobRepositoryInterface defines the repository interface for embedding job persistence
type EmbeddingJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.EmbeddingJob) error
}

// ChunkSearchRepository is the search index. Results are ordered most relevant first.
type ChunkSearchRepository interface {
	SearchChunksSemantic(ctx context.Context, embedding []float32, dates domain.DateRange, limit int) ([]domain.RetrievedChunk, error)
	SearchChunksLexical(ctx context.Context, query string, dates domain.DateRange, limit int) ([]domain.RetrievedChunk, error)
}

// TranscriptRepositoryInterface defines the chat history store
type TranscriptRepositoryInterface interface {
	Append(ctx context.Context, e *domain.TranscriptEntry) error
	ListRecentSessions(ctx context.Context, userID string, cursor *pagination.Cursor, limit int) (*SessionPage, error)
	LoadSession(ctx context.Context, userID, sessionID string) ([]*domain.TranscriptEntry, error)
	DeleteSession(ctx context.Context, userID, sessionID string) error
	DeleteAll(ctx context.Context, userID string) (int64, error)
}

// FeedbackRepositoryInterface defines the feedback store
type FeedbackRepositoryInterface interface {
	Record(ctx context.Context, f *domain.Feedback) error
	ListBySession(ctx context.Context, userID, sessionID string) ([]*domain.Feedback, error)
}

// SessionPage is one page of the recent-sessions listing
type SessionPage struct {
	Items      []*domain.SessionSummary
	NextCursor string
	HasMore    bool
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}
