package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/cloo-solutions/citewise/internal/domain"
	"github.com/cloo-solutions/citewise/internal/telemetry"
)

// DocumentStorage keeps the uploaded original of a document
type DocumentStorage interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) error
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
}

// IngestService adds source documents to the search index. Chunks are
// searchable lexically as soon as the document is stored; embeddings are
// filled in by the background worker.
type IngestService struct {
	txRunner TxRunner
	docRepo  DocumentRepositoryInterface
	storage  DocumentStorage
	uuidGen  UUIDGenerator
	chunkCfg ChunkConfig
}

// NewIngestService creates a new IngestService. storage may be nil.
func NewIngestService(txRunner TxRunner, docRepo DocumentRepositoryInterface, storage DocumentStorage) *IngestService {
	return NewIngestServiceWithUUIDGen(txRunner, docRepo, storage, &DefaultUUIDGenerator{})
}

// NewIngestServiceWithUUIDGen creates a new IngestService with custom UUID generator (for testing)
func NewIngestServiceWithUUIDGen(txRunner TxRunner, docRepo DocumentRepositoryInterface, storage DocumentStorage, uuidGen UUIDGenerator) *IngestService {
	return &IngestService{
		txRunner: txRunner,
		docRepo:  docRepo,
		storage:  storage,
		uuidGen:  uuidGen,
		chunkCfg: DefaultChunkConfig(),
	}
}

// IngestInput is one document to index
type IngestInput struct {
	SourceID      string
	EffectiveDate *time.Time
	Text          string

	// Original is the uploaded file, kept for download when storage is configured.
	Original    []byte
	ContentType string
}

// IngestOutput reports what was indexed
type IngestOutput struct {
	Document   *domain.Document
	ChunkCount int
	JobID      string
}

// Ingest stores the document, replaces its chunks and queues an embedding job.
// Re-ingesting a source id replaces the previous version.
func (s *IngestService) Ingest(ctx context.Context, input IngestInput) (*IngestOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestService.Ingest", telemetry.SpanAttributes{
		Operation: "ingest",
	})
	defer span.End()

	sourceID := strings.TrimSpace(input.SourceID)
	if sourceID == "" || strings.TrimSpace(input.Text) == "" {
		return nil, domain.ErrMissingRequiredField
	}

	now := time.Now().UTC()
	doc := domain.NewDocument(s.uuidGen.NewString(), sourceID, input.EffectiveDate, input.Text, now)
	if err := domain.ValidateDocument(doc); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid document", err)
	}

	pieces := chunkText(doc.Body, s.chunkCfg)
	jobID := s.uuidGen.NewString()

	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Documents().Upsert(ctx, doc); err != nil {
			return fmt.Errorf("failed to store document: %w", err)
		}

		chunks := make([]domain.DocumentChunk, 0, len(pieces))
		for i, piece := range pieces {
			chunks = append(chunks, domain.DocumentChunk{
				ID:            s.uuidGen.NewString(),
				DocumentID:    doc.ID,
				SourceID:      doc.SourceID,
				EffectiveDate: doc.EffectiveDate,
				ChunkIndex:    i,
				Content:       piece,
				CreatedAt:     now,
			})
		}
		if err := repos.Chunks().ReplaceChunks(ctx, doc.ID, chunks); err != nil {
			return fmt.Errorf("failed to store chunks: %w", err)
		}

		job := domain.NewEmbeddingJob(jobID, doc.ID, domain.EmbeddingJobStatusPending, 0, "", now, nil)
		return repos.EmbeddingJobs().Create(ctx, job)
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	if s.storage != nil && len(input.Original) > 0 {
		key := storageKey(doc.ID, doc.SourceID)
		if err := s.storage.PutObject(ctx, key, input.Original, input.ContentType); err != nil {
			return nil, fmt.Errorf("failed to upload original: %w", err)
		}
		if err := s.docRepo.SetStorage(ctx, doc.ID, key, input.ContentType); err != nil {
			return nil, err
		}
		doc.StorageKey = key
		doc.ContentType = input.ContentType
	}

	return &IngestOutput{Document: doc, ChunkCount: len(pieces), JobID: jobID}, nil
}

func storageKey(documentID, sourceID string) string {
	return path.Join("documents", documentID, path.Base(strings.ReplaceAll(sourceID, `\`, "/")))
}
