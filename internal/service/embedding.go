package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloo-solutions/citewise/internal/domain"
	"github.com/cloo-solutions/citewise/internal/telemetry"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingService fills in chunk embeddings for ingested documents
type EmbeddingService struct {
	client    EmbeddingClient
	docRepo   DocumentRepositoryInterface
	chunkRepo ChunkRepositoryInterface
}

// NewEmbeddingService creates a new EmbeddingService instance
func NewEmbeddingService(client EmbeddingClient, docRepo DocumentRepositoryInterface, chunkRepo ChunkRepositoryInterface) *EmbeddingService {
	return &EmbeddingService{
		client:    client,
		docRepo:   docRepo,
		chunkRepo: chunkRepo,
	}
}

// EmbedDocument embeds every chunk of the document that has no embedding yet.
// This method is called by the background worker, so a retried job only pays
// for the chunks that failed last time.
func (s *EmbeddingService) EmbedDocument(ctx context.Context, documentID string) error {
	ctx, span := telemetry.StartSpan(ctx, "EmbeddingService.EmbedDocument", telemetry.SpanAttributes{
		DocumentID: documentID,
		Operation:  "embed",
	})
	defer span.End()

	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return err
	}

	chunks, err := s.chunkRepo.ListByDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("failed to list chunks: %w", err)
	}

	for _, chunk := range chunks {
		if len(chunk.Embedding) > 0 {
			continue
		}
		embedding, err := s.client.GenerateEmbedding(ctx, buildChunkEmbeddingText(doc, chunk.Content))
		if err != nil {
			return fmt.Errorf("failed to generate chunk embedding: %w", err)
		}
		if err := s.chunkRepo.UpdateEmbedding(ctx, chunk.ID, embedding); err != nil {
			return fmt.Errorf("failed to update chunk embedding: %w", err)
		}
	}

	return nil
}

func buildChunkEmbeddingText(d *domain.Document, chunk string) string {
	var parts []string
	if d.Title != "" {
		parts = append(parts, d.Title)
	}
	if d.EffectiveDate != nil {
		parts = append(parts, "Effective Date: "+d.EffectiveDate.Format(domain.EffectiveDateLayout))
	}
	if chunk != "" {
		parts = append(parts, chunk)
	}
	return strings.Join(parts, "\n\n")
}
