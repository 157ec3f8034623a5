package service

import (
	"context"

	"github.com/cloo-solutions/citewise/internal/domain"
	"github.com/cloo-solutions/citewise/internal/telemetry"
)

// DocumentService serves the indexed documents back to users
type DocumentService struct {
	docRepo DocumentRepositoryInterface
	storage DocumentStorage
}

// NewDocumentService creates a new DocumentService. storage may be nil.
func NewDocumentService(docRepo DocumentRepositoryInterface, storage DocumentStorage) *DocumentService {
	return &DocumentService{docRepo: docRepo, storage: storage}
}

// DateCoverage reports the earliest and latest effective dates in the index.
func (s *DocumentService) DateCoverage(ctx context.Context) (*domain.DateCoverage, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.DateCoverage", telemetry.SpanAttributes{
		Operation: "date_coverage",
	})
	defer span.End()

	return s.docRepo.DateCoverage(ctx)
}

// Get returns the document with the given source id.
func (s *DocumentService) Get(ctx context.Context, sourceID string) (*domain.Document, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Get", telemetry.SpanAttributes{
		Operation: "get",
	})
	defer span.End()

	if sourceID == "" {
		return nil, domain.ErrMissingRequiredField
	}
	return s.docRepo.GetBySourceID(ctx, sourceID)
}

// FullText returns the complete text of a source document.
func (s *DocumentService) FullText(ctx context.Context, sourceID string) (string, error) {
	doc, err := s.Get(ctx, sourceID)
	if err != nil {
		return "", err
	}
	return doc.Body, nil
}

// DownloadURL returns a presigned URL for the uploaded original of a document.
func (s *DocumentService) DownloadURL(ctx context.Context, sourceID string) (string, error) {
	if s.storage == nil {
		return "", domain.ErrStorageNotAvailable
	}
	doc, err := s.Get(ctx, sourceID)
	if err != nil {
		return "", err
	}
	if doc.StorageKey == "" {
		return "", domain.ErrDocumentNotFound
	}
	return s.storage.GenerateDownloadURL(ctx, doc.StorageKey)
}
