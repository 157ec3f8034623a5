package service

import (
	"context"
	"testing"
	"time"

	"github.com/cloo-solutions/citewise/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDocumentService_DateCoverage(t *testing.T) {
	docs := new(MockDocumentRepo)
	s := NewDocumentService(docs, nil)
	earliest := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	latest := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	docs.On("DateCoverage", mock.Anything).Return(&domain.DateCoverage{Earliest: &earliest, Latest: &latest, Distinct: 4}, nil)

	cov, err := s.DateCoverage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, cov.Distinct)
	assert.Equal(t, latest, *cov.Latest)
}

func TestDocumentService_FullText(t *testing.T) {
	docs := new(MockDocumentRepo)
	s := NewDocumentService(docs, nil)

	docs.On("GetBySourceID", mock.Anything, "hr/leave.pdf").Return(&domain.Document{SourceID: "hr/leave.pdf", Body: "full body"}, nil)
	docs.On("GetBySourceID", mock.Anything, "missing.pdf").Return(nil, domain.ErrDocumentNotFound)

	text, err := s.FullText(context.Background(), "hr/leave.pdf")
	require.NoError(t, err)
	assert.Equal(t, "full body", text)

	_, err = s.FullText(context.Background(), "missing.pdf")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)

	_, err = s.FullText(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrMissingRequiredField)
}

func TestDocumentService_DownloadURL(t *testing.T) {
	docs := new(MockDocumentRepo)
	storage := new(MockStorage)
	s := NewDocumentService(docs, storage)

	docs.On("GetBySourceID", mock.Anything, "stored.pdf").Return(&domain.Document{StorageKey: "documents/d/stored.pdf"}, nil)
	docs.On("GetBySourceID", mock.Anything, "text-only.txt").Return(&domain.Document{}, nil)
	storage.On("GenerateDownloadURL", mock.Anything, "documents/d/stored.pdf").Return("https://s3/presigned", nil)

	url, err := s.DownloadURL(context.Background(), "stored.pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://s3/presigned", url)

	_, err = s.DownloadURL(context.Background(), "text-only.txt")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestDocumentService_DownloadURL_NoStorage(t *testing.T) {
	s := NewDocumentService(new(MockDocumentRepo), nil)

	_, err := s.DownloadURL(context.Background(), "stored.pdf")
	assert.ErrorIs(t, err, domain.ErrStorageNotAvailable)
}
