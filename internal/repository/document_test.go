//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/citewise/internal/domain"
)

func TestDocumentRepository_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	repo := NewDocumentRepository(pool)

	doc := createDocument(ctx, t, repo, "policies/retention.pdf", date("2024-01-01"), "Records are retained for seven years.")

	byID, err := repo.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "policies/retention.pdf", byID.SourceID)
	assert.Equal(t, "Records are retained for seven years.", byID.Body)
	require.NotNil(t, byID.EffectiveDate)
	assert.Equal(t, "2024-01-01", byID.EffectiveDate.Format(domain.EffectiveDateLayout))
	assert.Empty(t, byID.StorageKey)

	bySource, err := repo.GetBySourceID(ctx, "policies/retention.pdf")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, bySource.ID)
}

func TestDocumentRepository_UpsertReplacesBySourceID(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	repo := NewDocumentRepository(pool)

	first := createDocument(ctx, t, repo, "handbook.md", nil, "v1")
	require.NoError(t, repo.SetStorage(ctx, first.ID, "documents/handbook.md", "text/markdown"))

	second := domain.NewDocument(uuid.NewString(), "handbook.md", date("2024-06-01"), "v2", first.CreatedAt)
	require.NoError(t, repo.Upsert(ctx, second))

	assert.Equal(t, first.ID, second.ID, "upsert keeps the original row id")

	got, err := repo.GetBySourceID(ctx, "handbook.md")
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Body)
	assert.Equal(t, "documents/handbook.md", got.StorageKey, "storage key survives a text-only re-ingest")
	assert.Equal(t, "text/markdown", got.ContentType)
}

func TestDocumentRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	repo := NewDocumentRepository(pool)

	_, err := repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)

	_, err = repo.GetBySourceID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)

	err = repo.SetStorage(ctx, uuid.NewString(), "k", "")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestDocumentRepository_DateCoverage(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	docs := NewDocumentRepository(pool)
	chunks := NewChunkRepository(pool)

	empty, err := docs.DateCoverage(ctx)
	require.NoError(t, err)
	assert.Nil(t, empty.Earliest)
	assert.Nil(t, empty.Latest)
	assert.Equal(t, 0, empty.Distinct)

	for _, d := range []struct {
		source string
		date   string
	}{
		{"a.txt", "2023-01-01"},
		{"b.txt", "2024-06-30"},
		{"c.txt", "2024-06-30"},
	} {
		doc := createDocument(ctx, t, docs, d.source, date(d.date), "body")
		require.NoError(t, chunks.ReplaceChunks(ctx, doc.ID, chunksFor(doc, "body")))
	}
	undated := createDocument(ctx, t, docs, "undated.txt", nil, "body")
	require.NoError(t, chunks.ReplaceChunks(ctx, undated.ID, chunksFor(undated, "body")))

	cov, err := docs.DateCoverage(ctx)
	require.NoError(t, err)
	require.NotNil(t, cov.Earliest)
	require.NotNil(t, cov.Latest)
	assert.Equal(t, "2023-01-01", cov.Earliest.Format(domain.EffectiveDateLayout))
	assert.Equal(t, "2024-06-30", cov.Latest.Format(domain.EffectiveDateLayout))
	assert.Equal(t, 2, cov.Distinct)
}
