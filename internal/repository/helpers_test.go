//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/citewise/internal/domain"
	"github.com/cloo-solutions/citewise/internal/testutil"
)

const embeddingDims = 1536

func setupPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	pc := testutil.NewPostgresContainer(ctx, t)
	t.Cleanup(func() { _ = pc.Terminate(ctx) })

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	t.Cleanup(pool.Close)
	return pool
}

func date(s string) *time.Time {
	d, err := time.Parse(domain.EffectiveDateLayout, s)
	if err != nil {
		panic(err)
	}
	return &d
}

// unitVector returns an embedding pointing along one axis.
func unitVector(axis int) []float32 {
	v := make([]float32, embeddingDims)
	v[axis] = 1
	return v
}

func createDocument(ctx context.Context, t *testing.T, repo *DocumentRepository, sourceID string, effective *time.Time, body string) *domain.Document {
	t.Helper()
	doc := domain.NewDocument(uuid.NewString(), sourceID, effective, body, time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, repo.Upsert(ctx, doc))
	return doc
}

func chunksFor(doc *domain.Document, contents ...string) []domain.DocumentChunk {
	out := make([]domain.DocumentChunk, len(contents))
	for i, c := range contents {
		out[i] = domain.DocumentChunk{
			DocumentID:    doc.ID,
			SourceID:      doc.SourceID,
			EffectiveDate: doc.EffectiveDate,
			ChunkIndex:    i,
			Content:       c,
		}
	}
	return out
}
