package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/cloo-solutions/citewise/internal/domain"
)

const defaultSearchLimit = 20

// SearchRepository runs ranked chunk searches, optionally restricted to an
// effective-date range. Chunks without an effective date never match a
// date-filtered search.
type SearchRepository struct {
	pool *pgxpool.Pool
}

func NewSearchRepository(pool *pgxpool.Pool) *SearchRepository {
	return &SearchRepository{pool: pool}
}

// SearchChunksSemantic orders chunks by cosine distance to the embedding.
func (r *SearchRepository) SearchChunksSemantic(ctx context.Context, embedding []float32, dates domain.DateRange, limit int) ([]domain.RetrievedChunk, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	rows, err := r.pool.Query(ctx,
		`SELECT content, source_id, effective_date, chunk_index,
		        1.0 / (1.0 + (embedding <=> $1)) AS score
		 FROM document_chunks
		 WHERE embedding IS NOT NULL
		   AND ($2::date IS NULL OR effective_date >= $2::date)
		   AND ($3::date IS NULL OR effective_date <= $3::date)
		 ORDER BY embedding <=> $1, source_id, chunk_index
		 LIMIT $4`,
		pgvector.NewVector(embedding), dates.From, dates.To, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRetrievedChunks(rows)
}

// SearchChunksLexical ranks chunks with Postgres full-text search. The query
// is parsed with websearch syntax, so "a or b" matches either term.
func (r *SearchRepository) SearchChunksLexical(ctx context.Context, query string, dates domain.DateRange, limit int) ([]domain.RetrievedChunk, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	rows, err := r.pool.Query(ctx,
		`SELECT content, source_id, effective_date, chunk_index,
		        ts_rank_cd(search_vector, q) AS score
		 FROM document_chunks, websearch_to_tsquery('english', $1) AS q
		 WHERE search_vector @@ q
		   AND ($2::date IS NULL OR effective_date >= $2::date)
		   AND ($3::date IS NULL OR effective_date <= $3::date)
		 ORDER BY score DESC, source_id, chunk_index
		 LIMIT $4`,
		query, dates.From, dates.To, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRetrievedChunks(rows)
}

func scanRetrievedChunks(rows pgx.Rows) ([]domain.RetrievedChunk, error) {
	results := make([]domain.RetrievedChunk, 0)
	for rows.Next() {
		var c domain.RetrievedChunk
		var score float64
		if err := rows.Scan(&c.Text, &c.SourceID, &c.EffectiveDate, &c.ChunkIndex, &score); err != nil {
			return nil, err
		}
		c.Score = float32(score)
		results = append(results, c)
	}
	return results, rows.Err()
}
