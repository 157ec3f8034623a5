package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/cloo-solutions/citewise/internal/domain"
)

// ChunkRepository handles persistence of document chunks and their embeddings.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx pgx.Tx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// ReplaceChunks deletes existing chunks for a document and inserts new ones.
// Chunks without an embedding are stored with a NULL vector and are only
// reachable through lexical search until the embedding worker fills them in.
func (r *ChunkRepository) ReplaceChunks(ctx context.Context, documentID string, chunks []domain.DocumentChunk) error {
	_, err := r.db.Exec(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return err
	}

	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		var embedding *pgvector.Vector
		if len(c.Embedding) > 0 {
			v := pgvector.NewVector(c.Embedding)
			embedding = &v
		}
		_, err := r.db.Exec(ctx,
			`INSERT INTO document_chunks
				(id, document_id, source_id, effective_date, chunk_index, content, embedding, created_at)
			 VALUES
				(COALESCE($1::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7, $8)`,
			nullableString(c.ID),
			documentID,
			c.SourceID,
			c.EffectiveDate,
			c.ChunkIndex,
			c.Content,
			embedding,
			createdAt,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// ListByDocument returns the chunks of a document in order.
func (r *ChunkRepository) ListByDocument(ctx context.Context, documentID string) ([]domain.DocumentChunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, source_id, effective_date, chunk_index, content, embedding, created_at
		 FROM document_chunks
		 WHERE document_id = $1
		 ORDER BY chunk_index ASC`,
		documentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []domain.DocumentChunk
	for rows.Next() {
		var c domain.DocumentChunk
		var embedding *pgvector.Vector
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.SourceID, &c.EffectiveDate, &c.ChunkIndex, &c.Content, &embedding, &c.CreatedAt); err != nil {
			return nil, err
		}
		if embedding != nil {
			c.Embedding = embedding.Slice()
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func (r *ChunkRepository) UpdateEmbedding(ctx context.Context, chunkID string, embedding []float32) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE document_chunks SET embedding = $1 WHERE id = $2`,
		pgvector.NewVector(embedding), chunkID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}
