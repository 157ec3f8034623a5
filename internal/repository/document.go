package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/citewise/internal/domain"
)

// DocumentRepository persists ingested source documents.
type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

// Upsert inserts the document, or replaces the content of the document with
// the same source id. d.ID is set to the id of the stored row.
func (r *DocumentRepository) Upsert(ctx context.Context, d *domain.Document) error {
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	return r.db.QueryRow(ctx,
		`INSERT INTO documents (id, source_id, effective_date, title, body, storage_key, content_type, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (source_id) DO UPDATE SET
		     effective_date = EXCLUDED.effective_date,
		     title = EXCLUDED.title,
		     body = EXCLUDED.body,
		     storage_key = COALESCE(EXCLUDED.storage_key, documents.storage_key),
		     content_type = COALESCE(EXCLUDED.content_type, documents.content_type),
		     updated_at = EXCLUDED.updated_at
		 RETURNING id, created_at`,
		d.ID, d.SourceID, d.EffectiveDate, d.Title, d.Body,
		nullableString(d.StorageKey), nullableString(d.ContentType), d.CreatedAt, d.UpdatedAt,
	).Scan(&d.ID, &d.CreatedAt)
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, source_id, effective_date, title, body, storage_key, content_type, created_at, updated_at
		 FROM documents WHERE id = $1`,
		id,
	)
	return scanDocument(row)
}

func (r *DocumentRepository) GetBySourceID(ctx context.Context, sourceID string) (*domain.Document, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, source_id, effective_date, title, body, storage_key, content_type, created_at, updated_at
		 FROM documents WHERE source_id = $1`,
		sourceID,
	)
	return scanDocument(row)
}

// SetStorage records where the uploaded original of a document lives.
func (r *DocumentRepository) SetStorage(ctx context.Context, id, key, contentType string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents SET storage_key = $1, content_type = $2, updated_at = $3 WHERE id = $4`,
		key, nullableString(contentType), time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// DateCoverage reports the earliest and latest effective dates of indexed
// chunks and how many distinct dates there are.
func (r *DocumentRepository) DateCoverage(ctx context.Context) (*domain.DateCoverage, error) {
	var cov domain.DateCoverage
	err := r.db.QueryRow(ctx,
		`SELECT MIN(effective_date), MAX(effective_date), COUNT(DISTINCT effective_date)
		 FROM document_chunks
		 WHERE effective_date IS NOT NULL`,
	).Scan(&cov.Earliest, &cov.Latest, &cov.Distinct)
	if err != nil {
		return nil, err
	}
	return &cov, nil
}

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var d domain.Document
	var storageKey, contentType *string
	err := row.Scan(&d.ID, &d.SourceID, &d.EffectiveDate, &d.Title, &d.Body, &storageKey, &contentType, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	d.StorageKey = stringValue(storageKey)
	d.ContentType = stringValue(contentType)
	return &d, nil
}
