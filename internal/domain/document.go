package domain

import (
	"fmt"
	"strings"
	"time"
)

// Document is a source document that has been ingested into the search index
type Document struct {
	ID            string
	SourceID      string // relative path shown in citations
	EffectiveDate *time.Time
	Title         string
	Body          string
	StorageKey    string // S3 key of the uploaded original, empty when not stored
	ContentType   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DocumentChunk is a chunked segment of a document used for search
type DocumentChunk struct {
	ID            string
	DocumentID    string
	SourceID      string
	EffectiveDate *time.Time
	ChunkIndex    int
	Content       string
	Embedding     []float32
	CreatedAt     time.Time
}

// DateCoverage describes the effective dates available in the index
type DateCoverage struct {
	Earliest *time.Time
	Latest   *time.Time
	Distinct int
}

// NewDocument creates a new Document instance
func NewDocument(id, sourceID string, effectiveDate *time.Time, body string, createdAt time.Time) *Document {
	return &Document{
		ID:            id,
		SourceID:      sourceID,
		EffectiveDate: effectiveDate,
		Title:         titleFromSourceID(sourceID),
		Body:          body,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}
	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}
	if strings.TrimSpace(d.SourceID) == "" {
		return fmt.Errorf("document SourceID is required")
	}
	if strings.TrimSpace(d.Body) == "" {
		return fmt.Errorf("document Body is required")
	}
	return nil
}

func titleFromSourceID(sourceID string) string {
	name := sourceID
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	return name
}
