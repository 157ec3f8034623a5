package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/cloo-solutions/citewise/internal/domain"
	"github.com/cloo-solutions/citewise/internal/pagination"
	"github.com/cloo-solutions/citewise/internal/telemetry"
)

const defaultSessionLimit = 10

// HistoryService reads and clears stored chat sessions
type HistoryService struct {
	transcripts TranscriptRepositoryInterface
	feedback    FeedbackRepositoryInterface
}

// NewHistoryService creates a new HistoryService. feedback may be nil.
func NewHistoryService(transcripts TranscriptRepositoryInterface, feedback FeedbackRepositoryInterface) *HistoryService {
	return &HistoryService{transcripts: transcripts, feedback: feedback}
}

type ListSessionsInput struct {
	UserID string
	Cursor string
	Limit  int
}

type ListSessionsOutput struct {
	Items   []*domain.SessionSummary
	Cursor  string
	HasMore bool
}

// ListSessions returns the user's most recently active sessions.
func (s *HistoryService) ListSessions(ctx context.Context, input ListSessionsInput) (*ListSessionsOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "HistoryService.ListSessions", telemetry.SpanAttributes{
		UserID:    input.UserID,
		Operation: "list_sessions",
	})
	defer span.End()

	var cursor *pagination.Cursor
	if input.Cursor != "" {
		decoded, err := pagination.DecodeCursor(input.Cursor)
		if err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
		}
		cursor = decoded
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultSessionLimit
	}

	page, err := s.transcripts.ListRecentSessions(ctx, input.UserID, cursor, limit)
	if err != nil {
		return nil, err
	}
	return &ListSessionsOutput{Items: page.Items, Cursor: page.NextCursor, HasMore: page.HasMore}, nil
}

// StoredSession is a session rebuilt from the transcript store
type StoredSession struct {
	Session  *domain.Session
	Feedback []*domain.Feedback
}

// LoadSession rebuilds a session so that it can be resumed.
func (s *HistoryService) LoadSession(ctx context.Context, userID, sessionID string) (*StoredSession, error) {
	ctx, span := telemetry.StartSpan(ctx, "HistoryService.LoadSession", telemetry.SpanAttributes{
		UserID:    userID,
		SessionID: sessionID,
		Operation: "load_session",
	})
	defer span.End()

	entries, err := s.transcripts.LoadSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	turns := make([]domain.Turn, 0, len(entries)*2)
	for _, e := range entries {
		turns = append(turns,
			domain.Turn{Role: domain.RoleUser, Text: e.Question, CreatedAt: e.CreatedAt},
			domain.Turn{
				Role:      domain.RoleAssistant,
				Text:      e.Answer,
				Sources:   decodeSources(e.SourcesJSON, e.ID),
				ChunkInfo: e.ChunkInfo,
				CreatedAt: e.CreatedAt,
			},
		)
	}

	out := &StoredSession{Session: domain.RestoreSession(sessionID, turns)}
	if s.feedback != nil {
		fb, err := s.feedback.ListBySession(ctx, userID, sessionID)
		if err != nil {
			return nil, err
		}
		out.Feedback = fb
	}
	return out, nil
}

// DeleteSession removes one session of the user.
func (s *HistoryService) DeleteSession(ctx context.Context, userID, sessionID string) error {
	ctx, span := telemetry.StartSpan(ctx, "HistoryService.DeleteSession", telemetry.SpanAttributes{
		UserID:    userID,
		SessionID: sessionID,
		Operation: "delete_session",
	})
	defer span.End()

	return s.transcripts.DeleteSession(ctx, userID, sessionID)
}

// ClearAll removes the user's whole history.
func (s *HistoryService) ClearAll(ctx context.Context, userID string) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "HistoryService.ClearAll", telemetry.SpanAttributes{
		UserID:    userID,
		Operation: "clear_history",
	})
	defer span.End()

	return s.transcripts.DeleteAll(ctx, userID)
}

// storedSource is the persisted form of a source list entry.
type storedSource struct {
	Chunk            string `json:"chunk"`
	RelativePath     string `json:"relative_path"`
	EffCodeFinalDate string `json:"eff_code_final_date,omitempty"`
	ChunkOrder       int    `json:"chunk_order"`
}

func encodeSources(chunks []domain.RetrievedChunk) ([]byte, error) {
	stored := make([]storedSource, 0, len(chunks))
	for _, c := range chunks {
		stored = append(stored, storedSource{
			Chunk:            c.Text,
			RelativePath:     c.SourceID,
			EffCodeFinalDate: c.EffectiveDateString(),
			ChunkOrder:       c.ChunkIndex,
		})
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sources: %w", err)
	}
	return data, nil
}

// decodeSources parses persisted sources. Malformed data is treated as
// absent; a bad date only drops the date.
func decodeSources(data []byte, entryID string) []domain.RetrievedChunk {
	if len(data) == 0 {
		return nil
	}
	var stored []storedSource
	if err := json.Unmarshal(data, &stored); err != nil {
		log.Printf("history: ignoring malformed sources on entry %s: %v", entryID, err)
		return nil
	}
	chunks := make([]domain.RetrievedChunk, 0, len(stored))
	for _, src := range stored {
		c := domain.RetrievedChunk{Text: src.Chunk, SourceID: src.RelativePath, ChunkIndex: src.ChunkOrder}
		if src.EffCodeFinalDate != "" {
			if t, err := time.Parse(domain.EffectiveDateLayout, src.EffCodeFinalDate); err == nil {
				c.EffectiveDate = &t
			}
		}
		chunks = append(chunks, c)
	}
	return chunks
}
