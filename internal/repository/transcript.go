package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/citewise/internal/domain"
	"github.com/cloo-solutions/citewise/internal/pagination"
	"github.com/cloo-solutions/citewise/internal/service"
)

const defaultSessionListLimit = 10

// TranscriptRepository is the append-only chat history, keyed by session id.
type TranscriptRepository struct {
	db dbtx
}

func NewTranscriptRepository(pool *pgxpool.Pool) *TranscriptRepository {
	return &TranscriptRepository{db: pool}
}

func (r *TranscriptRepository) Append(ctx context.Context, e *domain.TranscriptEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	var sources *string
	if e.SourcesJSON != nil {
		s := string(e.SourcesJSON)
		sources = &s
	}
	return r.db.QueryRow(ctx,
		`INSERT INTO chat_history (session_id, user_id, user_question, assistant_response, sources_used, chunk_info, created_timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		e.SessionID, e.UserID, e.Question, e.Answer, sources, nullableString(e.ChunkInfo), e.CreatedAt,
	).Scan(&e.ID)
}

// ListRecentSessions returns the user's sessions ordered by last activity,
// newest first, with the first question asked in each.
func (r *TranscriptRepository) ListRecentSessions(ctx context.Context, userID string, cursor *pagination.Cursor, limit int) (*service.SessionPage, error) {
	if limit <= 0 {
		limit = defaultSessionListLimit
	}

	var after *time.Time
	var afterID string
	if cursor != nil {
		after = &cursor.Timestamp
		afterID = cursor.LastID
	}

	rows, err := r.db.Query(ctx,
		`SELECT session_id, first_question, session_start, last_activity
		 FROM (
		     SELECT session_id,
		            (ARRAY_AGG(user_question ORDER BY created_timestamp ASC))[1] AS first_question,
		            MIN(created_timestamp) AS session_start,
		            MAX(created_timestamp) AS last_activity
		     FROM chat_history
		     WHERE user_id = $1
		     GROUP BY session_id
		 ) s
		 WHERE $2::timestamptz IS NULL OR (last_activity, session_id) < ($2::timestamptz, $3::text)
		 ORDER BY last_activity DESC, session_id DESC
		 LIMIT $4`,
		userID, after, afterID, limit+1,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.SessionSummary
	for rows.Next() {
		var s domain.SessionSummary
		if err := rows.Scan(&s.SessionID, &s.FirstQuestion, &s.SessionStart, &s.LastActivity); err != nil {
			return nil, err
		}
		items = append(items, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(last.SessionID, last.LastActivity)
	}

	return &service.SessionPage{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// LoadSession returns every exchange of a session in chronological order.
func (r *TranscriptRepository) LoadSession(ctx context.Context, userID, sessionID string) ([]*domain.TranscriptEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, session_id, user_id, user_question, assistant_response, sources_used, chunk_info, created_timestamp
		 FROM chat_history
		 WHERE user_id = $1 AND session_id = $2
		 ORDER BY created_timestamp ASC, id ASC`,
		userID, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.TranscriptEntry
	for rows.Next() {
		var e domain.TranscriptEntry
		var sources, chunkInfo *string
		if err := rows.Scan(&e.ID, &e.SessionID, &e.UserID, &e.Question, &e.Answer, &sources, &chunkInfo, &e.CreatedAt); err != nil {
			return nil, err
		}
		if sources != nil {
			e.SourcesJSON = []byte(*sources)
		}
		e.ChunkInfo = stringValue(chunkInfo)
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, domain.ErrSessionNotFound
	}
	return entries, nil
}

func (r *TranscriptRepository) DeleteSession(ctx context.Context, userID, sessionID string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM chat_history WHERE user_id = $1 AND session_id = $2`,
		userID, sessionID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// DeleteAll removes the user's whole history and returns the number of
// exchanges deleted.
func (r *TranscriptRepository) DeleteAll(ctx context.Context, userID string) (int64, error) {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM chat_history WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}
