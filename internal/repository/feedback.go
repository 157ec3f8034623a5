package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/citewise/internal/domain"
)

// FeedbackRepository stores thumbs up/down on answers. Repeated feedback on
// the same turn is stored as separate rows.
type FeedbackRepository struct {
	pool *pgxpool.Pool
}

func NewFeedbackRepository(pool *pgxpool.Pool) *FeedbackRepository {
	return &FeedbackRepository{pool: pool}
}

func (r *FeedbackRepository) Record(ctx context.Context, f *domain.Feedback) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO chat_feedback (session_id, message_index, user_question, assistant_response, feedback_type, user_id, created_timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		f.SessionID, f.TurnIndex, f.Question, f.Answer, string(f.Type), f.UserID, f.CreatedAt,
	).Scan(&f.ID)
}

// ListBySession returns the feedback given in a session, oldest first.
func (r *FeedbackRepository) ListBySession(ctx context.Context, userID, sessionID string) ([]*domain.Feedback, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, message_index, user_question, assistant_response, feedback_type, user_id, created_timestamp
		 FROM chat_feedback
		 WHERE user_id = $1 AND session_id = $2
		 ORDER BY created_timestamp ASC`,
		userID, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Feedback
	for rows.Next() {
		var f domain.Feedback
		var feedbackType string
		if err := rows.Scan(&f.ID, &f.SessionID, &f.TurnIndex, &f.Question, &f.Answer, &feedbackType, &f.UserID, &f.CreatedAt); err != nil {
			return nil, err
		}
		f.Type = domain.FeedbackType(feedbackType)
		out = append(out, &f)
	}
	return out, rows.Err()
}
