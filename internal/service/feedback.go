package service

import (
	"context"
	"strings"
	"time"

	"github.com/cloo-solutions/citewise/internal/domain"
	"github.com/cloo-solutions/citewise/internal/telemetry"
)

// FeedbackService records thumbs up/down on answers
type FeedbackService struct {
	repo FeedbackRepositoryInterface
}

// NewFeedbackService creates a new FeedbackService instance
func NewFeedbackService(repo FeedbackRepositoryInterface) *FeedbackService {
	return &FeedbackService{repo: repo}
}

type SubmitFeedbackInput struct {
	UserID    string
	SessionID string
	TurnIndex int
	Question  string
	Answer    string
	Feedback  string
}

// Submit stores one feedback record. Repeated submissions for the same turn
// are all kept.
func (s *FeedbackService) Submit(ctx context.Context, input SubmitFeedbackInput) (*domain.Feedback, error) {
	ctx, span := telemetry.StartSpan(ctx, "FeedbackService.Submit", telemetry.SpanAttributes{
		UserID:    input.UserID,
		SessionID: input.SessionID,
		Operation: "feedback",
	})
	defer span.End()

	feedbackType, err := domain.ParseFeedbackType(input.Feedback)
	if err != nil {
		return nil, err
	}

	f := &domain.Feedback{
		SessionID: strings.TrimSpace(input.SessionID),
		TurnIndex: input.TurnIndex,
		Question:  input.Question,
		Answer:    input.Answer,
		Type:      feedbackType,
		UserID:    input.UserID,
		CreatedAt: time.Now().UTC(),
	}
	if err := domain.ValidateFeedback(f); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid feedback", err)
	}

	if err := s.repo.Record(ctx, f); err != nil {
		span.SetError(err)
		return nil, domain.ErrStoreUnavailable.WithCause(err)
	}
	return f, nil
}
