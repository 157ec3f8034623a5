package domain

import (
	"fmt"
	"strings"
	"time"
)

// FeedbackType is a thumbs up or thumbs down on an answer
type FeedbackType string

const (
	FeedbackPositive FeedbackType = "positive"
	FeedbackNegative FeedbackType = "negative"
)

// ParseFeedbackType normalises user input into a FeedbackType
func ParseFeedbackType(s string) (FeedbackType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "positive", "up", "+":
		return FeedbackPositive, nil
	case "negative", "down", "-":
		return FeedbackNegative, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFeedback, s)
}

// Feedback records a user's judgement of one assistant turn. Duplicate
// feedback for the same turn is stored as-is.
type Feedback struct {
	ID        string
	SessionID string
	TurnIndex int
	Question  string
	Answer    string
	Type      FeedbackType
	UserID    string
	CreatedAt time.Time
}

// ValidateFeedback validates a Feedback instance
func ValidateFeedback(f *Feedback) error {
	if f == nil {
		return fmt.Errorf("feedback cannot be nil")
	}
	if f.SessionID == "" {
		return fmt.Errorf("feedback SessionID is required")
	}
	if f.TurnIndex < 0 {
		return fmt.Errorf("feedback TurnIndex cannot be negative")
	}
	if f.Type != FeedbackPositive && f.Type != FeedbackNegative {
		return ErrInvalidFeedback
	}
	return nil
}
