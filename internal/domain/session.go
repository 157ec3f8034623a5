package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role identifies who produced a turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Greeting is the opening assistant message shown for a fresh session. It is
// never persisted and never sent to the completion service.
const Greeting = "How can I help you?"

// Turn is a single message in a conversation
type Turn struct {
	Role      Role
	Text      string
	Sources   []RetrievedChunk // assistant turns grounded on retrieval
	ChunkInfo string           // e.g. "8 chunks selected dynamically"
	CreatedAt time.Time
}

// Session is the explicit conversation context passed to every chat operation.
// It is owned by the caller: created with NewSession, grown with Append and
// emptied with Reset.
type Session struct {
	ID    string
	Turns []Turn
}

// NewSession creates an empty session with a fresh identifier
func NewSession() *Session {
	return &Session{ID: uuid.NewString()}
}

// RestoreSession rebuilds a session from previously stored turns
func RestoreSession(id string, turns []Turn) *Session {
	return &Session{ID: id, Turns: turns}
}

// Append adds a turn to the end of the session
func (s *Session) Append(turn Turn) error {
	if !isValidRole(turn.Role) {
		return fmt.Errorf("%w: %s", ErrInvalidRole, turn.Role)
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	s.Turns = append(s.Turns, turn)
	return nil
}

// Len returns the number of turns
func (s *Session) Len() int {
	return len(s.Turns)
}

// SessionSummary is a row of the recent-sessions listing
type SessionSummary struct {
	SessionID     string
	FirstQuestion string
	SessionStart  time.Time
	LastActivity  time.Time
}

// TranscriptEntry is one persisted question/answer exchange
type TranscriptEntry struct {
	ID          string
	SessionID   string
	UserID      string
	Question    string
	Answer      string
	SourcesJSON []byte // nil when the turn was not grounded
	ChunkInfo   string
	CreatedAt   time.Time
}

// ValidateTranscriptEntry validates a TranscriptEntry instance
func ValidateTranscriptEntry(e *TranscriptEntry) error {
	if e == nil {
		return fmt.Errorf("%w: transcript entry", ErrMissingRequiredField)
	}
	if e.SessionID == "" {
		return fmt.Errorf("%w: transcript entry SessionID", ErrMissingRequiredField)
	}
	if e.Question == "" {
		return fmt.Errorf("%w: transcript entry Question", ErrMissingRequiredField)
	}
	return nil
}

func isValidRole(r Role) bool {
	switch r {
	case RoleUser, RoleAssistant:
		return true
	}
	return false
}
