package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cloo-solutions/citewise/internal/domain"
	"github.com/cloo-solutions/citewise/internal/telemetry"
)

const defaultActiveSessions = 1024

// SessionLoader rebuilds a session from the transcript store.
type SessionLoader interface {
	LoadSession(ctx context.Context, userID, sessionID string) (*StoredSession, error)
}

type activeSession struct {
	mu     sync.Mutex
	loaded bool
	sess   *domain.Session
}

// SessionManager keeps recently used sessions in memory and serialises turns
// within a session. Evicted sessions are reloaded from the transcript store
// on their next use.
type SessionManager struct {
	loader SessionLoader

	mu     sync.Mutex
	active *lru.Cache[string, *activeSession]
}

func NewSessionManager(loader SessionLoader, size int) (*SessionManager, error) {
	if size <= 0 {
		size = defaultActiveSessions
	}
	cache, err := lru.New[string, *activeSession](size)
	if err != nil {
		return nil, err
	}
	return &SessionManager{loader: loader, active: cache}, nil
}

func sessionKey(userID, sessionID string) string {
	return userID + "\x00" + sessionID
}

// Create starts a new empty session for the user.
func (m *SessionManager) Create(userID string) *domain.Session {
	sess := domain.NewSession()
	m.mu.Lock()
	m.active.Add(sessionKey(userID, sess.ID), &activeSession{loaded: true, sess: sess})
	m.mu.Unlock()
	return sess
}

// Acquire returns the session locked for one turn. The caller must invoke
// release once the turn is over. An id with no stored turns yields an empty
// session under that id.
func (m *SessionManager) Acquire(ctx context.Context, userID, sessionID string) (*domain.Session, func(), error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, nil, domain.ErrSessionNotFound
	}

	key := sessionKey(userID, sessionID)
	m.mu.Lock()
	entry, ok := m.active.Get(key)
	if !ok {
		entry = &activeSession{}
		m.active.Add(key, entry)
	}
	m.mu.Unlock()

	entry.mu.Lock()
	if !entry.loaded {
		stored, err := m.loader.LoadSession(ctx, userID, sessionID)
		switch {
		case errors.Is(err, domain.ErrSessionNotFound):
			entry.sess = domain.RestoreSession(sessionID, nil)
		case err != nil:
			entry.mu.Unlock()
			m.Forget(userID, sessionID)
			return nil, nil, domain.ErrStoreUnavailable.WithCause(err)
		default:
			entry.sess = stored.Session
			telemetry.AddBreadcrumb(ctx, "session", "restored from store")
		}
		entry.loaded = true
	}
	return entry.sess, entry.mu.Unlock, nil
}

// Forget drops a session from memory, e.g. after it was deleted.
func (m *SessionManager) Forget(userID, sessionID string) {
	m.mu.Lock()
	m.active.Remove(sessionKey(userID, sessionID))
	m.mu.Unlock()
}

// ForgetUser drops every in-memory session of the user.
func (m *SessionManager) ForgetUser(userID string) {
	prefix := userID + "\x00"
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range m.active.Keys() {
		if strings.HasPrefix(key, prefix) {
			m.active.Remove(key)
		}
	}
}
