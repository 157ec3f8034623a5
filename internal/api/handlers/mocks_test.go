package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"

	"github.com/cloo-solutions/citewise/internal/api/middleware"
	"github.com/cloo-solutions/citewise/internal/domain"
	"github.com/cloo-solutions/citewise/internal/service"
)

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) Ask(ctx context.Context, sess *domain.Session, input service.AskInput) (*service.AskOutput, error) {
	args := m.Called(ctx, sess, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AskOutput), args.Error(1)
}

func (m *MockChatService) Analyze(question string) service.Analysis {
	args := m.Called(question)
	return args.Get(0).(service.Analysis)
}

type MockSessionRegistry struct {
	mock.Mock
}

func (m *MockSessionRegistry) Create(userID string) *domain.Session {
	args := m.Called(userID)
	return args.Get(0).(*domain.Session)
}

func (m *MockSessionRegistry) Acquire(ctx context.Context, userID, sessionID string) (*domain.Session, func(), error) {
	args := m.Called(ctx, userID, sessionID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.Session), args.Get(1).(func()), args.Error(2)
}

func (m *MockSessionRegistry) Forget(userID, sessionID string) {
	m.Called(userID, sessionID)
}

func (m *MockSessionRegistry) ForgetUser(userID string) {
	m.Called(userID)
}

type MockHistoryService struct {
	mock.Mock
}

func (m *MockHistoryService) ListSessions(ctx context.Context, input service.ListSessionsInput) (*service.ListSessionsOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListSessionsOutput), args.Error(1)
}

func (m *MockHistoryService) LoadSession(ctx context.Context, userID, sessionID string) (*service.StoredSession, error) {
	args := m.Called(ctx, userID, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.StoredSession), args.Error(1)
}

func (m *MockHistoryService) DeleteSession(ctx context.Context, userID, sessionID string) error {
	args := m.Called(ctx, userID, sessionID)
	return args.Error(0)
}

func (m *MockHistoryService) ClearAll(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

type MockFeedbackService struct {
	mock.Mock
}

func (m *MockFeedbackService) Submit(ctx context.Context, input service.SubmitFeedbackInput) (*domain.Feedback, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Feedback), args.Error(1)
}

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) DateCoverage(ctx context.Context) (*domain.DateCoverage, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DateCoverage), args.Error(1)
}

func (m *MockDocumentService) FullText(ctx context.Context, sourceID string) (string, error) {
	args := m.Called(ctx, sourceID)
	return args.String(0), args.Error(1)
}

func (m *MockDocumentService) DownloadURL(ctx context.Context, sourceID string) (string, error) {
	args := m.Called(ctx, sourceID)
	return args.String(0), args.Error(1)
}

type MockIngestService struct {
	mock.Mock
}

func (m *MockIngestService) Ingest(ctx context.Context, input service.IngestInput) (*service.IngestOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IngestOutput), args.Error(1)
}

func requestWithUser(method, url string, body []byte) *http.Request {
	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, "alice")
	return req.WithContext(ctx)
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func noopRelease() {}
