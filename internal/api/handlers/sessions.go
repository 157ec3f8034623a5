package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/citewise/internal/api"
	"github.com/cloo-solutions/citewise/internal/api/middleware"
	"github.com/cloo-solutions/citewise/internal/citation"
	"github.com/cloo-solutions/citewise/internal/service"
)

type HistoryService interface {
	ListSessions(ctx context.Context, input service.ListSessionsInput) (*service.ListSessionsOutput, error)
	LoadSession(ctx context.Context, userID, sessionID string) (*service.StoredSession, error)
	DeleteSession(ctx context.Context, userID, sessionID string) error
	ClearAll(ctx context.Context, userID string) (int64, error)
}

type SessionHandler struct {
	history  HistoryService
	sessions SessionRegistry
}

func NewSessionHandler(history HistoryService, sessions SessionRegistry) *SessionHandler {
	return &SessionHandler{history: history, sessions: sessions}
}

type SessionSummaryResponse struct {
	SessionID     string `json:"session_id"`
	FirstQuestion string `json:"first_question"`
	SessionStart  string `json:"session_start"`
	LastActivity  string `json:"last_activity"`
}

type ListSessionsResponse struct {
	Items   []SessionSummaryResponse `json:"items"`
	Cursor  string                   `json:"cursor,omitempty"`
	HasMore bool                     `json:"has_more"`
}

type TurnResponse struct {
	Index     int              `json:"index"`
	Role      string           `json:"role"`
	Text      string           `json:"text"`
	HTML      string           `json:"html,omitempty"`
	Sources   []SourceResponse `json:"sources,omitempty"`
	ChunkInfo string           `json:"chunk_info,omitempty"`
	Feedback  string           `json:"feedback,omitempty"`
	CreatedAt string           `json:"created_at"`
}

type SessionResponse struct {
	SessionID string         `json:"session_id"`
	Turns     []TurnResponse `json:"turns"`
}

const timeLayout = "2006-01-02T15:04:05Z"

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var limit int
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	out, err := h.history.ListSessions(r.Context(), service.ListSessionsInput{
		UserID: userID,
		Cursor: r.URL.Query().Get("cursor"),
		Limit:  limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]SessionSummaryResponse, 0, len(out.Items))
	for _, s := range out.Items {
		items = append(items, SessionSummaryResponse{
			SessionID:     s.SessionID,
			FirstQuestion: s.FirstQuestion,
			SessionStart:  s.SessionStart.UTC().Format(timeLayout),
			LastActivity:  s.LastActivity.UTC().Format(timeLayout),
		})
	}

	api.Success(w, http.StatusOK, &ListSessionsResponse{Items: items, Cursor: out.Cursor, HasMore: out.HasMore})
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sessionID := chi.URLParam(r, "id")
	if sessionID == "" {
		api.Error(w, http.StatusBadRequest, "session id is required")
		return
	}

	stored, err := h.history.LoadSession(r.Context(), userID, sessionID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	// Latest feedback per turn wins.
	feedback := make(map[int]string, len(stored.Feedback))
	for _, f := range stored.Feedback {
		feedback[f.TurnIndex] = string(f.Type)
	}

	turns := make([]TurnResponse, 0, stored.Session.Len())
	for i, t := range stored.Session.Turns {
		tr := TurnResponse{
			Index:     i,
			Role:      string(t.Role),
			Text:      t.Text,
			ChunkInfo: t.ChunkInfo,
			Feedback:  feedback[i],
			CreatedAt: t.CreatedAt.UTC().Format(timeLayout),
		}
		if len(t.Sources) > 0 {
			tr.Sources = sourcesToResponse(t.Sources)
			tr.HTML = citation.Renderer{ShowSources: true, SourceCount: len(t.Sources)}.Render(t.Text)
		}
		turns = append(turns, tr)
	}

	api.Success(w, http.StatusOK, &SessionResponse{SessionID: stored.Session.ID, Turns: turns})
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sessionID := chi.URLParam(r, "id")
	if sessionID == "" {
		api.Error(w, http.StatusBadRequest, "session id is required")
		return
	}

	if err := h.history.DeleteSession(r.Context(), userID, sessionID); err != nil {
		api.HandleError(w, err)
		return
	}
	h.sessions.Forget(userID, sessionID)

	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) Clear(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	deleted, err := h.history.ClearAll(r.Context(), userID)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	h.sessions.ForgetUser(userID)

	api.Success(w, http.StatusOK, map[string]int64{"deleted": deleted})
}
