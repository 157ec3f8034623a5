package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/citewise/internal/api"
	"github.com/cloo-solutions/citewise/internal/api/middleware"
	"github.com/cloo-solutions/citewise/internal/citation"
	"github.com/cloo-solutions/citewise/internal/domain"
	"github.com/cloo-solutions/citewise/internal/service"
)

type ChatService interface {
	Ask(ctx context.Context, sess *domain.Session, input service.AskInput) (*service.AskOutput, error)
	Analyze(question string) service.Analysis
}

// SessionRegistry hands out live sessions, one turn at a time.
type SessionRegistry interface {
	Create(userID string) *domain.Session
	Acquire(ctx context.Context, userID, sessionID string) (*domain.Session, func(), error)
	Forget(userID, sessionID string)
	ForgetUser(userID string)
}

type ChatHandler struct {
	chat        ChatService
	sessions    SessionRegistry
	showSources bool
}

func NewChatHandler(chat ChatService, sessions SessionRegistry, showSources bool) *ChatHandler {
	return &ChatHandler{chat: chat, sessions: sessions, showSources: showSources}
}

type AskRequest struct {
	Question    string `json:"question"`
	DateFrom    string `json:"date_from"`
	DateTo      string `json:"date_to"`
	ShowSources *bool  `json:"show_sources"`
}

type AnalyzeRequest struct {
	Question string `json:"question"`
}

type AnalyzeResponse struct {
	Score       int    `json:"score"`
	Budget      int    `json:"budget"`
	Explanation string `json:"explanation"`
}

type SourceResponse struct {
	Index         int     `json:"index"`
	Anchor        string  `json:"anchor"`
	SourceID      string  `json:"source_id"`
	EffectiveDate string  `json:"effective_date,omitempty"`
	ChunkIndex    int     `json:"chunk_index"`
	Text          string  `json:"text"`
	Score         float32 `json:"score,omitempty"`
}

type AskResponse struct {
	SessionID    string           `json:"session_id"`
	TurnIndex    int              `json:"turn_index"`
	Answer       string           `json:"answer"`
	HTML         string           `json:"html"`
	DownloadText string           `json:"download_text"`
	Grounded     bool             `json:"grounded"`
	Sources      []SourceResponse `json:"sources"`
	Score        int              `json:"score"`
	Budget       int              `json:"budget"`
	Explanation  string           `json:"explanation"`
	ChunkInfo    string           `json:"chunk_info,omitempty"`
	OutOfRange   []int            `json:"out_of_range,omitempty"`
}

func sourcesToResponse(chunks []domain.RetrievedChunk) []SourceResponse {
	out := make([]SourceResponse, 0, len(chunks))
	for i, c := range chunks {
		out = append(out, SourceResponse{
			Index:         i + 1,
			Anchor:        citation.Anchor(i + 1),
			SourceID:      c.SourceID,
			EffectiveDate: c.EffectiveDateString(),
			ChunkIndex:    c.ChunkIndex,
			Text:          c.Text,
			Score:         c.Score,
		})
	}
	return out
}

func (h *ChatHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sess := h.sessions.Create(userID)
	api.Success(w, http.StatusCreated, map[string]string{
		"session_id": sess.ID,
		"greeting":   domain.Greeting,
	})
}

func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
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

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		api.HandleError(w, domain.ErrEmptyQuestion)
		return
	}

	dates, err := domain.ParseDateRange(req.DateFrom, req.DateTo)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	showSources := h.showSources
	if req.ShowSources != nil {
		showSources = *req.ShowSources
	}

	sess, release, err := h.sessions.Acquire(r.Context(), userID, sessionID)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	defer release()

	out, err := h.chat.Ask(r.Context(), sess, service.AskInput{
		UserID:      userID,
		Question:    req.Question,
		DateRange:   dates,
		ShowSources: showSources,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, &AskResponse{
		SessionID:    out.SessionID,
		TurnIndex:    out.TurnIndex,
		Answer:       out.Answer,
		HTML:         out.HTML,
		DownloadText: citation.PlainText(out.Answer),
		Grounded:     out.Grounded,
		Sources:      sourcesToResponse(out.Sources),
		Score:        out.Score,
		Budget:       out.Budget,
		Explanation:  out.Explanation,
		ChunkInfo:    out.ChunkInfo,
		OutOfRange:   out.OutOfRange,
	})
}

func (h *ChatHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	a := h.chat.Analyze(req.Question)
	api.Success(w, http.StatusOK, &AnalyzeResponse{
		Score:       a.Score,
		Budget:      a.Budget,
		Explanation: a.Explanation,
	})
}
