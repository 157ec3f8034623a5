package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/citewise/internal/api"
	"github.com/cloo-solutions/citewise/internal/api/middleware"
	"github.com/cloo-solutions/citewise/internal/domain"
	"github.com/cloo-solutions/citewise/internal/service"
)

type FeedbackService interface {
	Submit(ctx context.Context, input service.SubmitFeedbackInput) (*domain.Feedback, error)
}

type FeedbackHandler struct {
	svc FeedbackService
}

func NewFeedbackHandler(svc FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{svc: svc}
}

type FeedbackRequest struct {
	TurnIndex *int   `json:"turn_index"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Feedback  string `json:"feedback"`
}

type FeedbackResponse struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	TurnIndex int    `json:"turn_index"`
	Feedback  string `json:"feedback"`
	CreatedAt string `json:"created_at"`
}

func (h *FeedbackHandler) Submit(w http.ResponseWriter, r *http.Request) {
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

	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TurnIndex == nil {
		api.Error(w, http.StatusBadRequest, "turn_index is required")
		return
	}

	fb, err := h.svc.Submit(r.Context(), service.SubmitFeedbackInput{
		UserID:    userID,
		SessionID: sessionID,
		TurnIndex: *req.TurnIndex,
		Question:  req.Question,
		Answer:    req.Answer,
		Feedback:  req.Feedback,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, &FeedbackResponse{
		ID:        fb.ID,
		SessionID: fb.SessionID,
		TurnIndex: fb.TurnIndex,
		Feedback:  string(fb.Type),
		CreatedAt: fb.CreatedAt.UTC().Format(timeLayout),
	})
}
