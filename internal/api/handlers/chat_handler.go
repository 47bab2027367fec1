package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"campusassist/internal/apperr"
	appMiddleware "campusassist/internal/api/middlewares"
	"campusassist/internal/core"
	"campusassist/internal/core/answer"
	"campusassist/internal/models"
)

type ChatHandler struct {
	dbclient core.DbClient
	pipeline *answer.Pipeline
}

func NewChatHandler(dbclient core.DbClient, pipeline *answer.Pipeline) *ChatHandler {
	return &ChatHandler{dbclient: dbclient, pipeline: pipeline}
}

type askRequest struct {
	Question  string `json:"question"`
	Language  string `json:"language"`
	Mode      string `json:"mode"`
	SessionID string `json:"session_id"`
}

// Ask runs the answer pipeline for one question.
func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	userID, ok := appMiddleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	resp, err := h.pipeline.Answer(r.Context(), answer.Request{
		Question:  req.Question,
		Language:  req.Language,
		Mode:      req.Mode,
		SessionID: req.SessionID,
		UserID:    userID,
	})
	if err != nil {
		if errors.Is(err, apperr.ErrValidation) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		// Generation failures and everything after them surface as a
		// generic failure; the taxonomy stays in the logs.
		log.Printf("answer failed for user %s: %v", userID, err)
		http.Error(w, "could not answer the question", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ChatHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := appMiddleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	limit, offset := pageParams(r)
	sessions, err := h.dbclient.ListSessions(r.Context(), userID, limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if sessions == nil {
		sessions = []models.ChatSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *ChatHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := appMiddleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	sessionID := chi.URLParam(r, "session_id")
	session, err := h.dbclient.GetSession(r.Context(), userID, sessionID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// DeleteSession soft-deletes: the session disappears from listings but
// its messages stay stored.
func (h *ChatHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := appMiddleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	sessionID := chi.URLParam(r, "session_id")
	if err := h.dbclient.DeactivateSession(r.Context(), userID, sessionID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
