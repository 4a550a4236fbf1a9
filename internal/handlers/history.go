package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"kitab/internal/chat"
	"kitab/internal/contextutil"
)

// HistoryHandler serves chat history reads and deletion.
type HistoryHandler struct {
	chat *chat.Manager
}

// NewHistoryHandler creates a HistoryHandler.
func NewHistoryHandler(manager *chat.Manager) *HistoryHandler {
	return &HistoryHandler{chat: manager}
}

// HistoryResponse is the body for GET /chat/history/{sessionID}.
type HistoryResponse struct {
	SessionID string         `json:"session_id"`
	History   []chat.Message `json:"history"`
}

// Get handles GET /chat/history/{sessionID}. An optional limit query
// parameter caps the number of returned messages.
func (h *HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	logger := contextutil.LoggerFromContext(r.Context())

	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		writeError(w, r, http.StatusBadRequest, "session ID is required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	history, err := h.chat.History(r.Context(), sessionID, limit)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to load history", "session_id", sessionID, "error", err)
		writeError(w, r, http.StatusInternalServerError, "failed to load history")
		return
	}
	if history == nil {
		history = []chat.Message{}
	}

	writeJSON(w, r, http.StatusOK, HistoryResponse{SessionID: sessionID, History: history})
}

// Delete handles DELETE /chat/history/{sessionID}.
func (h *HistoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	logger := contextutil.LoggerFromContext(r.Context())

	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		writeError(w, r, http.StatusBadRequest, "session ID is required")
		return
	}

	if err := h.chat.Clear(r.Context(), sessionID); err != nil {
		logger.ErrorContext(r.Context(), "failed to clear history", "session_id", sessionID, "error", err)
		writeError(w, r, http.StatusInternalServerError, "failed to clear history")
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]string{"message": "Chat history cleared"})
}
