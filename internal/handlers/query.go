package handlers

import (
	"context"
	"net/http"
	"strings"

	"kitab/internal/chat"
	"kitab/internal/contextutil"
	"kitab/internal/rag"
	"kitab/internal/storage"
)

// QueryHandler serves POST /query: rate limit check, retrieval-augmented
// answer, and history recording.
type QueryHandler struct {
	engine  rag.Engine
	chat    *chat.Manager
	limiter chat.Limiter
}

// NewQueryHandler creates a QueryHandler. The limiter is consulted before
// each question; pass the chat manager itself for the default behavior.
func NewQueryHandler(engine rag.Engine, manager *chat.Manager, limiter chat.Limiter) *QueryHandler {
	return &QueryHandler{engine: engine, chat: manager, limiter: limiter}
}

// QueryRequest is the body for POST /query.
type QueryRequest struct {
	Question       string `json:"question"`
	SessionID      string `json:"session_id"`
	IncludeSources bool   `json:"include_sources"`
}

// ServeHTTP handles POST /query.
//
// A rate-limited session still gets a well-formed answer: the fixed rate
// limit reply is recorded as an assistant turn and returned with 200, so
// clients render it like any other message.
func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := contextutil.LoggerFromContext(r.Context())
	ctx := r.Context()

	var req QueryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		writeError(w, r, http.StatusBadRequest, "question is required")
		return
	}
	if req.SessionID == "" {
		writeError(w, r, http.StatusBadRequest, "session_id is required")
		return
	}

	allowed, err := h.limiter.Allowed(ctx, req.SessionID)
	if err != nil {
		logger.ErrorContext(ctx, "rate limit check failed", "session_id", req.SessionID, "error", err)
		writeError(w, r, http.StatusInternalServerError, "failed to check message limit")
		return
	}

	if !allowed {
		logger.InfoContext(ctx, "session rate limited", "session_id", req.SessionID)
		h.record(ctx, req.SessionID, storage.RoleUser, req.Question)
		h.record(ctx, req.SessionID, storage.RoleAssistant, chat.RateLimitReply)
		writeJSON(w, r, http.StatusOK, rag.AskResponse{Answer: chat.RateLimitReply})
		return
	}

	h.record(ctx, req.SessionID, storage.RoleUser, req.Question)

	resp, err := h.engine.Ask(ctx, rag.AskRequest{
		Question:       req.Question,
		IncludeSources: req.IncludeSources,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to answer question", "session_id", req.SessionID, "error", err)
		writeError(w, r, statusFor(err), "failed to answer question")
		return
	}

	h.record(ctx, req.SessionID, storage.RoleAssistant, resp.Answer)
	writeJSON(w, r, http.StatusOK, resp)
}

// record appends a history entry. Recording failures are logged but never
// fail the request; losing a history row is better than losing the answer.
func (h *QueryHandler) record(ctx context.Context, sessionID, role, content string) {
	if err := h.chat.Record(ctx, sessionID, role, content); err != nil {
		logger := contextutil.LoggerFromContext(ctx)
		logger.ErrorContext(ctx, "failed to record message", "session_id", sessionID, "role", role, "error", err)
	}
}
