package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"kitab/internal/contextutil"
	"kitab/internal/vectorstore"
)

// HealthHandler reports liveness of the service and its backing stores.
type HealthHandler struct {
	db         *sql.DB
	store      vectorstore.VectorStore
	collection string
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(db *sql.DB, store vectorstore.VectorStore, collection string) *HealthHandler {
	return &HealthHandler{db: db, store: store, collection: collection}
}

// HealthResponse reports overall status plus a per-dependency breakdown.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// ServeHTTP handles GET /health. Degraded dependencies are reported but the
// endpoint still returns 200 while the process itself is serving.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := contextutil.LoggerFromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{
		"database":     "ok",
		"vector_store": "ok",
	}
	status := "ok"

	if err := h.db.PingContext(ctx); err != nil {
		logger.WarnContext(ctx, "database health check failed", "error", err)
		checks["database"] = "unavailable"
		status = "degraded"
	}

	if _, err := h.store.Stats(ctx, h.collection); err != nil {
		logger.WarnContext(ctx, "vector store health check failed", "error", err)
		checks["vector_store"] = "unavailable"
		status = "degraded"
	}

	writeJSON(w, r, http.StatusOK, HealthResponse{Status: status, Checks: checks})
}
