package handlers

import (
	"net/http"

	"kitab/internal/contextutil"
	"kitab/internal/vectorstore"
)

// CollectionHandler serves vector collection inspection and reset.
type CollectionHandler struct {
	store      vectorstore.VectorStore
	collection string
	vectorSize int
}

// NewCollectionHandler creates a CollectionHandler.
func NewCollectionHandler(store vectorstore.VectorStore, collection string, vectorSize int) *CollectionHandler {
	return &CollectionHandler{
		store:      store,
		collection: collection,
		vectorSize: vectorSize,
	}
}

// Stats handles GET /collection/stats.
func (h *CollectionHandler) Stats(w http.ResponseWriter, r *http.Request) {
	logger := contextutil.LoggerFromContext(r.Context())

	stats, err := h.store.Stats(r.Context(), h.collection)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to get collection stats", "collection", h.collection, "error", err)
		writeError(w, r, http.StatusInternalServerError, "failed to get collection stats")
		return
	}

	writeJSON(w, r, http.StatusOK, stats)
}

// Reset handles DELETE /collection/reset. The collection is dropped and
// recreated empty, so ingestion keeps working immediately afterwards.
func (h *CollectionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	logger := contextutil.LoggerFromContext(r.Context())

	if err := h.store.Drop(r.Context(), h.collection); err != nil {
		logger.ErrorContext(r.Context(), "failed to drop collection", "collection", h.collection, "error", err)
		writeError(w, r, http.StatusInternalServerError, "failed to reset collection")
		return
	}
	if err := h.store.EnsureCollection(r.Context(), h.collection, h.vectorSize); err != nil {
		logger.ErrorContext(r.Context(), "failed to recreate collection", "collection", h.collection, "error", err)
		writeError(w, r, http.StatusInternalServerError, "failed to recreate collection")
		return
	}

	logger.InfoContext(r.Context(), "collection reset", "collection", h.collection)
	writeJSON(w, r, http.StatusOK, map[string]string{"message": "Collection reset successfully"})
}
