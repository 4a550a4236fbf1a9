package http

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"kitab/internal/chat"
	"kitab/internal/handlers"
	"kitab/internal/ingest"
	"kitab/internal/rag"
	"kitab/internal/vectorstore"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	DB          *sql.DB
	Engine      rag.Engine
	Chat        *chat.Manager
	Limiter     chat.Limiter
	Pipeline    *ingest.Pipeline
	DriveClient ingest.DriveClient // nil disables the Drive endpoints
	VectorStore vectorstore.VectorStore
	Collection  string
	VectorSize  int
	UploadDir   string
}

// NewRouter creates the HTTP router with all API routes registered.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(LoggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	healthHandler := handlers.NewHealthHandler(deps.DB, deps.VectorStore, deps.Collection)
	ingestHandler := handlers.NewIngestHandler(deps.Pipeline, deps.DriveClient, deps.UploadDir)
	queryHandler := handlers.NewQueryHandler(deps.Engine, deps.Chat, deps.Limiter)
	historyHandler := handlers.NewHistoryHandler(deps.Chat)
	collectionHandler := handlers.NewCollectionHandler(deps.VectorStore, deps.Collection, deps.VectorSize)

	r.Method(http.MethodGet, "/health", healthHandler)

	r.Route("/ingest", func(r chi.Router) {
		r.Post("/file", ingestHandler.File)
		r.Post("/text", ingestHandler.Text)
		r.Post("/directory", ingestHandler.Directory)
		r.Post("/google-drive", ingestHandler.DriveFolder)
		r.Post("/google-drive/file", ingestHandler.DriveFile)
	})

	r.Method(http.MethodPost, "/query", queryHandler)

	r.Route("/chat/history/{sessionID}", func(r chi.Router) {
		r.Get("/", historyHandler.Get)
		r.Delete("/", historyHandler.Delete)
	})

	r.Get("/collection/stats", collectionHandler.Stats)
	r.Delete("/collection/reset", collectionHandler.Reset)

	return r
}
