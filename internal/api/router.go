// Package api provides the HTTP API layer for docsync, exposing §6's
// collection, document, search, job-monitor, and health endpoints over a
// chi router.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"docsync/internal/api/handlers"
	"docsync/internal/api/middleware"
	"docsync/internal/api/response"
	"docsync/internal/config"
	"docsync/internal/hybridsearch"
	"docsync/internal/importsvc"
	"docsync/internal/jobmonitor"
	"docsync/internal/metadatastore"
)

// Router wires docsync's HTTP surface together.
type Router struct {
	config *config.Config
	mux    *chi.Mux
}

// NewRouter builds the full chi router for docsync's HTTP API, wiring
// ImportService, HybridSearch, and JobMonitor into their respective
// handlers.
func NewRouter(cfg *config.Config, meta *metadatastore.Store, importer *importsvc.Service, search *hybridsearch.Engine, jobs *jobmonitor.Monitor, db, vectors handlers.Pinger) *Router {
	r := &Router{config: cfg, mux: chi.NewRouter()}
	r.setupMiddleware()
	r.setupRoutes(cfg, meta, importer, search, jobs, db, vectors)
	return r
}

// Handler returns the HTTP handler.
func (r *Router) Handler() http.Handler {
	return r.mux
}

func (r *Router) setupMiddleware() {
	r.mux.Use(chimiddleware.Recoverer)
	r.mux.Use(chimiddleware.Timeout(30 * time.Second))
	r.mux.Use(middleware.NewLoggingMiddleware().Handler())
	r.mux.Use(middleware.NewDefaultCORSMiddleware().Handler())
	r.mux.Use(chimiddleware.RequestSize(int64(r.config.Upload.MaxSizeBytes) + (1 << 20)))
	r.mux.Use(chimiddleware.Heartbeat("/ping"))
}

func (r *Router) setupRoutes(cfg *config.Config, meta *metadatastore.Store, importer *importsvc.Service, search *hybridsearch.Engine, jobs *jobmonitor.Monitor, db, vectors handlers.Pinger) {
	healthHandler := handlers.NewHealthHandler(cfg, db, vectors)
	r.mux.Get("/health", healthHandler.Handle)
	r.mux.Get("/readiness", healthHandler.HandleReadiness)
	r.mux.Get("/liveness", healthHandler.HandleLiveness)

	collectionHandler := handlers.NewCollectionHandler(meta, importer)
	documentHandler := handlers.NewDocumentHandler(meta, importer)
	searchHandler := handlers.NewSearchHandler(search)
	jobHandler := handlers.NewJobHandler(jobs)

	r.mux.Route("/collections", func(rtr chi.Router) {
		rtr.Post("/", collectionHandler.Create)
		rtr.Get("/", collectionHandler.List)
		rtr.Delete("/{id}", collectionHandler.Delete)
		rtr.Post("/{id}/docs", collectionHandler.UploadDoc)
	})

	r.mux.Route("/docs", func(rtr chi.Router) {
		rtr.Get("/{id}", documentHandler.Get)
		rtr.Get("/{id}/chunks", documentHandler.ListChunks)
		rtr.Delete("/{id}", documentHandler.Delete)
		rtr.Post("/{id}/resync", documentHandler.Resync)
	})

	r.mux.Get("/search", searchHandler.Search)

	r.mux.Route("/jobs", func(rtr chi.Router) {
		rtr.Get("/", jobHandler.Overview)
		rtr.Get("/{docId}", jobHandler.Status)
	})

	r.mux.NotFound(handleNotFound)
	r.mux.MethodNotAllowed(handleMethodNotAllowed)
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	response.WriteNotFound(w, "endpoint not found")
}

func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	response.WriteMethodNotAllowed(w, "method not allowed for this endpoint")
}
