package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"docsync/internal/api/response"
	"docsync/internal/importsvc"
	"docsync/internal/metadatastore"
)

// DocumentHandler implements §6's `/docs/:id` family of endpoints.
type DocumentHandler struct {
	meta     *metadatastore.Store
	importer *importsvc.Service
}

// NewDocumentHandler constructs a DocumentHandler from its collaborators.
func NewDocumentHandler(meta *metadatastore.Store, importer *importsvc.Service) *DocumentHandler {
	return &DocumentHandler{meta: meta, importer: importer}
}

// Get handles GET /docs/:id.
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "id")
	doc, err := h.meta.GetDocument(r.Context(), docID)
	if err != nil {
		response.WriteAppError(w, err)
		return
	}
	response.WriteSuccess(w, doc)
}

// ListChunks handles GET /docs/:id/chunks.
func (h *DocumentHandler) ListChunks(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "id")
	page, limit := pageLimitFromQuery(r)

	chunks, total, err := h.meta.ListChunks(r.Context(), docID, page, limit)
	if err != nil {
		response.WriteAppError(w, err)
		return
	}
	response.WriteSuccess(w, paginated{Items: chunks, Page: page, Limit: limit, Total: total})
}

// Delete handles DELETE /docs/:id.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "id")
	if err := h.importer.DeleteDoc(r.Context(), docID); err != nil {
		response.WriteAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Resync handles POST /docs/:id/resync.
func (h *DocumentHandler) Resync(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "id")
	if _, err := h.importer.Resync(r.Context(), docID); err != nil {
		response.WriteAppError(w, err)
		return
	}
	doc, err := h.meta.GetDocument(r.Context(), docID)
	if err != nil {
		response.WriteAppError(w, err)
		return
	}
	response.WriteSuccess(w, doc)
}
