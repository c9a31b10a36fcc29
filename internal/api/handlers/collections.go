package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"docsync/internal/api/response"
	"docsync/internal/domain"
	"docsync/internal/importsvc"
	"docsync/internal/metadatastore"
)

const (
	defaultPage  = 1
	defaultLimit = 20
)

// CollectionHandler implements §6's `/collections` family of endpoints.
type CollectionHandler struct {
	meta     *metadatastore.Store
	importer *importsvc.Service
}

// NewCollectionHandler constructs a CollectionHandler from its collaborators.
func NewCollectionHandler(meta *metadatastore.Store, importer *importsvc.Service) *CollectionHandler {
	return &CollectionHandler{meta: meta, importer: importer}
}

type createCollectionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Create handles POST /collections.
func (h *CollectionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.WriteValidationError(w, "request body must be valid JSON")
		return
	}

	c := &domain.Collection{
		CollectionID: uuid.NewString(),
		Name:         req.Name,
		Description:  req.Description,
		CreatedAt:    time.Now(),
	}
	if err := h.meta.CreateCollection(r.Context(), c); err != nil {
		response.WriteAppError(w, err)
		return
	}
	response.WriteSuccess(w, c)
}

// List handles GET /collections.
func (h *CollectionHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := pageLimitFromQuery(r)
	collections, total, err := h.meta.ListCollections(r.Context(), page, limit)
	if err != nil {
		response.WriteAppError(w, err)
		return
	}
	response.WriteSuccess(w, paginated{Items: collections, Page: page, Limit: limit, Total: total})
}

// Delete handles DELETE /collections/:id.
func (h *CollectionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	collectionID := chi.URLParam(r, "id")
	if err := h.importer.DeleteCollection(r.Context(), collectionID); err != nil {
		response.WriteAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadDoc handles POST /collections/:id/docs.
func (h *CollectionHandler) UploadDoc(w http.ResponseWriter, r *http.Request) {
	collectionID := chi.URLParam(r, "id")

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		response.WriteValidationError(w, "request must be multipart/form-data", err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		response.WriteValidationError(w, "missing \"file\" form field")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		response.WriteInternalError(w, "failed to read uploaded file")
		return
	}

	mime := header.Header.Get("Content-Type")
	doc, err := h.importer.UploadFile(r.Context(), collectionID, data, header.Filename, mime)
	if err != nil {
		response.WriteAppError(w, err)
		return
	}
	response.WriteSuccess(w, map[string]string{"docId": doc.DocID})
}

type paginated struct {
	Items interface{} `json:"items"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
	Total int         `json:"total"`
}

func pageLimitFromQuery(r *http.Request) (page, limit int) {
	page = defaultPage
	limit = defaultLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	return page, limit
}
