package handlers

import (
	"net/http"
	"strconv"

	"docsync/internal/api/response"
	"docsync/internal/apperrors"
	"docsync/internal/hybridsearch"
)

const defaultSearchLimit = 10

// SearchHandler implements §6's `GET /search` endpoint.
type SearchHandler struct {
	engine *hybridsearch.Engine
}

// NewSearchHandler constructs a SearchHandler from its collaborator.
func NewSearchHandler(engine *hybridsearch.Engine) *SearchHandler {
	return &SearchHandler{engine: engine}
}

// Search handles GET /search?q=&collectionId=&limit=.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	collectionID := r.URL.Query().Get("collectionId")
	if query == "" {
		response.WriteAppError(w, apperrors.ValidationField("q", "cannot be empty"))
		return
	}
	if collectionID == "" {
		response.WriteAppError(w, apperrors.ValidationField("collectionId", "cannot be empty"))
		return
	}

	limit := defaultSearchLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}

	hits, err := h.engine.Search(r.Context(), collectionID, query, limit)
	if err != nil {
		response.WriteAppError(w, err)
		return
	}
	response.WriteSuccess(w, hits)
}
