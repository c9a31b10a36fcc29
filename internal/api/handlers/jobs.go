package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"docsync/internal/api/response"
	"docsync/internal/jobmonitor"
)

// JobHandler exposes JobMonitor's read-only introspection over HTTP. Not
// part of §6's bit-exact compatibility surface, but exercises C11 the same
// way the rest of the handlers exercise their own component.
type JobHandler struct {
	monitor *jobmonitor.Monitor
}

// NewJobHandler constructs a JobHandler from its collaborator.
func NewJobHandler(monitor *jobmonitor.Monitor) *JobHandler {
	return &JobHandler{monitor: monitor}
}

// Overview handles GET /jobs.
func (h *JobHandler) Overview(w http.ResponseWriter, r *http.Request) {
	stats, err := h.monitor.Overview(r.Context())
	if err != nil {
		response.WriteAppError(w, err)
		return
	}
	response.WriteSuccess(w, stats)
}

// Status handles GET /jobs/:docId.
func (h *JobHandler) Status(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docId")
	job, err := h.monitor.JobStatus(r.Context(), docID)
	if err != nil {
		response.WriteAppError(w, err)
		return
	}
	response.WriteSuccess(w, job)
}
