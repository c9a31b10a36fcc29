package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"docsync/internal/domain"
	"docsync/internal/jobmonitor"
)

func (s *handlerSuite) TestJobsOverview_AggregatesAcrossStatuses() {
	col := s.seedCollection("jobs-col")
	s.seedDocument(col.CollectionID, "job-doc-1")

	req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
	rec := httptest.NewRecorder()

	s.jobs.Overview(rec, req)

	s.Equal(http.StatusOK, rec.Code)

	var got struct {
		Data jobmonitor.Stats `json:"data"`
	}
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&got))
	s.Equal(1, got.Data.CountsByStatus[domain.JobStatusNew])
	s.Equal(2, got.Data.ActiveRetries)
}

func (s *handlerSuite) TestJobStatus_ReturnsSingleJob() {
	col := s.seedCollection("jobs-status-col")
	doc := s.seedDocument(col.CollectionID, "job-doc-status")

	req := httptest.NewRequest(http.MethodGet, "/jobs/"+doc.DocID, nil)
	req = withChiParam(req, "docId", doc.DocID)
	rec := httptest.NewRecorder()

	s.jobs.Status(rec, req)

	s.Equal(http.StatusOK, rec.Code)

	var got struct {
		Data domain.SyncJob `json:"data"`
	}
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&got))
	s.Equal(doc.DocID, got.Data.DocID)
}

func (s *handlerSuite) TestJobStatus_UnknownDocReturnsNotFound() {
	req := httptest.NewRequest(http.MethodGet, "/jobs/missing", nil)
	req = withChiParam(req, "docId", "missing")
	rec := httptest.NewRecorder()

	s.jobs.Status(rec, req)

	s.Equal(http.StatusNotFound, rec.Code)
}
