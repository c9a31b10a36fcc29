package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"docsync/internal/domain"
)

func (s *handlerSuite) seedDocument(collectionID, docID string) *domain.Document {
	now := time.Now()
	doc := &domain.Document{
		DocID:        docID,
		CollectionID: collectionID,
		SourceKey:    docID,
		Name:         docID + ".txt",
		MIME:         "text/plain",
		SizeBytes:    5,
		ContentHash:  docID,
		Status:       domain.DocStatusNew,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, _, err := s.meta.CreateDocument(s.ctx, doc)
	s.Require().NoError(err)

	s.Require().NoError(s.meta.CreateSyncJob(s.ctx, &domain.SyncJob{
		JobID:     docID + "-job",
		DocID:     docID,
		Status:    domain.JobStatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}))
	return doc
}

func (s *handlerSuite) TestGetDocument_ReturnsIt() {
	col := s.seedCollection("docs-get")
	doc := s.seedDocument(col.CollectionID, "doc-1")

	req := httptest.NewRequest(http.MethodGet, "/docs/"+doc.DocID, nil)
	req = withChiParam(req, "id", doc.DocID)
	rec := httptest.NewRecorder()

	s.documents.Get(rec, req)

	s.Equal(http.StatusOK, rec.Code)

	var got struct {
		Data domain.Document `json:"data"`
	}
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&got))
	s.Equal(doc.DocID, got.Data.DocID)
}

func (s *handlerSuite) TestGetDocument_UnknownIDReturnsNotFound() {
	req := httptest.NewRequest(http.MethodGet, "/docs/missing", nil)
	req = withChiParam(req, "id", "missing")
	rec := httptest.NewRecorder()

	s.documents.Get(rec, req)

	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *handlerSuite) TestListChunks_ReturnsPaginatedChunks() {
	col := s.seedCollection("docs-chunks")
	doc := s.seedDocument(col.CollectionID, "doc-chunks")

	req := httptest.NewRequest(http.MethodGet, "/docs/"+doc.DocID+"/chunks", nil)
	req = withChiParam(req, "id", doc.DocID)
	rec := httptest.NewRecorder()

	s.documents.ListChunks(rec, req)

	s.Equal(http.StatusOK, rec.Code)

	var got struct {
		Data paginated `json:"data"`
	}
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&got))
	s.Equal(0, got.Data.Total)
}

func (s *handlerSuite) TestDeleteDocument_SoftDeletesIt() {
	col := s.seedCollection("docs-delete")
	doc := s.seedDocument(col.CollectionID, "doc-delete")

	req := httptest.NewRequest(http.MethodDelete, "/docs/"+doc.DocID, nil)
	req = withChiParam(req, "id", doc.DocID)
	rec := httptest.NewRecorder()

	s.documents.Delete(rec, req)

	s.Equal(http.StatusNoContent, rec.Code)

	got, err := s.meta.GetDocument(s.ctx, doc.DocID)
	s.Require().NoError(err)
	s.True(got.IsDeleted)
}

func (s *handlerSuite) TestResyncDocument_ReturnsRefreshedDocument() {
	col := s.seedCollection("docs-resync")
	doc := s.seedDocument(col.CollectionID, "doc-resync")
	s.Require().NoError(s.source.Write(s.ctx, doc.SourceKey, []byte("hello world")))

	req := httptest.NewRequest(http.MethodPost, "/docs/"+doc.DocID+"/resync", nil)
	req = withChiParam(req, "id", doc.DocID)
	rec := httptest.NewRecorder()

	s.documents.Resync(rec, req)

	s.Equal(http.StatusOK, rec.Code)

	var got struct {
		Data domain.Document `json:"data"`
	}
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&got))
	s.Equal(doc.DocID, got.Data.DocID)
	s.Contains(s.trigger.triggered, doc.DocID)
}
