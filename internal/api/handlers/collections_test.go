package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"

	"github.com/go-chi/chi/v5"

	"docsync/internal/domain"
)

// withChiParam injects a chi URL parameter into the request context the
// same way chi's router does when a route matches, letting handler tests
// call methods directly without running a full router.
func withChiParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func (s *handlerSuite) TestCreateCollection_Succeeds() {
	body := bytes.NewBufferString(`{"name":"docs","description":"a test collection"}`)
	req := httptest.NewRequest(http.MethodPost, "/collections", body)
	rec := httptest.NewRecorder()

	s.collections.Create(rec, req)

	s.Equal(http.StatusOK, rec.Code)

	var got struct {
		Data domain.Collection `json:"data"`
	}
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&got))
	s.Equal("docs", got.Data.Name)
	s.NotEmpty(got.Data.CollectionID)
}

func (s *handlerSuite) TestCreateCollection_RejectsInvalidJSON() {
	req := httptest.NewRequest(http.MethodPost, "/collections", strings.NewReader("not json"))
	rec := httptest.NewRecorder()

	s.collections.Create(rec, req)

	s.Equal(http.StatusUnprocessableEntity, rec.Code)
}

func (s *handlerSuite) TestListCollections_ReturnsPaginatedResults() {
	s.seedCollection("c1")
	s.seedCollection("c2")

	req := httptest.NewRequest(http.MethodGet, "/collections?page=1&limit=20", nil)
	rec := httptest.NewRecorder()

	s.collections.List(rec, req)

	s.Equal(http.StatusOK, rec.Code)

	var got struct {
		Data paginated `json:"data"`
	}
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&got))
	s.Equal(2, got.Data.Total)
}

func (s *handlerSuite) TestDeleteCollection_RemovesIt() {
	col := s.seedCollection("to-delete")

	req := httptest.NewRequest(http.MethodDelete, "/collections/"+col.CollectionID, nil)
	req = withChiParam(req, "id", col.CollectionID)
	rec := httptest.NewRecorder()

	s.collections.Delete(rec, req)

	s.Equal(http.StatusNoContent, rec.Code)

	_, err := s.meta.GetCollection(s.ctx, col.CollectionID)
	s.Error(err)
}

func (s *handlerSuite) TestUploadDoc_StoresFileAndReturnsDocID() {
	col := s.seedCollection("uploads")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	partHeader := textproto.MIMEHeader{}
	partHeader.Set("Content-Disposition", `form-data; name="file"; filename="note.txt"`)
	partHeader.Set("Content-Type", "text/plain")
	fw, err := mw.CreatePart(partHeader)
	s.Require().NoError(err)
	_, _ = fw.Write([]byte("hello world"))
	s.Require().NoError(mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/collections/"+col.CollectionID+"/docs", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req = withChiParam(req, "id", col.CollectionID)
	rec := httptest.NewRecorder()

	s.collections.UploadDoc(rec, req)

	s.Equal(http.StatusOK, rec.Code)

	var got struct {
		Data map[string]string `json:"data"`
	}
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&got))
	s.NotEmpty(got.Data["docId"])
}

func (s *handlerSuite) TestUploadDoc_RejectsMissingFileField() {
	col := s.seedCollection("uploads-missing")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	s.Require().NoError(mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/collections/"+col.CollectionID+"/docs", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req = withChiParam(req, "id", col.CollectionID)
	rec := httptest.NewRecorder()

	s.collections.UploadDoc(rec, req)

	s.Equal(http.StatusUnprocessableEntity, rec.Code)
}

func (s *handlerSuite) seedCollection(name string) *domain.Collection {
	c := &domain.Collection{CollectionID: name + "-id", Name: name}
	s.Require().NoError(s.meta.CreateCollection(s.ctx, c))
	return c
}
