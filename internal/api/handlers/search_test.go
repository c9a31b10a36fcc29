package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"docsync/internal/domain"
	"docsync/internal/hybridsearch"
)

func (s *handlerSuite) TestSearch_ReturnsFusedHits() {
	col := s.seedCollection("search-col")
	doc := s.seedDocument(col.CollectionID, "search-doc")

	chunk := &domain.Chunk{
		PointID:      "point-1",
		DocID:        doc.DocID,
		CollectionID: col.CollectionID,
		ChunkIndex:   0,
		Content:      "hello searchable world",
		ContentHash:  "hash-1",
	}
	s.Require().NoError(s.meta.InsertChunks(s.ctx, []*domain.Chunk{chunk}))
	s.Require().NoError(s.vectors.UpsertPoints(s.ctx, col.CollectionID, []domain.VectorPoint{
		{PointID: chunk.PointID, Vector: []float32{1, 0, 0, 0}, DocID: doc.DocID, Collection: col.CollectionID},
	}))

	req := httptest.NewRequest(http.MethodGet, "/search?q=searchable&collectionId="+col.CollectionID, nil)
	rec := httptest.NewRecorder()

	s.search.Search(rec, req)

	s.Equal(http.StatusOK, rec.Code)

	var got struct {
		Data []hybridsearch.Hit `json:"data"`
	}
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&got))
	s.Require().Len(got.Data, 1)
	s.Equal(chunk.PointID, got.Data[0].PointID)
}

func (s *handlerSuite) TestSearch_RejectsEmptyQuery() {
	req := httptest.NewRequest(http.MethodGet, "/search?collectionId=anything", nil)
	rec := httptest.NewRecorder()

	s.search.Search(rec, req)

	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *handlerSuite) TestSearch_RejectsMissingCollectionID() {
	req := httptest.NewRequest(http.MethodGet, "/search?q=something", nil)
	rec := httptest.NewRecorder()

	s.search.Search(rec, req)

	s.Equal(http.StatusBadRequest, rec.Code)
}
