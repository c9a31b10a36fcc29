package txcoordinator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	_ "github.com/lib/pq"

	"docsync/internal/domain"
	"docsync/internal/metadatastore"
	"docsync/internal/vectorstore"
)

// fakeVectorStore is a minimal VectorStore double, letting the compensation
// tests force an upsert failure without a real Qdrant instance - the same
// pattern internal/vectorstore's own wrapper_test.go uses for its fakeStore.
type fakeVectorStore struct {
	upsertErr   error
	upserted    []domain.VectorPoint
	deletedIDs  []string
	deleteCalls int
}

func (f *fakeVectorStore) EnsureCollection(ctx context.Context, name string, dim int) error {
	return nil
}

func (f *fakeVectorStore) UpsertPoints(ctx context.Context, collectionID string, points []domain.VectorPoint) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, points...)
	return nil
}

func (f *fakeVectorStore) DeletePoints(ctx context.Context, collectionID string, pointIDs []string) error {
	f.deleteCalls++
	f.deletedIDs = append(f.deletedIDs, pointIDs...)
	return nil
}

func (f *fakeVectorStore) DeletePointsByFilter(ctx context.Context, collectionID string, filter vectorstore.DeleteFilter) error {
	f.deleteCalls++
	return nil
}

func (f *fakeVectorStore) ListAllPointIDs(ctx context.Context, collectionID string) ([]string, error) {
	return nil, nil
}

func (f *fakeVectorStore) Search(ctx context.Context, collectionID string, vector []float32, limit int) ([]vectorstore.SearchHit, error) {
	return nil, nil
}

func (f *fakeVectorStore) Ping(ctx context.Context) error { return nil }

// CoordinatorSuite exercises the write-ordered compensation protocol
// against a real PostgreSQL database (gated by TEST_DATABASE_URL, as in
// internal/metadatastore's own suite) combined with a fakeVectorStore.
type CoordinatorSuite struct {
	suite.Suite
	db   *sql.DB
	meta *metadatastore.Store
	ctx  context.Context
}

func TestCoordinatorSuite(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set - skipping txcoordinator integration tests")
	}
	suite.Run(t, &CoordinatorSuite{})
}

func (s *CoordinatorSuite) SetupSuite() {
	s.ctx = context.Background()
	db, err := sql.Open("postgres", os.Getenv("TEST_DATABASE_URL"))
	require.NoError(s.T(), err)
	s.db = db
	require.NoError(s.T(), metadatastore.ApplySchema(s.ctx, db))
	s.meta = metadatastore.New(db)
}

func (s *CoordinatorSuite) TearDownSuite() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *CoordinatorSuite) SetupTest() {
	_, err := s.db.ExecContext(s.ctx, `TRUNCATE collections, documents, chunks, sync_jobs CASCADE`)
	require.NoError(s.T(), err)
}

func (s *CoordinatorSuite) seedDoc(collectionID, docID string) {
	require.NoError(s.T(), s.meta.CreateCollection(s.ctx, &domain.Collection{
		CollectionID: collectionID, Name: fmt.Sprintf("col-%s", collectionID), CreatedAt: time.Now(),
	}))
	_, _, err := s.meta.CreateDocument(s.ctx, &domain.Document{
		DocID: docID, CollectionID: collectionID, SourceKey: "k", Name: "n.md",
		MIME: "text/markdown", SizeBytes: 1, ContentHash: docID, Status: domain.DocStatusNew,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	})
	require.NoError(s.T(), err)
}

func (s *CoordinatorSuite) TestUpsertChunks_CommitsBothStoresOnSuccess() {
	collectionID, docID := uuid.New().String(), "doc-ok"
	s.seedDoc(collectionID, docID)

	fv := &fakeVectorStore{}
	c := New(s.meta, fv, nil)

	chunks := []*domain.Chunk{{PointID: docID + "#0", DocID: docID, CollectionID: collectionID, ChunkIndex: 0, Content: "hello"}}
	points := []domain.VectorPoint{{PointID: docID + "#0", Vector: []float32{0.1}, DocID: docID, Collection: collectionID}}

	require.NoError(s.T(), c.UpsertChunks(s.ctx, collectionID, chunks, points))

	got, _, err := s.meta.ListChunks(s.ctx, docID, 1, 10)
	require.NoError(s.T(), err)
	s.Len(got, 1)
	s.Len(fv.upserted, 1)
}

func (s *CoordinatorSuite) TestUpsertChunks_RollsBackRelationalOnVectorFailure() {
	collectionID, docID := uuid.New().String(), "doc-fail"
	s.seedDoc(collectionID, docID)

	fv := &fakeVectorStore{upsertErr: errors.New("qdrant unavailable")}
	c := New(s.meta, fv, nil)

	chunks := []*domain.Chunk{{PointID: docID + "#0", DocID: docID, CollectionID: collectionID, ChunkIndex: 0, Content: "hello"}}
	points := []domain.VectorPoint{{PointID: docID + "#0", Vector: []float32{0.1}, DocID: docID, Collection: collectionID}}

	err := c.UpsertChunks(s.ctx, collectionID, chunks, points)
	s.Error(err)

	got, _, err := s.meta.ListChunks(s.ctx, docID, 1, 10)
	require.NoError(s.T(), err)
	s.Empty(got)
}

func (s *CoordinatorSuite) TestDeleteDocument_DeletesVectorBeforeRelational() {
	collectionID, docID := uuid.New().String(), "doc-del"
	s.seedDoc(collectionID, docID)
	require.NoError(s.T(), s.meta.InsertChunks(s.ctx, []*domain.Chunk{
		{PointID: docID + "#0", DocID: docID, CollectionID: collectionID, ChunkIndex: 0, Content: "hello"},
	}))

	fv := &fakeVectorStore{}
	c := New(s.meta, fv, nil)

	require.NoError(s.T(), c.DeleteDocument(s.ctx, collectionID, docID))
	s.Equal(1, fv.deleteCalls)

	got, _, err := s.meta.ListChunks(s.ctx, docID, 1, 10)
	require.NoError(s.T(), err)
	s.Empty(got)
}

func (s *CoordinatorSuite) TestWithSavepoint_RollsBackOnlyFailedItem() {
	collectionID, docID := uuid.New().String(), "doc-sp"
	s.seedDoc(collectionID, docID)

	tx, err := s.meta.BeginTx(s.ctx)
	require.NoError(s.T(), err)
	defer func() { _ = tx.Rollback() }()

	require.NoError(s.T(), s.meta.InsertChunksTx(s.ctx, tx, []*domain.Chunk{
		{PointID: docID + "#0", DocID: docID, CollectionID: collectionID, ChunkIndex: 0, Content: "kept"},
	}))

	spErr := WithSavepoint(s.ctx, tx, "sp1", func() error {
		return s.meta.InsertChunksTx(s.ctx, tx, []*domain.Chunk{
			{PointID: "", DocID: docID, CollectionID: collectionID, ChunkIndex: 1, Content: "bad"},
		})
	})
	s.Error(spErr)

	require.NoError(s.T(), tx.Commit())

	got, _, err := s.meta.ListChunks(s.ctx, docID, 1, 10)
	require.NoError(s.T(), err)
	s.Len(got, 1)
	s.Equal("kept", got[0].Content)
}
