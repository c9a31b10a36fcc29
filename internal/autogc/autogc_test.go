package autogc

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
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

type fakeVectorStore struct {
	mu      sync.Mutex
	points  map[string]map[string]bool // collectionID -> pointID set
	deleted []string
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{points: map[string]map[string]bool{}}
}

func (f *fakeVectorStore) seed(collectionID string, pointIDs ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.points[collectionID] == nil {
		f.points[collectionID] = map[string]bool{}
	}
	for _, id := range pointIDs {
		f.points[collectionID][id] = true
	}
}

func (f *fakeVectorStore) EnsureCollection(ctx context.Context, name string, dim int) error {
	return nil
}

func (f *fakeVectorStore) UpsertPoints(ctx context.Context, collectionID string, points []domain.VectorPoint) error {
	return nil
}

func (f *fakeVectorStore) DeletePoints(ctx context.Context, collectionID string, pointIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range pointIDs {
		delete(f.points[collectionID], id)
		f.deleted = append(f.deleted, id)
	}
	return nil
}

func (f *fakeVectorStore) DeletePointsByFilter(ctx context.Context, collectionID string, filter vectorstore.DeleteFilter) error {
	return nil
}

func (f *fakeVectorStore) ListAllPointIDs(ctx context.Context, collectionID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for id := range f.points[collectionID] {
		out = append(out, id)
	}
	return out, nil
}

func (f *fakeVectorStore) Search(ctx context.Context, collectionID string, vector []float32, limit int) ([]vectorstore.SearchHit, error) {
	return nil, nil
}

func (f *fakeVectorStore) Ping(ctx context.Context) error { return nil }

type fakeSourceStore struct {
	mu      sync.Mutex
	deleted []string
}

func (f *fakeSourceStore) Delete(ctx context.Context, sourceKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, sourceKey)
	return nil
}

// AutoGCSuite exercises RunOnce against a real PostgreSQL database and a
// fake vector store, the same TEST_DATABASE_URL-gated pattern as
// internal/importsvc and internal/syncfsm's suites.
type AutoGCSuite struct {
	suite.Suite
	db   *sql.DB
	meta *metadatastore.Store
	ctx  context.Context
}

func TestAutoGCSuite(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set - skipping autogc integration tests")
	}
	suite.Run(t, &AutoGCSuite{})
}

func (s *AutoGCSuite) SetupSuite() {
	s.ctx = context.Background()
	db, err := sql.Open("postgres", os.Getenv("TEST_DATABASE_URL"))
	require.NoError(s.T(), err)
	s.db = db
	require.NoError(s.T(), metadatastore.ApplySchema(s.ctx, db))
	s.meta = metadatastore.New(db)
}

func (s *AutoGCSuite) TearDownSuite() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *AutoGCSuite) SetupTest() {
	_, err := s.db.ExecContext(s.ctx, `TRUNCATE collections, documents, chunks, sync_jobs CASCADE`)
	require.NoError(s.T(), err)
}

func (s *AutoGCSuite) seedCollection(collectionID string) {
	require.NoError(s.T(), s.meta.CreateCollection(s.ctx, &domain.Collection{
		CollectionID: collectionID, Name: fmt.Sprintf("col-%s", collectionID), CreatedAt: time.Now(),
	}))
}

func (s *AutoGCSuite) seedDocument(collectionID, docID string, deleted bool) *domain.Document {
	now := time.Now()
	doc := &domain.Document{
		DocID: docID, CollectionID: collectionID, SourceKey: docID, Name: docID + ".md",
		MIME: "text/markdown", SizeBytes: 10, ContentHash: docID, Status: domain.DocStatusSynced,
		CreatedAt: now, UpdatedAt: now,
	}
	_, _, err := s.meta.CreateDocument(s.ctx, doc)
	require.NoError(s.T(), err)
	if deleted {
		require.NoError(s.T(), s.meta.MarkDocDeleted(s.ctx, docID))
	}
	return doc
}

func (s *AutoGCSuite) seedChunk(collectionID, docID, pointID string) {
	require.NoError(s.T(), s.meta.InsertChunks(s.ctx, []*domain.Chunk{{
		PointID: pointID, DocID: docID, CollectionID: collectionID, ChunkIndex: 0,
		TitleChain: []string{"Title"}, ContentHash: "h-" + pointID, Content: "content " + pointID,
	}}))
}

func (s *AutoGCSuite) TestRunOnce_DeletesOrphanedVectorsNotInMetadata() {
	collectionID := uuid.New().String()
	s.seedCollection(collectionID)
	docID := uuid.New().String()
	s.seedDocument(collectionID, docID, false)
	s.seedChunk(collectionID, docID, "p1")

	vectors := newFakeVectorStore()
	vectors.seed(collectionID, "p1", "p-orphan")

	gc := New(s.meta, vectors, &fakeSourceStore{}, nil)
	report, err := gc.RunOnce(s.ctx)
	require.NoError(s.T(), err)

	var found *CollectionReport
	for i := range report.Collections {
		if report.Collections[i].CollectionID == collectionID {
			found = &report.Collections[i]
		}
	}
	require.NotNil(s.T(), found)
	s.NoError(found.Err)
	s.Equal(1, found.OrphanedVectors)
	s.Contains(vectors.deleted, "p-orphan")

	remaining, err := vectors.ListAllPointIDs(s.ctx, collectionID)
	require.NoError(s.T(), err)
	s.ElementsMatch([]string{"p1"}, remaining)
}

func (s *AutoGCSuite) TestRunOnce_DeletesOrphanedMetadataNotInVectorStore() {
	collectionID := uuid.New().String()
	s.seedCollection(collectionID)
	docID := uuid.New().String()
	s.seedDocument(collectionID, docID, false)
	s.seedChunk(collectionID, docID, "p1")
	s.seedChunk(collectionID, docID, "p2")

	vectors := newFakeVectorStore()
	vectors.seed(collectionID, "p1") // p2's metadata row has no matching vector point

	gc := New(s.meta, vectors, &fakeSourceStore{}, nil)
	report, err := gc.RunOnce(s.ctx)
	require.NoError(s.T(), err)

	var found *CollectionReport
	for i := range report.Collections {
		if report.Collections[i].CollectionID == collectionID {
			found = &report.Collections[i]
		}
	}
	require.NotNil(s.T(), found)
	s.Equal(1, found.OrphanedMetadata)

	remaining, err := s.meta.ListPointIDsByCollection(s.ctx, collectionID)
	require.NoError(s.T(), err)
	s.ElementsMatch([]string{"p1"}, remaining)
}

func (s *AutoGCSuite) TestRunOnce_HardDeletesSoftDeletedDocuments() {
	collectionID := uuid.New().String()
	s.seedCollection(collectionID)
	docID := uuid.New().String()
	doc := s.seedDocument(collectionID, docID, true)

	vectors := newFakeVectorStore()
	source := &fakeSourceStore{}

	gc := New(s.meta, vectors, source, nil)
	report, err := gc.RunOnce(s.ctx)
	require.NoError(s.T(), err)

	var found *CollectionReport
	for i := range report.Collections {
		if report.Collections[i].CollectionID == collectionID {
			found = &report.Collections[i]
		}
	}
	require.NotNil(s.T(), found)
	s.Equal(1, found.HardDeletedDocs)
	s.Contains(source.deleted, doc.SourceKey)

	_, err = s.meta.GetDocument(s.ctx, docID)
	s.Error(err)
}

func (s *AutoGCSuite) TestRunOnce_HealthyCollectionReportsNoError() {
	good := uuid.New().String()
	s.seedCollection(good)
	gc := New(s.meta, newFakeVectorStore(), &fakeSourceStore{}, nil)

	report, err := gc.RunOnce(s.ctx)
	require.NoError(s.T(), err)
	for _, c := range report.Collections {
		s.NoError(c.Err)
	}
}
