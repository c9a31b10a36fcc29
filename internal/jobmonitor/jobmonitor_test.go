package jobmonitor

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	_ "github.com/lib/pq"

	"docsync/internal/domain"
	"docsync/internal/metadatastore"
)

type fakeRetryGauge struct{ count int }

func (f fakeRetryGauge) PendingRetryCount() int { return f.count }

// JobMonitorSuite exercises Overview/JobStatus/NonTerminal/RecentFailures
// against a real PostgreSQL database, the same TEST_DATABASE_URL-gated
// pattern as internal/importsvc's and internal/autogc's suites.
type JobMonitorSuite struct {
	suite.Suite
	db   *sql.DB
	meta *metadatastore.Store
	ctx  context.Context
}

func TestJobMonitorSuite(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set - skipping jobmonitor integration tests")
	}
	suite.Run(t, &JobMonitorSuite{})
}

func (s *JobMonitorSuite) SetupSuite() {
	s.ctx = context.Background()
	db, err := sql.Open("postgres", os.Getenv("TEST_DATABASE_URL"))
	require.NoError(s.T(), err)
	s.db = db
	require.NoError(s.T(), metadatastore.ApplySchema(s.ctx, db))
	s.meta = metadatastore.New(db)
}

func (s *JobMonitorSuite) TearDownSuite() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *JobMonitorSuite) SetupTest() {
	_, err := s.db.ExecContext(s.ctx, `TRUNCATE collections, documents, chunks, sync_jobs CASCADE`)
	require.NoError(s.T(), err)
}

func (s *JobMonitorSuite) seedJob(docID string, status domain.JobStatus) {
	now := time.Now()
	collectionID := uuid.New().String()
	require.NoError(s.T(), s.meta.CreateCollection(s.ctx, &domain.Collection{
		CollectionID: collectionID, Name: "col-" + collectionID, CreatedAt: now,
	}))
	_, _, err := s.meta.CreateDocument(s.ctx, &domain.Document{
		DocID: docID, CollectionID: collectionID, SourceKey: docID, Name: docID + ".md",
		MIME: "text/markdown", SizeBytes: 1, ContentHash: docID, Status: domain.DocStatusNew,
		CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.meta.CreateSyncJob(s.ctx, &domain.SyncJob{
		JobID: uuid.New().String(), DocID: docID, Status: status, CreatedAt: now, UpdatedAt: now,
	}))
}

func (s *JobMonitorSuite) TestOverview_AggregatesCountsAndRetries() {
	s.seedJob(uuid.New().String(), domain.JobStatusNew)
	s.seedJob(uuid.New().String(), domain.JobStatusFailed)
	s.seedJob(uuid.New().String(), domain.JobStatusSynced)

	mon := New(s.meta, fakeRetryGauge{count: 2})
	stats, err := mon.Overview(s.ctx)
	require.NoError(s.T(), err)

	s.Equal(1, stats.CountsByStatus[domain.JobStatusNew])
	s.Equal(1, stats.CountsByStatus[domain.JobStatusFailed])
	s.Equal(1, stats.CountsByStatus[domain.JobStatusSynced])
	s.Equal(2, stats.ActiveRetries)
	s.Len(stats.RecentFailures, 1)
}

func (s *JobMonitorSuite) TestJobStatus_ReturnsSingleJob() {
	docID := uuid.New().String()
	s.seedJob(docID, domain.JobStatusEmbedOK)

	mon := New(s.meta, fakeRetryGauge{})
	job, err := mon.JobStatus(s.ctx, docID)
	require.NoError(s.T(), err)
	s.Equal(domain.JobStatusEmbedOK, job.Status)
}

func (s *JobMonitorSuite) TestNonTerminal_ExcludesSyncedAndDead() {
	s.seedJob(uuid.New().String(), domain.JobStatusSynced)
	s.seedJob(uuid.New().String(), domain.JobStatusDead)
	inFlight := uuid.New().String()
	s.seedJob(inFlight, domain.JobStatusRetrying)

	mon := New(s.meta, fakeRetryGauge{})
	jobs, err := mon.NonTerminal(s.ctx)
	require.NoError(s.T(), err)

	require.Len(s.T(), jobs, 1)
	s.Equal(inFlight, jobs[0].DocID)
}

func (s *JobMonitorSuite) TestRecentFailures_DefaultsLimitWhenNonPositive() {
	s.seedJob(uuid.New().String(), domain.JobStatusFailed)

	mon := New(s.meta, fakeRetryGauge{})
	failures, err := mon.RecentFailures(s.ctx, 0)
	require.NoError(s.T(), err)
	s.Len(failures, 1)
}
