package syncfsm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"docsync/internal/apperrors"
	"docsync/internal/domain"
	"docsync/internal/embeddings"
	"docsync/internal/logging"
	"docsync/internal/metadatastore"
	"docsync/internal/txcoordinator"
)

const defaultWorkers = 4

// Machine drives every document's SyncJob through split -> embed -> upsert,
// one attempt at a time per document, retrying transient failures with
// backoff and dead-lettering permanent ones. It is grounded on the
// teacher's push.NotificationQueue: a buffered trigger channel drained by a
// fixed worker pool, plus a ticker-driven retry queue for delayed attempts
// (internal/push/queue.go's batchProcessor/retryProcessor split).
type Machine struct {
	meta     *metadatastore.Store
	embedder embeddings.Provider
	coord    *txcoordinator.Coordinator
	source   SourceReader
	policy   RetryPolicy
	workers  int
	logger   logging.Logger

	triggers chan string
	retries  *retryQueue

	mu       sync.Mutex
	inFlight map[string]bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMachine constructs a Machine from its collaborators. Call Initialize
// before Start to resume any non-terminal jobs left over from a crash.
func NewMachine(deps Deps) *Machine {
	workers := deps.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	policy := deps.Policy
	if policy.MaxRetries == 0 && policy.Base == 0 {
		policy = DefaultRetryPolicy()
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Machine{
		meta:     deps.Meta,
		embedder: deps.Embedder,
		coord:    deps.Coord,
		source:   deps.Source,
		policy:   policy,
		workers:  workers,
		logger:   logger.WithComponent("syncfsm"),
		triggers: make(chan string, 1024),
		retries:  newRetryQueue(),
		inFlight: make(map[string]bool),
	}
}

// Start launches the worker pool and the retry-queue ticker. It returns
// immediately; call Stop to drain and shut down.
func (m *Machine) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	for i := 0; i < m.workers; i++ {
		m.wg.Add(1)
		go m.worker(ctx)
	}
	m.wg.Add(1)
	go m.retryLoop(ctx)
}

// Stop cancels all in-flight workers and blocks until they return.
func (m *Machine) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

// Trigger enqueues docID for its next attempt. Safe to call concurrently;
// a document already in flight or already queued is not double-scheduled
// at the instant it's picked up by a worker (runAttempt's in-flight guard
// dedupes at execution time, not at enqueue time, to keep Trigger
// non-blocking).
func (m *Machine) Trigger(docID string) {
	select {
	case m.triggers <- docID:
	default:
		m.logger.Warn("trigger channel full, dropping attempt", "docId", docID)
	}
}

// Initialize re-reads every non-terminal SyncJob from MetadataStore and
// resumes it: NEW/SPLIT_OK/EMBED_OK jobs are re-triggered directly, FAILED
// jobs are re-classified through the same transient/retries-left decision
// a live failure would go through (since a crash may have landed before the
// retry decision was persisted), and RETRYING jobs are rescheduled using
// their existing retry count — crash recovery never resets progress already
// made towards MaxRetries.
func (m *Machine) Initialize(ctx context.Context) error {
	jobs, err := m.meta.ListNonTerminalSyncJobs(ctx)
	if err != nil {
		return err
	}
	for _, job := range jobs {
		switch job.Status {
		case domain.JobStatusNew, domain.JobStatusSplitOK, domain.JobStatusEmbedOK:
			m.Trigger(job.DocID)
		case domain.JobStatusFailed:
			m.decideRetry(ctx, job, job.ErrorCategory)
		case domain.JobStatusRetrying:
			m.retries.schedule(job.DocID, time.Now().Add(m.policy.delay(job.Retries)), job.Retries)
		}
	}
	return nil
}

func (m *Machine) worker(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case docID := <-m.triggers:
			m.runAttempt(ctx, docID)
		}
	}
}

func (m *Machine) retryLoop(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, item := range m.retries.ready(now) {
				m.Trigger(item.docID)
			}
		}
	}
}

// runAttempt runs one full attempt at moving docID's job forward: it skips
// straight to Embed when chunk rows already exist (the document already
// reached at least SPLIT_OK in a prior attempt, possibly one a crash
// interrupted before it could reach SYNCED — embedded vectors are never
// durably held outside the final Upsert commit, so both a SPLIT_OK and an
// EMBED_OK resume re-embed and re-upsert; a resume already sitting in
// EMBED_OK skips the now-redundant EMBED_OK transition since
// domain.CanTransition forbids a status transitioning to itself).
func (m *Machine) runAttempt(ctx context.Context, docID string) {
	m.mu.Lock()
	if m.inFlight[docID] {
		m.mu.Unlock()
		return
	}
	m.inFlight[docID] = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.inFlight, docID)
		m.mu.Unlock()
	}()

	job, err := m.meta.GetSyncJobByDoc(ctx, docID)
	if err != nil {
		m.logger.ErrorContext(ctx, "load sync job failed", "docId", docID, "error", err.Error())
		return
	}
	if job.Status.Terminal() {
		return
	}

	doc, err := m.meta.GetDocument(ctx, docID)
	if err != nil {
		m.logger.ErrorContext(ctx, "load document failed", "docId", docID, "error", err.Error())
		return
	}

	chunks, err := m.fetchChunks(ctx, docID)
	if err != nil {
		m.handleFailure(ctx, job, err)
		return
	}

	if len(chunks) == 0 {
		chunks, err = m.split(ctx, doc)
		if err != nil {
			m.handleFailure(ctx, job, err)
			return
		}
		if err := m.transition(ctx, job, domain.JobStatusSplitOK); err != nil {
			m.logger.ErrorContext(ctx, "transition to SPLIT_OK failed", "docId", docID, "error", err.Error())
			return
		}
	}

	points, err := m.embed(ctx, chunks)
	if err != nil {
		m.handleFailure(ctx, job, err)
		return
	}
	// A crash-resumed job already sitting in EMBED_OK re-embeds (vectors
	// are never durably held outside the Upsert commit) but must not
	// re-transition into its own current state; CanTransition only allows
	// EMBED_OK -> {SYNCED,FAILED}.
	if job.Status != domain.JobStatusEmbedOK {
		if err := m.transition(ctx, job, domain.JobStatusEmbedOK); err != nil {
			m.logger.ErrorContext(ctx, "transition to EMBED_OK failed", "docId", docID, "error", err.Error())
			return
		}
	}

	if err := m.upsert(ctx, doc.CollectionID, points); err != nil {
		m.handleFailure(ctx, job, err)
		return
	}

	m.finishSynced(ctx, job, docID)
}

// transition persists a SyncJob status advance and mirrors it onto the
// Document row, both inside the same logical step (P3: every SyncJob
// transition is legal per domain.CanTransition).
func (m *Machine) transition(ctx context.Context, job *domain.SyncJob, to domain.JobStatus) error {
	if !domain.CanTransition(job.Status, to) {
		return apperrors.Integrity(fmt.Sprintf("illegal sync job transition %s -> %s for doc %s", job.Status, to, job.DocID))
	}
	job.Status = to
	job.LastError = ""
	job.ErrorCategory = ""
	now := time.Now()
	job.LastAttemptAt = &now
	if err := m.meta.UpdateSyncJob(ctx, job); err != nil {
		return err
	}
	return m.meta.UpdateDocumentStatus(ctx, job.DocID, domain.DocStatus(to))
}

// finishSynced marks the job SYNCED and stamps the document's syncedAt, the
// pipeline's terminal success step.
func (m *Machine) finishSynced(ctx context.Context, job *domain.SyncJob, docID string) {
	job.Status = domain.JobStatusSynced
	job.LastError = ""
	job.ErrorCategory = ""
	now := time.Now()
	job.LastAttemptAt = &now
	if err := m.meta.UpdateSyncJob(ctx, job); err != nil {
		m.logger.ErrorContext(ctx, "persist SYNCED failed", "docId", docID, "error", err.Error())
		return
	}
	if err := m.meta.MarkDocumentSynced(ctx, docID); err != nil {
		m.logger.ErrorContext(ctx, "mark document synced failed", "docId", docID, "error", err.Error())
	}
	m.retries.remove(docID)
}

// handleFailure classifies err and either schedules a backoff retry or
// dead-letters the job, matching §4.7's failure-handling table.
func (m *Machine) handleFailure(ctx context.Context, job *domain.SyncJob, cause error) {
	category := Classify(cause)

	job.Status = domain.JobStatusFailed
	job.LastError = cause.Error()
	job.ErrorCategory = category
	now := time.Now()
	job.LastAttemptAt = &now
	if err := m.meta.UpdateSyncJob(ctx, job); err != nil {
		m.logger.ErrorContext(ctx, "persist FAILED failed", "docId", job.DocID, "error", err.Error())
		return
	}
	if err := m.meta.UpdateDocumentStatus(ctx, job.DocID, domain.DocStatusFailed); err != nil {
		m.logger.ErrorContext(ctx, "mirror FAILED onto document failed", "docId", job.DocID, "error", err.Error())
	}

	m.decideRetry(ctx, job, category)
}

// decideRetry moves a FAILED job to RETRYING (scheduling the next attempt
// with backoff) or to DEAD (exhausted retries, or a permanent error
// category) per §4.7.
func (m *Machine) decideRetry(ctx context.Context, job *domain.SyncJob, category domain.ErrorCategory) {
	if !category.Transient() || job.Retries >= m.policy.MaxRetries {
		job.Status = domain.JobStatusDead
		if err := m.meta.UpdateSyncJob(ctx, job); err != nil {
			m.logger.ErrorContext(ctx, "persist DEAD failed", "docId", job.DocID, "error", err.Error())
			return
		}
		if err := m.meta.UpdateDocumentStatus(ctx, job.DocID, domain.DocStatusDead); err != nil {
			m.logger.ErrorContext(ctx, "mirror DEAD onto document failed", "docId", job.DocID, "error", err.Error())
		}
		m.retries.remove(job.DocID)
		return
	}

	job.Retries++
	job.Status = domain.JobStatusRetrying
	if err := m.meta.UpdateSyncJob(ctx, job); err != nil {
		m.logger.ErrorContext(ctx, "persist RETRYING failed", "docId", job.DocID, "error", err.Error())
		return
	}
	if err := m.meta.UpdateDocumentStatus(ctx, job.DocID, domain.DocStatusRetrying); err != nil {
		m.logger.ErrorContext(ctx, "mirror RETRYING onto document failed", "docId", job.DocID, "error", err.Error())
	}
	m.retries.schedule(job.DocID, time.Now().Add(m.policy.delay(job.Retries)), job.Retries)
}

// PendingRetryCount reports how many documents are currently sitting in the
// in-memory retry queue awaiting their backoff delay to elapse, for
// JobMonitor's active-retries figure (§4.11).
func (m *Machine) PendingRetryCount() int {
	return m.retries.len()
}

// EnsureJob creates a fresh NEW SyncJob for docID if one doesn't already
// exist, used by ImportService right after a document row is created.
func (m *Machine) EnsureJob(ctx context.Context, docID string) error {
	_, err := m.meta.GetSyncJobByDoc(ctx, docID)
	if err == nil {
		return nil
	}
	if apperrors.CodeOf(err) != apperrors.ErrorCodeNotFound {
		return err
	}
	now := time.Now()
	job := &domain.SyncJob{
		JobID:     uuid.NewString(),
		DocID:     docID,
		Status:    domain.JobStatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return m.meta.CreateSyncJob(ctx, job)
}
