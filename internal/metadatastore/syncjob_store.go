package metadatastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"docsync/internal/apperrors"
	"docsync/internal/domain"
)

// CreateSyncJob inserts the one-per-document job row that tracks a
// document's progress through the split->embed->upsert pipeline.
func (s *Store) CreateSyncJob(ctx context.Context, job *domain.SyncJob) error {
	if err := job.Validate(); err != nil {
		return err
	}
	const q = `
		INSERT INTO sync_jobs (job_id, doc_id, status, retries, last_attempt_at, last_error, error_category, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, q,
		job.JobID, job.DocID, string(job.Status), job.Retries, job.LastAttemptAt,
		nullableString(job.LastError), nullableString(string(job.ErrorCategory)), job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("metadatastore: create sync job: %w", err)
	}
	return nil
}

// GetSyncJobByDoc returns the sync job for docID.
func (s *Store) GetSyncJobByDoc(ctx context.Context, docID string) (*domain.SyncJob, error) {
	const q = `
		SELECT job_id, doc_id, status, retries, last_attempt_at, last_error, error_category, created_at, updated_at
		FROM sync_jobs WHERE doc_id = $1
	`
	row := s.db.QueryRowContext(ctx, q, docID)
	job, err := scanSyncJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("sync job for document", docID)
		}
		return nil, fmt.Errorf("metadatastore: get sync job: %w", err)
	}
	return job, nil
}

// UpdateSyncJob persists the job's current state. Callers (the
// SyncStateMachine) are responsible for only ever writing
// domain.CanTransition-legal transitions; this method does not re-check
// legality, since by the time it is called the transition has already been
// validated in memory under the per-docId lock.
func (s *Store) UpdateSyncJob(ctx context.Context, job *domain.SyncJob) error {
	if err := job.Validate(); err != nil {
		return err
	}
	const q = `
		UPDATE sync_jobs SET
			status = $2, retries = $3, last_attempt_at = $4,
			last_error = $5, error_category = $6, updated_at = $7
		WHERE job_id = $1
	`
	result, err := s.db.ExecContext(ctx, q,
		job.JobID, string(job.Status), job.Retries, job.LastAttemptAt,
		nullableString(job.LastError), nullableString(string(job.ErrorCategory)), job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("metadatastore: update sync job: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("metadatastore: update sync job: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("sync job", job.JobID)
	}
	return nil
}

// ListNonTerminalSyncJobs returns every job not in SYNCED or DEAD, for
// SyncStateMachine.Initialize() to resume or reschedule on restart (§4.7
// crash-recovery contract).
func (s *Store) ListNonTerminalSyncJobs(ctx context.Context) ([]*domain.SyncJob, error) {
	const q = `
		SELECT job_id, doc_id, status, retries, last_attempt_at, last_error, error_category, created_at, updated_at
		FROM sync_jobs WHERE status NOT IN ('SYNCED', 'DEAD')
	`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("metadatastore: list non-terminal sync jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.SyncJob
	for rows.Next() {
		job, err := scanSyncJobRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("metadatastore: list non-terminal sync jobs: %w", err)
	}
	return out, nil
}

// JobCounts returns the number of sync jobs in each status, for JobMonitor's
// aggregate view.
func (s *Store) JobCounts(ctx context.Context) (map[domain.JobStatus]int, error) {
	const q = `SELECT status, count(*) FROM sync_jobs GROUP BY status`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("metadatastore: job counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[domain.JobStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("metadatastore: scan job count: %w", err)
		}
		out[domain.JobStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("metadatastore: job counts: %w", err)
	}
	return out, nil
}

// RecentFailures returns the most recently updated FAILED or DEAD jobs, for
// JobMonitor's operator-facing failure feed.
func (s *Store) RecentFailures(ctx context.Context, limit int) ([]*domain.SyncJob, error) {
	const q = `
		SELECT job_id, doc_id, status, retries, last_attempt_at, last_error, error_category, created_at, updated_at
		FROM sync_jobs WHERE status IN ('FAILED', 'DEAD')
		ORDER BY updated_at DESC LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("metadatastore: recent failures: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.SyncJob
	for rows.Next() {
		job, err := scanSyncJobRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("metadatastore: recent failures: %w", err)
	}
	return out, nil
}

// AverageSyncDuration returns the mean wall-clock time between job creation
// and its most recent update for every SYNCED job, for JobMonitor's
// average-duration figure (§4.11). Returns zero if no job has synced yet.
func (s *Store) AverageSyncDuration(ctx context.Context) (time.Duration, error) {
	const q = `
		SELECT COALESCE(AVG(EXTRACT(EPOCH FROM (updated_at - created_at))), 0)
		FROM sync_jobs WHERE status = 'SYNCED'
	`
	var seconds float64
	if err := s.db.QueryRowContext(ctx, q).Scan(&seconds); err != nil {
		return 0, fmt.Errorf("metadatastore: average sync duration: %w", err)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

func scanSyncJob(row *sql.Row) (*domain.SyncJob, error) {
	var j domain.SyncJob
	var status string
	var lastError, errorCategory sql.NullString
	var lastAttemptAt sql.NullTime
	if err := row.Scan(&j.JobID, &j.DocID, &status, &j.Retries, &lastAttemptAt, &lastError, &errorCategory, &j.CreatedAt, &j.UpdatedAt); err != nil {
		return nil, err
	}
	j.Status = domain.JobStatus(status)
	if lastAttemptAt.Valid {
		t := lastAttemptAt.Time
		j.LastAttemptAt = &t
	}
	j.LastError = lastError.String
	j.ErrorCategory = domain.ErrorCategory(errorCategory.String)
	return &j, nil
}

func scanSyncJobRows(rows *sql.Rows) (*domain.SyncJob, error) {
	var j domain.SyncJob
	var status string
	var lastError, errorCategory sql.NullString
	var lastAttemptAt sql.NullTime
	if err := rows.Scan(&j.JobID, &j.DocID, &status, &j.Retries, &lastAttemptAt, &lastError, &errorCategory, &j.CreatedAt, &j.UpdatedAt); err != nil {
		return nil, fmt.Errorf("metadatastore: scan sync job: %w", err)
	}
	j.Status = domain.JobStatus(status)
	if lastAttemptAt.Valid {
		t := lastAttemptAt.Time
		j.LastAttemptAt = &t
	}
	j.LastError = lastError.String
	j.ErrorCategory = domain.ErrorCategory(errorCategory.String)
	return &j, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
