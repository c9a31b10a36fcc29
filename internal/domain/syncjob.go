package domain

import (
	"time"

	"docsync/internal/apperrors"
)

// JobStatus is the state of a document's SyncJob FSM (C7).
type JobStatus string

const (
	JobStatusNew      JobStatus = "NEW"
	JobStatusSplitOK  JobStatus = "SPLIT_OK"
	JobStatusEmbedOK  JobStatus = "EMBED_OK"
	JobStatusSynced   JobStatus = "SYNCED"
	JobStatusFailed   JobStatus = "FAILED"
	JobStatusRetrying JobStatus = "RETRYING"
	JobStatusDead     JobStatus = "DEAD"
)

// Terminal reports whether the status has no further legal transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSynced || s == JobStatusDead
}

// Valid reports whether s is one of the known job statuses.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusNew, JobStatusSplitOK, JobStatusEmbedOK, JobStatusSynced, JobStatusFailed, JobStatusRetrying, JobStatusDead:
		return true
	}
	return false
}

// ErrorCategory classifies the cause of the SyncJob's last failure, driving
// the retry-vs-dead-letter decision in the state machine.
type ErrorCategory string

const (
	ErrorCategoryTransientNetwork   ErrorCategory = "TRANSIENT_NETWORK"
	ErrorCategoryTransientRateLimit ErrorCategory = "TRANSIENT_RATE_LIMIT"
	ErrorCategoryTransientStore     ErrorCategory = "TRANSIENT_STORE"
	ErrorCategoryPermanentClient    ErrorCategory = "PERMANENT_CLIENT"
	ErrorCategoryPermanentData      ErrorCategory = "PERMANENT_DATA"
	ErrorCategoryUnknown            ErrorCategory = "UNKNOWN"
)

// Transient reports whether the category should be retried with backoff
// rather than immediately dead-lettered.
func (c ErrorCategory) Transient() bool {
	switch c {
	case ErrorCategoryTransientNetwork, ErrorCategoryTransientRateLimit, ErrorCategoryTransientStore:
		return true
	default:
		return false
	}
}

// SyncJob is the persistent record of one document's progress through the
// split -> embed -> upsert pipeline. There is exactly one job per document.
type SyncJob struct {
	JobID         string        `json:"jobId"`
	DocID         string        `json:"docId"`
	Status        JobStatus     `json:"status"`
	Retries       int           `json:"retries"`
	LastAttemptAt *time.Time    `json:"lastAttemptAt,omitempty"`
	LastError     string        `json:"lastError,omitempty"`
	ErrorCategory ErrorCategory `json:"errorCategory,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// Validate checks structural invariants independent of any store.
func (j *SyncJob) Validate() error {
	if j.JobID == "" {
		return apperrors.ValidationField("jobId", "cannot be empty")
	}
	if j.DocID == "" {
		return apperrors.ValidationField("docId", "cannot be empty")
	}
	if !j.Status.Valid() {
		return apperrors.ValidationField("status", "unknown job status")
	}
	if j.Retries < 0 {
		return apperrors.ValidationField("retries", "cannot be negative")
	}
	return nil
}

// legalTransitions enumerates every transition the state machine may make.
// Any transition not present here is a programming error (P3).
var legalTransitions = map[JobStatus]map[JobStatus]bool{
	JobStatusNew: {
		JobStatusSplitOK: true,
		JobStatusFailed:  true,
	},
	JobStatusSplitOK: {
		JobStatusEmbedOK: true,
		JobStatusFailed:  true,
	},
	JobStatusEmbedOK: {
		JobStatusSynced: true,
		JobStatusFailed: true,
	},
	JobStatusFailed: {
		JobStatusRetrying: true,
		JobStatusDead:     true,
	},
	JobStatusRetrying: {
		JobStatusNew:     true,
		JobStatusSplitOK: true,
		JobStatusEmbedOK: true,
		JobStatusFailed:  true,
	},
}

// CanTransition reports whether moving from `from` to `to` is a legal
// SyncJob state transition per §4.7.
func CanTransition(from, to JobStatus) bool {
	next, ok := legalTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}
