// Package jobmonitor implements JobMonitor (C11): read-only introspection
// over the sync pipeline's state for operators, composed entirely from
// primitives internal/metadatastore already exposes plus the in-memory
// retry queue internal/syncfsm maintains. It performs no writes.
package jobmonitor

import (
	"context"
	"time"

	"docsync/internal/domain"
	"docsync/internal/metadatastore"
)

const defaultRecentFailuresLimit = 20

// RetryGauge is the subset of syncfsm.Machine JobMonitor reads from, kept
// narrow so tests can fake it without a real Machine.
type RetryGauge interface {
	PendingRetryCount() int
}

// Stats is the aggregate view returned by Overview.
type Stats struct {
	CountsByStatus  map[domain.JobStatus]int `json:"countsByStatus"`
	ActiveRetries   int                       `json:"activeRetries"`
	AverageDuration time.Duration             `json:"averageDuration"`
	RecentFailures  []*domain.SyncJob         `json:"recentFailures"`
}

// Monitor implements JobMonitor.
type Monitor struct {
	meta    *metadatastore.Store
	retries RetryGauge
}

// New constructs a Monitor from its collaborators.
func New(meta *metadatastore.Store, retries RetryGauge) *Monitor {
	return &Monitor{meta: meta, retries: retries}
}

// Overview returns the aggregate counts, active retry count, average sync
// duration, and the most recent failures, for an operator dashboard.
func (m *Monitor) Overview(ctx context.Context) (Stats, error) {
	counts, err := m.meta.JobCounts(ctx)
	if err != nil {
		return Stats{}, err
	}
	avg, err := m.meta.AverageSyncDuration(ctx)
	if err != nil {
		return Stats{}, err
	}
	failures, err := m.meta.RecentFailures(ctx, defaultRecentFailuresLimit)
	if err != nil {
		return Stats{}, err
	}

	return Stats{
		CountsByStatus:  counts,
		ActiveRetries:   m.retries.PendingRetryCount(),
		AverageDuration: avg,
		RecentFailures:  failures,
	}, nil
}

// JobStatus returns the sync job for a single document, for a per-document
// status lookup.
func (m *Monitor) JobStatus(ctx context.Context, docID string) (*domain.SyncJob, error) {
	return m.meta.GetSyncJobByDoc(ctx, docID)
}

// NonTerminal returns every job still in flight (not SYNCED or DEAD), for
// an operator wanting the full in-progress worklist rather than just the
// aggregate counts.
func (m *Monitor) NonTerminal(ctx context.Context) ([]*domain.SyncJob, error) {
	return m.meta.ListNonTerminalSyncJobs(ctx)
}

// RecentFailures returns up to limit of the most recently updated FAILED or
// DEAD jobs.
func (m *Monitor) RecentFailures(ctx context.Context, limit int) ([]*domain.SyncJob, error) {
	if limit <= 0 {
		limit = defaultRecentFailuresLimit
	}
	return m.meta.RecentFailures(ctx, limit)
}
