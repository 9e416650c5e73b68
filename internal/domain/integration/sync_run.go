package integration

import (
	"context"
	"time"

	"github.com/b2bportal/backend/internal/domain/shared"
)

// SyncKind is the scope of a reconciliation run
type SyncKind string

const (
	// SyncKindScoped covers products and prices
	SyncKindScoped SyncKind = "scoped"
	// SyncKindFull covers products, prices, clients and sellers
	SyncKindFull SyncKind = "full"
)

// IsValid returns true if the kind is known
func (k SyncKind) IsValid() bool {
	return k == SyncKindScoped || k == SyncKindFull
}

// String returns the string representation of SyncKind
func (k SyncKind) String() string {
	return string(k)
}

// Labels a run attaches to its context so that statements and outbound
// requests issued on its behalf can be attributed to the run and stage
const (
	LabelRunID = "sync.run_id"
	LabelKind  = "sync.kind"
	LabelStage = "sync.stage"
)

// SyncStatus is the lifecycle state of a run
type SyncStatus string

const (
	SyncStatusRunning   SyncStatus = "running"
	SyncStatusCompleted SyncStatus = "completed"
	SyncStatusFailed    SyncStatus = "failed"
)

// IsTerminal returns true once the run has finished
func (s SyncStatus) IsTerminal() bool {
	return s == SyncStatusCompleted || s == SyncStatusFailed
}

// SyncRun records one invocation of the reconciliation engine
type SyncRun struct {
	ID           shared.ID
	Kind         SyncKind
	Status       SyncStatus
	StartedAt    time.Time
	FinishedAt   *time.Time
	ErrorMessage string
	// Stats holds per-stage counters, keyed by stage name
	Stats map[string]any
}

// NewSyncRun starts a run of the given kind
func NewSyncRun(kind SyncKind, startedAt time.Time) (*SyncRun, error) {
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_SYNC_KIND", "Unknown sync kind: "+string(kind))
	}
	return &SyncRun{
		ID:        shared.NewBaseEntity().ID,
		Kind:      kind,
		Status:    SyncStatusRunning,
		StartedAt: startedAt,
		Stats:     map[string]any{},
	}, nil
}

// Complete marks the run as successful
func (r *SyncRun) Complete(at time.Time) error {
	if r.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", "Sync run already finished")
	}
	r.Status = SyncStatusCompleted
	r.FinishedAt = &at
	return nil
}

// Fail marks the run as failed with the given cause
func (r *SyncRun) Fail(at time.Time, cause error) error {
	if r.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", "Sync run already finished")
	}
	r.Status = SyncStatusFailed
	r.FinishedAt = &at
	if cause != nil {
		r.ErrorMessage = cause.Error()
	}
	return nil
}

// Duration returns how long the run took, or zero while still running
func (r *SyncRun) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// SyncRunRepository persists sync runs
type SyncRunRepository interface {
	// Save creates or updates a run
	Save(ctx context.Context, run *SyncRun) error

	// FindLatest returns the most recent run of the given kind, or of any kind when kind is empty
	FindLatest(ctx context.Context, kind SyncKind) (*SyncRun, error)

	// FindRecent returns up to limit runs, newest first
	FindRecent(ctx context.Context, limit int) ([]SyncRun, error)
}

// ErrSyncRunNotFound is returned when no run matches
var ErrSyncRunNotFound = shared.NewDomainError("SYNC_RUN_NOT_FOUND", "Sync run not found")
