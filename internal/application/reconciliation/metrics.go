package reconciliation

import (
	"context"
	"time"

	"github.com/b2bportal/backend/internal/domain/integration"
)

// Metrics receives per-run counters. Implementations must be safe for concurrent use.
type Metrics interface {
	// RecordEntities adds count entities of the given kind that ended with outcome
	RecordEntities(ctx context.Context, entity string, outcome string, count int64)
	// RecordRun records a finished run
	RecordRun(ctx context.Context, kind integration.SyncKind, status integration.SyncStatus, elapsed time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) RecordEntities(context.Context, string, string, int64) {}

func (nopMetrics) RecordRun(context.Context, integration.SyncKind, integration.SyncStatus, time.Duration) {
}
