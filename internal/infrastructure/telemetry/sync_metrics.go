package telemetry

import (
	"context"
	"time"

	"github.com/b2bportal/backend/internal/application/reconciliation"
	"github.com/b2bportal/backend/internal/domain/integration"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// SyncMeterName is the instrumentation scope of the sync instruments
const SyncMeterName = "github.com/b2bportal/backend/sync"

// SyncMetrics records reconciliation counters and run durations
type SyncMetrics struct {
	entities    *Counter
	runs        *Counter
	runDuration *Histogram
}

// NewSyncMetrics creates the sync instruments on meter
func NewSyncMetrics(meter metric.Meter) (*SyncMetrics, error) {
	entities, err := NewCounter(meter, "catalogsync.entities",
		"Entities processed by a reconciliation stage, by outcome", "{entity}")
	if err != nil {
		return nil, err
	}
	runs, err := NewCounter(meter, "catalogsync.runs", "Finished reconciliation runs", "{run}")
	if err != nil {
		return nil, err
	}
	runDuration, err := NewHistogram(meter, HistogramOpts{
		Name:        "catalogsync.run.duration",
		Description: "Wall time of a reconciliation run",
		Unit:        "s",
		Boundaries:  RunDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	return &SyncMetrics{entities: entities, runs: runs, runDuration: runDuration}, nil
}

// RecordEntities adds count entities of kind entity that ended with outcome
func (m *SyncMetrics) RecordEntities(ctx context.Context, entity string, outcome string, count int64) {
	m.entities.Add(ctx, count, AttrEntity.String(entity), AttrOutcome.String(outcome))
}

// RecordRun counts a finished run and records its duration
func (m *SyncMetrics) RecordRun(ctx context.Context, kind integration.SyncKind, status integration.SyncStatus, elapsed time.Duration) {
	attrs := []attribute.KeyValue{AttrSyncKind.String(string(kind)), AttrSyncStatus.String(string(status))}
	m.runs.Inc(ctx, attrs...)
	m.runDuration.RecordDuration(ctx, elapsed, attrs...)
}

var _ reconciliation.Metrics = (*SyncMetrics)(nil)
