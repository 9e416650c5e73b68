package reconciliation

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/b2bportal/backend/internal/domain/integration"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/b2bportal/backend/internal/application/reconciliation"

// EngineConfig holds the collaborators of an Engine
type EngineConfig struct {
	Remote integration.RemoteCatalog
	Scope  TransactionScope
	// Runs records each run; optional
	Runs integration.SyncRunRepository
	// Observer receives progress events; defaults to NopObserver
	Observer ProgressObserver
	// Metrics receives counters; optional
	Metrics Metrics
	// Lock serializes runs across processes; optional
	Lock    RunLock
	Logger  *zap.Logger
	Options Options
}

// Engine sequences the synchronizers into scoped and full runs.
// Only one run executes at a time per Engine.
type Engine struct {
	products *ProductSynchronizer
	prices   *PriceSynchronizer
	clients  *ClientSynchronizer
	sellers  *SellerSynchronizer

	runs     integration.SyncRunRepository
	lock     RunLock
	observer ProgressObserver
	metrics  Metrics
	logger   *zap.Logger
	opts     Options
	tracer   trace.Tracer
	running  atomic.Bool
}

// NewEngine creates an engine
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Remote == nil {
		return nil, fmt.Errorf("%w: remote catalog is required", ErrInvalidConfig)
	}
	if cfg.Scope == nil {
		return nil, fmt.Errorf("%w: transaction scope is required", ErrInvalidConfig)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	observer := cfg.Observer
	if observer == nil {
		observer = NopObserver{}
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}
	opts := cfg.Options.withDefaults()

	return &Engine{
		products: NewProductSynchronizer(cfg.Remote, cfg.Scope, opts, logger.With(zap.String("stage", string(StageProducts)))),
		prices:   NewPriceSynchronizer(cfg.Remote, cfg.Scope, opts, logger.With(zap.String("stage", string(StagePrices)))),
		clients:  NewClientSynchronizer(cfg.Remote, cfg.Scope, opts, logger.With(zap.String("stage", string(StageClients)))),
		sellers:  NewSellerSynchronizer(cfg.Remote, cfg.Scope, opts, logger.With(zap.String("stage", string(StageSellers)))),
		runs:     cfg.Runs,
		lock:     cfg.Lock,
		observer: observer,
		metrics:  metrics,
		logger:   logger,
		opts:     opts,
		tracer:   otel.Tracer(tracerName),
	}, nil
}

type stage struct {
	name   Stage
	weight int
	run    func(ctx context.Context, runAt time.Time, rep *StageReporter, report *RunReport) error
}

// RunScoped synchronizes products, then prices
func (e *Engine) RunScoped(ctx context.Context) (*RunReport, error) {
	return e.run(ctx, integration.SyncKindScoped, e.scopedStages(50, 50))
}

// RunFull runs the scoped stages, then clients, then sellers.
// A stage failure stops the run; later stages never start.
func (e *Engine) RunFull(ctx context.Context) (*RunReport, error) {
	stages := append(e.scopedStages(30, 30),
		stage{name: StageClients, weight: 25, run: e.runClients},
		stage{name: StageSellers, weight: 15, run: e.runSellers},
	)
	return e.run(ctx, integration.SyncKindFull, stages)
}

// Running reports whether a run is in progress
func (e *Engine) Running() bool {
	return e.running.Load()
}

func (e *Engine) scopedStages(productWeight, priceWeight int) []stage {
	return []stage{
		{name: StageProducts, weight: productWeight, run: e.runProducts},
		{name: StagePrices, weight: priceWeight, run: e.runPrices},
	}
}

func (e *Engine) runProducts(ctx context.Context, runAt time.Time, rep *StageReporter, report *RunReport) error {
	stats, err := e.products.Sync(ctx, runAt, rep)
	report.Products = &stats
	e.recordEntities(ctx, StageProducts, stats.outcomes())
	return err
}

func (e *Engine) runPrices(ctx context.Context, runAt time.Time, rep *StageReporter, report *RunReport) error {
	stats, err := e.prices.Sync(ctx, runAt, rep)
	report.Prices = &stats
	e.recordEntities(ctx, StagePrices, stats.outcomes())
	return err
}

func (e *Engine) runClients(ctx context.Context, runAt time.Time, rep *StageReporter, report *RunReport) error {
	stats, err := e.clients.Sync(ctx, runAt, rep)
	report.Clients = &stats
	e.recordEntities(ctx, StageClients, stats.outcomes())
	return err
}

func (e *Engine) runSellers(ctx context.Context, runAt time.Time, rep *StageReporter, report *RunReport) error {
	stats, err := e.sellers.Sync(ctx, runAt, rep)
	report.Sellers = &stats
	e.recordEntities(ctx, StageSellers, stats.outcomes())
	return err
}

func (e *Engine) run(ctx context.Context, kind integration.SyncKind, stages []stage) (*RunReport, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, ErrSyncInProgress
	}
	defer e.running.Store(false)

	if e.lock != nil {
		release, err := e.lock.TryAcquire(ctx)
		if err != nil {
			return nil, err
		}
		defer release(context.WithoutCancel(ctx))
	}

	runAt := e.opts.Clock()
	run, err := integration.NewSyncRun(kind, runAt)
	if err != nil {
		return nil, err
	}
	report := &RunReport{
		RunID:     run.ID,
		Kind:      kind,
		Status:    integration.SyncStatusRunning,
		StartedAt: runAt,
	}
	logger := e.logger.With(zap.String("run_id", run.ID.String()), zap.String("kind", kind.String()))
	e.saveRun(ctx, logger, run)

	ctx, span := e.tracer.Start(ctx, "reconciliation.run",
		trace.WithAttributes(
			attribute.String("sync.kind", kind.String()),
			attribute.String("sync.run_id", run.ID.String()),
		))
	defer span.End()
	ctx = withLabel(ctx, integration.LabelRunID, run.ID.String())
	ctx = withLabel(ctx, integration.LabelKind, kind.String())

	rep := newRunReporter(e.observer, logger, run.ID, kind, e.opts.Clock)
	rep.Checkpoint(ctx, fmt.Sprintf("Starting %s sync", kind), 0, 100)
	logger.Info("Sync run started")

	low := 0
	for _, st := range stages {
		high := low + st.weight
		stageRep := rep.forStage(st.name, low, high)
		stageRep.Checkpoint(ctx, fmt.Sprintf("Synchronizing %s", st.name), 0, 1)

		stageCtx, stageSpan := e.tracer.Start(withLabel(ctx, integration.LabelStage, string(st.name)), "reconciliation.stage."+string(st.name))
		err := st.run(stageCtx, runAt, stageRep, report)
		if err != nil {
			stageSpan.RecordError(err)
			stageSpan.SetStatus(codes.Error, err.Error())
		}
		stageSpan.End()

		if err != nil {
			stageErr := &StageError{Stage: st.name, Err: err}
			span.RecordError(stageErr)
			span.SetStatus(codes.Error, stageErr.Error())
			report.FailedAt = st.name
			e.finish(ctx, logger, run, report, stageErr)
			stageRep.failed(ctx, fmt.Sprintf("Sync failed: %v", stageErr))
			return report, stageErr
		}
		low = high
	}

	e.finish(ctx, logger, run, report, nil)
	rep.completed(ctx, fmt.Sprintf("%s sync completed", kind))
	return report, nil
}

func (e *Engine) finish(ctx context.Context, logger *zap.Logger, run *integration.SyncRun, report *RunReport, cause error) {
	finishedAt := e.opts.Clock()
	report.FinishedAt = finishedAt
	run.Stats = report.statsMap()
	if cause != nil {
		report.Status = integration.SyncStatusFailed
		_ = run.Fail(finishedAt, cause)
		logger.Error("Sync run failed",
			zap.String("failed_at", string(report.FailedAt)),
			zap.Duration("elapsed", report.Elapsed()),
			zap.Error(cause))
	} else {
		report.Status = integration.SyncStatusCompleted
		_ = run.Complete(finishedAt)
		logger.Info("Sync run completed", zap.Duration("elapsed", report.Elapsed()))
	}
	e.metrics.RecordRun(ctx, run.Kind, report.Status, report.Elapsed())
	e.saveRun(ctx, logger, run)
}

// saveRun records run bookkeeping; failures are logged and never fail the run
func (e *Engine) saveRun(ctx context.Context, logger *zap.Logger, run *integration.SyncRun) {
	if e.runs == nil {
		return
	}
	if err := e.runs.Save(ctx, run); err != nil {
		logger.Warn("Failed to record sync run", zap.Error(err))
	}
}

func (e *Engine) recordEntities(ctx context.Context, st Stage, outcomes map[string]int64) {
	for outcome, count := range outcomes {
		if count > 0 {
			e.metrics.RecordEntities(ctx, string(st), outcome, count)
		}
	}
}
