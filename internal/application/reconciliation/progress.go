package reconciliation

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/b2bportal/backend/internal/domain/integration"
	"github.com/b2bportal/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Stage names a step of a reconciliation run
type Stage string

const (
	StageProducts Stage = "products"
	StagePrices   Stage = "prices"
	StageClients  Stage = "clients"
	StageSellers  Stage = "sellers"
)

// ProgressStatus is the status tag of a progress event
type ProgressStatus string

const (
	ProgressProcessing ProgressStatus = "processing"
	ProgressCompleted  ProgressStatus = "completed"
	ProgressError      ProgressStatus = "error"
)

// Progress is a coarse, human-readable progress event.
// Percent is nil when no meaningful completion ratio exists, e.g. on error.
type Progress struct {
	RunID   shared.ID            `json:"run_id"`
	Kind    integration.SyncKind `json:"kind"`
	Stage   Stage                `json:"stage,omitempty"`
	Message string               `json:"message"`
	Percent *int                 `json:"percent"`
	Status  ProgressStatus       `json:"status"`
	At      time.Time            `json:"at"`
}

// ProgressObserver is notified of progress events.
// Observers are purely informational; they cannot fail or slow down a run
// beyond the time they spend in OnProgress.
type ProgressObserver interface {
	OnProgress(ctx context.Context, p Progress)
}

// ProgressObserverFunc adapts a function to ProgressObserver
type ProgressObserverFunc func(ctx context.Context, p Progress)

// OnProgress calls f(ctx, p)
func (f ProgressObserverFunc) OnProgress(ctx context.Context, p Progress) {
	f(ctx, p)
}

// NopObserver discards every event
type NopObserver struct{}

// OnProgress does nothing
func (NopObserver) OnProgress(context.Context, Progress) {}

// MultiObserver fans an event out to several observers in order
type MultiObserver []ProgressObserver

// OnProgress forwards p to every observer
func (m MultiObserver) OnProgress(ctx context.Context, p Progress) {
	for _, o := range m {
		if o != nil {
			o.OnProgress(ctx, p)
		}
	}
}

// AsyncObserver decouples a slow observer from the run through a bounded queue.
// When the queue is full new events are dropped, never blocking the caller.
type AsyncObserver struct {
	next    ProgressObserver
	events  chan asyncProgress
	done    chan struct{}
	dropped atomic.Int64
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
}

type asyncProgress struct {
	ctx context.Context
	p   Progress
}

// NewAsyncObserver starts the delivery goroutine. Call Close to flush and stop it.
func NewAsyncObserver(next ProgressObserver, buffer int, logger *zap.Logger) *AsyncObserver {
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &AsyncObserver{
		next:   next,
		events: make(chan asyncProgress, buffer),
		done:   make(chan struct{}),
		logger: logger,
	}
	go a.deliver()
	return a
}

// OnProgress enqueues p without blocking
func (a *AsyncObserver) OnProgress(ctx context.Context, p Progress) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}
	select {
	case a.events <- asyncProgress{ctx: context.WithoutCancel(ctx), p: p}:
	default:
		a.dropped.Add(1)
		a.logger.Debug("Progress event dropped, observer queue full",
			zap.String("stage", string(p.Stage)),
			zap.String("message", p.Message))
	}
}

// Dropped returns how many events were discarded because the queue was full
func (a *AsyncObserver) Dropped() int64 {
	return a.dropped.Load()
}

// Close stops accepting events and waits until queued ones are delivered
func (a *AsyncObserver) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.events)
	}
	a.mu.Unlock()
	<-a.done
}

func (a *AsyncObserver) deliver() {
	defer close(a.done)
	for ev := range a.events {
		a.forward(ev)
	}
}

func (a *AsyncObserver) forward(ev asyncProgress) {
	defer func() {
		if rec := recover(); rec != nil {
			a.logger.Error("Progress observer panicked", zap.Any("panic", rec))
		}
	}()
	a.next.OnProgress(ev.ctx, ev.p)
}

// StageReporter emits progress for one stage, mapping the stage's own
// completion ratio onto its slice of the overall run. A nil reporter is valid
// and silent, so synchronizers can run outside the engine.
type StageReporter struct {
	observer ProgressObserver
	logger   *zap.Logger
	runID    shared.ID
	kind     integration.SyncKind
	stage    Stage
	low      int
	high     int
	clock    func() time.Time
}

func newRunReporter(observer ProgressObserver, logger *zap.Logger, runID shared.ID, kind integration.SyncKind, clock func() time.Time) *StageReporter {
	return &StageReporter{
		observer: observer,
		logger:   logger,
		runID:    runID,
		kind:     kind,
		low:      0,
		high:     100,
		clock:    clock,
	}
}

// forStage returns a reporter covering [low, high] of the run for stage
func (r *StageReporter) forStage(stage Stage, low, high int) *StageReporter {
	cp := *r
	cp.stage = stage
	cp.low = low
	cp.high = high
	return &cp
}

// Checkpoint reports done of total units processed
func (r *StageReporter) Checkpoint(ctx context.Context, message string, done, total int) {
	if r == nil {
		return
	}
	percent := r.low
	if total > 0 {
		if done > total {
			done = total
		}
		percent = r.low + (r.high-r.low)*done/total
	}
	r.emit(ctx, message, &percent, ProgressProcessing)
}

// completed reports the terminal success event
func (r *StageReporter) completed(ctx context.Context, message string) {
	if r == nil {
		return
	}
	percent := 100
	r.emit(ctx, message, &percent, ProgressCompleted)
}

// failed reports the terminal error event
func (r *StageReporter) failed(ctx context.Context, message string) {
	if r == nil {
		return
	}
	r.emit(ctx, message, nil, ProgressError)
}

func (r *StageReporter) emit(ctx context.Context, message string, percent *int, status ProgressStatus) {
	if r.observer == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Progress observer panicked", zap.Any("panic", rec))
		}
	}()
	r.observer.OnProgress(ctx, Progress{
		RunID:   r.runID,
		Kind:    r.kind,
		Stage:   r.stage,
		Message: message,
		Percent: percent,
		Status:  status,
		At:      r.clock(),
	})
}
