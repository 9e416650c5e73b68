package reconciliation_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/b2bportal/backend/internal/application/reconciliation"
	"github.com/b2bportal/backend/internal/domain/integration"
	"github.com/b2bportal/backend/internal/infrastructure/logger"
	"github.com/b2bportal/backend/internal/infrastructure/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

type engineFixture struct {
	db       *gorm.DB
	remote   *fakeRemote
	recorder *progressRecorder
	runs     *persistence.GormSyncRunRepository
	now      time.Time
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	db := newMirrorDB(t)
	return &engineFixture{
		db: db,
		remote: &fakeRemote{
			products: []integration.ProductRecord{productRecord("A1", "Oil 1L"), productRecord("C123", "Clamp")},
			prices:   []integration.PriceRecord{priceRecord("A1", 100, "1"), priceRecord("C123", 7, "1")},
			clients:  []integration.ClientRecord{{Code: "C1", Name: "Acme", VendorCode: "V1"}},
			sellers:  []integration.SellerRecord{{Code: "V1", Name: "North"}},
		},
		recorder: &progressRecorder{},
		runs:     persistence.NewGormSyncRunRepository(db),
		now:      time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *engineFixture) engine(t *testing.T, mutate ...func(*reconciliation.EngineConfig)) *reconciliation.Engine {
	t.Helper()
	cfg := reconciliation.EngineConfig{
		Remote:   f.remote,
		Scope:    persistence.NewGormTransactionScope(f.db),
		Runs:     f.runs,
		Observer: f.recorder,
		Options:  testOptions(&f.now),
	}
	for _, m := range mutate {
		m(&cfg)
	}
	engine, err := reconciliation.NewEngine(cfg)
	require.NoError(t, err)
	return engine
}

func TestNewEngine_RequiresCollaborators(t *testing.T) {
	_, err := reconciliation.NewEngine(reconciliation.EngineConfig{})
	assert.ErrorIs(t, err, reconciliation.ErrInvalidConfig)

	_, err = reconciliation.NewEngine(reconciliation.EngineConfig{Remote: &fakeRemote{}})
	assert.ErrorIs(t, err, reconciliation.ErrInvalidConfig)
}

func TestEngine_RunScoped(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	engine := f.engine(t)

	report, err := engine.RunScoped(ctx)
	require.NoError(t, err)
	assert.Equal(t, integration.SyncKindScoped, report.Kind)
	assert.Equal(t, integration.SyncStatusCompleted, report.Status)
	require.NotNil(t, report.Products)
	require.NotNil(t, report.Prices)
	assert.Nil(t, report.Clients, "scoped runs leave accounts alone")
	assert.Nil(t, report.Sellers)
	assert.Equal(t, int64(2), report.Products.Upserted)
	assert.Equal(t, 2, report.Prices.SnapshotsCreated)

	t.Run("repeat run writes nothing", func(t *testing.T) {
		f.now = f.now.Add(time.Hour)
		report, err := engine.RunScoped(ctx)
		require.NoError(t, err)
		assert.Zero(t, report.Products.Upserted)
		assert.Zero(t, report.Products.Deleted)
		assert.Zero(t, report.Prices.Updated)
		assert.Equal(t, 2, report.Prices.Unchanged)
		assert.Equal(t, 2, report.Prices.SnapshotsUnchanged)
	})

	t.Run("runs are recorded", func(t *testing.T) {
		runs, err := f.runs.FindRecent(ctx, 10)
		require.NoError(t, err)
		require.Len(t, runs, 2)
		for _, run := range runs {
			assert.Equal(t, integration.SyncStatusCompleted, run.Status)
			assert.Equal(t, integration.SyncKindScoped, run.Kind)
		}
	})
}

func TestEngine_RunFull(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	engine := f.engine(t)

	report, err := engine.RunFull(ctx)
	require.NoError(t, err)
	assert.Equal(t, integration.SyncStatusCompleted, report.Status)
	require.NotNil(t, report.Clients)
	require.NotNil(t, report.Sellers)
	assert.Equal(t, 1, report.Clients.Created)
	assert.Equal(t, 1, report.Sellers.Created)
	assert.Empty(t, report.FailedAt)
	assert.Equal(t, f.now, report.StartedAt)

	events := f.recorder.snapshot()
	require.NotEmpty(t, events)
	last := -1
	for _, ev := range events {
		assert.Equal(t, report.RunID, ev.RunID)
		require.NotNil(t, ev.Percent, "successful runs always carry a percent")
		assert.GreaterOrEqual(t, *ev.Percent, last, "percent never goes backwards: %q", ev.Message)
		assert.LessOrEqual(t, *ev.Percent, 100)
		last = *ev.Percent
	}
	assert.Equal(t, 0, *events[0].Percent)
	final := events[len(events)-1]
	assert.Equal(t, reconciliation.ProgressCompleted, final.Status)
	assert.Equal(t, 100, *final.Percent)

	stages := map[reconciliation.Stage]bool{}
	for _, ev := range events {
		stages[ev.Stage] = true
	}
	for _, st := range []reconciliation.Stage{
		reconciliation.StageProducts, reconciliation.StagePrices,
		reconciliation.StageClients, reconciliation.StageSellers,
	} {
		assert.True(t, stages[st], "no progress reported for %s", st)
	}
}

func TestEngine_StageFailureStopsRun(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	f.remote.clientsErr = integration.ErrRemoteUnavailable
	engine := f.engine(t)

	report, err := engine.RunFull(ctx)
	require.Error(t, err)

	var stageErr *reconciliation.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, reconciliation.StageClients, stageErr.Stage)
	assert.ErrorIs(t, err, reconciliation.ErrRemoteFetch)
	assert.ErrorIs(t, err, integration.ErrRemoteUnavailable)

	require.NotNil(t, report)
	assert.Equal(t, integration.SyncStatusFailed, report.Status)
	assert.Equal(t, reconciliation.StageClients, report.FailedAt)
	assert.NotNil(t, report.Products, "earlier stages stay committed")
	assert.NotNil(t, report.Prices)
	assert.Nil(t, report.Sellers, "later stages never start")

	events := f.recorder.snapshot()
	final := events[len(events)-1]
	assert.Equal(t, reconciliation.ProgressError, final.Status)
	assert.Nil(t, final.Percent)
	assert.Equal(t, reconciliation.StageClients, final.Stage)

	runs, err := f.runs.FindRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, integration.SyncStatusFailed, runs[0].Status)
	assert.Contains(t, runs[0].ErrorMessage, "clients")

	n, err := persistence.NewGormTransactionScope(f.db).Repositories().Products().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestEngine_RejectsConcurrentRun(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	var once bool
	f.remote.onProducts = func() {
		if once {
			return
		}
		once = true
		close(entered)
		<-release
	}
	engine := f.engine(t)

	done := make(chan error, 1)
	go func() {
		_, err := engine.RunScoped(ctx)
		done <- err
	}()
	<-entered

	assert.True(t, engine.Running())
	_, err := engine.RunFull(ctx)
	assert.ErrorIs(t, err, reconciliation.ErrSyncInProgress)
	_, err = engine.RunScoped(ctx)
	assert.ErrorIs(t, err, reconciliation.ErrSyncInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, engine.Running())

	_, err = engine.RunScoped(ctx)
	assert.NoError(t, err, "engine accepts a new run once the previous one finished")
}

func TestEngine_RunLock(t *testing.T) {
	ctx := context.Background()

	t.Run("held lock rejects the run", func(t *testing.T) {
		f := newEngineFixture(t)
		lock := &fakeLock{err: fmt.Errorf("%w: held by another process", reconciliation.ErrSyncInProgress)}
		engine := f.engine(t, func(cfg *reconciliation.EngineConfig) { cfg.Lock = lock })

		_, err := engine.RunScoped(ctx)
		assert.ErrorIs(t, err, reconciliation.ErrSyncInProgress)
		assert.False(t, engine.Running())

		runs, err := f.runs.FindRecent(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, runs)
		assert.Empty(t, f.recorder.snapshot())
	})

	t.Run("lock is released after the run", func(t *testing.T) {
		f := newEngineFixture(t)
		f.remote.pricesErr = integration.ErrRemoteUnavailable
		lock := &fakeLock{}
		engine := f.engine(t, func(cfg *reconciliation.EngineConfig) { cfg.Lock = lock })

		_, err := engine.RunScoped(ctx)
		require.Error(t, err)
		assert.Equal(t, int32(1), lock.acquired.Load())
		assert.Equal(t, int32(1), lock.released.Load())
	})
}

type countingMetrics struct {
	entities map[string]int64
	runs     []integration.SyncStatus
}

func (m *countingMetrics) RecordEntities(_ context.Context, entity, outcome string, count int64) {
	m.entities[entity+"/"+outcome] += count
}

func (m *countingMetrics) RecordRun(_ context.Context, _ integration.SyncKind, status integration.SyncStatus, _ time.Duration) {
	m.runs = append(m.runs, status)
}

func TestEngine_RecordsMetrics(t *testing.T) {
	f := newEngineFixture(t)
	metrics := &countingMetrics{entities: map[string]int64{}}
	engine := f.engine(t, func(cfg *reconciliation.EngineConfig) { cfg.Metrics = metrics })

	_, err := engine.RunScoped(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(2), metrics.entities["products/upserted"])
	assert.Equal(t, int64(2), metrics.entities["prices/snapshots_created"])
	assert.Equal(t, []integration.SyncStatus{integration.SyncStatusCompleted}, metrics.runs)
}

func TestEngine_ObserverPanicDoesNotFailRun(t *testing.T) {
	f := newEngineFixture(t)
	panicky := reconciliation.ProgressObserverFunc(func(context.Context, reconciliation.Progress) {
		panic("observer exploded")
	})
	engine := f.engine(t, func(cfg *reconciliation.EngineConfig) {
		cfg.Observer = reconciliation.MultiObserver{panicky}
	})

	report, err := engine.RunScoped(context.Background())
	require.NoError(t, err)
	assert.Equal(t, integration.SyncStatusCompleted, report.Status)
}

func TestEngine_StatementsCarryRunLabels(t *testing.T) {
	f := newEngineFixture(t)
	core, recorded := observer.New(zapcore.DebugLevel)
	traced := f.db.Session(&gorm.Session{Logger: logger.WithLogLevel(zap.New(core), "debug", 0)})
	engine := f.engine(t, func(cfg *reconciliation.EngineConfig) {
		cfg.Scope = persistence.NewGormTransactionScope(traced)
	})

	report, err := engine.RunScoped(context.Background())
	require.NoError(t, err)

	stageOf := func(table string) map[string]bool {
		stages := map[string]bool{}
		for _, e := range recorded.All() {
			fields := e.ContextMap()
			sql, _ := fields["sql"].(string)
			if !strings.Contains(sql, table) {
				continue
			}
			assert.Equal(t, report.RunID.String(), fields["run_id"], sql)
			assert.Equal(t, "scoped", fields["kind"], sql)
			stage, _ := fields["stage"].(string)
			stages[stage] = true
		}
		return stages
	}

	assert.True(t, stageOf("products")["products"], "product upserts are labelled with their stage")
	assert.Equal(t, map[string]bool{"prices": true}, stageOf("price_snapshots"))
}
