package reconciliation_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/b2bportal/backend/internal/application/reconciliation"
	"github.com/b2bportal/backend/internal/domain/integration"
	"github.com/b2bportal/backend/internal/domain/partner"
	"github.com/b2bportal/backend/internal/infrastructure/persistence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var errBoom = errors.New("boom")

// fakeRemote serves fixed listings. Each listing can be made to fail.
type fakeRemote struct {
	mu sync.Mutex

	products        []integration.ProductRecord
	prices          []integration.PriceRecord
	clients         []integration.ClientRecord
	sellers         []integration.SellerRecord
	groups          []integration.GroupRecord
	capacities      []integration.CapacityRecord
	stockIndicators []integration.StockIndicatorRecord

	productsErr error
	pricesErr   error
	clientsErr  error
	sellersErr  error
	groupsErr   error

	// onProducts runs before the product listing is returned
	onProducts func()
}

func listing[T any](ctx context.Context, records []T, err error, fn integration.PageFunc[T]) ([]T, error) {
	if err != nil {
		return nil, err
	}
	out := append([]T(nil), records...)
	if fn == nil {
		return out, nil
	}
	if err := fn(ctx, 1, out); err != nil {
		return nil, err
	}
	return nil, nil
}

func (f *fakeRemote) ListProducts(ctx context.Context, fn integration.PageFunc[integration.ProductRecord]) ([]integration.ProductRecord, error) {
	if f.onProducts != nil {
		f.onProducts()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return listing(ctx, f.products, f.productsErr, fn)
}

func (f *fakeRemote) ListPrices(ctx context.Context, fn integration.PageFunc[integration.PriceRecord]) ([]integration.PriceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return listing(ctx, f.prices, f.pricesErr, fn)
}

func (f *fakeRemote) ListClients(ctx context.Context, fn integration.PageFunc[integration.ClientRecord]) ([]integration.ClientRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return listing(ctx, f.clients, f.clientsErr, fn)
}

func (f *fakeRemote) ListSellers(ctx context.Context, fn integration.PageFunc[integration.SellerRecord]) ([]integration.SellerRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return listing(ctx, f.sellers, f.sellersErr, fn)
}

func (f *fakeRemote) ListProductGroups(ctx context.Context, fn integration.PageFunc[integration.GroupRecord]) ([]integration.GroupRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return listing(ctx, f.groups, f.groupsErr, fn)
}

func (f *fakeRemote) ListStockCapacities(ctx context.Context, fn integration.PageFunc[integration.CapacityRecord]) ([]integration.CapacityRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return listing(ctx, f.capacities, nil, fn)
}

func (f *fakeRemote) ListStockIndicators(ctx context.Context, fn integration.PageFunc[integration.StockIndicatorRecord]) ([]integration.StockIndicatorRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return listing(ctx, f.stockIndicators, nil, fn)
}

var _ integration.RemoteCatalog = (*fakeRemote)(nil)

func productRecord(code, description string) integration.ProductRecord {
	return integration.ProductRecord{
		Code:           code,
		Description:    description,
		GroupCode:      "G1",
		StockAvailable: decimal.NewFromInt(10),
		StockReserved:  decimal.NewFromInt(1),
		Unit:           "UN",
		PackQty:        decimal.NewFromInt(1),
		InclusionDate:  "2024-01-15",
	}
}

func priceRecord(code string, price int64, currency string) integration.PriceRecord {
	return integration.PriceRecord{ProductCode: code, Price: decimal.NewFromInt(price), Currency: currency}
}

// newMirrorDB opens an in-memory SQLite mirror. A single connection keeps
// every statement on the same database.
func newMirrorDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, persistence.AutoMigrate(db))
	return db
}

// fixedClock returns a clock reading whatever *now holds
func fixedClock(now *time.Time) func() time.Time {
	return func() time.Time { return *now }
}

func testOptions(now *time.Time) reconciliation.Options {
	opts := reconciliation.DefaultOptions()
	opts.Clock = fixedClock(now)
	return opts
}

// failingScope fails the failOn-th Execute call without running it
type failingScope struct {
	reconciliation.TransactionScope
	failOn int
	calls  atomic.Int32
}

func (s *failingScope) Execute(ctx context.Context, fn func(repos reconciliation.Repositories) error) error {
	if int(s.calls.Add(1)) == s.failOn {
		return errBoom
	}
	return s.TransactionScope.Execute(ctx, fn)
}

// progressRecorder keeps every event it sees
type progressRecorder struct {
	mu     sync.Mutex
	events []reconciliation.Progress
}

func (r *progressRecorder) OnProgress(_ context.Context, p reconciliation.Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, p)
}

func (r *progressRecorder) snapshot() []reconciliation.Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]reconciliation.Progress(nil), r.events...)
}

// fakeLock grants or refuses the run lock and counts releases
type fakeLock struct {
	err      error
	acquired atomic.Int32
	released atomic.Int32
}

func (l *fakeLock) TryAcquire(context.Context) (func(context.Context), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.acquired.Add(1)
	return func(context.Context) { l.released.Add(1) }, nil
}

func seedSeller(t *testing.T, scope reconciliation.TransactionScope, code string, groups ...string) *partner.Seller {
	t.Helper()
	ctx := context.Background()
	seller, err := partner.NewSeller(code, partner.SellerProfile{Name: "Seller " + code})
	require.NoError(t, err)
	repos := scope.Repositories()
	require.NoError(t, repos.Sellers().Create(ctx, seller))
	for _, g := range groups {
		d, err := partner.NewProductGroupDenial(seller.ID, g, partner.DenialRoleSeller)
		require.NoError(t, err)
		require.NoError(t, repos.Denials().Create(ctx, d))
	}
	return seller
}
