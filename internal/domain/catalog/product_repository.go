package catalog

import (
	"context"
	"time"

	"github.com/b2bportal/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ProductRepository defines persistence for the product mirror.
// Batch writes are expected to run inside a transaction owned by the caller.
type ProductRepository interface {
	// FindByCode finds a product by its ERP code
	FindByCode(ctx context.Context, code string) (*Product, error)

	// UpsertBatch inserts new products and updates existing ones by code.
	// Rows whose denormalized fields are unchanged are left untouched; the
	// returned count covers only rows actually written.
	UpsertBatch(ctx context.Context, products []*Product) (int64, error)

	// ListCodes returns every product code present locally
	ListCodes(ctx context.Context) ([]string, error)

	// DeleteByCodes deletes the products with the given codes
	DeleteByCodes(ctx context.Context, codes []string) (int64, error)

	// LoadPriceStates returns the live price of every product keyed by code
	LoadPriceStates(ctx context.Context) (map[string]PriceState, error)

	// UpdatePrice writes a new live price and currency and stamps the sync time
	UpdatePrice(ctx context.Context, code string, price decimal.Decimal, currency CurrencyIndicator, syncedAt time.Time) error

	// TouchSynced refreshes only last_synced_at for the given codes
	TouchSynced(ctx context.Context, codes []string, syncedAt time.Time) (int64, error)

	// Count returns the number of mirrored products
	Count(ctx context.Context) (int64, error)
}

// PriceSnapshotRepository defines persistence for price change snapshots
type PriceSnapshotRepository interface {
	// FindByProductCode finds the snapshot of a product
	FindByProductCode(ctx context.Context, code string) (*PriceSnapshot, error)

	// LoadAll returns every snapshot keyed by product code
	LoadAll(ctx context.Context) (map[string]*PriceSnapshot, error)

	// Create inserts a snapshot
	Create(ctx context.Context, snapshot *PriceSnapshot) error

	// UpdatePrice persists the snapshot's price and change timestamp
	UpdatePrice(ctx context.Context, snapshot *PriceSnapshot) error

	// DeleteByProductCodes deletes the snapshots of the given products
	DeleteByProductCodes(ctx context.Context, codes []string) (int64, error)
}

// ErrProductNotFound is returned when a product code is not mirrored
var ErrProductNotFound = shared.NewDomainError("PRODUCT_NOT_FOUND", "Product not found")

// ErrSnapshotNotFound is returned when a product has no price snapshot
var ErrSnapshotNotFound = shared.NewDomainError("SNAPSHOT_NOT_FOUND", "Price snapshot not found")
