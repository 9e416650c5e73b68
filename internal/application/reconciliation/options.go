package reconciliation

import (
	"time"

	"github.com/b2bportal/backend/internal/domain/catalog"
	"github.com/b2bportal/backend/internal/domain/partner"
	"github.com/shopspring/decimal"
)

// Options tunes batch sizes and policies of the synchronizers
type Options struct {
	// ProductChunkSize is the number of products upserted per transaction
	ProductChunkSize int
	// PriceCommitSize is the number of price records processed per transaction, in both phases
	PriceCommitSize int
	// TouchChunkSize is the number of codes refreshed per set-based timestamp update
	TouchChunkSize int
	// DeleteChunkSize bounds the IN list of delete-by-absence statements
	DeleteChunkSize int
	// PriceTolerance is the largest delta treated as an unchanged price
	PriceTolerance decimal.Decimal
	// IsAdministrative marks client accounts synchronization must never touch
	IsAdministrative partner.AdministrativePredicate
	// Clock supplies the run timestamp
	Clock func() time.Time
}

// DefaultOptions returns the production defaults
func DefaultOptions() Options {
	return Options{
		ProductChunkSize: 500,
		PriceCommitSize:  500,
		TouchChunkSize:   1000,
		DeleteChunkSize:  1000,
		PriceTolerance:   catalog.DefaultPriceTolerance,
		IsAdministrative: partner.IsAdministrative,
		Clock:            time.Now,
	}
}

// withDefaults fills every zero field from DefaultOptions
func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.ProductChunkSize <= 0 {
		o.ProductChunkSize = def.ProductChunkSize
	}
	if o.PriceCommitSize <= 0 {
		o.PriceCommitSize = def.PriceCommitSize
	}
	if o.TouchChunkSize <= 0 {
		o.TouchChunkSize = def.TouchChunkSize
	}
	if o.DeleteChunkSize <= 0 {
		o.DeleteChunkSize = def.DeleteChunkSize
	}
	if o.PriceTolerance.IsNegative() || o.PriceTolerance.IsZero() {
		o.PriceTolerance = def.PriceTolerance
	}
	if o.IsAdministrative == nil {
		o.IsAdministrative = def.IsAdministrative
	}
	if o.Clock == nil {
		o.Clock = def.Clock
	}
	return o
}
