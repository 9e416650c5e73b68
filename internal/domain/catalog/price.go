package catalog

import (
	"time"

	"github.com/b2bportal/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DefaultPriceTolerance is the largest price delta still considered equal
var DefaultPriceTolerance = decimal.New(1, -2)

// PricesDiffer reports whether two prices differ by strictly more than tolerance
func PricesDiffer(a, b, tolerance decimal.Decimal) bool {
	return a.Sub(b).Abs().GreaterThan(tolerance)
}

// PriceOutcomeKind classifies the result of comparing a remote price with the live one
type PriceOutcomeKind int

const (
	// PriceUnchanged means only the sync timestamp needs a refresh
	PriceUnchanged PriceOutcomeKind = iota
	// PriceUpdated means price or currency must be rewritten
	PriceUpdated
)

// PriceOutcome is the per-record result of the live price phase
type PriceOutcome struct {
	Kind        PriceOutcomeKind
	Code        string
	OldPrice    decimal.Decimal
	NewPrice    decimal.Decimal
	OldCurrency CurrencyIndicator
	NewCurrency CurrencyIndicator
}

// Updated reports whether the outcome requires a write
func (o PriceOutcome) Updated() bool {
	return o.Kind == PriceUpdated
}

// EvaluatePrice compares a proposed price against the current live state.
// A currency change always counts as an update, regardless of the amount.
func EvaluatePrice(code string, current PriceState, price decimal.Decimal, currency CurrencyIndicator, tolerance decimal.Decimal) PriceOutcome {
	outcome := PriceOutcome{
		Kind:        PriceUnchanged,
		Code:        code,
		OldPrice:    current.Price,
		NewPrice:    current.Price,
		OldCurrency: current.Currency,
		NewCurrency: current.Currency,
	}
	if PricesDiffer(current.Price, price, tolerance) || current.Currency != currency {
		outcome.Kind = PriceUpdated
		outcome.NewPrice = price
		outcome.NewCurrency = currency
	}
	return outcome
}

// PriceSnapshot remembers the last observed price of a product and when it changed
type PriceSnapshot struct {
	shared.BaseEntity
	ProductID    shared.ID
	ProductCode  string
	Price        decimal.Decimal
	LastChangeAt time.Time
}

// NewPriceSnapshot creates the first snapshot for a product, stamped at observedAt
func NewPriceSnapshot(productID shared.ID, code string, price decimal.Decimal, observedAt time.Time) *PriceSnapshot {
	return &PriceSnapshot{
		BaseEntity:   shared.NewBaseEntity(),
		ProductID:    productID,
		ProductCode:  code,
		Price:        price,
		LastChangeAt: observedAt,
	}
}

// Observe records a newly seen price. The snapshot only moves when the price
// differs by more than tolerance, in which case LastChangeAt advances to
// observedAt and true is returned.
func (s *PriceSnapshot) Observe(price decimal.Decimal, observedAt time.Time, tolerance decimal.Decimal) bool {
	if !PricesDiffer(s.Price, price, tolerance) {
		return false
	}
	s.Price = price
	s.LastChangeAt = observedAt
	s.UpdatedAt = observedAt
	return true
}
