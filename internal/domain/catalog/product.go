package catalog

import (
	"strings"
	"time"

	"github.com/b2bportal/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Product is the local mirror of an ERP catalog item.
// Descriptive and stock fields are owned by the ERP; price and currency are
// maintained by the price synchronizer.
type Product struct {
	shared.BaseEntity
	Code                      string
	Description               string
	GroupCode                 string
	GroupDescription          string
	CapacityDescription       string
	StockAvailable            decimal.Decimal
	StockReserved             decimal.Decimal
	Unit                      string
	PackQty                   decimal.Decimal
	StockIndicatorDescription string
	InclusionDate             *time.Time
	ModificationDate          *time.Time
	Price                     decimal.Decimal
	Currency                  CurrencyIndicator
	LastSyncedAt              *time.Time
}

// NewProduct creates a product mirror row for the given ERP code.
// Codes are trimmed; an empty code is rejected.
func NewProduct(code string) (*Product, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT_CODE", "Product code cannot be empty")
	}
	return &Product{
		BaseEntity:     shared.NewBaseEntity(),
		Code:           code,
		StockAvailable: decimal.Zero,
		StockReserved:  decimal.Zero,
		PackQty:        decimal.Zero,
		Price:          decimal.Zero,
		Currency:       CurrencyLocal,
	}, nil
}

// AvailableForSale returns available stock minus the reserved safety stock, floored at zero.
func (p *Product) AvailableForSale() decimal.Decimal {
	free := p.StockAvailable.Sub(p.StockReserved)
	if free.IsNegative() {
		return decimal.Zero
	}
	return free
}

// PriceState is the live price projection of a product as loaded for Phase A.
type PriceState struct {
	ProductID shared.ID
	Price     decimal.Decimal
	Currency  CurrencyIndicator
}
