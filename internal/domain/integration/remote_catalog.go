package integration

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Remote Records
// ---------------------------------------------------------------------------

// ProductRecord is a catalog item as listed by the ERP
type ProductRecord struct {
	Code              string
	Description       string
	GroupCode         string
	CapacityCode      string
	StockIndicatorKey string
	StockAvailable    decimal.Decimal
	StockReserved     decimal.Decimal
	Unit              string
	PackQty           decimal.Decimal
	InclusionDate     string
	ModificationDate  string
	// Timestamp is the ERP's internal change marker, kept for diagnostics
	Timestamp string
}

// PriceRecord is the current list price of a product
type PriceRecord struct {
	ProductCode string
	Price       decimal.Decimal
	// Currency is the raw price type, "1" local, "2" USD cash, "3" USD market
	Currency string
}

// ClientRecord is a customer account as listed by the ERP
type ClientRecord struct {
	Code       string
	Name       string
	Email      string
	TaxID      string
	Phone      string
	Street     string
	Number     string
	City       string
	Province   string
	PostalCode string
	VendorCode string
}

// SellerRecord is a vendor directory entry as listed by the ERP
type SellerRecord struct {
	Code  string
	Name  string
	Email string
	Phone string
}

// GroupRecord is a product group dictionary entry
type GroupRecord struct {
	Code        string
	Description string
}

// CapacityRecord is a unit capacity dictionary entry
type CapacityRecord struct {
	Code        string
	Description string
}

// StockIndicatorRecord is a stock indicator dictionary entry
type StockIndicatorRecord struct {
	Key         string
	Description string
}

// ---------------------------------------------------------------------------
// Remote Catalog Port
// ---------------------------------------------------------------------------

// PageFunc is invoked once per fetched page, in page order.
// Returning an error stops the listing and is propagated to the caller.
type PageFunc[T any] func(ctx context.Context, page int, records []T) error

// RemoteCatalog is the paged ERP catalog API.
// Every List operation walks all pages. When fn is non-nil each page is handed
// to fn and the returned slice is nil, so callers can stream large listings
// instead of buffering them.
type RemoteCatalog interface {
	ListProducts(ctx context.Context, fn PageFunc[ProductRecord]) ([]ProductRecord, error)
	ListPrices(ctx context.Context, fn PageFunc[PriceRecord]) ([]PriceRecord, error)
	ListClients(ctx context.Context, fn PageFunc[ClientRecord]) ([]ClientRecord, error)
	ListSellers(ctx context.Context, fn PageFunc[SellerRecord]) ([]SellerRecord, error)
	ListProductGroups(ctx context.Context, fn PageFunc[GroupRecord]) ([]GroupRecord, error)
	ListStockCapacities(ctx context.Context, fn PageFunc[CapacityRecord]) ([]CapacityRecord, error)
	ListStockIndicators(ctx context.Context, fn PageFunc[StockIndicatorRecord]) ([]StockIndicatorRecord, error)
}

// Remote catalog errors
var (
	// ErrRemoteUnavailable indicates the ERP could not be reached
	ErrRemoteUnavailable = errors.New("integration: remote catalog unavailable")
	// ErrRemoteRequestFailed indicates the ERP answered with a non-success status
	ErrRemoteRequestFailed = errors.New("integration: remote catalog request failed")
	// ErrRemoteInvalidResponse indicates the ERP payload could not be decoded
	ErrRemoteInvalidResponse = errors.New("integration: remote catalog returned an invalid response")
)
