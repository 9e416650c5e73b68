package reconciliation

import (
	"context"

	"github.com/b2bportal/backend/internal/domain/catalog"
	"github.com/b2bportal/backend/internal/domain/partner"
)

// TransactionScope provides transactional access to the mirror repositories.
// Each Execute call is one unit of work: a chunk, a phase slice, or a whole
// client or seller pass.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos Repositories) error) error

	// Repositories returns repositories bound to no transaction, for the bulk
	// reads that precede a batch. They must not be used while Execute runs.
	Repositories() Repositories
}

// Repositories provides access to the mirror repositories.
// Within Execute, all repositories share the same underlying transaction.
type Repositories interface {
	// Products returns the product mirror repository
	Products() catalog.ProductRepository
	// PriceSnapshots returns the price snapshot repository
	PriceSnapshots() catalog.PriceSnapshotRepository
	// Clients returns the client account repository
	Clients() partner.ClientRepository
	// Sellers returns the vendor directory repository
	Sellers() partner.SellerRepository
	// Denials returns the product-group denial repository
	Denials() partner.DenialRepository
}
