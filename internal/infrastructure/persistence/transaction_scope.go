package persistence

import (
	"context"

	"github.com/b2bportal/backend/internal/application/reconciliation"
	"github.com/b2bportal/backend/internal/domain/catalog"
	"github.com/b2bportal/backend/internal/domain/partner"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos reconciliation.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepositories{db: tx})
	})
}

// Repositories returns repositories bound to the base connection pool.
func (s *GormTransactionScope) Repositories() reconciliation.Repositories {
	return &gormRepositories{db: s.db}
}

// gormRepositories hands out repositories sharing one *gorm.DB, which is a
// transaction inside Execute.
type gormRepositories struct {
	db *gorm.DB
}

// Products returns the product mirror repository
func (r *gormRepositories) Products() catalog.ProductRepository {
	return NewGormProductRepository(r.db)
}

// PriceSnapshots returns the price snapshot repository
func (r *gormRepositories) PriceSnapshots() catalog.PriceSnapshotRepository {
	return NewGormPriceSnapshotRepository(r.db)
}

// Clients returns the client account repository
func (r *gormRepositories) Clients() partner.ClientRepository {
	return NewGormClientRepository(r.db)
}

// Sellers returns the vendor directory repository
func (r *gormRepositories) Sellers() partner.SellerRepository {
	return NewGormSellerRepository(r.db)
}

// Denials returns the product-group denial repository
func (r *gormRepositories) Denials() partner.DenialRepository {
	return NewGormDenialRepository(r.db)
}

// Ensure GormTransactionScope implements TransactionScope
var _ reconciliation.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormRepositories implements Repositories
var _ reconciliation.Repositories = (*gormRepositories)(nil)
