package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/b2bportal/backend/internal/domain/partner"
	"github.com/b2bportal/backend/internal/domain/shared"
	"github.com/b2bportal/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormSellerRepository implements SellerRepository using GORM
type GormSellerRepository struct {
	db *gorm.DB
}

// NewGormSellerRepository creates a new GormSellerRepository
func NewGormSellerRepository(db *gorm.DB) *GormSellerRepository {
	return &GormSellerRepository{db: db}
}

// FindByCode finds a seller by vendor code
func (r *GormSellerRepository) FindByCode(ctx context.Context, code string) (*partner.Seller, error) {
	var model models.SellerModel
	if err := r.db.WithContext(ctx).Where("vendor_code = ?", code).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, partner.ErrSellerNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// LoadAll returns every seller keyed by vendor code
func (r *GormSellerRepository) LoadAll(ctx context.Context) (map[string]*partner.Seller, error) {
	var rows []models.SellerModel
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	sellers := make(map[string]*partner.Seller, len(rows))
	for i := range rows {
		sellers[rows[i].VendorCode] = rows[i].ToDomain()
	}
	return sellers, nil
}

// Create inserts a seller
func (r *GormSellerRepository) Create(ctx context.Context, seller *partner.Seller) error {
	return r.db.WithContext(ctx).Create(models.SellerFromDomain(seller)).Error
}

// Update persists the ERP-owned fields and sync timestamp
func (r *GormSellerRepository) Update(ctx context.Context, seller *partner.Seller) error {
	result := r.db.WithContext(ctx).
		Model(&models.SellerModel{}).
		Where("id = ?", seller.ID).
		UpdateColumns(map[string]any{
			"name":           seller.Name,
			"email":          seller.Email,
			"phone":          seller.Phone,
			"last_synced_at": seller.LastSyncedAt,
			"updated_at":     seller.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return partner.ErrSellerNotFound
	}
	return nil
}

// TouchSynced refreshes only last_synced_at for the given accounts
func (r *GormSellerRepository) TouchSynced(ctx context.Context, ids []shared.ID, syncedAt time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.SellerModel{}).
		Where("id IN ?", ids).
		UpdateColumn("last_synced_at", syncedAt)
	return result.RowsAffected, result.Error
}

// DeleteByIDs deletes the given accounts
func (r *GormSellerRepository) DeleteByIDs(ctx context.Context, ids []shared.ID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.SellerModel{})
	return result.RowsAffected, result.Error
}

// Ensure GormSellerRepository implements SellerRepository
var _ partner.SellerRepository = (*GormSellerRepository)(nil)
