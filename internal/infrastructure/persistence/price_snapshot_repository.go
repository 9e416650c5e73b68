package persistence

import (
	"context"
	"errors"

	"github.com/b2bportal/backend/internal/domain/catalog"
	"github.com/b2bportal/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPriceSnapshotRepository implements PriceSnapshotRepository using GORM
type GormPriceSnapshotRepository struct {
	db *gorm.DB
}

// NewGormPriceSnapshotRepository creates a new GormPriceSnapshotRepository
func NewGormPriceSnapshotRepository(db *gorm.DB) *GormPriceSnapshotRepository {
	return &GormPriceSnapshotRepository{db: db}
}

// FindByProductCode finds the snapshot of a product
func (r *GormPriceSnapshotRepository) FindByProductCode(ctx context.Context, code string) (*catalog.PriceSnapshot, error) {
	var model models.PriceSnapshotModel
	if err := r.db.WithContext(ctx).Where("product_code = ?", code).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrSnapshotNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// LoadAll returns every snapshot keyed by product code
func (r *GormPriceSnapshotRepository) LoadAll(ctx context.Context) (map[string]*catalog.PriceSnapshot, error) {
	var rows []models.PriceSnapshotModel
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	snapshots := make(map[string]*catalog.PriceSnapshot, len(rows))
	for i := range rows {
		snapshots[rows[i].ProductCode] = rows[i].ToDomain()
	}
	return snapshots, nil
}

// Create inserts a snapshot
func (r *GormPriceSnapshotRepository) Create(ctx context.Context, snapshot *catalog.PriceSnapshot) error {
	return r.db.WithContext(ctx).Create(models.PriceSnapshotFromDomain(snapshot)).Error
}

// UpdatePrice persists the snapshot's price and change timestamp
func (r *GormPriceSnapshotRepository) UpdatePrice(ctx context.Context, snapshot *catalog.PriceSnapshot) error {
	result := r.db.WithContext(ctx).
		Model(&models.PriceSnapshotModel{}).
		Where("product_code = ?", snapshot.ProductCode).
		UpdateColumns(map[string]any{
			"price":          snapshot.Price,
			"last_change_at": snapshot.LastChangeAt,
			"updated_at":     snapshot.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return catalog.ErrSnapshotNotFound
	}
	return nil
}

// DeleteByProductCodes deletes the snapshots of the given products
func (r *GormPriceSnapshotRepository) DeleteByProductCodes(ctx context.Context, codes []string) (int64, error) {
	if len(codes) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Where("product_code IN ?", codes).Delete(&models.PriceSnapshotModel{})
	return result.RowsAffected, result.Error
}

// Ensure GormPriceSnapshotRepository implements PriceSnapshotRepository
var _ catalog.PriceSnapshotRepository = (*GormPriceSnapshotRepository)(nil)
