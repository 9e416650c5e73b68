package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/b2bportal/backend/internal/domain/catalog"
	"github.com/b2bportal/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProductRepository implements ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByCode finds a product by its ERP code
func (r *GormProductRepository) FindByCode(ctx context.Context, code string) (*catalog.Product, error) {
	var model models.ProductModel
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// UpsertBatch inserts or updates products by code in a single statement.
// The conflict update is guarded so a row is only rewritten when one of the
// ERP-owned columns is distinct from the incoming value.
func (r *GormProductRepository) UpsertBatch(ctx context.Context, products []*catalog.Product) (int64, error) {
	if len(products) == 0 {
		return 0, nil
	}
	rows := make([]*models.ProductModel, len(products))
	for i, p := range products {
		rows[i] = models.ProductFromDomain(p)
	}

	updates := append(append([]string{}, models.ProductSyncColumns...), "updated_at")
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns(updates),
			Where: clause.Where{Exprs: []clause.Expression{
				distinctFromExcluded(models.ProductModel{}.TableName(), models.ProductSyncColumns),
			}},
		}).
		Create(&rows)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// distinctFromExcluded builds "t.c1 IS DISTINCT FROM excluded.c1 OR ..."
func distinctFromExcluded(table string, columns []string) clause.Expr {
	conds := make([]string, len(columns))
	for i, c := range columns {
		conds[i] = fmt.Sprintf("%s.%s IS DISTINCT FROM excluded.%s", table, c, c)
	}
	return clause.Expr{SQL: strings.Join(conds, " OR ")}
}

// ListCodes returns every product code present locally
func (r *GormProductRepository) ListCodes(ctx context.Context) ([]string, error) {
	var codes []string
	if err := r.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Order("code").
		Pluck("code", &codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}

// DeleteByCodes deletes the products with the given codes
func (r *GormProductRepository) DeleteByCodes(ctx context.Context, codes []string) (int64, error) {
	if len(codes) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Where("code IN ?", codes).Delete(&models.ProductModel{})
	return result.RowsAffected, result.Error
}

// LoadPriceStates returns the live price of every product keyed by code
func (r *GormProductRepository) LoadPriceStates(ctx context.Context) (map[string]catalog.PriceState, error) {
	var rows []models.ProductModel
	if err := r.db.WithContext(ctx).
		Select("id", "code", "price", "currency_indicator").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	states := make(map[string]catalog.PriceState, len(rows))
	for _, row := range rows {
		states[row.Code] = catalog.PriceState{
			ProductID: row.ID,
			Price:     row.Price,
			Currency:  row.CurrencyIndicator,
		}
	}
	return states, nil
}

// UpdatePrice writes a new live price and currency and stamps the sync time
func (r *GormProductRepository) UpdatePrice(ctx context.Context, code string, price decimal.Decimal, currency catalog.CurrencyIndicator, syncedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Where("code = ?", code).
		UpdateColumns(map[string]any{
			"price":              price,
			"currency_indicator": currency,
			"last_synced_at":     syncedAt,
			"updated_at":         syncedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return catalog.ErrProductNotFound
	}
	return nil
}

// TouchSynced refreshes only last_synced_at for the given codes
func (r *GormProductRepository) TouchSynced(ctx context.Context, codes []string, syncedAt time.Time) (int64, error) {
	if len(codes) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Where("code IN ?", codes).
		UpdateColumn("last_synced_at", syncedAt)
	return result.RowsAffected, result.Error
}

// Count returns the number of mirrored products
func (r *GormProductRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ProductModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormProductRepository implements ProductRepository
var _ catalog.ProductRepository = (*GormProductRepository)(nil)
