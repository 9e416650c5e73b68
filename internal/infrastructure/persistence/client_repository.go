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

// GormClientRepository implements ClientRepository using GORM
type GormClientRepository struct {
	db *gorm.DB
}

// NewGormClientRepository creates a new GormClientRepository
func NewGormClientRepository(db *gorm.DB) *GormClientRepository {
	return &GormClientRepository{db: db}
}

// FindByCode finds a client by customer code
func (r *GormClientRepository) FindByCode(ctx context.Context, code string) (*partner.Client, error) {
	var model models.ClientModel
	if err := r.db.WithContext(ctx).Where("customer_code = ?", code).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, partner.ErrClientNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// LoadAll returns every client keyed by customer code
func (r *GormClientRepository) LoadAll(ctx context.Context) (map[string]*partner.Client, error) {
	var rows []models.ClientModel
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	clients := make(map[string]*partner.Client, len(rows))
	for i := range rows {
		clients[rows[i].CustomerCode] = rows[i].ToDomain()
	}
	return clients, nil
}

// Create inserts a client
func (r *GormClientRepository) Create(ctx context.Context, client *partner.Client) error {
	return r.db.WithContext(ctx).Create(models.ClientFromDomain(client)).Error
}

// Update persists the ERP-owned fields and sync timestamp.
// The admin flag is owned by the portal and never written here.
func (r *GormClientRepository) Update(ctx context.Context, client *partner.Client) error {
	result := r.db.WithContext(ctx).
		Model(&models.ClientModel{}).
		Where("id = ?", client.ID).
		UpdateColumns(map[string]any{
			"name":           client.Name,
			"email":          client.Email,
			"tax_id":         client.TaxID,
			"phone":          client.Phone,
			"address":        client.Address,
			"vendor_code":    client.VendorCode,
			"last_synced_at": client.LastSyncedAt,
			"updated_at":     client.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return partner.ErrClientNotFound
	}
	return nil
}

// TouchSynced refreshes only last_synced_at for the given accounts
func (r *GormClientRepository) TouchSynced(ctx context.Context, ids []shared.ID, syncedAt time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.ClientModel{}).
		Where("id IN ?", ids).
		UpdateColumn("last_synced_at", syncedAt)
	return result.RowsAffected, result.Error
}

// DeleteByIDs deletes the given accounts
func (r *GormClientRepository) DeleteByIDs(ctx context.Context, ids []shared.ID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.ClientModel{})
	return result.RowsAffected, result.Error
}

// Ensure GormClientRepository implements ClientRepository
var _ partner.ClientRepository = (*GormClientRepository)(nil)
