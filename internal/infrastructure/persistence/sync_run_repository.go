package persistence

import (
	"context"
	"errors"

	"github.com/b2bportal/backend/internal/domain/integration"
	"github.com/b2bportal/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormSyncRunRepository implements SyncRunRepository using GORM
type GormSyncRunRepository struct {
	db *gorm.DB
}

// NewGormSyncRunRepository creates a new GormSyncRunRepository
func NewGormSyncRunRepository(db *gorm.DB) *GormSyncRunRepository {
	return &GormSyncRunRepository{db: db}
}

// Save creates or updates a run
func (r *GormSyncRunRepository) Save(ctx context.Context, run *integration.SyncRun) error {
	model, err := models.SyncRunFromDomain(run)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(model).Error
}

// FindLatest returns the most recent run of the given kind, or of any kind when kind is empty
func (r *GormSyncRunRepository) FindLatest(ctx context.Context, kind integration.SyncKind) (*integration.SyncRun, error) {
	query := r.db.WithContext(ctx).Order("started_at DESC")
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}
	var model models.SyncRunModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrSyncRunNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindRecent returns up to limit runs, newest first
func (r *GormSyncRunRepository) FindRecent(ctx context.Context, limit int) ([]integration.SyncRun, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []models.SyncRunModel
	if err := r.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	runs := make([]integration.SyncRun, len(rows))
	for i := range rows {
		runs[i] = *rows[i].ToDomain()
	}
	return runs, nil
}

// Ensure GormSyncRunRepository implements SyncRunRepository
var _ integration.SyncRunRepository = (*GormSyncRunRepository)(nil)
