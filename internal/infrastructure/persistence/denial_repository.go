package persistence

import (
	"context"

	"github.com/b2bportal/backend/internal/domain/partner"
	"github.com/b2bportal/backend/internal/domain/shared"
	"github.com/b2bportal/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormDenialRepository implements DenialRepository using GORM
type GormDenialRepository struct {
	db *gorm.DB
}

// NewGormDenialRepository creates a new GormDenialRepository
func NewGormDenialRepository(db *gorm.DB) *GormDenialRepository {
	return &GormDenialRepository{db: db}
}

// Create inserts a single rule
func (r *GormDenialRepository) Create(ctx context.Context, denial *partner.ProductGroupDenial) error {
	return r.db.WithContext(ctx).Create(models.DenialFromDomain(denial)).Error
}

// FindGroupsByUser returns the denied product groups of a user
func (r *GormDenialRepository) FindGroupsByUser(ctx context.Context, userID shared.ID) ([]string, error) {
	var groups []string
	if err := r.db.WithContext(ctx).
		Model(&models.ProductGroupDenialModel{}).
		Where("user_id = ?", userID).
		Order("product_group").
		Pluck("product_group", &groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

// InsertIfAbsent inserts the rules whose (user, group) pair does not exist yet
func (r *GormDenialRepository) InsertIfAbsent(ctx context.Context, denials []*partner.ProductGroupDenial) (int64, error) {
	if len(denials) == 0 {
		return 0, nil
	}
	rows := make([]*models.ProductGroupDenialModel, len(denials))
	for i, d := range denials {
		rows[i] = models.DenialFromDomain(d)
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_group"}},
			DoNothing: true,
		}).
		Create(&rows)
	return result.RowsAffected, result.Error
}

// DeleteByUsers deletes every rule owned by the given users
func (r *GormDenialRepository) DeleteByUsers(ctx context.Context, userIDs []shared.ID) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Delete(&models.ProductGroupDenialModel{})
	return result.RowsAffected, result.Error
}

// Ensure GormDenialRepository implements DenialRepository
var _ partner.DenialRepository = (*GormDenialRepository)(nil)
