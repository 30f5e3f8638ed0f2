package repositories

import (
	"context"
	"strings"

	"guilance/src/models"

	"gorm.io/gorm"
)

type DiscountRepository interface {
	Create(ctx context.Context, code *models.DiscountCode) error
	// FindByCode matches case-insensitively and preloads the applicable events.
	FindByCode(ctx context.Context, code string) (*models.DiscountCode, error)
}

type GormDiscountRepository struct {
	db *gorm.DB
}

func NewGormDiscountRepository(db *gorm.DB) *GormDiscountRepository {
	return &GormDiscountRepository{db: db}
}

func (r *GormDiscountRepository) Create(ctx context.Context, code *models.DiscountCode) error {
	return r.db.WithContext(ctx).Create(code).Error
}

func (r *GormDiscountRepository) FindByCode(ctx context.Context, code string) (*models.DiscountCode, error) {
	var discount models.DiscountCode
	err := r.db.WithContext(ctx).
		Where("UPPER(code) = ?", strings.ToUpper(strings.TrimSpace(code))).
		Preload("ApplicableEvents").
		First(&discount).
		Error
	if err != nil {
		return nil, notFound(err)
	}
	return &discount, nil
}
