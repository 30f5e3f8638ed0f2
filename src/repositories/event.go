package repositories

import (
	"context"
	"strings"
	"time"

	"guilance/src/models"
	"guilance/src/models/scopes"
	"guilance/src/types"

	"gorm.io/gorm"
)

type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	FindByID(ctx context.Context, id uint) (*models.Event, error)
	// FindByIDForUpdate locks the row until the surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, id uint) (*models.Event, error)
	FindPublishedBySlug(ctx context.Context, slug string) (*models.Event, error)
	ListPublished(ctx context.Context, filters types.EventQueryFilters) ([]models.Event, int64, error)
	CountConfirmedRegistrations(ctx context.Context, eventID uint) (int64, error)
	// DecrementCapacity takes one seat if any is left. It reports false when the event is
	// unbounded or already at zero.
	DecrementCapacity(ctx context.Context, eventID uint) (bool, error)
}

type GormEventRepository struct {
	db *gorm.DB
}

func NewGormEventRepository(db *gorm.DB) *GormEventRepository {
	return &GormEventRepository{db: db}
}

func (r *GormEventRepository) Create(ctx context.Context, event *models.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *GormEventRepository) FindByID(ctx context.Context, id uint) (*models.Event, error) {
	var event models.Event
	if err := r.db.WithContext(ctx).Scopes(scopes.WithID(id)).First(&event).Error; err != nil {
		return nil, notFound(err)
	}
	return &event, nil
}

func (r *GormEventRepository) FindByIDForUpdate(ctx context.Context, id uint) (*models.Event, error) {
	var event models.Event
	err := r.db.WithContext(ctx).
		Clauses(forUpdate()).
		Scopes(scopes.WithID(id)).
		First(&event).
		Error
	if err != nil {
		return nil, notFound(err)
	}
	return &event, nil
}

func (r *GormEventRepository) FindPublishedBySlug(ctx context.Context, slug string) (*models.Event, error) {
	var event models.Event
	err := r.db.WithContext(ctx).
		Scopes(scopes.Published).
		Where("slug = ?", slug).
		First(&event).
		Error
	if err != nil {
		return nil, notFound(err)
	}
	return &event, nil
}

func (r *GormEventRepository) ListPublished(ctx context.Context, filters types.EventQueryFilters) ([]models.Event, int64, error) {
	var (
		events []models.Event
		total  int64
	)
	query := r.db.WithContext(ctx).Model(&models.Event{}).Scopes(scopes.Published)
	if filters.EventType != "" {
		query = query.Where("event_type = ?", filters.EventType)
	}
	if s := strings.TrimSpace(filters.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if filters.Upcoming {
		query = query.Where("start_time > ?", time.Now())
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	limit := filters.Limit
	if limit <= 0 {
		limit = 20
	}
	err := query.
		Order("start_time ASC").
		Offset(filters.Offset).
		Limit(limit).
		Find(&events).
		Error
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (r *GormEventRepository) CountConfirmedRegistrations(ctx context.Context, eventID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Registration{}).
		Scopes(scopes.Active, scopes.WithRegistrationStatus(types.REGISTRATION_CONFIRMED)).
		Where("event_id = ?", eventID).
		Count(&count).
		Error
	return count, err
}

func (r *GormEventRepository) DecrementCapacity(ctx context.Context, eventID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ? AND capacity IS NOT NULL AND capacity > 0", eventID).
		UpdateColumn("capacity", gorm.Expr("capacity - 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
