package repositories

import (
	"context"

	"guilance/src/models"
	"guilance/src/models/scopes"
	"guilance/src/types"

	"gorm.io/gorm"
)

type RegistrationRepository interface {
	Create(ctx context.Context, registration *models.Registration) error
	FindByID(ctx context.Context, id uint) (*models.Registration, error)
	FindByEventAndUser(ctx context.Context, eventID, userID uint) (*models.Registration, error)
	// FindDeletedByEventAndUser only matches soft-deleted rows.
	FindDeletedByEventAndUser(ctx context.Context, eventID, userID uint) (*models.Registration, error)
	ListForUser(ctx context.Context, userID uint) ([]models.Registration, error)
	// Transition moves the row from one status to another and reports whether it did.
	Transition(ctx context.Context, id uint, from, to types.RegistrationStatus) (bool, error)
	// Restore clears deleted_at and resets the status of a soft-deleted row.
	Restore(ctx context.Context, id uint, status types.RegistrationStatus) error
	// Cancel marks the row cancelled and soft-deletes it.
	Cancel(ctx context.Context, id uint) error
	HardDelete(ctx context.Context, id uint) error
}

type GormRegistrationRepository struct {
	db *gorm.DB
}

func NewGormRegistrationRepository(db *gorm.DB) *GormRegistrationRepository {
	return &GormRegistrationRepository{db: db}
}

func (r *GormRegistrationRepository) Create(ctx context.Context, registration *models.Registration) error {
	return r.db.WithContext(ctx).Create(registration).Error
}

func (r *GormRegistrationRepository) FindByID(ctx context.Context, id uint) (*models.Registration, error) {
	var registration models.Registration
	err := r.db.WithContext(ctx).
		Scopes(scopes.Active, scopes.WithID(id)).
		Preload("Event").
		First(&registration).
		Error
	if err != nil {
		return nil, notFound(err)
	}
	return &registration, nil
}

func (r *GormRegistrationRepository) FindByEventAndUser(ctx context.Context, eventID, userID uint) (*models.Registration, error) {
	var registration models.Registration
	err := r.db.WithContext(ctx).
		Scopes(scopes.Active).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		First(&registration).
		Error
	if err != nil {
		return nil, notFound(err)
	}
	return &registration, nil
}

func (r *GormRegistrationRepository) FindDeletedByEventAndUser(ctx context.Context, eventID, userID uint) (*models.Registration, error) {
	var registration models.Registration
	err := r.db.WithContext(ctx).
		Scopes(scopes.Deleted).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		First(&registration).
		Error
	if err != nil {
		return nil, notFound(err)
	}
	return &registration, nil
}

func (r *GormRegistrationRepository) ListForUser(ctx context.Context, userID uint) ([]models.Registration, error) {
	var registrations []models.Registration
	err := r.db.WithContext(ctx).
		Scopes(scopes.Active).
		Where("user_id = ?", userID).
		Preload("Event").
		Order("registered_at DESC").
		Find(&registrations).
		Error
	return registrations, err
}

func (r *GormRegistrationRepository) Transition(ctx context.Context, id uint, from, to types.RegistrationStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Registration{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *GormRegistrationRepository) Restore(ctx context.Context, id uint, status types.RegistrationStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.Registration{}).
		Scopes(scopes.Deleted, scopes.WithID(id)).
		Updates(map[string]any{"deleted_at": nil, "status": status})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormRegistrationRepository) Cancel(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.
			Model(&models.Registration{}).
			Scopes(scopes.WithID(id)).
			Update("status", types.REGISTRATION_CANCELLED)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Delete(&models.Registration{}, id).Error
	})
}

func (r *GormRegistrationRepository) HardDelete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Scopes(scopes.All).Delete(&models.Registration{}, id).Error
}
