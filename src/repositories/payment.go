package repositories

import (
	"context"
	"time"

	"guilance/src/models"
	"guilance/src/models/scopes"
	"guilance/src/types"

	"gorm.io/gorm"
)

// usageStatuses are the payment states that consume a discount code.
var usageStatuses = []types.PaymentStatus{types.PAYMENT_PAID, types.PAYMENT_PENDING}

type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id uint) (*models.Payment, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*models.Payment, error)
	FindByAuthority(ctx context.Context, authority string) (*models.Payment, error)
	ListForUser(ctx context.Context, userID uint) ([]models.Payment, error)
	HasPaid(ctx context.Context, userID, eventID uint) (bool, error)
	// CountDiscountUsage counts paid and pending payments using the code, optionally for one user.
	CountDiscountUsage(ctx context.Context, codeID uint, userID *uint) (int64, error)
	// AttachAuthority moves an init payment to pending with the gateway authority.
	AttachAuthority(ctx context.Context, id uint, authority string) (bool, error)
	// Transition applies updates only while the payment is in status from.
	Transition(ctx context.Context, id uint, from, to types.PaymentStatus, updates map[string]any) (bool, error)
	// DeleteInit hard-deletes a payment that never reached the gateway.
	DeleteInit(ctx context.Context, id uint) (bool, error)
	ListStale(ctx context.Context, status types.PaymentStatus, before time.Time) ([]models.Payment, error)
}

type GormPaymentRepository struct {
	db *gorm.DB
}

func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

func (r *GormPaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *GormPaymentRepository) FindByID(ctx context.Context, id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Scopes(scopes.WithID(id)).First(&payment).Error; err != nil {
		return nil, notFound(err)
	}
	return &payment, nil
}

func (r *GormPaymentRepository) FindByIDForUpdate(ctx context.Context, id uint) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Clauses(forUpdate()).
		Scopes(scopes.WithID(id)).
		First(&payment).
		Error
	if err != nil {
		return nil, notFound(err)
	}
	return &payment, nil
}

func (r *GormPaymentRepository) FindByAuthority(ctx context.Context, authority string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("authority = ?", authority).
		Preload("Event").
		Preload("User").
		First(&payment).
		Error
	if err != nil {
		return nil, notFound(err)
	}
	return &payment, nil
}

func (r *GormPaymentRepository) ListForUser(ctx context.Context, userID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Preload("Event").
		Order("created_at DESC").
		Order("id DESC").
		Find(&payments).
		Error
	return payments, err
}

func (r *GormPaymentRepository) HasPaid(ctx context.Context, userID, eventID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Scopes(scopes.WithPaymentStatus(types.PAYMENT_PAID)).
		Where("user_id = ? AND event_id = ?", userID, eventID).
		Count(&count).
		Error
	return count > 0, err
}

func (r *GormPaymentRepository) CountDiscountUsage(ctx context.Context, codeID uint, userID *uint) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Scopes(scopes.WithPaymentStatus(usageStatuses...)).
		Where("discount_code_id = ?", codeID)
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}
	err := query.Count(&count).Error
	return count, err
}

func (r *GormPaymentRepository) AttachAuthority(ctx context.Context, id uint, authority string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, types.PAYMENT_INIT).
		Updates(map[string]any{"authority": authority, "status": types.PAYMENT_PENDING})
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return false, ErrDuplicateAuthority
		}
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *GormPaymentRepository) Transition(ctx context.Context, id uint, from, to types.PaymentStatus, updates map[string]any) (bool, error) {
	values := map[string]any{"status": to}
	for k, v := range updates {
		values[k] = v
	}
	result := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *GormPaymentRepository) DeleteInit(ctx context.Context, id uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Scopes(scopes.All).
		Where("id = ? AND status = ?", id, types.PAYMENT_INIT).
		Delete(&models.Payment{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *GormPaymentRepository) ListStale(ctx context.Context, status types.PaymentStatus, before time.Time) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Scopes(scopes.WithPaymentStatus(status)).
		Where("created_at < ?", before).
		Order("id ASC").
		Limit(500).
		Find(&payments).
		Error
	return payments, err
}
