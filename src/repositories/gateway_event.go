package repositories

import (
	"context"
	"time"

	"guilance/src/models"
	"guilance/src/types"

	"gorm.io/gorm"
)

type GatewayEventRepository interface {
	Create(ctx context.Context, event *models.GatewayEvent) error
	// Resolve records how a delivery was handled.
	Resolve(ctx context.Context, id uint, paymentID *uint, outcome types.GatewayEventOutcome, errMsg *string) error
	ListByAuthority(ctx context.Context, authority string) ([]models.GatewayEvent, error)
}

type GormGatewayEventRepository struct {
	db *gorm.DB
}

func NewGormGatewayEventRepository(db *gorm.DB) *GormGatewayEventRepository {
	return &GormGatewayEventRepository{db: db}
}

func (r *GormGatewayEventRepository) Create(ctx context.Context, event *models.GatewayEvent) error {
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now()
	}
	if event.Outcome == "" {
		event.Outcome = types.GATEWAY_EVENT_RECEIVED
	}
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *GormGatewayEventRepository) Resolve(ctx context.Context, id uint, paymentID *uint, outcome types.GatewayEventOutcome, errMsg *string) error {
	return r.db.WithContext(ctx).
		Model(&models.GatewayEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"payment_id":   paymentID,
			"outcome":      outcome,
			"error":        errMsg,
			"processed_at": time.Now(),
		}).
		Error
}

func (r *GormGatewayEventRepository) ListByAuthority(ctx context.Context, authority string) ([]models.GatewayEvent, error) {
	var events []models.GatewayEvent
	err := r.db.WithContext(ctx).
		Where("authority = ?", authority).
		Order("received_at ASC").
		Order("id ASC").
		Find(&events).
		Error
	return events, err
}
