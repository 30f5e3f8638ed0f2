package models

import (
	"errors"
	"guilance/src/types"
	"time"

	"gorm.io/gorm"
)

var ErrAmountMismatch = errors.New("amount + discount_amount must equal base_amount")

// Payment is one checkout attempt. A user may hold several for the same event.
type Payment struct {
	ID             uint                `gorm:"primarykey" json:"id"`
	UserID         uint                `gorm:"index;not null" json:"user_id"`
	EventID        uint                `gorm:"index;not null" json:"event_id"`
	DiscountCodeID *uint               `gorm:"index" json:"discount_code_id,omitempty"`
	BaseAmount     int64               `gorm:"not null" json:"base_amount"`
	DiscountAmount int64               `gorm:"not null;default:0" json:"discount_amount"`
	Amount         int64               `gorm:"not null" json:"amount"`
	Status         types.PaymentStatus `gorm:"default:'init';index" json:"status"`
	Authority      *string             `gorm:"uniqueIndex;size:64" json:"authority,omitempty"`
	RefID          *string             `gorm:"size:64" json:"ref_id,omitempty"`
	CardPan        *string             `gorm:"size:32" json:"card_pan,omitempty"`
	CardHash       *string             `gorm:"size:128" json:"-"`
	VerifiedAt     *time.Time          `json:"verified_at,omitempty"`
	Description    string              `json:"description,omitempty"`
	Metadata       types.JSONB         `gorm:"type:jsonb" json:"-"`

	Event        *Event        `gorm:"foreignKey:event_id" json:"event,omitempty"`
	User         *User         `gorm:"foreignKey:user_id" json:"-"`
	DiscountCode *DiscountCode `gorm:"foreignKey:discount_code_id" json:"-"`

	types.Timestamps
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.Amount+p.DiscountAmount != p.BaseAmount {
		return ErrAmountMismatch
	}
	if p.Status == "" {
		p.Status = types.PAYMENT_INIT
	}
	return nil
}

// Receipt is the gateway-supplied data recorded when a payment is verified.
type Receipt struct {
	RefID    string
	CardPan  string
	CardHash string
}
