package models

import (
	"guilance/src/types"
	"time"
)

type DiscountCode struct {
	ID                uint               `gorm:"primarykey" json:"id"`
	Code              string             `gorm:"uniqueIndex;size:64;not null" json:"code"`
	Type              types.DiscountType `gorm:"default:'percentage'" json:"type"`
	Value             int64              `gorm:"not null" json:"value"`
	MaxDiscount       *int64             `json:"max_discount,omitempty"`
	IsActive          bool               `gorm:"default:true" json:"is_active"`
	StartsAt          *time.Time         `json:"starts_at,omitempty"`
	EndsAt            *time.Time         `json:"ends_at,omitempty"`
	UsageLimitTotal   *int64             `json:"usage_limit_total,omitempty"`
	UsageLimitPerUser *int64             `json:"usage_limit_per_user,omitempty"`
	MinAmount         *int64             `json:"min_amount,omitempty"`

	ApplicableEvents []*Event `gorm:"many2many:discount_code_events;" json:"applicable_events,omitempty"`

	types.Timestamps
}

func (d *DiscountCode) AppliesTo(eventID uint) bool {
	if len(d.ApplicableEvents) == 0 {
		return true
	}
	for _, e := range d.ApplicableEvents {
		if e.ID == eventID {
			return true
		}
	}
	return false
}
