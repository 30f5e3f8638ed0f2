package models

import (
	"guilance/src/types"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Registration struct {
	ID           uint                     `gorm:"primarykey" json:"id"`
	EventID      uint                     `gorm:"uniqueIndex:idx_registration_event_user;not null" json:"event_id"`
	UserID       uint                     `gorm:"uniqueIndex:idx_registration_event_user;not null" json:"user_id"`
	Status       types.RegistrationStatus `gorm:"default:'pending';index" json:"status"`
	TicketID     uuid.UUID                `gorm:"type:uuid;uniqueIndex" json:"ticket_id"`
	RegisteredAt time.Time                `json:"registered_at"`

	Event *Event `gorm:"foreignKey:event_id" json:"event,omitempty"`
	User  *User  `gorm:"foreignKey:user_id" json:"-"`

	types.Timestamps
}

func (r *Registration) BeforeCreate(tx *gorm.DB) error {
	if r.TicketID == uuid.Nil {
		r.TicketID = uuid.New()
	}
	if r.RegisteredAt.IsZero() {
		r.RegisteredAt = time.Now()
	}
	return nil
}
