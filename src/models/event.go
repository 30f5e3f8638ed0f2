package models

import (
	"guilance/src/types"
	"time"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type Event struct {
	ID                    uint              `gorm:"primarykey" json:"id"`
	Title                 string            `gorm:"not null" json:"title"`
	Slug                  string            `gorm:"uniqueIndex;size:255" json:"slug"`
	Description           string            `json:"description,omitempty"`
	EventType             types.EventType   `gorm:"default:'on_site'" json:"event_type,omitempty"`
	Status                types.EventStatus `gorm:"default:'draft';index" json:"status,omitempty"`
	Location              string            `json:"location,omitempty"`
	StartTime             time.Time         `json:"start_time"`
	EndTime               time.Time         `json:"end_time"`
	Price                 *int64            `json:"price"`
	Capacity              *int64            `json:"capacity"`
	RegistrationStartDate *time.Time        `json:"registration_start_date,omitempty"`
	RegistrationEndDate   *time.Time        `json:"registration_end_date,omitempty"`

	Registrations []Registration `gorm:"foreignKey:event_id" json:"-"`

	types.Timestamps
}

func (e *Event) BeforeSave(tx *gorm.DB) error {
	if e.Slug == "" && e.Title != "" {
		e.Slug = slug.Make(e.Title)
	}
	return nil
}

// IsFree reports whether registration needs no payment.
func (e *Event) IsFree() bool {
	return e.Price == nil
}

func (e *Event) IsBounded() bool {
	return e.Capacity != nil
}
