package scopes

import (
	"guilance/src/types"

	"gorm.io/gorm"
)

func WithID(id uint) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("id = ?", id)
	}
}

// Active is the default gorm behaviour, kept so call sites read the same as Deleted and All.
func Active(db *gorm.DB) *gorm.DB {
	return db
}

func Deleted(db *gorm.DB) *gorm.DB {
	return db.Unscoped().Where("deleted_at IS NOT NULL")
}

func All(db *gorm.DB) *gorm.DB {
	return db.Unscoped()
}

func WithPaymentStatus(statuses ...types.PaymentStatus) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("status IN ?", statuses)
	}
}

func WithRegistrationStatus(status types.RegistrationStatus) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("status = ?", status)
	}
}

func Published(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", types.EVENT_PUBLISHED)
}
