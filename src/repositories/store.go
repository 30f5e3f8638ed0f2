// Package repositories holds the data access layer. Services only see the interfaces; the gorm
// implementations share one *gorm.DB, which is a transaction handle inside Store.Transaction.
package repositories

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound           = errors.New("record not found")
	ErrDuplicateAuthority = errors.New("authority already assigned to another payment")
)

type Store interface {
	Events() EventRepository
	Registrations() RegistrationRepository
	Payments() PaymentRepository
	Discounts() DiscountRepository
	Users() UserRepository
	GatewayEvents() GatewayEventRepository
	// Transaction runs fn against a store bound to one database transaction.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) DB() *gorm.DB {
	return s.db
}

func (s *GormStore) Events() EventRepository {
	return NewGormEventRepository(s.db)
}

func (s *GormStore) Registrations() RegistrationRepository {
	return NewGormRegistrationRepository(s.db)
}

func (s *GormStore) Payments() PaymentRepository {
	return NewGormPaymentRepository(s.db)
}

func (s *GormStore) Discounts() DiscountRepository {
	return NewGormDiscountRepository(s.db)
}

func (s *GormStore) Users() UserRepository {
	return NewGormUserRepository(s.db)
}

func (s *GormStore) GatewayEvents() GatewayEventRepository {
	return NewGormGatewayEventRepository(s.db)
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func forUpdate() clause.Locking {
	return clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: clause.CurrentTable}}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate key")
}
