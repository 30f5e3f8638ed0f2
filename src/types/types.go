package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}

func (a *JSONB) Scan(value any) error {
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	case nil:
		return nil
	default:
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(b, &a)
}

type AppEnv string

const (
	Local      AppEnv = "local"
	Test       AppEnv = "test"
	Production AppEnv = "production"
)

type EventStatus string

const (
	EVENT_DRAFT     EventStatus = "draft"
	EVENT_PUBLISHED EventStatus = "published"
	EVENT_CANCELLED EventStatus = "cancelled"
	EVENT_COMPLETED EventStatus = "completed"
)

type EventType string

const (
	EVENT_ONLINE  EventType = "online"
	EVENT_ON_SITE EventType = "on_site"
	EVENT_HYBRID  EventType = "hybrid"
)

type RegistrationStatus string

const (
	REGISTRATION_PENDING   RegistrationStatus = "pending"
	REGISTRATION_CONFIRMED RegistrationStatus = "confirmed"
	REGISTRATION_CANCELLED RegistrationStatus = "cancelled"
	REGISTRATION_ATTENDED  RegistrationStatus = "attended"
)

type PaymentStatus string

const (
	PAYMENT_INIT     PaymentStatus = "init"
	PAYMENT_PENDING  PaymentStatus = "pending"
	PAYMENT_PAID     PaymentStatus = "paid"
	PAYMENT_FAILED   PaymentStatus = "failed"
	PAYMENT_CANCELED PaymentStatus = "canceled"
)

// IsTerminal reports whether no further transition is allowed.
func (s PaymentStatus) IsTerminal() bool {
	return s == PAYMENT_PAID || s == PAYMENT_FAILED || s == PAYMENT_CANCELED
}

type DiscountType string

const (
	DISCOUNT_PERCENTAGE DiscountType = "percentage"
	DISCOUNT_FIXED      DiscountType = "fixed"
)

type GatewayEventOutcome string

const (
	GATEWAY_EVENT_RECEIVED GatewayEventOutcome = "received"
	GATEWAY_EVENT_SUCCESS  GatewayEventOutcome = "success"
	GATEWAY_EVENT_FAILED   GatewayEventOutcome = "failed"
	GATEWAY_EVENT_CANCELED GatewayEventOutcome = "canceled"
	GATEWAY_EVENT_IGNORED  GatewayEventOutcome = "ignored"
)

type NotificationKind string

const (
	NOTIFY_REGISTRATION_CONFIRMED NotificationKind = "registration_confirmed"
	NOTIFY_PAYMENT_PAID           NotificationKind = "payment_paid"
	NOTIFY_RECONCILIATION_GAP     NotificationKind = "reconciliation_gap"
)

// Notification is the payload handed to the outbound queue. The producer never waits for delivery.
type Notification struct {
	Kind      NotificationKind `json:"kind"`
	UserID    uint             `json:"user_id"`
	Email     string           `json:"email,omitempty"`
	Name      string           `json:"name,omitempty"`
	EventID   uint             `json:"event_id"`
	EventName string           `json:"event_name,omitempty"`
	PaymentID uint             `json:"payment_id,omitempty"`
	TicketID  string           `json:"ticket_id,omitempty"`
	RefID     string           `json:"ref_id,omitempty"`
	Amount    int64            `json:"amount,omitempty"`
	Authority string           `json:"authority,omitempty"`
}

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type SlugRequestParams struct {
	Slug string `uri:"slug" binding:"required"`
}

type CreatePaymentRequestBody struct {
	EventID      uint    `json:"event_id" binding:"required"`
	Description  string  `json:"description" binding:"required"`
	DiscountCode *string `json:"discount_code,omitempty"`
	Mobile       *string `json:"mobile,omitempty" binding:"omitempty,mobile"`
	Email        *string `json:"email,omitempty" binding:"omitempty,email"`
}

type PaymentCallbackQuery struct {
	Authority string `form:"Authority"`
	Status    string `form:"Status"`
}

type DiscountPreviewRequestBody struct {
	EventID uint   `json:"event_id" binding:"required"`
	Code    string `json:"code" binding:"required"`
}

type EventQueryFilters struct {
	EventType string `form:"event_type"`
	Search    string `form:"search"`
	Upcoming  bool   `form:"upcoming"`
	Limit     int    `form:"limit,default=20" binding:"omitempty,min=1,max=100"`
	Offset    int    `form:"offset" binding:"omitempty,min=0"`
}

// Handler consumes a raw queue message body.
type Handler func(body string)
