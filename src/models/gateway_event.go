package models

import (
	"guilance/src/types"
	"time"

	"gorm.io/datatypes"
)

// GatewayEvent logs every callback delivery, including replays.
type GatewayEvent struct {
	ID          uint                      `gorm:"primarykey" json:"id"`
	PaymentID   *uint                     `gorm:"index" json:"payment_id,omitempty"`
	Authority   string                    `gorm:"index;size:64" json:"authority"`
	StatusFlag  string                    `gorm:"size:16" json:"status_flag"`
	RawQuery    datatypes.JSON            `json:"raw_query"`
	Outcome     types.GatewayEventOutcome `gorm:"default:'received'" json:"outcome"`
	Error       *string                   `json:"error,omitempty"`
	ReceivedAt  time.Time                 `json:"received_at"`
	ProcessedAt *time.Time                `json:"processed_at,omitempty"`
}
