package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"guilance/src/models"
	"guilance/src/repositories"
	"guilance/src/types"

	"go.uber.org/zap"
)

const (
	ReasonNotFound      = "discount code not found"
	ReasonInactive      = "invalid or inactive discount code"
	ReasonNotStarted    = "discount code is not active yet"
	ReasonExpired       = "discount code has expired"
	ReasonNotApplicable = "discount code is not applicable to this event"
	ReasonTotalLimit    = "discount code usage limit reached"
	ReasonUserLimit     = "you have already used this discount code the maximum allowed times"
	ReasonMinAmount     = "order amount is below the minimum for this code"
	ReasonBelowFloor    = "final payable amount would be below the minimum payable amount"
)

// Quote is the price a user pays for an event after an optional discount code.
type Quote struct {
	BaseAmount     int64  `json:"base_amount"`
	DiscountAmount int64  `json:"discount_amount"`
	Amount         int64  `json:"amount"`
	Code           string `json:"code,omitempty"`
	Applied        bool   `json:"applied"`
	Reason         string `json:"reason,omitempty"`

	Discount *models.DiscountCode `json:"-"`
}

type DiscountEngine struct {
	store      repositories.Store
	minPayable int64
	now        func() time.Time
}

func NewDiscountEngine(store repositories.Store, minPayable int64) *DiscountEngine {
	return &DiscountEngine{store: store, minPayable: minPayable, now: time.Now}
}

func fullPrice(base int64, code string, reason string) Quote {
	return Quote{BaseAmount: base, Amount: base, Code: code, Reason: reason}
}

// Calculate never rejects a checkout because of the code: any violation falls back to full price
// and is reported in Quote.Reason. Only repository failures return an error.
func (d *DiscountEngine) Calculate(ctx context.Context, event *models.Event, userID uint, code string) (Quote, error) {
	var base int64
	if event.Price != nil {
		base = *event.Price
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return fullPrice(base, "", ""), nil
	}
	discount, err := d.store.Discounts().FindByCode(ctx, code)
	if errors.Is(err, repositories.ErrNotFound) {
		return d.degrade(base, code, event.ID, userID, ReasonNotFound), nil
	}
	if err != nil {
		return Quote{}, Internal(fmt.Errorf("find discount code: %w", err))
	}
	reason, err := d.violation(ctx, discount, event, base, userID)
	if err != nil {
		return Quote{}, Internal(err)
	}
	if reason != "" {
		return d.degrade(base, discount.Code, event.ID, userID, reason), nil
	}
	amountOff := discountFor(discount, base)
	amount := base - amountOff
	if amount < 0 {
		amount = 0
	}
	if d.minPayable > 0 && amount < d.minPayable {
		return d.degrade(base, discount.Code, event.ID, userID, ReasonBelowFloor), nil
	}
	return Quote{
		BaseAmount:     base,
		DiscountAmount: base - amount,
		Amount:         amount,
		Code:           discount.Code,
		Applied:        true,
		Discount:       discount,
	}, nil
}

// Preview quotes an event by id for the discount preview endpoint.
func (d *DiscountEngine) Preview(ctx context.Context, eventID uint, userID uint, code string) (Quote, error) {
	event, err := d.store.Events().FindByID(ctx, eventID)
	if errors.Is(err, repositories.ErrNotFound) {
		return Quote{}, ErrEventNotFound
	}
	if err != nil {
		return Quote{}, Internal(err)
	}
	return d.Calculate(ctx, event, userID, code)
}

func (d *DiscountEngine) degrade(base int64, code string, eventID, userID uint, reason string) Quote {
	zap.L().Info("discount code not applied",
		zap.String("code", code),
		zap.Uint("event_id", eventID),
		zap.Uint("user_id", userID),
		zap.String("reason", reason),
	)
	return fullPrice(base, code, reason)
}

func (d *DiscountEngine) violation(ctx context.Context, discount *models.DiscountCode, event *models.Event, base int64, userID uint) (string, error) {
	if !discount.IsActive {
		return ReasonInactive, nil
	}
	now := d.now()
	if discount.StartsAt != nil && now.Before(*discount.StartsAt) {
		return ReasonNotStarted, nil
	}
	if discount.EndsAt != nil && now.After(*discount.EndsAt) {
		return ReasonExpired, nil
	}
	if !discount.AppliesTo(event.ID) {
		return ReasonNotApplicable, nil
	}
	if discount.UsageLimitTotal != nil {
		used, err := d.store.Payments().CountDiscountUsage(ctx, discount.ID, nil)
		if err != nil {
			return "", fmt.Errorf("count discount usage: %w", err)
		}
		if used >= *discount.UsageLimitTotal {
			return ReasonTotalLimit, nil
		}
	}
	if discount.UsageLimitPerUser != nil {
		used, err := d.store.Payments().CountDiscountUsage(ctx, discount.ID, &userID)
		if err != nil {
			return "", fmt.Errorf("count discount usage for user: %w", err)
		}
		if used >= *discount.UsageLimitPerUser {
			return ReasonUserLimit, nil
		}
	}
	if discount.MinAmount != nil && base < *discount.MinAmount {
		return ReasonMinAmount, nil
	}
	return "", nil
}

// discountFor rounds percentages half up and never returns more than base.
func discountFor(discount *models.DiscountCode, base int64) int64 {
	if discount.Value <= 0 || base <= 0 {
		return 0
	}
	var off int64
	switch discount.Type {
	case types.DISCOUNT_FIXED:
		off = discount.Value
	default:
		off = (base*discount.Value + 50) / 100
		if discount.MaxDiscount != nil && off > *discount.MaxDiscount {
			off = *discount.MaxDiscount
		}
	}
	if off > base {
		off = base
	}
	return off
}
