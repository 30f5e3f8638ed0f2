package services

import (
	"context"
	"testing"
	"time"

	"guilance/src/models"
	"guilance/src/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestDiscountFor(t *testing.T) {
	tests := []struct {
		name     string
		discount models.DiscountCode
		base     int64
		want     int64
	}{
		{"percentage", models.DiscountCode{Type: types.DISCOUNT_PERCENTAGE, Value: 30}, 100000, 30000},
		{"percentage rounds half up", models.DiscountCode{Type: types.DISCOUNT_PERCENTAGE, Value: 15}, 1010, 152},
		{"percentage capped", models.DiscountCode{Type: types.DISCOUNT_PERCENTAGE, Value: 50, MaxDiscount: ptr(int64(20000))}, 100000, 20000},
		{"percentage over 100 clamps to base", models.DiscountCode{Type: types.DISCOUNT_PERCENTAGE, Value: 150}, 5000, 5000},
		{"fixed", models.DiscountCode{Type: types.DISCOUNT_FIXED, Value: 25000}, 100000, 25000},
		{"fixed larger than base", models.DiscountCode{Type: types.DISCOUNT_FIXED, Value: 250000}, 100000, 100000},
		{"zero value", models.DiscountCode{Type: types.DISCOUNT_FIXED, Value: 0}, 100000, 0},
		{"free base", models.DiscountCode{Type: types.DISCOUNT_PERCENTAGE, Value: 30}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, discountFor(&tt.discount, tt.base))
		})
	}
}

func TestCalculate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	user := createUser(t, store, "calc@guilan.ac.ir")
	other := createUser(t, store, "other@guilan.ac.ir")
	event := createEvent(t, store, "Kubernetes Workshop", ptr(int64(100000)), nil)
	otherEvent := createEvent(t, store, "Rust Night", ptr(int64(50000)), nil)

	now := time.Now()
	codes := []*models.DiscountCode{
		{Code: "WELCOME30", Type: types.DISCOUNT_PERCENTAGE, Value: 30, IsActive: true},
		{Code: "OFF", Type: types.DISCOUNT_PERCENTAGE, Value: 30, IsActive: false},
		{Code: "SOON", Type: types.DISCOUNT_PERCENTAGE, Value: 30, IsActive: true, StartsAt: ptr(now.Add(time.Hour))},
		{Code: "OLD", Type: types.DISCOUNT_PERCENTAGE, Value: 30, IsActive: true, EndsAt: ptr(now.Add(-time.Hour))},
		{Code: "RUSTONLY", Type: types.DISCOUNT_FIXED, Value: 10000, IsActive: true, ApplicableEvents: []*models.Event{otherEvent}},
		{Code: "ONCE", Type: types.DISCOUNT_FIXED, Value: 10000, IsActive: true, UsageLimitTotal: ptr(int64(1))},
		{Code: "MINE", Type: types.DISCOUNT_FIXED, Value: 10000, IsActive: true, UsageLimitPerUser: ptr(int64(1))},
		{Code: "BIGSPEND", Type: types.DISCOUNT_FIXED, Value: 10000, IsActive: true, MinAmount: ptr(int64(200000))},
		{Code: "ALLFREE", Type: types.DISCOUNT_PERCENTAGE, Value: 100, IsActive: true},
	}
	for _, c := range codes {
		require.NoError(t, store.Discounts().Create(ctx, c))
	}
	// is_active has a column default, so false must be written explicitly
	require.NoError(t, store.DB().Model(codes[1]).Update("is_active", false).Error)
	// ONCE used by someone else, MINE used by user
	require.NoError(t, store.Payments().Create(ctx, &models.Payment{
		UserID: other.ID, EventID: event.ID, DiscountCodeID: &codes[5].ID,
		BaseAmount: 100000, DiscountAmount: 10000, Amount: 90000, Status: types.PAYMENT_PAID,
	}))
	require.NoError(t, store.Payments().Create(ctx, &models.Payment{
		UserID: user.ID, EventID: otherEvent.ID, DiscountCodeID: &codes[6].ID,
		BaseAmount: 50000, DiscountAmount: 10000, Amount: 40000, Status: types.PAYMENT_PENDING,
	}))

	engine := NewDiscountEngine(store, 0)
	tests := []struct {
		code    string
		amount  int64
		applied bool
		reason  string
	}{
		{"", 100000, false, ""},
		{" welcome30 ", 70000, true, ""},
		{"NOPE", 100000, false, ReasonNotFound},
		{"OFF", 100000, false, ReasonInactive},
		{"SOON", 100000, false, ReasonNotStarted},
		{"OLD", 100000, false, ReasonExpired},
		{"RUSTONLY", 100000, false, ReasonNotApplicable},
		{"ONCE", 100000, false, ReasonTotalLimit},
		{"MINE", 100000, false, ReasonUserLimit},
		{"BIGSPEND", 100000, false, ReasonMinAmount},
		{"ALLFREE", 0, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			quote, err := engine.Calculate(ctx, event, user.ID, tt.code)
			require.NoError(t, err)
			assert.Equal(t, int64(100000), quote.BaseAmount)
			assert.Equal(t, tt.amount, quote.Amount)
			assert.Equal(t, tt.applied, quote.Applied)
			assert.Equal(t, tt.reason, quote.Reason)
			assert.Equal(t, quote.BaseAmount, quote.Amount+quote.DiscountAmount)
		})
	}

	t.Run("another user may still use a per-user code", func(t *testing.T) {
		quote, err := engine.Calculate(ctx, event, other.ID, "MINE")
		require.NoError(t, err)
		assert.True(t, quote.Applied)
		assert.Equal(t, int64(90000), quote.Amount)
	})

	t.Run("code applies to the listed event", func(t *testing.T) {
		quote, err := engine.Calculate(ctx, otherEvent, other.ID, "RUSTONLY")
		require.NoError(t, err)
		assert.True(t, quote.Applied)
		assert.Equal(t, int64(40000), quote.Amount)
	})
}

func TestCalculateBelowFloorDegrades(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	user := createUser(t, store, "floor@guilan.ac.ir")
	event := createEvent(t, store, "Linux Install Fest", ptr(int64(20000)), nil)
	require.NoError(t, store.Discounts().Create(ctx, &models.DiscountCode{Code: "HALF", Type: types.DISCOUNT_PERCENTAGE, Value: 60, IsActive: true}))
	logs := observeLogs(t, zapcore.InfoLevel)

	quote, err := NewDiscountEngine(store, 10000).Calculate(ctx, event, user.ID, "HALF")
	require.NoError(t, err)
	assert.False(t, quote.Applied)
	assert.Equal(t, int64(20000), quote.Amount)
	assert.Equal(t, ReasonBelowFloor, quote.Reason)
	require.Equal(t, 1, logs.FilterMessage("discount code not applied").Len())
}

func TestPreviewUnknownEvent(t *testing.T) {
	store := newTestStore(t)
	_, err := NewDiscountEngine(store, 0).Preview(context.Background(), 404, 1, "ANY")
	assert.ErrorIs(t, err, ErrEventNotFound)
	assert.Equal(t, 404, StatusCode(err))
}
