package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"guilance/src/lib"
	"guilance/src/lib/zarinpal"
	"guilance/src/models"
	"guilance/src/repositories"
	"guilance/src/types"

	"go.uber.org/zap"
)

const StatusOK = "OK"

type CheckoutConfig struct {
	CallbackURL  string
	FrontendRoot string
}

type CheckoutDeps struct {
	Store         repositories.Store
	Discounts     *DiscountEngine
	Ledger        *Ledger
	Registrations *RegistrationCoordinator
	Gateway       Gateway
	Locker        Locker
	Notifier      Notifier
	Alerts        Publisher
}

// Checkout drives a payment from initiation through the gateway callback.
type Checkout struct {
	store         repositories.Store
	discounts     *DiscountEngine
	ledger        *Ledger
	registrations *RegistrationCoordinator
	gateway       Gateway
	locker        Locker
	notifier      Notifier
	alerts        Publisher
	cfg           CheckoutConfig
}

func NewCheckout(deps CheckoutDeps, cfg CheckoutConfig) *Checkout {
	c := &Checkout{
		store:         deps.Store,
		discounts:     deps.Discounts,
		ledger:        deps.Ledger,
		registrations: deps.Registrations,
		gateway:       deps.Gateway,
		locker:        deps.Locker,
		notifier:      deps.Notifier,
		alerts:        deps.Alerts,
		cfg:           cfg,
	}
	if c.notifier == nil {
		c.notifier = NoopNotifier{}
	}
	if c.alerts == nil {
		c.alerts = NoopPublisher{}
	}
	return c
}

type InitiateInput struct {
	UserID       uint
	EventID      uint
	Description  string
	DiscountCode *string
	Mobile       *string
	Email        *string
}

type InitiateOutput struct {
	StartPayURL    string `json:"start_pay_url"`
	Authority      string `json:"authority"`
	BaseAmount     int64  `json:"base_amount"`
	DiscountAmount int64  `json:"discount_amount"`
	Amount         int64  `json:"amount"`
}

func (c *Checkout) Initiate(ctx context.Context, in InitiateInput) (*InitiateOutput, error) {
	event, err := c.store.Events().FindByID(ctx, in.EventID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, Internal(err)
	}
	if event.IsFree() {
		return nil, ErrFreeEvent
	}
	paid, err := c.ledger.HasPaid(ctx, in.UserID, in.EventID)
	if err != nil {
		return nil, Internal(err)
	}
	if paid {
		return nil, ErrDuplicatePurchase
	}

	quote, err := c.discounts.Calculate(ctx, event, in.UserID, deref(in.DiscountCode))
	if err != nil {
		return nil, err
	}
	payment := &models.Payment{
		UserID:         in.UserID,
		EventID:        event.ID,
		BaseAmount:     quote.BaseAmount,
		DiscountAmount: quote.DiscountAmount,
		Amount:         quote.Amount,
		Description:    in.Description,
	}
	if quote.Applied {
		payment.DiscountCodeID = &quote.Discount.ID
	}
	metadata := gatewayMetadata(in, payment, quote)
	payment.Metadata = types.JSONB(metadata)
	if err := c.ledger.Create(ctx, payment); err != nil {
		return nil, Internal(err)
	}
	metadata["payment_id"] = payment.ID

	res := c.gateway.RequestPayment(ctx, zarinpal.PaymentRequest{
		Amount:      payment.Amount,
		CallbackURL: c.cfg.CallbackURL,
		Description: in.Description,
		Metadata:    metadata,
	})
	if res.Outcome != zarinpal.OutcomeSuccess {
		zap.L().Warn("payment request failed",
			zap.Uint("payment_id", payment.ID),
			zap.Stringer("outcome", res.Outcome),
			zap.Int64("code", res.Code),
			zap.Error(res.Err),
		)
		if err := c.ledger.Discard(ctx, payment.ID); err != nil {
			zap.L().Error("failed to discard payment", zap.Uint("payment_id", payment.ID), zap.Error(err))
		}
		if res.Outcome == zarinpal.OutcomeRejected {
			return nil, ErrGatewayRejected.Wrap(res.Err)
		}
		return nil, ErrGatewayUnavailable.Wrap(res.Err)
	}
	if err := c.ledger.AttachAuthority(ctx, payment.ID, res.Authority); err != nil {
		return nil, Internal(err)
	}
	zap.L().Info("payment initiated",
		zap.Uint("payment_id", payment.ID),
		zap.Uint("event_id", event.ID),
		zap.Uint("user_id", in.UserID),
		zap.String("authority", res.Authority),
		zap.Int64("amount", payment.Amount),
	)
	return &InitiateOutput{
		StartPayURL:    c.gateway.StartPayURL(res.Authority),
		Authority:      res.Authority,
		BaseAmount:     quote.BaseAmount,
		DiscountAmount: quote.DiscountAmount,
		Amount:         quote.Amount,
	}, nil
}

func gatewayMetadata(in InitiateInput, payment *models.Payment, quote Quote) map[string]any {
	metadata := map[string]any{
		"event_id": payment.EventID,
		"user_id":  payment.UserID,
	}
	if v := deref(in.Mobile); v != "" {
		metadata["mobile"] = v
	}
	if v := deref(in.Email); v != "" {
		metadata["email"] = v
	}
	if quote.Applied {
		metadata["discount_code"] = quote.Code
	}
	return metadata
}

type FinalizeInput struct {
	Authority string
	Status    string
	RawQuery  url.Values
}

type FinalizeResult struct {
	Success   bool
	PaymentID uint
	EventID   uint
	RefID     string
	// Replayed is set when the payment was already settled by an earlier delivery.
	Replayed bool
}

// Finalize settles the payment behind a gateway callback. Deliveries for one authority are
// serialized and a settled payment is only replayed.
func (c *Checkout) Finalize(ctx context.Context, in FinalizeInput) (*FinalizeResult, error) {
	if in.Authority == "" {
		return nil, ErrMissingAuthority
	}
	delivery := c.logDelivery(ctx, in)

	var result *FinalizeResult
	err := c.locker.WithLock(ctx, lib.PaymentCallbackLockKey(in.Authority), func() error {
		var err error
		result, err = c.finalize(ctx, in)
		return err
	})
	c.resolveDelivery(ctx, delivery, result, err)
	if err != nil {
		var se *ServiceError
		if errors.As(err, &se) {
			return nil, err
		}
		return nil, Internal(err)
	}
	return result, nil
}

func (c *Checkout) finalize(ctx context.Context, in FinalizeInput) (*FinalizeResult, error) {
	payment, err := c.ledger.FindByAuthority(ctx, in.Authority)
	if err != nil {
		return nil, err
	}
	if payment.Status != types.PAYMENT_PENDING {
		return replay(payment), nil
	}
	failed := &FinalizeResult{PaymentID: payment.ID, EventID: payment.EventID}

	if in.Status != StatusOK {
		if _, err := c.ledger.MarkCanceled(ctx, payment.ID); err != nil {
			return nil, err
		}
		zap.L().Info("payment canceled by user", zap.Uint("payment_id", payment.ID), zap.String("status", in.Status))
		return failed, nil
	}

	v := c.gateway.VerifyPayment(ctx, payment.Amount, in.Authority)
	if v.Outcome != zarinpal.OutcomeSuccess {
		zap.L().Warn("payment verification failed",
			zap.Uint("payment_id", payment.ID),
			zap.Stringer("outcome", v.Outcome),
			zap.Int64("code", v.Code),
			zap.Error(v.Err),
		)
		if _, err := c.ledger.MarkFailed(ctx, payment.ID); err != nil {
			return nil, err
		}
		return failed, nil
	}

	receipt := models.Receipt{RefID: v.RefID, CardPan: v.CardPan, CardHash: v.CardHash}
	var (
		applied      bool
		registration *models.Registration
		gap          bool
	)
	err = c.store.Transaction(ctx, func(tx repositories.Store) error {
		var err error
		applied, err = c.ledger.With(tx.Payments()).MarkPaid(ctx, payment.ID, receipt)
		if err != nil || !applied {
			return err
		}
		if payment.Event != nil && payment.Event.IsBounded() {
			took, err := tx.Events().DecrementCapacity(ctx, payment.EventID)
			if err != nil {
				return fmt.Errorf("decrement capacity: %w", err)
			}
			if !took {
				zap.L().Warn("event capacity already exhausted at payment",
					zap.Uint("event_id", payment.EventID),
					zap.Uint("payment_id", payment.ID),
				)
			}
		}
		registration, err = c.registrations.With(tx).ConfirmPending(ctx, payment.EventID, payment.UserID)
		if errors.Is(err, ErrNoPendingRegistration) {
			gap = true
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		current, err := c.ledger.FindByAuthority(ctx, in.Authority)
		if err != nil {
			return nil, err
		}
		return replay(current), nil
	}

	zap.L().Info("payment verified",
		zap.Uint("payment_id", payment.ID),
		zap.String("ref_id", v.RefID),
		zap.Bool("already_verified", v.AlreadyVerified),
	)
	if gap {
		c.reportGap(ctx, payment, v.RefID)
	} else {
		c.notifyPaid(payment, registration, v.RefID)
	}
	return &FinalizeResult{Success: true, PaymentID: payment.ID, EventID: payment.EventID, RefID: v.RefID}, nil
}

func replay(p *models.Payment) *FinalizeResult {
	return &FinalizeResult{
		Success:   p.Status == types.PAYMENT_PAID,
		PaymentID: p.ID,
		EventID:   p.EventID,
		RefID:     deref(p.RefID),
		Replayed:  true,
	}
}

func (c *Checkout) reportGap(ctx context.Context, p *models.Payment, refID string) {
	zap.L().Error("reconciliation gap: payment captured without a pending registration",
		zap.Uint("payment_id", p.ID),
		zap.Uint("event_id", p.EventID),
		zap.Uint("user_id", p.UserID),
		zap.String("authority", deref(p.Authority)),
		zap.String("ref_id", refID),
	)
	n := types.Notification{
		Kind:      types.NOTIFY_RECONCILIATION_GAP,
		UserID:    p.UserID,
		EventID:   p.EventID,
		PaymentID: p.ID,
		RefID:     refID,
		Amount:    p.Amount,
		Authority: deref(p.Authority),
	}
	if err := c.alerts.Publish(ctx, string(types.NOTIFY_RECONCILIATION_GAP), n); err != nil {
		zap.L().Error("failed to publish reconciliation gap", zap.Uint("payment_id", p.ID), zap.Error(err))
	}
}

func (c *Checkout) notifyPaid(p *models.Payment, registration *models.Registration, refID string) {
	n := types.Notification{
		Kind:      types.NOTIFY_PAYMENT_PAID,
		UserID:    p.UserID,
		EventID:   p.EventID,
		PaymentID: p.ID,
		RefID:     refID,
		Amount:    p.Amount,
		Authority: deref(p.Authority),
	}
	if p.Event != nil {
		n.EventName = p.Event.Title
	}
	if p.User != nil {
		n.Email = p.User.Email
		n.Name = p.User.FullName()
	}
	if registration != nil {
		n.TicketID = registration.TicketID.String()
	}
	c.notifier.Enqueue(n)
}

func (c *Checkout) logDelivery(ctx context.Context, in FinalizeInput) *models.GatewayEvent {
	raw, err := json.Marshal(in.RawQuery)
	if err != nil {
		raw = []byte("{}")
	}
	ev := &models.GatewayEvent{
		Authority:  in.Authority,
		StatusFlag: in.Status,
		RawQuery:   raw,
	}
	if err := c.store.GatewayEvents().Create(ctx, ev); err != nil {
		zap.L().Warn("failed to record gateway callback", zap.String("authority", in.Authority), zap.Error(err))
		return nil
	}
	return ev
}

func (c *Checkout) resolveDelivery(ctx context.Context, ev *models.GatewayEvent, result *FinalizeResult, err error) {
	if ev == nil {
		return
	}
	var (
		paymentID *uint
		errMsg    *string
		outcome   types.GatewayEventOutcome
	)
	switch {
	case err != nil:
		outcome = types.GATEWAY_EVENT_FAILED
		msg := err.Error()
		errMsg = &msg
	case result.Replayed:
		outcome = types.GATEWAY_EVENT_IGNORED
	case result.Success:
		outcome = types.GATEWAY_EVENT_SUCCESS
	case ev.StatusFlag != StatusOK:
		outcome = types.GATEWAY_EVENT_CANCELED
	default:
		outcome = types.GATEWAY_EVENT_FAILED
	}
	if result != nil && result.PaymentID != 0 {
		paymentID = &result.PaymentID
	}
	if err := c.store.GatewayEvents().Resolve(context.WithoutCancel(ctx), ev.ID, paymentID, outcome, errMsg); err != nil {
		zap.L().Warn("failed to resolve gateway callback", zap.Uint("gateway_event_id", ev.ID), zap.Error(err))
	}
}

// RedirectURL is the frontend result page for a finalized payment.
func (c *Checkout) RedirectURL(result *FinalizeResult) string {
	status := "failed"
	if result.Success {
		status = "success"
	}
	u := fmt.Sprintf("%s/payments/result?status=%s&event_id=%d", c.cfg.FrontendRoot, status, result.EventID)
	if result.Success && result.RefID != "" {
		u += "&ref_id=" + url.QueryEscape(result.RefID)
	}
	return u
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
