package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"guilance/src/models"
	"guilance/src/repositories"
	"guilance/src/types"

	"go.uber.org/zap"
)

// Ledger owns every Payment state change: init -> pending -> paid | failed | canceled.
// Terminal states are never left.
type Ledger struct {
	payments repositories.PaymentRepository
	now      func() time.Time
}

func NewLedger(payments repositories.PaymentRepository) *Ledger {
	return &Ledger{payments: payments, now: time.Now}
}

// With returns a ledger writing through payments, typically bound to a transaction.
func (l *Ledger) With(payments repositories.PaymentRepository) *Ledger {
	return &Ledger{payments: payments, now: l.now}
}

func (l *Ledger) Create(ctx context.Context, payment *models.Payment) error {
	payment.Status = types.PAYMENT_INIT
	payment.Authority = nil
	if err := l.payments.Create(ctx, payment); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

func (l *Ledger) AttachAuthority(ctx context.Context, id uint, authority string) error {
	applied, err := l.payments.AttachAuthority(ctx, id, authority)
	if errors.Is(err, repositories.ErrDuplicateAuthority) {
		zap.L().Error("gateway authority already assigned",
			zap.Uint("payment_id", id),
			zap.String("authority", authority),
		)
		return err
	}
	if err != nil {
		return fmt.Errorf("attach authority: %w", err)
	}
	if !applied {
		return fmt.Errorf("payment %d is not awaiting an authority", id)
	}
	return nil
}

// MarkPaid reports false without error when the payment was not pending.
func (l *Ledger) MarkPaid(ctx context.Context, id uint, receipt models.Receipt) (bool, error) {
	return l.transition(ctx, id, types.PAYMENT_PAID, map[string]any{
		"ref_id":      nullable(receipt.RefID),
		"card_pan":    nullable(receipt.CardPan),
		"card_hash":   nullable(receipt.CardHash),
		"verified_at": l.now(),
	})
}

func (l *Ledger) MarkFailed(ctx context.Context, id uint) (bool, error) {
	return l.transition(ctx, id, types.PAYMENT_FAILED, nil)
}

func (l *Ledger) MarkCanceled(ctx context.Context, id uint) (bool, error) {
	return l.transition(ctx, id, types.PAYMENT_CANCELED, nil)
}

func (l *Ledger) transition(ctx context.Context, id uint, to types.PaymentStatus, updates map[string]any) (bool, error) {
	current, err := l.payments.FindByIDForUpdate(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return false, ErrPaymentNotFound
	}
	if err != nil {
		return false, fmt.Errorf("lock payment: %w", err)
	}
	if current.Status != types.PAYMENT_PENDING {
		zap.L().Info("payment transition skipped",
			zap.Uint("payment_id", id),
			zap.String("status", string(current.Status)),
			zap.String("target", string(to)),
		)
		return false, nil
	}
	applied, err := l.payments.Transition(ctx, id, types.PAYMENT_PENDING, to, updates)
	if err != nil {
		return false, fmt.Errorf("mark payment %s: %w", to, err)
	}
	return applied, nil
}

// Discard removes an init payment whose gateway request never succeeded.
func (l *Ledger) Discard(ctx context.Context, id uint) error {
	deleted, err := l.payments.DeleteInit(ctx, id)
	if err != nil {
		return fmt.Errorf("discard payment: %w", err)
	}
	if !deleted {
		zap.L().Warn("payment not discarded, it already left init", zap.Uint("payment_id", id))
	}
	return nil
}

func (l *Ledger) FindByAuthority(ctx context.Context, authority string) (*models.Payment, error) {
	p, err := l.payments.FindByAuthority(ctx, authority)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrUnknownAuthority
	}
	if err != nil {
		return nil, Internal(err)
	}
	return p, nil
}

// FindForUser hides other users' payments behind not found.
func (l *Ledger) FindForUser(ctx context.Context, id uint, userID uint) (*models.Payment, error) {
	p, err := l.payments.FindByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) || (err == nil && p.UserID != userID) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, Internal(err)
	}
	return p, nil
}

func (l *Ledger) ListForUser(ctx context.Context, userID uint) ([]models.Payment, error) {
	payments, err := l.payments.ListForUser(ctx, userID)
	if err != nil {
		return nil, Internal(err)
	}
	return payments, nil
}

func (l *Ledger) HasPaid(ctx context.Context, userID, eventID uint) (bool, error) {
	return l.payments.HasPaid(ctx, userID, eventID)
}

// ExpireStale deletes init payments and cancels pending ones created before cutoff.
func (l *Ledger) ExpireStale(ctx context.Context, cutoff time.Time) (deleted int, canceled int, err error) {
	initial, err := l.payments.ListStale(ctx, types.PAYMENT_INIT, cutoff)
	if err != nil {
		return 0, 0, fmt.Errorf("list stale init payments: %w", err)
	}
	for _, p := range initial {
		ok, err := l.payments.DeleteInit(ctx, p.ID)
		if err != nil {
			return deleted, canceled, fmt.Errorf("delete stale payment %d: %w", p.ID, err)
		}
		if ok {
			deleted++
		}
	}
	pending, err := l.payments.ListStale(ctx, types.PAYMENT_PENDING, cutoff)
	if err != nil {
		return deleted, canceled, fmt.Errorf("list stale pending payments: %w", err)
	}
	for _, p := range pending {
		ok, err := l.payments.Transition(ctx, p.ID, types.PAYMENT_PENDING, types.PAYMENT_CANCELED, nil)
		if err != nil {
			return deleted, canceled, fmt.Errorf("cancel stale payment %d: %w", p.ID, err)
		}
		if ok {
			canceled++
		}
	}
	return deleted, canceled, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
