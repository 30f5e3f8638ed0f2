package common

import (
	"context"
	"time"

	"guilance/src/lib"
	"guilance/src/services"

	"go.uber.org/zap"
)

const sweepTimeout = 2 * time.Minute

// SweepStalePayments drops init payments and cancels pending ones older than ttl.
func SweepStalePayments(ledger *services.Ledger, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()
	deleted, canceled, err := ledger.ExpireStale(ctx, time.Now().Add(-ttl))
	if err != nil {
		zap.L().Error("stale payment sweep failed", zap.Int("deleted", deleted), zap.Int("canceled", canceled), zap.Error(err))
		return
	}
	if deleted > 0 || canceled > 0 {
		zap.L().Info("stale payments swept", zap.Int("deleted", deleted), zap.Int("canceled", canceled))
	}
}

func ScheduleStalePaymentSweep(ledger *services.Ledger, every time.Duration, ttl time.Duration) (string, error) {
	return lib.CreateCronJob("stale-payment-sweep", every, SweepStalePayments, ledger, ttl)
}
