package services

import (
	"context"

	"guilance/src/lib/zarinpal"
	"guilance/src/types"
)

// Notifier hands notifications to an outbound queue. Enqueue must not block on delivery.
type Notifier interface {
	Enqueue(n types.Notification)
}

// Publisher fans operational messages out, e.g. to an SNS topic.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

type Gateway interface {
	RequestPayment(ctx context.Context, req zarinpal.PaymentRequest) zarinpal.RequestResult
	VerifyPayment(ctx context.Context, amount int64, authority string) zarinpal.VerifyResult
	StartPayURL(authority string) string
}

type Locker interface {
	WithLock(ctx context.Context, key string, fn func() error) error
}

type NoopNotifier struct{}

func (NoopNotifier) Enqueue(types.Notification) {}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, any) error { return nil }
