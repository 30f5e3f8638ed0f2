package common

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"guilance/src/lib"
	"guilance/src/types"

	"go.uber.org/zap"
)

const notifyTimeout = 30 * time.Second

type MailSender interface {
	Send(ctx context.Context, input *lib.SendMailInput) error
}

// PushSender matches lib.SendPush.
type PushSender func(ctx context.Context, topic string, title string, body string, data map[string]string) error

type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

// QueueNotifier turns domain notifications into queued emails, pushes and topic messages.
// Enqueue returns immediately, delivery runs in the background.
type QueueNotifier struct {
	mail      MailSender
	push      PushSender
	publisher Publisher
	from      string
	fromName  string
	wg        sync.WaitGroup
}

func NewQueueNotifier(mail MailSender, push PushSender, publisher Publisher, from string, fromName string) *QueueNotifier {
	return &QueueNotifier{mail: mail, push: push, publisher: publisher, from: from, fromName: fromName}
}

func (q *QueueNotifier) Enqueue(n types.Notification) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		q.deliver(ctx, n)
	}()
}

// Wait blocks until every enqueued notification was handed off.
func (q *QueueNotifier) Wait() {
	q.wg.Wait()
}

func (q *QueueNotifier) deliver(ctx context.Context, n types.Notification) {
	switch n.Kind {
	case types.NOTIFY_REGISTRATION_CONFIRMED:
		q.sendMail(ctx, n, fmt.Sprintf("Registration confirmed: %s", n.EventName), registrationBody(n))
		q.sendPush(ctx, n, "Registration confirmed", fmt.Sprintf("You are registered for %s", n.EventName))
	case types.NOTIFY_PAYMENT_PAID:
		q.sendMail(ctx, n, fmt.Sprintf("Payment received: %s", n.EventName), paymentBody(n))
		q.publish(ctx, n)
	case types.NOTIFY_RECONCILIATION_GAP:
		q.publish(ctx, n)
	default:
		zap.L().Warn("unknown notification kind", zap.String("kind", string(n.Kind)))
	}
}

func (q *QueueNotifier) sendMail(ctx context.Context, n types.Notification, subject string, body string) {
	if q.mail == nil || n.Email == "" {
		return
	}
	err := q.mail.Send(ctx, &lib.SendMailInput{
		From:     q.from,
		FromName: q.fromName,
		To:       []string{n.Email},
		Subject:  subject,
		Body:     body,
	})
	if err != nil {
		zap.L().Error("failed to queue email", zap.String("kind", string(n.Kind)), zap.Uint("user_id", n.UserID), zap.Error(err))
	}
}

func (q *QueueNotifier) sendPush(ctx context.Context, n types.Notification, title string, body string) {
	if q.push == nil {
		return
	}
	data := map[string]string{
		"kind":      string(n.Kind),
		"event_id":  strconv.FormatUint(uint64(n.EventID), 10),
		"ticket_id": n.TicketID,
	}
	if err := q.push(ctx, lib.UserTopic(n.UserID), title, body, data); err != nil {
		zap.L().Warn("failed to send push", zap.Uint("user_id", n.UserID), zap.Error(err))
	}
}

func (q *QueueNotifier) publish(ctx context.Context, n types.Notification) {
	if q.publisher == nil {
		return
	}
	if err := q.publisher.Publish(ctx, string(n.Kind), n); err != nil {
		zap.L().Error("failed to publish notification", zap.String("kind", string(n.Kind)), zap.Uint("payment_id", n.PaymentID), zap.Error(err))
	}
}

func greeting(n types.Notification) string {
	if n.Name == "" {
		return "Hello,"
	}
	return fmt.Sprintf("Hello %s,", n.Name)
}

func registrationBody(n types.Notification) string {
	return fmt.Sprintf("%s\n\nYour registration for %s is confirmed.\nTicket: %s\n", greeting(n), n.EventName, n.TicketID)
}

func paymentBody(n types.Notification) string {
	return fmt.Sprintf("%s\n\nWe received your payment of %d IRR for %s.\nReference: %s\nTicket: %s\n",
		greeting(n), n.Amount, n.EventName, n.RefID, n.TicketID)
}
