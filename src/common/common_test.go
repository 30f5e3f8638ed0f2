package common

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"guilance/src/db"
	"guilance/src/lib"
	"guilance/src/models"
	"guilance/src/repositories"
	"guilance/src/services"
	"guilance/src/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMail struct {
	mu   sync.Mutex
	sent []*lib.SendMailInput
}

func (f *fakeMail) Send(_ context.Context, input *lib.SendMailInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, input)
	return nil
}

type fakePublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (f *fakePublisher) Publish(_ context.Context, subject string, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjects = append(f.subjects, subject)
	return nil
}

func TestQueueNotifier(t *testing.T) {
	mail := &fakeMail{}
	publisher := &fakePublisher{}
	var topics []string
	push := func(_ context.Context, topic, title, body string, data map[string]string) error {
		topics = append(topics, topic)
		assert.Equal(t, "42", data["event_id"])
		return nil
	}
	q := NewQueueNotifier(mail, push, publisher, "noreply@guilance.ir", "Guilance")

	q.Enqueue(types.Notification{
		Kind: types.NOTIFY_REGISTRATION_CONFIRMED, UserID: 7, Email: "sara@guilan.ac.ir", Name: "Sara",
		EventID: 42, EventName: "Intro to Go", TicketID: "t-1",
	})
	q.Wait()
	q.Enqueue(types.Notification{
		Kind: types.NOTIFY_PAYMENT_PAID, UserID: 7, Email: "sara@guilan.ac.ir",
		EventID: 42, EventName: "Intro to Go", PaymentID: 3, RefID: "201", Amount: 70000,
	})
	q.Enqueue(types.Notification{Kind: types.NOTIFY_RECONCILIATION_GAP, UserID: 7, EventID: 42, PaymentID: 4})
	q.Wait()

	require.Len(t, mail.sent, 2)
	subjects := []string{mail.sent[0].Subject, mail.sent[1].Subject}
	assert.ElementsMatch(t, []string{"Registration confirmed: Intro to Go", "Payment received: Intro to Go"}, subjects)
	for _, m := range mail.sent {
		assert.Equal(t, []string{"sara@guilan.ac.ir"}, m.To)
		assert.Equal(t, "noreply@guilance.ir", m.From)
	}
	assert.Equal(t, []string{"user-7"}, topics)
	assert.ElementsMatch(t, []string{"payment_paid", "reconciliation_gap"}, publisher.subjects)
}

func TestQueueNotifierSkipsMissingEmail(t *testing.T) {
	mail := &fakeMail{}
	q := NewQueueNotifier(mail, nil, nil, "noreply@guilance.ir", "")
	q.Enqueue(types.Notification{Kind: types.NOTIFY_PAYMENT_PAID, UserID: 1})
	q.Wait()
	assert.Empty(t, mail.sent)
}

func TestEmailHandler(t *testing.T) {
	var delivered []*lib.SendMailInput
	deliver := func(_ context.Context, input *lib.SendMailInput) error {
		delivered = append(delivered, input)
		return nil
	}
	handle := EmailHandler("EmailsToSend_test", deliver)

	handle(`{"from":"noreply@guilance.ir","to":["a@guilan.ac.ir"],"subject":"Hi","body":"text","html":false}`)
	handle(`{"Type":"Notification","Message":"{\"to\":[\"b@guilan.ac.ir\"],\"subject\":\"Wrapped\",\"body\":\"x\"}"}`)
	handle(`not json`)
	handle(`{"subject":"nobody"}`)

	require.Len(t, delivered, 2)
	assert.Equal(t, []string{"a@guilan.ac.ir"}, delivered[0].To)
	assert.Equal(t, "Wrapped", delivered[1].Subject)
}

func TestEmailHandlerDeliveryError(t *testing.T) {
	calls := 0
	handle := EmailHandler("q", func(context.Context, *lib.SendMailInput) error {
		calls++
		return errors.New("smtp down")
	})
	assert.NotPanics(t, func() { handle(`{"to":["a@guilan.ac.ir"],"subject":"s","body":"b"}`) })
	assert.Equal(t, 1, calls)
}

func TestSweepStalePayments(t *testing.T) {
	ctx := context.Background()
	gormDB, err := db.NewSqliteDB()
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(gormDB))
	store := repositories.NewGormStore(gormDB)

	user := &models.User{Email: "sweep@guilan.ac.ir"}
	require.NoError(t, store.Users().Create(ctx, user))
	price := int64(50000)
	event := &models.Event{Title: "Sweep Night", Status: types.EVENT_PUBLISHED, Price: &price}
	require.NoError(t, store.Events().Create(ctx, event))

	ledger := services.NewLedger(store.Payments())
	pending := &models.Payment{UserID: user.ID, EventID: event.ID, BaseAmount: price, Amount: price}
	require.NoError(t, ledger.Create(ctx, pending))
	require.NoError(t, ledger.AttachAuthority(ctx, pending.ID, "A-SWEEP"))
	require.NoError(t, gormDB.Model(&models.Payment{}).Where("id = ?", pending.ID).Update("created_at", time.Now().Add(-3*time.Hour)).Error)

	SweepStalePayments(ledger, time.Hour)

	p, err := store.Payments().FindByID(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, types.PAYMENT_CANCELED, p.Status)
}
