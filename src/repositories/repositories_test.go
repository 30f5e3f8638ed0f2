package repositories

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"guilance/src/db"
	"guilance/src/models"
	"guilance/src/types"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func ptr[T any](v T) *T {
	return &v
}

func newTestStore(t *testing.T) *GormStore {
	gormDB, err := db.NewSqliteDB()
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(gormDB))
	return NewGormStore(gormDB)
}

func newMockStore(t *testing.T) (*GormStore, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
	require.NoError(t, err)
	return NewGormStore(gormDB), mock
}

func seed(t *testing.T, s *GormStore) (*models.User, *models.Event) {
	ctx := context.Background()
	user := &models.User{Email: "student@guilan.ac.ir", FirstName: "Sara", LastName: "Ahmadi"}
	require.NoError(t, s.Users().Create(ctx, user))
	event := &models.Event{
		Title:     "Intro to Go",
		Status:    types.EVENT_PUBLISHED,
		StartTime: time.Now().Add(48 * time.Hour),
		EndTime:   time.Now().Add(50 * time.Hour),
		Price:     ptr(int64(100000)),
		Capacity:  ptr(int64(2)),
	}
	require.NoError(t, s.Events().Create(ctx, event))
	return user, event
}

func TestDecrementCapacityIsCompareAndSet(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "events" SET "capacity"=capacity - 1 WHERE (id = $1 AND capacity IS NOT NULL AND capacity > 0)`)).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "events" SET "capacity"=capacity - 1 WHERE (id = $1 AND capacity IS NOT NULL AND capacity > 0)`)).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	ok, err := store.Events().DecrementCapacity(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Events().DecrementCapacity(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentTransitionIsStateGuarded(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "payments" SET .*"status"=.* WHERE \(id = \$\d+ AND status = \$\d+\)`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	applied, err := store.Payments().Transition(context.Background(), 3, types.PAYMENT_PENDING, types.PAYMENT_CANCELED, nil)

	require.NoError(t, err)
	assert.False(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementCapacityStopsAtZero(t *testing.T) {
	store := newTestStore(t)
	_, event := seed(t, store)
	ctx := context.Background()

	for _, want := range []bool{true, true, false} {
		ok, err := store.Events().DecrementCapacity(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, want, ok)
	}
	reloaded, err := store.Events().FindByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), *reloaded.Capacity)

	unbounded := &models.Event{Title: "Open Day", Status: types.EVENT_PUBLISHED}
	require.NoError(t, store.Events().Create(ctx, unbounded))
	ok, err := store.Events().DecrementCapacity(ctx, unbounded.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEventSlugAndPublishedLookup(t *testing.T) {
	store := newTestStore(t)
	_, event := seed(t, store)
	ctx := context.Background()
	draft := &models.Event{Title: "Hidden Draft", Status: types.EVENT_DRAFT}
	require.NoError(t, store.Events().Create(ctx, draft))

	assert.Equal(t, "intro-to-go", event.Slug)
	found, err := store.Events().FindPublishedBySlug(ctx, "intro-to-go")
	require.NoError(t, err)
	assert.Equal(t, event.ID, found.ID)

	_, err = store.Events().FindPublishedBySlug(ctx, "hidden-draft")
	assert.ErrorIs(t, err, ErrNotFound)

	events, total, err := store.Events().ListPublished(ctx, types.EventQueryFilters{Search: "go", Upcoming: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, events, 1)
	assert.Equal(t, event.ID, events[0].ID)
}

func TestRegistrationCancelAndRestore(t *testing.T) {
	store := newTestStore(t)
	user, event := seed(t, store)
	ctx := context.Background()
	repo := store.Registrations()

	reg := &models.Registration{EventID: event.ID, UserID: user.ID, Status: types.REGISTRATION_CONFIRMED}
	require.NoError(t, repo.Create(ctx, reg))
	ticket := reg.TicketID
	count, err := store.Events().CountConfirmedRegistrations(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, repo.Cancel(ctx, reg.ID))
	_, err = repo.FindByEventAndUser(ctx, event.ID, user.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	count, err = store.Events().CountConfirmedRegistrations(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	deleted, err := repo.FindDeletedByEventAndUser(ctx, event.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, types.REGISTRATION_CANCELLED, deleted.Status)

	require.NoError(t, repo.Restore(ctx, deleted.ID, types.REGISTRATION_PENDING))
	restored, err := repo.FindByEventAndUser(ctx, event.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, types.REGISTRATION_PENDING, restored.Status)
	assert.Equal(t, ticket, restored.TicketID)

	require.NoError(t, repo.HardDelete(ctx, restored.ID))
	_, err = repo.FindDeletedByEventAndUser(ctx, event.ID, user.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistrationTransitionOnlyFromExpectedStatus(t *testing.T) {
	store := newTestStore(t)
	user, event := seed(t, store)
	ctx := context.Background()
	reg := &models.Registration{EventID: event.ID, UserID: user.ID, Status: types.REGISTRATION_PENDING}
	require.NoError(t, store.Registrations().Create(ctx, reg))

	ok, err := store.Registrations().Transition(ctx, reg.ID, types.REGISTRATION_PENDING, types.REGISTRATION_CONFIRMED)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.Registrations().Transition(ctx, reg.ID, types.REGISTRATION_PENDING, types.REGISTRATION_CONFIRMED)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPaymentLifecycle(t *testing.T) {
	store := newTestStore(t)
	user, event := seed(t, store)
	ctx := context.Background()
	repo := store.Payments()

	bad := &models.Payment{UserID: user.ID, EventID: event.ID, BaseAmount: 100, DiscountAmount: 10, Amount: 80}
	assert.ErrorIs(t, repo.Create(ctx, bad), models.ErrAmountMismatch)

	p := &models.Payment{UserID: user.ID, EventID: event.ID, BaseAmount: 100000, DiscountAmount: 30000, Amount: 70000}
	require.NoError(t, repo.Create(ctx, p))
	assert.Equal(t, types.PAYMENT_INIT, p.Status)

	ok, err := repo.AttachAuthority(ctx, p.ID, "A0001")
	require.NoError(t, err)
	assert.True(t, ok)

	other := &models.Payment{UserID: user.ID, EventID: event.ID, BaseAmount: 100000, Amount: 100000}
	require.NoError(t, repo.Create(ctx, other))
	_, err = repo.AttachAuthority(ctx, other.ID, "A0001")
	assert.ErrorIs(t, err, ErrDuplicateAuthority)

	found, err := repo.FindByAuthority(ctx, "A0001")
	require.NoError(t, err)
	assert.Equal(t, types.PAYMENT_PENDING, found.Status)
	require.NotNil(t, found.Event)
	assert.Equal(t, event.ID, found.Event.ID)

	paid, err := repo.HasPaid(ctx, user.ID, event.ID)
	require.NoError(t, err)
	assert.False(t, paid)

	ok, err = repo.Transition(ctx, p.ID, types.PAYMENT_PENDING, types.PAYMENT_PAID, map[string]any{"ref_id": "201"})
	require.NoError(t, err)
	assert.True(t, ok)
	paid, err = repo.HasPaid(ctx, user.ID, event.ID)
	require.NoError(t, err)
	assert.True(t, paid)

	deleted, err := repo.DeleteInit(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
	deleted, err = repo.DeleteInit(ctx, other.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	_, err = repo.FindByID(ctx, other.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCountDiscountUsage(t *testing.T) {
	store := newTestStore(t)
	user, event := seed(t, store)
	ctx := context.Background()
	code := &models.DiscountCode{Code: "WELCOME30", Type: types.DISCOUNT_PERCENTAGE, Value: 30, IsActive: true}
	require.NoError(t, store.Discounts().Create(ctx, code))
	otherUser := &models.User{Email: "other@guilan.ac.ir"}
	require.NoError(t, store.Users().Create(ctx, otherUser))

	for _, p := range []struct {
		user   uint
		status types.PaymentStatus
	}{
		{user.ID, types.PAYMENT_PAID},
		{user.ID, types.PAYMENT_FAILED},
		{otherUser.ID, types.PAYMENT_PENDING},
		{otherUser.ID, types.PAYMENT_CANCELED},
	} {
		require.NoError(t, store.Payments().Create(ctx, &models.Payment{
			UserID: p.user, EventID: event.ID, DiscountCodeID: &code.ID,
			BaseAmount: 100000, DiscountAmount: 30000, Amount: 70000, Status: p.status,
		}))
	}

	total, err := store.Payments().CountDiscountUsage(ctx, code.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	mine, err := store.Payments().CountDiscountUsage(ctx, code.ID, &user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), mine)

	found, err := store.Discounts().FindByCode(ctx, " welcome30 ")
	require.NoError(t, err)
	assert.Equal(t, code.ID, found.ID)
}

func TestListStalePayments(t *testing.T) {
	store := newTestStore(t)
	user, event := seed(t, store)
	ctx := context.Background()
	old := &models.Payment{UserID: user.ID, EventID: event.ID, BaseAmount: 10, Amount: 10, Status: types.PAYMENT_PENDING}
	old.CreatedAt = time.Now().Add(-2 * time.Hour)
	require.NoError(t, store.Payments().Create(ctx, old))
	fresh := &models.Payment{UserID: user.ID, EventID: event.ID, BaseAmount: 10, Amount: 10, Status: types.PAYMENT_PENDING}
	require.NoError(t, store.Payments().Create(ctx, fresh))

	stale, err := store.Payments().ListStale(ctx, types.PAYMENT_PENDING, time.Now().Add(-time.Hour))

	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, old.ID, stale[0].ID)
}

func TestTransactionRollsBack(t *testing.T) {
	store := newTestStore(t)
	user, event := seed(t, store)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.Transaction(ctx, func(tx Store) error {
		if err := tx.Registrations().Create(ctx, &models.Registration{EventID: event.ID, UserID: user.ID}); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	_, err = store.Registrations().FindByEventAndUser(ctx, event.ID, user.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGatewayEventLog(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ev := &models.GatewayEvent{Authority: "A0009", StatusFlag: "OK", RawQuery: []byte(`{"Authority":"A0009","Status":"OK"}`)}
	require.NoError(t, store.GatewayEvents().Create(ctx, ev))
	require.NoError(t, store.GatewayEvents().Resolve(ctx, ev.ID, ptr(uint(4)), types.GATEWAY_EVENT_SUCCESS, nil))

	events, err := store.GatewayEvents().ListByAuthority(ctx, "A0009")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, types.GATEWAY_EVENT_SUCCESS, events[0].Outcome)
	assert.NotNil(t, events[0].ProcessedAt)
	assert.Equal(t, uint(4), *events[0].PaymentID)
}
