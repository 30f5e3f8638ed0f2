package services

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"guilance/src/db"
	"guilance/src/lib/zarinpal"
	"guilance/src/models"
	"guilance/src/repositories"
	"guilance/src/types"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func ptr[T any](v T) *T {
	return &v
}

func newTestStore(t *testing.T) *repositories.GormStore {
	gormDB, err := db.NewSqliteDB()
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(gormDB))
	return repositories.NewGormStore(gormDB)
}

func createUser(t *testing.T, store repositories.Store, email string) *models.User {
	user := &models.User{Email: email, FirstName: "Reza", LastName: "Karimi", Mobile: "09121234567"}
	require.NoError(t, store.Users().Create(context.Background(), user))
	return user
}

func createEvent(t *testing.T, store repositories.Store, title string, price *int64, capacity *int64) *models.Event {
	event := &models.Event{
		Title:     title,
		Status:    types.EVENT_PUBLISHED,
		StartTime: time.Now().Add(72 * time.Hour),
		EndTime:   time.Now().Add(74 * time.Hour),
		Price:     price,
		Capacity:  capacity,
	}
	require.NoError(t, store.Events().Create(context.Background(), event))
	return event
}

func observeLogs(t *testing.T, level zapcore.Level) *observer.ObservedLogs {
	core, logs := observer.New(level)
	restore := zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(restore)
	return logs
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []types.Notification
}

func (r *recordingNotifier) Enqueue(n types.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recordingNotifier) kinds() []types.NotificationKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]types.NotificationKind, 0, len(r.sent))
	for _, n := range r.sent {
		kinds = append(kinds, n.Kind)
	}
	return kinds
}

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (r *recordingPublisher) Publish(_ context.Context, subject string, _ any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subjects = append(r.subjects, subject)
	return nil
}

// fakeGateway hands out sequential authorities and answers verify with a fixed result.
type fakeGateway struct {
	mu       sync.Mutex
	request  zarinpal.RequestResult
	verify   zarinpal.VerifyResult
	requests []zarinpal.PaymentRequest
	verifies int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		request: zarinpal.RequestResult{Outcome: zarinpal.OutcomeSuccess, Authority: "A0000000000000000000000000000012345", Code: 100},
		verify:  zarinpal.VerifyResult{Outcome: zarinpal.OutcomeSuccess, Code: 100, RefID: "201", CardPan: "502229******5995"},
	}
}

func (g *fakeGateway) RequestPayment(_ context.Context, req zarinpal.PaymentRequest) zarinpal.RequestResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	return g.request
}

func (g *fakeGateway) VerifyPayment(context.Context, int64, string) zarinpal.VerifyResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verifies++
	return g.verify
}

func (g *fakeGateway) StartPayURL(authority string) string {
	return "https://sandbox.zarinpal.com/pg/StartPay/" + authority
}

func (g *fakeGateway) verifyCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.verifies
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
