package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/D-Honoured1/Kamisoft-sub002/internal/audit/domain"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/clock"
	paymentdomain "github.com/D-Honoured1/Kamisoft-sub002/internal/payment/domain"
	requestdomain "github.com/D-Honoured1/Kamisoft-sub002/internal/servicerequest/domain"
)

type noopAudit struct{}

func (noopAudit) Record(context.Context, string, string, string, *string, map[string]any) error {
	return nil
}

func (noopAudit) List(context.Context, auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	return auditdomain.ListAuditLogResponse{}, nil
}

type recordingSynchronizer struct {
	calls []snowflake.ID
	err   error
}

func (s *recordingSynchronizer) OnPaymentConfirmed(_ context.Context, p *paymentdomain.Payment) error {
	s.calls = append(s.calls, p.ID)
	return s.err
}

func setupLedger(t *testing.T, clk clock.Clock, sync *recordingSynchronizer) (paymentdomain.Ledger, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	_ = db.Exec("PRAGMA busy_timeout = 5000").Error

	require.NoError(t, db.AutoMigrate(
		&requestdomain.ServiceRequest{},
		&paymentdomain.Payment{},
		&paymentdomain.TransitionRecord{},
	))

	node, err := snowflake.NewNode(10)
	require.NoError(t, err)

	ledger := NewLedger(Params{
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        clk,
		Synchronizer: sync,
		AuditSvc:     noopAudit{},
	})
	return ledger, db, node
}

func seedRequest(t *testing.T, db *gorm.DB, node *snowflake.Node, status requestdomain.Status) snowflake.ID {
	t.Helper()
	req := requestdomain.ServiceRequest{
		ID:        node.Generate(),
		ClientID:  node.Generate(),
		Category:  requestdomain.CategoryWebDevelopment,
		Title:     "Storefront rebuild",
		Status:    status,
		Currency:  "USD",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, db.Create(&req).Error)
	return req.ID
}

func TestCreatePayment_Validation(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	ledger, db, node := setupLedger(t, clk, &recordingSynchronizer{})
	requestID := seedRequest(t, db, node, requestdomain.StatusApproved)

	ctx := context.Background()

	_, err := ledger.Create(ctx, paymentdomain.CreatePaymentRequest{
		RequestID: requestID, Amount: 0, Currency: "USD",
		Method: paymentdomain.MethodPaystack, Type: paymentdomain.TypeFull,
	})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidAmount)

	_, err = ledger.Create(ctx, paymentdomain.CreatePaymentRequest{
		RequestID: requestID, Amount: 5000, Currency: "DOLLARS",
		Method: paymentdomain.MethodPaystack, Type: paymentdomain.TypeFull,
	})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidCurrency)

	_, err = ledger.Create(ctx, paymentdomain.CreatePaymentRequest{
		RequestID: requestID, Amount: 5000, Currency: "USD",
		Method: "cheque", Type: paymentdomain.TypeFull,
	})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidMethod)

	_, err = ledger.Create(ctx, paymentdomain.CreatePaymentRequest{
		RequestID: node.Generate(), Amount: 5000, Currency: "USD",
		Method: paymentdomain.MethodPaystack, Type: paymentdomain.TypeFull,
	})
	assert.ErrorIs(t, err, paymentdomain.ErrRequestNotFound)

	payment, err := ledger.Create(ctx, paymentdomain.CreatePaymentRequest{
		RequestID: requestID, Amount: 5000, Currency: "usd",
		Method: paymentdomain.MethodPaystack, Type: paymentdomain.TypeFull,
	})
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusPending, payment.Status)
	assert.Equal(t, "USD", payment.Currency)
	assert.Equal(t, clk.Now(), payment.CreatedAt)
}

func TestTransition_HappyPathConfirm(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	sync := &recordingSynchronizer{}
	ledger, db, node := setupLedger(t, clk, sync)
	requestID := seedRequest(t, db, node, requestdomain.StatusApproved)

	ctx := context.Background()
	payment, err := ledger.Create(ctx, paymentdomain.CreatePaymentRequest{
		RequestID: requestID, Amount: 250000, Currency: "USD",
		Method: paymentdomain.MethodPaystack, Type: paymentdomain.TypeFull,
	})
	require.NoError(t, err)

	_, err = ledger.Transition(ctx, payment.ID, paymentdomain.StatusProcessing, "admin@example.com")
	require.NoError(t, err)

	clk.Advance(2 * time.Minute)
	confirmed, err := ledger.Transition(ctx, payment.ID, paymentdomain.StatusConfirmed, "webhook",
		paymentdomain.WithProviderRef("PSK-REF-001"))
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt)
	assert.Equal(t, clk.Now(), *confirmed.ConfirmedAt)
	require.NotNil(t, confirmed.ProviderRef)
	assert.Equal(t, "PSK-REF-001", *confirmed.ProviderRef)

	// The synchronizer runs once, after the confirm commits.
	require.Len(t, sync.calls, 1)
	assert.Equal(t, payment.ID, sync.calls[0])

	var history []paymentdomain.TransitionRecord
	require.NoError(t, db.Where("payment_id = ?", payment.ID).Order("created_at ASC").Find(&history).Error)
	require.Len(t, history, 2)
	assert.Equal(t, paymentdomain.StatusPending, history[0].FromStatus)
	assert.Equal(t, paymentdomain.StatusProcessing, history[0].ToStatus)
	assert.Equal(t, "admin@example.com", history[0].Actor)
	assert.Equal(t, paymentdomain.StatusProcessing, history[1].FromStatus)
	assert.Equal(t, paymentdomain.StatusConfirmed, history[1].ToStatus)
	assert.Equal(t, "webhook", history[1].Actor)
}

func TestTransition_SameStatusIdempotent(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	sync := &recordingSynchronizer{}
	ledger, db, node := setupLedger(t, clk, sync)
	requestID := seedRequest(t, db, node, requestdomain.StatusApproved)

	ctx := context.Background()
	payment, err := ledger.Create(ctx, paymentdomain.CreatePaymentRequest{
		RequestID: requestID, Amount: 1000, Currency: "USD",
		Method: paymentdomain.MethodFlutterwave, Type: paymentdomain.TypeSplitUpfront,
	})
	require.NoError(t, err)

	_, err = ledger.Transition(ctx, payment.ID, paymentdomain.StatusConfirmed, "webhook")
	require.NoError(t, err)
	require.Len(t, sync.calls, 1)

	// A replayed confirm acks without a second history row or sync call.
	again, err := ledger.Transition(ctx, payment.ID, paymentdomain.StatusConfirmed, "webhook")
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusConfirmed, again.Status)
	assert.Len(t, sync.calls, 1)

	var count int64
	require.NoError(t, db.Model(&paymentdomain.TransitionRecord{}).
		Where("payment_id = ?", payment.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestTransition_TerminalAndInvalid(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	ledger, db, node := setupLedger(t, clk, &recordingSynchronizer{})
	requestID := seedRequest(t, db, node, requestdomain.StatusApproved)

	ctx := context.Background()

	newPayment := func() snowflake.ID {
		p, err := ledger.Create(ctx, paymentdomain.CreatePaymentRequest{
			RequestID: requestID, Amount: 1000, Currency: "USD",
			Method: paymentdomain.MethodPaystack, Type: paymentdomain.TypeFull,
		})
		require.NoError(t, err)
		return p.ID
	}

	// pending cannot jump to refunded.
	id := newPayment()
	_, err := ledger.Transition(ctx, id, paymentdomain.StatusRefunded, "admin")
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidTransition)

	// confirmed admits only the refund path.
	id = newPayment()
	_, err = ledger.Transition(ctx, id, paymentdomain.StatusConfirmed, "webhook")
	require.NoError(t, err)
	_, err = ledger.Transition(ctx, id, paymentdomain.StatusCancelled, "admin")
	assert.ErrorIs(t, err, paymentdomain.ErrTerminalState)
	_, err = ledger.Transition(ctx, id, paymentdomain.StatusRefunded, "admin",
		paymentdomain.WithReason("client dispute settled"))
	assert.NoError(t, err)

	// declined is fully terminal.
	id = newPayment()
	_, err = ledger.Transition(ctx, id, paymentdomain.StatusProcessing, "admin")
	require.NoError(t, err)
	_, err = ledger.Transition(ctx, id, paymentdomain.StatusDeclined, "webhook",
		paymentdomain.WithErrorMessage("insufficient funds"))
	require.NoError(t, err)
	_, err = ledger.Transition(ctx, id, paymentdomain.StatusConfirmed, "webhook")
	assert.ErrorIs(t, err, paymentdomain.ErrTerminalState)
}

func TestTransition_SynchronizerFailureDoesNotRollBack(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	sync := &recordingSynchronizer{err: errors.New("request gone")}
	ledger, db, node := setupLedger(t, clk, sync)
	requestID := seedRequest(t, db, node, requestdomain.StatusApproved)

	ctx := context.Background()
	payment, err := ledger.Create(ctx, paymentdomain.CreatePaymentRequest{
		RequestID: requestID, Amount: 1000, Currency: "USD",
		Method: paymentdomain.MethodPaystack, Type: paymentdomain.TypeFull,
	})
	require.NoError(t, err)

	confirmed, err := ledger.Transition(ctx, payment.ID, paymentdomain.StatusConfirmed, "webhook")
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusConfirmed, confirmed.Status)

	stored, err := ledger.GetByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusConfirmed, stored.Status)
}

func TestGetByProviderRef(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	ledger, db, node := setupLedger(t, clk, &recordingSynchronizer{})
	requestID := seedRequest(t, db, node, requestdomain.StatusApproved)

	ctx := context.Background()
	payment, err := ledger.Create(ctx, paymentdomain.CreatePaymentRequest{
		RequestID: requestID, Amount: 1000, Currency: "NGN",
		Method: paymentdomain.MethodPaystack, Type: paymentdomain.TypeFull,
	})
	require.NoError(t, err)
	_, err = ledger.Transition(ctx, payment.ID, paymentdomain.StatusConfirmed, "webhook",
		paymentdomain.WithProviderRef("PSK-42"))
	require.NoError(t, err)

	found, err := ledger.GetByProviderRef(ctx, "PSK-42")
	require.NoError(t, err)
	assert.Equal(t, payment.ID, found.ID)

	_, err = ledger.GetByProviderRef(ctx, "missing")
	assert.ErrorIs(t, err, paymentdomain.ErrNotFound)
	_, err = ledger.GetByProviderRef(ctx, "")
	assert.ErrorIs(t, err, paymentdomain.ErrNotFound)
}

func TestExpireStalePending(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	ledger, db, node := setupLedger(t, clk, &recordingSynchronizer{})
	requestID := seedRequest(t, db, node, requestdomain.StatusApproved)

	ctx := context.Background()
	stale, err := ledger.Create(ctx, paymentdomain.CreatePaymentRequest{
		RequestID: requestID, Amount: 1000, Currency: "USD",
		Method: paymentdomain.MethodPaystack, Type: paymentdomain.TypeFull,
	})
	require.NoError(t, err)

	clk.Advance(25 * time.Hour)
	fresh, err := ledger.Create(ctx, paymentdomain.CreatePaymentRequest{
		RequestID: requestID, Amount: 2000, Currency: "USD",
		Method: paymentdomain.MethodPaystack, Type: paymentdomain.TypeFull,
	})
	require.NoError(t, err)

	count, err := ledger.CountStalePending(ctx, clk.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	expired, err := ledger.ExpireStalePending(ctx, clk.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, expired)

	count, err = ledger.CountStalePending(ctx, clk.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	got, err := ledger.GetByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusExpired, got.Status)
	assert.True(t, got.Status.Unsuccessful())

	got, err = ledger.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusPending, got.Status)

	var record paymentdomain.TransitionRecord
	require.NoError(t, db.Where("payment_id = ?", stale.ID).First(&record).Error)
	assert.Equal(t, "system-sweeper", record.Actor)
	require.NotNil(t, record.Reason)
	assert.Equal(t, "pending past expiry window", *record.Reason)
}

func TestDeletePayment(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	ledger, db, node := setupLedger(t, clk, &recordingSynchronizer{})
	requestID := seedRequest(t, db, node, requestdomain.StatusApproved)

	ctx := context.Background()
	pending, err := ledger.Create(ctx, paymentdomain.CreatePaymentRequest{
		RequestID: requestID, Amount: 1000, Currency: "USD",
		Method: paymentdomain.MethodBankTransfer, Type: paymentdomain.TypeFull,
	})
	require.NoError(t, err)

	require.NoError(t, ledger.Delete(ctx, pending.ID, "admin"))

	_, err = ledger.GetByID(ctx, pending.ID)
	assert.ErrorIs(t, err, paymentdomain.ErrNotFound)

	hidden, err := ledger.List(ctx, paymentdomain.ListPaymentRequest{})
	require.NoError(t, err)
	assert.Empty(t, hidden.Payments)

	visible, err := ledger.List(ctx, paymentdomain.ListPaymentRequest{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Len(t, visible.Payments, 1)

	confirmed, err := ledger.Create(ctx, paymentdomain.CreatePaymentRequest{
		RequestID: requestID, Amount: 2000, Currency: "USD",
		Method: paymentdomain.MethodBankTransfer, Type: paymentdomain.TypeFull,
	})
	require.NoError(t, err)
	_, err = ledger.Transition(ctx, confirmed.ID, paymentdomain.StatusConfirmed, "admin")
	require.NoError(t, err)

	err = ledger.Delete(ctx, confirmed.ID, "admin")
	assert.ErrorIs(t, err, paymentdomain.ErrNotDeletable)
}

func TestList_CursorPagination(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	ledger, db, node := setupLedger(t, clk, &recordingSynchronizer{})
	requestID := seedRequest(t, db, node, requestdomain.StatusApproved)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := ledger.Create(ctx, paymentdomain.CreatePaymentRequest{
			RequestID: requestID, Amount: int64(1000 + i), Currency: "USD",
			Method: paymentdomain.MethodPaystack, Type: paymentdomain.TypeFull,
		})
		require.NoError(t, err)
		clk.Advance(time.Second)
	}

	first, err := ledger.List(ctx, paymentdomain.ListPaymentRequest{})
	require.NoError(t, err)
	assert.Len(t, first.Payments, 5)

	req := paymentdomain.ListPaymentRequest{}
	req.PageSize = 2
	page1, err := ledger.List(ctx, req)
	require.NoError(t, err)
	require.Len(t, page1.Payments, 2)
	require.NotEmpty(t, page1.PageInfo.NextPageToken)

	req.PageToken = page1.PageInfo.NextPageToken
	page2, err := ledger.List(ctx, req)
	require.NoError(t, err)
	require.Len(t, page2.Payments, 2)
	assert.NotEqual(t, page1.Payments[1].ID, page2.Payments[0].ID)

	req.PageToken = "not-a-token"
	_, err = ledger.List(ctx, req)
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidPageToken)
}
