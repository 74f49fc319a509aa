package server

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditservice "github.com/D-Honoured1/Kamisoft-sub002/internal/audit/service"
	clientservice "github.com/D-Honoured1/Kamisoft-sub002/internal/client/service"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/clock"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/config"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/invoice/number"
	invoiceservice "github.com/D-Honoured1/Kamisoft-sub002/internal/invoice/service"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/migration"
	obsmetrics "github.com/D-Honoured1/Kamisoft-sub002/internal/observability/metrics"
	operatorservice "github.com/D-Honoured1/Kamisoft-sub002/internal/operator/service"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/payment/adapters"
	paymentservice "github.com/D-Honoured1/Kamisoft-sub002/internal/payment/service"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/payment/webhook"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/providers/email"
	pdfprovider "github.com/D-Honoured1/Kamisoft-sub002/internal/providers/pdf"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/providers/storage"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/rates"
	requestservice "github.com/D-Honoured1/Kamisoft-sub002/internal/servicerequest/service"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/sweeper"
)

const webhookSecret = "sk_test_server"

type stubFetcher struct{}

func (stubFetcher) Fetch(context.Context, string) (map[string]float64, error) {
	return map[string]float64{"NGN": 1520.5}, nil
}

type recordingMail struct {
	to       [][]string
	subjects []string
}

func (m *recordingMail) Send(_ context.Context, to []string, subject string, _ string, _ ...email.Attachment) error {
	m.to = append(m.to, to)
	m.subjects = append(m.subjects, subject)
	return nil
}

type stubPDF struct{}

func (stubPDF) GenerateInvoice(context.Context, pdfprovider.InvoiceData) (io.Reader, error) {
	return bytes.NewReader([]byte("%PDF")), nil
}

func newTestServer(t *testing.T) (*Server, *gin.Engine, *clock.FakeClock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	require.NoError(t, migration.Run(db, zap.NewNop()))

	node, err := snowflake.NewNode(10)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	cfg := config.Config{
		AppName:        "Kamisoft Billing",
		BaseCurrency:   "USD",
		InvoicePrefix:  "KMS",
		InvoiceDueDays: 14,
		InvoiceTaxRate: 0,
		RateTTL:        time.Minute,
		Sweep: config.SweepConfig{
			Interval:   time.Minute,
			PendingTTL: 24 * time.Hour,
			LinkTTL:    48 * time.Hour,
			LockKey:    "kamisoft:sweep",
			LockTTL:    time.Minute,
		},
	}

	auditSvc := auditservice.NewService(auditservice.Params{DB: db, Log: log, GenID: node})
	clientSvc := clientservice.NewService(clientservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, AuditSvc: auditSvc,
	})
	requestSvc := requestservice.NewService(requestservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, AuditSvc: auditSvc,
	})
	ledger := paymentservice.NewLedger(paymentservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk,
		Synchronizer: requestSvc, AuditSvc: auditSvc,
	})
	reconciler := webhook.NewReconciler(webhook.Params{
		DB: db, Log: log, GenID: node, Clock: clk,
		Registry: adapters.NewRegistry(adapters.NewPaystack(webhookSecret)),
		Ledger:   ledger,
	})
	invoiceSvc := invoiceservice.NewService(invoiceservice.Params{
		Config: cfg, DB: db, Log: log, GenID: node, Clock: clk,
		Allocator: number.NewAllocator(number.Params{DB: db, Log: log}),
		Ledger:    ledger,
		PDF:       stubPDF{},
		Email:     &email.NoOpProvider{},
		Storage:   &storage.NoOpProvider{},
		AuditSvc:  auditSvc,
	})
	operatorSvc := operatorservice.NewService(operatorservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk,
	})
	ratesSvc := rates.NewService(rates.Params{
		Config: cfg, Log: log, Fetcher: stubFetcher{},
	})
	sweep := sweeper.New(sweeper.Params{
		Config: cfg, Log: log, Clock: clk,
		Ledger: ledger, Requests: requestSvc, Invoices: invoiceSvc,
	})

	engine := NewEngine(obsmetrics.NewHTTPMetrics())
	srv := NewServer(ServerParams{
		Gin:         engine,
		Cfg:         cfg,
		DB:          db,
		Log:         log,
		GenID:       node,
		Clock:       clk,
		ClientSvc:   clientSvc,
		RequestSvc:  requestSvc,
		Ledger:      ledger,
		Reconciler:  reconciler,
		InvoiceSvc:  invoiceSvc,
		OperatorSvc: operatorSvc,
		AuditSvc:    auditSvc,
		RatesSvc:    ratesSvc,
		Sweeper:     sweep,
		Email:       &recordingMail{},
	})
	return srv, engine, clk
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func signBody(body []byte) string {
	mac := hmac.New(sha512.New, []byte(webhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func bootstrapOperator(t *testing.T, engine *gin.Engine) string {
	t.Helper()
	w := doJSON(t, engine, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email":    "ops@example.com",
		"name":     "Ops",
		"password": "a long enough password",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, engine, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    "ops@example.com",
		"password": "a long enough password",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode(t, w)["token"].(string)
}

func TestOperatorBootstrapFlow(t *testing.T) {
	_, engine, _ := newTestServer(t)

	// Any admin route is closed before an operator exists.
	w := doJSON(t, engine, http.MethodGet, "/api/v1/clients", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := bootstrapOperator(t, engine)

	// A second registration now needs a bearer token.
	w = doJSON(t, engine, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email":    "second@example.com",
		"name":     "Second",
		"password": "another long password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, engine, http.MethodPost, "/api/v1/auth/register", token, gin.H{
		"email":    "second@example.com",
		"name":     "Second",
		"password": "another long password",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, engine, http.MethodGet, "/api/v1/clients", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPaymentLifecycleOverHTTP(t *testing.T) {
	_, engine, _ := newTestServer(t)
	token := bootstrapOperator(t, engine)

	// Client and approved request.
	w := doJSON(t, engine, http.MethodPost, "/api/v1/clients", token, gin.H{
		"name":  "Ada Obi",
		"email": "ada@example.com",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	clientID := decode(t, w)["id"].(string)

	w = doJSON(t, engine, http.MethodPost, "/api/v1/requests", token, gin.H{
		"client_id": clientID,
		"category":  "web_development",
		"title":     "Storefront rebuild",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	requestID := decode(t, w)["id"].(string)

	w = doJSON(t, engine, http.MethodPost, "/api/v1/requests/"+requestID+"/approve", token, gin.H{
		"final_cost": 250000,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Payment link for the client-facing pay page.
	w = doJSON(t, engine, http.MethodPost, "/api/v1/requests/"+requestID+"/payment-link", token, gin.H{})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	linkToken := decode(t, w)["token"].(string)

	w = doJSON(t, engine, http.MethodGet, "/pay/"+linkToken, "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Open the ledger entry.
	w = doJSON(t, engine, http.MethodPost, "/api/v1/payments", token, gin.H{
		"request_id": requestID,
		"amount":     250000,
		"method":     "paystack",
		"type":       "full",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	paymentID := created["id"].(string)
	assert.Equal(t, "pending", created["status"])
	assert.Equal(t, "USD", created["currency"])

	// Gateway confirms via webhook.
	body := []byte(fmt.Sprintf(`{
		"event": "charge.success",
		"data": {
			"id": 88001,
			"reference": "PSK-REF-88001",
			"metadata": {"payment_id": %q}
		}
	}`, paymentID))
	req := httptest.NewRequest(http.MethodPost, "/webhooks/paystack", bytes.NewReader(body))
	req.Header.Set(adapters.PaystackSignatureHeader, signBody(body))
	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, req)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	assert.Equal(t, true, decode(t, recorder)["applied"])

	// The payment confirmed and the request advanced. The detail view
	// carries the owning request and client alongside the ledger row.
	w = doJSON(t, engine, http.MethodGet, "/api/v1/payments/"+paymentID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode(t, w)
	assert.Equal(t, "confirmed", detail["status"])
	require.Contains(t, detail, "request")
	assert.Equal(t, requestID, detail["request"].(map[string]any)["id"])
	require.Contains(t, detail, "client")
	assert.Equal(t, "ada@example.com", detail["client"].(map[string]any)["email"])

	w = doJSON(t, engine, http.MethodGet, "/api/v1/requests/"+requestID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "paid_in_full", decode(t, w)["status"])

	// The invoice was prepared automatically and is already paid.
	w = doJSON(t, engine, http.MethodGet, "/api/v1/invoices", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	invoices := decode(t, w)["invoices"].([]any)
	require.Len(t, invoices, 1)
	invoice := invoices[0].(map[string]any)
	assert.Equal(t, "KMS-2026-0001", invoice["number"])
	assert.Equal(t, "paid", invoice["status"])

	// Replayed delivery acks without a second invoice.
	recorder = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/webhooks/paystack", bytes.NewReader(body))
	req.Header.Set(adapters.PaystackSignatureHeader, signBody(body))
	engine.ServeHTTP(recorder, req)
	require.Equal(t, http.StatusOK, recorder.Code)

	w = doJSON(t, engine, http.MethodGet, "/api/v1/invoices", token, nil)
	invoices = decode(t, w)["invoices"].([]any)
	assert.Len(t, invoices, 1)

	// A tampered signature is rejected.
	recorder = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/webhooks/paystack", bytes.NewReader(body))
	req.Header.Set(adapters.PaystackSignatureHeader, "deadbeef")
	engine.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	// A correctly signed body that is not JSON gets a 400, not a retry loop.
	truncated := body[:len(body)/2]
	recorder = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/webhooks/paystack", bytes.NewReader(truncated))
	req.Header.Set(adapters.PaystackSignatureHeader, signBody(truncated))
	engine.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusBadRequest, recorder.Code, recorder.Body.String())
}

func TestManualTransitionOverHTTP(t *testing.T) {
	_, engine, _ := newTestServer(t)
	token := bootstrapOperator(t, engine)

	w := doJSON(t, engine, http.MethodPost, "/api/v1/clients", token, gin.H{
		"name":  "Ada Obi",
		"email": "ada@example.com",
	})
	require.Equal(t, http.StatusOK, w.Code)
	clientID := decode(t, w)["id"].(string)

	w = doJSON(t, engine, http.MethodPost, "/api/v1/requests", token, gin.H{
		"client_id": clientID,
		"category":  "consulting",
		"title":     "API audit",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	requestID := decode(t, w)["id"].(string)
	w = doJSON(t, engine, http.MethodPost, "/api/v1/requests/"+requestID+"/approve", token, gin.H{
		"final_cost": 90000,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, engine, http.MethodPost, "/api/v1/payments", token, gin.H{
		"request_id": requestID,
		"amount":     90000,
		"method":     "bank_transfer",
		"type":       "full",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	paymentID := decode(t, w)["id"].(string)

	// An operator records the bank transfer arriving.
	w = doJSON(t, engine, http.MethodPost, "/api/v1/payments/"+paymentID+"/transition", token, gin.H{
		"target":       "confirmed",
		"provider_ref": "WIRE-2026-001",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "confirmed", decode(t, w)["status"])

	// Cancellations must say why.
	w = doJSON(t, engine, http.MethodPost, "/api/v1/payments/"+paymentID+"/transition", token, gin.H{
		"target": "cancelled",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Confirm is final for everything but refund.
	w = doJSON(t, engine, http.MethodPost, "/api/v1/payments/"+paymentID+"/transition", token, gin.H{
		"target": "cancelled",
		"reason": "operator mistake",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// The manual path prepares the invoice too.
	w = doJSON(t, engine, http.MethodGet, "/api/v1/invoices", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["invoices"].([]any), 1)
}

func TestPrepareInvoiceForRequestOverHTTP(t *testing.T) {
	_, engine, _ := newTestServer(t)
	token := bootstrapOperator(t, engine)

	w := doJSON(t, engine, http.MethodPost, "/api/v1/clients", token, gin.H{
		"name":  "Ada Obi",
		"email": "ada@example.com",
	})
	require.Equal(t, http.StatusOK, w.Code)
	clientID := decode(t, w)["id"].(string)

	w = doJSON(t, engine, http.MethodPost, "/api/v1/requests", token, gin.H{
		"client_id": clientID,
		"category":  "consulting",
		"title":     "API audit",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	requestID := decode(t, w)["id"].(string)
	w = doJSON(t, engine, http.MethodPost, "/api/v1/requests/"+requestID+"/approve", token, gin.H{
		"final_cost": 90000,
	})
	require.Equal(t, http.StatusOK, w.Code)

	// A draft raised ahead of collection; no payment attached yet.
	w = doJSON(t, engine, http.MethodPost, "/api/v1/invoices", token, gin.H{
		"request_id": requestID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	invoice := decode(t, w)
	assert.Equal(t, "draft", invoice["status"])
	assert.NotContains(t, invoice, "payment_id")
	assert.Equal(t, requestID, invoice["request_id"])

	// At least one key is required.
	w = doJSON(t, engine, http.MethodPost, "/api/v1/invoices", token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExpiredPaymentLinkOverHTTP(t *testing.T) {
	srv, engine, clk := newTestServer(t)
	token := bootstrapOperator(t, engine)

	w := doJSON(t, engine, http.MethodPost, "/api/v1/clients", token, gin.H{
		"name":  "Ada Obi",
		"email": "ada@example.com",
	})
	require.Equal(t, http.StatusOK, w.Code)
	clientID := decode(t, w)["id"].(string)

	w = doJSON(t, engine, http.MethodPost, "/api/v1/requests", token, gin.H{
		"client_id": clientID,
		"category":  "maintenance",
		"title":     "Monthly retainer",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	requestID := decode(t, w)["id"].(string)
	w = doJSON(t, engine, http.MethodPost, "/api/v1/requests/"+requestID+"/approve", token, gin.H{
		"final_cost": 50000,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, engine, http.MethodPost, "/api/v1/requests/"+requestID+"/payment-link", token, gin.H{
		"ttl_minutes": 120,
		"notify":      true,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	linkToken := decode(t, w)["token"].(string)

	// The client was emailed the pay page.
	mail := srv.email.(*recordingMail)
	require.Len(t, mail.to, 1)
	assert.Equal(t, []string{"ada@example.com"}, mail.to[0])
	assert.Equal(t, "Payment link for Monthly retainer", mail.subjects[0])

	clk.Advance(3 * time.Hour)
	w = doJSON(t, engine, http.MethodGet, "/pay/"+linkToken, "", nil)
	assert.Equal(t, http.StatusGone, w.Code)

	w = doJSON(t, engine, http.MethodGet, "/pay/unknown-token", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetRateOverHTTP(t *testing.T) {
	_, engine, _ := newTestServer(t)
	token := bootstrapOperator(t, engine)

	w := doJSON(t, engine, http.MethodGet, "/api/v1/rates?base=USD&quote=NGN", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, 1520.5, body["rate"])
}

func TestDeletePaymentAndSweepStatsOverHTTP(t *testing.T) {
	_, engine, clk := newTestServer(t)
	token := bootstrapOperator(t, engine)

	w := doJSON(t, engine, http.MethodPost, "/api/v1/clients", token, gin.H{
		"name":  "Ada Obi",
		"email": "ada@example.com",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	clientID := decode(t, w)["id"].(string)

	w = doJSON(t, engine, http.MethodPost, "/api/v1/requests", token, gin.H{
		"client_id": clientID,
		"category":  "web_development",
		"title":     "Landing page",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	requestID := decode(t, w)["id"].(string)

	w = doJSON(t, engine, http.MethodPost, "/api/v1/requests/"+requestID+"/approve", token, gin.H{
		"final_cost": 50000,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, engine, http.MethodPost, "/api/v1/payments", token, gin.H{
		"request_id": requestID,
		"amount":     50000,
		"method":     "bank_transfer",
		"type":       "full",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	paymentID := decode(t, w)["id"].(string)

	// A fresh pending payment is not yet a sweep candidate.
	w = doJSON(t, engine, http.MethodGet, "/api/v1/sweep/stats", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(0), decode(t, w)["expired_payments"])

	clk.Advance(25 * time.Hour)

	// The advance outlives the 12h session TTL, so log in again for a fresh token.
	w = doJSON(t, engine, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    "ops@example.com",
		"password": "a long enough password",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token = decode(t, w)["token"].(string)

	w = doJSON(t, engine, http.MethodGet, "/api/v1/sweep/stats", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(1), decode(t, w)["expired_payments"])

	// Pending payments can be discarded.
	w = doJSON(t, engine, http.MethodDelete, "/api/v1/payments/"+paymentID, token, nil)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = doJSON(t, engine, http.MethodGet, "/api/v1/sweep/stats", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(0), decode(t, w)["expired_payments"])

	// The row stays reachable through the filter.
	w = doJSON(t, engine, http.MethodGet, "/api/v1/payments", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Empty(t, decode(t, w)["payments"])

	w = doJSON(t, engine, http.MethodGet, "/api/v1/payments?include_deleted=true", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode(t, w)["payments"], 1)

	// Settled money cannot be deleted.
	w = doJSON(t, engine, http.MethodPost, "/api/v1/payments", token, gin.H{
		"request_id": requestID,
		"amount":     50000,
		"method":     "bank_transfer",
		"type":       "full",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	confirmedID := decode(t, w)["id"].(string)

	w = doJSON(t, engine, http.MethodPost, "/api/v1/payments/"+confirmedID+"/transition", token, gin.H{
		"target":       "confirmed",
		"provider_ref": "WIRE-2026-777",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, engine, http.MethodDelete, "/api/v1/payments/"+confirmedID, token, nil)
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
}
