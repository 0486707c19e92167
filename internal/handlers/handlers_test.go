package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markjakearzadon/guardtip-gobackend/internal/eclipse"
	"github.com/markjakearzadon/guardtip-gobackend/internal/models"
	"github.com/markjakearzadon/guardtip-gobackend/internal/services"
)

type stubPayments struct {
	tip       *models.PaymentRecord
	tipErr    error
	payment   *models.PaymentRecord
	getErr    error
	report    services.ReconcileReport
	reconErr  error
	customer  []models.PaymentRecord
	webhook   services.WebhookResult
	listings  models.WalletTransactions
	lastTip   models.TipRequest
	lastRecon services.ReconcileOptions
	lastSig   string
	lastBody  string
	lastLimit int
	lastOff   int
	lastState models.StatusFilter
}

func (s *stubPayments) CreateTip(_ context.Context, req models.TipRequest) (*models.PaymentRecord, error) {
	s.lastTip = req
	return s.tip, s.tipErr
}

func (s *stubPayments) HandleWebhook(_ context.Context, body []byte, sig string) services.WebhookResult {
	s.lastBody, s.lastSig = string(body), sig
	return s.webhook
}

func (s *stubPayments) Reconcile(_ context.Context, opts services.ReconcileOptions) (services.ReconcileReport, error) {
	s.lastRecon = opts
	return s.report, s.reconErr
}

func (s *stubPayments) GetPayment(context.Context, string) (*models.PaymentRecord, error) {
	return s.payment, s.getErr
}

func (s *stubPayments) ListByCustomer(_ context.Context, _ string, limit, offset int) []models.PaymentRecord {
	s.lastLimit, s.lastOff = limit, offset
	return s.customer
}

func (s *stubPayments) ListByWallet(_ context.Context, walletID string, limit, offset int, filter models.StatusFilter) models.WalletTransactions {
	s.lastLimit, s.lastOff, s.lastState = limit, offset, filter
	out := s.listings
	out.WalletID, out.Limit, out.Offset, out.Status = walletID, limit, offset, filter
	return out
}

type stubWallets struct {
	balance    models.WalletBalance
	withdrawal *services.WithdrawalResult
	err        error
	webhook    services.WebhookResult
	lastReq    models.WithdrawalRequest
}

func (s *stubWallets) GetBalance(_ context.Context, walletID string) models.WalletBalance {
	b := s.balance
	b.WalletID = walletID
	return b
}

func (s *stubWallets) Withdraw(_ context.Context, req models.WithdrawalRequest) (*services.WithdrawalResult, error) {
	s.lastReq = req
	return s.withdrawal, s.err
}

func (s *stubWallets) HandleWithdrawalWebhook(context.Context, []byte, string) services.WebhookResult {
	return s.webhook
}

type stubGuards struct {
	guard *models.CivilServant
	err   error
}

func (s *stubGuards) GetByGuardToken(context.Context, string) (*models.CivilServant, error) {
	return s.guard, s.err
}

func (s *stubGuards) EnsureWallet(context.Context, string) (*models.CivilServant, error) {
	return s.guard, s.err
}

type fixture struct {
	payments *stubPayments
	wallets  *stubWallets
	guards   *stubGuards
	router   *mux.Router
}

func newFixture() *fixture {
	f := &fixture{payments: &stubPayments{}, wallets: &stubWallets{}, guards: &stubGuards{}}
	f.router = NewRouter(
		NewPaymentHandler(f.payments),
		NewWalletHandler(f.wallets, f.payments),
		NewGuardHandler(f.guards),
	)
	return f
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	rec := newFixture().do(http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestCreateTip(t *testing.T) {
	f := newFixture()
	f.payments.tip = &models.PaymentRecord{PaymentID: "p1", Status: "INITIATED", Amount: 50}

	rec := f.do(http.MethodPost, "/api/payments/tip", `{"guardToken":"g-7","amount":50,"customerId":"c-1"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "p1", decodeBody(t, rec)["paymentId"])
	assert.Equal(t, "g-7", f.payments.lastTip.GuardToken)
	assert.Equal(t, 50.0, f.payments.lastTip.Amount)
}

func TestCreateTipRejectsMalformedBody(t *testing.T) {
	rec := newFixture().do(http.MethodPost, "/api/payments/tip", `{"amount":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", decodeBody(t, rec)["error"])
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"validation", &services.ValidationError{Field: "amount", Message: "must be at least 5"}, http.StatusBadRequest},
		{"insufficient balance", fmt.Errorf("withdraw: %w", services.ErrInsufficientBalance), http.StatusBadRequest},
		{"not found", fmt.Errorf("guard g-9: %w", services.ErrNotFound), http.StatusNotFound},
		{"gateway", fmt.Errorf("failed to create tip payment: %w", &eclipse.APIError{StatusCode: 503}), http.StatusBadGateway},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.payments.tipErr = tt.err

			rec := f.do(http.MethodPost, "/api/payments/tip", `{"guardToken":"g-7","amount":50}`)

			assert.Equal(t, tt.code, rec.Code)
			assert.NotEmpty(t, decodeBody(t, rec)["error"])
		})
	}
}

func TestWebhookAlwaysAnswers200(t *testing.T) {
	f := newFixture()
	f.payments.webhook = services.WebhookResult{Accepted: false, Error: "invalid JSON payload"}

	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", strings.NewReader("not json"))
	req.Header.Set("X-Eclipse-Signature", "abc123")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["accepted"])
	assert.Equal(t, "not json", f.payments.lastBody)
	assert.Equal(t, "abc123", f.payments.lastSig)
}

func TestWebhookSignatureHeaderFallback(t *testing.T) {
	f := newFixture()

	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", strings.NewReader(`{}`))
	req.Header.Set("X-Signature", "legacy")
	f.router.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "legacy", f.payments.lastSig)
}

func TestReconcile(t *testing.T) {
	f := newFixture()
	f.payments.report = services.ReconcileReport{Scanned: 3, InWindow: 2, Upserted: 2}

	rec := f.do(http.MethodPost, "/api/payments/reconcile", `{"walletId":"w1","days":3}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2.0, decodeBody(t, rec)["upserted"])
	assert.Equal(t, "w1", f.payments.lastRecon.WalletID)
	assert.Equal(t, 72*time.Hour, f.payments.lastRecon.Window)
}

func TestReconcileWithoutBodyUsesDefaultWindow(t *testing.T) {
	f := newFixture()

	rec := f.do(http.MethodPost, "/api/payments/reconcile", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, f.payments.lastRecon.Window)
}

func TestReconcileGatewayFailure(t *testing.T) {
	f := newFixture()
	f.payments.reconErr = fmt.Errorf("failed to list payments for reconcile: %w", &eclipse.APIError{StatusCode: 500})

	rec := f.do(http.MethodPost, "/api/payments/reconcile", `{}`)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestGetPayment(t *testing.T) {
	f := newFixture()
	f.payments.payment = &models.PaymentRecord{PaymentID: "p1", Status: "SUCCESSFUL"}

	rec := f.do(http.MethodGet, "/api/payments/p1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "SUCCESSFUL", decodeBody(t, rec)["status"])

	f.payments.getErr = fmt.Errorf("payment p2: %w", services.ErrNotFound)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/payments/p2", "").Code)
}

func TestGetCustomerPayments(t *testing.T) {
	f := newFixture()
	f.payments.customer = []models.PaymentRecord{{PaymentID: "p1"}}

	rec := f.do(http.MethodGet, "/api/customers/c-1/payments?limit=5&offset=10", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "c-1", body["customerId"])
	assert.Len(t, body["records"], 1)
	assert.Equal(t, 5, f.payments.lastLimit)
	assert.Equal(t, 10, f.payments.lastOff)
}

func TestGetTransactionsDefaults(t *testing.T) {
	f := newFixture()

	rec := f.do(http.MethodGet, "/api/wallets/w1/transactions", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.FilterSuccessful, f.payments.lastState)
	assert.Equal(t, defaultPageLimit, f.payments.lastLimit)
	assert.Equal(t, 0, f.payments.lastOff)
	assert.Equal(t, "w1", decodeBody(t, rec)["walletId"])
}

func TestGetTransactionsQuery(t *testing.T) {
	f := newFixture()

	rec := f.do(http.MethodGet, "/api/wallets/w1/transactions?status=all&limit=500&offset=40", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.FilterAll, f.payments.lastState)
	assert.Equal(t, maxPageLimit, f.payments.lastLimit)
	assert.Equal(t, 40, f.payments.lastOff)
}

func TestGetTransactionsRejectsBadQuery(t *testing.T) {
	f := newFixture()
	for _, q := range []string{"status=refunded", "limit=0", "limit=abc", "offset=-1"} {
		rec := f.do(http.MethodGet, "/api/wallets/w1/transactions?"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestGetBalance(t *testing.T) {
	f := newFixture()
	f.wallets.balance = models.WalletBalance{Balance: 120.5, Currency: "ZAR"}

	rec := f.do(http.MethodGet, "/api/wallets/w1/balance", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, 120.5, body["balance"])
	assert.Equal(t, "w1", body["walletId"])
}

func TestWithdrawUsesPathWallet(t *testing.T) {
	f := newFixture()
	f.wallets.withdrawal = &services.WithdrawalResult{Withdrawal: models.PaymentRecord{PaymentID: "wd-1", Amount: -150}}

	rec := f.do(http.MethodPost, "/api/wallets/w1/withdrawals", `{"walletId":"other","amount":150,"method":"ATM","phone":"082"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "w1", f.wallets.lastReq.WalletID)
	assert.Equal(t, 150.0, f.wallets.lastReq.Amount)
}

func TestWithdrawInsufficientBalance(t *testing.T) {
	f := newFixture()
	f.wallets.err = services.ErrInsufficientBalance

	rec := f.do(http.MethodPost, "/api/wallets/w1/withdrawals", `{"amount":151,"method":"ATM","phone":"082"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWithdrawalWebhook(t *testing.T) {
	f := newFixture()
	f.wallets.webhook = services.WebhookResult{Accepted: true, PaymentID: "wd-1"}

	rec := f.do(http.MethodPost, "/api/withdrawals/webhook", `{"withdrawalId":"wd-1"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["accepted"])
}

func TestGuardEndpoints(t *testing.T) {
	f := newFixture()
	f.guards.guard = &models.CivilServant{FullName: "Sipho Dlamini", GuardToken: "g-7", WalletID: "w-guard"}

	rec := f.do(http.MethodGet, "/api/guards/g-7", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodPost, "/api/guards/g-7/wallet", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	f.guards.err = fmt.Errorf("civil servant with guard token g-9: %w", services.ErrNotFound)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/guards/g-9", "").Code)
}
