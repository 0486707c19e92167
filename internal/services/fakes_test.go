package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/markjakearzadon/guardtip-gobackend/internal/eclipse"
	"github.com/markjakearzadon/guardtip-gobackend/internal/ledger"
	"github.com/markjakearzadon/guardtip-gobackend/internal/models"
)

var errGatewayDown = errors.New("gateway unavailable")

type fakeGateway struct {
	mu sync.Mutex

	payments        []map[string]any
	paymentsErr     error
	reservations    []map[string]any
	reservationsErr error
	wallet          map[string]any
	walletErr       error
	payment         map[string]any
	paymentErr      error

	createPaymentResp    map[string]any
	createPaymentErr     error
	createWithdrawalResp map[string]any
	createWithdrawalErr  error
	transferResp         map[string]any
	transferErr          error
	createWalletResp     map[string]any

	signatureValid bool

	paymentQueries     []eclipse.ListQuery
	reservationQueries []eclipse.ListQuery
	createdPayments    []eclipse.PaymentRequest
	withdrawals        []eclipse.WithdrawalRequest
	transfers          []eclipse.TransferRequest
	createdWallets     []eclipse.WalletRequest
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{signatureValid: true, transferResp: map[string]any{"transferId": "t-1"}}
}

func (g *fakeGateway) CreatePayment(_ context.Context, req eclipse.PaymentRequest) (map[string]any, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createdPayments = append(g.createdPayments, req)
	return g.createPaymentResp, g.createPaymentErr
}

func (g *fakeGateway) GetPayment(context.Context, string) (map[string]any, error) {
	return g.payment, g.paymentErr
}

func (g *fakeGateway) ListPayments(_ context.Context, q eclipse.ListQuery) ([]map[string]any, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.paymentQueries = append(g.paymentQueries, q)
	if g.paymentsErr != nil {
		return nil, g.paymentsErr
	}
	return window(g.payments, q), nil
}

func (g *fakeGateway) ListReservations(_ context.Context, q eclipse.ListQuery) ([]map[string]any, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reservationQueries = append(g.reservationQueries, q)
	if g.reservationsErr != nil {
		return nil, g.reservationsErr
	}
	return window(g.reservations, q), nil
}

func window(items []map[string]any, q eclipse.ListQuery) []map[string]any {
	if q.Offset >= len(items) {
		return []map[string]any{}
	}
	end := len(items)
	if q.Limit > 0 && q.Offset+q.Limit < end {
		end = q.Offset + q.Limit
	}
	return items[q.Offset:end]
}

func (g *fakeGateway) CreateWithdrawal(_ context.Context, req eclipse.WithdrawalRequest) (map[string]any, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.withdrawals = append(g.withdrawals, req)
	return g.createWithdrawalResp, g.createWithdrawalErr
}

func (g *fakeGateway) TransferBetweenWallets(_ context.Context, req eclipse.TransferRequest) (map[string]any, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.transfers = append(g.transfers, req)
	return g.transferResp, g.transferErr
}

func (g *fakeGateway) GetWallet(context.Context, string) (map[string]any, error) {
	return g.wallet, g.walletErr
}

func (g *fakeGateway) CreateWallet(_ context.Context, req eclipse.WalletRequest) (map[string]any, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createdWallets = append(g.createdWallets, req)
	return g.createWalletResp, nil
}

func (g *fakeGateway) VerifyWebhookSignature([]byte, string) bool {
	return g.signatureValid
}

// memStore applies the same supersede rule as the Mongo store.
type memStore struct {
	mu      sync.Mutex
	records map[string]models.PaymentRecord
	err     error
}

func newMemStore(recs ...models.PaymentRecord) *memStore {
	s := &memStore{records: map[string]models.PaymentRecord{}}
	for _, r := range recs {
		s.records[r.PaymentID] = r
	}
	return s
}

func (s *memStore) Upsert(_ context.Context, rec models.PaymentRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	if existing, ok := s.records[rec.PaymentID]; ok && !ledger.Supersedes(rec, existing) {
		return false, nil
	}
	s.records[rec.PaymentID] = rec
	return true, nil
}

func (s *memStore) Get(_ context.Context, id string) (*models.PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("payment %s: %w", id, ErrNotFound)
	}
	return &rec, nil
}

func (s *memStore) ListByWallet(_ context.Context, walletID string) ([]models.PaymentRecord, error) {
	return s.filter(func(r models.PaymentRecord) bool { return r.WalletID == walletID })
}

func (s *memStore) ListByCustomer(_ context.Context, customerID string) ([]models.PaymentRecord, error) {
	return s.filter(func(r models.PaymentRecord) bool { return r.CustomerID == customerID })
}

func (s *memStore) filter(keep func(models.PaymentRecord) bool) ([]models.PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := []models.PaymentRecord{}
	for _, r := range s.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) UpdateStatus(_ context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("payment %s: %w", id, ErrNotFound)
	}
	rec.Status = status
	rec.Source = models.SourceWebhook
	s.records[id] = rec
	return nil
}

func (s *memStore) get(id string) (models.PaymentRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	return rec, ok
}

type memClaims struct {
	mu   sync.Mutex
	held map[string]bool
	err  error
}

func newMemClaims() *memClaims { return &memClaims{held: map[string]bool{}} }

func (c *memClaims) Claim(_ context.Context, key string, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false, c.err
	}
	if c.held[key] {
		return false, nil
	}
	c.held[key] = true
	return true, nil
}

func (c *memClaims) Release(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.held, key)
	return nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []models.PaymentNotification
}

func (n *recordingNotifier) PublishPaymentReceived(_ context.Context, msg models.PaymentNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return nil
}

type blockingNotifier struct {
	release   chan struct{}
	published atomic.Int32
}

func (n *blockingNotifier) PublishPaymentReceived(context.Context, models.PaymentNotification) error {
	<-n.release
	n.published.Add(1)
	return nil
}

type fakeGuards struct {
	guard *models.CivilServant
}

func (f *fakeGuards) GetByGuardToken(_ context.Context, token string) (*models.CivilServant, error) {
	if f.guard == nil || f.guard.GuardToken != token {
		return nil, fmt.Errorf("civil servant with guard token %s: %w", token, ErrNotFound)
	}
	g := *f.guard
	return &g, nil
}

func (f *fakeGuards) EnsureWallet(ctx context.Context, token string) (*models.CivilServant, error) {
	return f.GetByGuardToken(ctx, token)
}

func testGuard() *models.CivilServant {
	id, _ := primitive.ObjectIDFromHex("665f1c2ab3e4d5f6a7b8c9d0")
	return &models.CivilServant{
		ID:         id,
		FullName:   "Sipho Dlamini",
		GuardToken: "g-7",
		WalletID:   "w-guard",
	}
}

const tenantWallet = "w-tenant"

type harness struct {
	gateway  *fakeGateway
	store    *memStore
	claims   *memClaims
	notifier *recordingNotifier
	fees     *PlatformFeeService
	payments *PaymentService
	wallets  *WalletService
}

func newHarness(recs ...models.PaymentRecord) *harness {
	h := &harness{
		gateway:  newFakeGateway(),
		store:    newMemStore(recs...),
		claims:   newMemClaims(),
		notifier: &recordingNotifier{},
	}
	h.fees = NewPlatformFeeService(h.gateway, h.store, h.claims, tenantWallet)
	h.payments = NewPaymentService(h.gateway, h.store, &fakeGuards{guard: testGuard()}, h.fees, h.notifier, PaymentConfig{
		MinTipAmount: 5,
		MaxTipAmount: 5000,
	})
	h.wallets = NewWalletService(h.gateway, h.store, h.fees, WalletConfig{
		MinWithdrawalAmount: 10,
		MaxWithdrawalAmount: 5000,
	})
	return h
}
