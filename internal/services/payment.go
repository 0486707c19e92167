package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/markjakearzadon/guardtip-gobackend/internal/eclipse"
	"github.com/markjakearzadon/guardtip-gobackend/internal/ledger"
	"github.com/markjakearzadon/guardtip-gobackend/internal/models"
)

const (
	reconcilePageSize = 200
	reconcileMaxPages = 50
)

type PaymentConfig struct {
	MinTipAmount    float64
	MaxTipAmount    float64
	TipPaymentType  string
	ReconcileWindow time.Duration
}

type PaymentService struct {
	gateway  Gateway
	store    LedgerStore
	guards   GuardDirectory
	fees     *PlatformFeeService
	notifier Notifier
	cfg      PaymentConfig
	now      func() time.Time

	// inflight tracks notifications still being published.
	inflight sync.WaitGroup
}

// NewPaymentService wires the payment flows. notifier may be nil.
func NewPaymentService(gateway Gateway, store LedgerStore, guards GuardDirectory, fees *PlatformFeeService, notifier Notifier, cfg PaymentConfig) *PaymentService {
	if cfg.TipPaymentType == "" {
		cfg.TipPaymentType = models.PaymentTypeLink
	}
	if cfg.ReconcileWindow <= 0 {
		cfg.ReconcileWindow = 7 * 24 * time.Hour
	}
	return &PaymentService{
		gateway:  gateway,
		store:    store,
		guards:   guards,
		fees:     fees,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

// CreateTip registers a payment into the wallet of the guard behind req.GuardToken
// and books it as an init record.
func (s *PaymentService) CreateTip(ctx context.Context, req models.TipRequest) (*models.PaymentRecord, error) {
	req.GuardToken = strings.TrimSpace(req.GuardToken)
	if req.GuardToken == "" {
		return nil, invalid("guardToken", "is required")
	}
	if err := checkBounds("amount", req.Amount, s.cfg.MinTipAmount, s.cfg.MaxTipAmount); err != nil {
		return nil, err
	}

	guard, err := s.guards.EnsureWallet(ctx, req.GuardToken)
	if err != nil {
		return nil, err
	}

	externalID := uuid.NewString()
	currency := currencyOrDefault(req.Currency)
	resp, err := s.gateway.CreatePayment(ctx, eclipse.PaymentRequest{
		Type:                s.cfg.TipPaymentType,
		Amount:              req.Amount,
		Currency:            currency,
		DestinationWalletID: guard.WalletID,
		CustomerID:          req.CustomerID,
		ExternalUniqueID:    externalID,
		Metadata: map[string]any{
			"civilServantId": guard.ID.Hex(),
			"guardToken":     guard.GuardToken,
		},
	})
	if err != nil {
		logrus.WithField("guard_token", req.GuardToken).Errorf("Failed to create tip payment: %v", err)
		return nil, fmt.Errorf("failed to create tip payment: %w", err)
	}

	rec := ledger.Normalize(resp, ledger.ChannelPayment)
	if rec.PaymentID == "" {
		rec.PaymentID = externalID
	}
	if rec.ExternalID == nil {
		rec.ExternalID = externalID
	}
	if rec.Status == "" {
		rec.Status = "INITIATED"
	}
	if rec.Amount == 0 {
		rec.Amount = req.Amount
	}
	if rec.PaymentType == "" {
		rec.PaymentType = s.cfg.TipPaymentType
	}
	rec.Currency = currencyOrDefault(rec.Currency)
	rec.WalletID = guard.WalletID
	rec.CivilServantID = guard.ID.Hex()
	rec.GuardToken = guard.GuardToken
	if rec.CustomerID == "" {
		rec.CustomerID = req.CustomerID
	}
	rec.Source = models.SourceInit

	if _, err := s.store.Upsert(ctx, rec); err != nil {
		logrus.WithField("payment_id", rec.PaymentID).Errorf("Failed to persist tip payment: %v", err)
	}
	logrus.WithFields(logrus.Fields{"payment_id": rec.PaymentID, "wallet_id": rec.WalletID}).Infof("Tip payment created: %.2f %s", rec.Amount, rec.Currency)
	return &rec, nil
}

// ListByWallet lists a wallet's records from the gateway, falling back to the
// stored ledger when any gateway call fails. It never returns an error.
func (s *PaymentService) ListByWallet(ctx context.Context, walletID string, limit, offset int, filter models.StatusFilter) models.WalletTransactions {
	result := models.WalletTransactions{
		WalletID: walletID,
		Status:   filter,
		Limit:    limit,
		Offset:   offset,
		Source:   models.ListingLive,
	}

	records, err := s.liveRecords(ctx, walletID, ledger.FetchWindow(limit, offset), filter)
	if err != nil {
		logrus.WithField("wallet_id", walletID).Warnf("Gateway listing failed, using stored ledger: %v", err)
		result.Source = models.ListingLedger
		records = s.storedRecords(ctx, walletID, filter)
	}

	expanded := ledger.ExpandFees(records)
	ledger.SortRecords(expanded)
	result.Records = ledger.Paginate(expanded, limit, offset)
	return result
}

func (s *PaymentService) liveRecords(ctx context.Context, walletID string, window int, filter models.StatusFilter) ([]models.PaymentRecord, error) {
	q := eclipse.ListQuery{WalletID: walletID, Limit: window}

	var reservations, payments []models.PaymentRecord
	if filter == models.FilterPending || filter == models.FilterAll {
		items, err := s.gateway.ListReservations(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("failed to list reservations: %w", err)
		}
		reservations = ledger.NormalizeAll(items, ledger.ChannelReservation, "")
	}
	if filter != models.FilterPending {
		items, err := s.gateway.ListPayments(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("failed to list payments: %w", err)
		}
		payments = ledger.NormalizeAll(items, ledger.ChannelPayment, "")
	}

	switch filter {
	case models.FilterPending:
		return reservations, nil
	case models.FilterAll:
		return append(reservations, payments...), nil
	default:
		return ledger.FilterRecords(payments, models.FilterSuccessful), nil
	}
}

func (s *PaymentService) storedRecords(ctx context.Context, walletID string, filter models.StatusFilter) []models.PaymentRecord {
	stored, err := s.store.ListByWallet(ctx, walletID)
	if err != nil {
		logrus.WithField("wallet_id", walletID).Errorf("Failed to fetch stored ledger: %v", err)
		return []models.PaymentRecord{}
	}
	return ledger.FilterRecords(ledger.Merge(stored), filter)
}

// ListByCustomer lists the stored ledger of a paying customer, newest first.
func (s *PaymentService) ListByCustomer(ctx context.Context, customerID string, limit, offset int) []models.PaymentRecord {
	stored, err := s.store.ListByCustomer(ctx, customerID)
	if err != nil {
		logrus.WithField("customer_id", customerID).Errorf("Failed to fetch customer payments: %v", err)
		return []models.PaymentRecord{}
	}
	expanded := ledger.ExpandFees(ledger.Merge(stored))
	ledger.SortRecords(expanded)
	return ledger.Paginate(expanded, limit, offset)
}

// GetPayment reads a payment from the gateway, falling back to the stored record.
func (s *PaymentService) GetPayment(ctx context.Context, paymentID string) (*models.PaymentRecord, error) {
	resp, err := s.gateway.GetPayment(ctx, paymentID)
	if err == nil {
		rec := ledger.Normalize(resp, ledger.ChannelPayment)
		if rec.PaymentID == "" {
			rec.PaymentID = paymentID
		}
		return &rec, nil
	}
	logrus.WithField("payment_id", paymentID).Warnf("Gateway lookup failed, using stored record: %v", err)

	rec, storeErr := s.store.Get(ctx, paymentID)
	if storeErr != nil {
		if errors.Is(storeErr, ErrNotFound) {
			return nil, storeErr
		}
		return nil, errors.Join(err, storeErr)
	}
	return rec, nil
}

// WebhookResult is the body of every webhook response.
type WebhookResult struct {
	Accepted          bool        `json:"accepted"`
	SignatureVerified bool        `json:"signatureVerified"`
	PaymentID         string      `json:"paymentId,omitempty"`
	Status            string      `json:"status,omitempty"`
	Fee               *FeeOutcome `json:"fee,omitempty"`
	Error             string      `json:"error,omitempty"`
}

// HandleWebhook books a payment status push. The signature result is
// recorded but does not gate processing.
func (s *PaymentService) HandleWebhook(ctx context.Context, rawBody []byte, signature string) WebhookResult {
	result := WebhookResult{SignatureVerified: s.gateway.VerifyWebhookSignature(rawBody, signature)}
	if !result.SignatureVerified {
		logrus.Warn("Payment webhook signature did not verify")
	}

	payload, err := decodePayload(rawBody)
	if err != nil {
		logrus.Errorf("Invalid webhook payload: %v", err)
		result.Error = "invalid JSON payload"
		return result
	}

	rec := ledger.Normalize(payload, ledger.ChannelWebhook)
	if rec.PaymentID == "" {
		result.Error = "payload carries no payment id"
		return result
	}
	result.Accepted = true
	result.PaymentID = rec.PaymentID
	log := logrus.WithField("payment_id", rec.PaymentID)

	views := []models.PaymentRecord{}
	alreadySettled := false
	existing, err := s.store.Get(ctx, rec.PaymentID)
	switch {
	case err == nil:
		inheritLinkage(&rec, *existing)
		views = append(views, *existing)
		alreadySettled = ledger.IsSuccessful(*existing)
	case !errors.Is(err, ErrNotFound):
		log.Warnf("Failed to load stored payment: %v", err)
	}
	views = append(views, rec)

	if _, err := s.store.Upsert(ctx, rec); err != nil {
		log.Errorf("Failed to persist webhook record: %v", err)
	}

	merged := ledger.Merge(views)
	if len(merged) == 0 {
		log.Info("Webhook record is a paired link view, nothing to settle")
		result.Status = rec.Status
		return result
	}
	survivor := merged[0]
	result.Status = survivor.Status
	log.Infof("Received webhook: status=%s", survivor.Status)

	if settlesTip(survivor) {
		sideCtx := context.WithoutCancel(ctx)
		fee := s.fees.CollectPaymentFee(sideCtx, survivor)
		result.Fee = &fee
		if !alreadySettled {
			s.notify(sideCtx, survivor)
		}
	}
	return result
}

func settlesTip(r models.PaymentRecord) bool {
	if !ledger.IsSuccessful(r) || r.Amount <= 0 {
		return false
	}
	if r.CivilServantID == "" && r.GuardToken == "" {
		return false
	}
	switch strings.ToUpper(r.PaymentType) {
	case models.PaymentTypeFee, models.PaymentTypePlatformFee, models.PaymentTypeWithdrawal:
		return false
	}
	return true
}

// notify publishes the payment-received event in the background. The webhook
// response does not wait for the broker.
func (s *PaymentService) notify(ctx context.Context, r models.PaymentRecord) {
	if s.notifier == nil {
		return
	}
	n := models.PaymentNotification{
		Event:          models.EventPaymentReceived,
		PaymentID:      r.PaymentID,
		CivilServantID: r.CivilServantID,
		GuardToken:     r.GuardToken,
		WalletID:       r.WalletID,
		Amount:         r.Amount,
		Currency:       r.Currency,
		Message:        fmt.Sprintf("You received a tip of %s %.2f", r.Currency, r.Amount),
		CreatedAt:      s.now().UTC(),
	}
	ctx = context.WithoutCancel(ctx)

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		if err := s.notifier.PublishPaymentReceived(ctx, n); err != nil {
			logrus.WithField("payment_id", n.PaymentID).Errorf("Failed to publish payment notification: %v", err)
		}
	}()
}

// Wait blocks until background notifications have been handed to the notifier.
func (s *PaymentService) Wait() {
	s.inflight.Wait()
}

// inheritLinkage fills attributes a webhook push usually omits from the
// record booked when the payment was created.
func inheritLinkage(rec *models.PaymentRecord, stored models.PaymentRecord) {
	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	fill(&rec.WalletID, stored.WalletID)
	fill(&rec.CustomerID, stored.CustomerID)
	fill(&rec.CivilServantID, stored.CivilServantID)
	fill(&rec.GuardToken, stored.GuardToken)
	fill(&rec.AccountNumber, stored.AccountNumber)
	fill(&rec.AssociatedPaymentID, stored.AssociatedPaymentID)
	fill(&rec.PaymentType, stored.PaymentType)
	if rec.ExternalID == nil {
		rec.ExternalID = stored.ExternalID
	}
	if rec.Amount == 0 {
		rec.Amount = stored.Amount
	}
	if rec.FeeAmount == nil {
		rec.FeeAmount = stored.FeeAmount
	}
	if rec.Metadata == nil {
		rec.Metadata = stored.Metadata
	}
}

type ReconcileOptions struct {
	WalletID string
	Window   time.Duration
}

type ReconcileReport struct {
	WalletID string `json:"walletId,omitempty"`
	Since    string `json:"since"`
	Scanned  int    `json:"scanned"`
	InWindow int    `json:"inWindow"`
	Upserted int    `json:"upserted"`
	Failed   int    `json:"failed"`
}

// Reconcile pages through the gateway payment listing and books every record
// created inside the trailing window with the reconcile source.
func (s *PaymentService) Reconcile(ctx context.Context, opts ReconcileOptions) (ReconcileReport, error) {
	window := opts.Window
	if window <= 0 {
		window = s.cfg.ReconcileWindow
	}
	cutoff := s.now().Add(-window)
	report := ReconcileReport{WalletID: opts.WalletID, Since: ledger.FormatTimestamp(cutoff)}
	log := logrus.WithField("wallet_id", opts.WalletID)

	for page := 0; page < reconcileMaxPages; page++ {
		items, err := s.gateway.ListPayments(ctx, eclipse.ListQuery{
			WalletID: opts.WalletID,
			Limit:    reconcilePageSize,
			Offset:   page * reconcilePageSize,
		})
		if err != nil {
			log.Errorf("Failed to list payments for reconcile: %v", err)
			return report, fmt.Errorf("failed to list payments for reconcile: %w", err)
		}
		report.Scanned += len(items)

		for _, rec := range ledger.NormalizeAll(items, ledger.ChannelPayment, models.SourceReconcile) {
			created, ok := ledger.ParseTimestamp(rec.CreatedAt)
			if !ok || created.Before(cutoff) {
				continue
			}
			report.InWindow++
			written, err := s.store.Upsert(ctx, rec)
			switch {
			case err != nil:
				report.Failed++
			case written:
				report.Upserted++
			}
		}

		if len(items) < reconcilePageSize {
			break
		}
	}

	log.Infof("Reconcile finished: scanned=%d in_window=%d upserted=%d failed=%d",
		report.Scanned, report.InWindow, report.Upserted, report.Failed)
	return report, nil
}

func decodePayload(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, errors.New("payload is not a JSON object")
	}
	return payload, nil
}

func checkBounds(field string, amount, min, max float64) error {
	switch {
	case math.IsNaN(amount) || amount <= 0:
		return invalid(field, "must be greater than zero")
	case min > 0 && amount < min:
		return invalid(field, "must be at least %.2f", min)
	case max > 0 && amount > max:
		return invalid(field, "must not exceed %.2f", max)
	}
	return nil
}
