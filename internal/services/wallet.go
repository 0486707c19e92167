package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/markjakearzadon/guardtip-gobackend/internal/eclipse"
	"github.com/markjakearzadon/guardtip-gobackend/internal/ledger"
	"github.com/markjakearzadon/guardtip-gobackend/internal/models"
)

const balanceDerivationWindow = 50

// Gateway withdrawal types per client-facing method.
var withdrawalTypes = map[string]string{
	models.WithdrawalMethodATM: "ZA_PAYCORP_ATM",
	models.WithdrawalMethodEFT: "ZA_NEDBANK_EFT",
}

type WalletConfig struct {
	MinWithdrawalAmount float64
	MaxWithdrawalAmount float64
}

type WalletService struct {
	gateway Gateway
	store   LedgerStore
	fees    *PlatformFeeService
	cfg     WalletConfig
}

func NewWalletService(gateway Gateway, store LedgerStore, fees *PlatformFeeService, cfg WalletConfig) *WalletService {
	return &WalletService{gateway: gateway, store: store, fees: fees, cfg: cfg}
}

// GetBalance resolves a wallet balance from the gateway wallet, deriving it
// from recent transactions when the wallet carries none. It never fails; an
// unresolvable balance is zero.
func (s *WalletService) GetBalance(ctx context.Context, walletID string) models.WalletBalance {
	result := models.WalletBalance{WalletID: walletID, Currency: models.DefaultCurrency}
	log := logrus.WithField("wallet_id", walletID)

	wallet, err := s.gateway.GetWallet(ctx, walletID)
	if err != nil {
		log.Warnf("Failed to fetch wallet, deriving balance: %v", err)
	} else {
		available, current, currency := ledger.WalletBalances(wallet)
		result.AvailableBalance = available
		result.CurrentBalance = current
		result.Currency = currency
		switch {
		case available != nil:
			result.Balance = *available
			return result
		case current != nil:
			result.Balance = *current
			return result
		}
	}

	result.Derived = true
	items, err := s.gateway.ListPayments(ctx, eclipse.ListQuery{WalletID: walletID, Limit: balanceDerivationWindow})
	if err != nil {
		log.Errorf("Failed to list wallet transactions for balance: %v", err)
		return result
	}
	records := ledger.NormalizeAll(items, ledger.ChannelPayment, "")
	if len(records) > balanceDerivationWindow {
		ledger.SortRecords(records)
		records = records[:balanceDerivationWindow]
	}
	result.Balance = ledger.DeriveBalance(records)
	return result
}

type WithdrawalResult struct {
	Withdrawal models.PaymentRecord `json:"withdrawal"`
	Fee        FeeOutcome           `json:"fee"`
}

// Withdraw validates and submits a withdrawal. Validation and the balance
// check happen before any gateway call; gateway failures propagate.
func (s *WalletService) Withdraw(ctx context.Context, req models.WithdrawalRequest) (*WithdrawalResult, error) {
	gwReq, err := s.validateWithdrawal(req)
	if err != nil {
		return nil, err
	}
	log := logrus.WithField("wallet_id", req.WalletID)

	balance := s.GetBalance(ctx, req.WalletID)
	if req.Amount > balance.Balance {
		log.Warnf("Withdrawal of %.2f exceeds balance %.2f", req.Amount, balance.Balance)
		return nil, fmt.Errorf("%w: requested %.2f, available %.2f", ErrInsufficientBalance, req.Amount, balance.Balance)
	}

	resp, err := s.gateway.CreateWithdrawal(ctx, gwReq)
	if err != nil {
		log.Errorf("Failed to create withdrawal: %v", err)
		return nil, fmt.Errorf("failed to create withdrawal: %w", err)
	}

	rec := ledger.Normalize(resp, ledger.ChannelPayment)
	if rec.PaymentID == "" {
		rec.PaymentID = gwReq.ExternalUniqueID
	}
	if rec.ExternalID == nil {
		rec.ExternalID = gwReq.ExternalUniqueID
	}
	if rec.Status == "" {
		rec.Status = "INITIATED"
	}
	rec.PaymentType = models.PaymentTypeWithdrawal
	rec.Amount = -math.Abs(req.Amount)
	rec.Currency = currencyOrDefault(req.Currency)
	rec.WalletID = req.WalletID
	rec.CivilServantID = req.CivilServantID
	if req.Bank != nil {
		rec.AccountNumber = req.Bank.AccountNumber
	}
	rec.Source = models.SourceInit

	if _, err := s.store.Upsert(ctx, rec); err != nil {
		log.WithField("payment_id", rec.PaymentID).Errorf("Failed to persist withdrawal: %v", err)
	}

	fee := s.fees.CollectWithdrawalFee(context.WithoutCancel(ctx), rec)
	log.WithField("payment_id", rec.PaymentID).Infof("Withdrawal created: %.2f via %s", req.Amount, gwReq.Type)
	return &WithdrawalResult{Withdrawal: rec, Fee: fee}, nil
}

func (s *WalletService) validateWithdrawal(req models.WithdrawalRequest) (eclipse.WithdrawalRequest, error) {
	var gw eclipse.WithdrawalRequest
	if strings.TrimSpace(req.WalletID) == "" {
		return gw, invalid("walletId", "is required")
	}
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	gwType, ok := withdrawalTypes[method]
	if !ok {
		return gw, invalid("method", "must be %s or %s", models.WithdrawalMethodATM, models.WithdrawalMethodEFT)
	}
	if err := checkBounds("amount", req.Amount, s.cfg.MinWithdrawalAmount, s.cfg.MaxWithdrawalAmount); err != nil {
		return gw, err
	}

	gw = eclipse.WithdrawalRequest{
		Type:             gwType,
		Amount:           req.Amount,
		WalletID:         req.WalletID,
		ExternalUniqueID: uuid.NewString(),
		Metadata:         map[string]any{},
	}
	if req.CivilServantID != "" {
		gw.Metadata["civilServantId"] = req.CivilServantID
	}

	switch method {
	case models.WithdrawalMethodATM:
		if strings.TrimSpace(req.Phone) == "" {
			return gw, invalid("phone", "is required for ATM withdrawals")
		}
		gw.DeliverToPhone = strings.TrimSpace(req.Phone)
	case models.WithdrawalMethodEFT:
		if req.Bank == nil || strings.TrimSpace(req.Bank.AccountNumber) == "" {
			return gw, invalid("bank", "account details are required for EFT withdrawals")
		}
		gw.Bank = &eclipse.BankDetails{
			AccountHolder: req.Bank.AccountHolder,
			AccountNumber: req.Bank.AccountNumber,
			BankName:      req.Bank.BankName,
			BranchCode:    req.Bank.BranchCode,
		}
	}
	return gw, nil
}

// HandleWithdrawalWebhook applies a withdrawal status push. Unlike payment
// webhooks a failed signature rejects the delivery.
func (s *WalletService) HandleWithdrawalWebhook(ctx context.Context, rawBody []byte, signature string) WebhookResult {
	if !s.gateway.VerifyWebhookSignature(rawBody, signature) {
		logrus.Warn("Rejected withdrawal webhook with invalid signature")
		return WebhookResult{Error: "invalid signature"}
	}
	result := WebhookResult{SignatureVerified: true}

	payload, err := decodePayload(rawBody)
	if err != nil {
		logrus.Errorf("Invalid withdrawal webhook payload: %v", err)
		result.Error = "invalid JSON payload"
		return result
	}
	rec := ledger.Normalize(payload, ledger.ChannelWebhook)
	if rec.PaymentID == "" {
		result.Error = "payload carries no withdrawal id"
		return result
	}
	result.Accepted = true
	result.PaymentID = rec.PaymentID
	result.Status = rec.Status
	log := logrus.WithField("payment_id", rec.PaymentID)

	err = s.store.UpdateStatus(ctx, rec.PaymentID, rec.Status)
	switch {
	case err == nil:
		log.Infof("Updated withdrawal status to %s", rec.Status)
	case errors.Is(err, ErrNotFound):
		rec.PaymentType = models.PaymentTypeWithdrawal
		rec.Amount = -math.Abs(rec.Amount)
		if _, err := s.store.Upsert(ctx, rec); err != nil {
			log.Errorf("Failed to persist withdrawal webhook record: %v", err)
		}
	default:
		log.Errorf("Failed to update withdrawal status: %v", err)
	}
	return result
}
