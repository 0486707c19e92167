package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/markjakearzadon/guardtip-gobackend/internal/eclipse"
	"github.com/markjakearzadon/guardtip-gobackend/internal/ledger"
	"github.com/markjakearzadon/guardtip-gobackend/internal/models"
)

const feeClaimTTL = 24 * time.Hour

type FeeStatus string

const (
	FeeCollected FeeStatus = "collected"
	FeeSkipped   FeeStatus = "skipped"
	FeeFailed    FeeStatus = "failed"
)

// FeeOutcome describes what the platform fee pipeline did for one parent
// record. The pipeline never fails its caller; failures are reported here.
type FeeOutcome struct {
	Status     FeeStatus `json:"status"`
	PaymentID  string    `json:"paymentId"`
	FeeAmount  float64   `json:"feeAmount"`
	TransferID string    `json:"transferId,omitempty"`
	Reason     string    `json:"reason,omitempty"`
}

// PlatformFeeService moves the platform's cut from a guard wallet to the
// tenant wallet and books it as a PLATFORM_FEE row.
type PlatformFeeService struct {
	gateway        Gateway
	store          LedgerStore
	claims         ClaimStore
	tenantWalletID string
	now            func() time.Time
}

// NewPlatformFeeService builds the fee pipeline. claims may be nil, in which
// case only the stored fee row guards against double collection.
func NewPlatformFeeService(gateway Gateway, store LedgerStore, claims ClaimStore, tenantWalletID string) *PlatformFeeService {
	return &PlatformFeeService{
		gateway:        gateway,
		store:          store,
		claims:         claims,
		tenantWalletID: tenantWalletID,
		now:            time.Now,
	}
}

// CollectPaymentFee charges 1 + 1% of a received payment to the destination wallet.
func (s *PlatformFeeService) CollectPaymentFee(ctx context.Context, payment models.PaymentRecord) FeeOutcome {
	return s.collect(ctx, payment, ledger.PaymentPlatformFee(payment.Amount), "Platform fee")
}

// CollectWithdrawalFee charges 1% of a withdrawal to the withdrawing wallet.
func (s *PlatformFeeService) CollectWithdrawalFee(ctx context.Context, withdrawal models.PaymentRecord) FeeOutcome {
	return s.collect(ctx, withdrawal, ledger.WithdrawalPlatformFee(withdrawal.Amount), "Withdrawal platform fee")
}

func (s *PlatformFeeService) collect(ctx context.Context, parent models.PaymentRecord, fee float64, description string) FeeOutcome {
	feeID := ledger.PlatformFeeRowID(parent.PaymentID)
	outcome := FeeOutcome{PaymentID: feeID, FeeAmount: fee}
	log := logrus.WithFields(logrus.Fields{"payment_id": parent.PaymentID, "wallet_id": parent.WalletID})

	switch {
	case s.tenantWalletID == "":
		return skipped(outcome, "tenant wallet not configured")
	case parent.WalletID == "":
		return skipped(outcome, "parent record has no wallet")
	case parent.WalletID == s.tenantWalletID:
		return skipped(outcome, "parent wallet is the tenant wallet")
	case fee <= 0:
		return skipped(outcome, "fee is zero")
	}

	if _, err := s.store.Get(ctx, feeID); err == nil {
		return skipped(outcome, "fee already collected")
	} else if !errors.Is(err, ErrNotFound) {
		log.Errorf("Failed to check existing platform fee: %v", err)
		return failed(outcome, fmt.Sprintf("fee lookup failed: %v", err))
	}

	claimed := false
	if s.claims != nil {
		ok, err := s.claims.Claim(ctx, feeID, feeClaimTTL)
		switch {
		case err != nil:
			log.Warnf("Fee claim unavailable, relying on stored fee row: %v", err)
		case !ok:
			return skipped(outcome, "fee collection already in progress")
		default:
			claimed = true
		}
	}

	resp, err := s.gateway.TransferBetweenWallets(ctx, eclipse.TransferRequest{
		SourceWalletID:      parent.WalletID,
		DestinationWalletID: s.tenantWalletID,
		Amount:              fee,
		Currency:            currencyOrDefault(parent.Currency),
		Description:         description,
		ExternalUniqueID:    uuid.NewSHA1(uuid.NameSpaceURL, []byte(feeID)).String(),
		Metadata: map[string]any{
			"paymentId":   parent.PaymentID,
			"paymentType": models.PaymentTypePlatformFee,
		},
	})
	if err != nil {
		if claimed {
			if relErr := s.claims.Release(ctx, feeID); relErr != nil {
				log.Warnf("Failed to release fee claim: %v", relErr)
			}
		}
		log.Errorf("Failed to transfer platform fee: %v", err)
		return failed(outcome, err.Error())
	}

	transfer := ledger.Normalize(resp, ledger.ChannelPayment)
	outcome.TransferID = transfer.PaymentID

	stamp := ledger.FormatTimestamp(s.now())
	row := models.PaymentRecord{
		PaymentID:           feeID,
		ExternalID:          transfer.PaymentID,
		Status:              "SUCCESSFUL",
		Amount:              -fee,
		Currency:            currencyOrDefault(parent.Currency),
		PaymentType:         models.PaymentTypePlatformFee,
		WalletID:            parent.WalletID,
		CustomerID:          parent.CustomerID,
		CivilServantID:      parent.CivilServantID,
		GuardToken:          parent.GuardToken,
		AssociatedPaymentID: parent.PaymentID,
		Source:              models.SourceInit,
		CreatedAt:           stamp,
		UpdatedAt:           stamp,
		Raw:                 resp,
	}
	if _, err := s.store.Upsert(ctx, row); err != nil {
		log.Errorf("Failed to persist platform fee row: %v", err)
		outcome.Reason = "fee row not persisted"
	}

	log.Infof("Collected platform fee %.2f", fee)
	outcome.Status = FeeCollected
	return outcome
}

func skipped(o FeeOutcome, reason string) FeeOutcome {
	o.Status = FeeSkipped
	o.Reason = reason
	return o
}

func failed(o FeeOutcome, reason string) FeeOutcome {
	o.Status = FeeFailed
	o.Reason = reason
	return o
}

func currencyOrDefault(c string) string {
	if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
		return c
	}
	return models.DefaultCurrency
}
