package ledger

import (
	"math"
	"strings"

	"github.com/markjakearzadon/guardtip-gobackend/internal/models"
)

const feeRowSuffix = "-fee"

// FeeRowID is the synthetic id of the fee row derived from paymentID.
func FeeRowID(paymentID string) string {
	return paymentID + feeRowSuffix
}

// ExpandFees drops paired LINK rows and inserts a negative FEE row right after
// every record that carries a positive fee. The caller re-sorts the result.
func ExpandFees(records []models.PaymentRecord) []models.PaymentRecord {
	out := make([]models.PaymentRecord, 0, len(records))
	for _, r := range records {
		if IsPairedLink(r) {
			continue
		}
		out = append(out, r)
		if fee, ok := feeOf(r); ok {
			out = append(out, feeRow(r, fee))
		}
	}
	return out
}

func feeOf(r models.PaymentRecord) (float64, bool) {
	switch strings.ToUpper(r.PaymentType) {
	case models.PaymentTypeFee, models.PaymentTypePlatformFee:
		return 0, false
	}
	if r.FeeAmount != nil {
		return *r.FeeAmount, *r.FeeAmount > 0
	}
	if r.Raw == nil {
		return 0, false
	}
	fee, ok := rawFeeChain.firstAmount(r.Raw)
	return fee, ok && fee > 0
}

func feeRow(parent models.PaymentRecord, fee float64) models.PaymentRecord {
	return models.PaymentRecord{
		PaymentID:           FeeRowID(parent.PaymentID),
		ExternalID:          parent.ExternalID,
		Status:              parent.Status,
		Amount:              -math.Abs(fee),
		Currency:            parent.Currency,
		PaymentType:         models.PaymentTypeFee,
		WalletID:            parent.WalletID,
		CustomerID:          parent.CustomerID,
		CivilServantID:      parent.CivilServantID,
		GuardToken:          parent.GuardToken,
		AccountNumber:       parent.AccountNumber,
		AssociatedPaymentID: parent.PaymentID,
		Source:              parent.Source,
		CreatedAt:           parent.CreatedAt,
		UpdatedAt:           parent.UpdatedAt,
	}
}
