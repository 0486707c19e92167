package ledger

import "github.com/shopspring/decimal"

const platformFeeSuffix = "-platform-fee"

var (
	paymentFlatFee = decimal.NewFromInt(1)
	platformRate   = decimal.RequireFromString("0.01")
)

// PlatformFeeRowID is the synthetic id of the platform fee row for a payment
// or withdrawal. It is also the idempotency key of the fee transfer.
func PlatformFeeRowID(parentID string) string {
	return parentID + platformFeeSuffix
}

// PaymentPlatformFee is the fee on a successful inbound tip: ZAR 1 plus 1%.
func PaymentPlatformFee(amount float64) float64 {
	fee := paymentFlatFee.Add(decimal.NewFromFloat(amount).Abs().Mul(platformRate))
	return fee.Round(2).InexactFloat64()
}

// WithdrawalPlatformFee is 1% of the withdrawn amount, rounded to cents.
func WithdrawalPlatformFee(amount float64) float64 {
	return decimal.NewFromFloat(amount).Abs().Mul(platformRate).Round(2).InexactFloat64()
}
