package ledger

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/markjakearzadon/guardtip-gobackend/internal/models"
)

// WalletBalances reads the available and current balance of a gateway wallet
// payload. A nil pointer means the attribute is absent; zero is a valid value.
func WalletBalances(wallet map[string]any) (available, current *float64, currency string) {
	if wallet == nil {
		return nil, nil, models.DefaultCurrency
	}
	if v, ok := availableBalanceChain.firstAmount(wallet); ok {
		available = &v
	}
	if v, ok := currentBalanceChain.firstAmount(wallet); ok {
		current = &v
	}
	currency = strings.ToUpper(walletCurrencyChain.firstString(wallet))
	if currency == "" {
		currency = models.DefaultCurrency
	}
	return available, current, currency
}

// DeriveBalance estimates a wallet balance from its transactions: the most
// recent nonzero running balance if any record carries one, otherwise the sum
// of all amounts.
func DeriveBalance(records []models.PaymentRecord) float64 {
	sorted := make([]models.PaymentRecord, len(records))
	copy(sorted, records)
	SortRecords(sorted)
	for _, r := range sorted {
		if r.Balance != nil && *r.Balance != 0 {
			return *r.Balance
		}
	}

	sum := decimal.Zero
	for _, r := range records {
		sum = sum.Add(decimal.NewFromFloat(r.Amount))
	}
	return sum.InexactFloat64()
}
