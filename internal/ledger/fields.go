package ledger

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// accessor reads one candidate location of an attribute from a gateway
// payload. It returns nil when the location is absent.
type accessor func(map[string]any) any

// chain is an ordered list of candidate locations; the first present one wins.
// The gateway names the same attribute differently per endpoint, so the order
// of every chain below is significant.
type chain []accessor

func field(name string) accessor {
	return func(m map[string]any) any { return m[name] }
}

func path(keys ...string) accessor {
	return func(m map[string]any) any {
		var cur any = m
		for _, k := range keys {
			obj, ok := asMap(cur)
			if !ok {
				return nil
			}
			cur = obj[k]
		}
		return cur
	}
}

func fields(names ...string) chain {
	c := make(chain, 0, len(names))
	for _, n := range names {
		if strings.Contains(n, ".") {
			c = append(c, path(strings.Split(n, ".")...))
			continue
		}
		c = append(c, field(n))
	}
	return c
}

var (
	paymentIDChain  = fields("paymentId", "id", "reservationId", "withdrawalId", "transferId", "uniqueId")
	externalIDChain = fields("externalUniqueId", "externalId", "externalReference", "reference")
	statusChain     = fields("status", "paymentStatus", "state", "transactionStatus")
	createdAtChain  = fields("createdAt", "created", "dateCreated", "createdDate", "transactionDate", "date", "timestamp")
	updatedAtChain  = fields("updatedAt", "lastModified", "modified", "dateModified", "updated")
	amountChain     = fields("amount", "value", "transactionAmount", "paymentAmount", "totalAmount")
	feeChain        = fields("feeAmount", "fee", "fees", "processingFee", "transactionFee", "chargeAmount")
	balanceChain    = fields("balance", "runningBalance", "balanceAfter", "walletBalance", "closingBalance", "availableBalance")
	walletIDChain   = fields("walletId", "destinationWalletId", "toWalletId", "wallet.walletId", "wallet.id")
	customerIDChain = fields("customerId", "payerCustomerId", "customer.customerId", "customer.id")
	currencyChain   = fields("currency", "currencyCode", "currencyIsoCode")
	typeChain       = fields("type", "paymentType", "paymentMethod", "category")
	associatedChain = fields("associatedPaymentId", "linkedPaymentId", "parentPaymentId", "originalPaymentId")
	metadataChain   = fields("metadata", "additionalFields", "additionalInfo", "meta")

	civilServantIDChain = fields("metadata.civilServantId", "civilServantId", "metadata.guardId", "additionalFields.civilServantId")
	guardTokenChain     = fields("metadata.guardToken", "guardToken", "additionalFields.guardToken")
	accountNumberChain  = fields("accountNumber", "metadata.accountNumber", "destinationAccountNumber", "bankDetails.accountNumber")

	// wallet endpoint
	availableBalanceChain = fields("availableBalance", "available", "availableAmount", "balances.available", "balance.available")
	currentBalanceChain   = fields("currentBalance", "balance", "walletBalance", "balanceAmount", "current", "ledgerBalance", "balances.current")
	walletCurrencyChain   = fields("currency", "currencyCode", "balance.currency", "balances.currency")

	// fee rows may only be derivable from the raw payload
	rawFeeChain = fields("fee", "processingFee")

	// webhook envelopes, outermost first
	envelopeChain = fields("payment", "data", "transaction", "payload")
)

// firstValue returns the first non-nil candidate. Zero values and empty
// strings count as present.
func (c chain) firstValue(m map[string]any) any {
	for _, get := range c {
		if v := get(m); v != nil {
			return v
		}
	}
	return nil
}

// firstString returns the first candidate that renders to a non-empty string.
func (c chain) firstString(m map[string]any) string {
	for _, get := range c {
		if s := asString(get(m)); s != "" {
			return s
		}
	}
	return ""
}

// firstAmount returns the first candidate that parses as an amount.
func (c chain) firstAmount(m map[string]any) (float64, bool) {
	for _, get := range c {
		if f, ok := ParseAmount(get(m)); ok {
			return f, true
		}
	}
	return 0, false
}

// firstMap returns the first candidate that is an object or a JSON object string.
func (c chain) firstMap(m map[string]any) map[string]any {
	for _, get := range c {
		if obj, ok := asMap(get(m)); ok {
			return obj
		}
	}
	return nil
}

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case json.Number:
		return s.String()
	case float64:
		return fmt.Sprintf("%.0f", s)
	case map[string]any, []any:
		return ""
	}
	return fmt.Sprint(v)
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case string:
		trimmed := strings.TrimSpace(m)
		if !strings.HasPrefix(trimmed, "{") {
			return nil, false
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
			return nil, false
		}
		return obj, true
	}
	return nil, false
}

const isoLayout = "2006-01-02T15:04:05.000Z"

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// asTimestamp renders an upstream date as a UTC ISO-8601 string so that
// lexicographic comparison matches chronological order. Unparseable strings
// are kept verbatim.
func asTimestamp(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		return t.UTC().Format(isoLayout)
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.UTC().Format(isoLayout)
			}
		}
		return s
	}
	if f, ok := ParseAmount(v); ok && f > 0 {
		ms := int64(f)
		if f < 1e12 {
			ms = int64(f * 1000)
		}
		return time.UnixMilli(ms).UTC().Format(isoLayout)
	}
	return ""
}

// FormatTimestamp renders t in the layout stored on every record.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// ParseTimestamp parses a record timestamp, reporting false for unknown formats.
func ParseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
