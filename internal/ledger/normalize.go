package ledger

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/markjakearzadon/guardtip-gobackend/internal/models"
)

// Channel identifies which gateway surface a payload came from.
type Channel string

const (
	ChannelPayment     Channel = "payment"
	ChannelReservation Channel = "reservation"
	ChannelWebhook     Channel = "webhook"
)

const reservationStatus = "PENDING"

var now = time.Now

// outbound types are stored with a negative amount regardless of the sign
// the gateway reports.
var outboundTypes = map[string]bool{
	models.PaymentTypeWithdrawal:  true,
	models.PaymentTypeFee:         true,
	models.PaymentTypePlatformFee: true,
}

// Normalize converts one gateway payment, reservation or webhook payload into
// a PaymentRecord. It never fails: every attribute has a fallback chain with a
// terminal default. Webhook records are tagged with the webhook source; the
// caller assigns the source for other channels.
func Normalize(payload map[string]any, channel Channel) models.PaymentRecord {
	src := payload
	if channel == ChannelWebhook {
		src = unwrapEnvelope(payload)
	}

	rec := models.PaymentRecord{
		PaymentID:           paymentIDChain.firstString(src),
		ExternalID:          externalID(src),
		Status:              statusChain.firstString(src),
		Currency:            strings.ToUpper(currencyChain.firstString(src)),
		PaymentType:         typeChain.firstString(src),
		WalletID:            walletIDChain.firstString(src),
		CustomerID:          customerIDChain.firstString(src),
		CivilServantID:      civilServantIDChain.firstString(src),
		GuardToken:          guardTokenChain.firstString(src),
		AccountNumber:       accountNumberChain.firstString(src),
		AssociatedPaymentID: associatedChain.firstString(src),
		CreatedAt:           asTimestamp(createdAtChain.firstValue(src)),
		Metadata:            metadataChain.firstMap(src),
		Raw:                 payload,
	}
	if rec.Currency == "" {
		rec.Currency = models.DefaultCurrency
	}
	if rec.CreatedAt == "" {
		rec.CreatedAt = now().UTC().Format(isoLayout)
	}
	rec.UpdatedAt = asTimestamp(updatedAtChain.firstValue(src))
	if rec.UpdatedAt == "" {
		rec.UpdatedAt = rec.CreatedAt
	}

	if amount, ok := amountChain.firstAmount(src); ok {
		rec.Amount = amount
	}
	if fee, ok := feeChain.firstAmount(src); ok {
		rec.FeeAmount = &fee
	}
	if balance, ok := balanceChain.firstAmount(src); ok {
		rec.Balance = &balance
	}

	switch channel {
	case ChannelReservation:
		rec.Status = reservationStatus
		rec.PaymentType = models.PaymentTypeReservation
	case ChannelWebhook:
		rec.Source = models.SourceWebhook
	}

	if outboundTypes[strings.ToUpper(rec.PaymentType)] {
		rec.Amount = -math.Abs(rec.Amount)
	}
	return rec
}

// NormalizeAll maps a gateway listing and drops entries without a payment id.
func NormalizeAll(payloads []map[string]any, channel Channel, source models.RecordSource) []models.PaymentRecord {
	out := make([]models.PaymentRecord, 0, len(payloads))
	for _, p := range payloads {
		rec := Normalize(p, channel)
		if rec.PaymentID == "" {
			continue
		}
		if source != "" {
			rec.Source = source
		}
		out = append(out, rec)
	}
	return out
}

// externalID keeps the upstream type and only skips absent candidates, so a
// zero or empty external id is preserved.
func externalID(m map[string]any) any {
	v := externalIDChain.firstValue(m)
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i
		}
		return n.String()
	}
	return v
}

// unwrapEnvelope lifts the inner object of wrapped webhook deliveries such as
// {"payment": {...}} over the top-level fields.
func unwrapEnvelope(payload map[string]any) map[string]any {
	inner := envelopeChain.firstMap(payload)
	if inner == nil {
		return payload
	}
	merged := make(map[string]any, len(payload)+len(inner))
	for k, v := range payload {
		merged[k] = v
	}
	for k, v := range inner {
		merged[k] = v
	}
	return merged
}
