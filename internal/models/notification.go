package models

import "time"

const EventPaymentReceived = "payment.received"

// PaymentNotification is published when a guard receives a successful tip.
type PaymentNotification struct {
	Event          string    `json:"event"`
	PaymentID      string    `json:"paymentId"`
	CivilServantID string    `json:"civilServantId,omitempty"`
	GuardToken     string    `json:"guardToken,omitempty"`
	WalletID       string    `json:"walletId,omitempty"`
	Amount         float64   `json:"amount"`
	Currency       string    `json:"currency"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"createdAt"`
}
