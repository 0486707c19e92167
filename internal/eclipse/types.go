package eclipse

import "time"

// Config holds the gateway credentials and endpoints.
type Config struct {
	BaseURL  string
	TenantID string

	// OAuth client credentials, tried first when set.
	ClientID     string
	ClientSecret string
	TokenURL     string

	// Login fallback.
	Username string
	Password string

	WebhookSecret string
	Timeout       time.Duration
}

type PaymentRequest struct {
	Type                string         `json:"type"`
	Amount              float64        `json:"amount"`
	Currency            string         `json:"currency"`
	DestinationWalletID string         `json:"walletId"`
	CustomerID          string         `json:"customerId,omitempty"`
	ExternalUniqueID    string         `json:"externalUniqueId"`
	Metadata            map[string]any `json:"metadata,omitempty"`
}

type BankDetails struct {
	AccountHolder string `json:"accountHolderName"`
	AccountNumber string `json:"accountNumber"`
	BankName      string `json:"bankName"`
	BranchCode    string `json:"branchCode"`
}

type WithdrawalRequest struct {
	Type             string         `json:"type"`
	Amount           float64        `json:"amount"`
	WalletID         string         `json:"-"`
	DeliverToPhone   string         `json:"deliverToPhone,omitempty"`
	Bank             *BankDetails   `json:"bankDetails,omitempty"`
	ExternalUniqueID string         `json:"externalUniqueId"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

type TransferRequest struct {
	SourceWalletID      string         `json:"fromWalletId"`
	DestinationWalletID string         `json:"toWalletId"`
	Amount              float64        `json:"amount"`
	Currency            string         `json:"currency"`
	Description         string         `json:"description,omitempty"`
	ExternalUniqueID    string         `json:"externalUniqueId"`
	Metadata            map[string]any `json:"metadata,omitempty"`
}

type WalletRequest struct {
	CustomerID       string `json:"customerId,omitempty"`
	Name             string `json:"name"`
	Currency         string `json:"currency"`
	ExternalUniqueID string `json:"externalUniqueId"`
}

// ListQuery pages through payments or reservations. Zero values are omitted.
type ListQuery struct {
	WalletID string
	Limit    int
	Offset   int
}
