package models

// RecordSource is the provenance of a ledger entry. It doubles as merge priority.
type RecordSource string

const (
	SourceInit      RecordSource = "init"
	SourceWebhook   RecordSource = "webhook"
	SourceReconcile RecordSource = "reconcile"
)

// Payment types the ledger core interprets. Anything else is passed through as-is.
const (
	PaymentTypeLink        = "LINK"
	PaymentTypeReservation = "RESERVATION"
	PaymentTypeFee         = "FEE"
	PaymentTypeWithdrawal  = "WITHDRAWAL"
	PaymentTypePlatformFee = "PLATFORM_FEE"
)

const DefaultCurrency = "ZAR"

// PaymentRecord is the canonical ledger entry for one payment, reservation,
// withdrawal or derived fee row within a wallet.
type PaymentRecord struct {
	PaymentID           string         `bson:"_id" json:"paymentId"`
	ExternalID          any            `bson:"external_id" json:"externalId"`
	Status              string         `bson:"status" json:"status"`
	Amount              float64        `bson:"amount" json:"amount"`
	Currency            string         `bson:"currency" json:"currency"`
	FeeAmount           *float64       `bson:"fee_amount,omitempty" json:"feeAmount,omitempty"`
	PaymentType         string         `bson:"payment_type,omitempty" json:"paymentType,omitempty"`
	WalletID            string         `bson:"wallet_id,omitempty" json:"walletId,omitempty"`
	CustomerID          string         `bson:"customer_id,omitempty" json:"customerId,omitempty"`
	CivilServantID      string         `bson:"civil_servant_id,omitempty" json:"civilServantId,omitempty"`
	GuardToken          string         `bson:"guard_token,omitempty" json:"guardToken,omitempty"`
	AccountNumber       string         `bson:"account_number,omitempty" json:"accountNumber,omitempty"`
	AssociatedPaymentID string         `bson:"associated_payment_id,omitempty" json:"associatedPaymentId,omitempty"`
	Source              RecordSource   `bson:"source" json:"source"`
	CreatedAt           string         `bson:"created_at" json:"createdAt"`
	UpdatedAt           string         `bson:"updated_at" json:"updatedAt"`
	Balance             *float64       `bson:"balance,omitempty" json:"balance,omitempty"`
	Metadata            map[string]any `bson:"metadata,omitempty" json:"metadata,omitempty"`
	Raw                 map[string]any `bson:"raw,omitempty" json:"raw,omitempty"`
}

// StatusFilter selects which records a wallet listing returns.
type StatusFilter string

const (
	FilterSuccessful StatusFilter = "successful"
	FilterPending    StatusFilter = "pending"
	FilterAll        StatusFilter = "all"
)

// ParseStatusFilter maps a query value to a filter, defaulting to successful.
func ParseStatusFilter(v string) (StatusFilter, bool) {
	switch StatusFilter(v) {
	case "", FilterSuccessful:
		return FilterSuccessful, true
	case FilterPending:
		return FilterPending, true
	case FilterAll:
		return FilterAll, true
	}
	return FilterSuccessful, false
}

// ListingSource tells the caller whether a listing came from the gateway or
// from the stored ledger after a gateway failure.
type ListingSource string

const (
	ListingLive   ListingSource = "live"
	ListingLedger ListingSource = "ledger"
)

// WalletTransactions is the response shape of a wallet listing.
type WalletTransactions struct {
	WalletID string          `json:"walletId"`
	Status   StatusFilter    `json:"status"`
	Limit    int             `json:"limit"`
	Offset   int             `json:"offset"`
	Source   ListingSource   `json:"source"`
	Records  []PaymentRecord `json:"records"`
}

// WalletBalance is the resolved balance of a gateway wallet. Balance is always set.
type WalletBalance struct {
	WalletID         string   `json:"walletId"`
	Balance          float64  `json:"balance"`
	AvailableBalance *float64 `json:"availableBalance"`
	CurrentBalance   *float64 `json:"currentBalance"`
	Currency         string   `json:"currency"`
	Derived          bool     `json:"derived"`
}
