package models

// Withdrawal methods accepted from clients.
const (
	WithdrawalMethodATM = "ATM"
	WithdrawalMethodEFT = "EFT"
)

type BankDetails struct {
	AccountHolder string `json:"accountHolder" bson:"account_holder"`
	AccountNumber string `json:"accountNumber" bson:"account_number"`
	BankName      string `json:"bankName" bson:"bank_name"`
	BranchCode    string `json:"branchCode" bson:"branch_code"`
}

type WithdrawalRequest struct {
	WalletID       string       `json:"walletId"`
	Amount         float64      `json:"amount"`
	Method         string       `json:"method"`
	Currency       string       `json:"currency"`
	Phone          string       `json:"phone"`
	Bank           *BankDetails `json:"bank,omitempty"`
	CivilServantID string       `json:"civilServantId"`
}

// TipRequest is a customer's intent to tip a guard.
type TipRequest struct {
	GuardToken string  `json:"guardToken"`
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
	CustomerID string  `json:"customerId"`
}
