package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/markjakearzadon/guardtip-gobackend/internal/models"
	"github.com/markjakearzadon/guardtip-gobackend/internal/services"
)

type WalletAPI interface {
	GetBalance(ctx context.Context, walletID string) models.WalletBalance
	Withdraw(ctx context.Context, req models.WithdrawalRequest) (*services.WithdrawalResult, error)
	HandleWithdrawalWebhook(ctx context.Context, rawBody []byte, signature string) services.WebhookResult
}

type TransactionLister interface {
	ListByWallet(ctx context.Context, walletID string, limit, offset int, filter models.StatusFilter) models.WalletTransactions
}

type WalletHandler struct {
	wallets      WalletAPI
	transactions TransactionLister
}

func NewWalletHandler(wallets WalletAPI, transactions TransactionLister) *WalletHandler {
	return &WalletHandler{wallets: wallets, transactions: transactions}
}

// GetTransactions lists a wallet's ledger. status is successful (default),
// pending or all.
func (h *WalletHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	filter, ok := models.ParseStatusFilter(r.URL.Query().Get("status"))
	if !ok {
		writeMessage(w, http.StatusBadRequest, "status must be successful, pending or all")
		return
	}
	limit, offset, ok := pageParams(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "limit and offset must be non-negative integers")
		return
	}

	walletID := mux.Vars(r)["walletID"]
	writeJSON(w, http.StatusOK, h.transactions.ListByWallet(r.Context(), walletID, limit, offset, filter))
}

func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.wallets.GetBalance(r.Context(), mux.Vars(r)["walletID"]))
}

func (h *WalletHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req models.WithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.WalletID = mux.Vars(r)["walletID"]

	result, err := h.wallets.Withdraw(r.Context(), req)
	if err != nil {
		logrus.WithField("wallet_id", req.WalletID).Errorf("Failed to withdraw: %v", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *WalletHandler) WithdrawalWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		logrus.Errorf("Failed to read withdrawal webhook body: %v", err)
		writeJSON(w, http.StatusOK, services.WebhookResult{Error: "unreadable body"})
		return
	}
	writeJSON(w, http.StatusOK, h.wallets.HandleWithdrawalWebhook(r.Context(), body, webhookSignature(r)))
}
