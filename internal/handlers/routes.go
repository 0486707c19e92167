package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

func NewRouter(payments *PaymentHandler, wallets *WalletHandler, guards *GuardHandler) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET", "HEAD")

	router.HandleFunc("/api/payments/tip", payments.CreateTip).Methods("POST")
	router.HandleFunc("/api/payments/webhook", payments.Webhook).Methods("POST")
	router.HandleFunc("/api/payments/reconcile", payments.Reconcile).Methods("POST")
	router.HandleFunc("/api/payments/{paymentID}", payments.GetPayment).Methods("GET")
	router.HandleFunc("/api/customers/{customerID}/payments", payments.GetCustomerPayments).Methods("GET")

	router.HandleFunc("/api/wallets/{walletID}/transactions", wallets.GetTransactions).Methods("GET")
	router.HandleFunc("/api/wallets/{walletID}/balance", wallets.GetBalance).Methods("GET")
	router.HandleFunc("/api/wallets/{walletID}/withdrawals", wallets.Withdraw).Methods("POST")
	router.HandleFunc("/api/withdrawals/webhook", wallets.WithdrawalWebhook).Methods("POST")

	router.HandleFunc("/api/guards/{guardToken}", guards.GetGuard).Methods("GET")
	router.HandleFunc("/api/guards/{guardToken}/wallet", guards.EnsureWallet).Methods("POST")
	return router
}
