package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/markjakearzadon/guardtip-gobackend/internal/models"
	"github.com/markjakearzadon/guardtip-gobackend/internal/services"
)

type PaymentAPI interface {
	CreateTip(ctx context.Context, req models.TipRequest) (*models.PaymentRecord, error)
	HandleWebhook(ctx context.Context, rawBody []byte, signature string) services.WebhookResult
	Reconcile(ctx context.Context, opts services.ReconcileOptions) (services.ReconcileReport, error)
	GetPayment(ctx context.Context, paymentID string) (*models.PaymentRecord, error)
	ListByCustomer(ctx context.Context, customerID string, limit, offset int) []models.PaymentRecord
}

type PaymentHandler struct {
	service PaymentAPI
}

func NewPaymentHandler(service PaymentAPI) *PaymentHandler {
	return &PaymentHandler{service: service}
}

func (h *PaymentHandler) CreateTip(w http.ResponseWriter, r *http.Request) {
	var req models.TipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rec, err := h.service.CreateTip(r.Context(), req)
	if err != nil {
		logrus.Errorf("Failed to create tip: %v", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// Webhook always answers 200 so the gateway does not retry deliveries the
// service has already judged.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		logrus.Errorf("Failed to read webhook body: %v", err)
		writeJSON(w, http.StatusOK, services.WebhookResult{Error: "unreadable body"})
		return
	}
	writeJSON(w, http.StatusOK, h.service.HandleWebhook(r.Context(), body, webhookSignature(r)))
}

type reconcileRequest struct {
	WalletID string `json:"walletId"`
	Days     int    `json:"days"`
}

func (h *PaymentHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	var req reconcileRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
			writeMessage(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	if req.Days < 0 {
		writeMessage(w, http.StatusBadRequest, "days must not be negative")
		return
	}

	report, err := h.service.Reconcile(r.Context(), services.ReconcileOptions{
		WalletID: req.WalletID,
		Window:   time.Duration(req.Days) * 24 * time.Hour,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	paymentID := mux.Vars(r)["paymentID"]

	rec, err := h.service.GetPayment(r.Context(), paymentID)
	if err != nil {
		logrus.WithField("payment_id", paymentID).Errorf("Failed to get payment: %v", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *PaymentHandler) GetCustomerPayments(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pageParams(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "limit and offset must be non-negative integers")
		return
	}
	customerID := mux.Vars(r)["customerID"]

	writeJSON(w, http.StatusOK, map[string]any{
		"customerId": customerID,
		"limit":      limit,
		"offset":     offset,
		"records":    h.service.ListByCustomer(r.Context(), customerID, limit, offset),
	})
}
