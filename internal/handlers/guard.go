package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/markjakearzadon/guardtip-gobackend/internal/models"
)

type GuardAPI interface {
	GetByGuardToken(ctx context.Context, guardToken string) (*models.CivilServant, error)
	EnsureWallet(ctx context.Context, guardToken string) (*models.CivilServant, error)
}

type GuardHandler struct {
	service GuardAPI
}

func NewGuardHandler(service GuardAPI) *GuardHandler {
	return &GuardHandler{service: service}
}

// GetGuard resolves the guard behind a scanned QR token.
func (h *GuardHandler) GetGuard(w http.ResponseWriter, r *http.Request) {
	guard, err := h.service.GetByGuardToken(r.Context(), mux.Vars(r)["guardToken"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, guard)
}

func (h *GuardHandler) EnsureWallet(w http.ResponseWriter, r *http.Request) {
	guard, err := h.service.EnsureWallet(r.Context(), mux.Vars(r)["guardToken"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, guard)
}
