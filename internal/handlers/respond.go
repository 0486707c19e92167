package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/markjakearzadon/guardtip-gobackend/internal/eclipse"
	"github.com/markjakearzadon/guardtip-gobackend/internal/services"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
	maxWebhookBody   = 1 << 20
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Errorf("Failed to encode response: %v", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps service errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var vErr *services.ValidationError
	var apiErr *eclipse.APIError
	switch {
	case errors.As(err, &vErr):
		writeMessage(w, http.StatusBadRequest, vErr.Error())
	case errors.Is(err, services.ErrInsufficientBalance):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotFound):
		writeMessage(w, http.StatusNotFound, err.Error())
	case errors.As(err, &apiErr):
		writeMessage(w, http.StatusBadGateway, err.Error())
	default:
		writeMessage(w, http.StatusInternalServerError, err.Error())
	}
}

// pageParams reads limit and offset query parameters.
func pageParams(r *http.Request) (limit, offset int, ok bool) {
	limit, offset = defaultPageLimit, 0
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return 0, 0, false
		}
		limit = min(n, maxPageLimit)
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return 0, 0, false
		}
		offset = n
	}
	return limit, offset, true
}

// webhookSignature returns the first signature header the gateway may send.
func webhookSignature(r *http.Request) string {
	for _, h := range []string{"X-Eclipse-Signature", "X-Webhook-Signature", "X-Signature"} {
		if v := r.Header.Get(h); v != "" {
			return v
		}
	}
	return ""
}
