// Package eclipse is the HTTP client of the external payment gateway that
// holds guard and tenant wallets.
package eclipse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const defaultTimeout = 10 * time.Second

// APIError is returned for any non-2xx gateway response.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("eclipse: %s %s failed with status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

type Client struct {
	cfg    Config
	http   *http.Client
	tokens *tokenCache
}

// NewClient builds a gateway client. A nil httpClient gets a default one with
// the configured timeout.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{cfg: cfg, http: httpClient, tokens: newTokenCache()}
}

func (c *Client) tenantPath(format string, args ...any) string {
	escaped := make([]any, len(args))
	for i, a := range args {
		escaped[i] = url.PathEscape(fmt.Sprint(a))
	}
	return "/tenants/" + url.PathEscape(c.cfg.TenantID) + fmt.Sprintf(format, escaped...)
}

// CreatePayment registers a payment into a destination wallet.
func (c *Client) CreatePayment(ctx context.Context, req PaymentRequest) (map[string]any, error) {
	if req.ExternalUniqueID == "" {
		req.ExternalUniqueID = uuid.NewString()
	}
	return c.object(ctx, http.MethodPost, c.tenantPath("/payments"), nil, req)
}

func (c *Client) GetPayment(ctx context.Context, paymentID string) (map[string]any, error) {
	return c.object(ctx, http.MethodGet, c.tenantPath("/payments/%s", paymentID), nil, nil)
}

func (c *Client) ListPayments(ctx context.Context, q ListQuery) ([]map[string]any, error) {
	return c.list(ctx, c.tenantPath("/payments"), q.values(true))
}

// ListReservations tries the wallet-scoped endpoint first and the tenant-wide
// one second; the first successful response wins.
func (c *Client) ListReservations(ctx context.Context, q ListQuery) ([]map[string]any, error) {
	items, err := c.list(ctx, c.tenantPath("/wallets/%s/reservations", q.WalletID), q.values(false))
	if err == nil {
		return items, nil
	}
	logrus.WithError(err).WithField("wallet_id", q.WalletID).Debug("Wallet reservations endpoint failed, trying tenant endpoint")

	items, fallbackErr := c.list(ctx, c.tenantPath("/reservations"), q.values(true))
	if fallbackErr != nil {
		return nil, errors.Join(err, fallbackErr)
	}
	return items, nil
}

// CreateWithdrawal is never retried: a repeated request could pay out twice.
func (c *Client) CreateWithdrawal(ctx context.Context, req WithdrawalRequest) (map[string]any, error) {
	if req.ExternalUniqueID == "" {
		req.ExternalUniqueID = uuid.NewString()
	}
	return c.object(ctx, http.MethodPost, c.tenantPath("/wallets/%s/withdrawals", req.WalletID), nil, req)
}

func (c *Client) TransferBetweenWallets(ctx context.Context, req TransferRequest) (map[string]any, error) {
	if req.ExternalUniqueID == "" {
		req.ExternalUniqueID = uuid.NewString()
	}
	return c.object(ctx, http.MethodPost, c.tenantPath("/wallets/transfers"), nil, req)
}

func (c *Client) GetWallet(ctx context.Context, walletID string) (map[string]any, error) {
	return c.object(ctx, http.MethodGet, c.tenantPath("/wallets/%s", walletID), nil, nil)
}

func (c *Client) CreateWallet(ctx context.Context, req WalletRequest) (map[string]any, error) {
	if req.ExternalUniqueID == "" {
		req.ExternalUniqueID = uuid.NewString()
	}
	return c.object(ctx, http.MethodPost, c.tenantPath("/wallets"), nil, req)
}

func (q ListQuery) values(withWallet bool) url.Values {
	v := url.Values{}
	if withWallet && q.WalletID != "" {
		v.Set("walletId", q.WalletID)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	return v
}

func (c *Client) object(ctx context.Context, method, path string, query url.Values, body any) (map[string]any, error) {
	raw, err := c.do(ctx, method, path, query, body)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}
	var out map[string]any
	if err := decode(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return out, nil
}

// list accepts a bare JSON array or an object wrapping one.
func (c *Client) list(ctx context.Context, path string, query url.Values) ([]map[string]any, error) {
	raw, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := decode(raw, &generic); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return listItems(generic), nil
}

func listItems(v any) []map[string]any {
	switch t := v.(type) {
	case []any:
		items := make([]map[string]any, 0, len(t))
		for _, e := range t {
			if m, ok := e.(map[string]any); ok {
				items = append(items, m)
			}
		}
		return items
	case map[string]any:
		for _, key := range []string{"results", "data", "payments", "reservations", "items", "content"} {
			if inner, ok := t[key]; ok {
				return listItems(inner)
			}
		}
	}
	return []map[string]any{}
}

func decode(raw []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(out)
}

// do performs one authenticated request. There is no retry layer.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s %s request: %w", method, path, err)
		}
		logrus.WithField("path", path).Debugf("Eclipse request body: %s", maskSensitiveFields(payload))
		reader = bytes.NewReader(payload)
	}

	endpoint := c.cfg.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s %s request: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("eclipse: %s %s request failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		c.tokens.invalidate()
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}

func readBody(resp *http.Response) ([]byte, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return raw, nil
}

// maskSensitiveFields hides phone numbers, account numbers and credentials
// before a request body is logged.
func maskSensitiveFields(body []byte) []byte {
	var req map[string]any
	if err := json.Unmarshal(body, &req); err != nil {
		return body
	}
	maskMap(req)
	masked, _ := json.Marshal(req)
	return masked
}

func maskMap(m map[string]any) {
	for k, v := range m {
		switch t := v.(type) {
		case map[string]any:
			maskMap(t)
		case string:
			switch k {
			case "deliverToPhone", "phone", "accountNumber", "mobile_number":
				if len(t) > 4 {
					m[k] = "****" + t[len(t)-4:]
				}
			case "password", "client_secret":
				m[k] = "****"
			}
		}
	}
}
