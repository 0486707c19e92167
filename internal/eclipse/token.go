package eclipse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

const (
	tokenRefreshMargin = 30 * time.Second
	defaultTokenTTL    = 5 * time.Minute
)

// tokenCache holds the bearer token of one Client. A token is reused until
// tokenRefreshMargin before it expires.
type tokenCache struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
	now       func() time.Time
}

type fetchFunc func(ctx context.Context) (string, time.Time, error)

func newTokenCache() *tokenCache {
	return &tokenCache{now: time.Now}
}

func (t *tokenCache) get(ctx context.Context, fetch fetchFunc) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" && t.now().Before(t.expiresAt.Add(-tokenRefreshMargin)) {
		return t.token, nil
	}

	token, expiresAt, err := fetch(ctx)
	if err != nil {
		return "", err
	}
	t.token = token
	t.expiresAt = expiresAt
	return token, nil
}

func (t *tokenCache) invalidate() {
	t.mu.Lock()
	t.token = ""
	t.expiresAt = time.Time{}
	t.mu.Unlock()
}

// accessToken returns a cached token or acquires one, trying OAuth client
// credentials first and falling back to the login endpoint.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	return c.tokens.get(ctx, func(ctx context.Context) (string, time.Time, error) {
		var errs []error
		if c.cfg.ClientID != "" && c.cfg.ClientSecret != "" {
			token, exp, err := c.clientCredentialsToken(ctx)
			if err == nil {
				return token, exp, nil
			}
			logrus.WithError(err).Warn("Eclipse client credentials token failed, falling back to login")
			errs = append(errs, err)
		}
		if c.cfg.Username != "" {
			token, exp, err := c.loginToken(ctx)
			if err == nil {
				return token, exp, nil
			}
			errs = append(errs, err)
		}
		if len(errs) == 0 {
			return "", time.Time{}, errors.New("eclipse: no credentials configured")
		}
		return "", time.Time{}, fmt.Errorf("eclipse: failed to acquire token: %w", errors.Join(errs...))
	})
}

func (c *Client) clientCredentialsToken(ctx context.Context) (string, time.Time, error) {
	tokenURL := c.cfg.TokenURL
	if tokenURL == "" {
		tokenURL = c.cfg.BaseURL + "/oauth/token"
	}
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to create token request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.fetchToken(req)
}

func (c *Client) loginToken(ctx context.Context) (string, time.Time, error) {
	body, err := json.Marshal(map[string]string{
		"identity": c.cfg.Username,
		"password": c.cfg.Password,
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to marshal login request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/authentication/login", strings.NewReader(string(body)))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.fetchToken(req)
}

func (c *Client) fetchToken(req *http.Request) (string, time.Time, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return "", time.Time{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", time.Time{}, &APIError{Method: req.Method, Path: req.URL.Path, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to decode token response: %w", err)
	}

	token := firstNonEmpty(payload, "access_token", "accessToken", "token", "headerValue")
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return "", time.Time{}, errors.New("token response carried no token")
	}
	return token, c.tokenExpiry(token, payload), nil
}

// tokenExpiry reads expires_in seconds, an absolute expires timestamp, or the
// exp claim of a JWT access token, in that order.
func (c *Client) tokenExpiry(token string, payload map[string]any) time.Time {
	now := c.tokens.now()
	for _, key := range []string{"expires_in", "expiresIn"} {
		if secs, ok := toSeconds(payload[key]); ok && secs > 0 {
			return now.Add(time.Duration(secs) * time.Second)
		}
	}
	if s, ok := payload["expires"].(string); ok {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t
		}
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	return now.Add(defaultTokenTTL)
}

func toSeconds(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}

func firstNonEmpty(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
