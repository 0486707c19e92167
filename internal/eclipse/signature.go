package eclipse

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/sirupsen/logrus"
)

var signatureEncodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.RawStdEncoding,
	base64.URLEncoding,
	base64.RawURLEncoding,
}

// VerifyWebhookSignature checks an HMAC-SHA256 webhook signature against the
// configured secret. Without a secret every delivery is accepted.
func (c *Client) VerifyWebhookSignature(rawBody []byte, signature string) bool {
	if c.cfg.WebhookSecret == "" {
		logrus.Warn("ECLIPSE_WEBHOOK_SECRET not set, skipping webhook signature verification")
		return true
	}
	return VerifySignature(c.cfg.WebhookSecret, rawBody, signature)
}

// VerifySignature accepts a hex or base64 digest, with or without a
// "sha256=" prefix.
func VerifySignature(secret string, rawBody []byte, signature string) bool {
	sig := strings.TrimSpace(signature)
	if len(sig) >= 7 && strings.EqualFold(sig[:7], "sha256=") {
		sig = sig[7:]
	}
	if sig == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	expected := mac.Sum(nil)

	if decoded, err := hex.DecodeString(sig); err == nil && hmac.Equal(decoded, expected) {
		return true
	}
	for _, enc := range signatureEncodings {
		if decoded, err := enc.DecodeString(sig); err == nil && hmac.Equal(decoded, expected) {
			return true
		}
	}
	return false
}
