package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const (
	// CallbackTokenHeader carries the shared webhook token.
	CallbackTokenHeader = "X-Callback-Token"
	// SignatureHeader carries a hex HMAC-SHA256 of the raw body, keyed by the token.
	SignatureHeader = "X-Signature"
)

// WebhookVerifier checks that a billing callback came from the provider.
type WebhookVerifier struct {
	webhookToken string
}

func NewWebhookVerifier(webhookToken string) *WebhookVerifier {
	return &WebhookVerifier{
		webhookToken: strings.TrimSpace(webhookToken),
	}
}

// VerifyToken compares the callback token in constant time.
func (v *WebhookVerifier) VerifyToken(callbackToken string) bool {
	if v.webhookToken == "" {
		return false
	}
	return hmac.Equal([]byte(strings.TrimSpace(callbackToken)), []byte(v.webhookToken))
}

// VerifyHMACSignature verifies an HMAC-SHA256 signature of payload.
func (v *WebhookVerifier) VerifyHMACSignature(payload []byte, signature string) bool {
	if v.webhookToken == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(v.webhookToken))
	mac.Write(payload)
	expectedMAC := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expectedMAC), []byte(strings.ToLower(strings.TrimSpace(signature))))
}

// Verify accepts a request carrying either a valid token or a valid signature.
func (v *WebhookVerifier) Verify(callbackToken, signature string, payload []byte) bool {
	if callbackToken != "" {
		return v.VerifyToken(callbackToken)
	}
	if signature != "" {
		return v.VerifyHMACSignature(payload, signature)
	}
	return false
}

// Sign returns the signature a sender would put in SignatureHeader.
func (v *WebhookVerifier) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(v.webhookToken))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
