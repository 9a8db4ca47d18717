package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWebhookVerifier(t *testing.T) {
	v := NewWebhookVerifier(" s3cret ")
	payload := []byte(`{"event":"payment.failed"}`)

	assert.True(t, v.VerifyToken("s3cret"))
	assert.False(t, v.VerifyToken("s3cre"))

	sig := v.Sign(payload)
	assert.True(t, v.VerifyHMACSignature(payload, sig))
	assert.False(t, v.VerifyHMACSignature([]byte(`{}`), sig))

	assert.True(t, v.Verify("", sig, payload))
	assert.True(t, v.Verify("s3cret", "", payload))
	assert.False(t, v.Verify("wrong", sig, payload))
	assert.False(t, v.Verify("", "", payload))
}

func TestWebhookVerifier_EmptyTokenRejectsEverything(t *testing.T) {
	v := NewWebhookVerifier("")
	assert.False(t, v.VerifyToken(""))
	assert.False(t, v.VerifyHMACSignature([]byte("x"), v.Sign([]byte("x"))))
}
