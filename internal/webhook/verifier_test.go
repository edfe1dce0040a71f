package webhook_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/checkout-gateway/internal/webhook"
)

func TestSignatureIsDeterministicHex(t *testing.T) {
	body := []byte(`{"id":"wh-1","type":"payment.completed"}`)
	first := webhook.Signature("secret", body)
	second := webhook.Signature("secret", body)
	require.Equal(t, first, second)
	require.Len(t, first, 64)
}

func TestVerifyAcceptsMatchingSignature(t *testing.T) {
	body := []byte(`{"id":"wh-1","type":"payment.completed","subject":{}}`)
	sig := webhook.Signature("topsecret", body)
	require.True(t, webhook.Verify("topsecret", body, sig))
}

func TestVerifyRejectsTamperedBody(t *testing.T) {
	body := []byte(`{"id":"wh-1","type":"payment.completed","subject":{}}`)
	sig := webhook.Signature("topsecret", body)

	tampered := make([]byte, len(body))
	copy(tampered, body)
	tampered[len(tampered)-2] ^= 0x01
	require.False(t, webhook.Verify("topsecret", tampered, sig))
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	body := []byte(`{"id":"wh-1","type":"payment.completed","subject":{}}`)
	sig := webhook.Signature("topsecret", body)
	require.False(t, webhook.Verify("othersecret", body, sig))
	require.False(t, webhook.Verify("topsecret", body, ""))
}
