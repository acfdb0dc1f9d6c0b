package reconciler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"presale-ledger-go/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signPayload(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestNewSignatureVerifier_RequiresSecret(t *testing.T) {
	_, err := NewSignatureVerifier("", false)
	assert.Error(t, err, "an empty secret must not silently disable verification")
}

func TestNewSignatureVerifier_ExplicitInsecureOptIn(t *testing.T) {
	verifier, err := NewSignatureVerifier("", true)
	require.NoError(t, err)

	// With verification explicitly disabled every delivery passes.
	assert.NoError(t, verifier.Verify([]byte(`{}`), "anything", "123"))
	assert.NoError(t, verifier.Verify([]byte(`{}`), "", ""))
}

func TestVerify_ValidSignature(t *testing.T) {
	verifier, err := NewSignatureVerifier("test-secret", false)
	require.NoError(t, err)

	body := []byte(`{"type":"PAYMENT_SUCCESS_WEBHOOK"}`)
	timestamp := "1724800000"
	assert.NoError(t, verifier.Verify(body, signPayload("test-secret", timestamp, body), timestamp))
}

func TestVerify_InvalidSignature(t *testing.T) {
	verifier, err := NewSignatureVerifier("test-secret", false)
	require.NoError(t, err)

	body := []byte(`{"type":"PAYMENT_SUCCESS_WEBHOOK"}`)
	err = verifier.Verify(body, signPayload("wrong-secret", "1724800000", body), "1724800000")
	assert.ErrorIs(t, err, store.ErrUnauthorized)
}

func TestVerify_MissingSignature(t *testing.T) {
	verifier, err := NewSignatureVerifier("test-secret", false)
	require.NoError(t, err)

	err = verifier.Verify([]byte(`{}`), "", "1724800000")
	assert.ErrorIs(t, err, store.ErrUnauthorized)
}

// The timestamp is part of the signed message, so replaying a valid signature
// with a different timestamp must fail.
func TestVerify_TimestampBoundToSignature(t *testing.T) {
	verifier, err := NewSignatureVerifier("test-secret", false)
	require.NoError(t, err)

	body := []byte(`{"type":"PAYMENT_SUCCESS_WEBHOOK"}`)
	signature := signPayload("test-secret", "1724800000", body)
	err = verifier.Verify(body, signature, "1724800001")
	assert.ErrorIs(t, err, store.ErrUnauthorized)
}

// Any byte of the body changing invalidates the signature.
func TestVerify_BodyTampering(t *testing.T) {
	verifier, err := NewSignatureVerifier("test-secret", false)
	require.NoError(t, err)

	body := []byte(`{"data":{"order_amount":100}}`)
	signature := signPayload("test-secret", "1724800000", body)
	tampered := []byte(`{"data":{"order_amount":999}}`)
	err = verifier.Verify(tampered, signature, "1724800000")
	assert.ErrorIs(t, err, store.ErrUnauthorized)
}
