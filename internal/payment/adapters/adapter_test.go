package adapters

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	paymentdomain "github.com/D-Honoured1/Kamisoft-sub002/internal/payment/domain"
)

func signPaystack(secret string, payload []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestPaystackVerify(t *testing.T) {
	adapter := NewPaystack("sk_test_secret")
	payload := []byte(`{"event":"charge.success"}`)

	assert.NoError(t, adapter.Verify(payload, signPaystack("sk_test_secret", payload)))
	assert.ErrorIs(t, adapter.Verify(payload, signPaystack("wrong_secret", payload)),
		paymentdomain.ErrSignatureInvalid)
	assert.ErrorIs(t, adapter.Verify(payload, ""), paymentdomain.ErrSignatureInvalid)
	// Tampered body fails against the original digest.
	assert.ErrorIs(t, adapter.Verify([]byte(`{"event":"charge.failed"}`),
		signPaystack("sk_test_secret", payload)), paymentdomain.ErrSignatureInvalid)
}

func TestPaystackParse(t *testing.T) {
	adapter := NewPaystack("secret")

	event, err := adapter.Parse([]byte(`{
		"event": "charge.success",
		"data": {
			"id": 302961,
			"reference": "PSK-REF-001",
			"metadata": {"payment_id": "1955741462371700736"}
		}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "302961", event.ProviderEventID)
	assert.Equal(t, "1955741462371700736", event.PaymentID)
	assert.Equal(t, "PSK-REF-001", event.ProviderRef)
	assert.Equal(t, paymentdomain.StatusConfirmed, event.Target)
	assert.Empty(t, event.ErrorMessage)

	event, err = adapter.Parse([]byte(`{
		"event": "charge.failed",
		"data": {"id": 302962, "reference": "PSK-REF-002", "gateway_response": "Insufficient funds"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusFailed, event.Target)
	assert.Equal(t, "Insufficient funds", event.ErrorMessage)

	event, err = adapter.Parse([]byte(`{
		"event": "refund.processed",
		"data": {"id": 302963, "reference": "PSK-REF-001"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusRefunded, event.Target)

	_, err = adapter.Parse([]byte(`{"event": "subscription.create", "data": {"id": 1}}`))
	assert.ErrorIs(t, err, paymentdomain.ErrEventIgnored)

	_, err = adapter.Parse([]byte(`not json`))
	assert.ErrorIs(t, err, paymentdomain.ErrEventMalformed)
	_, err = adapter.Parse([]byte(`{"event": "charge.success", "data": {"id":`))
	assert.ErrorIs(t, err, paymentdomain.ErrEventMalformed)
}

func TestFlutterwaveVerify(t *testing.T) {
	adapter := NewFlutterwave("flw-verif-hash")

	assert.NoError(t, adapter.Verify(nil, "flw-verif-hash"))
	assert.NoError(t, adapter.Verify(nil, " flw-verif-hash "))
	assert.ErrorIs(t, adapter.Verify(nil, "other"), paymentdomain.ErrSignatureInvalid)
	assert.ErrorIs(t, adapter.Verify(nil, ""), paymentdomain.ErrSignatureInvalid)
}

func TestFlutterwaveParse(t *testing.T) {
	adapter := NewFlutterwave("hash")

	event, err := adapter.Parse([]byte(`{
		"event": "charge.completed",
		"data": {
			"id": 9120831,
			"tx_ref": "FLW-TX-77",
			"status": "successful",
			"meta": {"payment_id": "1955741462371700736"}
		}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "9120831", event.ProviderEventID)
	assert.Equal(t, "FLW-TX-77", event.ProviderRef)
	assert.Equal(t, paymentdomain.StatusConfirmed, event.Target)

	event, err = adapter.Parse([]byte(`{
		"event": "charge.completed",
		"data": {"id": 9120832, "tx_ref": "FLW-TX-78", "status": "failed", "narration": "card declined"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusFailed, event.Target)
	assert.Equal(t, "card declined", event.ErrorMessage)

	_, err = adapter.Parse([]byte(`{
		"event": "charge.completed",
		"data": {"id": 9120833, "status": "pending"}
	}`))
	assert.ErrorIs(t, err, paymentdomain.ErrEventIgnored)

	_, err = adapter.Parse([]byte(`{"event": "transfer.completed", "data": {"id": 1}}`))
	assert.ErrorIs(t, err, paymentdomain.ErrEventIgnored)

	_, err = adapter.Parse([]byte(`<xml/>`))
	assert.ErrorIs(t, err, paymentdomain.ErrEventMalformed)
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry(NewPaystack("a"), NewFlutterwave("b"))

	adapter, err := registry.Get(ProviderPaystack)
	require.NoError(t, err)
	assert.Equal(t, ProviderPaystack, adapter.Provider())

	_, err = registry.Get("stripe")
	assert.ErrorIs(t, err, paymentdomain.ErrUnknownProvider)

	assert.ElementsMatch(t, []string{ProviderPaystack, ProviderFlutterwave}, registry.Providers())
}
