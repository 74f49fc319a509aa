package adapters

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	paymentdomain "github.com/D-Honoured1/Kamisoft-sub002/internal/payment/domain"
)

const ProviderPaystack = "paystack"

// PaystackSignatureHeader carries the HMAC-SHA512 digest of the raw body.
const PaystackSignatureHeader = "x-paystack-signature"

type paystackAdapter struct {
	secret []byte
}

func NewPaystack(webhookSecret string) Adapter {
	return &paystackAdapter{secret: []byte(webhookSecret)}
}

func (a *paystackAdapter) Provider() string { return ProviderPaystack }

func (a *paystackAdapter) Verify(payload []byte, signature string) error {
	mac := hmac.New(sha512.New, a.secret)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature)))) {
		return paymentdomain.ErrSignatureInvalid
	}
	return nil
}

type paystackPayload struct {
	Event string `json:"event"`
	Data  struct {
		ID              json.Number `json:"id"`
		Reference       string      `json:"reference"`
		GatewayResponse string      `json:"gateway_response"`
		Metadata        struct {
			PaymentID string `json:"payment_id"`
		} `json:"metadata"`
	} `json:"data"`
}

func (a *paystackAdapter) Parse(payload []byte) (*Event, error) {
	var body paystackPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("%w: paystack payload: %v", paymentdomain.ErrEventMalformed, err)
	}

	var target paymentdomain.Status
	switch body.Event {
	case "charge.success":
		target = paymentdomain.StatusConfirmed
	case "charge.failed":
		target = paymentdomain.StatusFailed
	case "refund.processed":
		target = paymentdomain.StatusRefunded
	default:
		return nil, fmt.Errorf("%w: %s", paymentdomain.ErrEventIgnored, body.Event)
	}

	event := &Event{
		ProviderEventID: body.Data.ID.String(),
		EventType:       body.Event,
		PaymentID:       strings.TrimSpace(body.Data.Metadata.PaymentID),
		ProviderRef:     strings.TrimSpace(body.Data.Reference),
		Target:          target,
	}
	if target == paymentdomain.StatusFailed {
		event.ErrorMessage = body.Data.GatewayResponse
	}
	return event, nil
}
