package adapters

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"strings"

	paymentdomain "github.com/D-Honoured1/Kamisoft-sub002/internal/payment/domain"
)

const ProviderFlutterwave = "flutterwave"

// FlutterwaveSignatureHeader carries the shared verification hash verbatim.
const FlutterwaveSignatureHeader = "verif-hash"

type flutterwaveAdapter struct {
	verifHash string
}

func NewFlutterwave(webhookSecret string) Adapter {
	return &flutterwaveAdapter{verifHash: webhookSecret}
}

func (a *flutterwaveAdapter) Provider() string { return ProviderFlutterwave }

func (a *flutterwaveAdapter) Verify(_ []byte, signature string) error {
	if subtle.ConstantTimeCompare([]byte(a.verifHash), []byte(strings.TrimSpace(signature))) != 1 {
		return paymentdomain.ErrSignatureInvalid
	}
	return nil
}

type flutterwavePayload struct {
	Event string `json:"event"`
	Data  struct {
		ID        json.Number `json:"id"`
		TxRef     string      `json:"tx_ref"`
		Status    string      `json:"status"`
		Narration string      `json:"narration"`
		Meta      struct {
			PaymentID string `json:"payment_id"`
		} `json:"meta"`
	} `json:"data"`
}

func (a *flutterwaveAdapter) Parse(payload []byte) (*Event, error) {
	var body flutterwavePayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("%w: flutterwave payload: %v", paymentdomain.ErrEventMalformed, err)
	}

	if body.Event != "charge.completed" {
		return nil, fmt.Errorf("%w: %s", paymentdomain.ErrEventIgnored, body.Event)
	}

	event := &Event{
		ProviderEventID: body.Data.ID.String(),
		EventType:       body.Event,
		PaymentID:       strings.TrimSpace(body.Data.Meta.PaymentID),
		ProviderRef:     strings.TrimSpace(body.Data.TxRef),
	}
	switch strings.ToLower(body.Data.Status) {
	case "successful":
		event.Target = paymentdomain.StatusConfirmed
	case "failed":
		event.Target = paymentdomain.StatusFailed
		event.ErrorMessage = body.Data.Narration
	default:
		return nil, fmt.Errorf("%w: charge.completed status %q", paymentdomain.ErrEventIgnored, body.Data.Status)
	}
	return event, nil
}
