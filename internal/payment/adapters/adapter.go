// Package adapters normalizes gateway webhook payloads into ledger events.
package adapters

import (
	"fmt"

	paymentdomain "github.com/D-Honoured1/Kamisoft-sub002/internal/payment/domain"
)

// Event is a gateway notification reduced to what the ledger needs.
type Event struct {
	ProviderEventID string
	EventType       string
	PaymentID       string
	ProviderRef     string
	Target          paymentdomain.Status
	ErrorMessage    string
}

// Adapter verifies and parses one gateway's webhook format.
type Adapter interface {
	Provider() string
	Verify(payload []byte, signature string) error
	Parse(payload []byte) (*Event, error)
}

// Registry resolves adapters by provider slug.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Provider()] = a
	}
	return r
}

func (r *Registry) Get(provider string) (Adapter, error) {
	a, ok := r.adapters[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", paymentdomain.ErrUnknownProvider, provider)
	}
	return a, nil
}

// Providers lists the registered slugs.
func (r *Registry) Providers() []string {
	out := make([]string, 0, len(r.adapters))
	for slug := range r.adapters {
		out = append(out, slug)
	}
	return out
}
