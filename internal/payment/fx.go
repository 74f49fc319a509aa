package payment

import (
	"go.uber.org/fx"

	"github.com/D-Honoured1/Kamisoft-sub002/internal/config"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/payment/adapters"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/payment/service"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/payment/webhook"
)

// Module wires the payment ledger, the gateway adapter registry, and the
// webhook reconciler.
var Module = fx.Module("payment",
	fx.Provide(
		service.NewLedger,
		newRegistry,
		webhook.NewReconciler,
	),
)

func newRegistry(cfg config.Config) *adapters.Registry {
	return adapters.NewRegistry(
		adapters.NewPaystack(cfg.Paystack.WebhookSecret),
		adapters.NewFlutterwave(cfg.Flutterwave.WebhookSecret),
	)
}
