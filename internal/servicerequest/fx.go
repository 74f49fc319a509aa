package servicerequest

import (
	"go.uber.org/fx"

	paymentdomain "github.com/D-Honoured1/Kamisoft-sub002/internal/payment/domain"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/servicerequest/domain"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/servicerequest/service"
)

// Module wires the service request feature and exposes the implementation
// as the payment ledger's synchronizer.
var Module = fx.Module("servicerequest",
	fx.Provide(
		service.NewService,
		func(svc domain.Service) paymentdomain.RequestSynchronizer { return svc },
	),
)
