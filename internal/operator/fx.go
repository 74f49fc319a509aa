package operator

import (
	"go.uber.org/fx"

	"github.com/D-Honoured1/Kamisoft-sub002/internal/operator/service"
)

var Module = fx.Module("operator",
	fx.Provide(service.NewService),
)
