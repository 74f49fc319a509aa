package audit

import (
	"github.com/D-Honoured1/Kamisoft-sub002/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(service.NewService),
)
