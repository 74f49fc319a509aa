package client

import (
	"github.com/D-Honoured1/Kamisoft-sub002/internal/client/service"
	"go.uber.org/fx"
)

var Module = fx.Module("client.service",
	fx.Provide(service.NewService),
)
