package invoice

import (
	"go.uber.org/fx"

	"github.com/D-Honoured1/Kamisoft-sub002/internal/invoice/number"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/invoice/service"
)

// Module wires the invoice number allocator and the document builder.
var Module = fx.Module("invoice",
	fx.Provide(
		number.NewAllocator,
		service.NewService,
	),
)
