package place

import (
	"github.com/jep-hq/tools/internal/place/service"
	"go.uber.org/fx"
)

// Module wires the Places API client and the cached place service.
var Module = fx.Module("place",
	fx.Provide(
		service.NewGoogleClient,
		service.NewService,
	),
)
