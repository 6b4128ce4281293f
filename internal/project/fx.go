package project

import (
	"github.com/jep-hq/tools/internal/project/repository"
	"github.com/jep-hq/tools/internal/project/service"
	"go.uber.org/fx"
)

// Module wires the customer-project repository and service.
var Module = fx.Module("project",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
