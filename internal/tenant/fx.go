package tenant

import (
	"github.com/jep-hq/tools/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("tenant",
	fx.Provide(func(cfg config.Config, log *zap.Logger) *Registry {
		reg := NewRegistry(cfg.APIKeys)
		if reg.Len() == 0 {
			log.Warn("no API keys configured, all requests will be rejected")
		}
		return reg
	}),
)
