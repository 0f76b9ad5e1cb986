package escrow

import (
	"go.uber.org/fx"

	"github.com/stellapay/stellapay/internal/config"
	"github.com/stellapay/stellapay/internal/escrow/adapters"
	"github.com/stellapay/stellapay/internal/escrow/adapters/memory"
	"github.com/stellapay/stellapay/internal/escrow/adapters/soroban"
	"github.com/stellapay/stellapay/internal/escrow/domain"
)

var Module = fx.Module("escrow",
	fx.Provide(func() *adapters.Registry {
		return adapters.NewRegistry(
			soroban.NewFactory(),
			memory.NewFactory(),
		)
	}),
	fx.Provide(func(registry *adapters.Registry, cfg config.Config) (domain.Client, error) {
		return registry.NewClient(cfg.Escrow)
	}),
)
