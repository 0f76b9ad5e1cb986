package payroll

import (
	"go.uber.org/fx"

	"github.com/stellapay/stellapay/internal/config"
	"github.com/stellapay/stellapay/internal/payroll/repository"
	"github.com/stellapay/stellapay/internal/payroll/service"
)

var Module = fx.Module("payroll",
	fx.Provide(repository.NewRepository),
	fx.Provide(func(cfg config.Config) config.EscrowConfig { return cfg.Escrow }),
	fx.Provide(service.NewService),
)
