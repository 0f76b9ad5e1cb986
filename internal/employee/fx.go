package employee

import (
	"go.uber.org/fx"

	"github.com/stellapay/stellapay/internal/employee/repository"
	"github.com/stellapay/stellapay/internal/employee/service"
)

var Module = fx.Module("employee",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
