package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/stellapay/stellapay/internal/config"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// The embedded migrations target postgres. Other dialects are for
		// local experiments and tests, which set their own schema up.
		if cfg.DBType != "postgres" {
			return nil
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
