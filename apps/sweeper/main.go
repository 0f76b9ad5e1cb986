package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/stellapay/stellapay/internal/audit"
	"github.com/stellapay/stellapay/internal/clock"
	"github.com/stellapay/stellapay/internal/config"
	"github.com/stellapay/stellapay/internal/escrow"
	"github.com/stellapay/stellapay/internal/lock"
	"github.com/stellapay/stellapay/internal/migration"
	"github.com/stellapay/stellapay/internal/observability"
	"github.com/stellapay/stellapay/internal/payroll"
	"github.com/stellapay/stellapay/internal/sweeper"
	"github.com/stellapay/stellapay/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		lock.Module,
		audit.Module,
		escrow.Module,
		payroll.Module,

		sweeper.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
