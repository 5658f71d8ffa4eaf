package main

import (
	"github.com/smallbiznis/popstore/internal/audit"
	"github.com/smallbiznis/popstore/internal/authorization"
	"github.com/smallbiznis/popstore/internal/checkout"
	"github.com/smallbiznis/popstore/internal/clock"
	"github.com/smallbiznis/popstore/internal/commission"
	"github.com/smallbiznis/popstore/internal/config"
	"github.com/smallbiznis/popstore/internal/idgen"
	"github.com/smallbiznis/popstore/internal/ledger"
	"github.com/smallbiznis/popstore/internal/migration"
	"github.com/smallbiznis/popstore/internal/observability"
	"github.com/smallbiznis/popstore/internal/order"
	"github.com/smallbiznis/popstore/internal/payment"
	"github.com/smallbiznis/popstore/internal/payout"
	"github.com/smallbiznis/popstore/internal/plan"
	"github.com/smallbiznis/popstore/internal/ratelimit"
	"github.com/smallbiznis/popstore/internal/scheduler"
	"github.com/smallbiznis/popstore/internal/server"
	"github.com/smallbiznis/popstore/internal/store"
	"github.com/smallbiznis/popstore/pkg/db"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		idgen.Module,
		db.Module,
		clock.Module,
		migration.Module,
		ratelimit.Module,

		audit.Module,
		authorization.Module,
		plan.Module,
		store.Module,
		payout.Module,
		order.Module,
		ledger.Module,
		commission.Module,
		payment.Module,
		checkout.Module,

		// Runs in-process only when SWEEPER_ENABLED is set; apps/sweeper is
		// the standalone deployment.
		scheduler.Module,

		server.Module,
	)
	app.Run()
}
