package main

import (
	"github.com/smallbiznis/popstore/internal/audit"
	"github.com/smallbiznis/popstore/internal/clock"
	"github.com/smallbiznis/popstore/internal/commission"
	"github.com/smallbiznis/popstore/internal/config"
	"github.com/smallbiznis/popstore/internal/idgen"
	"github.com/smallbiznis/popstore/internal/ledger"
	"github.com/smallbiznis/popstore/internal/observability"
	"github.com/smallbiznis/popstore/internal/order"
	"github.com/smallbiznis/popstore/internal/plan"
	"github.com/smallbiznis/popstore/internal/ratelimit"
	"github.com/smallbiznis/popstore/internal/scheduler"
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
		ratelimit.Module,

		// Domain services required by the sweeper
		audit.Module,
		plan.Module,
		store.Module,
		order.Module,
		ledger.Module,
		commission.Module,

		// No server module!
		fx.Decorate(forceEnabled),
		scheduler.Module,
	)
	app.Run()
}

// forceEnabled turns the sweeper on regardless of SWEEPER_ENABLED; running
// this binary is the opt in.
func forceEnabled(cfg scheduler.Config) scheduler.Config {
	cfg.Enabled = true
	return cfg
}
