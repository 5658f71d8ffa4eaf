package main

import (
	"context"
	"time"

	"github.com/smallbiznis/popstore/internal/clock"
	"github.com/smallbiznis/popstore/internal/config"
	"github.com/smallbiznis/popstore/internal/idgen"
	"github.com/smallbiznis/popstore/internal/observability"
	"github.com/smallbiznis/popstore/pkg/db"
	"go.uber.org/fx"
)

const appTimeout = 30 * time.Second

// withApp starts a short-lived fx app over the shared infrastructure plus
// opts, runs fn and stops the app again.
func withApp(ctx context.Context, fn func(ctx context.Context) error, opts ...fx.Option) error {
	base := []fx.Option{
		fx.NopLogger,
		config.Module,
		observability.Module,
		idgen.Module,
		db.Module,
		clock.Module,
	}
	app := fx.New(append(base, opts...)...)
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, appTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), appTimeout)
		defer cancel()
		_ = app.Stop(stopCtx)
	}()

	return fn(ctx)
}
