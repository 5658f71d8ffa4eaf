package payout

import (
	"github.com/smallbiznis/popstore/internal/payout/repository"
	"github.com/smallbiznis/popstore/internal/payout/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payout.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
