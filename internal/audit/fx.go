package audit

import (
	"github.com/smallbiznis/popstore/internal/audit/repository"
	"github.com/smallbiznis/popstore/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
