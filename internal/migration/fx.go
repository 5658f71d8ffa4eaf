package migration

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/popstore/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, node *snowflake.Node, log *zap.Logger) error {
		ctx := context.Background()
		if err := Run(ctx, conn); err != nil {
			return err
		}
		created, err := seed.EnsureDefaultPlans(ctx, conn, node)
		if err != nil {
			return err
		}
		if created > 0 {
			log.Info("seeded default pricing plans", zap.Int("count", created))
		}
		return nil
	}),
)
