// Package commissiontest wires a settlement service over a test database.
package commissiontest

import (
	"github.com/bwmarrin/snowflake"
	auditrepo "github.com/smallbiznis/popstore/internal/audit/repository"
	auditservice "github.com/smallbiznis/popstore/internal/audit/service"
	commissiondomain "github.com/smallbiznis/popstore/internal/commission/domain"
	commissionrepo "github.com/smallbiznis/popstore/internal/commission/repository"
	commissionservice "github.com/smallbiznis/popstore/internal/commission/service"
	ledgerservice "github.com/smallbiznis/popstore/internal/ledger/service"
	orderrepo "github.com/smallbiznis/popstore/internal/order/repository"
	planrepo "github.com/smallbiznis/popstore/internal/plan/repository"
	planservice "github.com/smallbiznis/popstore/internal/plan/service"
	storerepo "github.com/smallbiznis/popstore/internal/store/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func NewService(db *gorm.DB, node *snowflake.Node) commissiondomain.Service {
	log := zap.NewNop()
	return commissionservice.NewService(commissionservice.Params{
		DB:     db,
		Log:    log,
		GenID:  node,
		Repo:   commissionrepo.Provide(),
		Orders: orderrepo.Provide(),
		Stores: storerepo.Provide(),
		Plans: planservice.NewService(planservice.Params{
			DB:    db,
			Log:   log,
			GenID: node,
			Repo:  planrepo.Provide(),
		}),
		Ledger: ledgerservice.NewService(ledgerservice.Params{DB: db, Log: log, GenID: node}),
		AuditSvc: auditservice.NewService(auditservice.Params{
			DB:    db,
			Log:   log,
			GenID: node,
			Repo:  auditrepo.Provide(),
		}),
	})
}
