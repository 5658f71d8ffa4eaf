package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/popstore/internal/clock"
	"github.com/smallbiznis/popstore/internal/payout/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Repo  domain.Repository
	Clock clock.Clock `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	clock clock.Clock
}

func NewService(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("payout.service"),
		repo:  p.Repo,
		clock: clk,
	}
}

func (s *Service) IsPayoutReady(ctx context.Context, ownerID snowflake.ID) (bool, error) {
	if ownerID == 0 {
		return false, domain.ErrInvalidOwner
	}
	account, err := s.repo.FindByOwner(ctx, s.db, ownerID)
	if err != nil {
		return false, err
	}
	return account != nil && account.Ready(), nil
}

func (s *Service) DestinationAccount(ctx context.Context, ownerID snowflake.ID) (string, error) {
	account, err := s.repo.FindByOwner(ctx, s.db, ownerID)
	if err != nil {
		return "", err
	}
	if account == nil || !account.Ready() {
		return "", domain.ErrNotConfigured
	}
	return account.ProcessorAccountID, nil
}

func (s *Service) ApplyAccountUpdate(ctx context.Context, update domain.AccountUpdate) (*domain.Account, error) {
	accountID := strings.TrimSpace(update.ProcessorAccountID)
	if accountID == "" {
		return nil, domain.ErrNotFound
	}
	account, err := s.repo.FindByProcessorAccount(ctx, s.db, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrNotFound
	}

	status, onboarded := domain.DeriveStatus(update)
	previous := account.Status
	account.Status = status
	account.OnboardingComplete = onboarded
	account.ChargesEnabled = update.ChargesEnabled
	account.PayoutsEnabled = update.PayoutsEnabled
	account.UpdatedAt = s.clock.Now().UTC().Truncate(time.Microsecond)

	if err := s.repo.UpdateStatus(ctx, s.db, account); err != nil {
		return nil, err
	}

	s.log.Info("payout account status updated",
		zap.String("owner_id", account.OwnerID.String()),
		zap.String("processor_account_id", accountID),
		zap.String("previous_status", string(previous)),
		zap.String("status", string(status)),
	)
	return account, nil
}
