package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/popstore/internal/cache"
	"github.com/smallbiznis/popstore/internal/plan/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Cache cache.PlanCache `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	cache cache.PlanCache
}

func NewService(p Params) domain.Service {
	planCache := p.Cache
	if planCache == nil {
		planCache = cache.NewPlanCache()
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("plan.service"),
		genID: p.GenID,
		repo:  p.Repo,
		cache: planCache,
	}
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Plan, error) {
	if id == 0 {
		return nil, domain.ErrNotFound
	}
	if cached, ok := s.cache.GetPlan(id.String()); ok {
		return &cached, nil
	}

	plan, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, domain.ErrNotFound
	}
	s.cache.SetPlan(*plan)
	return plan, nil
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]domain.Plan, error) {
	if cached, ok := s.cache.GetList(activeOnly); ok {
		return cached, nil
	}
	plans, err := s.repo.List(ctx, s.db, activeOnly)
	if err != nil {
		return nil, err
	}
	s.cache.SetList(activeOnly, plans)
	return plans, nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Plan, error) {
	plan, err := s.buildPlan(req)
	if err != nil {
		return nil, err
	}

	inserted, err := s.repo.Insert(ctx, s.db, plan)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, domain.ErrCodeAlreadyExists
	}

	s.cache.InvalidateLists()
	s.cache.SetPlan(*plan)
	s.log.Info("pricing plan created",
		zap.String("plan_id", plan.ID.String()),
		zap.String("code", plan.Code),
		zap.String("commission_percentage", plan.CommissionPercentage.String()),
	)
	return plan, nil
}

func (s *Service) buildPlan(req domain.CreateRequest) (*domain.Plan, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}
	// An omitted code is derived from the title.
	code := strings.ToLower(strings.TrimSpace(req.Code))
	if code == "" {
		code = slug.Make(title)
	}
	if len(code) > 64 || !slug.IsSlug(code) {
		return nil, domain.ErrInvalidCode
	}
	if req.DurationHours <= 0 {
		return nil, domain.ErrInvalidDuration
	}
	if req.BasePrice < 0 {
		return nil, domain.ErrInvalidPrice
	}
	if !domain.ValidPercentage(req.DiscountPercentage) || !domain.ValidPercentage(req.CommissionPercentage) {
		return nil, domain.ErrInvalidPercentage
	}
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "usd"
	}
	if len(currency) != 3 {
		return nil, domain.ErrInvalidCurrency
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	return &domain.Plan{
		ID:                   s.genID.Generate(),
		Code:                 code,
		Title:                title,
		DurationHours:        req.DurationHours,
		BasePrice:            req.BasePrice,
		DiscountPercentage:   req.DiscountPercentage.Round(2),
		FinalPrice:           domain.FinalPrice(req.BasePrice, req.DiscountPercentage),
		CommissionPercentage: req.CommissionPercentage.Round(2),
		Currency:             currency,
		IsActive:             active,
		CreatedAt:            time.Now().UTC(),
	}, nil
}
