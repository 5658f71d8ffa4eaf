package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	plandomain "github.com/smallbiznis/popstore/internal/plan/domain"
	planrepo "github.com/smallbiznis/popstore/internal/plan/repository"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed plans.yml
var defaultPlansYAML []byte

type planSeed struct {
	Code                 string `yaml:"code"`
	Title                string `yaml:"title"`
	DurationHours        int    `yaml:"durationHours"`
	BasePrice            int64  `yaml:"basePrice"`
	DiscountPercentage   string `yaml:"discountPercentage"`
	CommissionPercentage string `yaml:"commissionPercentage"`
	Currency             string `yaml:"currency"`
}

type planSeedFile struct {
	Plans []planSeed `yaml:"plans"`
}

// DefaultPlans parses the embedded plan catalogue.
func DefaultPlans() ([]plandomain.Plan, error) {
	return parsePlans(defaultPlansYAML)
}

// EnsureDefaultPlans inserts the default catalogue, skipping codes that already exist.
func EnsureDefaultPlans(ctx context.Context, db *gorm.DB, node *snowflake.Node) (int, error) {
	if db == nil {
		return 0, errors.New("seed database handle is required")
	}
	if node == nil {
		return 0, errors.New("seed id generator is required")
	}

	plans, err := DefaultPlans()
	if err != nil {
		return 0, err
	}

	repo := planrepo.Provide()
	created := 0
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range plans {
			plans[i].ID = node.Generate()
			inserted, err := repo.Insert(ctx, tx, &plans[i])
			if err != nil {
				return fmt.Errorf("seed plan %s: %w", plans[i].Code, err)
			}
			if inserted {
				created++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

func parsePlans(raw []byte) ([]plandomain.Plan, error) {
	var file planSeedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse plan seed: %w", err)
	}

	now := time.Now().UTC()
	out := make([]plandomain.Plan, 0, len(file.Plans))
	for _, item := range file.Plans {
		discount, err := parsePercentage(item.DiscountPercentage)
		if err != nil {
			return nil, fmt.Errorf("plan %s discount: %w", item.Code, err)
		}
		commission, err := parsePercentage(item.CommissionPercentage)
		if err != nil {
			return nil, fmt.Errorf("plan %s commission: %w", item.Code, err)
		}
		if item.Code == "" || item.DurationHours <= 0 || item.BasePrice < 0 {
			return nil, fmt.Errorf("plan %q: %w", item.Code, plandomain.ErrInvalidCode)
		}
		currency := item.Currency
		if currency == "" {
			currency = "usd"
		}
		out = append(out, plandomain.Plan{
			Code:                 item.Code,
			Title:                item.Title,
			DurationHours:        item.DurationHours,
			BasePrice:            item.BasePrice,
			DiscountPercentage:   discount,
			FinalPrice:           plandomain.FinalPrice(item.BasePrice, discount),
			CommissionPercentage: commission,
			Currency:             currency,
			IsActive:             true,
			CreatedAt:            now,
		})
	}
	return out, nil
}

func parsePercentage(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	pct, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if !plandomain.ValidPercentage(pct) {
		return decimal.Zero, plandomain.ErrInvalidPercentage
	}
	return pct, nil
}
