package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/popstore/internal/audit"
	"github.com/smallbiznis/popstore/internal/authorization"
	"github.com/smallbiznis/popstore/internal/commission"
	commissiondomain "github.com/smallbiznis/popstore/internal/commission/domain"
	"github.com/smallbiznis/popstore/internal/config"
	"github.com/smallbiznis/popstore/internal/ledger"
	"github.com/smallbiznis/popstore/internal/migration"
	"github.com/smallbiznis/popstore/internal/order"
	"github.com/smallbiznis/popstore/internal/plan"
	"github.com/smallbiznis/popstore/internal/ratelimit"
	"github.com/smallbiznis/popstore/internal/scheduler"
	"github.com/smallbiznis/popstore/internal/seed"
	"github.com/smallbiznis/popstore/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// settlementModules are the services Settle depends on.
func settlementModules() []fx.Option {
	return []fx.Option{
		audit.Module,
		plan.Module,
		store.Module,
		order.Module,
		ledger.Module,
		commission.Module,
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			var conn *gorm.DB
			return withApp(cmd.Context(), func(ctx context.Context) error {
				if err := migration.Run(ctx, conn); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
				return nil
			}, fx.Populate(&conn))
		},
	}
}

func seedPlansCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-plans",
		Short: "Insert the default pricing plans that do not exist yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				conn *gorm.DB
				node *snowflake.Node
			)
			return withApp(cmd.Context(), func(ctx context.Context) error {
				created, err := seed.EnsureDefaultPlans(ctx, conn, node)
				if err != nil {
					return fmt.Errorf("seed plans: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %d plan(s)\n", created)
				return nil
			}, fx.Populate(&conn, &node))
		},
	}
}

func settleCmd() *cobra.Command {
	var orderID string
	cmd := &cobra.Command{
		Use:   "settle",
		Short: "Settle the commission for one paid order",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := snowflake.ParseString(strings.TrimSpace(orderID))
			if err != nil || id == 0 {
				return fmt.Errorf("invalid --order %q", orderID)
			}

			var svc commissiondomain.Service
			opts := append(settlementModules(), fx.Populate(&svc))
			return withApp(cmd.Context(), func(ctx context.Context) error {
				res, err := svc.Settle(ctx, id)
				if err != nil {
					return fmt.Errorf("settle %s: %w", id, err)
				}
				status := "settled"
				if res.AlreadyProcessed {
					status = "already processed"
				}
				if res.Commission == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "order %s %s\n", id, status)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "order %s %s: commission %s amount %d net %d\n",
					id, status, res.Commission.ID, res.Commission.CommissionAmount, res.Commission.NetAmount)
				if res.Divergent {
					fmt.Fprintln(cmd.OutOrStdout(), "warning: plan percentage differs from the checkout snapshot")
				}
				return nil
			}, opts...)
		},
	}
	cmd.Flags().StringVar(&orderID, "order", "", "order id to settle")
	_ = cmd.MarkFlagRequired("order")
	return cmd
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one settlement recovery pass now",
		RunE: func(cmd *cobra.Command, args []string) error {
			var sweeper *scheduler.Sweeper
			opts := append(settlementModules(),
				fx.Provide(ratelimit.NewRedisClient, ratelimit.NewLocker),
				fx.Provide(scheduler.ProvideConfig, scheduler.New),
				fx.Populate(&sweeper),
			)
			return withApp(cmd.Context(), func(ctx context.Context) error {
				report, err := sweeper.RunOnce(ctx)
				if err != nil {
					return fmt.Errorf("sweep: %w", err)
				}
				if report.Skipped {
					fmt.Fprintln(cmd.OutOrStdout(), "skipped: another instance holds the sweep lock")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "scanned %d settled %d already processed %d failed %d\n",
					report.Scanned, report.Settled, report.AlreadyProcessed, report.Failed)
				return nil
			}, opts...)
		},
	}
}

func tokenCmd() *cobra.Command {
	var (
		subject string
		role    string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the admin and owner API",
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens := authorization.NewTokenService(config.Load())
			raw, err := tokens.Issue(subject, role, ttl)
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), raw)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "user or owner id")
	cmd.Flags().StringVar(&role, "role", authorization.RoleOwner, "admin, owner or system")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
