package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"
)

func TestClassifySweeperReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: fmt.Errorf("sweep: %w", context.DeadlineExceeded), want: SweeperReasonDeadlineExceeded},
		{name: "db_lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: SweeperReasonDBLockTimeout},
		{name: "serialization_failure", err: &pgconn.PgError{Code: "40001"}, want: SweeperReasonSerializationFailure},
		{name: "unique_violation", err: gorm.ErrDuplicatedKey, want: SweeperReasonUniqueViolation},
		{name: "other_pg", err: &pgconn.PgError{Code: "42P01"}, want: SweeperReasonDB},
		{name: "unknown", err: errors.New("boom"), want: SweeperReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifySweeperReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestAddOrders(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newSweeperMetrics(registry, Config{ServiceName: "popstore", Environment: "test"})

	m.AddOrders("settled", 3)
	m.AddOrders("settled", 0)

	got := testutil.ToFloat64(m.recovered.WithLabelValues("settled"))
	if got != 3 {
		t.Fatalf("expected settled count 3, got %v", got)
	}
}

func TestNewSweeperMetricsReusesRegistered(t *testing.T) {
	registry := prometheus.NewRegistry()
	first := newSweeperMetrics(registry, Config{ServiceName: "popstore", Environment: "test"})
	second := newSweeperMetrics(registry, Config{ServiceName: "popstore", Environment: "test"})

	first.IncJobRun("settlement_sweep")
	second.IncJobRun("settlement_sweep")

	got := testutil.ToFloat64(first.runs.WithLabelValues("settlement_sweep"))
	if got != 2 {
		t.Fatalf("expected shared counter value 2, got %v", got)
	}
}
