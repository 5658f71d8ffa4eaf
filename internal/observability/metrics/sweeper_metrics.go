package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	SweeperReasonDeadlineExceeded     = "deadline_exceeded"
	SweeperReasonDBLockTimeout        = "db_lock_timeout"
	SweeperReasonSerializationFailure = "serialization_failure"
	SweeperReasonUniqueViolation      = "unique_violation"
	SweeperReasonDB                   = "db"
	SweeperReasonUnknown              = "unknown"

	SweeperSkipLockHeld = "lock_held"
	SweeperSkipEmpty    = "empty"
)

// SweeperMetrics captures settlement recovery health signals.
type SweeperMetrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	timeouts    *prometheus.CounterVec
	errors      *prometheus.CounterVec
	skipped     *prometheus.CounterVec
	recovered   *prometheus.CounterVec
	oldestOrder prometheus.Gauge
}

var (
	sweeperMetricsOnce sync.Once
	sweeperMetrics     *SweeperMetrics
)

// Sweeper returns the singleton sweeper metrics registry.
func Sweeper() *SweeperMetrics {
	return SweeperWithConfig(Config{})
}

// SweeperWithConfig returns the singleton sweeper metrics registry using config labels.
func SweeperWithConfig(cfg Config) *SweeperMetrics {
	sweeperMetricsOnce.Do(func() {
		sweeperMetrics = newSweeperMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return sweeperMetrics
}

// ResetSweeperMetricsForTest resets the sweeper metrics singleton for tests.
func ResetSweeperMetricsForTest() {
	sweeperMetricsOnce = sync.Once{}
	sweeperMetrics = nil
}

// NewSweeperMetricsForRegistry builds an unshared instance, mostly for tests.
func NewSweeperMetricsForRegistry(registerer prometheus.Registerer, cfg Config) *SweeperMetrics {
	return newSweeperMetrics(registerer, cfg)
}

func newSweeperMetrics(registerer prometheus.Registerer, cfg Config) *SweeperMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "popstore"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &SweeperMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "popstore_sweeper_job_runs_total",
			Help:        "Sweeper job runs by name.",
			ConstLabels: constLabels,
		}, []string{"job"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "popstore_sweeper_job_duration_seconds",
			Help:        "Sweeper job latency.",
			Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			ConstLabels: constLabels,
		}, []string{"job"}),
		timeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "popstore_sweeper_job_timeouts_total",
			Help:        "Sweeper job runs that hit their deadline.",
			ConstLabels: constLabels,
		}, []string{"job"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "popstore_sweeper_job_errors_total",
			Help:        "Sweeper job errors by reason.",
			ConstLabels: constLabels,
		}, []string{"job", "reason"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "popstore_sweeper_job_skipped_total",
			Help:        "Sweeper runs that did no work.",
			ConstLabels: constLabels,
		}, []string{"job", "reason"}),
		recovered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "popstore_sweeper_orders_total",
			Help:        "Orders picked up by the sweeper by result.",
			ConstLabels: constLabels,
		}, []string{"result"}),
		oldestOrder: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "popstore_sweeper_oldest_unsettled_seconds",
			Help:        "Age of the oldest paid order still waiting for settlement.",
			ConstLabels: constLabels,
		}),
	}

	m.runs = registerCounterVec(registerer, m.runs)
	m.duration = registerHistogramVec(registerer, m.duration)
	m.timeouts = registerCounterVec(registerer, m.timeouts)
	m.errors = registerCounterVec(registerer, m.errors)
	m.skipped = registerCounterVec(registerer, m.skipped)
	m.recovered = registerCounterVec(registerer, m.recovered)
	if err := registerer.Register(m.oldestOrder); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(prometheus.Gauge); ok {
				m.oldestOrder = existing
			}
		}
	}
	return m
}

func registerCounterVec(registerer prometheus.Registerer, vec *prometheus.CounterVec) *prometheus.CounterVec {
	if err := registerer.Register(vec); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
	}
	return vec
}

func registerHistogramVec(registerer prometheus.Registerer, vec *prometheus.HistogramVec) *prometheus.HistogramVec {
	if err := registerer.Register(vec); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing
			}
		}
	}
	return vec
}

// IncJobRun increments the run counter for a sweeper job.
func (m *SweeperMetrics) IncJobRun(job string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(job).Inc()
}

// ObserveJobDuration records sweeper job latency in seconds.
func (m *SweeperMetrics) ObserveJobDuration(job string, duration time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(job).Observe(duration.Seconds())
}

func (m *SweeperMetrics) IncJobTimeout(job string) {
	if m == nil {
		return
	}
	m.timeouts.WithLabelValues(job).Inc()
}

// IncJobError increments the error counter with a low-cardinality reason.
func (m *SweeperMetrics) IncJobError(job string, err error) {
	if m == nil || err == nil {
		return
	}
	m.errors.WithLabelValues(job, ClassifySweeperReason(err)).Inc()
}

func (m *SweeperMetrics) IncJobSkipped(job, reason string) {
	if m == nil {
		return
	}
	m.skipped.WithLabelValues(job, reason).Inc()
}

// AddOrders counts orders by settlement result (settled, already_processed, failed).
func (m *SweeperMetrics) AddOrders(result string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.recovered.WithLabelValues(result).Add(float64(count))
}

func (m *SweeperMetrics) SetOldestUnsettled(age time.Duration) {
	if m == nil {
		return
	}
	if age < 0 {
		age = 0
	}
	m.oldestOrder.Set(age.Seconds())
}

// ClassifySweeperReason maps sweeper errors to low-cardinality reasons.
func ClassifySweeperReason(err error) string {
	if err == nil {
		return SweeperReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return SweeperReasonDeadlineExceeded
	}
	if hasPGCode(err, "55P03") {
		return SweeperReasonDBLockTimeout
	}
	if hasPGCode(err, "40001") {
		return SweeperReasonSerializationFailure
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || hasPGCode(err, "23505") {
		return SweeperReasonUniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) || errors.Is(err, gorm.ErrInvalidTransaction) || errors.Is(err, gorm.ErrInvalidDB) {
		return SweeperReasonDB
	}
	return SweeperReasonUnknown
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}
