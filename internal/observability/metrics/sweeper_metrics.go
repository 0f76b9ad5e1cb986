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

	escrowdomain "github.com/stellapay/stellapay/internal/escrow/domain"
	payrolldomain "github.com/stellapay/stellapay/internal/payroll/domain"
)

const (
	SweepErrorTypeDeadlineExceeded = "deadline_exceeded"
	SweepErrorTypeBusinessRule     = "business_rule"
	SweepErrorTypeDB               = "db"
	SweepErrorTypeEscrow           = "escrow"
	SweepErrorTypeUnknown          = "unknown"
)

const (
	SweepOutcomeResolved  = "resolved"
	SweepOutcomeRolledBk  = "rolled_back"
	SweepOutcomePending   = "pending"
	SweepOutcomeExhausted = "exhausted"
	SweepOutcomeLostRace  = "lost_race"
)

// SweeperMetrics captures reconciliation sweeper health signals.
type SweeperMetrics struct {
	sweepRuns      prometheus.Counter
	sweepDuration  prometheus.Observer
	sweepErrors    *prometheus.CounterVec
	payrollsSwept  *prometheus.CounterVec
	stuckPayrolls  prometheus.Gauge
	runLoopLag     prometheus.Observer
	attentionTotal prometheus.Counter
}

var (
	sweeperMetricsOnce sync.Once
	sweeperMetrics     *SweeperMetrics
)

// Sweeper returns the singleton sweeper metrics registry.
func Sweeper() *SweeperMetrics {
	sweeperMetricsOnce.Do(func() {
		m := &SweeperMetrics{
			sweepRuns: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "stellapay_sweep_runs_total",
				Help: "Number of reconciliation sweep runs.",
			}),
			sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    "stellapay_sweep_duration_seconds",
				Help:    "Duration of reconciliation sweep runs.",
				Buckets: prometheus.DefBuckets,
			}),
			sweepErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "stellapay_sweep_errors_total",
				Help: "Sweep errors by classified type.",
			}, []string{"type"}),
			payrollsSwept: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "stellapay_sweep_payrolls_total",
				Help: "Stuck payrolls handled by the sweeper, by outcome.",
			}, []string{"outcome"}),
			stuckPayrolls: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "stellapay_stuck_payrolls",
				Help: "Payrolls currently past the grace period in a transitional status.",
			}),
			runLoopLag: prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    "stellapay_sweep_loop_lag_seconds",
				Help:    "Lag between scheduled and actual sweep start.",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60},
			}),
			attentionTotal: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "stellapay_sweep_operator_attention_total",
				Help: "Payrolls parked for manual operator intervention.",
			}),
		}
		for _, c := range []prometheus.Collector{
			m.sweepRuns,
			m.sweepDuration.(prometheus.Collector),
			m.sweepErrors,
			m.payrollsSwept,
			m.stuckPayrolls,
			m.runLoopLag.(prometheus.Collector),
			m.attentionTotal,
		} {
			if err := prometheus.Register(c); err != nil {
				var already prometheus.AlreadyRegisteredError
				if !errors.As(err, &already) {
					panic(err)
				}
			}
		}
		sweeperMetrics = m
	})
	return sweeperMetrics
}

func (m *SweeperMetrics) IncSweepRun() {
	if m == nil {
		return
	}
	m.sweepRuns.Inc()
}

func (m *SweeperMetrics) ObserveSweepDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.sweepDuration.Observe(d.Seconds())
}

func (m *SweeperMetrics) ObserveRunLoopLag(d time.Duration) {
	if m == nil || d <= 0 {
		return
	}
	m.runLoopLag.Observe(d.Seconds())
}

func (m *SweeperMetrics) IncSweepError(err error) {
	if m == nil {
		return
	}
	m.sweepErrors.WithLabelValues(ClassifySweepError(err)).Inc()
}

func (m *SweeperMetrics) IncSweepErrorType(errorType string) {
	if m == nil {
		return
	}
	m.sweepErrors.WithLabelValues(errorType).Inc()
}

func (m *SweeperMetrics) IncPayrollSwept(outcome string) {
	if m == nil {
		return
	}
	m.payrollsSwept.WithLabelValues(outcome).Inc()
}

func (m *SweeperMetrics) SetStuckPayrolls(n int) {
	if m == nil {
		return
	}
	m.stuckPayrolls.Set(float64(n))
}

func (m *SweeperMetrics) IncOperatorAttention() {
	if m == nil {
		return
	}
	m.attentionTotal.Inc()
}

// ClassifySweepError buckets sweep errors for alerting. Postgres error codes
// are checked first so DB pressure is distinguishable from business failures.
func ClassifySweepError(err error) string {
	if err == nil {
		return SweepErrorTypeUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return SweepErrorTypeDeadlineExceeded
	}
	if escrowdomain.IsRejected(err) || errors.Is(err, escrowdomain.ErrOperationNotFound) {
		return SweepErrorTypeEscrow
	}
	if payrolldomain.IsInvariantViolation(err) {
		return SweepErrorTypeBusinessRule
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03", "40001", "40P01", "23505":
			return SweepErrorTypeDB
		}
		if strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "53") {
			return SweepErrorTypeDB
		}
		return SweepErrorTypeDB
	}
	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, gorm.ErrInvalidTransaction) {
		return SweepErrorTypeDB
	}

	return SweepErrorTypeUnknown
}
