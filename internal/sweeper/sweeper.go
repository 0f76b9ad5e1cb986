// Package sweeper is the reconciliation loop for payrolls stuck in a
// transitional status. It re-polls their pending escrow operations and
// drives each row to the same resolution the synchronous path would have
// reached.
package sweeper

import (
	"context"
	"errors"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/stellapay/stellapay/internal/clock"
	"github.com/stellapay/stellapay/internal/config"
	escrowdomain "github.com/stellapay/stellapay/internal/escrow/domain"
	"github.com/stellapay/stellapay/internal/lock"
	obsmetrics "github.com/stellapay/stellapay/internal/observability/metrics"
	payrolldomain "github.com/stellapay/stellapay/internal/payroll/domain"
)

var ErrInvalidParams = errors.New("sweeper: missing dependency")

type Params struct {
	fx.In

	Log        *zap.Logger
	PayrollSvc payrolldomain.Service
	Escrow     escrowdomain.Client
	Clock      clock.Clock
	Settlement *config.SettlementConfigHolder
	Locker     *lock.Locker `optional:"true"`
	Config     Config       `optional:"true"`
}

type Sweeper struct {
	log        *zap.Logger
	cfg        Config
	payrollSvc payrolldomain.Service
	escrow     escrowdomain.Client
	clock      clock.Clock
	settlement *config.SettlementConfigHolder
	locker     *lock.Locker
}

func New(p Params) (*Sweeper, error) {
	if p.Log == nil || p.PayrollSvc == nil || p.Escrow == nil || p.Clock == nil || p.Settlement == nil {
		return nil, ErrInvalidParams
	}
	return &Sweeper{
		log:        p.Log.Named("sweeper").With(zap.String("component", "sweeper")),
		cfg:        p.Config.withDefaults(),
		payrollSvc: p.PayrollSvc,
		escrow:     p.Escrow,
		clock:      p.Clock,
		settlement: p.Settlement,
		locker:     p.Locker,
	}, nil
}

// RunOnce performs one sweep pass. The redis lock keeps replicas from
// duplicating poll traffic; losing it is not an error because every write
// below is version-guarded anyway.
func (s *Sweeper) RunOnce(parent context.Context) error {
	start := time.Now()
	m := obsmetrics.Sweeper()
	m.IncSweepRun()
	defer func() { m.ObserveSweepDuration(time.Since(start)) }()

	ctx, cancel := context.WithTimeout(parent, s.cfg.RunTimeout)
	defer cancel()

	if s.locker != nil {
		lease, err := s.locker.Acquire(ctx, s.cfg.LockKey, s.cfg.LockTTL)
		switch {
		case errors.Is(err, lock.ErrHeld):
			s.log.Debug("sweep lock held elsewhere, skipping run")
			return nil
		case err != nil:
			s.log.Warn("sweep lock unavailable, proceeding without it", zap.Error(err))
		default:
			defer func() {
				if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
					s.log.Warn("sweep lock release failed", zap.Error(err))
				}
			}()
		}
	}

	cfg := s.settlement.Get()
	stuck, err := s.payrollSvc.ListStuck(ctx, cfg.GracePeriod, cfg.SweepBatchSize)
	if err != nil {
		m.IncSweepError(err)
		return err
	}
	m.SetStuckPayrolls(len(stuck))
	if len(stuck) == 0 {
		return nil
	}

	s.log.Info("sweeping stuck payrolls", zap.Int("count", len(stuck)))

	var errs error
	for i := range stuck {
		if ctx.Err() != nil {
			break
		}
		if err := s.sweepOne(ctx, &stuck[i], cfg); err != nil {
			m.IncSweepError(err)
			errs = errors.Join(errs, err)
		}
	}
	return errs
}

func (s *Sweeper) sweepOne(ctx context.Context, p *payrolldomain.Payroll, cfg config.SettlementConfig) error {
	m := obsmetrics.Sweeper()
	log := s.log.With(
		zap.String("payroll_id", p.ID.String()),
		zap.String("status", string(p.Status)),
		zap.String("idempotency_key", p.EscrowTxRef),
	)

	status, err := s.escrow.PollStatus(ctx, p.EscrowTxRef)
	switch {
	case errors.Is(err, escrowdomain.ErrOperationNotFound):
		// The escrow service has no record of the key, so the submission
		// never took. Safe to undo the intent.
		status = escrowdomain.OperationStatus{
			State:  escrowdomain.OperationStateFailed,
			Reason: "operation not recorded by escrow service",
		}
	case err != nil:
		// Transient poll failure. Leave the row as-is rather than burning
		// an attempt on our own connectivity problems.
		log.Warn("poll failed", zap.Error(err))
		return err
	}

	var outcome payrolldomain.ResolveOutcome
	switch status.State {
	case escrowdomain.OperationStateSucceeded, escrowdomain.OperationStateFailed:
		outcome, err = s.payrollSvc.ResolveStuck(ctx, p, status)
	default:
		outcome, err = s.payrollSvc.RecordSweepMiss(ctx, p, cfg.MaxSweepAttempts)
	}
	if err != nil {
		log.Error("sweep resolution failed", zap.Error(err))
		return err
	}

	m.IncPayrollSwept(string(outcome))
	switch outcome {
	case payrolldomain.ResolveOutcomeExhausted:
		m.IncOperatorAttention()
		log.Error("payroll exhausted its confirmation budget")
	case payrolldomain.ResolveOutcomeLostRace:
		log.Debug("another writer resolved the payroll first")
	default:
		log.Info("payroll swept", zap.String("outcome", string(outcome)))
	}
	return nil
}

// runLag measures how far behind schedule a pass starts, on the same clock
// that scheduled it.
func (s *Sweeper) runLag(nextRun time.Time) time.Duration {
	return s.clock.Now().Sub(nextRun)
}

// RunForever runs sweep passes until ctx is cancelled. The interval is
// re-read every loop so config reloads take effect without a restart.
func (s *Sweeper) RunForever(ctx context.Context) {
	m := obsmetrics.Sweeper()
	interval := s.settlement.Get().SweepInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(interval)

	for {
		if lag := s.runLag(nextRun); lag > 0 {
			m.ObserveRunLoopLag(lag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("sweep run failed", zap.Error(err))
		}

		if next := s.settlement.Get().SweepInterval; next != interval {
			interval = next
			ticker.Reset(interval)
		}
		nextRun = nextRun.Add(interval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
