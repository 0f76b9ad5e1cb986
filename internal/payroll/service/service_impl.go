// Package service implements the settlement coordinator: the only component
// that drives payroll money movement across the ledger database and the
// escrow chain.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/stellapay/stellapay/internal/audit"
	"github.com/stellapay/stellapay/internal/clock"
	"github.com/stellapay/stellapay/internal/config"
	escrowdomain "github.com/stellapay/stellapay/internal/escrow/domain"
	"github.com/stellapay/stellapay/internal/observability/logger"
	"github.com/stellapay/stellapay/internal/observability/metrics"
	"github.com/stellapay/stellapay/internal/payroll/domain"
)

type service struct {
	repo    domain.Repository
	escrow  escrowdomain.Client
	node    *snowflake.Node
	clock   clock.Clock
	audit   audit.Service
	metrics *metrics.Metrics
	log     *zap.Logger
	cfg     config.EscrowConfig
}

// Params bundles the coordinator's dependencies.
type Params struct {
	fx.In

	Repo    domain.Repository
	Escrow  escrowdomain.Client
	Node    *snowflake.Node
	Clock   clock.Clock
	Audit   audit.Service
	Metrics *metrics.Metrics
	Logger  *zap.Logger
	Escrows config.EscrowConfig
}

func NewService(p Params) domain.Service {
	return &service{
		repo:    p.Repo,
		escrow:  p.Escrow,
		node:    p.Node,
		clock:   p.Clock,
		audit:   p.Audit,
		metrics: p.Metrics,
		log:     p.Logger,
		cfg:     p.Escrows,
	}
}

func (s *service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Payroll, error) {
	if req.TotalAmount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if len(req.Recipients) == 0 {
		return nil, domain.ErrNoRecipients
	}
	var sum int64
	for _, r := range req.Recipients {
		if r.Amount <= 0 {
			return nil, domain.ErrInvalidAmount
		}
		sum += r.Amount
	}
	if sum != req.TotalAmount {
		return nil, fmt.Errorf("recipients sum %d, payroll total %d: %w",
			sum, req.TotalAmount, domain.ErrRecipientSumMismatch)
	}

	asset := req.Asset
	if asset == "" {
		asset = "XLM"
	}

	now := s.clock.Now()
	p := &domain.Payroll{
		ID:          s.node.Generate(),
		EmployerID:  req.EmployerID,
		CompanyID:   req.CompanyID,
		Title:       req.Title,
		Description: req.Description,
		TotalAmount: req.TotalAmount,
		Asset:       asset,
		Status:      domain.PayrollStatusCreated,
		Version:     1,
		Metadata:    datatypes.JSONMap(req.Metadata),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	payouts := make([]escrowdomain.RecipientPayout, 0, len(req.Recipients))
	for _, r := range req.Recipients {
		rec := domain.Recipient{
			ID:                 s.node.Generate(),
			PayrollID:          p.ID,
			EmployeeID:         r.EmployeeID,
			DestinationAddress: r.DestinationAddress,
			Amount:             r.Amount,
			Asset:              asset,
			Status:             domain.RecipientStatusPending,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		p.Recipients = append(p.Recipients, rec)
		payouts = append(payouts, escrowdomain.RecipientPayout{
			RecipientID: rec.ID,
			Destination: rec.DestinationAddress,
			Amount:      rec.Amount,
			Asset:       asset,
		})
	}

	// The escrow instance is allocated before the row exists so EscrowRef is
	// assigned exactly once and never changes afterwards.
	prov, err := s.escrow.ProvisionEscrow(ctx, escrowdomain.ProvisionRequest{
		EmployerID:  req.EmployerID,
		PayrollID:   p.ID,
		TotalAmount: req.TotalAmount,
		Asset:       asset,
		Recipients:  payouts,
	})
	if err != nil {
		return nil, fmt.Errorf("provision escrow: %w", err)
	}
	p.EscrowRef = prov.EscrowRef

	if err := s.repo.Insert(ctx, p); err != nil {
		// The escrow instance already exists on chain with no local record;
		// leave a loud trace so an operator can reclaim it.
		logger.WithContext(ctx, s.log).Error("payroll insert failed after escrow provisioning, escrow orphaned",
			zap.String("payroll_id", p.ID.String()),
			zap.String("escrow_ref", p.EscrowRef),
			zap.Error(err),
		)
		return nil, err
	}

	logger.WithContext(ctx, s.log).Info("payroll created",
		zap.String("payroll_id", p.ID.String()),
		zap.String("escrow_ref", p.EscrowRef),
		zap.Int64("total_amount", p.TotalAmount),
		zap.Int("recipients", len(p.Recipients)),
	)
	s.audit.Record(ctx, p.EmployerID, "payroll.created", "payroll", p.ID.String(), map[string]any{
		"total_amount": p.TotalAmount,
		"asset":        asset,
	})
	return p, nil
}

func (s *service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Payroll, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) List(ctx context.Context, req domain.ListRequest) (*domain.ListResponse, error) {
	rows, info, err := s.repo.List(ctx, domain.ListFilter{
		EmployerID:      req.EmployerID,
		Status:          req.Status,
		IncludeArchived: req.IncludeArchived,
		Pagination:      req.Pagination,
	})
	if err != nil {
		return nil, err
	}
	return &domain.ListResponse{Payrolls: rows, PageInfo: info}, nil
}

func (s *service) ListRecipients(ctx context.Context, payrollID snowflake.ID) ([]domain.Recipient, error) {
	p, err := s.repo.FindByID(ctx, payrollID)
	if err != nil {
		return nil, err
	}
	return p.Recipients, nil
}

func (s *service) RequestFunding(ctx context.Context, req domain.FundingRequest) (*domain.OperationResult, error) {
	if req.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	var key string
	p, err := s.repo.UpdateCAS(ctx, req.PayrollID, req.ExpectedVersion, func(_ *gorm.DB, p *domain.Payroll) error {
		if !domain.TransitionAllowed(p.Status, domain.PayrollStatusFunding) {
			return fmt.Errorf("cannot fund payroll in status %s: %w", p.Status, domain.ErrInvalidTransition)
		}
		if p.OperationInFlight() {
			if p.PendingOp != domain.OperationFund || p.PendingAmount != req.Amount {
				return domain.ErrOperationInFlight
			}
			// Retry of the same logical operation: reuse the recorded key
			// and keep the original TransitionAt, so retries cannot push
			// the row out of the sweeper's window forever.
		} else {
			if p.FundedAmount+req.Amount > p.TotalAmount {
				return fmt.Errorf("funded %d + %d exceeds total %d: %w",
					p.FundedAmount, req.Amount, p.TotalAmount, domain.ErrFundingExceedsTotal)
			}
			p.EscrowTxRef = uuid.NewString()
			p.PendingOp = domain.OperationFund
			p.PendingAmount = req.Amount
			now := s.clock.Now()
			p.TransitionAt = &now
		}
		key = p.EscrowTxRef
		s.recordTransition(ctx, p.Status, domain.PayrollStatusFunding)
		p.Status = domain.PayrollStatusFunding
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.submitAndAwait(ctx, p, key, func(subCtx context.Context) error {
		return s.escrow.SubmitFunding(subCtx, key, p.EscrowRef, req.Amount, p.Asset)
	})
}

func (s *service) RequestRelease(ctx context.Context, req domain.ReleaseRequest) (*domain.OperationResult, error) {
	mode := req.Mode
	if mode == "" {
		mode = domain.ReleaseModeFull
	}

	var (
		key     string
		payouts []escrowdomain.RecipientPayout
	)
	p, err := s.repo.UpdateCAS(ctx, req.PayrollID, req.ExpectedVersion, func(_ *gorm.DB, p *domain.Payroll) error {
		if !domain.TransitionAllowed(p.Status, domain.PayrollStatusReleasing) {
			return fmt.Errorf("cannot release payroll in status %s: %w", p.Status, domain.ErrInvalidTransition)
		}
		if p.OperationInFlight() {
			if p.PendingOp != domain.OperationRelease {
				return domain.ErrOperationInFlight
			}
			key = p.EscrowTxRef
		} else {
			if mode == domain.ReleaseModeFull && p.FundedAmount != p.TotalAmount {
				return fmt.Errorf("funded %d of %d: %w", p.FundedAmount, p.TotalAmount, domain.ErrNotFullyFunded)
			}
			if p.FundedAmount == 0 {
				return domain.ErrNoFundsAvailable
			}
			p.EscrowTxRef = uuid.NewString()
			p.PendingOp = domain.OperationRelease
			p.PendingAmount = 0
			key = p.EscrowTxRef
			now := s.clock.Now()
			p.TransitionAt = &now
		}

		targets, err := releaseTargets(p, mode, req.RecipientIDs)
		if err != nil {
			return err
		}
		payouts = targets

		s.recordTransition(ctx, p.Status, domain.PayrollStatusReleasing)
		p.Status = domain.PayrollStatusReleasing
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.submitAndAwait(ctx, p, key, func(subCtx context.Context) error {
		return s.escrow.SubmitRelease(subCtx, key, p.EscrowRef, payouts)
	})
}

// releaseTargets resolves which recipients a release submission covers.
func releaseTargets(p *domain.Payroll, mode domain.ReleaseMode, ids []snowflake.ID) ([]escrowdomain.RecipientPayout, error) {
	unpaid := p.UnpaidRecipients()
	if len(unpaid) == 0 {
		return nil, domain.ErrNoUnpaidRecipients
	}

	selected := unpaid
	if mode == domain.ReleaseModePartial && len(ids) > 0 {
		byID := make(map[snowflake.ID]domain.Recipient, len(unpaid))
		for _, r := range unpaid {
			byID[r.ID] = r
		}
		selected = selected[:0:0]
		for _, id := range ids {
			r, ok := byID[id]
			if !ok {
				return nil, fmt.Errorf("recipient %s not unpaid on this payroll: %w", id, domain.ErrUnknownRecipient)
			}
			selected = append(selected, r)
		}
	}

	var sum int64
	payouts := make([]escrowdomain.RecipientPayout, 0, len(selected))
	for _, r := range selected {
		sum += r.Amount
		payouts = append(payouts, escrowdomain.RecipientPayout{
			RecipientID: r.ID,
			Destination: r.DestinationAddress,
			Amount:      r.Amount,
			Asset:       r.Asset,
		})
	}
	if sum > p.FundedAmount {
		return nil, fmt.Errorf("release of %d exceeds funded %d: %w", sum, p.FundedAmount, domain.ErrNoFundsAvailable)
	}
	return payouts, nil
}

// submitAndAwait runs steps two and three of a settlement operation: hand the
// submission to the escrow service, then poll for confirmation until the
// configured deadline. Ambiguous outcomes leave the payroll transitional; the
// sweeper picks it up from there.
func (s *service) submitAndAwait(ctx context.Context, p *domain.Payroll, key string, submit func(context.Context) error) (*domain.OperationResult, error) {
	log := logger.WithContext(ctx, s.log).With(
		zap.String("payroll_id", p.ID.String()),
		zap.String("idempotency_key", key),
		zap.String("op", string(p.PendingOp)),
	)

	subCtx, cancel := context.WithTimeout(ctx, s.cfg.SubmitTimeout)
	err := submit(subCtx)
	cancel()

	switch {
	case err == nil:
		s.metrics.RecordEscrowSubmit(ctx, string(p.PendingOp), "accepted")
	case escrowdomain.IsRejected(err):
		s.metrics.RecordEscrowSubmit(ctx, string(p.PendingOp), "rejected")
		log.Warn("escrow rejected submission", zap.Error(err))
		rolled, rbErr := s.rollback(ctx, p, err.Error())
		if rbErr != nil {
			return nil, rbErr
		}
		return &domain.OperationResult{Outcome: domain.OutcomeRolledBack, Payroll: rolled}, nil
	default:
		// Ambiguous: the submission may or may not have taken. The key and
		// transitional status stay in place so the operation is recoverable.
		s.metrics.RecordEscrowSubmit(ctx, string(p.PendingOp), "ambiguous")
		log.Warn("escrow submission ambiguous, leaving for sweeper", zap.Error(err))
		return &domain.OperationResult{Outcome: domain.OutcomeProcessing, Payroll: p}, nil
	}

	status, ok := s.awaitConfirmation(ctx, key)
	if !ok {
		log.Info("confirmation window elapsed, leaving for sweeper")
		return &domain.OperationResult{Outcome: domain.OutcomeProcessing, Payroll: p}, nil
	}

	outcome, resolved, err := s.applyOutcome(ctx, p, status)
	if err != nil {
		return nil, err
	}
	res := &domain.OperationResult{Payroll: resolved}
	switch outcome {
	case domain.ResolveOutcomeResolved:
		res.Outcome = domain.OutcomeConfirmed
	case domain.ResolveOutcomeRolledBack:
		res.Outcome = domain.OutcomeRolledBack
	default:
		res.Outcome = domain.OutcomeProcessing
		res.Payroll = p
	}
	return res, nil
}

// awaitConfirmation polls the escrow service until the operation resolves or
// the confirmation window closes. Transient poll errors are retried inside
// the window.
func (s *service) awaitConfirmation(ctx context.Context, key string) (escrowdomain.OperationStatus, bool) {
	interval := s.cfg.ConfirmTimeout / 5
	if interval < 50*time.Millisecond {
		interval = 50 * time.Millisecond
	}
	if interval > 2*time.Second {
		interval = 2 * time.Second
	}

	deadline := time.NewTimer(s.cfg.ConfirmTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := s.escrow.PollStatus(ctx, key)
		if err == nil {
			s.metrics.RecordEscrowPoll(ctx, string(status.State))
			if status.State == escrowdomain.OperationStateSucceeded ||
				status.State == escrowdomain.OperationStateFailed {
				return status, true
			}
		} else {
			s.metrics.RecordEscrowPoll(ctx, "error")
		}

		select {
		case <-ctx.Done():
			return escrowdomain.OperationStatus{}, false
		case <-deadline.C:
			return escrowdomain.OperationStatus{}, false
		case <-ticker.C:
		}
	}
}

// applyOutcome is step four: a version-guarded resolve or rollback of the
// pending operation, shared between the synchronous path and the sweeper.
func (s *service) applyOutcome(ctx context.Context, p *domain.Payroll, status escrowdomain.OperationStatus) (domain.ResolveOutcome, *domain.Payroll, error) {
	switch status.State {
	case escrowdomain.OperationStateSucceeded:
		resolved, err := s.resolveSuccess(ctx, p, status)
		if errors.Is(err, domain.ErrConcurrentModification) {
			return domain.ResolveOutcomeLostRace, nil, nil
		}
		if err != nil {
			return "", nil, err
		}
		return domain.ResolveOutcomeResolved, resolved, nil

	case escrowdomain.OperationStateFailed:
		rolled, err := s.rollback(ctx, p, status.Reason)
		if errors.Is(err, domain.ErrConcurrentModification) {
			return domain.ResolveOutcomeLostRace, nil, nil
		}
		if err != nil {
			return "", nil, err
		}
		return domain.ResolveOutcomeRolledBack, rolled, nil

	default:
		return domain.ResolveOutcomePending, nil, nil
	}
}

func (s *service) resolveSuccess(ctx context.Context, p *domain.Payroll, status escrowdomain.OperationStatus) (*domain.Payroll, error) {
	op := p.PendingOp
	resolved, err := s.repo.UpdateCAS(ctx, p.ID, p.Version, func(_ *gorm.DB, p *domain.Payroll) error {
		now := s.clock.Now()
		prev := p.Status

		switch op {
		case domain.OperationFund:
			confirmed := status.Amount
			if confirmed == 0 {
				confirmed = p.PendingAmount
			}
			p.FundedAmount += confirmed
			if p.FundedAmount >= p.TotalAmount {
				p.Status = domain.PayrollStatusFunded
				p.FundedAt = &now
			} else {
				p.Status = domain.PayrollStatusFunding
			}

		case domain.OperationRelease:
			outcomes := make(map[snowflake.ID]escrowdomain.RecipientOutcome, len(status.Recipients))
			for _, o := range status.Recipients {
				outcomes[o.RecipientID] = o
			}
			for i := range p.Recipients {
				o, ok := outcomes[p.Recipients[i].ID]
				if !ok {
					continue
				}
				if o.Paid {
					p.Recipients[i].Status = domain.RecipientStatusPaid
					p.Recipients[i].DisbursementTxRef = o.TxRef
					p.Recipients[i].PaidAt = &now
				} else {
					p.Recipients[i].Status = domain.RecipientStatusFailed
					p.Recipients[i].FailureReason = o.Reason
				}
				p.Recipients[i].UpdatedAt = now
			}

			var paid int
			for _, r := range p.Recipients {
				if r.Status == domain.RecipientStatusPaid {
					paid++
				}
			}
			switch {
			case paid == len(p.Recipients):
				p.Status = domain.PayrollStatusReleased
				p.ReleasedAt = &now
			case paid > 0:
				p.Status = domain.PayrollStatusPartiallyReleased
			default:
				p.Status = domain.PayrollStatusFailed
				p.ErrorDetail = "no recipient leg settled"
			}
		}

		if status.TxRef != "" {
			p.LedgerTxRef = status.TxRef
		}
		p.EscrowTxRef = ""
		p.PendingOp = ""
		p.PendingAmount = 0
		p.TransitionAt = nil
		p.SweepAttempts = 0
		p.UpdatedAt = now
		s.recordTransition(ctx, prev, p.Status)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx, s.log).Info("settlement operation resolved",
		zap.String("payroll_id", resolved.ID.String()),
		zap.String("op", string(op)),
		zap.String("status", string(resolved.Status)),
	)
	s.audit.Record(ctx, resolved.EmployerID, "payroll."+auditAction(op)+".confirmed", "payroll", resolved.ID.String(), map[string]any{
		"status":        string(resolved.Status),
		"funded_amount": resolved.FundedAmount,
	})
	return resolved, nil
}

// rollback undoes an operation the chain definitively refused. Funding rolls
// back to the last stable pre-operation state; a refused release fails the
// payroll outright since escrowed funds now need an operator.
func (s *service) rollback(ctx context.Context, p *domain.Payroll, reason string) (*domain.Payroll, error) {
	op := p.PendingOp
	rolled, err := s.repo.UpdateCAS(ctx, p.ID, p.Version, func(_ *gorm.DB, p *domain.Payroll) error {
		now := s.clock.Now()
		prev := p.Status

		switch op {
		case domain.OperationFund:
			if p.FundedAmount > 0 {
				p.Status = domain.PayrollStatusFunding
			} else {
				p.Status = domain.PayrollStatusCreated
			}
		case domain.OperationRelease:
			p.Status = domain.PayrollStatusFailed
			p.NeedsAttention = true
		}

		p.ErrorDetail = reason
		p.EscrowTxRef = ""
		p.PendingOp = ""
		p.PendingAmount = 0
		p.TransitionAt = nil
		p.SweepAttempts = 0
		p.UpdatedAt = now
		s.recordTransition(ctx, prev, p.Status)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if rolled.NeedsAttention {
		s.metrics.RecordOperatorAttention(ctx, "release_rejected")
	}
	logger.WithContext(ctx, s.log).Warn("settlement operation rolled back",
		zap.String("payroll_id", rolled.ID.String()),
		zap.String("op", string(op)),
		zap.String("status", string(rolled.Status)),
		zap.String("reason", reason),
	)
	s.audit.Record(ctx, rolled.EmployerID, "payroll."+auditAction(op)+".rolled_back", "payroll", rolled.ID.String(), map[string]any{
		"reason": reason,
	})
	return rolled, nil
}

func (s *service) Cancel(ctx context.Context, req domain.CancelRequest) (*domain.Payroll, error) {
	p, err := s.repo.UpdateCAS(ctx, req.PayrollID, req.ExpectedVersion, func(_ *gorm.DB, p *domain.Payroll) error {
		if p.OperationInFlight() {
			return domain.ErrOperationInFlight
		}
		if !domain.TransitionAllowed(p.Status, domain.PayrollStatusCancelled) {
			return fmt.Errorf("cannot cancel payroll in status %s: %w", p.Status, domain.ErrInvalidTransition)
		}
		if p.FundedAmount > 0 {
			// Confirmed funds sit in escrow; cancelling is a refund flow,
			// not a status flip.
			return domain.ErrNotCancellable
		}
		s.recordTransition(ctx, p.Status, domain.PayrollStatusCancelled)
		p.Status = domain.PayrollStatusCancelled
		now := s.clock.Now()
		p.CancelledAt = &now
		p.UpdatedAt = now
		if req.Reason != "" {
			if p.Metadata == nil {
				p.Metadata = datatypes.JSONMap{}
			}
			p.Metadata["cancel_reason"] = req.Reason
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, p.EmployerID, "payroll.cancelled", "payroll", p.ID.String(), map[string]any{
		"reason": req.Reason,
	})
	return p, nil
}

func (s *service) Archive(ctx context.Context, id snowflake.ID) (*domain.Payroll, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.repo.UpdateCAS(ctx, id, current.Version, func(_ *gorm.DB, p *domain.Payroll) error {
		if !p.Status.Terminal() {
			return fmt.Errorf("cannot archive payroll in status %s: %w", p.Status, domain.ErrNotTerminal)
		}
		if p.ArchivedAt != nil {
			return domain.ErrAlreadyArchived
		}
		now := s.clock.Now()
		p.ArchivedAt = &now
		p.UpdatedAt = now
		return nil
	})
}

func (s *service) ListStuck(ctx context.Context, gracePeriod time.Duration, limit int) ([]domain.Payroll, error) {
	cutoff := s.clock.Now().Add(-gracePeriod)
	return s.repo.ListStuck(ctx, cutoff, limit)
}

func (s *service) ResolveStuck(ctx context.Context, p *domain.Payroll, status escrowdomain.OperationStatus) (domain.ResolveOutcome, error) {
	outcome, _, err := s.applyOutcome(ctx, p, status)
	return outcome, err
}

func (s *service) RecordSweepMiss(ctx context.Context, p *domain.Payroll, maxAttempts int) (domain.ResolveOutcome, error) {
	exhausted := false
	_, err := s.repo.UpdateCAS(ctx, p.ID, p.Version, func(_ *gorm.DB, p *domain.Payroll) error {
		p.SweepAttempts++
		if p.SweepAttempts < maxAttempts {
			return nil
		}
		// The key stays on the row: the operation was never observed to
		// resolve, and an operator needs it to find the on-chain state.
		exhausted = true
		s.recordTransition(ctx, p.Status, domain.PayrollStatusFailed)
		p.Status = domain.PayrollStatusFailed
		p.NeedsAttention = true
		p.ErrorDetail = fmt.Sprintf("confirmation not observed after %d sweeps", p.SweepAttempts)
		p.UpdatedAt = s.clock.Now()
		return nil
	})
	if errors.Is(err, domain.ErrConcurrentModification) {
		return domain.ResolveOutcomeLostRace, nil
	}
	if err != nil {
		return "", err
	}
	if exhausted {
		s.metrics.RecordOperatorAttention(ctx, "sweep_exhausted")
		logger.WithContext(ctx, s.log).Error("settlement confirmation exhausted, operator attention required",
			zap.String("payroll_id", p.ID.String()),
			zap.String("idempotency_key", p.EscrowTxRef),
			zap.Int("attempts", p.SweepAttempts+1),
		)
		return domain.ResolveOutcomeExhausted, nil
	}
	return domain.ResolveOutcomePending, nil
}

func (s *service) recordTransition(ctx context.Context, from, to domain.PayrollStatus) {
	if from == to {
		return
	}
	s.metrics.RecordTransition(ctx, string(from), string(to))
}

func auditAction(op domain.Operation) string {
	if op == domain.OperationRelease {
		return "release"
	}
	return "funding"
}
