package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"

	"github.com/stellapay/stellapay/internal/audit"
	"github.com/stellapay/stellapay/internal/clock"
	"github.com/stellapay/stellapay/internal/config"
	"github.com/stellapay/stellapay/internal/escrow/adapters/memory"
	escrowdomain "github.com/stellapay/stellapay/internal/escrow/domain"
	"github.com/stellapay/stellapay/internal/payroll/domain"
	"github.com/stellapay/stellapay/internal/payroll/repository"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	// SQLite support hack: remove FOR UPDATE clauses
	stripLocking := func(d *gorm.DB) {
		sql := d.Statement.SQL.String()
		if strings.Contains(sql, "FOR UPDATE") {
			newSQL := strings.ReplaceAll(sql, "FOR UPDATE SKIP LOCKED", "")
			newSQL = strings.ReplaceAll(newSQL, "FOR UPDATE", "")
			d.Statement.SQL.Reset()
			d.Statement.SQL.WriteString(newSQL)
		}
	}
	db.Callback().Query().Before("gorm:query").Register("sqlite_skip_locked", stripLocking)
	db.Callback().Row().Before("gorm:row").Register("sqlite_skip_locked_row", stripLocking)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.Exec(`
		CREATE TABLE payrolls (
			id INTEGER PRIMARY KEY,
			employer_id INTEGER,
			company_id INTEGER,
			title TEXT,
			description TEXT,
			total_amount INTEGER,
			funded_amount INTEGER DEFAULT 0,
			asset TEXT,
			status TEXT DEFAULT 'CREATED',
			escrow_ref TEXT,
			escrow_tx_ref TEXT,
			ledger_tx_ref TEXT,
			pending_op TEXT,
			pending_amount INTEGER DEFAULT 0,
			transition_at DATETIME,
			sweep_attempts INTEGER DEFAULT 0,
			needs_attention BOOLEAN DEFAULT FALSE,
			error_detail TEXT,
			version INTEGER DEFAULT 1,
			metadata TEXT,
			created_at DATETIME,
			updated_at DATETIME,
			funded_at DATETIME,
			released_at DATETIME,
			cancelled_at DATETIME,
			archived_at DATETIME
		)
	`).Error)
	require.NoError(t, db.Exec(`
		CREATE TABLE payroll_recipients (
			id INTEGER PRIMARY KEY,
			payroll_id INTEGER,
			employee_id INTEGER,
			destination_address TEXT,
			amount INTEGER,
			asset TEXT,
			status TEXT DEFAULT 'PENDING',
			disbursement_tx_ref TEXT,
			failure_reason TEXT,
			paid_at DATETIME,
			created_at DATETIME,
			updated_at DATETIME
		)
	`).Error)
	require.NoError(t, db.Exec(`
		CREATE TABLE audit_logs (
			id INTEGER PRIMARY KEY,
			employer_id INTEGER,
			actor_type TEXT,
			actor_id TEXT,
			action TEXT,
			target_type TEXT,
			target_id TEXT,
			metadata TEXT,
			created_at INTEGER
		)
	`).Error)

	return db
}

type harness struct {
	svc    domain.Service
	repo   domain.Repository
	escrow *memory.Client
	clk    *clock.FakeClock
	db     *gorm.DB
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	repo := repository.NewRepository(db)
	escrowClient := memory.NewClient()
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	svc := NewService(Params{
		Repo:    repo,
		Escrow:  escrowClient,
		Node:    node,
		Clock:   clk,
		Audit:   audit.NewService(db, node, log),
		Metrics: nil,
		Logger:  log,
		Escrows: config.EscrowConfig{
			Provider:       "memory",
			SubmitTimeout:  time.Second,
			ConfirmTimeout: 200 * time.Millisecond,
		},
	})
	return &harness{svc: svc, repo: repo, escrow: escrowClient, clk: clk, db: db}
}

func (h *harness) createPayroll(t *testing.T, total int64, amounts ...int64) *domain.Payroll {
	t.Helper()

	req := domain.CreateRequest{
		EmployerID:  42,
		Title:       "March payroll",
		TotalAmount: total,
	}
	for i, amount := range amounts {
		req.Recipients = append(req.Recipients, domain.CreateRecipient{
			EmployeeID:         snowflake.ID(100 + i),
			DestinationAddress: fmt.Sprintf("GWALLET%d", i),
			Amount:             amount,
		})
	}
	p, err := h.svc.Create(context.Background(), req)
	require.NoError(t, err)
	return p
}

func TestCreate_RejectsBadRequests(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Create(ctx, domain.CreateRequest{EmployerID: 1, TotalAmount: -5})
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = h.svc.Create(ctx, domain.CreateRequest{EmployerID: 1, TotalAmount: 100})
	require.ErrorIs(t, err, domain.ErrNoRecipients)

	_, err = h.svc.Create(ctx, domain.CreateRequest{
		EmployerID:  1,
		TotalAmount: 100,
		Recipients: []domain.CreateRecipient{
			{EmployeeID: 2, DestinationAddress: "GA", Amount: 60},
			{EmployeeID: 3, DestinationAddress: "GB", Amount: 60},
		},
	})
	require.ErrorIs(t, err, domain.ErrRecipientSumMismatch)

	var count int64
	require.NoError(t, h.db.Model(&domain.Payroll{}).Count(&count).Error)
	require.Zero(t, count, "rejected requests must not persist anything")
}

func TestCreate_AssignsEscrowAndVersionOne(t *testing.T) {
	h := newHarness(t)
	p := h.createPayroll(t, 300, 100, 200)

	require.Equal(t, domain.PayrollStatusCreated, p.Status)
	require.Equal(t, int64(1), p.Version)
	require.NotEmpty(t, p.EscrowRef)
	require.Len(t, p.Recipients, 2)
}

func TestCreate_InsertFailureLogsOrphanedEscrow(t *testing.T) {
	db := setupTestDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	core, logs := observer.New(zap.ErrorLevel)

	svc := NewService(Params{
		Repo:   repository.NewRepository(db),
		Escrow: memory.NewClient(),
		Node:   node,
		Clock:  clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		Audit:  audit.NewService(db, node, zap.NewNop()),
		Logger: zap.New(core),
		Escrows: config.EscrowConfig{
			Provider:       "memory",
			SubmitTimeout:  time.Second,
			ConfirmTimeout: 200 * time.Millisecond,
		},
	})

	// Force the insert to fail after the escrow has been provisioned.
	require.NoError(t, db.Exec("DROP TABLE payrolls").Error)

	_, err = svc.Create(context.Background(), domain.CreateRequest{
		EmployerID:  42,
		Title:       "March payroll",
		TotalAmount: 100,
		Recipients: []domain.CreateRecipient{
			{EmployeeID: 100, DestinationAddress: "GWALLET0", Amount: 100},
		},
	})
	require.Error(t, err)

	entries := logs.FilterMessageSnippet("escrow orphaned").All()
	require.Len(t, entries, 1)
	require.NotEmpty(t, entries[0].ContextMap()["escrow_ref"])
}

func TestFundingAndRelease_HappyPath(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.createPayroll(t, 300, 100, 200)

	res, err := h.svc.RequestFunding(ctx, domain.FundingRequest{
		PayrollID:       p.ID,
		ExpectedVersion: p.Version,
		Amount:          300,
	})
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeConfirmed, res.Outcome)
	require.Equal(t, domain.PayrollStatusFunded, res.Payroll.Status)
	require.Equal(t, int64(300), res.Payroll.FundedAmount)
	require.Empty(t, res.Payroll.EscrowTxRef, "idempotency key must be cleared on resolve")
	require.NotNil(t, res.Payroll.FundedAt)
	require.Equal(t, int64(3), res.Payroll.Version)

	rel, err := h.svc.RequestRelease(ctx, domain.ReleaseRequest{
		PayrollID:       p.ID,
		ExpectedVersion: res.Payroll.Version,
	})
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeConfirmed, rel.Outcome)
	require.Equal(t, domain.PayrollStatusReleased, rel.Payroll.Status)
	require.Empty(t, rel.Payroll.EscrowTxRef)
	for _, r := range rel.Payroll.Recipients {
		require.Equal(t, domain.RecipientStatusPaid, r.Status)
		require.NotEmpty(t, r.DisbursementTxRef)
	}
}

func TestFunding_PartialThenComplete(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.createPayroll(t, 300, 100, 200)

	res, err := h.svc.RequestFunding(ctx, domain.FundingRequest{
		PayrollID: p.ID, ExpectedVersion: 1, Amount: 100,
	})
	require.NoError(t, err)
	require.Equal(t, domain.PayrollStatusFunding, res.Payroll.Status)
	require.Equal(t, int64(100), res.Payroll.FundedAmount)
	require.Empty(t, res.Payroll.EscrowTxRef)
	require.Nil(t, res.Payroll.FundedAt)

	res, err = h.svc.RequestFunding(ctx, domain.FundingRequest{
		PayrollID: p.ID, ExpectedVersion: res.Payroll.Version, Amount: 200,
	})
	require.NoError(t, err)
	require.Equal(t, domain.PayrollStatusFunded, res.Payroll.Status)
	require.Equal(t, int64(300), res.Payroll.FundedAmount)
}

func TestFunding_OvershootRejectedSynchronously(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.createPayroll(t, 300, 100, 200)

	_, err := h.svc.RequestFunding(ctx, domain.FundingRequest{
		PayrollID: p.ID, ExpectedVersion: 1, Amount: 400,
	})
	require.ErrorIs(t, err, domain.ErrFundingExceedsTotal)

	got, err := h.repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), got.Version, "rejection must not bump the version")
	require.Equal(t, domain.PayrollStatusCreated, got.Status)
	require.Empty(t, h.escrow.LastKey(), "escrow must not be touched")
}

func TestFunding_NegativeAmountRejected(t *testing.T) {
	h := newHarness(t)
	p := h.createPayroll(t, 300, 100, 200)

	_, err := h.svc.RequestFunding(context.Background(), domain.FundingRequest{
		PayrollID: p.ID, ExpectedVersion: 1, Amount: -100,
	})
	require.ErrorIs(t, err, domain.ErrInvalidAmount)
	require.Empty(t, h.escrow.LastKey())
}

func TestFunding_StaleVersionLoses(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.createPayroll(t, 300, 100, 200)

	_, err := h.svc.RequestFunding(ctx, domain.FundingRequest{
		PayrollID: p.ID, ExpectedVersion: 1, Amount: 300,
	})
	require.NoError(t, err)

	_, err = h.svc.RequestFunding(ctx, domain.FundingRequest{
		PayrollID: p.ID, ExpectedVersion: 1, Amount: 300,
	})
	require.ErrorIs(t, err, domain.ErrConcurrentModification)
}

func TestFunding_RejectedByEscrowRollsBack(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.createPayroll(t, 300, 100, 200)

	h.escrow.FailNextSubmit(&escrowdomain.RejectedError{Reason: "trustline missing"})

	res, err := h.svc.RequestFunding(ctx, domain.FundingRequest{
		PayrollID: p.ID, ExpectedVersion: 1, Amount: 300,
	})
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeRolledBack, res.Outcome)
	require.Equal(t, domain.PayrollStatusCreated, res.Payroll.Status)
	require.Empty(t, res.Payroll.EscrowTxRef)
	require.Contains(t, res.Payroll.ErrorDetail, "trustline missing")
}

func TestFunding_TimeoutLeavesRecoverableState(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.createPayroll(t, 300, 100, 200)

	// The operation stays pending past the confirmation window.
	h.escrow.HoldPending(1000)

	res, err := h.svc.RequestFunding(ctx, domain.FundingRequest{
		PayrollID: p.ID, ExpectedVersion: 1, Amount: 300,
	})
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeProcessing, res.Outcome)

	got, err := h.repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, domain.PayrollStatusFunding, got.Status)
	require.NotEmpty(t, got.EscrowTxRef, "key must survive an ambiguous outcome")
	require.Equal(t, domain.OperationFund, got.PendingOp)
	require.NotNil(t, got.TransitionAt)

	// Confirmation shows up later; the stuck payroll resolves exactly as the
	// synchronous path would have.
	h.escrow.SetOutcome(got.EscrowTxRef, escrowdomain.OperationStatus{
		State:  escrowdomain.OperationStateSucceeded,
		TxRef:  "tx-late",
		Amount: 300,
	})
	outcome, err := h.svc.ResolveStuck(ctx, got, escrowdomain.OperationStatus{
		State:  escrowdomain.OperationStateSucceeded,
		TxRef:  "tx-late",
		Amount: 300,
	})
	require.NoError(t, err)
	require.Equal(t, domain.ResolveOutcomeResolved, outcome)

	got, err = h.repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, domain.PayrollStatusFunded, got.Status)
	require.Equal(t, int64(300), got.FundedAmount)
	require.Empty(t, got.EscrowTxRef)
}

func TestFunding_RetryReusesIdempotencyKey(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.createPayroll(t, 300, 100, 200)

	h.escrow.HoldPending(1000)
	_, err := h.svc.RequestFunding(ctx, domain.FundingRequest{
		PayrollID: p.ID, ExpectedVersion: 1, Amount: 300,
	})
	require.NoError(t, err)

	got, err := h.repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	key := got.EscrowTxRef
	require.NotEmpty(t, key)
	require.NotNil(t, got.TransitionAt)
	firstIntent := *got.TransitionAt

	// Retry of the same logical operation resubmits under the same key and
	// attaches to the original escrow operation.
	h.clk.Advance(time.Minute)
	_, err = h.svc.RequestFunding(ctx, domain.FundingRequest{
		PayrollID: p.ID, ExpectedVersion: got.Version, Amount: 300,
	})
	require.NoError(t, err)

	got, err = h.repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, key, got.EscrowTxRef)
	require.Equal(t, 2, h.escrow.Submissions(key))

	// The intent keeps its original timestamp, so a retrying client cannot
	// hold the row outside the sweeper's window.
	require.NotNil(t, got.TransitionAt)
	require.True(t, got.TransitionAt.Equal(firstIntent))
}

func TestFunding_DifferentOpWhileInFlightRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.createPayroll(t, 300, 100, 200)

	h.escrow.HoldPending(1000)
	_, err := h.svc.RequestFunding(ctx, domain.FundingRequest{
		PayrollID: p.ID, ExpectedVersion: 1, Amount: 300,
	})
	require.NoError(t, err)

	got, err := h.repo.FindByID(ctx, p.ID)
	require.NoError(t, err)

	_, err = h.svc.RequestFunding(ctx, domain.FundingRequest{
		PayrollID: p.ID, ExpectedVersion: got.Version, Amount: 150,
	})
	require.ErrorIs(t, err, domain.ErrOperationInFlight)
}

func TestRelease_RequiresFullFunding(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.createPayroll(t, 300, 100, 200)

	_, err := h.svc.RequestRelease(ctx, domain.ReleaseRequest{
		PayrollID: p.ID, ExpectedVersion: 1,
	})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestRelease_PartialThenRemaining(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.createPayroll(t, 300, 100, 200)

	res, err := h.svc.RequestFunding(ctx, domain.FundingRequest{
		PayrollID: p.ID, ExpectedVersion: 1, Amount: 300,
	})
	require.NoError(t, err)

	first := res.Payroll.Recipients[0]
	rel, err := h.svc.RequestRelease(ctx, domain.ReleaseRequest{
		PayrollID:       p.ID,
		ExpectedVersion: res.Payroll.Version,
		Mode:            domain.ReleaseModePartial,
		RecipientIDs:    []snowflake.ID{first.ID},
	})
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeConfirmed, rel.Outcome)
	require.Equal(t, domain.PayrollStatusPartiallyReleased, rel.Payroll.Status)

	var paid, pending int
	for _, r := range rel.Payroll.Recipients {
		switch r.Status {
		case domain.RecipientStatusPaid:
			paid++
		case domain.RecipientStatusPending:
			pending++
		}
	}
	require.Equal(t, 1, paid)
	require.Equal(t, 1, pending)

	rel, err = h.svc.RequestRelease(ctx, domain.ReleaseRequest{
		PayrollID:       p.ID,
		ExpectedVersion: rel.Payroll.Version,
		Mode:            domain.ReleaseModePartial,
	})
	require.NoError(t, err)
	require.Equal(t, domain.PayrollStatusReleased, rel.Payroll.Status)
}

func TestCancel_Rules(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	p := h.createPayroll(t, 300, 100, 200)
	cancelled, err := h.svc.Cancel(ctx, domain.CancelRequest{
		PayrollID: p.ID, ExpectedVersion: 1, Reason: "duplicate run",
	})
	require.NoError(t, err)
	require.Equal(t, domain.PayrollStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)

	// Once funds are confirmed in escrow, a cancel is no longer a status flip.
	p2 := h.createPayroll(t, 300, 100, 200)
	res, err := h.svc.RequestFunding(ctx, domain.FundingRequest{
		PayrollID: p2.ID, ExpectedVersion: 1, Amount: 100,
	})
	require.NoError(t, err)

	_, err = h.svc.Cancel(ctx, domain.CancelRequest{
		PayrollID: p2.ID, ExpectedVersion: res.Payroll.Version,
	})
	require.ErrorIs(t, err, domain.ErrNotCancellable)
}

func TestArchive_OnlyTerminal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.createPayroll(t, 300, 100, 200)

	_, err := h.svc.Archive(ctx, p.ID)
	require.ErrorIs(t, err, domain.ErrNotTerminal)

	cancelled, err := h.svc.Cancel(ctx, domain.CancelRequest{PayrollID: p.ID, ExpectedVersion: 1})
	require.NoError(t, err)

	archived, err := h.svc.Archive(ctx, cancelled.ID)
	require.NoError(t, err)
	require.NotNil(t, archived.ArchivedAt)

	_, err = h.svc.Archive(ctx, cancelled.ID)
	require.ErrorIs(t, err, domain.ErrAlreadyArchived)
}

func TestRecordSweepMiss_ExhaustionFailsLoudly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.createPayroll(t, 300, 100, 200)

	h.escrow.HoldPending(1000)
	_, err := h.svc.RequestFunding(ctx, domain.FundingRequest{
		PayrollID: p.ID, ExpectedVersion: 1, Amount: 300,
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		got, err := h.repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		outcome, err := h.svc.RecordSweepMiss(ctx, got, 3)
		require.NoError(t, err)
		if i < 2 {
			require.Equal(t, domain.ResolveOutcomePending, outcome)
		} else {
			require.Equal(t, domain.ResolveOutcomeExhausted, outcome)
		}
	}

	got, err := h.repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, domain.PayrollStatusFailed, got.Status)
	require.True(t, got.NeedsAttention)
	require.NotEmpty(t, got.EscrowTxRef, "key is kept for the operator")
}

func TestResolveStuck_LostRaceIsQuiet(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.createPayroll(t, 300, 100, 200)

	h.escrow.HoldPending(1000)
	_, err := h.svc.RequestFunding(ctx, domain.FundingRequest{
		PayrollID: p.ID, ExpectedVersion: 1, Amount: 300,
	})
	require.NoError(t, err)

	stale, err := h.repo.FindByID(ctx, p.ID)
	require.NoError(t, err)

	// Another writer resolves first.
	_, err = h.svc.ResolveStuck(ctx, stale, escrowdomain.OperationStatus{
		State: escrowdomain.OperationStateSucceeded, Amount: 300,
	})
	require.NoError(t, err)

	outcome, err := h.svc.ResolveStuck(ctx, stale, escrowdomain.OperationStatus{
		State: escrowdomain.OperationStateSucceeded, Amount: 300,
	})
	require.NoError(t, err)
	require.Equal(t, domain.ResolveOutcomeLostRace, outcome)

	got, err := h.repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, int64(300), got.FundedAmount, "the funding must apply exactly once")
}

func TestAuditTrailWritten(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.createPayroll(t, 300, 100, 200)

	_, err := h.svc.RequestFunding(ctx, domain.FundingRequest{
		PayrollID: p.ID, ExpectedVersion: 1, Amount: 300,
	})
	require.NoError(t, err)

	var actions []string
	require.NoError(t, h.db.Model(&audit.Entry{}).
		Where("target_id = ?", p.ID.String()).
		Order("created_at ASC").
		Pluck("action", &actions).Error)
	require.Contains(t, actions, "payroll.created")
	require.Contains(t, actions, "payroll.funding.confirmed")
}

func TestInvariants_HoldAcrossLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.createPayroll(t, 300, 100, 200)

	check := func() {
		got, err := h.repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		require.LessOrEqual(t, got.FundedAmount, got.TotalAmount)
		if got.Status.Transitional() {
			require.NotEmpty(t, got.EscrowTxRef)
		}
		if got.Status == domain.PayrollStatusCreated {
			require.Zero(t, got.FundedAmount)
		}
	}

	check()
	_, err := h.svc.RequestFunding(ctx, domain.FundingRequest{PayrollID: p.ID, ExpectedVersion: 1, Amount: 100})
	require.NoError(t, err)
	check()
	got, _ := h.repo.FindByID(ctx, p.ID)
	_, err = h.svc.RequestFunding(ctx, domain.FundingRequest{PayrollID: p.ID, ExpectedVersion: got.Version, Amount: 200})
	require.NoError(t, err)
	check()
}

func TestRelease_RejectedFailsPayroll(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.createPayroll(t, 300, 100, 200)

	res, err := h.svc.RequestFunding(ctx, domain.FundingRequest{
		PayrollID: p.ID, ExpectedVersion: 1, Amount: 300,
	})
	require.NoError(t, err)

	h.escrow.FailNextSubmit(&escrowdomain.RejectedError{Reason: "contract paused"})
	rel, err := h.svc.RequestRelease(ctx, domain.ReleaseRequest{
		PayrollID: p.ID, ExpectedVersion: res.Payroll.Version,
	})
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeRolledBack, rel.Outcome)
	require.Equal(t, domain.PayrollStatusFailed, rel.Payroll.Status)
	require.True(t, rel.Payroll.NeedsAttention)
}

func TestErrorsAreClassified(t *testing.T) {
	require.True(t, domain.IsInvariantViolation(domain.ErrInvalidAmount))
	require.True(t, domain.IsInvariantViolation(fmt.Errorf("wrapped: %w", domain.ErrFundingExceedsTotal)))
	require.False(t, domain.IsInvariantViolation(domain.ErrConcurrentModification))
	require.False(t, domain.IsInvariantViolation(errors.New("boom")))
}
