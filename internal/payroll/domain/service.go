package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"

	escrowdomain "github.com/stellapay/stellapay/internal/escrow/domain"
	"github.com/stellapay/stellapay/pkg/db/pagination"
)

// ReleaseMode selects how much of a funded payroll to disburse.
type ReleaseMode string

const (
	ReleaseModeFull    ReleaseMode = "FULL"
	ReleaseModePartial ReleaseMode = "PARTIAL"
)

// CreateRecipient is one payee line in a creation request.
type CreateRecipient struct {
	EmployeeID         snowflake.ID `json:"employee_id"`
	DestinationAddress string       `json:"destination_address"`
	Amount             int64        `json:"amount"`
}

// CreateRequest opens a new payroll.
type CreateRequest struct {
	EmployerID  snowflake.ID      `json:"employer_id"`
	CompanyID   snowflake.ID      `json:"company_id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	TotalAmount int64             `json:"total_amount"`
	Asset       string            `json:"asset"`
	Recipients  []CreateRecipient `json:"recipients"`
	Metadata    map[string]any    `json:"metadata"`
}

// FundingRequest moves funds into the payroll's escrow.
type FundingRequest struct {
	PayrollID       snowflake.ID `json:"payroll_id"`
	ExpectedVersion int64        `json:"expected_version"`
	Amount          int64        `json:"amount"`
}

// ReleaseRequest disburses escrowed funds to recipients.
type ReleaseRequest struct {
	PayrollID       snowflake.ID   `json:"payroll_id"`
	ExpectedVersion int64          `json:"expected_version"`
	Mode            ReleaseMode    `json:"mode"`
	RecipientIDs    []snowflake.ID `json:"recipient_ids"`
}

// CancelRequest abandons a payroll before funds are committed.
type CancelRequest struct {
	PayrollID       snowflake.ID `json:"payroll_id"`
	ExpectedVersion int64        `json:"expected_version"`
	Reason          string       `json:"reason"`
}

// OperationOutcome says how far a settlement operation got within the
// request's deadline.
type OperationOutcome string

const (
	// OutcomeConfirmed means the operation resolved and the payroll row
	// reflects its final state.
	OutcomeConfirmed OperationOutcome = "CONFIRMED"
	// OutcomeProcessing means the submission may have taken but confirmation
	// did not arrive in time; the payroll stays transitional and the sweeper
	// owns it from here.
	OutcomeProcessing OperationOutcome = "PROCESSING"
	// OutcomeRolledBack means the chain definitively refused the operation
	// and the payroll was returned to a stable state.
	OutcomeRolledBack OperationOutcome = "ROLLED_BACK"
)

// OperationResult is returned by RequestFunding and RequestRelease.
type OperationResult struct {
	Outcome OperationOutcome `json:"outcome"`
	Payroll *Payroll         `json:"payroll"`
}

// ResolveOutcome classifies what a sweeper pass did with one stuck payroll.
type ResolveOutcome string

const (
	ResolveOutcomeResolved   ResolveOutcome = "resolved"
	ResolveOutcomeRolledBack ResolveOutcome = "rolled_back"
	ResolveOutcomePending    ResolveOutcome = "pending"
	ResolveOutcomeExhausted  ResolveOutcome = "exhausted"
	ResolveOutcomeLostRace   ResolveOutcome = "lost_race"
)

// ListRequest filters and paginates payroll listings.
type ListRequest struct {
	EmployerID      snowflake.ID
	Status          PayrollStatus
	IncludeArchived bool
	Pagination      pagination.Pagination
}

// ListResponse is one page of payrolls.
type ListResponse struct {
	Payrolls []Payroll            `json:"payrolls"`
	PageInfo *pagination.PageInfo `json:"page_info"`
}

// Service is the settlement coordinator. It owns every payroll state
// transition and is the only writer besides the sweeper, which itself goes
// through ResolveStuck and RecordSweepMiss.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Payroll, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Payroll, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	ListRecipients(ctx context.Context, payrollID snowflake.ID) ([]Recipient, error)

	RequestFunding(ctx context.Context, req FundingRequest) (*OperationResult, error)
	RequestRelease(ctx context.Context, req ReleaseRequest) (*OperationResult, error)
	Cancel(ctx context.Context, req CancelRequest) (*Payroll, error)
	Archive(ctx context.Context, id snowflake.ID) (*Payroll, error)

	// ListStuck returns payrolls transitional since before now-gracePeriod.
	ListStuck(ctx context.Context, gracePeriod time.Duration, limit int) ([]Payroll, error)
	// ResolveStuck applies an observed escrow outcome to a stuck payroll,
	// finishing or rolling back its pending operation.
	ResolveStuck(ctx context.Context, p *Payroll, status escrowdomain.OperationStatus) (ResolveOutcome, error)
	// RecordSweepMiss counts an inconclusive poll against the payroll; once
	// maxAttempts is reached the payroll is failed and flagged for an
	// operator.
	RecordSweepMiss(ctx context.Context, p *Payroll, maxAttempts int) (ResolveOutcome, error)
}
