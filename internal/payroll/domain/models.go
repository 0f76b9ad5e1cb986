// Package domain contains persistence models and contracts for payroll
// settlement.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// PayrollStatus represents payroll lifecycle states.
type PayrollStatus string

const (
	PayrollStatusCreated           PayrollStatus = "CREATED"
	PayrollStatusFunding           PayrollStatus = "FUNDING"
	PayrollStatusFunded            PayrollStatus = "FUNDED"
	PayrollStatusReleasing         PayrollStatus = "RELEASING"
	PayrollStatusReleased          PayrollStatus = "RELEASED"
	PayrollStatusPartiallyReleased PayrollStatus = "PARTIALLY_RELEASED"
	PayrollStatusCancelled         PayrollStatus = "CANCELLED"
	PayrollStatusFailed            PayrollStatus = "FAILED"
)

// RecipientStatus represents per-payee disbursement states.
type RecipientStatus string

const (
	RecipientStatusPending RecipientStatus = "PENDING"
	RecipientStatusPaid    RecipientStatus = "PAID"
	RecipientStatusFailed  RecipientStatus = "FAILED"
)

// Operation identifies which two-store operation an idempotency key belongs to.
type Operation string

const (
	OperationFund    Operation = "FUND"
	OperationRelease Operation = "RELEASE"
)

// Payroll represents one payment run for a set of recipients.
//
// Version is the optimistic-concurrency counter: every state transition goes
// through a compare-and-swap on it, so no two transitions ever apply
// concurrently to the same payroll. EscrowTxRef holds the idempotency key of
// the in-flight escrow operation; it is generated once per logical operation,
// reused on every retry, and cleared only when the operation resolves.
type Payroll struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	EmployerID  snowflake.ID `json:"employer_id" gorm:"not null;index"`
	CompanyID   snowflake.ID `json:"company_id" gorm:"index"`
	Title       string       `json:"title" gorm:"type:text;not null"`
	Description string       `json:"description" gorm:"type:text"`

	TotalAmount  int64  `json:"total_amount" gorm:"not null"`
	FundedAmount int64  `json:"funded_amount" gorm:"not null;default:0"`
	Asset        string `json:"asset" gorm:"type:text;not null"`

	Status    PayrollStatus `json:"status" gorm:"type:text;not null;default:'CREATED'"`
	EscrowRef string        `json:"escrow_ref" gorm:"type:text"`

	// In-flight operation bookkeeping. PendingOp/PendingAmount are only set
	// while EscrowTxRef is set.
	EscrowTxRef   string    `json:"escrow_tx_ref" gorm:"type:text;index"`
	LedgerTxRef   string    `json:"ledger_tx_ref" gorm:"type:text"`
	PendingOp     Operation `json:"pending_op" gorm:"type:text"`
	PendingAmount int64     `json:"pending_amount" gorm:"not null;default:0"`

	TransitionAt   *time.Time `json:"transition_at" gorm:"index"`
	SweepAttempts  int        `json:"sweep_attempts" gorm:"not null;default:0"`
	NeedsAttention bool       `json:"needs_attention" gorm:"not null;default:false"`
	ErrorDetail    string     `json:"error_detail" gorm:"type:text"`

	Version int64 `json:"version" gorm:"not null;default:1"`

	Metadata   datatypes.JSONMap `json:"metadata" gorm:"type:jsonb"`
	Recipients []Recipient       `json:"recipients" gorm:"foreignKey:PayrollID"`

	CreatedAt   time.Time  `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"not null"`
	FundedAt    *time.Time `json:"funded_at"`
	ReleasedAt  *time.Time `json:"released_at"`
	CancelledAt *time.Time `json:"cancelled_at"`
	ArchivedAt  *time.Time `json:"archived_at"`
}

func (Payroll) TableName() string { return "payrolls" }

// Recipient represents one payee within a payroll.
type Recipient struct {
	ID                 snowflake.ID    `json:"id" gorm:"primaryKey"`
	PayrollID          snowflake.ID    `json:"payroll_id" gorm:"not null;index"`
	EmployeeID         snowflake.ID    `json:"employee_id" gorm:"not null;index"`
	DestinationAddress string          `json:"destination_address" gorm:"type:text;not null"`
	Amount             int64           `json:"amount" gorm:"not null"`
	Asset              string          `json:"asset" gorm:"type:text;not null"`
	Status             RecipientStatus `json:"status" gorm:"type:text;not null;default:'PENDING'"`
	DisbursementTxRef  string          `json:"disbursement_tx_ref" gorm:"type:text"`
	FailureReason      string          `json:"failure_reason" gorm:"type:text"`
	PaidAt             *time.Time      `json:"paid_at"`
	CreatedAt          time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt          time.Time       `json:"updated_at" gorm:"not null"`
}

func (Recipient) TableName() string { return "payroll_recipients" }

// Terminal reports whether the status admits no further transitions other
// than archival.
func (s PayrollStatus) Terminal() bool {
	switch s {
	case PayrollStatusReleased, PayrollStatusCancelled, PayrollStatusFailed:
		return true
	default:
		return false
	}
}

// Transitional reports whether the status marks an operation spanning both
// stores; payrolls stuck here are the sweeper's targets.
func (s PayrollStatus) Transitional() bool {
	return s == PayrollStatusFunding || s == PayrollStatusReleasing
}

// TransitionAllowed is the closed transition table. Re-entry into FUNDING
// (partial funding confirmed, more expected) is modeled as an allowed
// self-transition.
func TransitionAllowed(current, target PayrollStatus) bool {
	switch current {
	case PayrollStatusCreated:
		return target == PayrollStatusFunding || target == PayrollStatusCancelled
	case PayrollStatusFunding:
		switch target {
		case PayrollStatusFunding, PayrollStatusFunded, PayrollStatusCreated,
			PayrollStatusCancelled, PayrollStatusFailed:
			return true
		}
		return false
	case PayrollStatusFunded:
		return target == PayrollStatusReleasing
	case PayrollStatusReleasing:
		switch target {
		case PayrollStatusReleased, PayrollStatusPartiallyReleased, PayrollStatusFailed:
			return true
		}
		return false
	case PayrollStatusPartiallyReleased:
		return target == PayrollStatusReleasing
	default:
		return false
	}
}

// UnpaidRecipients returns recipients not yet paid, preserving order.
func (p *Payroll) UnpaidRecipients() []Recipient {
	out := make([]Recipient, 0, len(p.Recipients))
	for _, r := range p.Recipients {
		if r.Status != RecipientStatusPaid {
			out = append(out, r)
		}
	}
	return out
}

// OperationInFlight reports whether an idempotency key is recorded but not
// yet resolved.
func (p *Payroll) OperationInFlight() bool {
	return p.EscrowTxRef != ""
}
