// Package domain defines the contract against the on-chain escrow service.
// The coordinator treats the chain as a black box behind this interface:
// submissions are keyed by an idempotency key, and PollStatus is the only
// source of truth for an operation's outcome.
package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
)

// OperationState is the observable state of a submitted escrow operation.
type OperationState string

const (
	OperationStatePending   OperationState = "PENDING"
	OperationStateSucceeded OperationState = "SUCCEEDED"
	OperationStateFailed    OperationState = "FAILED"
	OperationStateUnknown   OperationState = "UNKNOWN"
)

// RecipientPayout is one payee leg of a release submission.
type RecipientPayout struct {
	RecipientID snowflake.ID `json:"recipient_id"`
	Destination string       `json:"destination"`
	Amount      int64        `json:"amount"`
	Asset       string       `json:"asset"`
}

// RecipientOutcome is the per-payee result of a resolved release.
type RecipientOutcome struct {
	RecipientID snowflake.ID `json:"recipient_id"`
	Paid        bool         `json:"paid"`
	TxRef       string       `json:"tx_ref"`
	Reason      string       `json:"reason"`
}

// OperationStatus describes a submitted operation as last observed.
type OperationStatus struct {
	State      OperationState     `json:"state"`
	TxRef      string             `json:"tx_ref"`
	Amount     int64              `json:"amount"`
	Recipients []RecipientOutcome `json:"recipients"`
	Reason     string             `json:"reason"`
}

// ProvisionRequest asks the escrow service to allocate a contract instance
// for a payroll before any funds move.
type ProvisionRequest struct {
	EmployerID  snowflake.ID
	PayrollID   snowflake.ID
	TotalAmount int64
	Asset       string
	Recipients  []RecipientPayout
}

// Provision is the allocated escrow instance.
type Provision struct {
	EscrowRef string `json:"escrow_ref"`
	TxRef     string `json:"tx_ref"`
}

// Client submits escrow operations and reports their outcomes.
//
// SubmitFunding and SubmitRelease accept duplicate submissions under the
// same idempotency key: the second call observes the first's operation
// rather than creating a new one. A *RejectedError return means the chain
// definitively refused the operation and it will never land; any other
// error is transient and says nothing about whether the submission took.
type Client interface {
	ProvisionEscrow(ctx context.Context, req ProvisionRequest) (*Provision, error)
	SubmitFunding(ctx context.Context, idempotencyKey, escrowRef string, amount int64, asset string) error
	SubmitRelease(ctx context.Context, idempotencyKey, escrowRef string, recipients []RecipientPayout) error
	PollStatus(ctx context.Context, idempotencyKey string) (OperationStatus, error)
}

// ErrOperationNotFound is returned by PollStatus when the escrow service has
// no record of the key. The caller must treat this as unknown, not failed.
var ErrOperationNotFound = errors.New("escrow_operation_not_found")

// RejectedError is a terminal refusal from the escrow service.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("escrow rejected operation: %s", e.Reason)
}

// IsRejected reports whether err is a terminal escrow rejection.
func IsRejected(err error) bool {
	var re *RejectedError
	return errors.As(err, &re)
}
