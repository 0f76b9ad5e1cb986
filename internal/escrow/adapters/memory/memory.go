// Package memory is an in-process escrow client. It backs local development
// when no chain gateway is reachable, and tests script it to produce
// rejections, pending operations, and partial release outcomes.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/stellapay/stellapay/internal/config"
	"github.com/stellapay/stellapay/internal/escrow/domain"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return "memory"
}

func (f *Factory) NewClient(config.EscrowConfig) (domain.Client, error) {
	return NewClient(), nil
}

type operation struct {
	status      domain.OperationStatus
	holdPolls   int
	submissions int
}

// Client keeps escrows and operations in process memory. Submissions are
// idempotent on their key: resubmitting attaches to the recorded operation.
type Client struct {
	mu      sync.Mutex
	escrows map[string]bool
	ops     map[string]*operation

	nextSubmitErr error
	nextPollErr   error
	nextOutcome   *domain.OperationStatus
	nextHoldPolls int
	lastKey       string
}

func NewClient() *Client {
	return &Client{
		escrows: map[string]bool{},
		ops:     map[string]*operation{},
	}
}

func (c *Client) ProvisionEscrow(_ context.Context, req domain.ProvisionRequest) (*domain.Provision, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ref := "escrow-" + uuid.NewString()
	c.escrows[ref] = true
	return &domain.Provision{
		EscrowRef: ref,
		TxRef:     "tx-" + uuid.NewString(),
	}, nil
}

func (c *Client) SubmitFunding(_ context.Context, idempotencyKey, escrowRef string, amount int64, _ string) error {
	return c.submit(idempotencyKey, escrowRef, func() domain.OperationStatus {
		return domain.OperationStatus{
			State:  domain.OperationStateSucceeded,
			TxRef:  "tx-" + uuid.NewString(),
			Amount: amount,
		}
	})
}

func (c *Client) SubmitRelease(_ context.Context, idempotencyKey, escrowRef string, recipients []domain.RecipientPayout) error {
	return c.submit(idempotencyKey, escrowRef, func() domain.OperationStatus {
		outcomes := make([]domain.RecipientOutcome, 0, len(recipients))
		for _, r := range recipients {
			outcomes = append(outcomes, domain.RecipientOutcome{
				RecipientID: r.RecipientID,
				Paid:        true,
				TxRef:       "tx-" + uuid.NewString(),
			})
		}
		return domain.OperationStatus{
			State:      domain.OperationStateSucceeded,
			TxRef:      "tx-" + uuid.NewString(),
			Recipients: outcomes,
		}
	})
}

func (c *Client) submit(key, escrowRef string, defaultStatus func() domain.OperationStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if op, ok := c.ops[key]; ok {
		op.submissions++
		return nil
	}

	if err := c.nextSubmitErr; err != nil {
		c.nextSubmitErr = nil
		return err
	}
	if !c.escrows[escrowRef] {
		return &domain.RejectedError{Reason: fmt.Sprintf("unknown escrow %s", escrowRef)}
	}

	status := defaultStatus()
	if c.nextOutcome != nil {
		status = *c.nextOutcome
		c.nextOutcome = nil
	}
	c.ops[key] = &operation{
		status:      status,
		holdPolls:   c.nextHoldPolls,
		submissions: 1,
	}
	c.nextHoldPolls = 0
	c.lastKey = key
	return nil
}

func (c *Client) PollStatus(_ context.Context, idempotencyKey string) (domain.OperationStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.nextPollErr; err != nil {
		c.nextPollErr = nil
		return domain.OperationStatus{}, err
	}

	op, ok := c.ops[idempotencyKey]
	if !ok {
		return domain.OperationStatus{}, domain.ErrOperationNotFound
	}
	if op.holdPolls > 0 {
		op.holdPolls--
		return domain.OperationStatus{State: domain.OperationStatePending}, nil
	}
	return op.status, nil
}

// RegisterEscrow makes ref known without going through ProvisionEscrow, for
// rows seeded directly into the database.
func (c *Client) RegisterEscrow(ref string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.escrows[ref] = true
}

// FailNextSubmit makes the next new submission return err instead of
// recording an operation.
func (c *Client) FailNextSubmit(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSubmitErr = err
}

// FailNextPoll makes the next PollStatus return err, simulating a transient
// gateway outage.
func (c *Client) FailNextPoll(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextPollErr = err
}

// ScriptOutcome replaces the next recorded operation's final status.
func (c *Client) ScriptOutcome(status domain.OperationStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextOutcome = &status
}

// HoldPending makes the next recorded operation report PENDING for its
// first n polls.
func (c *Client) HoldPending(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextHoldPolls = n
}

// SetOutcome overwrites the recorded status for a known key.
func (c *Client) SetOutcome(idempotencyKey string, status domain.OperationStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if op, ok := c.ops[idempotencyKey]; ok {
		op.status = status
		return
	}
	c.ops[idempotencyKey] = &operation{status: status, submissions: 0}
}

// Submissions returns how many times the key was submitted.
func (c *Client) Submissions(idempotencyKey string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if op, ok := c.ops[idempotencyKey]; ok {
		return op.submissions
	}
	return 0
}

// LastKey returns the most recently recorded idempotency key.
func (c *Client) LastKey() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastKey
}
