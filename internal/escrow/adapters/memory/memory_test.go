package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stellapay/stellapay/internal/escrow/domain"
)

func TestSubmitFunding_IdempotentOnKey(t *testing.T) {
	c := NewClient()
	ctx := context.Background()

	prov, err := c.ProvisionEscrow(ctx, domain.ProvisionRequest{TotalAmount: 100, Asset: "XLM"})
	require.NoError(t, err)

	require.NoError(t, c.SubmitFunding(ctx, "key-1", prov.EscrowRef, 100, "XLM"))
	first, err := c.PollStatus(ctx, "key-1")
	require.NoError(t, err)
	require.Equal(t, domain.OperationStateSucceeded, first.State)

	// Resubmission under the same key observes the original operation.
	require.NoError(t, c.SubmitFunding(ctx, "key-1", prov.EscrowRef, 100, "XLM"))
	second, err := c.PollStatus(ctx, "key-1")
	require.NoError(t, err)
	require.Equal(t, first.TxRef, second.TxRef)
	require.Equal(t, 2, c.Submissions("key-1"))
}

func TestSubmit_UnknownEscrowRejected(t *testing.T) {
	c := NewClient()
	err := c.SubmitFunding(context.Background(), "key-2", "escrow-missing", 50, "XLM")
	require.True(t, domain.IsRejected(err))
}

func TestPollStatus_UnknownKey(t *testing.T) {
	c := NewClient()
	_, err := c.PollStatus(context.Background(), "never-submitted")
	require.ErrorIs(t, err, domain.ErrOperationNotFound)
}

func TestHoldPending_DelaysResolution(t *testing.T) {
	c := NewClient()
	ctx := context.Background()

	prov, err := c.ProvisionEscrow(ctx, domain.ProvisionRequest{TotalAmount: 100, Asset: "XLM"})
	require.NoError(t, err)

	c.HoldPending(2)
	require.NoError(t, c.SubmitFunding(ctx, "key-3", prov.EscrowRef, 100, "XLM"))

	for i := 0; i < 2; i++ {
		st, err := c.PollStatus(ctx, "key-3")
		require.NoError(t, err)
		require.Equal(t, domain.OperationStatePending, st.State)
	}
	st, err := c.PollStatus(ctx, "key-3")
	require.NoError(t, err)
	require.Equal(t, domain.OperationStateSucceeded, st.State)
}

func TestFailNextPoll_IsOneShot(t *testing.T) {
	c := NewClient()
	ctx := context.Background()

	prov, err := c.ProvisionEscrow(ctx, domain.ProvisionRequest{TotalAmount: 100, Asset: "XLM"})
	require.NoError(t, err)
	require.NoError(t, c.SubmitFunding(ctx, "key-4", prov.EscrowRef, 100, "XLM"))

	c.FailNextPoll(errors.New("gateway unavailable"))
	_, err = c.PollStatus(ctx, "key-4")
	require.ErrorContains(t, err, "gateway unavailable")

	st, err := c.PollStatus(ctx, "key-4")
	require.NoError(t, err)
	require.Equal(t, domain.OperationStateSucceeded, st.State)
}
