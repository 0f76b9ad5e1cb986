package soroban

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stellapay/stellapay/internal/config"
	"github.com/stellapay/stellapay/internal/escrow/domain"
)

func newTestClient(t *testing.T, handler http.Handler) domain.Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewFactory().NewClient(config.EscrowConfig{
		RPCEndpoint: srv.URL,
		NetworkPass: "Test SDF Network ; September 2015",
	})
	require.NoError(t, err)
	return client
}

func TestSubmitFunding_SendsIdempotencyKey(t *testing.T) {
	var gotKey, gotPass string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotency-Key")
		gotPass = r.Header.Get("X-Network-Passphrase")
		w.WriteHeader(http.StatusAccepted)
	}))

	err := client.SubmitFunding(context.Background(), "key-9", "escrow-1", 500, "XLM")
	require.NoError(t, err)
	require.Equal(t, "key-9", gotKey)
	require.Equal(t, "Test SDF Network ; September 2015", gotPass)
}

func TestSubmitFunding_RejectionIsTerminal(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"code":    "insufficient_balance",
			"message": "source account below reserve",
		})
	}))

	err := client.SubmitFunding(context.Background(), "key-10", "escrow-1", 500, "XLM")
	require.True(t, domain.IsRejected(err))
	require.Contains(t, err.Error(), "source account below reserve")
}

func TestSubmitFunding_ServerErrorIsTransient(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	err := client.SubmitFunding(context.Background(), "key-11", "escrow-1", 500, "XLM")
	require.Error(t, err)
	require.False(t, domain.IsRejected(err))
}

func TestPollStatus_ParsesOutcome(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/operations/key-12", r.URL.Path)
		_ = json.NewEncoder(w).Encode(domain.OperationStatus{
			State:  domain.OperationStateSucceeded,
			TxRef:  "deadbeef",
			Amount: 500,
		})
	}))

	status, err := client.PollStatus(context.Background(), "key-12")
	require.NoError(t, err)
	require.Equal(t, domain.OperationStateSucceeded, status.State)
	require.Equal(t, "deadbeef", status.TxRef)
	require.Equal(t, int64(500), status.Amount)
}

func TestPollStatus_NotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.PollStatus(context.Background(), "key-13")
	require.ErrorIs(t, err, domain.ErrOperationNotFound)
}

func TestNewClient_RequiresEndpoint(t *testing.T) {
	_, err := NewFactory().NewClient(config.EscrowConfig{})
	require.ErrorIs(t, err, domain.ErrInvalidConfig)
}
