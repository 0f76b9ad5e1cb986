// Package soroban talks to the Soroban escrow gateway: a thin HTTP service
// in front of the payroll escrow contract. Submissions carry an
// Idempotency-Key header so replays attach to the original operation.
package soroban

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/stellapay/stellapay/internal/config"
	"github.com/stellapay/stellapay/internal/escrow/domain"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return "soroban"
}

func (f *Factory) NewClient(cfg config.EscrowConfig) (domain.Client, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.RPCEndpoint), "/")
	if endpoint == "" {
		return nil, domain.ErrInvalidConfig
	}
	return &Client{
		endpoint:    endpoint,
		networkPass: cfg.NetworkPass,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

type Client struct {
	endpoint    string
	networkPass string
	http        *http.Client
}

type provisionRequest struct {
	EmployerID  string                   `json:"employer_id"`
	PayrollID   string                   `json:"payroll_id"`
	TotalAmount int64                    `json:"total_amount"`
	Asset       string                   `json:"asset"`
	Recipients  []domain.RecipientPayout `json:"recipients"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *Client) ProvisionEscrow(ctx context.Context, req domain.ProvisionRequest) (*domain.Provision, error) {
	body := provisionRequest{
		EmployerID:  req.EmployerID.String(),
		PayrollID:   req.PayrollID.String(),
		TotalAmount: req.TotalAmount,
		Asset:       req.Asset,
		Recipients:  req.Recipients,
	}
	var out domain.Provision
	if err := c.do(ctx, http.MethodPost, "/escrows", "", body, &out); err != nil {
		return nil, err
	}
	if out.EscrowRef == "" {
		return nil, fmt.Errorf("gateway returned empty escrow_ref")
	}
	return &out, nil
}

func (c *Client) SubmitFunding(ctx context.Context, idempotencyKey, escrowRef string, amount int64, asset string) error {
	path := fmt.Sprintf("/escrows/%s/fund", escrowRef)
	body := map[string]any{"amount": amount, "asset": asset}
	return c.do(ctx, http.MethodPost, path, idempotencyKey, body, nil)
}

func (c *Client) SubmitRelease(ctx context.Context, idempotencyKey, escrowRef string, recipients []domain.RecipientPayout) error {
	path := fmt.Sprintf("/escrows/%s/release", escrowRef)
	body := map[string]any{"recipients": recipients}
	return c.do(ctx, http.MethodPost, path, idempotencyKey, body, nil)
}

func (c *Client) PollStatus(ctx context.Context, idempotencyKey string) (domain.OperationStatus, error) {
	var out domain.OperationStatus
	err := c.do(ctx, http.MethodGet, "/operations/"+idempotencyKey, "", nil, &out)
	if err != nil {
		return domain.OperationStatus{}, err
	}
	if out.State == "" {
		out.State = domain.OperationStateUnknown
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path, idempotencyKey string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	if c.networkPass != "" {
		req.Header.Set("X-Network-Passphrase", c.networkPass)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil || len(payload) == 0 {
			return nil
		}
		return json.Unmarshal(payload, out)

	case resp.StatusCode == http.StatusNotFound && method == http.MethodGet:
		return domain.ErrOperationNotFound

	case resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusUnprocessableEntity:
		// The gateway evaluated the operation and refused it. This will not
		// change on retry.
		var er errorResponse
		_ = json.Unmarshal(payload, &er)
		reason := er.Message
		if reason == "" {
			reason = strings.TrimSpace(string(payload))
		}
		if reason == "" {
			reason = resp.Status
		}
		return &domain.RejectedError{Reason: reason}

	default:
		return fmt.Errorf("escrow gateway %s %s: %s", method, path, resp.Status)
	}
}
