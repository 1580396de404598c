package verification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/healthythako/payment-redirect/pkg/config"
	"github.com/healthythako/payment-redirect/pkg/logctx"
	"github.com/healthythako/payment-redirect/pkg/types"
)

// Request is the verify-payment call payload. Status is the gateway's
// advisory redirect status, forwarded for diagnostics only; the backend
// decides settlement against the gateway directly.
type Request struct {
	InvoiceID   string            `json:"invoice_id"`
	Status      string            `json:"status,omitempty"`
	PaymentType types.PaymentType `json:"payment_type"`
	UserID      string            `json:"user_id,omitempty"`
}

// Result is the normalized authoritative verdict from the verification
// service. Metadata is an opaque pass-through (serialized booking or
// membership payload, user id, amounts rendered by the backend).
type Result struct {
	Verified             bool                `json:"verified"`
	GatewayStatus        types.GatewayStatus `json:"gateway_status"`
	SettledAmount        *float64            `json:"settled_amount,omitempty"`
	SettledTransactionID string              `json:"settled_transaction_id,omitempty"`
	Metadata             map[string]string   `json:"metadata,omitempty"`
	ErrorDetail          string              `json:"error_detail,omitempty"`
}

// wireResponse mirrors the verify-payment endpoint's JSON contract.
type wireResponse struct {
	Success       bool              `json:"success"`
	Status        string            `json:"status"`
	TransactionID string            `json:"transaction_id"`
	Amount        *float64          `json:"amount"`
	Metadata      map[string]string `json:"metadata"`
	Error         string            `json:"error"`
}

// Client issues a single verification round trip per call. It never retries
// on its own; the redirect controller owns the retry policy.
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
	log        *zap.SugaredLogger
}

func NewClient(cfg *config.Config, log *zap.SugaredLogger) *Client {
	return &Client{
		cfg: cfg,
		// Per-call deadlines come from the caller's context; the client
		// timeout is only a safety net.
		httpClient: &http.Client{Timeout: cfg.Verification.TotalBudget},
		log:        log,
	}
}

func (c *Client) endpoint() string {
	return strings.TrimRight(c.cfg.Verification.BaseURL, "/") + "/verify-payment"
}

// Verify posts the invoice to the verification service and normalizes the
// response. A transport-level failure, a non-2xx response, or a response
// without a recognizable status yields a *TransportError; a well-formed
// rejection comes back as a Result with Verified=false.
func (c *Client) Verify(ctx context.Context, req *Request) (*Result, error) {
	if req == nil || req.InvoiceID == "" {
		return nil, fmt.Errorf("verification request requires an invoice id")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode verification request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build verification request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if key := c.cfg.Verification.ServiceKey; key != "" {
		httpReq.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Op: "call", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{Op: "status", Err: fmt.Errorf("verification service returned %d", resp.StatusCode)}
	}

	var wire wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, &TransportError{Op: "decode", Err: err}
	}

	status := types.GatewayStatus(strings.ToUpper(strings.TrimSpace(wire.Status)))
	if !status.Known() {
		return nil, &TransportError{Op: "decode", Err: fmt.Errorf("unrecognized gateway status %q", wire.Status)}
	}

	logctx.FromCtx(ctx, c.log).Infow("verification_result",
		"invoice_id", req.InvoiceID,
		"gateway_status", status,
		"verified", wire.Success,
	)

	return &Result{
		Verified:             wire.Success,
		GatewayStatus:        status,
		SettledAmount:        wire.Amount,
		SettledTransactionID: wire.TransactionID,
		Metadata:             wire.Metadata,
		ErrorDetail:          wire.Error,
	}, nil
}
