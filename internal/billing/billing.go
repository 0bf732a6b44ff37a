// Package billing is a thin client for the bill aggregator that settles
// electricity, airtime and TV payments. The orchestrator debits the wallet
// first, then calls this client; any error returned here triggers a
// compensating refund upstream.
package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"kudi/internal/gateway"
	"kudi/internal/services/payment"
)

const defaultTimeout = 15 * time.Second

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

var _ payment.BillProvider = (*Client)(nil)

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type payRequest struct {
	Biller     string `json:"biller"`
	CustomerID string `json:"customer_id"`
	Amount     int64  `json:"amount"`
}

type payResponse struct {
	Status    bool   `json:"status"`
	Message   string `json:"message"`
	Reference string `json:"reference"`
}

// Pay settles one bill with the aggregator. Amount is in kobo, which is
// the aggregator's native unit. A transport failure or 5xx maps to
// ErrUnavailable, any definitive rejection to ErrRejected.
func (c *Client) Pay(ctx context.Context, req payment.BillPaymentRequest) (string, error) {
	body, err := json.Marshal(payRequest{
		Biller:     req.Biller,
		CustomerID: req.CustomerID,
		Amount:     req.Amount,
	})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/bills/pay", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", gateway.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return "", fmt.Errorf("%w: aggregator returned %d", gateway.ErrUnavailable, resp.StatusCode)
	}

	var out payResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: malformed aggregator response", gateway.ErrUnavailable)
	}
	if resp.StatusCode >= http.StatusBadRequest || !out.Status {
		return "", fmt.Errorf("%w: %s", gateway.ErrRejected, out.Message)
	}

	return out.Reference, nil
}
