// Package paystack implements the gateway.Adapter contract against the
// Paystack REST API. Paystack amounts are already in kobo; conversion still
// goes through internal/money so the adapter stays the single choke point.
package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"kudi/internal/gateway"
	"kudi/internal/money"

	"github.com/shopspring/decimal"
)

const defaultBaseURL = "https://api.paystack.co"

// SignatureHeader carries the webhook HMAC.
const SignatureHeader = "x-paystack-signature"

type Config struct {
	SecretKey string
	BaseURL   string
	Timeout   time.Duration
}

type Client struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		secretKey:  cfg.SecretKey,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) Name() string { return "paystack" }

// envelope is the common Paystack response wrapper.
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("paystack: encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("paystack: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", gateway.ErrUnavailable, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: paystack returned %d", gateway.ErrUnavailable, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", gateway.ErrUnavailable, err)
	}
	if resp.StatusCode >= http.StatusBadRequest || !env.Status {
		return nil, fmt.Errorf("%w: %s", gateway.ErrRejected, env.Message)
	}
	return env.Data, nil
}

func (c *Client) InitializeTransaction(ctx context.Context, req gateway.InitializeRequest) (*gateway.CheckoutSession, error) {
	// Native unit is kobo, so the conversion is exact.
	koboAmount := money.FromCanonical(req.Amount, money.NGNKobo).IntPart()

	data, err := c.do(ctx, http.MethodPost, "/transaction/initialize", map[string]interface{}{
		"email":        req.Email,
		"amount":       koboAmount,
		"reference":    req.Reference,
		"callback_url": req.CallbackURL,
		"currency":     "NGN",
	})
	if err != nil {
		return nil, err
	}

	var out struct {
		AuthorizationURL string `json:"authorization_url"`
		Reference        string `json:"reference"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("paystack: decode initialize data: %w", err)
	}
	return &gateway.CheckoutSession{CheckoutURL: out.AuthorizationURL, Reference: out.Reference}, nil
}

func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*gateway.TransactionResult, error) {
	data, err := c.do(ctx, http.MethodGet, "/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, err
	}

	var out struct {
		Status    string      `json:"status"`
		Reference string      `json:"reference"`
		Amount    json.Number `json:"amount"`
		PaidAt    string      `json:"paid_at"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("paystack: decode verify data: %w", err)
	}

	amount, err := parseKobo(out.Amount)
	if err != nil {
		return nil, err
	}

	result := &gateway.TransactionResult{
		Status:    mapStatus(out.Status),
		Reference: out.Reference,
		Amount:    amount,
		Raw:       data,
	}
	result.Success = result.Status == gateway.StatusSuccess
	if t, err := time.Parse(time.RFC3339, out.PaidAt); err == nil {
		result.PaidAt = t
	}
	return result, nil
}

// ReserveAccount is not offered through this adapter; virtual accounts are
// issued by Monnify.
func (c *Client) ReserveAccount(ctx context.Context, req gateway.ReserveAccountRequest) ([]gateway.ReservedAccount, error) {
	return nil, gateway.ErrNotSupported
}

func (c *Client) ListBanks(ctx context.Context) ([]gateway.Bank, error) {
	data, err := c.do(ctx, http.MethodGet, "/bank?currency=NGN", nil)
	if err != nil {
		return nil, err
	}

	var out []struct {
		Name string `json:"name"`
		Code string `json:"code"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("paystack: decode bank list: %w", err)
	}

	banks := make([]gateway.Bank, 0, len(out))
	for _, b := range out {
		banks = append(banks, gateway.Bank{Name: b.Name, Code: b.Code})
	}
	return banks, nil
}

// ParseWebhook normalizes a Paystack event. charge.success events on a
// dedicated NUBAN channel are inbound virtual-account transfers; other
// charge.success events are checkout payments.
func (c *Client) ParseWebhook(body []byte) (*gateway.WebhookEvent, error) {
	var payload struct {
		Event string `json:"event"`
		Data  struct {
			Reference     string      `json:"reference"`
			Amount        json.Number `json:"amount"`
			PaidAt        string      `json:"paid_at"`
			Authorization struct {
				Channel        string `json:"channel"`
				ReceiverBank   string `json:"receiver_bank"`
				AccountNumber  string `json:"receiver_bank_account_number"`
				SenderName     string `json:"sender_name"`
				SenderBankName string `json:"sender_bank"`
			} `json:"authorization"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("paystack: malformed webhook payload: %w", err)
	}
	if payload.Event == "" {
		return nil, fmt.Errorf("paystack: webhook payload has no event")
	}

	event := &gateway.WebhookEvent{Kind: gateway.EventIgnored, Raw: body}
	if payload.Event != "charge.success" {
		return event, nil
	}

	amount, err := parseKobo(payload.Data.Amount)
	if err != nil {
		return nil, err
	}

	event.Reference = payload.Data.Reference
	event.Amount = amount
	if t, err := time.Parse(time.RFC3339, payload.Data.PaidAt); err == nil {
		event.PaidAt = t
	}

	if payload.Data.Authorization.Channel == "dedicated_nuban" {
		event.Kind = gateway.EventTransfer
		event.AccountNumber = payload.Data.Authorization.AccountNumber
		event.SenderName = payload.Data.Authorization.SenderName
		event.SenderBank = payload.Data.Authorization.SenderBankName
	} else {
		event.Kind = gateway.EventCharge
	}
	return event, nil
}

func parseKobo(raw json.Number) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	dec, err := decimal.NewFromString(raw.String())
	if err != nil {
		return 0, fmt.Errorf("paystack: bad amount %q: %w", raw, err)
	}
	return money.ToCanonical(dec, money.NGNKobo)
}

func mapStatus(native string) gateway.Status {
	switch native {
	case "success":
		return gateway.StatusSuccess
	case "failed", "abandoned", "reversed":
		return gateway.StatusFailed
	default:
		// ongoing, queued, pending, processing
		return gateway.StatusPending
	}
}
