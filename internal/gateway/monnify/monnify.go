// Package monnify implements the gateway.Adapter contract against the
// Monnify REST API. Monnify speaks major-unit naira on the wire and
// authenticates with a short-lived OAuth2 client-credentials token; the
// token is cached per client instance and refreshed shortly before expiry.
package monnify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"kudi/internal/gateway"
	"kudi/internal/money"

	"github.com/shopspring/decimal"
)

const defaultBaseURL = "https://api.monnify.com"

// SignatureHeader carries the webhook HMAC.
const SignatureHeader = "monnify-signature"

// tokenSkew is how long before the reported expiry a cached token is
// considered stale.
const tokenSkew = 60 * time.Second

type Config struct {
	APIKey       string
	SecretKey    string
	ContractCode string
	BaseURL      string
	Timeout      time.Duration

	// Now is injectable for token-expiry tests; defaults to time.Now.
	Now func() time.Time
}

type Client struct {
	apiKey       string
	secretKey    string
	contractCode string
	baseURL      string
	httpClient   *http.Client
	now          func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Client{
		apiKey:       cfg.APIKey,
		secretKey:    cfg.SecretKey,
		contractCode: cfg.ContractCode,
		baseURL:      cfg.BaseURL,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		now:          cfg.Now,
	}
}

func (c *Client) Name() string { return "monnify" }

// envelope is the common Monnify response wrapper.
type envelope struct {
	RequestSuccessful bool            `json:"requestSuccessful"`
	ResponseMessage   string          `json:"responseMessage"`
	ResponseBody      json.RawMessage `json:"responseBody"`
}

// accessToken returns a valid bearer token, logging in when the cached one
// is missing or near expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	if token, ok := c.cachedToken(); ok {
		return token, nil
	}
	return c.login(ctx)
}

func (c *Client) cachedToken() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.now().Before(c.tokenExpiry.Add(-tokenSkew)) {
		return c.token, true
	}
	return "", false
}

// login performs the client-credentials exchange. The mutex is not held
// across the round trip, so a refresh never blocks calls that can use the
// cached token. Concurrent refreshes may each log in; Monnify issues
// independent tokens and the last writer wins.
func (c *Client) login(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/auth/login", nil)
	if err != nil {
		return "", fmt.Errorf("monnify: build login request: %w", err)
	}
	basic := base64.StdEncoding.EncodeToString([]byte(c.apiKey + ":" + c.secretKey))
	req.Header.Set("Authorization", "Basic "+basic)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", gateway.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := decodeEnvelope(resp)
	if err != nil {
		return "", err
	}

	var out struct {
		AccessToken string `json:"accessToken"`
		ExpiresIn   int64  `json:"expiresIn"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("monnify: decode login response: %w", err)
	}

	c.mu.Lock()
	c.token = out.AccessToken
	c.tokenExpiry = c.now().Add(time.Duration(out.ExpiresIn) * time.Second)
	c.mu.Unlock()
	return out.AccessToken, nil
}

func decodeEnvelope(resp *http.Response) (json.RawMessage, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", gateway.ErrUnavailable, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: monnify returned %d", gateway.ErrUnavailable, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", gateway.ErrUnavailable, err)
	}
	if resp.StatusCode >= http.StatusBadRequest || !env.RequestSuccessful {
		return nil, fmt.Errorf("%w: %s", gateway.ErrRejected, env.ResponseMessage)
	}
	return env.ResponseBody, nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (json.RawMessage, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("monnify: encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("monnify: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	return decodeEnvelope(resp)
}

func (c *Client) InitializeTransaction(ctx context.Context, req gateway.InitializeRequest) (*gateway.CheckoutSession, error) {
	nativeAmount := money.FromCanonical(req.Amount, money.NGNNaira)

	data, err := c.do(ctx, http.MethodPost, "/api/v1/merchant/transactions/init-transaction", map[string]interface{}{
		"amount":             json.Number(nativeAmount.String()),
		"customerEmail":      req.Email,
		"paymentReference":   req.Reference,
		"paymentDescription": "wallet deposit",
		"currencyCode":       "NGN",
		"contractCode":       c.contractCode,
		"redirectUrl":        req.CallbackURL,
	})
	if err != nil {
		return nil, err
	}

	var out struct {
		CheckoutURL          string `json:"checkoutUrl"`
		TransactionReference string `json:"transactionReference"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("monnify: decode init-transaction data: %w", err)
	}
	return &gateway.CheckoutSession{CheckoutURL: out.CheckoutURL, Reference: req.Reference}, nil
}

func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*gateway.TransactionResult, error) {
	path := "/api/v2/merchant/transactions/query?paymentReference=" + url.QueryEscape(reference)
	data, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var out struct {
		PaymentStatus    string      `json:"paymentStatus"`
		PaymentReference string      `json:"paymentReference"`
		AmountPaid       json.Number `json:"amountPaid"`
		PaidOn           string      `json:"paidOn"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("monnify: decode query data: %w", err)
	}

	amount, err := parseNaira(out.AmountPaid)
	if err != nil {
		return nil, err
	}

	result := &gateway.TransactionResult{
		Status:    mapStatus(out.PaymentStatus),
		Reference: out.PaymentReference,
		Amount:    amount,
		Raw:       data,
	}
	result.Success = result.Status == gateway.StatusSuccess
	if t, err := time.Parse("02/01/2006 3:04:05 PM", out.PaidOn); err == nil {
		result.PaidAt = t
	}
	return result, nil
}

func (c *Client) ReserveAccount(ctx context.Context, req gateway.ReserveAccountRequest) ([]gateway.ReservedAccount, error) {
	data, err := c.do(ctx, http.MethodPost, "/api/v2/bank-transfer/reserved-accounts", map[string]interface{}{
		"accountReference":     req.Reference,
		"accountName":          req.FirstName + " " + req.LastName,
		"currencyCode":         "NGN",
		"contractCode":         c.contractCode,
		"customerEmail":        req.Email,
		"customerName":         req.FirstName + " " + req.LastName,
		"getAllAvailableBanks": true,
	})
	if err != nil {
		return nil, err
	}

	var out struct {
		Accounts []struct {
			BankName      string `json:"bankName"`
			AccountNumber string `json:"accountNumber"`
			AccountName   string `json:"accountName"`
		} `json:"accounts"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("monnify: decode reserved-accounts data: %w", err)
	}

	accounts := make([]gateway.ReservedAccount, 0, len(out.Accounts))
	for _, a := range out.Accounts {
		accounts = append(accounts, gateway.ReservedAccount{
			BankName:      a.BankName,
			AccountNumber: a.AccountNumber,
			AccountName:   a.AccountName,
		})
	}
	return accounts, nil
}

func (c *Client) ListBanks(ctx context.Context) ([]gateway.Bank, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/v1/banks", nil)
	if err != nil {
		return nil, err
	}

	var out []struct {
		Name string `json:"name"`
		Code string `json:"code"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("monnify: decode bank list: %w", err)
	}

	banks := make([]gateway.Bank, 0, len(out))
	for _, b := range out {
		banks = append(banks, gateway.Bank{Name: b.Name, Code: b.Code})
	}
	return banks, nil
}

// ParseWebhook normalizes a Monnify event. SUCCESSFUL_TRANSACTION events on
// a reserved account are inbound transfers; on other products they are
// checkout payments.
func (c *Client) ParseWebhook(body []byte) (*gateway.WebhookEvent, error) {
	var payload struct {
		EventType string `json:"eventType"`
		EventData struct {
			PaymentReference string      `json:"paymentReference"`
			AmountPaid       json.Number `json:"amountPaid"`
			PaidOn           string      `json:"paidOn"`
			Product          struct {
				Type string `json:"type"`
			} `json:"product"`
			DestinationAccountInformation struct {
				AccountNumber string `json:"accountNumber"`
				BankName      string `json:"bankName"`
			} `json:"destinationAccountInformation"`
			CustomerDTO struct {
				Name string `json:"name"`
			} `json:"customer"`
		} `json:"eventData"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("monnify: malformed webhook payload: %w", err)
	}
	if payload.EventType == "" {
		return nil, fmt.Errorf("monnify: webhook payload has no eventType")
	}

	event := &gateway.WebhookEvent{Kind: gateway.EventIgnored, Raw: body}
	if payload.EventType != "SUCCESSFUL_TRANSACTION" {
		return event, nil
	}

	amount, err := parseNaira(payload.EventData.AmountPaid)
	if err != nil {
		return nil, err
	}

	event.Reference = payload.EventData.PaymentReference
	event.Amount = amount
	if t, err := time.Parse("02/01/2006 3:04:05 PM", payload.EventData.PaidOn); err == nil {
		event.PaidAt = t
	}

	if payload.EventData.Product.Type == "RESERVED_ACCOUNT" {
		event.Kind = gateway.EventTransfer
		event.AccountNumber = payload.EventData.DestinationAccountInformation.AccountNumber
		event.SenderBank = payload.EventData.DestinationAccountInformation.BankName
		event.SenderName = payload.EventData.CustomerDTO.Name
	} else {
		event.Kind = gateway.EventCharge
	}
	return event, nil
}

func parseNaira(raw json.Number) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	dec, err := decimal.NewFromString(raw.String())
	if err != nil {
		return 0, fmt.Errorf("monnify: bad amount %q: %w", raw, err)
	}
	return money.ToCanonical(dec, money.NGNNaira)
}

func mapStatus(native string) gateway.Status {
	switch native {
	case "PAID", "OVERPAID":
		return gateway.StatusSuccess
	case "FAILED", "EXPIRED", "CANCELLED":
		return gateway.StatusFailed
	default:
		// PENDING, PARTIALLY_PAID
		return gateway.StatusPending
	}
}
