// Package gateway defines the uniform contract every payment provider
// integration implements, plus the canonical result shapes adapters
// normalize provider responses into.
package gateway

import (
	"context"
	"encoding/json"
	"time"
)

// Canonical transaction statuses. Adapters map each provider's native
// vocabulary onto these three.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPending Status = "pending"
	StatusFailed  Status = "failed"
)

// Webhook event kinds after normalization.
type EventKind string

const (
	// EventCharge is a completed checkout payment.
	EventCharge EventKind = "charge"
	// EventTransfer is an inbound bank transfer into a virtual account.
	EventTransfer EventKind = "transfer"
	// EventIgnored is a valid event this system takes no action on.
	EventIgnored EventKind = "ignored"
)

// InitializeRequest starts a hosted-checkout payment. Amount is in
// canonical units; the adapter converts to the provider's native unit.
type InitializeRequest struct {
	Email       string
	Amount      int64
	Reference   string
	CallbackURL string
}

// CheckoutSession is the result of a successful initialize call.
type CheckoutSession struct {
	CheckoutURL string
	Reference   string
}

// TransactionResult is the normalized outcome of a verify call. Amount is
// in canonical units, converted exactly once at the adapter boundary. Raw
// keeps the provider payload for audit.
type TransactionResult struct {
	Success   bool
	Status    Status
	Reference string
	Amount    int64
	PaidAt    time.Time
	Raw       json.RawMessage
}

// ReserveAccountRequest asks a provider to issue a dedicated bank account
// for receiving push transfers.
type ReserveAccountRequest struct {
	UserID    uint
	Email     string
	FirstName string
	LastName  string
	Reference string
}

// ReservedAccount is one provider-issued account number.
type ReservedAccount struct {
	BankName      string
	AccountNumber string
	AccountName   string
}

// Bank is one entry from a provider's bank list.
type Bank struct {
	Name string
	Code string
}

// WebhookEvent is a provider webhook normalized into the canonical shape.
// Amount is in canonical units. AccountNumber is set only for transfers.
type WebhookEvent struct {
	Kind          EventKind
	Reference     string
	Amount        int64
	AccountNumber string
	SenderName    string
	SenderBank    string
	PaidAt        time.Time
	Raw           json.RawMessage
}

// Adapter is implemented once per payment provider. All methods take the
// request context and are bounded by the adapter's HTTP timeout. Network
// and provider-5xx failures surface as ErrGatewayUnavailable so callers can
// distinguish "retry the call" from "the payment failed".
type Adapter interface {
	Name() string
	InitializeTransaction(ctx context.Context, req InitializeRequest) (*CheckoutSession, error)
	VerifyTransaction(ctx context.Context, reference string) (*TransactionResult, error)
	ReserveAccount(ctx context.Context, req ReserveAccountRequest) ([]ReservedAccount, error)
	ListBanks(ctx context.Context) ([]Bank, error)
	ParseWebhook(body []byte) (*WebhookEvent, error)
}
