package payment

import (
	"context"

	"kudi/internal/models"
	"kudi/internal/services/reconciler"
)

// Service orchestrates money movement between gateways and the wallet
// ledger. It owns reference generation, webhook authentication, and the
// pending/complete deposit lifecycle; it never mutates a balance directly.
type Service interface {
	// InitializeDeposit stages a pending deposit and opens a checkout
	// session with the chosen gateway. The staged amount is what the
	// later verification must match.
	InitializeDeposit(ctx context.Context, req DepositRequest) (*DepositSession, error)

	// VerifyDeposit asks the gateway for the authoritative state of a
	// staged deposit and settles the ledger accordingly. Safe to call
	// repeatedly; a deposit already settled reports AlreadyProcessed.
	VerifyDeposit(ctx context.Context, gatewayID, reference string) (*DepositOutcome, error)

	// HandleWebhook authenticates and processes one webhook delivery.
	// rawBody must be the exact bytes received on the wire. An outcome
	// with Accepted true should be acknowledged with HTTP 200 even when
	// the event changed nothing.
	HandleWebhook(ctx context.Context, gatewayID, signature string, rawBody []byte) (*WebhookOutcome, error)

	// CreateVirtualAccount reserves dedicated account numbers with the
	// gateway and persists them for webhook-time resolution.
	CreateVirtualAccount(ctx context.Context, req VirtualAccountRequest) ([]models.VirtualAccount, error)

	// ListVirtualAccounts returns the accounts issued to a user.
	ListVirtualAccounts(ctx context.Context, userID uint) ([]models.VirtualAccount, error)

	// ListBanks proxies the gateway's bank directory.
	ListBanks(ctx context.Context, gatewayID string) ([]BankInfo, error)

	// PayBill debits the wallet and settles with the biller. If the
	// biller rejects after the debit, a compensating refund credit is
	// applied and the biller's error is returned. An unreachable biller
	// leaves the debit in place: the outcome is unknown and must not be
	// compensated speculatively.
	PayBill(ctx context.Context, req BillPaymentRequest) (*BillPaymentResult, error)
}

// BankInfo is one bank in a gateway's directory.
type BankInfo struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// TransferProcessor resolves inbound virtual-account transfers to wallet
// credits. Implemented by the reconciler.
type TransferProcessor interface {
	CreditFromTransfer(ctx context.Context, n reconciler.TransferNotification) (*reconciler.Outcome, error)
}

// BillProvider settles a bill payment with an external biller aggregator.
// A definitive rejection means the bill was not paid and the debit is
// compensated; an ErrGatewayUnavailable error means the outcome is
// unknown and the debit must stand until it is established.
type BillProvider interface {
	Pay(ctx context.Context, req BillPaymentRequest) (providerID string, err error)
}

// WebhookAuthenticator validates a delivery's signature against the raw
// request bytes.
type WebhookAuthenticator interface {
	Verify(gatewayID, signatureHeader string, rawBody []byte) bool
}
