package wallet

import (
	"context"

	"kudi/internal/models"
)

// Service is the wallet ledger. It is the only component allowed to change
// a balance, and every mutation is keyed by a globally unique reference:
// the same reference can produce at most one balance change, ever.
type Service interface {
	// GetOrCreateWallet returns the user's wallet, creating an empty active
	// wallet on first access.
	GetOrCreateWallet(ctx context.Context, userID uint) (*models.Wallet, error)

	// Credit atomically increases the balance and records a completed
	// Transaction. Fails with ErrDuplicateReference if the reference was
	// seen before, ErrWalletNotActive if the wallet cannot be mutated.
	Credit(ctx context.Context, userID uint, amount int64, txType, reference string, metadata models.Metadata) (*OperationResult, error)

	// Debit is Credit's counterpart; additionally fails with
	// ErrInsufficientFunds. The Transaction records a negative amount.
	Debit(ctx context.Context, userID uint, amount int64, txType, reference string, metadata models.Metadata) (*OperationResult, error)

	// StagePending records a pending Transaction with no balance change,
	// reserving the reference for a later CompletePending.
	StagePending(ctx context.Context, userID uint, amount int64, txType, reference string, metadata models.Metadata) (*models.Transaction, error)

	// CompletePending promotes a staged transaction to completed and
	// applies its balance change, if the verified amount matches the
	// staged amount (ErrAmountMismatch otherwise). A transaction that is
	// already completed yields ErrDuplicateReference.
	CompletePending(ctx context.Context, reference string, verifiedAmount int64) (*OperationResult, error)

	// FailPending moves a staged transaction to failed with no balance
	// change.
	FailPending(ctx context.Context, reference string) error

	GetBalance(ctx context.Context, userID uint) (*Balance, error)
	GetTransactionHistory(ctx context.Context, userID uint, limit, offset int) ([]models.Transaction, error)

	// VerifyIntegrity recomputes the balance from completed transactions
	// and compares it to the stored balance. Audit path, not hot path.
	VerifyIntegrity(ctx context.Context, userID uint) (*IntegrityReport, error)

	// SetStatus is the administrative entry point for suspending or
	// reactivating a wallet. Ledger operations never call it.
	SetStatus(ctx context.Context, userID uint, status, reason string) error
}
