package wallet

import (
	"context"

	"kudi/internal/models"
)

// OperationResult is returned by every successful ledger mutation.
type OperationResult struct {
	Balance     int64               `json:"balance"`
	Transaction *models.Transaction `json:"transaction"`
}

// Balance is the read-side view of a wallet.
type Balance struct {
	Balance  int64  `json:"balance"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

// IntegrityReport compares the stored balance to the sum of completed
// transactions. Exact equality is required; there is no tolerance.
type IntegrityReport struct {
	UserID          uint  `json:"user_id"`
	WalletBalance   int64 `json:"wallet_balance"`
	ComputedBalance int64 `json:"computed_balance"`
	Valid           bool  `json:"valid"`
}

// Config holds ledger defaults.
type Config struct {
	DefaultCurrency string
	HistoryPageSize int
}

// CacheOperator is the caching surface the ledger needs. The database is
// authoritative; the cache is read-through with invalidation on mutation.
type CacheOperator interface {
	GetWallet(ctx context.Context, userID uint) (*models.Wallet, bool)
	CacheWallet(ctx context.Context, wallet *models.Wallet) error
	InvalidateWallet(ctx context.Context, userID uint) error
}

// NoopCache satisfies CacheOperator without caching anything.
type NoopCache struct{}

func (NoopCache) GetWallet(context.Context, uint) (*models.Wallet, bool) { return nil, false }
func (NoopCache) CacheWallet(context.Context, *models.Wallet) error      { return nil }
func (NoopCache) InvalidateWallet(context.Context, uint) error           { return nil }
