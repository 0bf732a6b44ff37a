package repositories

import (
	"context"
	"errors"

	"kudi/internal/models"
)

// Storage-level sentinels. Services translate these into domain errors.
var (
	ErrWalletNotFound         = errors.New("wallet not found")
	ErrTransactionNotFound    = errors.New("transaction not found")
	ErrVirtualAccountNotFound = errors.New("virtual account not found")
	ErrDuplicateReference     = errors.New("duplicate transaction reference")
)

// WalletRepository is the ledger's storage contract. ExecuteInTransaction
// yields a repository bound to a database transaction; every balance
// mutation plus its Transaction insert must happen through one such unit.
type WalletRepository interface {
	Create(wallet *models.Wallet) error
	GetByUserID(userID uint) (*models.Wallet, error)
	// GetByUserIDForUpdate locks the wallet row for the duration of the
	// surrounding database transaction.
	GetByUserIDForUpdate(userID uint) (*models.Wallet, error)
	UpdateBalance(walletID uint, balance int64) error
	UpdateStatus(walletID uint, status, reason string) error

	CreateTransaction(txn *models.Transaction) error
	GetTransactionByReference(reference string) (*models.Transaction, error)
	GetTransactionByReferenceForUpdate(reference string) (*models.Transaction, error)
	SaveTransaction(txn *models.Transaction) error
	GetTransactionHistory(ctx context.Context, userID uint, limit, offset int) ([]models.Transaction, error)
	// SumCompletedAmounts returns the signed sum of all completed
	// transactions for a user, for the integrity check.
	SumCompletedAmounts(userID uint) (int64, error)

	ExecuteInTransaction(fn func(WalletRepository) error) error
}

// VirtualAccountRepository stores provider-issued account numbers. The
// account-number lookup sits on the webhook hot path and is index-backed.
type VirtualAccountRepository interface {
	Create(account *models.VirtualAccount) error
	GetByAccountNumber(accountNumber string) (*models.VirtualAccount, error)
	GetByUserID(userID uint) ([]models.VirtualAccount, error)
	UpdateStatus(id uint, status string) error
}
